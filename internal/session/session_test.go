package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sheetview/domain/sheet"
	"sheetview/internal/dataset"
	apperrors "sheetview/internal/errors"
	"sheetview/internal/worker"
)

const acmeCSV = "ACME CORP\n,,\ncodigo,nombre,precio,stock\nA1,Widget,1000,3\nA2,Gadget,2000,10\n"

// MockRecordStore is a testify mock of ports.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Save(ctx context.Context, c *sheet.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRecordStore) Load(ctx context.Context) (*sheet.Collection, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.(*sheet.Collection), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newSession(t *testing.T, store *MockRecordStore) *Session {
	t.Helper()
	w := worker.Start(context.Background(), nil, worker.Options{})
	t.Cleanup(w.Close)
	if store == nil {
		return New(w, nil, DefaultOptions())
	}
	return New(w, store, DefaultOptions())
}

func TestUploadLoadsAndPersists(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Save", mock.Anything, mock.MatchedBy(func(c *sheet.Collection) bool { return c.Len() == 2 })).Return(nil)
	s := newSession(t, store)

	res, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"codigo", "nombre", "precio", "stock"}, res.Fields)
	assert.Len(t, res.Checksum, 64)

	st := s.State()
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, "acme.csv", st.Source)
	store.AssertExpectations(t)
}

func TestUploadSwallowsSaveFailure(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Save", mock.Anything, mock.Anything).Return(apperrors.PersistenceError("save", errors.New("quota exceeded")))
	s := newSession(t, store)

	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, s.State().Total)
	store.AssertExpectations(t)
}

func TestUploadFailureKeepsCurrentData(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	s := newSession(t, store)

	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "notes.txt", []byte("not a spreadsheet"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDecodeFailed))

	st := s.State()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, "acme.csv", st.Source)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestUploadEmptyFile(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.Upload(context.Background(), "empty.xlsx", nil)
	require.NoError(t, err)

	win := s.Window(0, 700)
	assert.True(t, win.Empty)
	assert.Empty(t, win.Rows)
	assert.Equal(t, 0, win.TotalSize)
}

func TestUploadAfterWorkerClosed(t *testing.T) {
	w := worker.Start(context.Background(), nil, worker.Options{})
	s := New(w, nil, DefaultOptions())
	w.Close()

	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWorkerClosed))
}

func TestRestore(t *testing.T) {
	saved := &sheet.Collection{
		Fields:  []string{"sku"},
		Records: []sheet.Record{{"sku": sheet.Text("A1")}},
	}
	store := new(MockRecordStore)
	store.On("Load", mock.Anything).Return(saved, nil)
	s := newSession(t, store)

	assert.True(t, s.Restore(context.Background()))
	assert.Equal(t, 1, s.State().Total)
}

func TestRestoreSwallowsLoadFailure(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Load", mock.Anything).Return(nil, errors.New("storage blocked"))
	s := newSession(t, store)

	assert.False(t, s.Restore(context.Background()))
	assert.Equal(t, 0, s.State().Total)
}

func TestRestoreEmptyStore(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Load", mock.Anything).Return(nil, nil)
	s := newSession(t, store)

	assert.False(t, s.Restore(context.Background()))
}

func TestResetClearsEverything(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	store.On("Clear", mock.Anything).Return(errors.New("disk gone"))
	s := newSession(t, store)

	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)
	s.SetSearchTerm("widget")

	s.Reset(context.Background())

	st := s.State()
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, "", st.Search)
	assert.Empty(t, st.Fields)
	assert.True(t, s.Window(0, 700).Empty)
	store.AssertCalled(t, "Clear", mock.Anything)
}

func TestApplyQuery(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)

	search := "widget"
	st, err := s.ApplyQuery(QueryUpdate{Search: &search})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)

	empty := ""
	st, err = s.ApplyQuery(QueryUpdate{
		Search:  &empty,
		Filters: map[string]json.RawMessage{"stock": json.RawMessage(`{"min":5,"max":null}`)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, st.Count)
	assert.Equal(t, "A2", s.VisibleRecords()[0].Get("codigo").String())
	assert.Contains(t, st.Filters, "stock")

	st, err = s.ApplyQuery(QueryUpdate{
		Filters: map[string]json.RawMessage{},
		Sort:    &SortView{Key: "precio", Direction: "desc"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, SortView{Key: "precio", Direction: "desc"}, st.Sort)
	assert.Equal(t, "A2", s.VisibleRecords()[0].Get("codigo").String())
}

func TestApplyQueryIsAllOrNothing(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)

	search := "widget"
	_, err = s.ApplyQuery(QueryUpdate{
		Search:  &search,
		Filters: map[string]json.RawMessage{"stock": json.RawMessage(`{"min":"low"}`)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.ErrorIs(t, err, dataset.ErrInvalidFilter)
	assert.Equal(t, "", s.State().Search)

	_, err = s.ApplyQuery(QueryUpdate{Sort: &SortView{Key: "nope", Direction: "asc"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = s.ApplyQuery(QueryUpdate{Sort: &SortView{Key: "precio", Direction: "sideways"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestToggleSortAndColumns(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)

	sv, err := s.ToggleSort("precio")
	require.NoError(t, err)
	assert.Equal(t, "asc", sv.Direction)
	sv, err = s.ToggleSort("precio")
	require.NoError(t, err)
	assert.Equal(t, "desc", sv.Direction)

	_, err = s.ToggleSort("missing")
	assert.ErrorIs(t, err, dataset.ErrUnknownField)

	require.NoError(t, s.ToggleColumn("nombre"))
	assert.Equal(t, []string{"codigo", "precio", "stock"}, s.State().Visible)

	require.NoError(t, s.SetFilter("stock", dataset.RangeFilter{Max: dataset.Bound(5)}))
	assert.Equal(t, 1, s.State().Count)
	s.ClearFilters()
	assert.Equal(t, 2, s.State().Count)
}

func TestWindowRows(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)
	require.NoError(t, s.ToggleColumn("stock"))

	win := s.Window(0, 700)
	assert.False(t, win.Empty)
	assert.Equal(t, 0, win.Start)
	assert.Equal(t, 2, win.End)
	assert.Equal(t, 70, win.TotalSize)
	require.Len(t, win.Rows, 2)
	assert.Equal(t, 35, win.Rows[1].Start)
	assert.Equal(t, "Gadget", win.Rows[1].Record.Get("nombre").String())
	assert.NotContains(t, win.Rows[1].Record, "stock")

	win = s.Measure(0, 50)
	assert.Equal(t, 85, win.TotalSize)
	assert.Equal(t, 50, win.Rows[1].Start)
}

func TestProfile(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Upload(context.Background(), "acme.csv", []byte(acmeCSV))
	require.NoError(t, err)

	p, err := s.Profile("precio")
	require.NoError(t, err)
	assert.True(t, p.Numeric)
	assert.Equal(t, 2000.0, *p.Max)
}

func TestScrollToIndexSizesViewport(t *testing.T) {
	var b strings.Builder
	b.WriteString("codigo,nombre,stock\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "P%03d,item %d,%d\n", i, i, i)
	}
	s := newSession(t, nil)
	_, err := s.Upload(context.Background(), "stock.csv", []byte(b.String()))
	require.NoError(t, err)

	win := s.ScrollToIndex(50, 350)
	assert.Equal(t, 1750, win.Offset)
	assert.Equal(t, 30, win.Start)
	assert.Equal(t, "P050", win.Rows[20].Record.Get("codigo").String())

	s.Window(0, 700)
	win = s.ScrollToIndex(99, 350)
	assert.Equal(t, 3500-350, win.Offset)
	assert.Equal(t, 100, win.End)
}
