// Package session owns the interactive state of one browsing session: the loaded collection,
// its query, the scroll window, and where it is persisted.
//
// Every method is safe for concurrent use. State changes are serialized by one mutex, which
// stands in for the single interactive thread; decoding runs on the worker and never holds it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"sheetview/domain/core"
	"sheetview/domain/sheet"
	"sheetview/internal/dataset"
	apperrors "sheetview/internal/errors"
	"sheetview/internal/window"
	"sheetview/internal/worker"
	"sheetview/ports"
)

// Options configures a Session
type Options struct {
	Window window.Options
}

// DefaultOptions returns the web table's row height and overscan
func DefaultOptions() Options {
	return Options{Window: window.DefaultOptions()}
}

// Session ties the engine, the virtualizer, the worker and the store together
type Session struct {
	worker *worker.Worker
	store  ports.RecordStore

	uploadMu sync.Mutex

	mu     sync.Mutex
	engine *dataset.Engine
	view   *window.Virtualizer
	source string
}

// New creates a session. store may be nil to disable persistence.
func New(w *worker.Worker, store ports.RecordStore, opts Options) *Session {
	return &Session{
		worker: w,
		store:  store,
		engine: dataset.NewEngine(),
		view:   window.New(opts.Window),
	}
}

// UploadResult describes a successful upload
type UploadResult struct {
	RequestID  string   `json:"requestId"`
	FileName   string   `json:"fileName"`
	Checksum   string   `json:"checksum"`
	HeaderRow  int      `json:"headerRow"`
	Confidence float64  `json:"confidence"`
	Fields     []string `json:"fields"`
	Total      int      `json:"total"`
}

// Upload decodes a file on the worker and, on success, replaces the collection and persists it.
// On failure the current collection is left untouched. Uploads run one at a time.
func (s *Session) Upload(ctx context.Context, name string, data []byte) (*UploadResult, error) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	if s.worker == nil {
		return nil, apperrors.WorkerClosed()
	}

	replies, err := s.worker.Submit(ctx, worker.Request{FileData: data, FileName: name})
	if err != nil {
		return nil, err
	}

	var reply worker.Reply
	select {
	case r, ok := <-replies:
		if !ok {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, apperrors.WorkerClosed()
		}
		reply = r
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if !reply.Success {
		log.Printf("[Session] upload of %s failed: %s", name, reply.Error)
		return nil, apperrors.DecodeFailed(reply.Error, nil)
	}

	coll := reply.Collection()
	s.mu.Lock()
	s.setCollection(coll, name)
	s.mu.Unlock()

	sum := core.NewChecksum(data)
	log.Printf("[Session] loaded %s (%s): %d records, header row %d", name, sum.Short(), coll.Len(), reply.HeaderRow)
	s.persist(ctx, coll)

	return &UploadResult{
		RequestID:  reply.ID,
		FileName:   name,
		Checksum:   sum.String(),
		HeaderRow:  reply.HeaderRow,
		Confidence: reply.Confidence,
		Fields:     coll.Headers(),
		Total:      coll.Len(),
	}, nil
}

// Load replaces the collection directly, bypassing the worker, and persists it
func (s *Session) Load(ctx context.Context, name string, coll *sheet.Collection) {
	s.mu.Lock()
	s.setCollection(coll, name)
	s.mu.Unlock()
	s.persist(ctx, coll)
}

// Restore loads the persisted collection, if any. Store failures are logged and treated as an
// empty store.
func (s *Session) Restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	coll, err := s.store.Load(ctx)
	if err != nil {
		log.Printf("[Session] failed to restore saved data: %v", err)
		return false
	}
	if coll == nil {
		return false
	}

	s.mu.Lock()
	s.setCollection(coll, "restored")
	s.mu.Unlock()
	log.Printf("[Session] restored %d records", coll.Len())
	return true
}

// Reset clears the collection, the query and the persisted copy
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.engine.Reset()
	s.source = ""
	s.syncView()
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.Clear(ctx); err != nil {
		log.Printf("[Session] failed to clear saved data: %v", err)
	}
}

func (s *Session) setCollection(coll *sheet.Collection, source string) {
	s.engine.SetRecords(coll)
	s.source = source
	s.syncView()
}

func (s *Session) persist(ctx context.Context, coll *sheet.Collection) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, coll); err != nil {
		log.Printf("[Session] failed to save data: %v", err)
	}
}

// syncView points the virtualizer at the current visible sequence. Measured heights belong to
// the old sequence and are dropped. Callers hold mu.
func (s *Session) syncView() {
	s.view.ResetMeasurements()
	s.view.SetCount(s.engine.Len())
}

// SortView is the wire form of the sort state
type SortView struct {
	Key       string `json:"key,omitempty"`
	Direction string `json:"direction"`
}

// State is a snapshot of the session for display
type State struct {
	Source     string                 `json:"source,omitempty"`
	Fields     []string               `json:"fields"`
	Visible    []string               `json:"visibleColumns"`
	Total      int                    `json:"total"`
	Count      int                    `json:"count"`
	Search     string                 `json:"search"`
	Filters    map[string]interface{} `json:"filters"`
	Sort       SortView               `json:"sort"`
	Generation uint64                 `json:"generation"`
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	q := s.engine.Query()
	filters := make(map[string]interface{}, len(q.Filters))
	for field, f := range q.Filters {
		filters[field] = dataset.MarshalFilter(f)
	}
	fields := s.engine.Headers()
	if fields == nil {
		fields = []string{}
	}
	return State{
		Source:     s.source,
		Fields:     fields,
		Visible:    q.Visible,
		Total:      s.engine.Total(),
		Count:      s.engine.Len(),
		Search:     q.Search,
		Filters:    filters,
		Sort:       SortView{Key: q.Sort.Key, Direction: q.Sort.Direction.String()},
		Generation: s.engine.Generation(),
	}
}

// QueryUpdate changes parts of the query. Nil members are left as they are.
type QueryUpdate struct {
	Search  *string                    `json:"search,omitempty"`
	Filters map[string]json.RawMessage `json:"filters,omitempty"`
	Sort    *SortView                  `json:"sort,omitempty"`
	Visible []string                   `json:"visibleColumns,omitempty"`
}

// ApplyQuery validates the whole update before applying any of it
func (s *Session) ApplyQuery(u QueryUpdate) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filters map[string]dataset.Filter
	if u.Filters != nil {
		filters = make(map[string]dataset.Filter, len(u.Filters))
		for field, raw := range u.Filters {
			if !s.engine.HasField(field) {
				return State{}, apperrors.InvalidInput(fmt.Sprintf("unknown field %q", field))
			}
			f, err := dataset.ParseFilter(raw)
			if err != nil {
				return State{}, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("filter on %q: %w", field, err))
			}
			filters[field] = f
		}
	}

	var dir dataset.SortDirection
	if u.Sort != nil {
		var err error
		dir, err = dataset.ParseSortDirection(u.Sort.Direction)
		if err != nil {
			return State{}, apperrors.WithCode(apperrors.CodeInvalidInput, err)
		}
		if u.Sort.Key != "" && !s.engine.HasField(u.Sort.Key) {
			return State{}, apperrors.InvalidInput(fmt.Sprintf("unknown field %q", u.Sort.Key))
		}
	}

	if u.Visible != nil {
		s.engine.SetVisibleColumns(u.Visible)
	}
	if u.Filters != nil {
		s.engine.SetFilters(filters)
	}
	if u.Search != nil {
		s.engine.SetSearchTerm(*u.Search)
	}
	if u.Sort != nil {
		s.engine.SetSortDirection(u.Sort.Key, dir)
	}
	s.syncView()
	return s.stateLocked(), nil
}

// SetSearchTerm sets the global search term
func (s *Session) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetSearchTerm(term)
	s.syncView()
}

// SetFilter sets or clears the filter on one column
func (s *Session) SetFilter(field string, f dataset.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.HasField(field) {
		return dataset.ErrUnknownField
	}
	s.engine.SetFilter(field, f)
	s.syncView()
	return nil
}

// ClearFilters removes every column filter
func (s *Session) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ClearFilters()
	s.syncView()
}

// ToggleSort cycles the sort on field: ascending first, then flipping direction
func (s *Session) ToggleSort(field string) (SortView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.HasField(field) {
		return SortView{}, dataset.ErrUnknownField
	}
	s.engine.SetSort(field)
	s.syncView()
	q := s.engine.Query()
	return SortView{Key: q.Sort.Key, Direction: q.Sort.Direction.String()}, nil
}

// ToggleColumn shows or hides a column
func (s *Session) ToggleColumn(field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.HasField(field) {
		return dataset.ErrUnknownField
	}
	s.engine.ToggleColumn(field)
	s.syncView()
	return nil
}

// Profile summarizes one column over the whole collection
func (s *Session) Profile(field string) (dataset.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Profile(field)
}

// Row is one rendered row: its position plus the cells of the visible columns
type Row struct {
	window.Item
	Record sheet.Record `json:"record"`
}

// Window is the slice of the visible sequence to render for a viewport
type Window struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Count      int      `json:"count"`
	TotalSize  int      `json:"totalSize"`
	Offset     int      `json:"offset"`
	Empty      bool     `json:"empty"`
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
	Generation uint64   `json:"generation"`
}

// Window scrolls to offset with the given viewport height and returns the rows to render
func (s *Session) Window(offset, height int) Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetViewport(offset, height)
	return s.windowLocked()
}

// ScrollToIndex sizes the viewport to height, moves it to a row and returns the new window
func (s *Session) ScrollToIndex(index, height int) Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetViewport(0, height)
	s.view.ScrollToIndex(index)
	return s.windowLocked()
}

// Measure records the rendered height of a row
func (s *Session) Measure(index, size int) Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Measure(index, size)
	return s.windowLocked()
}

func (s *Session) windowLocked() Window {
	columns := s.engine.VisibleColumns()
	items := s.view.Items()
	start, end := s.view.Range()
	offset, _ := s.view.Viewport()

	rows := make([]Row, 0, len(items))
	records := s.engine.Slice(start, end)
	for i, it := range items {
		if i >= len(records) {
			break
		}
		rec := make(sheet.Record, len(columns))
		for _, c := range columns {
			rec[c] = records[i].Get(c)
		}
		rows = append(rows, Row{Item: it, Record: rec})
	}

	return Window{
		Start:      start,
		End:        end,
		Count:      s.view.Count(),
		TotalSize:  s.view.TotalSize(),
		Offset:     offset,
		Empty:      s.view.Empty(),
		Columns:    columns,
		Rows:       rows,
		Generation: s.engine.Generation(),
	}
}

// VisibleRecords returns a copy of the filtered and sorted records
func (s *Session) VisibleRecords() []sheet.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheet.Record(nil), s.engine.VisibleRecords()...)
}
