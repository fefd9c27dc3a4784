package dataset

import (
	"encoding/json"
	"testing"

	"sheetview/domain/sheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeCollection() *sheet.Collection {
	return &sheet.Collection{
		Fields: []string{"codigo", "nombre", "precio", "stock"},
		Records: []sheet.Record{
			{"codigo": sheet.Text("A1"), "nombre": sheet.Text("Widget"), "precio": sheet.Text("1000"), "stock": sheet.Text("3")},
			{"codigo": sheet.Text("A2"), "nombre": sheet.Text("Gadget"), "precio": sheet.Text("2000"), "stock": sheet.Text("10")},
		},
	}
}

func mixedCollection() *sheet.Collection {
	return &sheet.Collection{
		Fields: []string{"name", "qty"},
		Records: []sheet.Record{
			{"name": sheet.Text("pear"), "qty": sheet.Number(12)},
			{"name": sheet.Text("apple"), "qty": sheet.Text("9")},
			{"name": sheet.Empty(), "qty": sheet.Text("n/a")},
			{"name": sheet.Text("Banana"), "qty": sheet.Missing},
			{"name": sheet.Text("fig"), "qty": sheet.Number(100)},
			{"name": sheet.Text("kiwi"), "qty": sheet.Number(9)},
		},
	}
}

func TestEngineSearchMatchesAnyVisibleColumn(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())

	e.SetSearchTerm("widget")
	require.Equal(t, 1, e.Len())
	assert.Equal(t, "A1", e.VisibleRecords()[0].Get("codigo").String())

	e.SetSearchTerm("WIDGET")
	assert.Equal(t, 1, e.Len())

	e.SetSearchTerm("2000")
	require.Equal(t, 1, e.Len())
	assert.Equal(t, "A2", e.VisibleRecords()[0].Get("codigo").String())

	e.SetSearchTerm("")
	assert.Equal(t, 2, e.Len())
}

func TestEngineSearchIgnoresHiddenColumns(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())
	e.SetVisibleColumns([]string{"codigo", "precio"})

	e.SetSearchTerm("widget")
	assert.Equal(t, 0, e.Len())

	e.ToggleColumn("nombre")
	assert.Equal(t, []string{"codigo", "nombre", "precio"}, e.VisibleColumns())
	assert.Equal(t, 1, e.Len())
}

func TestEngineRangeFilter(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())

	e.SetFilter("stock", RangeFilter{Min: Bound(5)})
	require.Equal(t, 1, e.Len())
	assert.Equal(t, "A2", e.VisibleRecords()[0].Get("codigo").String())
	assert.Equal(t, 1, e.FilterCount())

	e.SetFilter("stock", RangeFilter{})
	assert.Equal(t, 0, e.FilterCount())
	assert.Equal(t, 2, e.Len())
}

func TestEngineRangeFilterPassesNonNumericCells(t *testing.T) {
	e := NewEngine()
	e.SetRecords(mixedCollection())

	e.SetFilter("qty", RangeFilter{Min: Bound(10), Max: Bound(50)})

	var names []string
	for _, rec := range e.VisibleRecords() {
		names = append(names, rec.Get("name").String())
	}
	assert.Equal(t, []string{"pear", "", "Banana"}, names)
}

func TestEngineFiltersAndSearchCombine(t *testing.T) {
	e := NewEngine()
	e.SetRecords(mixedCollection())

	e.SetFilters(map[string]Filter{
		"qty":  RangeFilter{Max: Bound(20)},
		"name": TextFilter{Text: "a"},
	})
	var names []string
	for _, rec := range e.VisibleRecords() {
		names = append(names, rec.Get("name").String())
	}
	assert.Equal(t, []string{"pear", "apple", "Banana"}, names)

	e.SetSearchTerm("pear")
	require.Equal(t, 1, e.Len())
	assert.Equal(t, "pear", e.VisibleRecords()[0].Get("name").String())
}

func TestEngineRecomputeIsIdempotent(t *testing.T) {
	e := NewEngine()
	e.SetRecords(mixedCollection())
	e.SetFilter("qty", RangeFilter{Min: Bound(9)})
	e.SetSortDirection("name", SortDescending)
	first := append([]sheet.Record(nil), e.VisibleRecords()...)

	e.SetSortDirection("name", SortDescending)
	e.SetFilter("qty", RangeFilter{Min: Bound(9)})
	assert.Equal(t, first, e.VisibleRecords())
}

func TestEngineVisibleIsSubsetOfCollection(t *testing.T) {
	c := mixedCollection()
	e := NewEngine()
	e.SetRecords(c)
	e.SetSearchTerm("a")

	for _, rec := range e.VisibleRecords() {
		assert.Contains(t, c.Records, rec)
	}
	assert.LessOrEqual(t, e.Len(), e.Total())
}

func TestEngineSortOrdering(t *testing.T) {
	e := NewEngine()
	e.SetRecords(mixedCollection())

	e.SetSort("qty")
	recs := e.VisibleRecords()
	for i := 1; i < len(recs); i++ {
		assert.LessOrEqual(t, CompareCells(recs[i-1].Get("qty"), recs[i].Get("qty")), 0)
	}
	assert.True(t, recs[0].Get("qty").IsBlank())
	assert.Equal(t, "n/a", recs[len(recs)-1].Get("qty").String())

	e.SetSort("qty")
	recs = e.VisibleRecords()
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, CompareCells(recs[i-1].Get("qty"), recs[i].Get("qty")), 0)
	}
}

func TestEngineSortIsStable(t *testing.T) {
	e := NewEngine()
	e.SetRecords(mixedCollection())
	e.SetSort("qty")

	var nines []string
	for _, rec := range e.VisibleRecords() {
		if v, ok := rec.Get("qty").Float(); ok && v == 9 {
			nines = append(nines, rec.Get("name").String())
		}
	}
	assert.Equal(t, []string{"apple", "kiwi"}, nines)
}

func TestEngineSortToggle(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())

	assert.False(t, e.Query().Sort.IsSorted())

	e.SetSort("precio")
	assert.Equal(t, SortState{Key: "precio", Direction: SortAscending}, e.Query().Sort)

	e.SetSort("precio")
	assert.Equal(t, SortDescending, e.Query().Sort.Direction)
	assert.Equal(t, "A2", e.VisibleRecords()[0].Get("codigo").String())

	e.SetSort("precio")
	assert.Equal(t, SortAscending, e.Query().Sort.Direction)

	e.SetSort("stock")
	assert.Equal(t, SortState{Key: "stock", Direction: SortAscending}, e.Query().Sort)

	e.SetSortDirection("", SortNone)
	assert.False(t, e.Query().Sort.IsSorted())
}

func TestEngineSetRecordsResetsQuery(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())
	e.SetFilter("stock", RangeFilter{Min: Bound(5)})
	e.SetSort("precio")
	e.SetVisibleColumns([]string{"codigo"})
	e.SetSearchTerm("a")

	e.SetRecords(mixedCollection())

	q := e.Query()
	assert.Empty(t, q.Filters)
	assert.False(t, q.Sort.IsSorted())
	assert.Equal(t, []string{"name", "qty"}, q.Visible)
	assert.Equal(t, "a", q.Search)

	e.Reset()
	assert.Equal(t, 0, e.Total())
	assert.Equal(t, "", e.Query().Search)
	assert.Empty(t, e.Headers())
}

func TestEngineGenerationAdvances(t *testing.T) {
	e := NewEngine()
	g := e.Generation()
	e.SetRecords(acmeCollection())
	e.SetSearchTerm("x")
	assert.Equal(t, g+2, e.Generation())
}

func TestEngineSlice(t *testing.T) {
	e := NewEngine()
	e.SetRecords(mixedCollection())

	assert.Len(t, e.Slice(0, 3), 3)
	assert.Len(t, e.Slice(4, 100), 2)
	assert.Nil(t, e.Slice(10, 20))
	assert.Len(t, e.Slice(-5, 1), 1)
}

func TestEngineEmpty(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, 0, e.Len())
	assert.Empty(t, e.Headers())
	e.SetSearchTerm("anything")
	e.SetSort("missing")
	assert.Equal(t, 0, e.Len())
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Filter
	}{
		{"text", `"wid"`, TextFilter{Text: "wid"}},
		{"range open max", `{"min":5,"max":null}`, RangeFilter{Min: Bound(5)}},
		{"range both", `{"min":1,"max":2.5}`, RangeFilter{Min: Bound(1), Max: Bound(2.5)}},
		{"select array", `["a","b"]`, SelectFilter{Values: []string{"a", "b"}}},
		{"select object", `{"values":["x",3]}`, SelectFilter{Values: []string{"x", "3"}}},
		{"text object", `{"text":"abc"}`, TextFilter{Text: "abc"}},
		{"number as text", `42`, TextFilter{Text: "42"}},
		{"null", `null`, TextFilter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilterRejectsMalformed(t *testing.T) {
	for _, raw := range []string{`{`, `{"min":"low"}`, `{"other":1}`, `{"values":"a"}`} {
		_, err := ParseFilter(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidFilter, raw)
	}
}

func TestInactiveFiltersAreDropped(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())
	e.SetFilters(map[string]Filter{
		"nombre": TextFilter{},
		"stock":  RangeFilter{},
		"codigo": SelectFilter{},
	})
	assert.Equal(t, 0, e.FilterCount())
	assert.Equal(t, 2, e.Len())
}

func TestCompareCells(t *testing.T) {
	assert.Equal(t, -1, CompareCells(sheet.Text("9"), sheet.Number(10)))
	assert.Equal(t, 1, CompareCells(sheet.Text("abc"), sheet.Number(10)))
	assert.Equal(t, -1, CompareCells(sheet.Missing, sheet.Number(-100)))
	assert.Equal(t, 0, CompareCells(sheet.Empty(), sheet.Missing))
	assert.Equal(t, -1, CompareCells(sheet.Text("Apple"), sheet.Text("apple")))
}

func TestProfile(t *testing.T) {
	e := NewEngine()
	e.SetRecords(acmeCollection())

	p, err := e.Profile("stock")
	require.NoError(t, err)
	assert.True(t, p.Numeric)
	assert.Equal(t, 3.0, *p.Min)
	assert.Equal(t, 10.0, *p.Max)

	p, err = e.Profile("nombre")
	require.NoError(t, err)
	assert.False(t, p.Numeric)
	assert.Equal(t, []string{"Gadget", "Widget"}, p.Options)

	_, err = e.Profile("nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestProfileRecordsCountsBlanks(t *testing.T) {
	p := ProfileRecords("qty", mixedCollection().Records)
	assert.False(t, p.Numeric)
	assert.Equal(t, 1, p.Blank)
	assert.Equal(t, 6, p.Count)
	assert.Contains(t, p.Options, "n/a")
}

func TestEngineSelectFilter(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		search  string
		filters map[string]Filter
		want    []string
	}{
		{name: "both values", values: []string{"Widget", "Gadget"}, want: []string{"A1", "A2"}},
		{name: "one value", values: []string{"Widget"}, want: []string{"A1"}},
		{name: "empty set", values: nil, want: []string{"A1", "A2"}},
		{name: "and with search", values: []string{"Widget"}, search: "gadget", want: []string{}},
		{name: "search inside set", values: []string{"Widget", "Gadget"}, search: "gadget", want: []string{"A2"}},
		{
			name:    "and with range",
			values:  []string{"Widget", "Gadget"},
			filters: map[string]Filter{"stock": RangeFilter{Min: Bound(5)}},
			want:    []string{"A2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			e.SetRecords(acmeCollection())
			filters := map[string]Filter{"nombre": SelectFilter{Values: tt.values}}
			for k, f := range tt.filters {
				filters[k] = f
			}
			e.SetFilters(filters)
			e.SetSearchTerm(tt.search)

			got := []string{}
			for _, rec := range e.VisibleRecords() {
				got = append(got, rec.Get("codigo").String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
