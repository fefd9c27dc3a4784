package dataset

import (
	"errors"
	"slices"
	"strings"

	"sheetview/domain/sheet"
)

var (
	// ErrInvalidFilter is returned when a filter expression cannot be decoded
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrUnknownField is returned when a field name is not among the headers
	ErrUnknownField = errors.New("unknown field")
)

// Query is a snapshot of the engine's query state
type Query struct {
	Search  string
	Filters map[string]Filter
	Sort    SortState
	Visible []string
}

// Engine holds one record collection and the query applied to it.
//
// Every setter recomputes the visible sequence from the full collection before returning.
// The engine is not safe for concurrent use; its owner serializes access.
type Engine struct {
	collection *sheet.Collection

	search  string
	filters map[string]Filter
	sort    SortState
	columns []string

	visible    []sheet.Record
	generation uint64
}

// NewEngine creates an engine over an empty collection
func NewEngine() *Engine {
	e := &Engine{filters: make(map[string]Filter)}
	e.SetRecords(nil)
	return e
}

// SetRecords replaces the collection wholesale. Column filters and sort are cleared and every
// column becomes visible; the search term is kept.
func (e *Engine) SetRecords(c *sheet.Collection) {
	if c == nil {
		c = &sheet.Collection{}
	}
	e.collection = c
	e.filters = make(map[string]Filter)
	e.sort = SortState{}
	e.columns = c.Headers()
	e.recompute()
}

// Reset drops the collection and the whole query state
func (e *Engine) Reset() {
	e.search = ""
	e.SetRecords(nil)
}

// SetFilters replaces the column-filter mapping. Inactive filters are dropped.
func (e *Engine) SetFilters(filters map[string]Filter) {
	e.filters = make(map[string]Filter, len(filters))
	for field, f := range filters {
		if f != nil && f.Active() {
			e.filters[field] = f
		}
	}
	e.recompute()
}

// SetFilter sets or, when f is nil or inactive, removes the filter on one column
func (e *Engine) SetFilter(field string, f Filter) {
	if f == nil || !f.Active() {
		delete(e.filters, field)
	} else {
		e.filters[field] = f
	}
	e.recompute()
}

// ClearFilter removes the filter on one column
func (e *Engine) ClearFilter(field string) {
	e.SetFilter(field, nil)
}

// ClearFilters removes every column filter
func (e *Engine) ClearFilters() {
	e.SetFilters(nil)
}

// SetSearchTerm sets the global search term
func (e *Engine) SetSearchTerm(term string) {
	e.search = term
	e.recompute()
}

// SetSort selects key as the sort column: a new key sorts ascending, the current key flips
// between ascending and descending.
func (e *Engine) SetSort(key string) {
	e.sort = e.sort.next(key)
	e.recompute()
}

// SetSortDirection sets the sort explicitly; SortNone or an empty key clears it
func (e *Engine) SetSortDirection(key string, dir SortDirection) {
	if key == "" || dir == SortNone {
		e.sort = SortState{}
	} else {
		e.sort = SortState{Key: key, Direction: dir}
	}
	e.recompute()
}

// SetVisibleColumns restricts the columns shown and searched. Header order is kept and
// unknown names are ignored.
func (e *Engine) SetVisibleColumns(columns []string) {
	want := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		want[c] = struct{}{}
	}
	visible := make([]string, 0, len(columns))
	for _, h := range e.Headers() {
		if _, ok := want[h]; ok {
			visible = append(visible, h)
		}
	}
	e.columns = visible
	e.recompute()
}

// ToggleColumn shows a hidden column or hides a visible one
func (e *Engine) ToggleColumn(column string) {
	if !e.HasField(column) {
		return
	}
	next := make([]string, 0, len(e.columns)+1)
	found := false
	for _, c := range e.columns {
		if c == column {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		next = append(next, column)
	}
	e.SetVisibleColumns(next)
}

// VisibleRecords returns the filtered and sorted records. The slice is shared; do not modify it.
func (e *Engine) VisibleRecords() []sheet.Record {
	return e.visible
}

// Slice returns visible records in [start, end), clamped to the sequence
func (e *Engine) Slice(start, end int) []sheet.Record {
	if start < 0 {
		start = 0
	}
	if end > len(e.visible) {
		end = len(e.visible)
	}
	if start >= end {
		return nil
	}
	return e.visible[start:end]
}

// Headers returns the field names of the collection
func (e *Engine) Headers() []string {
	return e.collection.Headers()
}

// HasField reports whether field is one of the headers
func (e *Engine) HasField(field string) bool {
	return slices.Contains(e.collection.Fields, field)
}

// VisibleColumns returns the shown columns in header order
func (e *Engine) VisibleColumns() []string {
	return append([]string(nil), e.columns...)
}

// Collection returns the loaded collection
func (e *Engine) Collection() *sheet.Collection {
	return e.collection
}

// Query returns a copy of the current query state
func (e *Engine) Query() Query {
	filters := make(map[string]Filter, len(e.filters))
	for k, v := range e.filters {
		filters[k] = v
	}
	return Query{
		Search:  e.search,
		Filters: filters,
		Sort:    e.sort,
		Visible: e.VisibleColumns(),
	}
}

// FilterCount returns the number of active column filters
func (e *Engine) FilterCount() int {
	return len(e.filters)
}

// Len returns the length of the visible sequence
func (e *Engine) Len() int {
	return len(e.visible)
}

// Total returns the size of the whole collection
func (e *Engine) Total() int {
	return e.collection.Len()
}

// Generation increases every time the visible sequence is recomputed
func (e *Engine) Generation() uint64 {
	return e.generation
}

func (e *Engine) recompute() {
	records := e.collection.Records
	out := make([]sheet.Record, 0, len(records))
	term := strings.ToLower(e.search)
	for _, rec := range records {
		if e.matchFilters(rec) && e.matchSearch(rec, term) {
			out = append(out, rec)
		}
	}

	if e.sort.IsSorted() {
		key := e.sort.Key
		desc := e.sort.Direction == SortDescending
		slices.SortStableFunc(out, func(a, b sheet.Record) int {
			c := CompareCells(a.Get(key), b.Get(key))
			if desc {
				return -c
			}
			return c
		})
	}

	e.visible = out
	e.generation++
}

func (e *Engine) matchFilters(rec sheet.Record) bool {
	for field, f := range e.filters {
		if !f.Match(rec.Get(field)) {
			return false
		}
	}
	return true
}

func (e *Engine) matchSearch(rec sheet.Record, term string) bool {
	if term == "" {
		return true
	}
	for _, col := range e.columns {
		if strings.Contains(strings.ToLower(rec.Get(col).String()), term) {
			return true
		}
	}
	return false
}
