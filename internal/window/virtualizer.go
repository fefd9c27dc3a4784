// Package window maps a scroll position over a long list of rows to the small index range that
// actually needs rendering.
package window

import "sort"

const (
	DefaultEstimateSize = 35
	DefaultOverscan     = 20
)

// Options configures a Virtualizer
type Options struct {
	// EstimateSize is the height assumed for rows that were never measured
	EstimateSize int
	// Overscan is the number of extra rows rendered on each side of the viewport
	Overscan int
}

// DefaultOptions returns the row height and overscan used by the web table
func DefaultOptions() Options {
	return Options{EstimateSize: DefaultEstimateSize, Overscan: DefaultOverscan}
}

// Item is one row to render with its position inside the scroll area
type Item struct {
	Index int `json:"index"`
	Start int `json:"start"`
	Size  int `json:"size"`
}

// End returns the offset just past the item
func (it Item) End() int { return it.Start + it.Size }

// Virtualizer tracks row count, measured heights and the viewport.
// It holds no lock; callers serialize access.
type Virtualizer struct {
	opts     Options
	count    int
	measured map[int]int

	// starts[i] is the offset of row i; starts[count] is the total size
	starts []int
	dirty  bool

	offset int
	height int
}

// New creates a Virtualizer. Non-positive options fall back to the defaults.
func New(opts Options) *Virtualizer {
	if opts.EstimateSize <= 0 {
		opts.EstimateSize = DefaultEstimateSize
	}
	if opts.Overscan < 0 {
		opts.Overscan = 0
	}
	return &Virtualizer{
		opts:     opts,
		measured: make(map[int]int),
		starts:   []int{0},
	}
}

// Options returns the configured options
func (v *Virtualizer) Options() Options { return v.opts }

// SetCount sets the number of rows. Measurements past the new count are forgotten and the
// scroll offset is clamped to the new total size.
func (v *Virtualizer) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	if n == v.count {
		return
	}
	if n < v.count {
		for i := range v.measured {
			if i >= n {
				delete(v.measured, i)
			}
		}
	}
	v.count = n
	v.dirty = true
	v.clamp()
}

// Count returns the number of rows
func (v *Virtualizer) Count() int { return v.count }

// SetViewport sets the scroll offset and the visible height
func (v *Virtualizer) SetViewport(offset, height int) {
	if height < 0 {
		height = 0
	}
	v.offset = offset
	v.height = height
	v.clamp()
}

// Viewport returns the clamped scroll offset and the visible height
func (v *Virtualizer) Viewport() (offset, height int) { return v.offset, v.height }

// Measure records the real height of a rendered row
func (v *Virtualizer) Measure(index, size int) {
	if index < 0 || index >= v.count || size <= 0 {
		return
	}
	if cur, ok := v.measured[index]; ok && cur == size {
		return
	}
	v.measured[index] = size
	v.dirty = true
	v.clamp()
}

// ResetMeasurements forgets every measured height
func (v *Virtualizer) ResetMeasurements() {
	if len(v.measured) == 0 {
		return
	}
	v.measured = make(map[int]int)
	v.dirty = true
	v.clamp()
}

// TotalSize returns the height of the whole scroll area
func (v *Virtualizer) TotalSize() int {
	v.rebuild()
	return v.starts[v.count]
}

// Empty reports whether there is nothing to render
func (v *Virtualizer) Empty() bool { return v.count == 0 }

// Range returns the half-open index range [start, end) to render, overscan included
func (v *Virtualizer) Range() (start, end int) {
	if v.count == 0 {
		return 0, 0
	}
	v.rebuild()

	first := v.indexAt(v.offset)
	var last int
	if v.height > 0 {
		bottom := v.offset + v.height
		last = sort.Search(v.count, func(i int) bool { return v.starts[i] >= bottom })
	} else {
		last = first + 1
	}
	if last <= first {
		last = first + 1
	}

	start = first - v.opts.Overscan
	if start < 0 {
		start = 0
	}
	end = last + v.opts.Overscan
	if end > v.count {
		end = v.count
	}
	return start, end
}

// Items returns the rows of Range with their positions
func (v *Virtualizer) Items() []Item {
	start, end := v.Range()
	if start >= end {
		return nil
	}
	items := make([]Item, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, Item{Index: i, Start: v.starts[i], Size: v.starts[i+1] - v.starts[i]})
	}
	return items
}

// ItemAt returns the position of one row
func (v *Virtualizer) ItemAt(index int) (Item, bool) {
	if index < 0 || index >= v.count {
		return Item{}, false
	}
	v.rebuild()
	return Item{Index: index, Start: v.starts[index], Size: v.starts[index+1] - v.starts[index]}, true
}

// ScrollToIndex moves the viewport so that row index starts at the top, as far as the total
// size allows
func (v *Virtualizer) ScrollToIndex(index int) {
	if v.count == 0 {
		v.offset = 0
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= v.count {
		index = v.count - 1
	}
	v.rebuild()
	v.offset = v.starts[index]
	v.clamp()
}

// ScrollBy moves the viewport by delta
func (v *Virtualizer) ScrollBy(delta int) {
	v.offset += delta
	v.clamp()
}

func (v *Virtualizer) sizeOf(i int) int {
	if s, ok := v.measured[i]; ok {
		return s
	}
	return v.opts.EstimateSize
}

// rebuild recomputes the prefix sums after a count or measurement change
func (v *Virtualizer) rebuild() {
	if !v.dirty && len(v.starts) == v.count+1 {
		return
	}
	if cap(v.starts) >= v.count+1 {
		v.starts = v.starts[:v.count+1]
	} else {
		v.starts = make([]int, v.count+1)
	}
	v.starts[0] = 0
	for i := 0; i < v.count; i++ {
		v.starts[i+1] = v.starts[i] + v.sizeOf(i)
	}
	v.dirty = false
}

// indexAt returns the row containing offset
func (v *Virtualizer) indexAt(offset int) int {
	i := sort.Search(v.count, func(i int) bool { return v.starts[i+1] > offset })
	if i >= v.count {
		i = v.count - 1
	}
	return i
}

func (v *Virtualizer) clamp() {
	v.rebuild()
	maxOffset := v.starts[v.count] - v.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.offset > maxOffset {
		v.offset = maxOffset
	}
	if v.offset < 0 {
		v.offset = 0
	}
}
