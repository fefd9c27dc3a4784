package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := New(Options{})
	assert.Equal(t, Options{EstimateSize: 35, Overscan: 0}, v.Options())
	assert.Equal(t, 35, DefaultOptions().EstimateSize)
	assert.Equal(t, 20, DefaultOptions().Overscan)
}

func TestRangeAtTop(t *testing.T) {
	v := New(DefaultOptions())
	v.SetCount(1000)
	v.SetViewport(0, 700)

	start, end := v.Range()
	assert.Equal(t, 0, start)
	assert.Equal(t, 40, end)
	assert.Equal(t, 35000, v.TotalSize())
}

func TestRangeInTheMiddle(t *testing.T) {
	v := New(DefaultOptions())
	v.SetCount(1000)
	v.SetViewport(3500, 700)

	start, end := v.Range()
	assert.Equal(t, 80, start)
	assert.Equal(t, 140, end)

	items := v.Items()
	require.Len(t, items, 60)
	assert.Equal(t, Item{Index: 80, Start: 2800, Size: 35}, items[0])
	for i := 1; i < len(items); i++ {
		assert.Equal(t, items[i-1].End(), items[i].Start)
	}
}

func TestRangeCoversViewportWithoutOverscan(t *testing.T) {
	v := New(Options{EstimateSize: 10})
	v.SetCount(100)

	for _, offset := range []int{0, 5, 95, 333, 900} {
		v.SetViewport(offset, 50)
		start, end := v.Range()
		items := v.Items()
		require.NotEmpty(t, items)
		assert.LessOrEqual(t, items[0].Start, offset)
		assert.GreaterOrEqual(t, items[len(items)-1].End(), offset+50)
		assert.LessOrEqual(t, end-start, 6)
	}
}

func TestMeasureShiftsFollowingRows(t *testing.T) {
	v := New(Options{EstimateSize: 10, Overscan: 0})
	v.SetCount(5)
	v.Measure(1, 40)

	assert.Equal(t, 80, v.TotalSize())
	it, ok := v.ItemAt(2)
	require.True(t, ok)
	assert.Equal(t, Item{Index: 2, Start: 50, Size: 10}, it)

	v.SetViewport(15, 10)
	start, end := v.Range()
	assert.Equal(t, 1, start)
	assert.Equal(t, 2, end)

	v.Measure(99, 40)
	v.Measure(2, 0)
	assert.Equal(t, 80, v.TotalSize())

	v.ResetMeasurements()
	assert.Equal(t, 50, v.TotalSize())
}

func TestShrinkClampsOffset(t *testing.T) {
	v := New(DefaultOptions())
	v.SetCount(1000)
	v.SetViewport(3500, 700)

	v.SetCount(10)
	offset, _ := v.Viewport()
	assert.Equal(t, 0, offset)
	start, end := v.Range()
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, end)

	v.SetCount(100)
	v.SetViewport(100000, 700)
	offset, _ = v.Viewport()
	assert.Equal(t, 3500-700, offset)
	_, end = v.Range()
	assert.Equal(t, 100, end)
}

func TestShrinkForgetsMeasurements(t *testing.T) {
	v := New(Options{EstimateSize: 10})
	v.SetCount(10)
	v.Measure(8, 100)
	v.SetCount(5)
	v.SetCount(10)
	assert.Equal(t, 100, v.TotalSize())
}

func TestEmpty(t *testing.T) {
	v := New(DefaultOptions())
	assert.True(t, v.Empty())
	start, end := v.Range()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
	assert.Nil(t, v.Items())
	assert.Equal(t, 0, v.TotalSize())

	v.ScrollToIndex(3)
	v.SetViewport(500, 700)
	offset, _ := v.Viewport()
	assert.Equal(t, 0, offset)
}

func TestScrollToIndex(t *testing.T) {
	v := New(Options{EstimateSize: 10, Overscan: 2})
	v.SetCount(100)
	v.SetViewport(0, 50)

	v.ScrollToIndex(30)
	offset, _ := v.Viewport()
	assert.Equal(t, 300, offset)
	start, end := v.Range()
	assert.Equal(t, 28, start)
	assert.Equal(t, 37, end)

	v.ScrollToIndex(99)
	offset, _ = v.Viewport()
	assert.Equal(t, 950, offset)

	v.ScrollBy(-1000)
	offset, _ = v.Viewport()
	assert.Equal(t, 0, offset)
}

func TestZeroHeightViewportRendersOneRow(t *testing.T) {
	v := New(Options{EstimateSize: 10})
	v.SetCount(10)
	v.SetViewport(25, 0)
	start, end := v.Range()
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, end)
}
