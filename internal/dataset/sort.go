package dataset

import (
	"fmt"
	"strings"

	"sheetview/domain/sheet"
)

// SortDirection specifies the direction of sorting
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAscending
	SortDescending
)

// String returns the wire name of a direction
func (d SortDirection) String() string {
	switch d {
	case SortNone:
		return "none"
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// ParseSortDirection accepts "asc", "desc", "none" and their long forms
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	default:
		return SortNone, fmt.Errorf("invalid sort direction %q", s)
	}
}

// SortState is the single active sort key
type SortState struct {
	Key       string
	Direction SortDirection
}

// IsSorted returns true if this state represents an active sort
func (s SortState) IsSorted() bool {
	return s.Key != "" && s.Direction != SortNone
}

// next returns the state after the user selects key: a new key starts ascending,
// the same key flips direction.
func (s SortState) next(key string) SortState {
	if s.Key == key && s.Direction == SortAscending {
		return SortState{Key: key, Direction: SortDescending}
	}
	return SortState{Key: key, Direction: SortAscending}
}

// rank orders kinds that cannot be compared directly: blanks, then numbers, then text
func rank(c sheet.Cell) (int, float64) {
	if c.IsBlank() {
		return 0, 0
	}
	if f, ok := c.Float(); ok {
		return 1, f
	}
	return 2, 0
}

// CompareCells is a total order over cells. Numbers (native or numeric text) compare by
// value, other text compares as strings, and mixed kinds fall back to blank < number < text.
func CompareCells(a, b sheet.Cell) int {
	ra, fa := rank(a)
	rb, fb := rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.String(), b.String())
	}
	return 0
}
