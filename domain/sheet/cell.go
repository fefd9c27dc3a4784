package sheet

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellKind identifies which variant a Cell holds
type CellKind int

const (
	// KindMissing marks a position absent from a ragged row. It is not the same as an empty string.
	KindMissing CellKind = iota
	KindEmpty
	KindText
	KindNumber
)

// String returns the kind name
func (k CellKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Cell is a primitive scalar read from a spreadsheet
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Missing is the sentinel for an absent position
var Missing = Cell{Kind: KindMissing}

// Empty returns an empty-string cell
func Empty() Cell {
	return Cell{Kind: KindEmpty}
}

// Text returns a text cell; an empty string yields an empty cell
func Text(s string) Cell {
	if s == "" {
		return Empty()
	}
	return Cell{Kind: KindText, Text: s}
}

// Number returns a numeric cell
func Number(f float64) Cell {
	return Cell{Kind: KindNumber, Number: f}
}

// IsMissing reports whether the cell is the missing sentinel
func (c Cell) IsMissing() bool {
	return c.Kind == KindMissing
}

// IsBlank reports whether the cell renders as nothing (missing, empty, or whitespace-only text)
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case KindMissing, KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String stringifies the cell the way it is shown and searched
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return formatNumber(c.Number)
	default:
		return ""
	}
}

// Float returns the numeric value of the cell. Text is accepted when it parses as a number.
// Missing, empty and non-numeric text report ok == false.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case KindNumber:
		return c.Number, true
	case KindText:
		s := strings.TrimSpace(c.Text)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MarshalJSON encodes the cell as its native JSON scalar
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Kind == KindNumber {
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return json.Marshal(formatNumber(c.Number))
		}
		return json.Marshal(c.Number)
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a native JSON scalar back into a cell
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*c = Missing
	case float64:
		*c = Number(v)
	case string:
		*c = Text(v)
	case bool:
		*c = Text(strings.ToUpper(strconv.FormatBool(v)))
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
