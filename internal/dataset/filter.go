package dataset

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"sheetview/domain/sheet"
)

// Filter restricts the records of one column
type Filter interface {
	// Match reports whether a cell passes the filter
	Match(c sheet.Cell) bool
	// Active reports whether the filter restricts anything at all
	Active() bool
	// Description returns a human-readable form
	Description() string
}

// TextFilter keeps cells containing Text, ignoring case
type TextFilter struct {
	Text string `json:"text"`
}

func (f TextFilter) Match(c sheet.Cell) bool {
	if f.Text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.String()), strings.ToLower(f.Text))
}

func (f TextFilter) Active() bool { return f.Text != "" }

func (f TextFilter) Description() string {
	return fmt.Sprintf("contains %q", f.Text)
}

// RangeFilter keeps numeric cells within [Min, Max]. A nil bound is open.
// Cells that are not numeric always pass: a numeric range has nothing to say about them.
type RangeFilter struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

func (f RangeFilter) Match(c sheet.Cell) bool {
	v, ok := c.Float()
	if !ok {
		return true
	}
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

func (f RangeFilter) Active() bool { return f.Min != nil || f.Max != nil }

func (f RangeFilter) Description() string {
	lo, hi := "-inf", "+inf"
	if f.Min != nil {
		lo = strconv.FormatFloat(*f.Min, 'f', -1, 64)
	}
	if f.Max != nil {
		hi = strconv.FormatFloat(*f.Max, 'f', -1, 64)
	}
	return fmt.Sprintf("between %s and %s", lo, hi)
}

// SelectFilter keeps cells whose text equals one of Values. No values means no restriction.
type SelectFilter struct {
	Values []string `json:"values"`
}

func (f SelectFilter) Match(c sheet.Cell) bool {
	if len(f.Values) == 0 {
		return true
	}
	return slices.Contains(f.Values, c.String())
}

func (f SelectFilter) Active() bool { return len(f.Values) > 0 }

func (f SelectFilter) Description() string {
	return fmt.Sprintf("one of [%s]", strings.Join(f.Values, ", "))
}

// Bound returns a RangeFilter bound
func Bound(v float64) *float64 { return &v }

// ParseFilterExpr reads the short text form of a filter used by the terminal and the command
// line: "min..max" with either side optional is a numeric range, anything else is a text filter.
// An empty expression gives an inactive filter.
func ParseFilterExpr(s string) Filter {
	s = strings.TrimSpace(s)
	lo, hi, ok := strings.Cut(s, "..")
	if !ok {
		return TextFilter{Text: s}
	}
	var f RangeFilter
	if lo = strings.TrimSpace(lo); lo != "" {
		v, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return TextFilter{Text: s}
		}
		f.Min = Bound(v)
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		v, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return TextFilter{Text: s}
		}
		f.Max = Bound(v)
	}
	return f
}

// ParseFilter decodes the loosely typed wire form of a column filter: an object carrying
// "min" or "max" is a range, an array is a multi-select, anything else is matched as text.
func ParseFilter(raw json.RawMessage) (Filter, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	switch t := v.(type) {
	case nil:
		return TextFilter{}, nil
	case map[string]interface{}:
		_, hasMin := t["min"]
		_, hasMax := t["max"]
		if hasMin || hasMax {
			var rf RangeFilter
			if err := json.Unmarshal(raw, &rf); err != nil {
				return nil, fmt.Errorf("%w: range bounds must be numbers or null", ErrInvalidFilter)
			}
			return rf, nil
		}
		if values, ok := t["values"]; ok {
			return parseSelect(values)
		}
		if text, ok := t["text"]; ok {
			return TextFilter{Text: fmt.Sprint(text)}, nil
		}
		return nil, fmt.Errorf("%w: unrecognized filter object", ErrInvalidFilter)
	case []interface{}:
		return parseSelect(t)
	case string:
		return TextFilter{Text: t}, nil
	case float64:
		return TextFilter{Text: strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case bool:
		return TextFilter{Text: strconv.FormatBool(t)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported filter value", ErrInvalidFilter)
	}
}

// MarshalFilter encodes a filter back to its wire form
func MarshalFilter(f Filter) interface{} {
	switch t := f.(type) {
	case RangeFilter:
		return t
	case SelectFilter:
		return t.Values
	case TextFilter:
		return t.Text
	default:
		return f.Description()
	}
}

func parseSelect(v interface{}) (Filter, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: select values must be an array", ErrInvalidFilter)
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			values = append(values, s)
		case float64:
			values = append(values, strconv.FormatFloat(s, 'f', -1, 64))
		case nil:
			values = append(values, "")
		default:
			values = append(values, fmt.Sprint(s))
		}
	}
	return SelectFilter{Values: values}, nil
}
