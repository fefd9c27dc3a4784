package dataset

import (
	"sort"

	"github.com/montanaflynn/stats"

	"sheetview/domain/sheet"
)

// MaxProfileOptions caps the distinct values offered to a select filter
const MaxProfileOptions = 200

// Profile summarizes one column of the whole collection so a filter control can be built for it
type Profile struct {
	Field     string   `json:"field"`
	Numeric   bool     `json:"numeric"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Mean      *float64 `json:"mean,omitempty"`
	Count     int      `json:"count"`
	Blank     int      `json:"blank"`
	Options   []string `json:"options,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Profile profiles field over every record of the collection, ignoring the current query.
// A column is numeric when every non-blank cell parses as a number.
func (e *Engine) Profile(field string) (Profile, error) {
	if !e.HasField(field) {
		return Profile{}, ErrUnknownField
	}
	return ProfileRecords(field, e.collection.Records), nil
}

// ProfileRecords profiles one field over records
func ProfileRecords(field string, records []sheet.Record) Profile {
	p := Profile{Field: field, Count: len(records)}

	var numbers stats.Float64Data
	distinct := make(map[string]struct{})
	textual := false
	for _, rec := range records {
		c := rec.Get(field)
		if c.IsBlank() {
			p.Blank++
			continue
		}
		if f, ok := c.Float(); ok {
			numbers = append(numbers, f)
		} else {
			textual = true
		}
		distinct[c.String()] = struct{}{}
	}

	p.Numeric = !textual && len(numbers) > 0
	if p.Numeric {
		if v, err := numbers.Min(); err == nil {
			p.Min = &v
		}
		if v, err := numbers.Max(); err == nil {
			p.Max = &v
		}
		if v, err := numbers.Mean(); err == nil {
			p.Mean = &v
		}
		return p
	}

	options := make([]string, 0, len(distinct))
	for v := range distinct {
		options = append(options, v)
	}
	sort.Strings(options)
	if len(options) > MaxProfileOptions {
		options = options[:MaxProfileOptions]
		p.Truncated = true
	}
	p.Options = options
	return p
}
