package tabular

import (
	"fmt"
	"strings"

	"sheetview/domain/sheet"
)

// PlaceholderPrefix names header cells that are empty
const PlaceholderPrefix = "__EMPTY"

// FieldNames derives field names from a header row. Empty cells get __EMPTY, __EMPTY_1, ...
func FieldNames(headerRow sheet.Row) []string {
	names := make([]string, len(headerRow))
	placeholders := 0
	for i, c := range headerRow {
		name := strings.TrimSpace(c.String())
		if name == "" {
			name = placeholderName(placeholders)
			placeholders++
		}
		names[i] = name
	}
	return names
}

// IsPlaceholder reports whether a field name was generated for an empty header cell
func IsPlaceholder(name string) bool {
	return name == PlaceholderPrefix || strings.HasPrefix(name, PlaceholderPrefix+"_")
}

func placeholderName(n int) string {
	if n == 0 {
		return PlaceholderPrefix
	}
	return fmt.Sprintf("%s_%d", PlaceholderPrefix, n)
}

// Tabularize turns every row strictly below headerRowIndex into a record keyed by the header's
// field names. Blank rows are kept. Positions a ragged row does not reach become sheet.Missing.
// The header spans the full sheet width, so columns right of its last filled cell get placeholder
// names. A repeated field name keeps the value of its rightmost column.
func Tabularize(m sheet.Matrix, headerRowIndex int) *sheet.Collection {
	if headerRowIndex < 0 || headerRowIndex >= len(m) {
		return &sheet.Collection{Records: []sheet.Record{}}
	}

	names := FieldNames(headerRowAtWidth(m[headerRowIndex], m.Width()))
	fields := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		fields = append(fields, n)
	}

	body := m[headerRowIndex+1:]
	records := make([]sheet.Record, 0, len(body))
	for _, row := range body {
		rec := make(sheet.Record, len(fields))
		for col, name := range names {
			rec[name] = row.At(col)
		}
		records = append(records, rec)
	}

	return &sheet.Collection{Fields: fields, Records: records}
}

// headerRowAtWidth pads the header with empty cells up to width
func headerRowAtWidth(r sheet.Row, width int) sheet.Row {
	if len(r) >= width {
		return r
	}
	padded := make(sheet.Row, width)
	copy(padded, r)
	for i := len(r); i < width; i++ {
		padded[i] = sheet.Empty()
	}
	return padded
}
