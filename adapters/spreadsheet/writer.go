package spreadsheet

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetview/domain/sheet"
	apperrors "sheetview/internal/errors"
)

// ExportFormats lists the formats Export writes
var ExportFormats = []Format{FormatCSV, FormatJSON, FormatXLSX}

// FormatJSON is an export-only format: an array of objects in column order
const FormatJSON Format = "json"

// ParseExportFormat accepts a format name case-insensitively
func ParseExportFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ExportFormats {
		if f == known {
			return f, nil
		}
	}
	return "", apperrors.InvalidInput(fmt.Sprintf("unsupported export format %q", s))
}

// Export writes records with the given columns, in order
func Export(w io.Writer, format Format, fields []string, records []sheet.Record) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, fields, records)
	case FormatJSON:
		return exportJSON(w, fields, records)
	case FormatXLSX:
		return exportXLSX(w, fields, records)
	}
	return apperrors.InvalidInput(fmt.Sprintf("unsupported export format %q", format))
}

func exportCSV(w io.Writer, fields []string, records []sheet.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return err
	}
	row := make([]string, len(fields))
	for _, rec := range records {
		for i, f := range fields {
			row[i] = rec.Get(f).String()
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// exportJSON streams one object per record. Keys follow the column order, which encoding/json
// would otherwise sort.
func exportJSON(w io.Writer, fields []string, records []sheet.Record) error {
	bw := bufio.NewWriter(w)
	keys := make([][]byte, len(fields))
	for i, f := range fields {
		k, err := json.Marshal(f)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw.WriteString("[")
	for r, rec := range records {
		if r > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for i, f := range fields {
			if i > 0 {
				bw.WriteString(",")
			}
			v, err := json.Marshal(rec.Get(f))
			if err != nil {
				return err
			}
			bw.Write(keys[i])
			bw.WriteString(":")
			bw.Write(v)
		}
		bw.WriteString("}")
	}
	if len(records) > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

// exportXLSX writes a single-sheet workbook through the streaming writer, keeping numbers numeric
func exportXLSX(w io.Writer, fields []string, records []sheet.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const name = "Sheet1"
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sheet writer")
	}

	header := make([]interface{}, len(fields))
	for i, field := range fields {
		header[i] = field
	}
	if err := sw.SetRow("A1", header); err != nil {
		return apperrors.Wrap(err, "failed to write header row")
	}

	for r, rec := range records {
		values := make([]interface{}, len(fields))
		for i, field := range fields {
			c := rec.Get(field)
			switch c.Kind {
			case sheet.KindNumber:
				values[i] = c.Number
			case sheet.KindText:
				values[i] = c.Text
			default:
				values[i] = nil
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(ref, values); err != nil {
			return apperrors.Wrapf(err, "failed to write row %d", r+2)
		}
	}
	if err := sw.Flush(); err != nil {
		return apperrors.Wrap(err, "failed to flush sheet")
	}
	_, err = f.WriteTo(w)
	return err
}
