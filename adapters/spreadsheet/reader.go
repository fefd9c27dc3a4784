package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"sheetview/domain/sheet"
	apperrors "sheetview/internal/errors"
)

// Format is a supported spreadsheet encoding
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// SupportedExtensions lists the file extensions accepted on upload
var SupportedExtensions = []string{".xlsx", ".xls", ".csv"}

// DetectFormat sniffs the container format. The file name only decides for CSV, which has no
// signature of its own.
func DetectFormat(data []byte, name string) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS, nil
	case strings.EqualFold(filepath.Ext(name), ".csv"):
		return FormatCSV, nil
	}
	return "", apperrors.DecodeFailed(fmt.Sprintf("unrecognized spreadsheet format for %q", name), nil)
}

// IsSupportedExtension reports whether name ends in one of SupportedExtensions
func IsSupportedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Reader decodes the first worksheet of a workbook into a sheet.Matrix
type Reader struct {
	// Charset is passed to the legacy .xls decoder
	Charset string
}

// NewReader creates a reader with UTF-8 legacy charset
func NewReader() *Reader {
	return &Reader{Charset: "utf-8"}
}

// ReadFile reads a spreadsheet from disk
func (r *Reader) ReadFile(path string) (sheet.Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.DecodeFailed(fmt.Sprintf("failed to open %s", path), err)
	}
	return r.ReadMatrix(data, filepath.Base(path))
}

// ReadMatrix decodes data. Empty input gives an empty matrix. Decoder panics on corrupt input
// are returned as DECODE_FAILED errors.
func (r *Reader) ReadMatrix(data []byte, name string) (m sheet.Matrix, err error) {
	if len(data) == 0 {
		log.Printf("[Reader] %s is empty", name)
		return sheet.Matrix{}, nil
	}

	format, err := DetectFormat(data, name)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			m = nil
			err = apperrors.DecodeFailed(fmt.Sprintf("corrupt %s file %q", format, name), fmt.Errorf("%v", p))
		}
	}()

	start := time.Now()
	switch format {
	case FormatXLSX:
		m, err = r.readXLSX(data)
	case FormatXLS:
		m, err = r.readXLS(data)
	case FormatCSV:
		m, err = r.readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[Reader] %s file %s read in %.2fms (%d rows, %d columns)",
		strings.ToUpper(string(format)), name, float64(time.Since(start).Nanoseconds())/1e6, len(m), m.Width())
	return m, nil
}

// readXLSX reads the first sheet. Values are read raw and typed from the cell type so numbers
// keep their stored precision rather than their display format.
func (r *Reader) readXLSX(data []byte) (sheet.Matrix, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.DecodeFailed("failed to open Excel workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return sheet.Matrix{}, nil
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.DecodeFailed(fmt.Sprintf("failed to read sheet %s", name), err)
	}

	m := make(sheet.Matrix, len(rows))
	for i, values := range rows {
		row := make(sheet.Row, len(values))
		for j, v := range values {
			if v == "" {
				row[j] = sheet.Empty()
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				row[j] = sheet.Text(v)
				continue
			}
			ct, err := f.GetCellType(name, ref)
			if err != nil {
				ct = excelize.CellTypeUnset
			}
			row[j] = typedXLSXCell(v, ct)
		}
		m[i] = row
	}
	return m, nil
}

func typedXLSXCell(v string, ct excelize.CellType) sheet.Cell {
	switch ct {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return sheet.Number(f)
		}
	case excelize.CellTypeBool:
		if v == "1" || strings.EqualFold(v, "true") {
			return sheet.Text("TRUE")
		}
		return sheet.Text("FALSE")
	}
	return sheet.Text(v)
}

// readXLS reads the first sheet of a BIFF workbook. The decoder only exposes formatted strings.
func (r *Reader) readXLS(data []byte) (sheet.Matrix, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), r.Charset)
	if err != nil {
		return nil, apperrors.DecodeFailed("failed to open legacy Excel workbook", err)
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return sheet.Matrix{}, nil
	}

	m := make(sheet.Matrix, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		xr := ws.Row(i)
		if xr == nil {
			m = append(m, sheet.Row{})
			continue
		}
		row := make(sheet.Row, 0, xr.LastCol())
		for c := 0; c < xr.FirstCol(); c++ {
			row = append(row, sheet.Empty())
		}
		for c := xr.FirstCol(); c < xr.LastCol(); c++ {
			row = append(row, stringCell(xr.Col(c)))
		}
		m = append(m, trimTrailing(row))
	}
	return trimTrailingRows(m), nil
}

func (r *Reader) readCSV(data []byte) (sheet.Matrix, error) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var m sheet.Matrix
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.DecodeFailed("failed to read CSV file", err)
		}
		row := make(sheet.Row, len(record))
		for j, v := range record {
			row[j] = stringCell(v)
		}
		m = append(m, trimTrailing(row))
	}
	if m == nil {
		m = sheet.Matrix{}
	}
	return m, nil
}

// stringCell types a formatted value. Only values that print back unchanged become numbers, so
// codes like "007" stay text.
func stringCell(v string) sheet.Cell {
	if v == "" {
		return sheet.Empty()
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == v {
		return sheet.Number(f)
	}
	return sheet.Text(v)
}

func trimTrailing(row sheet.Row) sheet.Row {
	n := len(row)
	for n > 0 && row[n-1].IsBlank() {
		n--
	}
	return row[:n]
}

func trimTrailingRows(m sheet.Matrix) sheet.Matrix {
	n := len(m)
	for n > 0 && len(m[n-1]) == 0 {
		n--
	}
	return m[:n]
}
