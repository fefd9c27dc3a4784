// Package testkit generates inventory spreadsheets shaped like real exports: a few title lines, a
// blank spacer, then a header row and the records.
package testkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"

	"github.com/xuri/excelize/v2"

	"sheetview/domain/sheet"
)

// InventoryGeneratorConfig configures the inventory generator
type InventoryGeneratorConfig struct {
	Rows      int   `json:"rows"`
	TitleRows int   `json:"title_rows"`
	BlankRows int   `json:"blank_rows"`
	Seed      int64 `json:"seed"`
	// BlankRate is the share of optional cells left empty
	BlankRate float64 `json:"blank_rate"`
}

// DefaultInventoryConfig returns a small report with two title lines and one spacer
func DefaultInventoryConfig() InventoryGeneratorConfig {
	return InventoryGeneratorConfig{
		Rows:      50,
		TitleRows: 2,
		BlankRows: 1,
		Seed:      42,
		BlankRate: 0.05,
	}
}

// InventoryHeader is the header row written by the generator
var InventoryHeader = []string{"Código", "Descripción", "Marca", "Precio", "Stock", "Categoría"}

var (
	brands     = []string{"ACME", "Globex", "Initech", "Umbrella", "Hooli"}
	categories = []string{"Ferretería", "Eléctrico", "Pinturas", "Jardín"}
	products   = []string{"Tornillo", "Cable", "Brocha", "Manguera", "Tuerca", "Enchufe", "Rodillo"}
)

// InventoryGenerator builds deterministic inventory matrices
type InventoryGenerator struct {
	config InventoryGeneratorConfig
	rng    *rand.Rand
}

// NewInventoryGenerator creates a new inventory generator
func NewInventoryGenerator(config InventoryGeneratorConfig) *InventoryGenerator {
	return &InventoryGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// HeaderIndex is the row the header lands on
func (g *InventoryGenerator) HeaderIndex() int {
	return g.config.TitleRows + g.config.BlankRows
}

// Matrix generates the sheet. Each call continues the generator's random stream.
func (g *InventoryGenerator) Matrix() sheet.Matrix {
	m := make(sheet.Matrix, 0, g.HeaderIndex()+1+g.config.Rows)

	titles := []string{"INVENTARIO GENERAL", "Sucursal Centro", "Generado automáticamente"}
	for i := 0; i < g.config.TitleRows; i++ {
		m = append(m, sheet.Row{sheet.Text(titles[i%len(titles)])})
	}
	for i := 0; i < g.config.BlankRows; i++ {
		m = append(m, sheet.Row{})
	}

	header := make(sheet.Row, len(InventoryHeader))
	for i, h := range InventoryHeader {
		header[i] = sheet.Text(h)
	}
	m = append(m, header)

	for i := 0; i < g.config.Rows; i++ {
		m = append(m, g.record(i))
	}
	return m
}

func (g *InventoryGenerator) record(i int) sheet.Row {
	price := float64(g.rng.Intn(50000)) / 100
	row := sheet.Row{
		sheet.Text(fmt.Sprintf("P%05d", i+1)),
		sheet.Text(fmt.Sprintf("%s %d", products[g.rng.Intn(len(products))], g.rng.Intn(100))),
		g.optional(brands[g.rng.Intn(len(brands))]),
		sheet.Number(price),
		sheet.Number(float64(g.rng.Intn(200))),
		g.optional(categories[g.rng.Intn(len(categories))]),
	}
	return row
}

func (g *InventoryGenerator) optional(s string) sheet.Cell {
	if g.rng.Float64() < g.config.BlankRate {
		return sheet.Empty()
	}
	return sheet.Text(s)
}

// CSV renders a matrix as CSV bytes. Rows are padded to the matrix width so blank rows survive
// as ",,," lines instead of being skipped by CSV readers.
func CSV(m sheet.Matrix) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	width := max(m.Width(), 2)
	for _, row := range m {
		record := make([]string, width)
		for i, c := range row {
			record[i] = c.String()
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// XLSX renders a matrix as a single-sheet workbook, keeping numbers numeric
func XLSX(m sheet.Matrix) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range m {
		if len(row) == 0 {
			continue
		}
		values := make([]interface{}, len(row))
		for j, c := range row {
			switch c.Kind {
			case sheet.KindNumber:
				values[j] = c.Number
			case sheet.KindText:
				values[j] = c.Text
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheet1", ref, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
