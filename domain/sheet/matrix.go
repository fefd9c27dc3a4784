package sheet

// Row is an ordered sequence of cells; position is the column index
type Row []Cell

// At returns the cell at column i, or Missing when the row is shorter
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Missing
	}
	return r[i]
}

// Filled counts cells that are not blank
func (r Row) Filled() int {
	n := 0
	for _, c := range r {
		if !c.IsBlank() {
			n++
		}
	}
	return n
}

// Matrix is one worksheet as rows of cells. Row order follows the source.
type Matrix []Row

// Width returns the length of the longest row
func (m Matrix) Width() int {
	w := 0
	for _, r := range m {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// FromStrings builds a matrix of text cells, mostly for tests and CSV input
func FromStrings(rows [][]string) Matrix {
	m := make(Matrix, len(rows))
	for i, cells := range rows {
		row := make(Row, len(cells))
		for j, s := range cells {
			row[j] = Text(s)
		}
		m[i] = row
	}
	return m
}
