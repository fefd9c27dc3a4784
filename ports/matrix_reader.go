package ports

import "sheetview/domain/sheet"

// MatrixReader decodes the first worksheet of a file into raw rows.
// name is a hint only; readers sniff the content.
type MatrixReader interface {
	ReadMatrix(data []byte, name string) (sheet.Matrix, error)
}
