package treetopk

import "fmt"

// Matrix is a dense column-major float64 matrix, the layout numeric hosts
// hand over and expect back.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewMatrix allocates a zero rows×cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// MatrixFrom wraps column-major data, checking its length.
func MatrixFrom(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix", ErrShapeMismatch, len(data), rows, cols)
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// At returns the entry at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.Data[i+j*m.Rows] }

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v float64) { m.Data[i+j*m.Rows] = v }

// Row copies row i out of the matrix.
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, m.Cols)
	for j := 0; j < m.Cols; j++ {
		row[j] = m.At(i, j)
	}
	return row
}
