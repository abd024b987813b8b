package dataset

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"

	"genrecast/internal/stage"
)

// Matrix is a named numeric table; Data is row-major.
type Matrix struct {
	Columns []string
	Data    [][]float64
}

func (m *Matrix) Rows() int { return len(m.Data) }

func (m *Matrix) Cols() int { return len(m.Columns) }

// Row returns a single-row matrix with the given values.
func Row(columns []string, values []float64) *Matrix {
	return &Matrix{Columns: slices.Clone(columns), Data: [][]float64{slices.Clone(values)}}
}

// FromRecord builds a single-row matrix from a name to value map. Columns are
// sorted so the layout does not depend on map iteration.
func FromRecord(record map[string]float64) *Matrix {
	columns := make([]string, 0, len(record))
	for name := range record {
		columns = append(columns, name)
	}
	slices.Sort(columns)
	values := make([]float64, len(columns))
	for i, name := range columns {
		values[i] = record[name]
	}
	return &Matrix{Columns: columns, Data: [][]float64{values}}
}

// Align reorders columns to match want. A differing column set is a contract
// violation naming the missing and unexpected columns.
func (m *Matrix) Align(want []string) (*Matrix, error) {
	if slices.Equal(m.Columns, want) {
		return m, nil
	}
	positions := make(map[string]int, len(m.Columns))
	for i, name := range m.Columns {
		positions[name] = i
	}
	var missing []string
	order := make([]int, len(want))
	for i, name := range want {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		order[i] = pos
		delete(positions, name)
	}
	if len(missing) > 0 || len(positions) > 0 {
		unexpected := make([]string, 0, len(positions))
		for name := range positions {
			unexpected = append(unexpected, name)
		}
		slices.Sort(unexpected)
		return nil, stage.Wrap(stage.ErrContract, "dataset", "align", describeMismatch(missing, unexpected), nil)
	}

	data := make([][]float64, len(m.Data))
	for r, row := range m.Data {
		out := make([]float64, len(order))
		for i, pos := range order {
			out[i] = row[pos]
		}
		data[r] = out
	}
	return &Matrix{Columns: slices.Clone(want), Data: data}, nil
}

// Select keeps only the named columns, in the given order. Other columns are
// dropped; a requested column that is absent is a schema error.
func (m *Matrix) Select(columns []string) (*Matrix, error) {
	positions := make(map[string]int, len(m.Columns))
	for i, name := range m.Columns {
		positions[name] = i
	}
	order := make([]int, len(columns))
	var missing []string
	for i, name := range columns {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		order[i] = pos
	}
	if len(missing) > 0 {
		return nil, stage.Wrap(stage.ErrSchema, "dataset", "select",
			fmt.Sprintf("numeric feature columns not found: %s", strings.Join(missing, ", ")), nil)
	}
	data := make([][]float64, len(m.Data))
	for r, row := range m.Data {
		out := make([]float64, len(order))
		for i, pos := range order {
			out[i] = row[pos]
		}
		data[r] = out
	}
	return &Matrix{Columns: slices.Clone(columns), Data: data}, nil
}

func describeMismatch(missing, unexpected []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing columns ["+strings.Join(missing, ", ")+"]")
	}
	if len(unexpected) > 0 {
		parts = append(parts, "unexpected columns ["+strings.Join(unexpected, ", ")+"]")
	}
	return strings.Join(parts, "; ")
}

// Subset returns the rows at idx in that order.
func (m *Matrix) Subset(idx []int) *Matrix {
	data := make([][]float64, len(idx))
	for i, r := range idx {
		data[i] = m.Data[r]
	}
	return &Matrix{Columns: m.Columns, Data: data}
}

// Dense copies the matrix into a gonum dense matrix.
func (m *Matrix) Dense() *mat.Dense {
	if m.Rows() == 0 || m.Cols() == 0 {
		return &mat.Dense{}
	}
	flat := make([]float64, 0, m.Rows()*m.Cols())
	for _, row := range m.Data {
		flat = append(flat, row...)
	}
	return mat.NewDense(m.Rows(), m.Cols(), flat)
}

// FromDense converts a gonum matrix back into a named Matrix.
func FromDense(columns []string, d mat.Matrix) (*Matrix, error) {
	r, c := d.Dims()
	if c != len(columns) {
		return nil, fmt.Errorf("dense matrix has %d columns, %d names given", c, len(columns))
	}
	data := make([][]float64, r)
	for i := range r {
		row := make([]float64, c)
		for j := range c {
			row[j] = d.At(i, j)
		}
		data[i] = row
	}
	return &Matrix{Columns: slices.Clone(columns), Data: data}, nil
}
