package dataset

import (
	"fmt"
	"math"
	"slices"

	"genrecast/internal/stage"
)

// Frame is an ordered table of rows keyed by column position.
type Frame struct {
	Columns []string
	Rows    [][]Value
}

// NewFrame builds a frame, verifying every row matches the header width.
func NewFrame(columns []string, rows [][]Value) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, header has %d", i, len(row), len(columns))
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name or -1.
func (f *Frame) Index(name string) int {
	return slices.Index(f.Columns, name)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	rows := make([][]Value, len(f.Rows))
	for i, row := range f.Rows {
		rows[i] = slices.Clone(row)
	}
	return &Frame{Columns: slices.Clone(f.Columns), Rows: rows}
}

// IsNumeric reports whether column idx holds at least one number and no text.
func (f *Frame) IsNumeric(idx int) bool {
	seen := false
	for _, row := range f.Rows {
		switch row[idx].Kind {
		case KindText:
			return false
		case KindNumber:
			seen = true
		}
	}
	return seen
}

// Labels returns column name rendered as strings. Missing cells are rejected.
func (f *Frame) Labels(name string) ([]string, error) {
	idx := f.Index(name)
	if idx < 0 {
		return nil, stage.Wrap(stage.ErrSchema, "dataset", "labels", fmt.Sprintf("column %q not present", name), nil)
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		if row[idx].IsMissing() {
			return nil, stage.Wrap(stage.ErrValidation, "dataset", "labels", fmt.Sprintf("row %d has no %s value", i, name), nil)
		}
		out[i] = row[idx].String()
	}
	return out, nil
}

// FeatureMatrix drops the target column and every non-numeric column. Any
// remaining missing or non-finite value is a validation error.
func (f *Frame) FeatureMatrix(target string) (*Matrix, error) {
	var keep []int
	for idx, name := range f.Columns {
		if name == target || !f.IsNumeric(idx) {
			continue
		}
		keep = append(keep, idx)
	}
	if len(keep) == 0 {
		return nil, stage.Wrap(stage.ErrSchema, "dataset", "features", "no numeric feature columns", nil)
	}

	columns := make([]string, len(keep))
	for i, idx := range keep {
		columns[i] = f.Columns[idx]
	}
	data := make([][]float64, len(f.Rows))
	for r, row := range f.Rows {
		vec := make([]float64, len(keep))
		for i, idx := range keep {
			if row[idx].IsMissing() {
				return nil, stage.Wrap(stage.ErrValidation, "dataset", "features",
					fmt.Sprintf("row %d column %s is missing", r, f.Columns[idx]), nil)
			}
			if math.IsInf(row[idx].Num, 0) || math.IsNaN(row[idx].Num) {
				return nil, stage.Wrap(stage.ErrValidation, "dataset", "features",
					fmt.Sprintf("row %d column %s is not finite", r, f.Columns[idx]), nil)
			}
			vec[i] = row[idx].Num
		}
		data[r] = vec
	}
	return &Matrix{Columns: columns, Data: data}, nil
}
