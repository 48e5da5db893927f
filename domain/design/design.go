package design

import (
	"fmt"

	"diffex/domain/core"
	"diffex/domain/expression"
)

// Matrix is the n-by-p design shared by every response column. Column names
// label the coefficients in all downstream summaries. Full column rank is a
// caller obligation; rank deficiency is detected numerically at fit time.
type Matrix struct {
	Columns      []string
	Values       [][]float64 // rows=samples, cols=coefficients
	HasIntercept bool        // column 0 is the all-ones intercept

	Fingerprint core.DesignHash
}

// New builds a design matrix from named columns and validates its shape.
func New(columns []string, values [][]float64) (*Matrix, error) {
	if len(columns) == 0 {
		return nil, core.NewValidationError("design", "must have at least one column")
	}
	if len(values) == 0 {
		return nil, core.NewInsufficientDataError("design matrix has no rows")
	}
	for i, name := range columns {
		if name == "" {
			return nil, core.NewValidationError("design",
				fmt.Sprintf("column %d has an empty name", i))
		}
	}
	for i, row := range values {
		if len(row) != len(columns) {
			return nil, core.NewValidationError("design",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(columns)))
		}
	}

	return &Matrix{
		Columns:      columns,
		Values:       values,
		HasIntercept: detectIntercept(values),
		Fingerprint:  core.ComputeDesignHash(columns, values),
	}, nil
}

// RowCount returns the number of samples (rows)
func (d *Matrix) RowCount() int {
	return len(d.Values)
}

// ColumnCount returns the number of coefficients (columns)
func (d *Matrix) ColumnCount() int {
	return len(d.Columns)
}

// detectIntercept reports whether column 0 is all ones
func detectIntercept(values [][]float64) bool {
	if len(values) == 0 || len(values[0]) == 0 {
		return false
	}
	for _, row := range values {
		if row[0] != 1 {
			return false
		}
	}
	return true
}

// FromFactor builds a treatment-contrast design: an all-ones intercept named
// "(Intercept)" followed by one indicator column per non-reference level.
// The intercept estimates the reference-level mean; each indicator estimates
// the delta from it.
func FromFactor(f *expression.Factor) (*Matrix, error) {
	if f == nil {
		return nil, core.NewValidationError("design", "factor cannot be nil")
	}

	n := f.Len()
	p := f.LevelCount() // intercept + (levels-1) indicators

	columns := make([]string, p)
	columns[0] = "(Intercept)"
	for j := 1; j < p; j++ {
		columns[j] = f.Name + f.Levels[j]
	}

	idx := f.Indexes()
	values := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p)
		row[0] = 1
		if idx[i] > 0 {
			row[idx[i]] = 1
		}
		values[i] = row
	}

	d, err := New(columns, values)
	if err != nil {
		return nil, err
	}
	d.HasIntercept = true
	return d, nil
}

// FromFactorMeans builds a cell-means design: one indicator column per level
// and no intercept. Each coefficient estimates its level's mean directly.
func FromFactorMeans(f *expression.Factor) (*Matrix, error) {
	if f == nil {
		return nil, core.NewValidationError("design", "factor cannot be nil")
	}

	n := f.Len()
	p := f.LevelCount()

	columns := make([]string, p)
	for j := 0; j < p; j++ {
		columns[j] = f.Name + f.Levels[j]
	}

	idx := f.Indexes()
	values := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p)
		row[idx[i]] = 1
		values[i] = row
	}

	d, err := New(columns, values)
	if err != nil {
		return nil, err
	}
	d.HasIntercept = false
	return d, nil
}
