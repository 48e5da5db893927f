package linmod

import (
	"errors"
	"fmt"

	"diffex/domain/core"
)

// SingularDesignError reports a design matrix whose Gram matrix cannot be
// inverted: rank-deficient dummy coding, duplicated columns, or p > n.
// Fatal; the input design must be corrected.
type SingularDesignError struct {
	Rows int
	Cols int
}

func (e *SingularDesignError) Error() string {
	return fmt.Sprintf("singular design matrix: %dx%d design is not full column rank", e.Rows, e.Cols)
}

// InvalidResponseError reports the first non-finite response value found.
// The whole batch fails rather than silently omitting the affected column.
type InvalidResponseError struct {
	Key    core.ProbesetKey
	Column int
	Row    int
	Value  float64
}

func (e *InvalidResponseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid response value %v at row %d of probeset %s (column %d)",
			e.Value, e.Row, e.Key, e.Column)
	}
	return fmt.Sprintf("invalid response value %v at row %d, column %d", e.Value, e.Row, e.Column)
}

// DimensionMismatchError reports disagreeing row counts between the design
// and response matrices.
type DimensionMismatchError struct {
	DesignRows   int
	ResponseRows int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: design has %d rows, responses have %d",
		e.DesignRows, e.ResponseRows)
}

// DegreesOfFreedomError reports a model with no residual degrees of freedom
// (p >= n), which leaves nothing to estimate variance from.
type DegreesOfFreedomError struct {
	N int
	P int
}

func (e *DegreesOfFreedomError) Error() string {
	return fmt.Sprintf("no residual degrees of freedom: n=%d samples, p=%d coefficients", e.N, e.P)
}

// Error checking helpers
func IsSingularDesign(err error) bool {
	var target *SingularDesignError
	return errors.As(err, &target)
}

func IsInvalidResponse(err error) bool {
	var target *InvalidResponseError
	return errors.As(err, &target)
}

func IsDimensionMismatch(err error) bool {
	var target *DimensionMismatchError
	return errors.As(err, &target)
}

func IsDegreesOfFreedom(err error) bool {
	var target *DegreesOfFreedomError
	return errors.As(err, &target)
}
