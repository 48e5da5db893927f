package engine

import (
	"gonum.org/v1/gonum/mat"

	"diffex/domain/design"
	"diffex/domain/linmod"
)

// FitContext carries everything about a design matrix that is shared across
// response columns: the design itself, the inverse of its Gram matrix, and
// the residual degrees of freedom. It is computed once per design and reused
// by every fit, which is what makes the multi-response route cheap.
type FitContext struct {
	X            *mat.Dense
	XtXInv       *mat.SymDense
	N            int
	P            int
	ResidualDF   int
	Columns      []string
	HasIntercept bool
}

// NewFitContext factors the Gram matrix of the design via Cholesky and
// inverts it. A design without residual degrees of freedom or without full
// column rank is rejected here, before any response is touched.
func NewFitContext(d *design.Matrix) (*FitContext, error) {
	n := d.RowCount()
	p := d.ColumnCount()
	if n <= p {
		return nil, &linmod.DegreesOfFreedomError{N: n, P: p}
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			x.Set(i, j, d.Values[i][j])
		}
	}

	gram := mat.NewSymDense(p, nil)
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += d.Values[i][j] * d.Values[i][k]
			}
			gram.SetSym(j, k, sum)
		}
	}

	// Cholesky fails exactly when X'X is not positive definite, which for a
	// Gram matrix means the design is rank deficient.
	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, &linmod.SingularDesignError{Rows: n, Cols: p}
	}

	inv := mat.NewSymDense(p, nil)
	if err := chol.InverseTo(inv); err != nil {
		return nil, &linmod.SingularDesignError{Rows: n, Cols: p}
	}

	return &FitContext{
		X:            x,
		XtXInv:       inv,
		N:            n,
		P:            p,
		ResidualDF:   n - p,
		Columns:      append([]string(nil), d.Columns...),
		HasIntercept: d.HasIntercept,
	}, nil
}
