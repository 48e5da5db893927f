package engine

import (
	"context"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"

	"diffex/domain/design"
	"diffex/domain/expression"
	"diffex/domain/linmod"
)

// SingleFitEngine fits one response column at a time via QR decomposition.
// It shares no numerical machinery with the multi-response route, which is
// what makes it a meaningful independent cross-check.
type SingleFitEngine struct {
	workers int64
}

// NewSingleFitEngine creates a per-column fit engine. workers bounds the
// concurrent fits in FitAll; zero or negative means one per CPU.
func NewSingleFitEngine(workers int) *SingleFitEngine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &SingleFitEngine{workers: int64(workers)}
}

// Fit regresses a single response vector against the design.
func (e *SingleFitEngine) Fit(ctx context.Context, d *design.Matrix, yv []float64) (*linmod.FitResult, error) {
	n := d.RowCount()
	p := d.ColumnCount()
	if len(yv) != n {
		return nil, &linmod.DimensionMismatchError{DesignRows: n, ResponseRows: len(yv)}
	}
	if n <= p {
		return nil, &linmod.DegreesOfFreedomError{N: n, P: p}
	}
	for i, v := range yv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &linmod.InvalidResponseError{Row: i, Value: v}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.fitColumn(d, yv)
}

// FitAll fits every probeset column independently under the worker bound.
// Output order matches column order regardless of completion order, and the
// first failure cancels the remaining fits.
func (e *SingleFitEngine) FitAll(ctx context.Context, d *design.Matrix, em *expression.Matrix) ([]*linmod.FitResult, error) {
	n := d.RowCount()
	p := d.ColumnCount()
	if em.SampleCount() != n {
		return nil, &linmod.DimensionMismatchError{DesignRows: n, ResponseRows: em.SampleCount()}
	}
	if n <= p {
		return nil, &linmod.DegreesOfFreedomError{N: n, P: p}
	}
	if row, col, val, found := em.FirstNonFinite(); found {
		return nil, &linmod.InvalidResponseError{
			Key:    em.ProbesetIDs[col],
			Column: col,
			Row:    row,
			Value:  val,
		}
	}

	m := em.ProbesetCount()
	results := make([]*linmod.FitResult, m)
	if m == 0 {
		return results, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(e.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for j := 0; j < m; j++ {
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(col int) {
			defer wg.Done()
			defer sem.Release(1)

			fit, err := e.fitColumn(d, em.Column(col))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			results[col] = fit
		}(j)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// fitColumn solves one least-squares problem by QR. The solver failing is
// the per-column signal that the design is rank deficient.
func (e *SingleFitEngine) fitColumn(d *design.Matrix, yv []float64) (*linmod.FitResult, error) {
	n := d.RowCount()
	p := d.ColumnCount()

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			x.Set(i, j, d.Values[i][j])
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), yv...))

	var qr mat.QR
	qr.Factorize(x)

	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, y); err != nil {
		return nil, &linmod.SingularDesignError{Rows: n, Cols: p}
	}

	coef := make([]float64, p)
	for k := 0; k < p; k++ {
		coef[k] = beta.AtVec(k)
	}

	fitted := make([]float64, n)
	resid := make([]float64, n)
	var rss float64
	for i := 0; i < n; i++ {
		var f float64
		for j := 0; j < p; j++ {
			f += d.Values[i][j] * coef[j]
		}
		fitted[i] = f
		r := yv[i] - f
		resid[i] = r
		rss += r * r
	}

	sigma2 := rss / float64(n-p)
	return &linmod.FitResult{
		Coefficients: coef,
		ResidualSD:   math.Sqrt(sigma2),
		RSS:          rss,
		Fitted:       fitted,
		Residuals:    resid,
	}, nil
}
