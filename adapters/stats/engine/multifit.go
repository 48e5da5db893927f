package engine

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"diffex/domain/core"
	"diffex/domain/design"
	"diffex/domain/expression"
	"diffex/domain/linmod"
	"diffex/internal/numeric"
)

// MultiFitEngine fits every probeset against a shared design in one pass.
// The Gram inverse is factored once, coefficient solves are a single matrix
// product across all response columns, and per-column statistics reuse the
// shared residual degrees of freedom.
type MultiFitEngine struct {
	dist *numeric.Distributions
}

// NewMultiFitEngine creates a multi-response fit engine
func NewMultiFitEngine() *MultiFitEngine {
	return &MultiFitEngine{dist: numeric.NewDistributions()}
}

// Summarize fits all probeset columns and derives coefficient and model
// statistics for each. Any non-finite response value fails the whole batch;
// a matrix with zero probesets yields an empty summary.
func (e *MultiFitEngine) Summarize(ctx context.Context, d *design.Matrix, em *expression.Matrix) (*linmod.SummaryResult, error) {
	if em.SampleCount() != d.RowCount() {
		return nil, &linmod.DimensionMismatchError{
			DesignRows:   d.RowCount(),
			ResponseRows: em.SampleCount(),
		}
	}

	fc, err := NewFitContext(d)
	if err != nil {
		return nil, err
	}

	if row, col, val, found := em.FirstNonFinite(); found {
		return nil, &linmod.InvalidResponseError{
			Key:    em.ProbesetIDs[col],
			Column: col,
			Row:    row,
			Value:  val,
		}
	}

	unscaled := make([]float64, fc.P)
	for k := 0; k < fc.P; k++ {
		unscaled[k] = math.Sqrt(fc.XtXInv.At(k, k))
	}

	m := em.ProbesetCount()
	result := &linmod.SummaryResult{
		Keys:             append([]core.ProbesetKey(nil), em.ProbesetIDs...),
		CoefficientNames: append([]string(nil), fc.Columns...),
		Coefficients:     make([][]linmod.CoefficientStats, m),
		ModelStats:       make([]linmod.ModelStats, m),
		ResidualDF:       fc.ResidualDF,
		SigmaSquared:     make([]float64, m),
		UnscaledSE:       unscaled,
	}
	if m == 0 {
		return result, nil
	}

	n, p := fc.N, fc.P
	flat := make([]float64, 0, n*m)
	for _, rowVals := range em.Values {
		flat = append(flat, rowVals...)
	}
	y := mat.NewDense(n, m, flat)

	// B = (X'X)^-1 X'Y, all responses at once
	var xty mat.Dense
	xty.Mul(fc.X.T(), y)
	var coef mat.Dense
	coef.Mul(fc.XtXInv, &xty)

	var fitted mat.Dense
	fitted.Mul(fc.X, &coef)
	var resid mat.Dense
	resid.Sub(y, &fitted)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	df := float64(fc.ResidualDF)
	for j := 0; j < m; j++ {
		var rss float64
		for i := 0; i < n; i++ {
			r := resid.At(i, j)
			rss += r * r
		}
		sigma2 := rss / df
		result.SigmaSquared[j] = sigma2

		stats := make([]linmod.CoefficientStats, p)
		for k := 0; k < p; k++ {
			est := coef.At(k, j)
			se := math.Sqrt(sigma2) * unscaled[k]
			t := est / se
			stats[k] = linmod.CoefficientStats{
				Estimate: est,
				StdError: se,
				TStat:    t,
				PValue:   e.dist.TTestPValue(t, df),
			}
		}
		result.Coefficients[j] = stats
		result.ModelStats[j] = e.modelStats(fc, y, j, rss, sigma2)
	}

	return result, nil
}

// modelStats tests the full model for one response against its null. With an
// intercept the null is the intercept-only model; without one it is the
// all-zero model, matching standard linear-model summaries.
func (e *MultiFitEngine) modelStats(fc *FitContext, y *mat.Dense, j int, rss, sigma2 float64) linmod.ModelStats {
	ms := linmod.ModelStats{
		ResidualSE:  math.Sqrt(sigma2),
		FApplicable: true,
	}

	var nullRSS float64
	var numDF int
	if fc.HasIntercept {
		if fc.P == 1 {
			// Intercept-only fit: there is nothing beyond the null to test.
			ms.FApplicable = false
			ms.FStat = math.NaN()
			ms.PValue = math.NaN()
			ms.RSquared = 0
			return ms
		}
		var mean float64
		for i := 0; i < fc.N; i++ {
			mean += y.At(i, j)
		}
		mean /= float64(fc.N)
		for i := 0; i < fc.N; i++ {
			dev := y.At(i, j) - mean
			nullRSS += dev * dev
		}
		numDF = fc.P - 1
	} else {
		for i := 0; i < fc.N; i++ {
			v := y.At(i, j)
			nullRSS += v * v
		}
		numDF = fc.P
	}

	ms.NumeratorDF = numDF
	if nullRSS > 0 {
		ms.RSquared = 1 - rss/nullRSS
	} else {
		ms.RSquared = math.NaN()
	}
	f := ((nullRSS - rss) / float64(numDF)) / (rss / float64(fc.ResidualDF))
	ms.FStat = f
	ms.PValue = e.dist.FTestPValue(f, float64(numDF), float64(fc.ResidualDF))
	return ms
}
