package ebayes

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"

	"diffex/domain/core"
	"diffex/domain/linmod"
	"diffex/internal/numeric"
)

// ShrinkageEngine pools per-probeset residual variances toward a common
// scaled inverse chi-squared prior estimated from the whole batch, then
// moderates every t statistic with the pooled variance. Probesets with few
// replicates borrow strength from the ensemble, which stabilizes the
// smallest variance estimates.
type ShrinkageEngine struct {
	dist *numeric.Distributions
}

// NewShrinkageEngine creates a variance pooling engine
func NewShrinkageEngine() *ShrinkageEngine {
	return &ShrinkageEngine{dist: numeric.NewDistributions()}
}

// Shrink estimates the variance prior from the summary and rebuilds every
// t statistic and p-value on the posterior variances. An empty summary
// yields an empty result.
func (e *ShrinkageEngine) Shrink(ctx context.Context, summary *linmod.SummaryResult) (*linmod.ShrinkageResult, error) {
	m := summary.ResponseCount()
	result := &linmod.ShrinkageResult{
		PriorVariance:      math.NaN(),
		PriorDF:            math.NaN(),
		PosteriorVariances: make([]float64, m),
		ModeratedT:         make([][]float64, m),
		PValues:            make([][]float64, m),
		TotalDF:            math.NaN(),
	}
	if m == 0 {
		return result, nil
	}
	if summary.ResidualDF <= 0 {
		return nil, core.NewValidationError("summary", "no residual degrees of freedom to pool")
	}
	if len(summary.UnscaledSE) != summary.CoefficientCount() {
		return nil, core.NewValidationError("summary", "missing unscaled standard errors")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	df := float64(summary.ResidualDF)
	priorVar, priorDF := fitVariancePrior(summary.SigmaSquared, df)
	result.PriorVariance = priorVar
	result.PriorDF = priorDF

	totalDF := df + priorDF
	result.TotalDF = totalDF

	p := summary.CoefficientCount()
	for j := 0; j < m; j++ {
		s2 := summary.SigmaSquared[j]
		var post float64
		if math.IsInf(priorDF, 1) {
			post = priorVar
		} else {
			post = (priorDF*priorVar + df*s2) / (priorDF + df)
		}
		result.PosteriorVariances[j] = post

		postSD := math.Sqrt(post)
		tRow := make([]float64, p)
		pRow := make([]float64, p)
		for k := 0; k < p; k++ {
			t := summary.Coefficients[j][k].Estimate / (postSD * summary.UnscaledSE[k])
			tRow[k] = t
			pRow[k] = e.dist.TTestPValue(t, totalDF)
		}
		result.ModeratedT[j] = tRow
		result.PValues[j] = pRow
	}

	return result, nil
}

// fitVariancePrior estimates the scale and degrees of freedom of the
// variance prior by the method of moments on log variances. Under the prior,
// log(s2_j) is a shifted log-F variate; matching its mean and spread against
// the digamma and trigamma moments identifies both parameters. A spread no
// larger than the sampling noise alone means the variances are exchangeable
// and the prior degrees of freedom are infinite.
func fitVariancePrior(sigma2 []float64, df float64) (priorVar, priorDF float64) {
	x := make([]float64, len(sigma2))
	for i, v := range sigma2 {
		if v < 0 {
			v = 0
		}
		x[i] = v
	}

	// Offset exact zeros away from log's pole, relative to the batch scale.
	med, _ := stats.Median(x)
	if med == 0 {
		med = 1
	}
	floor := 1e-5 * med
	for i, v := range x {
		if v < floor {
			x[i] = floor
		}
	}

	offset := numeric.Digamma(df/2) - math.Log(df/2)
	logAdj := make([]float64, len(x))
	for i, v := range x {
		logAdj[i] = math.Log(v) - offset
	}

	emean, _ := stats.Mean(logAdj)
	evar, _ := stats.SampleVariance(logAdj)
	evar -= numeric.Trigamma(df / 2)

	if evar > 0 {
		priorDF = 2 * numeric.TrigammaInverse(evar)
		priorVar = math.Exp(emean + numeric.Digamma(priorDF/2) - math.Log(priorDF/2))
	} else {
		priorDF = math.Inf(1)
		priorVar = math.Exp(emean)
	}
	return priorVar, priorDF
}
