package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides unified access to the statistical distributions
// used by the fit and shrinkage engines.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// TTestPValue computes the two-sided p-value for a t-statistic with df
// degrees of freedom. Infinite df falls back to the standard normal.
func (d *Distributions) TTestPValue(tStatistic, df float64) float64 {
	if math.IsNaN(tStatistic) {
		return math.NaN()
	}
	if df <= 0 {
		return 1.0
	}
	if math.IsInf(df, 1) {
		return d.NormalPValue(tStatistic)
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	// Two-tailed test; Survival keeps precision in the far tails
	return 2 * tDist.Survival(math.Abs(tStatistic))
}

// FTestPValue computes the upper-tail p-value for an F-statistic on
// (df1, df2) degrees of freedom.
func (d *Distributions) FTestPValue(fStatistic, df1, df2 float64) float64 {
	if math.IsNaN(fStatistic) {
		return math.NaN()
	}
	if df1 <= 0 || df2 <= 0 {
		return 1.0
	}
	if fStatistic <= 0 {
		return 1.0
	}

	fDist := distuv.F{D1: df1, D2: df2}
	return fDist.Survival(fStatistic)
}

// NormalPValue computes the two-sided p-value for a standard normal deviate
func (d *Distributions) NormalPValue(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}
	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}
