package linmod

import (
	"diffex/domain/core"
)

// ====== PER-RESPONSE FIT ======

// FitResult is the output of independently fitting one response column
// against the shared design.
type FitResult struct {
	Coefficients []float64 // length p, in design column order
	ResidualSD   float64
	RSS          float64
	Fitted       []float64 // length n
	Residuals    []float64 // length n
}

// ====== SUMMARY SCHEMA ======

// CoefficientStats holds the inference for one coefficient of one response.
type CoefficientStats struct {
	Estimate float64 `json:"estimate"`
	StdError float64 `json:"std_error"`
	TStat    float64 `json:"t_stat"`
	PValue   float64 `json:"p_value"`
}

// ModelStats summarizes one response's overall fit against the
// intercept-only null model. FApplicable is false for intercept-only
// designs, where the F test has nothing to compare; FStat and PValue are
// NaN in that case and NumeratorDF is zero.
type ModelStats struct {
	ResidualSE  float64 `json:"residual_se"`
	RSquared    float64 `json:"r_squared"`
	FStat       float64 `json:"f_stat"`
	NumeratorDF int     `json:"numerator_df"`
	PValue      float64 `json:"p_value"`
	FApplicable bool    `json:"f_applicable"`
}

// SummaryResult aggregates per-coefficient and per-model statistics for
// every response fitted against one shared design matrix. UnscaledSE is the
// per-coefficient standard error with the residual scale divided out,
// sqrt of the Gram inverse diagonal; it lets variance pooling rebuild
// standard errors without refitting. Immutable once computed.
type SummaryResult struct {
	Keys             []core.ProbesetKey   `json:"keys"`              // length m
	CoefficientNames []string             `json:"coefficient_names"` // length p
	Coefficients     [][]CoefficientStats `json:"coefficients"`      // m x p
	ModelStats       []ModelStats         `json:"model_stats"`       // length m
	ResidualDF       int                  `json:"residual_df"`       // shared n - p
	SigmaSquared     []float64            `json:"sigma_squared"`     // length m, RSS_j / df
	UnscaledSE       []float64            `json:"unscaled_se"`       // length p
}

// ResponseCount returns m, the number of summarized responses
func (s *SummaryResult) ResponseCount() int {
	return len(s.Coefficients)
}

// CoefficientCount returns p, the number of design columns
func (s *SummaryResult) CoefficientCount() int {
	return len(s.CoefficientNames)
}

// CoefficientIndex returns the position of a named coefficient
func (s *SummaryResult) CoefficientIndex(name string) (int, bool) {
	for j, n := range s.CoefficientNames {
		if n == name {
			return j, true
		}
	}
	return -1, false
}

// ====== EMPIRICAL BAYES ======

// ShrinkageResult holds moderated statistics after pooling residual
// variances toward a scaled-inverse-chi-squared prior. PriorDF may be +Inf,
// in which case every posterior variance equals the prior variance.
type ShrinkageResult struct {
	PriorVariance      float64     `json:"prior_variance"`      // s2_prior
	PriorDF            float64     `json:"prior_df"`            // df_prior
	PosteriorVariances []float64   `json:"posterior_variances"` // length m
	ModeratedT         [][]float64 `json:"moderated_t"`         // m x p
	PValues            [][]float64 `json:"p_values"`            // m x p
	TotalDF            float64     `json:"total_df"`            // df + df_prior
}

// ====== RANKING ======

// RankedRow is one probeset's entry in a ranked differential-expression
// table for a single coefficient.
type RankedRow struct {
	Key        core.ProbesetKey `json:"key"`
	Effect     float64          `json:"effect"` // coefficient estimate
	AvgExpr    float64          `json:"avg_expr"`
	ModeratedT float64          `json:"moderated_t"`
	PValue     float64          `json:"p_value"`
	QValue     float64          `json:"q_value"` // BH-adjusted
	Rank       int              `json:"rank"`
}

// RankedTable orders probesets by moderated evidence for one coefficient.
type RankedTable struct {
	Coefficient string      `json:"coefficient"`
	Rows        []RankedRow `json:"rows"`
}
