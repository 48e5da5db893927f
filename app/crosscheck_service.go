package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"diffex/domain/core"
	"diffex/domain/design"
	"diffex/domain/expression"
	"diffex/internal"
	"diffex/ports"
)

// DefaultCrossCheckTolerance is the maximum absolute disagreement allowed
// between the two fit routes when the request does not set one.
const DefaultCrossCheckTolerance = 1e-9

// CrossCheckService validates the vectorized fit route against independent
// per-probeset refits. The two routes share no linear algebra: one solves
// through the design's Gram inverse, the other through a per-column QR
// factorization, so agreement within tolerance checks both.
type CrossCheckService struct {
	summarizer ports.SummarizerPort
	fitter     ports.SingleFitPort
	logger     *internal.Logger
}

// CrossCheckRequest defines the inputs for one cross-check run
type CrossCheckRequest struct {
	Design    *design.Matrix
	Matrix    *expression.Matrix
	Tolerance float64 // <= 0 means DefaultCrossCheckTolerance
}

// Divergence records one quantity on which the routes disagree
type Divergence struct {
	Key         core.ProbesetKey `json:"key"`
	Quantity    string           `json:"quantity"`
	Vectorized  float64          `json:"vectorized"`
	PerProbeset float64          `json:"per_probeset"`
	Delta       float64          `json:"delta"`
}

// CrossCheckResult contains the verdict of comparing the two routes
type CrossCheckResult struct {
	Checked     int          `json:"checked"`
	Agreement   bool         `json:"agreement"`
	MaxDelta    float64      `json:"max_delta"`
	Tolerance   float64      `json:"tolerance"`
	Divergences []Divergence `json:"divergences,omitempty"`
	RuntimeMs   int64        `json:"runtime_ms"`
}

// NewCrossCheckService creates a cross-check service
func NewCrossCheckService(summarizer ports.SummarizerPort, fitter ports.SingleFitPort) *CrossCheckService {
	return &CrossCheckService{
		summarizer: summarizer,
		fitter:     fitter,
		logger:     internal.DefaultLogger.Component("CrossCheck"),
	}
}

// Run fits every probeset through both routes and compares coefficient
// estimates, residual sums of squares, and residual variances. Divergence
// is reported in the result, not as an error; errors mean a route failed
// outright.
func (s *CrossCheckService) Run(ctx context.Context, req CrossCheckRequest) (*CrossCheckResult, error) {
	startTime := time.Now()

	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultCrossCheckTolerance
	}

	// Step 1: Vectorized route
	summary, err := s.summarizer.Summarize(ctx, req.Design, req.Matrix)
	if err != nil {
		return nil, fmt.Errorf("vectorized route failed: %w", err)
	}

	// Step 2: Independent per-probeset route
	fits, err := s.fitter.FitAll(ctx, req.Design, req.Matrix)
	if err != nil {
		return nil, fmt.Errorf("per-probeset route failed: %w", err)
	}

	m := summary.ResponseCount()
	if len(fits) != m {
		return nil, fmt.Errorf("route outputs misaligned: %d vs %d responses", m, len(fits))
	}

	// Step 3: Compare response by response
	result := &CrossCheckResult{
		Checked:   m,
		Agreement: true,
		Tolerance: tolerance,
	}
	df := float64(summary.ResidualDF)

	for j := 0; j < m; j++ {
		key := summary.Keys[j]
		fit := fits[j]

		for k := range summary.CoefficientNames {
			result.record(key, fmt.Sprintf("coefficient[%s]", summary.CoefficientNames[k]),
				summary.Coefficients[j][k].Estimate, fit.Coefficients[k], tolerance)
		}

		sigma2 := summary.SigmaSquared[j]
		result.record(key, "sigma2", sigma2, fit.ResidualSD*fit.ResidualSD, tolerance)
		result.record(key, "rss", sigma2*df, fit.RSS, tolerance)
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()

	if result.Agreement {
		s.logger.Info("Routes agree on %d probesets, max delta %.3g (tolerance %.3g), %dms",
			result.Checked, result.MaxDelta, tolerance, result.RuntimeMs)
	} else {
		s.logger.Error("Routes diverge: %d divergences across %d probesets, max delta %.3g (tolerance %.3g)",
			len(result.Divergences), result.Checked, result.MaxDelta, tolerance)
	}

	return result, nil
}

// record compares one quantity and files a divergence when it exceeds the
// tolerance. NaN on both sides counts as agreement; NaN on one side does not.
func (r *CrossCheckResult) record(key core.ProbesetKey, quantity string, vectorized, perProbeset, tolerance float64) {
	if math.IsNaN(vectorized) && math.IsNaN(perProbeset) {
		return
	}

	delta := math.Abs(vectorized - perProbeset)
	if delta > r.MaxDelta || math.IsNaN(delta) {
		r.MaxDelta = delta
	}
	if delta <= tolerance {
		return
	}

	r.Agreement = false
	r.Divergences = append(r.Divergences, Divergence{
		Key:         key,
		Quantity:    quantity,
		Vectorized:  vectorized,
		PerProbeset: perProbeset,
		Delta:       delta,
	})
}
