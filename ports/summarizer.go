package ports

import (
	"context"

	"diffex/domain/design"
	"diffex/domain/expression"
	"diffex/domain/linmod"
)

// SummarizerPort produces per-coefficient and per-model statistics for every
// probeset fitted against one shared design matrix. The design's Gram
// inverse, degrees of freedom, and test structure are computed once and
// reused across all responses.
type SummarizerPort interface {
	Summarize(ctx context.Context, d *design.Matrix, e *expression.Matrix) (*linmod.SummaryResult, error)
}

// SingleFitPort fits one response column at a time, independently of the
// shared-context route. It exists to cross-validate SummarizerPort: the two
// routes must agree within floating-point tolerance.
type SingleFitPort interface {
	// Fit regresses a single response vector against the design
	Fit(ctx context.Context, d *design.Matrix, y []float64) (*linmod.FitResult, error)

	// FitAll fits every probeset column, in column order
	FitAll(ctx context.Context, d *design.Matrix, e *expression.Matrix) ([]*linmod.FitResult, error)
}

// ShrinkagePort pools per-response residual variances toward a common prior
// and moderates the t-statistics accordingly.
type ShrinkagePort interface {
	Shrink(ctx context.Context, summary *linmod.SummaryResult) (*linmod.ShrinkageResult, error)
}

// RankerPort builds the ranked probeset table for one named coefficient,
// with multiple-testing adjusted q-values.
type RankerPort interface {
	Table(ctx context.Context, summary *linmod.SummaryResult, shrink *linmod.ShrinkageResult, e *expression.Matrix, coefficient string) (*linmod.RankedTable, error)
}
