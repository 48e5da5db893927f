package app

import (
	"context"
	"fmt"
	"time"

	"diffex/domain/core"
	"diffex/domain/design"
	"diffex/domain/expression"
	"diffex/domain/linmod"
	"diffex/domain/run"
	"diffex/internal"
	"diffex/ports"
)

// DesignCoding selects how the group factor becomes a design matrix
type DesignCoding string

const (
	// CodingTreatment fits an intercept plus per-level deltas from the
	// reference level
	CodingTreatment DesignCoding = "treatment"

	// CodingMeans fits one mean per level with no intercept
	CodingMeans DesignCoding = "means"
)

// AnalysisService runs the full differential expression pipeline: load,
// design construction, multi-response fit, variance moderation, ranking,
// and report output
type AnalysisService struct {
	source     ports.ExpressionSourcePort
	summarizer ports.SummarizerPort
	shrinker   ports.ShrinkagePort
	ranker     ports.RankerPort
	sink       ports.ReportSinkPort
	logger     *internal.Logger
}

// AnalysisRequest defines the inputs for one analysis run
type AnalysisRequest struct {
	MatrixPath    string               `json:"matrix_path"`
	FactorPath    string               `json:"factor_path"`
	Format        ports.SourceFormat   `json:"format,omitempty"` // empty means detect by extension
	Coding        DesignCoding         `json:"coding"`
	ReportFormats []ports.ReportFormat `json:"report_formats"`
	Seed          int64                `json:"seed"`
	RunID         core.RunID           `json:"run_id,omitempty"` // optional, generated if empty
}

// AnalysisResult contains the complete output of an analysis run
type AnalysisResult struct {
	Manifest    *run.Manifest           `json:"manifest"`
	Summary     *linmod.SummaryResult   `json:"-"`
	Shrinkage   *linmod.ShrinkageResult `json:"-"`
	Tables      []*linmod.RankedTable   `json:"tables"`
	ReportPaths []string                `json:"report_paths"`
	RuntimeMs   int64                   `json:"runtime_ms"`
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(
	source ports.ExpressionSourcePort,
	summarizer ports.SummarizerPort,
	shrinker ports.ShrinkagePort,
	ranker ports.RankerPort,
	sink ports.ReportSinkPort,
) *AnalysisService {
	return &AnalysisService{
		source:     source,
		summarizer: summarizer,
		shrinker:   shrinker,
		ranker:     ranker,
		sink:       sink,
		logger:     internal.DefaultLogger.Component("AnalysisService"),
	}
}

// Run executes the pipeline end to end and writes reports
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	startTime := time.Now()

	runID := req.RunID
	if core.ID(runID).IsEmpty() {
		runID = core.RunID(core.NewID())
	}

	// Step 1: Load the expression matrix and its group factor
	matrix, err := s.source.LoadMatrix(ctx, req.MatrixPath, req.Format)
	if err != nil {
		return nil, fmt.Errorf("matrix load failed: %w", err)
	}
	factor, err := s.source.LoadFactor(ctx, req.FactorPath, req.Format, matrix.SampleIDs)
	if err != nil {
		return nil, fmt.Errorf("factor load failed: %w", err)
	}

	// Step 2: Build the design matrix under the requested coding
	d, err := buildDesign(factor, req.Coding)
	if err != nil {
		return nil, fmt.Errorf("design construction failed: %w", err)
	}
	s.logger.Info("Run %s: %d samples, %d probesets, %d coefficients (%s coding)",
		runID, matrix.SampleCount(), matrix.ProbesetCount(), d.ColumnCount(), req.Coding)

	// Step 3: Fit all probesets against the shared design
	summary, err := s.summarizer.Summarize(ctx, d, matrix)
	if err != nil {
		return nil, fmt.Errorf("model fit failed: %w", err)
	}

	// Step 4: Pool residual variances and moderate the t-statistics
	shrink, err := s.shrinker.Shrink(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("variance moderation failed: %w", err)
	}

	// Step 5: Rank probesets for every tested coefficient. Under treatment
	// coding the intercept is the reference mean, not a group contrast, so
	// it gets no table.
	tables, err := s.rankTables(ctx, summary, shrink, matrix, d)
	if err != nil {
		return nil, fmt.Errorf("ranking failed: %w", err)
	}

	// Step 6: Record the run manifest
	manifest := run.NewManifest(
		runID,
		matrix.Fingerprint,
		d.Fingerprint,
		matrix.SampleCount(), matrix.ProbesetCount(), d.ColumnCount(),
		req.Seed,
		internal.Version,
	)

	// Step 7: Render reports
	report := &ports.AnalysisReport{
		Manifest:      manifest,
		Tables:        tables,
		PriorVariance: shrink.PriorVariance,
		PriorDF:       shrink.PriorDF,
		ResidualDF:    summary.ResidualDF,
		RuntimeMs:     time.Since(startTime).Milliseconds(),
	}
	paths, err := s.sink.WriteAnalysis(ctx, report, req.ReportFormats)
	if err != nil {
		return nil, fmt.Errorf("report output failed: %w", err)
	}

	runtimeMs := time.Since(startTime).Milliseconds()
	s.logger.Info("Run %s finished in %dms, wrote %d report files", runID, runtimeMs, len(paths))

	return &AnalysisResult{
		Manifest:    manifest,
		Summary:     summary,
		Shrinkage:   shrink,
		Tables:      tables,
		ReportPaths: paths,
		RuntimeMs:   runtimeMs,
	}, nil
}

// rankTables builds one ranked table per coefficient of interest
func (s *AnalysisService) rankTables(
	ctx context.Context,
	summary *linmod.SummaryResult,
	shrink *linmod.ShrinkageResult,
	matrix *expression.Matrix,
	d *design.Matrix,
) ([]*linmod.RankedTable, error) {
	var tables []*linmod.RankedTable
	for k, name := range d.Columns {
		if d.HasIntercept && k == 0 {
			continue
		}
		table, err := s.ranker.Table(ctx, summary, shrink, matrix, name)
		if err != nil {
			return nil, fmt.Errorf("coefficient %s: %w", name, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// buildDesign maps a coding choice onto the design constructors
func buildDesign(factor *expression.Factor, coding DesignCoding) (*design.Matrix, error) {
	switch coding {
	case CodingTreatment, "":
		return design.FromFactor(factor)
	case CodingMeans:
		return design.FromFactorMeans(factor)
	default:
		return nil, core.NewValidationError("coding", "unknown design coding: "+string(coding))
	}
}
