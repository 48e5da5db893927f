package ports

import (
	"context"

	"diffex/domain/linmod"
	"diffex/domain/run"
)

// ReportFormat selects the rendering of an analysis report.
type ReportFormat string

const (
	ReportMarkdown ReportFormat = "markdown"
	ReportHTML     ReportFormat = "html"
	ReportTSV      ReportFormat = "tsv"
)

// AnalysisReport bundles everything a sink needs to render one run: the
// reproducibility manifest, the ranked tables per tested coefficient, and
// the variance pooling summary.
type AnalysisReport struct {
	Manifest      *run.Manifest         `json:"manifest"`
	Tables        []*linmod.RankedTable `json:"tables"`
	PriorVariance float64               `json:"prior_variance"`
	PriorDF       float64               `json:"prior_df"`
	ResidualDF    int                   `json:"residual_df"`
	RuntimeMs     int64                 `json:"runtime_ms"`
}

// ReportSinkPort renders analysis output to a destination directory and
// reports the paths it wrote.
type ReportSinkPort interface {
	WriteAnalysis(ctx context.Context, report *AnalysisReport, formats []ReportFormat) ([]string, error)
}
