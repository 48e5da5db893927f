package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"diffex/adapters/report"
	"diffex/adapters/source"
	"diffex/adapters/stats/ebayes"
	"diffex/adapters/stats/engine"
	"diffex/adapters/stats/rank"
	"diffex/app"
	"diffex/internal/config"
	"diffex/ports"
)

// stdout preview size per ranked table; full tables go to the report files
const previewRows = 10

var analyzeFlags struct {
	matrixPath string
	factorPath string
	format     string
	coding     string
	outDir     string
	formats    string
	seed       int64
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fit, moderate, and rank every probeset of a study",
	Long: `Analyze loads an expression matrix (probesets as rows, samples as
columns) and a factor file assigning each sample to a group, fits the
group design to every probeset, pools the residual variances, and writes
ranked differential expression tables.

Usage:
  diffex analyze --matrix expr.tsv --factor groups.tsv
  diffex analyze --matrix expr.xlsx --factor groups.xlsx --coding means

Defaults for coding, report directory, and formats come from the
environment (DIFFEX_CODING, DIFFEX_REPORT_DIR, DIFFEX_REPORT_FORMATS).`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.matrixPath, "matrix", "", "Path to the expression matrix file (required)")
	f.StringVar(&analyzeFlags.factorPath, "factor", "", "Path to the sample group factor file (required)")
	f.StringVar(&analyzeFlags.format, "format", "", "Input format: tsv, csv, or xlsx (default: by extension)")
	f.StringVar(&analyzeFlags.coding, "coding", "", "Design coding: treatment or means (default: $DIFFEX_CODING)")
	f.StringVar(&analyzeFlags.outDir, "out", "", "Report output directory (default: $DIFFEX_REPORT_DIR)")
	f.StringVar(&analyzeFlags.formats, "report-formats", "", "Comma-separated report formats (default: $DIFFEX_REPORT_FORMATS)")
	f.Int64Var(&analyzeFlags.seed, "seed", 0, "Seed recorded in the run manifest (default: $DIFFEX_SEED)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFlags.matrixPath == "" || analyzeFlags.factorPath == "" {
		return fmt.Errorf("both --matrix and --factor are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	coding := analyzeFlags.coding
	if coding == "" {
		coding = cfg.Analysis.Coding
	}
	outDir := analyzeFlags.outDir
	if outDir == "" {
		outDir = cfg.Report.OutputDir
	}
	seed := analyzeFlags.seed
	if !cmd.Flags().Changed("seed") {
		seed = cfg.Analysis.Seed
	}
	formats := cfg.Report.Formats
	if analyzeFlags.formats != "" {
		formats = strings.Split(analyzeFlags.formats, ",")
	}
	reportFormats := make([]ports.ReportFormat, 0, len(formats))
	for _, f := range formats {
		reportFormats = append(reportFormats, ports.ReportFormat(strings.TrimSpace(f)))
	}

	service := app.NewAnalysisService(
		source.NewSourceReader(),
		engine.NewMultiFitEngine(),
		ebayes.NewShrinkageEngine(),
		rank.NewRankEngine(),
		report.NewReportWriter(outDir),
	)

	result, err := service.Run(cmd.Context(), app.AnalysisRequest{
		MatrixPath:    analyzeFlags.matrixPath,
		FactorPath:    analyzeFlags.factorPath,
		Format:        ports.SourceFormat(analyzeFlags.format),
		Coding:        app.DesignCoding(coding),
		ReportFormats: reportFormats,
		Seed:          seed,
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	m := result.Manifest
	fmt.Printf("Run %s: %d samples, %d probesets, %d coefficients\n",
		m.RunID, m.Samples, m.Probesets, m.Coefficients)
	fmt.Printf("Residual df %d, variance prior s0^2=%.4g d0=%.4g, %dms\n",
		result.Summary.ResidualDF, result.Shrinkage.PriorVariance, result.Shrinkage.PriorDF, result.RuntimeMs)

	for _, table := range result.Tables {
		fmt.Printf("\nCoefficient %s (top %d of %d):\n", table.Coefficient, min(previewRows, len(table.Rows)), len(table.Rows))
		fmt.Printf("  %-5s %-18s %12s %12s %12s %12s\n", "rank", "probeset", "effect", "mod_t", "p", "q")
		for i, row := range table.Rows {
			if i >= previewRows {
				break
			}
			fmt.Printf("  %-5d %-18s %12.4g %12.4g %12.4g %12.4g\n",
				row.Rank, row.Key, row.Effect, row.ModeratedT, row.PValue, row.QValue)
		}
	}

	fmt.Println("\nReports:")
	for _, path := range result.ReportPaths {
		fmt.Printf("  %s\n", path)
	}
	return nil
}
