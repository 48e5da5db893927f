package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"diffex/adapters/source"
	"diffex/adapters/stats/engine"
	"diffex/app"
	"diffex/domain/design"
	"diffex/domain/expression"
	"diffex/internal/config"
	"diffex/internal/errors"
	"diffex/ports"
)

var crosscheckFlags struct {
	matrixPath string
	factorPath string
	format     string
	coding     string
	tolerance  float64
	workers    int
}

var crosscheckCmd = &cobra.Command{
	Use:   "crosscheck",
	Short: "Validate the vectorized fit route against per-probeset refits",
	Long: `Crosscheck fits every probeset twice, once through the shared Gram
inverse and once through an independent QR factorization per column, and
compares coefficients, residual sums of squares, and residual variances.
Exits nonzero if any quantity disagrees beyond the tolerance.`,
	RunE: runCrosscheck,
}

func init() {
	f := crosscheckCmd.Flags()
	f.StringVar(&crosscheckFlags.matrixPath, "matrix", "", "Path to the expression matrix file (required)")
	f.StringVar(&crosscheckFlags.factorPath, "factor", "", "Path to the sample group factor file (required)")
	f.StringVar(&crosscheckFlags.format, "format", "", "Input format: tsv, csv, or xlsx (default: by extension)")
	f.StringVar(&crosscheckFlags.coding, "coding", "", "Design coding: treatment or means (default: $DIFFEX_CODING)")
	f.Float64Var(&crosscheckFlags.tolerance, "tolerance", 0, "Max absolute disagreement (default: $DIFFEX_TOLERANCE)")
	f.IntVar(&crosscheckFlags.workers, "workers", 0, "Concurrent per-probeset fits, 0 for one per CPU (default: $DIFFEX_WORKERS)")
}

func runCrosscheck(cmd *cobra.Command, args []string) error {
	if crosscheckFlags.matrixPath == "" || crosscheckFlags.factorPath == "" {
		return fmt.Errorf("both --matrix and --factor are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	coding := crosscheckFlags.coding
	if coding == "" {
		coding = cfg.Analysis.Coding
	}
	tolerance := crosscheckFlags.tolerance
	if tolerance <= 0 {
		tolerance = cfg.Analysis.CrossCheckTolerance
	}
	workers := crosscheckFlags.workers
	if !cmd.Flags().Changed("workers") {
		workers = cfg.Analysis.Workers
	}

	ctx := cmd.Context()
	reader := source.NewSourceReader()

	matrix, err := reader.LoadMatrix(ctx, crosscheckFlags.matrixPath, ports.SourceFormat(crosscheckFlags.format))
	if err != nil {
		return fmt.Errorf("load matrix: %w", err)
	}
	factor, err := reader.LoadFactor(ctx, crosscheckFlags.factorPath, ports.SourceFormat(crosscheckFlags.format), matrix.SampleIDs)
	if err != nil {
		return fmt.Errorf("load factor: %w", err)
	}

	d, err := buildDesign(factor, coding)
	if err != nil {
		return err
	}

	service := app.NewCrossCheckService(engine.NewMultiFitEngine(), engine.NewSingleFitEngine(workers))
	result, err := service.Run(ctx, app.CrossCheckRequest{
		Design:    d,
		Matrix:    matrix,
		Tolerance: tolerance,
	})
	if err != nil {
		return fmt.Errorf("crosscheck: %w", err)
	}

	fmt.Printf("Checked %d probesets against %d coefficients, max delta %.3g (tolerance %.3g), %dms\n",
		result.Checked, d.ColumnCount(), result.MaxDelta, result.Tolerance, result.RuntimeMs)

	if result.Agreement {
		fmt.Println("Routes agree.")
		return nil
	}

	fmt.Printf("Routes diverge on %d quantities:\n", len(result.Divergences))
	for i, div := range result.Divergences {
		if i >= previewRows {
			fmt.Printf("  ... and %d more\n", len(result.Divergences)-previewRows)
			break
		}
		fmt.Printf("  %s %s: %.12g vs %.12g (delta %.3g)\n",
			div.Key, div.Quantity, div.Vectorized, div.PerProbeset, div.Delta)
	}
	return errors.RouteDiverged(fmt.Sprintf("%d of %d probesets disagree beyond %.3g",
		divergentProbesets(result), result.Checked, result.Tolerance))
}

// divergentProbesets counts distinct probesets with at least one divergence
func divergentProbesets(result *app.CrossCheckResult) int {
	seen := make(map[string]bool)
	for _, div := range result.Divergences {
		seen[div.Key.String()] = true
	}
	return len(seen)
}

// buildDesign maps the coding flag onto the design constructors
func buildDesign(factor *expression.Factor, coding string) (*design.Matrix, error) {
	switch coding {
	case "treatment", "":
		return design.FromFactor(factor)
	case "means":
		return design.FromFactorMeans(factor)
	default:
		return nil, fmt.Errorf("unknown design coding: %s (supported: treatment, means)", coding)
	}
}
