package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"diffex/domain/linmod"
	"diffex/internal"
	"diffex/ports"
)

// markdownTableRows caps the rows rendered per table in markdown and HTML
// reports. TSV output always carries every row.
const markdownTableRows = 50

// ReportWriter renders analysis reports into a run directory
type ReportWriter struct {
	baseDir string
	logger  *internal.Logger
}

// NewReportWriter creates a report writer rooted at baseDir
func NewReportWriter(baseDir string) *ReportWriter {
	return &ReportWriter{
		baseDir: baseDir,
		logger:  internal.DefaultLogger.Component("ReportWriter"),
	}
}

// WriteAnalysis renders the report in each requested format plus a
// manifest.json, under a timestamped run directory. Returns the paths of
// all written files.
func (w *ReportWriter) WriteAnalysis(ctx context.Context, report *ports.AnalysisReport, formats []ports.ReportFormat) ([]string, error) {
	start := time.Now()

	if report == nil || report.Manifest == nil {
		return nil, fmt.Errorf("analysis report is missing its manifest")
	}
	if len(formats) == 0 {
		formats = []ports.ReportFormat{ports.ReportMarkdown}
	}

	runDir := filepath.Join(w.baseDir, fmt.Sprintf("%s_%s",
		report.Manifest.CreatedAt.Time().Format("2006-01-02_15-04-05"), report.Manifest.RunID))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var written []string

	manifestPath := filepath.Join(runDir, "manifest.json")
	manifestData, err := json.MarshalIndent(report.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, manifestData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	written = append(written, manifestPath)

	md := buildMarkdown(report)

	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		switch format {
		case ports.ReportMarkdown:
			path := filepath.Join(runDir, "report.md")
			if err := os.WriteFile(path, []byte(md), 0644); err != nil {
				return written, fmt.Errorf("failed to write markdown report: %w", err)
			}
			written = append(written, path)

		case ports.ReportHTML:
			path := filepath.Join(runDir, "report.html")
			if err := os.WriteFile(path, renderHTML(md), 0644); err != nil {
				return written, fmt.Errorf("failed to write html report: %w", err)
			}
			written = append(written, path)

		case ports.ReportTSV:
			for _, table := range report.Tables {
				path := filepath.Join(runDir, "ranked_"+sanitizeName(table.Coefficient)+".tsv")
				if err := os.WriteFile(path, []byte(buildTSV(table)), 0644); err != nil {
					return written, fmt.Errorf("failed to write tsv table: %w", err)
				}
				written = append(written, path)
			}

		default:
			return written, fmt.Errorf("unsupported report format: %s", format)
		}
	}

	elapsed := time.Since(start)
	w.logger.Info("Wrote %d report files for run %s in %.2fms",
		len(written), report.Manifest.RunID, float64(elapsed.Nanoseconds())/1e6)

	return written, nil
}

// buildMarkdown renders the full report as GitHub-flavored markdown
func buildMarkdown(report *ports.AnalysisReport) string {
	m := report.Manifest
	var b strings.Builder

	b.WriteString("# Differential Expression Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
	fmt.Fprintf(&b, "- Created: %s\n", m.CreatedAt.Time().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Samples: %d, probesets: %d, coefficients: %d\n", m.Samples, m.Probesets, m.Coefficients)
	fmt.Fprintf(&b, "- Residual degrees of freedom: %d\n", report.ResidualDF)
	fmt.Fprintf(&b, "- Variance prior: s0^2 = %s with d0 = %s\n",
		formatFloat(report.PriorVariance), formatFloat(report.PriorDF))
	fmt.Fprintf(&b, "- Data hash: `%s`\n", m.DataHash)
	fmt.Fprintf(&b, "- Design hash: `%s`\n", m.DesignHash)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", m.Fingerprint.Fingerprint)
	fmt.Fprintf(&b, "- Runtime: %dms\n", report.RuntimeMs)

	for _, table := range report.Tables {
		fmt.Fprintf(&b, "\n## Coefficient %s\n\n", table.Coefficient)

		if len(table.Rows) == 0 {
			b.WriteString("No probesets to rank.\n")
			continue
		}

		b.WriteString("| Rank | Probeset | Effect | Avg expr | Moderated t | P value | Q value |\n")
		b.WriteString("|-----:|----------|-------:|---------:|------------:|--------:|--------:|\n")

		shown := len(table.Rows)
		if shown > markdownTableRows {
			shown = markdownTableRows
		}
		for _, row := range table.Rows[:shown] {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
				row.Rank, row.Key,
				formatFloat(row.Effect), formatFloat(row.AvgExpr), formatFloat(row.ModeratedT),
				formatFloat(row.PValue), formatFloat(row.QValue))
		}
		if shown < len(table.Rows) {
			fmt.Fprintf(&b, "\nShowing top %d of %d probesets; the TSV export has the full table.\n",
				shown, len(table.Rows))
		}
	}

	return b.String()
}

// renderHTML converts the markdown report into a standalone HTML document
func renderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Differential Expression Report",
	})
	return markdown.Render(doc, renderer)
}

// buildTSV renders one ranked table with every row
func buildTSV(table *linmod.RankedTable) string {
	var b strings.Builder
	b.WriteString("rank\tprobeset\teffect\tavg_expr\tmoderated_t\tp_value\tq_value\n")
	for _, row := range table.Rows {
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Rank, row.Key,
			formatFloat(row.Effect), formatFloat(row.AvgExpr), formatFloat(row.ModeratedT),
			formatFloat(row.PValue), formatFloat(row.QValue))
	}
	return b.String()
}

// sanitizeName makes a coefficient name safe to embed in a filename
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "Inf"
		}
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
