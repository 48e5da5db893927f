package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diffex/domain/core"
	"diffex/domain/linmod"
	"diffex/domain/run"
	"diffex/ports"
)

func sampleReport(rows int) *ports.AnalysisReport {
	manifest := run.NewManifest(
		core.RunID(core.NewID()),
		core.NewDataHash([]byte("matrix")),
		core.NewDesignHash([]byte("design")),
		20, rows, 5,
		42, "1.0.0",
	)

	table := &linmod.RankedTable{Coefficient: "dosedose_2"}
	for i := 0; i < rows; i++ {
		table.Rows = append(table.Rows, linmod.RankedRow{
			Key:        core.ProbesetKey(fmt.Sprintf("probe_%04d", i+1)),
			Effect:     1.5,
			AvgExpr:    8.2,
			ModeratedT: 4.1,
			PValue:     0.001 * float64(i+1),
			QValue:     0.002 * float64(i+1),
			Rank:       i + 1,
		})
	}

	return &ports.AnalysisReport{
		Manifest:      manifest,
		Tables:        []*linmod.RankedTable{table},
		PriorVariance: 0.25,
		PriorDF:       3.7,
		ResidualDF:    15,
		RuntimeMs:     12,
	}
}

func TestWriteAnalysis_MarkdownAndManifest(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir)

	report := sampleReport(3)
	paths, err := writer.WriteAnalysis(context.Background(), report, []ports.ReportFormat{ports.ReportMarkdown})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	var manifestPath, mdPath string
	for _, p := range paths {
		switch filepath.Base(p) {
		case "manifest.json":
			manifestPath = p
		case "report.md":
			mdPath = p
		}
	}
	require.NotEmpty(t, manifestPath)
	require.NotEmpty(t, mdPath)

	manifestData, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var decoded run.Manifest
	require.NoError(t, json.Unmarshal(manifestData, &decoded))
	assert.Equal(t, report.Manifest.RunID, decoded.RunID)
	assert.Equal(t, report.Manifest.Fingerprint.Fingerprint, decoded.Fingerprint.Fingerprint)

	mdData, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	md := string(mdData)
	assert.Contains(t, md, "# Differential Expression Report")
	assert.Contains(t, md, "## Coefficient dosedose_2")
	assert.Contains(t, md, "probe_0001")
	assert.Contains(t, md, "Residual degrees of freedom: 15")
}

func TestWriteAnalysis_HTML(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir)

	paths, err := writer.WriteAnalysis(context.Background(), sampleReport(2), []ports.ReportFormat{ports.ReportHTML})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	htmlData, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	page := string(htmlData)
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "Differential Expression Report")
	assert.Contains(t, page, "probe_0002")
}

func TestWriteAnalysis_TSVCarriesAllRows(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir)

	paths, err := writer.WriteAnalysis(context.Background(), sampleReport(60),
		[]ports.ReportFormat{ports.ReportMarkdown, ports.ReportTSV})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	tsvPath := paths[2]
	assert.Equal(t, "ranked_dosedose_2.tsv", filepath.Base(tsvPath))

	tsvData, err := os.ReadFile(tsvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(tsvData), "\n"), "\n")
	assert.Len(t, lines, 61) // header + every row

	mdData, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	md := string(mdData)
	assert.Contains(t, md, "Showing top 50 of 60 probesets")
	assert.NotContains(t, md, "| 51 |")
}

func TestWriteAnalysis_NaNValuesRenderAsNA(t *testing.T) {
	dir := t.TempDir()
	writer := NewReportWriter(dir)

	report := sampleReport(1)
	report.Tables[0].Rows[0].PValue = math.NaN()
	report.Tables[0].Rows[0].QValue = math.NaN()

	paths, err := writer.WriteAnalysis(context.Background(), report,
		[]ports.ReportFormat{ports.ReportTSV})
	require.NoError(t, err)

	tsvData, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(tsvData), "\tNA\tNA\n")
}

func TestWriteAnalysis_RejectsMissingManifest(t *testing.T) {
	writer := NewReportWriter(t.TempDir())

	_, err := writer.WriteAnalysis(context.Background(), &ports.AnalysisReport{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest")
}

func TestWriteAnalysis_RejectsUnknownFormat(t *testing.T) {
	writer := NewReportWriter(t.TempDir())

	_, err := writer.WriteAnalysis(context.Background(), sampleReport(1),
		[]ports.ReportFormat{ports.ReportFormat("pdf")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
