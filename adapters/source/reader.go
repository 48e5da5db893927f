package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"diffex/domain/core"
	"diffex/domain/expression"
	"diffex/internal"
	"diffex/ports"
)

// SourceReader loads expression matrices and sample groupings from TSV, CSV
// and XLSX files. Expression files use the standard microarray export layout
// with one probeset per row and one sample per column; the reader transposes
// into the samples-by-probesets orientation the fit engines expect.
type SourceReader struct {
	logger *internal.Logger
}

// NewSourceReader creates a file-backed expression source
func NewSourceReader() *SourceReader {
	return &SourceReader{logger: internal.DefaultLogger.Component("SourceReader")}
}

// DetectFormat infers the source format from the file extension, defaulting
// to TSV, the common microarray export.
func DetectFormat(path string) ports.SourceFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ports.FormatCSV
	case ".xlsx":
		return ports.FormatXLSX
	default:
		return ports.FormatTSV
	}
}

// LoadMatrix reads an expression matrix from the given path.
func (r *SourceReader) LoadMatrix(ctx context.Context, path string, format ports.SourceFormat) (*expression.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := r.readRows(path, format)
	if err != nil {
		return nil, err
	}

	m, err := parseMatrix(rows, path)
	if err != nil {
		return nil, err
	}

	r.logger.Info("loaded %d samples x %d probesets from %s in %.2fms",
		m.SampleCount(), m.ProbesetCount(), path, float64(time.Since(start).Nanoseconds())/1e6)
	return m, nil
}

// LoadFactor reads sample group assignments and aligns them to the supplied
// sample order. Entries for samples outside the matrix are ignored; a matrix
// sample without an assignment is an error.
func (r *SourceReader) LoadFactor(ctx context.Context, path string, format ports.SourceFormat, samples []core.SampleKey) (*expression.Factor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.readRows(path, format)
	if err != nil {
		return nil, err
	}

	f, err := parseFactor(rows, samples, path)
	if err != nil {
		return nil, err
	}

	r.logger.Info("loaded factor %q with %d levels for %d samples from %s",
		f.Name, f.LevelCount(), f.Len(), path)
	return f, nil
}

func (r *SourceReader) readRows(path string, format ports.SourceFormat) ([][]string, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	switch format {
	case ports.FormatTSV:
		return readDelimited(path, '\t')
	case ports.FormatCSV:
		return readDelimited(path, ',')
	case ports.FormatXLSX:
		return readWorkbook(path)
	default:
		return nil, fmt.Errorf("unsupported source format: %s", format)
	}
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	// Shape problems are reported with probeset and sample context during
	// parsing instead of as bare csv errors.
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1 of %s: %w", path, err)
	}

	// GetRows trims trailing empty cells; pad back to header width so a
	// trailing blank reads as a missing value, same as the delimited path.
	if len(rows) > 0 {
		width := len(rows[0])
		for i, row := range rows {
			for len(row) < width {
				row = append(row, "")
			}
			rows[i] = row
		}
	}
	return rows, nil
}

func parseMatrix(rows [][]string, path string) (*expression.Matrix, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: need a header row and at least one data row", path)
	}
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: header must name at least one sample", path)
	}

	sampleIDs := make([]string, 0, len(header)-1)
	seenSample := make(map[string]bool, len(header)-1)
	for i, h := range header[1:] {
		id := strings.TrimSpace(h)
		if id == "" {
			return nil, fmt.Errorf("%s: header column %d has an empty sample name", path, i+2)
		}
		if seenSample[id] {
			return nil, fmt.Errorf("%s: duplicate sample %q", path, id)
		}
		seenSample[id] = true
		sampleIDs = append(sampleIDs, id)
	}

	n := len(sampleIDs)
	m := len(rows) - 1
	probesetIDs := make([]string, 0, m)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, m)
	}

	seenProbe := make(map[string]bool, m)
	for rIdx, row := range rows[1:] {
		if len(row) != n+1 {
			return nil, fmt.Errorf("%s: row %d has %d cells, expected %d", path, rIdx+2, len(row), n+1)
		}
		probe := strings.TrimSpace(row[0])
		if probe == "" {
			return nil, fmt.Errorf("%s: row %d has an empty probeset ID", path, rIdx+2)
		}
		if seenProbe[probe] {
			return nil, fmt.Errorf("%s: duplicate probeset %q", path, probe)
		}
		seenProbe[probe] = true
		probesetIDs = append(probesetIDs, probe)

		for i := 0; i < n; i++ {
			v, err := parseCell(row[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: probeset %s, sample %s: %v", path, probe, sampleIDs[i], err)
			}
			values[i][rIdx] = v
		}
	}

	return expression.NewMatrix(sampleIDs, probesetIDs, values)
}

// parseCell reads one numeric cell. Missing-value markers become NaN so the
// fit layer reports their exact position instead of the loader guessing.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "NaN", "nan":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}

func parseFactor(rows [][]string, samples []core.SampleKey, path string) (*expression.Factor, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: need a header row and at least one assignment row", path)
	}
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: header must name the sample column and the factor", path)
	}
	name := strings.TrimSpace(header[1])
	if name == "" {
		return nil, fmt.Errorf("%s: factor column has an empty name", path)
	}

	byID := make(map[string]string, len(rows)-1)
	for rIdx, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s: row %d has %d cells, expected 2", path, rIdx+2, len(row))
		}
		id := strings.TrimSpace(row[0])
		level := strings.TrimSpace(row[1])
		if id == "" {
			return nil, fmt.Errorf("%s: row %d has an empty sample ID", path, rIdx+2)
		}
		if level == "" {
			return nil, fmt.Errorf("%s: sample %s has an empty %s level", path, id, name)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("%s: duplicate assignment for sample %q", path, id)
		}
		byID[id] = level
	}

	assignments := make([]string, len(samples))
	for i, s := range samples {
		level, ok := byID[string(s)]
		if !ok {
			return nil, fmt.Errorf("%s: no %s assignment for sample %s", path, name, s)
		}
		assignments[i] = level
	}

	return expression.NewFactor(name, assignments)
}
