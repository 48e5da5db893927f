package expression

import (
	"fmt"
	"math"

	"diffex/domain/core"
)

// Matrix is the canonical data object for differential-expression
// computation: samples in rows, probesets in columns. Every probeset column
// is one response variable sharing the same design matrix.
type Matrix struct {
	// Core data
	Values      [][]float64 // rows=samples, cols=probesets
	SampleIDs   []core.SampleKey
	ProbesetIDs []core.ProbesetKey

	// Metadata
	CreatedAt core.Timestamp

	// Fingerprint for run manifests
	Fingerprint core.DataHash
}

// NewMatrix builds an expression matrix and validates its shape. A matrix
// with zero probesets is legal (downstream summaries are empty); a matrix
// with zero samples is not.
func NewMatrix(sampleIDs []string, probesetIDs []string, values [][]float64) (*Matrix, error) {
	if len(sampleIDs) == 0 {
		return nil, core.NewInsufficientDataError("expression matrix has no samples")
	}
	if len(values) != len(sampleIDs) {
		return nil, core.NewValidationError("values",
			fmt.Sprintf("have %d rows, expected %d samples", len(values), len(sampleIDs)))
	}
	for i, row := range values {
		if len(row) != len(probesetIDs) {
			return nil, core.NewValidationError("values",
				fmt.Sprintf("row %d has %d columns, expected %d probesets", i, len(row), len(probesetIDs)))
		}
	}

	samples := make([]core.SampleKey, len(sampleIDs))
	for i, id := range sampleIDs {
		key, err := core.ParseSampleKey(id)
		if err != nil {
			return nil, core.NewValidationError("sample_ids", fmt.Sprintf("index %d: %v", i, err))
		}
		samples[i] = key
	}

	probesets := make([]core.ProbesetKey, len(probesetIDs))
	for i, id := range probesetIDs {
		key, err := core.ParseProbesetKey(id)
		if err != nil {
			return nil, core.NewValidationError("probeset_ids", fmt.Sprintf("index %d: %v", i, err))
		}
		probesets[i] = key
	}

	return &Matrix{
		Values:      values,
		SampleIDs:   samples,
		ProbesetIDs: probesets,
		CreatedAt:   core.Now(),
		Fingerprint: core.ComputeDataHash(sampleIDs, probesetIDs, values),
	}, nil
}

// SampleCount returns the number of samples (rows)
func (m *Matrix) SampleCount() int {
	return len(m.SampleIDs)
}

// ProbesetCount returns the number of probesets (columns)
func (m *Matrix) ProbesetCount() int {
	return len(m.ProbesetIDs)
}

// Column returns a copy of the values for probeset column j
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Values))
	for i, row := range m.Values {
		col[i] = row[j]
	}
	return col
}

// ColumnByKey returns the values for a probeset key, if present
func (m *Matrix) ColumnByKey(key core.ProbesetKey) ([]float64, bool) {
	for j, k := range m.ProbesetIDs {
		if k == key {
			return m.Column(j), true
		}
	}
	return nil, false
}

// FirstNonFinite reports the first NaN or infinite value in storage order,
// or ok=false when every value is finite.
func (m *Matrix) FirstNonFinite() (row, col int, value float64, ok bool) {
	for j := 0; j < m.ProbesetCount(); j++ {
		for i := 0; i < m.SampleCount(); i++ {
			v := m.Values[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i, j, v, true
			}
		}
	}
	return 0, 0, 0, false
}

// Validate ensures the matrix is internally consistent
func (m *Matrix) Validate() error {
	if len(m.SampleIDs) == 0 {
		return core.ErrInsufficientData
	}
	if len(m.Values) != len(m.SampleIDs) {
		return core.NewValidationError("values", "row count does not match sample IDs")
	}
	for i, row := range m.Values {
		if len(row) != len(m.ProbesetIDs) {
			return core.NewValidationError("values",
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), len(m.ProbesetIDs)))
		}
	}
	return nil
}
