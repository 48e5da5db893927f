package ports

import (
	"context"

	"diffex/domain/core"
	"diffex/domain/expression"
)

// SourceFormat identifies the on-disk layout of an expression dataset.
type SourceFormat string

const (
	FormatTSV  SourceFormat = "tsv"
	FormatCSV  SourceFormat = "csv"
	FormatXLSX SourceFormat = "xlsx"
)

// LoadRequest names the files an analysis reads its inputs from. FactorPath
// may be empty when the caller supplies group assignments directly.
type LoadRequest struct {
	MatrixPath string       `json:"matrix_path"`
	FactorPath string       `json:"factor_path,omitempty"`
	Format     SourceFormat `json:"format"`
}

// ExpressionSourcePort loads expression matrices and sample groupings from
// external files. Implementations normalize to the samples-by-probesets
// orientation regardless of how the file stores them.
type ExpressionSourcePort interface {
	// LoadMatrix reads an expression matrix from the given path
	LoadMatrix(ctx context.Context, path string, format SourceFormat) (*expression.Matrix, error)

	// LoadFactor reads sample group assignments and aligns them to the
	// supplied sample order
	LoadFactor(ctx context.Context, path string, format SourceFormat, samples []core.SampleKey) (*expression.Factor, error)
}
