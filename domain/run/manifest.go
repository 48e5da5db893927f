package run

import (
	"crypto/sha256"
	"fmt"

	"diffex/domain/core"
)

// Manifest is the audit record for one analysis run. It fingerprints every
// input that determines the output, so a run can be reproduced from the
// report alone.
type Manifest struct {
	RunID        core.RunID      `json:"run_id"`
	DataHash     core.DataHash   `json:"data_hash"`
	DesignHash   core.DesignHash `json:"design_hash"`
	Samples      int             `json:"samples"`
	Probesets    int             `json:"probesets"`
	Coefficients int             `json:"coefficients"`
	Seed         int64           `json:"seed"`
	CodeVersion  string          `json:"code_version"`
	Fingerprint  Fingerprint     `json:"fingerprint"`
	CreatedAt    core.Timestamp  `json:"created_at"`
}

// Fingerprint is the determinism tuple: identical inputs produce an
// identical fingerprint hash.
type Fingerprint struct {
	DataHash    core.DataHash   `json:"data_hash"`
	DesignHash  core.DesignHash `json:"design_hash"`
	Seed        int64           `json:"seed"`
	CodeVersion string          `json:"code_version"`
	Fingerprint core.Hash       `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(dataHash core.DataHash, designHash core.DesignHash, seed int64, codeVersion string) Fingerprint {
	fingerprint := computeFingerprint(dataHash, designHash, seed, codeVersion)

	return Fingerprint{
		DataHash:    dataHash,
		DesignHash:  designHash,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: fingerprint,
	}
}

// computeFingerprint generates a deterministic hash from all determinism parameters
func computeFingerprint(dataHash core.DataHash, designHash core.DesignHash, seed int64, codeVersion string) core.Hash {
	data := fmt.Sprintf("data:%s|design:%s|seed:%d|code:%s",
		dataHash, designHash, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// NewManifest creates a run manifest from the run's inputs
func NewManifest(
	runID core.RunID,
	dataHash core.DataHash,
	designHash core.DesignHash,
	samples, probesets, coefficients int,
	seed int64,
	codeVersion string,
) *Manifest {
	return &Manifest{
		RunID:        runID,
		DataHash:     dataHash,
		DesignHash:   designHash,
		Samples:      samples,
		Probesets:    probesets,
		Coefficients: coefficients,
		Seed:         seed,
		CodeVersion:  codeVersion,
		Fingerprint:  NewFingerprint(dataHash, designHash, seed, codeVersion),
		CreatedAt:    core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.DataHash == "" {
		return core.NewValidationError("run_manifest", "data_hash cannot be empty")
	}
	if m.DesignHash == "" {
		return core.NewValidationError("run_manifest", "design_hash cannot be empty")
	}
	if m.Samples <= 0 {
		return core.NewValidationError("run_manifest", "samples must be positive")
	}
	if m.Coefficients <= 0 {
		return core.NewValidationError("run_manifest", "coefficients must be positive")
	}
	if m.CodeVersion == "" {
		return core.NewValidationError("run_manifest", "code_version cannot be empty")
	}
	return nil
}
