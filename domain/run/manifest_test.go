package run

import (
	"testing"

	"diffex/domain/core"
)

func TestFingerprintDeterministic(t *testing.T) {
	// Golden test - same inputs produce identical fingerprints
	dataHash := core.DataHash("test-data")
	designHash := core.DesignHash("test-design")
	seed := int64(42)
	codeVersion := "1.0.0"

	fp1 := NewFingerprint(dataHash, designHash, seed, codeVersion)
	fp2 := NewFingerprint(dataHash, designHash, seed, codeVersion)

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}

	if fp1.DataHash != dataHash {
		t.Errorf("DataHash mismatch: %s vs %s", fp1.DataHash, dataHash)
	}
	if fp1.DesignHash != designHash {
		t.Errorf("DesignHash mismatch: %s vs %s", fp1.DesignHash, designHash)
	}
	if fp1.Seed != seed {
		t.Errorf("Seed mismatch: %d vs %d", fp1.Seed, seed)
	}
	if fp1.CodeVersion != codeVersion {
		t.Errorf("CodeVersion mismatch: %s vs %s", fp1.CodeVersion, codeVersion)
	}
}

func TestFingerprintUnique(t *testing.T) {
	// Different inputs should produce different fingerprints
	base := NewFingerprint(core.DataHash("test-data"), core.DesignHash("test-design"), 42, "1.0.0")

	testCases := []struct {
		name string
		fp   Fingerprint
	}{
		{"different data", NewFingerprint(
			core.DataHash("other-data"), // changed
			core.DesignHash("test-design"),
			42,
			"1.0.0",
		)},
		{"different design", NewFingerprint(
			core.DataHash("test-data"),
			core.DesignHash("other-design"), // changed
			42,
			"1.0.0",
		)},
		{"different seed", NewFingerprint(
			core.DataHash("test-data"),
			core.DesignHash("test-design"),
			43, // changed
			"1.0.0",
		)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestManifestComplete(t *testing.T) {
	manifest := NewManifest(
		core.RunID("test-run"),
		core.DataHash("test-data"),
		core.DesignHash("test-design"),
		20, 1000, 5,
		42,
		"1.0.0",
	)

	if manifest.RunID != core.RunID("test-run") {
		t.Errorf("RunID not set correctly")
	}
	if manifest.Samples != 20 || manifest.Probesets != 1000 || manifest.Coefficients != 5 {
		t.Errorf("Counts not set correctly: %d/%d/%d",
			manifest.Samples, manifest.Probesets, manifest.Coefficients)
	}
	if manifest.Fingerprint.Fingerprint == "" {
		t.Errorf("Fingerprint not computed")
	}
	if manifest.CreatedAt.IsZero() {
		t.Errorf("CreatedAt not set")
	}

	if err := manifest.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}
}

func TestManifestValidateRejectsIncomplete(t *testing.T) {
	manifest := NewManifest(
		core.RunID(""),
		core.DataHash("test-data"),
		core.DesignHash("test-design"),
		20, 1000, 5,
		42,
		"1.0.0",
	)
	if err := manifest.Validate(); err == nil {
		t.Error("Expected validation error for empty run_id")
	}

	manifest = NewManifest(
		core.RunID("test-run"),
		core.DataHash("test-data"),
		core.DesignHash("test-design"),
		0, 1000, 5,
		42,
		"1.0.0",
	)
	if err := manifest.Validate(); err == nil {
		t.Error("Expected validation error for zero samples")
	}
}
