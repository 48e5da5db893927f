package testkit

import (
	"math"
	"os"
	"strings"
	"testing"
)

func TestDatasetGenerator_Basic(t *testing.T) {
	config := GeneratorConfig{
		ProbesetCount:        40, // Small for testing
		GroupCount:           3,
		ReplicatesPerGroup:   4,
		BaselineMean:         8.0,
		BaselineSD:           1.0,
		NoiseSD:              0.5,
		DifferentialFraction: 0.25,
		EffectSize:           2.0,
		FactorName:           "dose",
		Seed:                 42,
	}

	generator := NewDatasetGenerator(config)
	ds, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	if got := ds.Matrix.SampleCount(); got != 12 {
		t.Errorf("Expected 12 samples, got %d", got)
	}
	if got := ds.Matrix.ProbesetCount(); got != 40 {
		t.Errorf("Expected 40 probesets, got %d", got)
	}
	if got := ds.Factor.Len(); got != 12 {
		t.Errorf("Expected 12 factor assignments, got %d", got)
	}
	if got := ds.Factor.LevelCount(); got != 3 {
		t.Errorf("Expected 3 factor levels, got %d", got)
	}

	for i, row := range ds.Matrix.Values {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Non-finite value at sample %d probeset %d: %v", i, j, v)
			}
		}
	}

	known := make(map[string]bool, len(ds.Matrix.ProbesetIDs))
	for _, key := range ds.Matrix.ProbesetIDs {
		known[key.String()] = true
	}
	for _, key := range ds.Differential {
		if !known[key.String()] {
			t.Errorf("Differential probeset %s not present in matrix", key)
		}
	}
	if len(ds.Differential) == 0 {
		t.Error("Expected some differential probesets at fraction 0.25")
	}
}

func TestDatasetGenerator_Deterministic(t *testing.T) {
	config := DefaultGeneratorConfig()
	config.ProbesetCount = 30
	config.Seed = 12345

	ds1, err := NewDatasetGenerator(config).Generate()
	if err != nil {
		t.Fatalf("First generation failed: %v", err)
	}
	ds2, err := NewDatasetGenerator(config).Generate()
	if err != nil {
		t.Fatalf("Second generation failed: %v", err)
	}

	if ds1.Matrix.Fingerprint != ds2.Matrix.Fingerprint {
		t.Errorf("Same seed produced different matrices: %s vs %s",
			ds1.Matrix.Fingerprint, ds2.Matrix.Fingerprint)
	}
	if len(ds1.Differential) != len(ds2.Differential) {
		t.Fatalf("Differential counts differ: %d vs %d", len(ds1.Differential), len(ds2.Differential))
	}
	for i := range ds1.Differential {
		if ds1.Differential[i] != ds2.Differential[i] {
			t.Errorf("Differential sets differ at index %d: %s vs %s",
				i, ds1.Differential[i], ds2.Differential[i])
		}
	}

	config.Seed = 54321
	ds3, err := NewDatasetGenerator(config).Generate()
	if err != nil {
		t.Fatalf("Third generation failed: %v", err)
	}
	if ds3.Matrix.Fingerprint == ds1.Matrix.Fingerprint {
		t.Error("Different seeds produced identical matrices")
	}
}

func TestDatasetGenerator_KnownEffects(t *testing.T) {
	config := GeneratorConfig{
		ProbesetCount:        60,
		GroupCount:           4,
		ReplicatesPerGroup:   3,
		BaselineMean:         8.0,
		BaselineSD:           1.0,
		NoiseSD:              0.0, // Values equal the group means exactly
		DifferentialFraction: 0.3,
		EffectSize:           2.0,
		FactorName:           "dose",
		Seed:                 7,
	}

	generator := NewDatasetGenerator(config)
	ds, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	differential := make(map[string]bool)
	for _, key := range ds.Differential {
		differential[key.String()] = true
	}

	for j, probe := range ds.Matrix.ProbesetIDs {
		means := groupMeans(ds, j, config.GroupCount, config.ReplicatesPerGroup)

		if differential[probe.String()] {
			// Graded response: consecutive group means are equally spaced
			// and the span is nonzero.
			step := means[1] - means[0]
			if math.Abs(step) < 1e-9 {
				t.Errorf("Differential probeset %s has no effect between groups 1 and 2", probe)
			}
			for grp := 2; grp < config.GroupCount; grp++ {
				if math.Abs((means[grp]-means[grp-1])-step) > 1e-9 {
					t.Errorf("Differential probeset %s is not graded: steps %v vs %v",
						probe, means[grp]-means[grp-1], step)
				}
			}
		} else {
			for grp := 1; grp < config.GroupCount; grp++ {
				if math.Abs(means[grp]-means[0]) > 1e-9 {
					t.Errorf("Flat probeset %s differs between groups: %v vs %v",
						probe, means[grp], means[0])
				}
			}
		}
	}
}

func TestDataset_WriteTSV(t *testing.T) {
	config := DefaultGeneratorConfig()
	config.ProbesetCount = 5
	config.GroupCount = 2
	config.ReplicatesPerGroup = 2

	ds, err := NewDatasetGenerator(config).Generate()
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	dir := t.TempDir()
	matrixPath, factorPath, err := ds.WriteTSV(dir)
	if err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}

	matrixData, err := os.ReadFile(matrixPath)
	if err != nil {
		t.Fatalf("Failed to read matrix file: %v", err)
	}
	matrixLines := strings.Split(strings.TrimRight(string(matrixData), "\n"), "\n")
	if len(matrixLines) != 6 { // header + 5 probesets
		t.Fatalf("Expected 6 matrix lines, got %d", len(matrixLines))
	}
	header := strings.Split(matrixLines[0], "\t")
	if header[0] != "probeset_id" || len(header) != 5 {
		t.Errorf("Unexpected matrix header: %v", header)
	}
	firstRow := strings.Split(matrixLines[1], "\t")
	if firstRow[0] != "probe_0001" {
		t.Errorf("Expected first row to be probe_0001, got %s", firstRow[0])
	}

	factorData, err := os.ReadFile(factorPath)
	if err != nil {
		t.Fatalf("Failed to read factor file: %v", err)
	}
	factorLines := strings.Split(strings.TrimRight(string(factorData), "\n"), "\n")
	if len(factorLines) != 5 { // header + 4 samples
		t.Fatalf("Expected 5 factor lines, got %d", len(factorLines))
	}
	if factorLines[0] != "sample_id\tdose" {
		t.Errorf("Unexpected factor header: %q", factorLines[0])
	}
	if factorLines[1] != "sample_001\tdose_1" {
		t.Errorf("Unexpected first assignment row: %q", factorLines[1])
	}
}

func TestDatasetGenerator_RejectsInvalidConfig(t *testing.T) {
	config := DefaultGeneratorConfig()
	config.GroupCount = 0

	if _, err := NewDatasetGenerator(config).Generate(); err == nil {
		t.Error("Expected error for zero group count")
	}

	config = DefaultGeneratorConfig()
	config.ReplicatesPerGroup = 0
	if _, err := NewDatasetGenerator(config).Generate(); err == nil {
		t.Error("Expected error for zero replicates")
	}
}

// groupMeans averages probeset j over the replicates of each group, relying
// on the generator's group-major sample order.
func groupMeans(ds *Dataset, j, groups, reps int) []float64 {
	means := make([]float64, groups)
	for grp := 0; grp < groups; grp++ {
		sum := 0.0
		for rep := 0; rep < reps; rep++ {
			sum += ds.Matrix.Values[grp*reps+rep][j]
		}
		means[grp] = sum / float64(reps)
	}
	return means
}
