package design

import (
	"testing"

	"diffex/domain/expression"
)

func mustFactor(t *testing.T, name string, assignments []string) *expression.Factor {
	t.Helper()
	f, err := expression.NewFactor(name, assignments)
	if err != nil {
		t.Fatalf("NewFactor: %v", err)
	}
	return f
}

func TestFromFactorTreatmentCoding(t *testing.T) {
	f := mustFactor(t, "stage", []string{"E1", "E1", "E2", "E2", "E3", "E3"})

	d, err := FromFactor(f)
	if err != nil {
		t.Fatalf("FromFactor: %v", err)
	}

	if d.RowCount() != 6 || d.ColumnCount() != 3 {
		t.Fatalf("Design is %dx%d, want 6x3", d.RowCount(), d.ColumnCount())
	}
	if !d.HasIntercept {
		t.Error("Treatment coding must carry an intercept")
	}

	wantColumns := []string{"(Intercept)", "stageE2", "stageE3"}
	for j, name := range wantColumns {
		if d.Columns[j] != name {
			t.Errorf("Columns[%d] = %q, want %q", j, d.Columns[j], name)
		}
	}

	want := [][]float64{
		{1, 0, 0},
		{1, 0, 0},
		{1, 1, 0},
		{1, 1, 0},
		{1, 0, 1},
		{1, 0, 1},
	}
	for i := range want {
		for j := range want[i] {
			if d.Values[i][j] != want[i][j] {
				t.Errorf("Values[%d][%d] = %v, want %v", i, j, d.Values[i][j], want[i][j])
			}
		}
	}
}

func TestFromFactorMeansCoding(t *testing.T) {
	f := mustFactor(t, "stage", []string{"E1", "E2", "E2"})

	d, err := FromFactorMeans(f)
	if err != nil {
		t.Fatalf("FromFactorMeans: %v", err)
	}

	if d.HasIntercept {
		t.Error("Cell-means coding must not carry an intercept")
	}
	if d.ColumnCount() != 2 {
		t.Fatalf("ColumnCount = %d, want 2", d.ColumnCount())
	}
	if d.Columns[0] != "stageE1" || d.Columns[1] != "stageE2" {
		t.Errorf("Columns = %v, want [stageE1 stageE2]", d.Columns)
	}

	want := [][]float64{
		{1, 0},
		{0, 1},
		{0, 1},
	}
	for i := range want {
		for j := range want[i] {
			if d.Values[i][j] != want[i][j] {
				t.Errorf("Values[%d][%d] = %v, want %v", i, j, d.Values[i][j], want[i][j])
			}
		}
	}
}

func TestFromFactorSingleLevel(t *testing.T) {
	// One level collapses to the intercept-only design (p = 1)
	f := mustFactor(t, "stage", []string{"E1", "E1", "E1"})

	d, err := FromFactor(f)
	if err != nil {
		t.Fatalf("FromFactor: %v", err)
	}
	if d.ColumnCount() != 1 {
		t.Fatalf("ColumnCount = %d, want 1", d.ColumnCount())
	}
	if d.Columns[0] != "(Intercept)" {
		t.Errorf("Columns[0] = %q, want (Intercept)", d.Columns[0])
	}
	for i := 0; i < d.RowCount(); i++ {
		if d.Values[i][0] != 1 {
			t.Errorf("Values[%d][0] = %v, want 1", i, d.Values[i][0])
		}
	}
}

func TestNewValidatesShape(t *testing.T) {
	if _, err := New(nil, [][]float64{{1}}); err == nil {
		t.Error("Expected error for empty column list")
	}
	if _, err := New([]string{"a"}, nil); err == nil {
		t.Error("Expected error for empty row list")
	}
	if _, err := New([]string{"a", ""}, [][]float64{{1, 2}}); err == nil {
		t.Error("Expected error for empty column name")
	}
	if _, err := New([]string{"a", "b"}, [][]float64{{1, 2}, {3}}); err == nil {
		t.Error("Expected error for ragged rows")
	}
}

func TestNewDetectsIntercept(t *testing.T) {
	withOnes, err := New([]string{"c0", "c1"}, [][]float64{{1, 2}, {1, 5}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !withOnes.HasIntercept {
		t.Error("All-ones first column should be detected as intercept")
	}

	without, err := New([]string{"c0", "c1"}, [][]float64{{1, 2}, {0, 5}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if without.HasIntercept {
		t.Error("First column with zeros should not be detected as intercept")
	}
}

func TestFingerprintTracksDesign(t *testing.T) {
	f := mustFactor(t, "stage", []string{"E1", "E2"})
	d1, err := FromFactor(f)
	if err != nil {
		t.Fatalf("FromFactor: %v", err)
	}
	d2, err := FromFactor(f)
	if err != nil {
		t.Fatalf("FromFactor: %v", err)
	}
	if d1.Fingerprint != d2.Fingerprint {
		t.Error("Identical factors should produce identical design fingerprints")
	}

	g := mustFactor(t, "stage", []string{"E2", "E1"})
	d3, err := FromFactor(g)
	if err != nil {
		t.Fatalf("FromFactor: %v", err)
	}
	if d1.Fingerprint == d3.Fingerprint {
		t.Error("Different assignment orders should change the fingerprint")
	}
}
