package linmod

import (
	"fmt"
	"strings"
	"testing"

	"diffex/domain/core"
)

func TestErrorMessagesCarryContext(t *testing.T) {
	singular := &SingularDesignError{Rows: 20, Cols: 5}
	if !strings.Contains(singular.Error(), "20x5") {
		t.Errorf("SingularDesignError should name dimensions: %s", singular.Error())
	}

	invalid := &InvalidResponseError{Key: core.ProbesetKey("1007_s_at"), Column: 3, Row: 7}
	if !strings.Contains(invalid.Error(), "1007_s_at") {
		t.Errorf("InvalidResponseError should name the probeset: %s", invalid.Error())
	}

	anonymous := &InvalidResponseError{Column: 3, Row: 7}
	if !strings.Contains(anonymous.Error(), "column 3") {
		t.Errorf("InvalidResponseError without a key should name the column: %s", anonymous.Error())
	}

	mismatch := &DimensionMismatchError{DesignRows: 20, ResponseRows: 19}
	if !strings.Contains(mismatch.Error(), "20") || !strings.Contains(mismatch.Error(), "19") {
		t.Errorf("DimensionMismatchError should name both row counts: %s", mismatch.Error())
	}
}

func TestErrorHelpersMatchWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("summarize: %w", &SingularDesignError{Rows: 4, Cols: 4})
	if !IsSingularDesign(wrapped) {
		t.Error("IsSingularDesign should match through wrapping")
	}
	if IsInvalidResponse(wrapped) {
		t.Error("IsInvalidResponse should not match a singular-design error")
	}

	if !IsDimensionMismatch(fmt.Errorf("x: %w", &DimensionMismatchError{DesignRows: 2, ResponseRows: 3})) {
		t.Error("IsDimensionMismatch should match through wrapping")
	}
	if !IsDegreesOfFreedom(fmt.Errorf("x: %w", &DegreesOfFreedomError{N: 3, P: 5})) {
		t.Error("IsDegreesOfFreedom should match through wrapping")
	}
	if !IsInvalidResponse(fmt.Errorf("x: %w", &InvalidResponseError{Column: 0, Row: 0})) {
		t.Error("IsInvalidResponse should match through wrapping")
	}
}

func TestSummaryResultCoefficientIndex(t *testing.T) {
	s := &SummaryResult{CoefficientNames: []string{"(Intercept)", "stageE2", "stageE3"}}

	j, ok := s.CoefficientIndex("stageE3")
	if !ok || j != 2 {
		t.Errorf("CoefficientIndex(stageE3) = (%d,%v), want (2,true)", j, ok)
	}
	if _, ok := s.CoefficientIndex("missing"); ok {
		t.Error("CoefficientIndex should report unknown names")
	}
}
