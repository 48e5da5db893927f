package expression

import (
	"fmt"

	"diffex/domain/core"
)

// Factor is a categorical covariate over samples: one level assignment per
// sample, in sample order. The first level is the reference level for
// treatment-contrast coding.
type Factor struct {
	Name        string
	Levels      []string // ordered unique levels
	Assignments []string // per-sample level, parallel to matrix sample order
}

// NewFactor builds a factor from per-sample assignments, deriving the level
// order from first appearance.
func NewFactor(name string, assignments []string) (*Factor, error) {
	if name == "" {
		return nil, core.NewValidationError("factor", "name cannot be empty")
	}
	if len(assignments) == 0 {
		return nil, core.NewInsufficientDataError("factor has no sample assignments")
	}

	seen := make(map[string]bool)
	levels := make([]string, 0, 4)
	for i, a := range assignments {
		if a == "" {
			return nil, core.NewValidationError("factor",
				fmt.Sprintf("sample %d has an empty level", i))
		}
		if !seen[a] {
			seen[a] = true
			levels = append(levels, a)
		}
	}

	return &Factor{Name: name, Levels: levels, Assignments: assignments}, nil
}

// NewFactorWithLevels builds a factor with an explicit level order. Every
// assignment must name a declared level.
func NewFactorWithLevels(name string, levels []string, assignments []string) (*Factor, error) {
	f, err := NewFactor(name, assignments)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, core.NewValidationError("factor", "level list cannot be empty")
	}

	index := make(map[string]bool, len(levels))
	for _, l := range levels {
		if l == "" {
			return nil, core.NewValidationError("factor", "level name cannot be empty")
		}
		if index[l] {
			return nil, core.NewValidationError("factor",
				fmt.Sprintf("duplicate level %q", l))
		}
		index[l] = true
	}
	for i, a := range assignments {
		if !index[a] {
			return nil, core.NewValidationError("factor",
				fmt.Sprintf("sample %d assigned to undeclared level %q", i, a))
		}
	}

	f.Levels = levels
	return f, nil
}

// Len returns the number of sample assignments
func (f *Factor) Len() int {
	return len(f.Assignments)
}

// LevelCount returns the number of distinct levels
func (f *Factor) LevelCount() int {
	return len(f.Levels)
}

// LevelIndex returns the position of a level in the declared order
func (f *Factor) LevelIndex(level string) (int, bool) {
	for i, l := range f.Levels {
		if l == level {
			return i, true
		}
	}
	return -1, false
}

// Indexes returns the per-sample level index, parallel to Assignments
func (f *Factor) Indexes() []int {
	idx := make([]int, len(f.Assignments))
	for i, a := range f.Assignments {
		j, _ := f.LevelIndex(a)
		idx[i] = j
	}
	return idx
}

// Counts returns the number of samples assigned to each level, in level order
func (f *Factor) Counts() []int {
	counts := make([]int, len(f.Levels))
	for _, j := range f.Indexes() {
		counts[j]++
	}
	return counts
}
