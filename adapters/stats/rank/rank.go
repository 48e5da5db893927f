package rank

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"diffex/domain/core"
	"diffex/domain/expression"
	"diffex/domain/linmod"
)

// RankEngine orders probesets by moderated evidence for one coefficient and
// attaches Benjamini-Hochberg q-values. Ties on p-value break by absolute
// moderated t, then by probeset key so output is deterministic.
type RankEngine struct{}

// NewRankEngine creates a ranking engine
func NewRankEngine() *RankEngine {
	return &RankEngine{}
}

// Table builds the ranked table for one named coefficient. The expression
// matrix supplies per-probeset average expression for the table; it must be
// the same matrix the summary was fitted from.
func (e *RankEngine) Table(ctx context.Context, summary *linmod.SummaryResult, shrink *linmod.ShrinkageResult, em *expression.Matrix, coefficient string) (*linmod.RankedTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k, ok := summary.CoefficientIndex(coefficient)
	if !ok {
		return nil, core.NewValidationError("coefficient", "not present in summary: "+coefficient)
	}

	m := summary.ResponseCount()
	if len(shrink.ModeratedT) != m || len(shrink.PValues) != m {
		return nil, core.NewValidationError("shrinkage", "does not match summary response count")
	}
	if em.ProbesetCount() != m {
		return nil, core.NewValidationError("expression", "does not match summary response count")
	}

	rows := make([]linmod.RankedRow, m)
	for j := 0; j < m; j++ {
		avg, _ := stats.Mean(em.Column(j))
		rows[j] = linmod.RankedRow{
			Key:        summary.Keys[j],
			Effect:     summary.Coefficients[j][k].Estimate,
			AvgExpr:    avg,
			ModeratedT: shrink.ModeratedT[j][k],
			PValue:     shrink.PValues[j][k],
		}
	}

	sort.Slice(rows, func(a, b int) bool {
		return rowLess(rows[a], rows[b])
	})

	qs := benjaminiHochberg(rows)
	for j := range rows {
		rows[j].QValue = qs[j]
		rows[j].Rank = j + 1
	}

	return &linmod.RankedTable{Coefficient: coefficient, Rows: rows}, nil
}

// rowLess orders by p-value ascending with NaN last, breaking ties by
// absolute moderated t descending, then key.
func rowLess(a, b linmod.RankedRow) bool {
	an, bn := math.IsNaN(a.PValue), math.IsNaN(b.PValue)
	switch {
	case an && bn:
		return a.Key < b.Key
	case an:
		return false
	case bn:
		return true
	}
	if a.PValue != b.PValue {
		return a.PValue < b.PValue
	}
	aa, ba := math.Abs(a.ModeratedT), math.Abs(b.ModeratedT)
	if aa != ba {
		return aa > ba
	}
	return a.Key < b.Key
}

// benjaminiHochberg adjusts p-values for multiple testing. Rows must already
// be sorted ascending with NaN p-values last; NaN rows are excluded from the
// effective test count and keep NaN.
func benjaminiHochberg(rows []linmod.RankedRow) []float64 {
	qs := make([]float64, len(rows))

	valid := 0
	for _, r := range rows {
		if !math.IsNaN(r.PValue) {
			valid++
		}
	}

	running := math.Inf(1)
	for i := len(rows) - 1; i >= 0; i-- {
		p := rows[i].PValue
		if math.IsNaN(p) {
			qs[i] = math.NaN()
			continue
		}
		q := p * float64(valid) / float64(i+1)
		if q < running {
			running = q
		}
		if running > 1 {
			qs[i] = 1
		} else {
			qs[i] = running
		}
	}
	return qs
}
