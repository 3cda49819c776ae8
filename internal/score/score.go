// Package score ranks candidates. Test correctness dominates, structural
// simplicity earns a bonus with diminishing returns, and verbosity is
// mildly penalized. The comparison is a strict total order.
//
// Lower average complexity wins with other metrics held equal: the lines
// term is bounded to half a point, so it can tip the balance between
// candidates whose complexity bonus differs by less than that.
package score

import (
	"math"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/metrics"
)

// DefaultWeights: pass rate counts 1:1 on its 0-100 scale, a complexity-1
// function body earns a 10-point bonus shrinking toward zero as average
// complexity grows, and line count shifts the score by at most half a
// point either way.
var DefaultWeights = config.Scoring{
	PassRate:        1.0,
	ComplexityBonus: 20.0,
	LinesWeight:     0.5,
}

// noTestPenalty pushes candidates with zero discoverable tests below any
// candidate with a passing test, regardless of their other metrics.
const noTestPenalty = 100.0

func Score(m *metrics.MetricSet) float64 {
	return ScoreWith(DefaultWeights, m)
}

func ScoreWith(w config.Scoring, m *metrics.MetricSet) float64 {
	if w.PassRate == 0 && w.ComplexityBonus == 0 && w.LinesWeight == 0 {
		w = DefaultWeights
	}
	if m == nil {
		return -noTestPenalty
	}

	s := 0.0
	if m.TestPassRate != nil {
		s += *m.TestPassRate * w.PassRate
	}
	if m.CyclomaticComplexity != nil && *m.CyclomaticComplexity >= 0 {
		s += w.ComplexityBonus / (1 + *m.CyclomaticComplexity)
	}
	if m.TotalLines != nil {
		s += w.LinesWeight * lineAdjustment(float64(*m.TotalLines))
	}
	if m.Tests() == 0 {
		s -= noTestPenalty
	}
	return s
}

// lineAdjustment rewards substance up to 600 lines and penalizes bloat
// past 2000, both clamped to one unit.
func lineAdjustment(lines float64) float64 {
	reward := math.Min(lines, 600) / 600
	penalty := math.Min(math.Max(0, lines-2000)/2000, 1)
	return reward - penalty
}

// Ranked pairs a scored cell with its tie-break keys.
type Ranked struct {
	Identifier string
	Category   string
	TestCount  int
	Score      float64
}

// Better reports whether r strictly outranks o: score first, then test
// count descending, then identifier ascending. Two distinct cells never
// compare equal.
func (r Ranked) Better(o Ranked) bool {
	if r.Score != o.Score {
		return r.Score > o.Score
	}
	if r.TestCount != o.TestCount {
		return r.TestCount > o.TestCount
	}
	return r.Identifier < o.Identifier
}
