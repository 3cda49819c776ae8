// Package evaluate scores every completed experiment cell and selects the
// per-category and overall winners. Failures stay on the cells as data;
// an experiment where nothing scored is a reportable outcome, not an error.
package evaluate

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/matrix"
	"github.com/cruciblelabs/crucible/internal/metrics"
	"github.com/cruciblelabs/crucible/internal/score"
)

// Extractor is the measurement boundary; satisfied by *metrics.Extractor.
type Extractor interface {
	Extract(ctx context.Context, dir string) (*metrics.MetricSet, error)
}

type ScoreResult struct {
	CellIdentifier string  `json:"cell_identifier"`
	Category       string  `json:"category"`
	Score          float64 `json:"score"`
}

type Report struct {
	// PerCategoryBest has no entry for a category where nothing scored.
	PerCategoryBest map[string]ScoreResult `json:"per_category_best"`
	// OverallBest is nil when no cell anywhere scored; that absence is
	// what gates the deploy phase.
	OverallBest *ScoreResult   `json:"overall_best,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Cells       []*matrix.Cell `json:"cells"`
}

// HasWinner reports whether a deployable candidate exists.
func (r *Report) HasWinner() bool { return r != nil && r.OverallBest != nil }

// WinnerCell returns the winning cell record, or nil without a winner.
func (r *Report) WinnerCell() *matrix.Cell {
	if !r.HasWinner() {
		return nil
	}
	for _, c := range r.Cells {
		if c.Category == r.OverallBest.Category && c.Identifier == r.OverallBest.CellIdentifier {
			return c
		}
	}
	return nil
}

type Evaluator struct {
	Extractor Extractor
	Weights   config.Scoring
	Logger    *zap.Logger
}

func New(ex Extractor, weights config.Scoring, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{Extractor: ex, Weights: weights, Logger: logger}
}

// Evaluate extracts metrics for every cell not already errored, scores the
// extracted ones, and picks winners. Idempotent over the same inputs.
func (e *Evaluator) Evaluate(ctx context.Context, cells []*matrix.Cell) *Report {
	rep := &Report{
		PerCategoryBest: map[string]ScoreResult{},
		GeneratedAt:     time.Now().UTC(),
		Cells:           cells,
	}

	type scored struct {
		ranked score.Ranked
		ok     bool
	}
	best := map[string]scored{}

	for _, cell := range cells {
		if cell.Status == matrix.StatusErrored {
			cellsFailed.Inc()
			continue
		}
		m, err := e.Extractor.Extract(ctx, cell.ArtifactPath)
		switch {
		case err == nil:
			cell.Metrics = m
			cell.Status = matrix.StatusExtracted
		case metrics.IsNotFound(err):
			cell.Status = matrix.StatusMissing
			cell.Error = err.Error()
			cellsFailed.Inc()
			continue
		case metrics.IsUnrunnable(err):
			// partial static measurements still count
			partial := err.(*metrics.ExtractionError).Partial
			if partial == nil {
				cell.Status = matrix.StatusErrored
				cell.Error = err.Error()
				cellsFailed.Inc()
				continue
			}
			cell.Metrics = partial
			cell.Status = matrix.StatusExtracted
			cell.Error = err.Error()
		default:
			cell.Status = matrix.StatusErrored
			cell.Error = err.Error()
			cellsFailed.Inc()
			continue
		}

		r := score.Ranked{
			Identifier: cell.Identifier,
			Category:   cell.Category,
			TestCount:  cell.Metrics.Tests(),
			Score:      score.ScoreWith(e.Weights, cell.Metrics),
		}
		cellsScored.Inc()
		e.Logger.Info("cell scored",
			zap.String("category", cell.Category),
			zap.String("identifier", cell.Identifier),
			zap.Float64("score", r.Score))

		cur, ok := best[cell.Category]
		if !ok || r.Better(cur.ranked) {
			best[cell.Category] = scored{ranked: r, ok: true}
		}
	}

	// deterministic winner selection across categories
	names := make([]string, 0, len(best))
	for name := range best {
		names = append(names, name)
	}
	sort.Strings(names)

	var overall *score.Ranked
	for _, name := range names {
		r := best[name].ranked
		rep.PerCategoryBest[name] = ScoreResult{
			CellIdentifier: r.Identifier,
			Category:       r.Category,
			Score:          r.Score,
		}
		if overall == nil || r.Better(*overall) {
			overall = &r
		}
	}
	if overall != nil {
		rep.OverallBest = &ScoreResult{
			CellIdentifier: overall.Identifier,
			Category:       overall.Category,
			Score:          overall.Score,
		}
	}
	return rep
}
