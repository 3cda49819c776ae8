package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/evaluate"
	"github.com/cruciblelabs/crucible/internal/matrix"
	"github.com/cruciblelabs/crucible/internal/report"
)

// Researcher normalizes a topic description into research context.
type Researcher interface {
	Normalize(ctx context.Context, description string) (string, error)
}

// Synthesizer turns research context into the prompt context handed to the
// generator.
type Synthesizer interface {
	Synthesize(ctx context.Context, researchContext string) (string, error)
}

// MatrixRunner fans generation out over the experiment cells.
type MatrixRunner interface {
	Run(ctx context.Context, runDir string, cats []matrix.Category, promptContext string) []*matrix.Cell
}

// Evaluator scores cells and selects winners.
type Evaluator interface {
	Evaluate(ctx context.Context, cells []*matrix.Cell) *evaluate.Report
}

// Deployer triggers deployment of the winning artifact; fire-and-
// acknowledge, the engine does not wait for deployment completion.
type Deployer interface {
	Trigger(ctx context.Context, artifactPath, category, identifier string, score float64) error
}

type Options struct {
	Store       *Store
	Researcher  Researcher
	Synthesizer Synthesizer
	Runner      MatrixRunner
	Evaluator   Evaluator
	Deployer    Deployer
	Categories  []matrix.Category
	ResultsDir  string
	Logger      *zap.Logger
}

// Engine is the phase state machine. One goroutine per workflow drives the
// transitions; Status and Stop are safe to call from anywhere.
type Engine struct {
	store       *Store
	researcher  Researcher
	synthesizer Synthesizer
	runner      MatrixRunner
	evaluator   Evaluator
	deployer    Deployer
	categories  []matrix.Category
	resultsDir  string
	logger      *zap.Logger
}

func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = NewStore(0)
	}
	return &Engine{
		store:       store,
		researcher:  opts.Researcher,
		synthesizer: opts.Synthesizer,
		runner:      opts.Runner,
		evaluator:   opts.Evaluator,
		deployer:    opts.Deployer,
		categories:  opts.Categories,
		resultsDir:  opts.ResultsDir,
		logger:      logger,
	}
}

// Start registers a new workflow and begins driving it. The returned
// snapshot already reflects the transition into processing.
func (e *Engine) Start(description string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		StartTime: time.Now().UTC(),
	}
	e.store.Add(run)
	if err := e.store.Update(run.ID, func(r *Run) {
		r.Status = StatusProcessing
		r.CurrentPhase = PhaseResearch
	}); err != nil {
		return nil, err
	}
	workflowsStarted.Inc()
	e.logger.Info("workflow started", zap.String("workflow_id", run.ID))

	go e.drive(run.ID, description)
	return e.store.Get(run.ID)
}

// Status returns a consistent snapshot of the workflow.
func (e *Engine) Status(id string) (*Run, error) {
	return e.store.Get(id)
}

// Stop is advisory: the workflow stops before its next phase transition,
// but in-flight phase work runs to completion.
func (e *Engine) Stop(id string) (*Run, error) {
	err := e.store.Update(id, func(r *Run) {
		if r.Status == StatusPending || r.Status == StatusProcessing {
			r.Status = StatusStopped
			r.CurrentPhase = ""
			now := time.Now().UTC()
			r.EndTime = &now
		}
	})
	if err != nil {
		return nil, err
	}
	return e.store.Get(id)
}

// Report returns the workflow's evaluation report once the experiment
// phase has produced one.
func (e *Engine) Report(id string) (*evaluate.Report, error) {
	run, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if run.Report == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNoReport)
	}
	return run.Report, nil
}

func (e *Engine) drive(id, description string) {
	ctx := context.Background()
	var researchCtx, promptCtx string

	for _, phase := range Phases() {
		proceed, err := e.beginPhase(id, phase)
		if err != nil {
			e.fail(id, phase, err)
			return
		}
		if !proceed {
			e.logger.Info("workflow stopped before phase",
				zap.String("workflow_id", id), zap.String("phase", string(phase)))
			return
		}

		var phaseErr error
		var skipReason string
		switch phase {
		case PhaseResearch:
			researchCtx, phaseErr = e.researcher.Normalize(ctx, description)
		case PhaseSynthesis:
			promptCtx, phaseErr = e.synthesizer.Synthesize(ctx, researchCtx)
		case PhaseExperiment:
			phaseErr = e.runExperiment(ctx, id, promptCtx)
		case PhaseDeploy:
			skipReason, phaseErr = e.runDeploy(ctx, id)
		case PhaseOptimize:
			phaseErr = e.runOptimize(id)
		}
		if phaseErr != nil {
			e.fail(id, phase, phaseErr)
			return
		}
		e.completePhase(id, phase, skipReason)
	}

	completed := false
	e.store.Update(id, func(r *Run) {
		if r.Status == StatusStopped {
			return
		}
		r.Status = StatusCompleted
		r.CurrentPhase = ""
		now := time.Now().UTC()
		r.EndTime = &now
		completed = true
	})
	if !completed {
		return
	}
	workflowsCompleted.Inc()
	e.logger.Info("workflow completed", zap.String("workflow_id", id))
}

// beginPhase marks the phase current. It refuses to transition a terminal
// run: stopped means quietly cease, anything else from a terminal state is
// an internal invariant violation.
func (e *Engine) beginPhase(id string, phase Phase) (proceed bool, err error) {
	uerr := e.store.Update(id, func(r *Run) {
		if r.Status == StatusStopped {
			return
		}
		if r.Terminal() {
			err = fmt.Errorf("phase %s attempted on terminal workflow (status %s)", phase, r.Status)
			return
		}
		if r.Completed(phase) {
			err = fmt.Errorf("phase %s attempted twice", phase)
			return
		}
		r.CurrentPhase = phase
		proceed = true
	})
	if uerr != nil {
		return false, uerr
	}
	return proceed, err
}

func (e *Engine) completePhase(id string, phase Phase, skipReason string) {
	e.store.Update(id, func(r *Run) {
		// Stop may have landed while the phase was in flight. The run is
		// already terminal; its record stays as Stop left it.
		if r.Status == StatusStopped {
			return
		}
		r.PhasesCompleted = append(r.PhasesCompleted, PhaseRecord{Phase: phase, SkipReason: skipReason})
		r.CurrentPhase = ""
	})
	e.logger.Info("phase completed",
		zap.String("workflow_id", id),
		zap.String("phase", string(phase)),
		zap.String("skip_reason", skipReason))
}

func (e *Engine) fail(id string, phase Phase, cause error) {
	failed := false
	e.store.Update(id, func(r *Run) {
		if r.Status == StatusStopped {
			return
		}
		r.Status = StatusFailed
		r.Error = fmt.Sprintf("%s phase: %v", phase, cause)
		r.CurrentPhase = ""
		now := time.Now().UTC()
		r.EndTime = &now
		failed = true
	})
	if !failed {
		e.logger.Info("phase error discarded on stopped workflow",
			zap.String("workflow_id", id),
			zap.String("phase", string(phase)),
			zap.Error(cause))
		return
	}
	workflowsFailed.Inc()
	e.logger.Error("workflow failed",
		zap.String("workflow_id", id),
		zap.String("phase", string(phase)),
		zap.Error(cause))
}

func (e *Engine) runExperiment(ctx context.Context, id, promptCtx string) error {
	runDir, err := matrix.CreateRunDir(e.resultsDir)
	if err != nil {
		return err
	}
	e.store.Update(id, func(r *Run) { r.RunDir = runDir })

	cells := e.runner.Run(ctx, runDir, e.categories, promptCtx)
	rep := e.evaluator.Evaluate(ctx, cells)

	if err := report.WriteArtifacts(runDir, rep); err != nil {
		return err
	}
	return e.store.Update(id, func(r *Run) { r.Report = rep })
}

func (e *Engine) runDeploy(ctx context.Context, id string) (skipReason string, err error) {
	run, err := e.store.Get(id)
	if err != nil {
		return "", err
	}
	rep := run.Report
	if !rep.HasWinner() {
		return "skipped: no valid winner", nil
	}
	winner := rep.WinnerCell()
	if winner == nil {
		return "", fmt.Errorf("overall winner %s not found among cells", rep.OverallBest.CellIdentifier)
	}
	return "", e.deployer.Trigger(ctx,
		winner.ArtifactPath, winner.Category, winner.Identifier, rep.OverallBest.Score)
}

// runOptimize records the evaluation outcome as feedback for the next
// research cycle.
func (e *Engine) runOptimize(id string) error {
	run, err := e.store.Get(id)
	if err != nil {
		return err
	}
	feedback := struct {
		WorkflowID      string                           `json:"workflow_id"`
		GeneratedAt     time.Time                        `json:"generated_at"`
		OverallBest     *evaluate.ScoreResult            `json:"overall_best,omitempty"`
		PerCategoryBest map[string]evaluate.ScoreResult  `json:"per_category_best,omitempty"`
	}{
		WorkflowID:  id,
		GeneratedAt: time.Now().UTC(),
	}
	if run.Report != nil {
		feedback.OverallBest = run.Report.OverallBest
		feedback.PerCategoryBest = run.Report.PerCategoryBest
	}
	data, err := json.MarshalIndent(feedback, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling feedback: %w", err)
	}
	if err := os.WriteFile(filepath.Join(run.RunDir, "feedback.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing feedback: %w", err)
	}
	return nil
}
