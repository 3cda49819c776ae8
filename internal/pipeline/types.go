// Package pipeline coordinates a workflow through the five fixed phases:
// research, synthesis, experiment, deploy, optimize. A single engine task
// drives phase transitions; callers poll for status.
package pipeline

import (
	"time"

	"github.com/cruciblelabs/crucible/internal/evaluate"
)

type Phase string

const (
	PhaseResearch   Phase = "research"
	PhaseSynthesis  Phase = "synthesis"
	PhaseExperiment Phase = "experiment"
	PhaseDeploy     Phase = "deploy"
	PhaseOptimize   Phase = "optimize"
)

// Phases returns the fixed phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseResearch, PhaseSynthesis, PhaseExperiment, PhaseDeploy, PhaseOptimize}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStopped    Status = "stopped"
)

// PhaseRecord marks a finished phase. SkipReason is set when the phase was
// recorded complete without running (the gated deploy case).
type PhaseRecord struct {
	Phase      Phase  `json:"phase"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Run is the workflow record. It is mutated only by the engine's own
// coordinating goroutine; everything handed to callers is a snapshot.
type Run struct {
	ID              string        `json:"workflow_id"`
	Status          Status        `json:"status"`
	PhasesCompleted []PhaseRecord `json:"phases_completed"`
	CurrentPhase    Phase         `json:"current_phase,omitempty"`
	Error           string        `json:"error,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         *time.Time    `json:"end_time,omitempty"`

	// Report is the experiment phase's evaluation outcome, exposed through
	// the report endpoint rather than the status snapshot.
	Report *evaluate.Report `json:"-"`
	RunDir string           `json:"-"`
}

// Terminal reports whether no further phase transitions may occur.
func (r *Run) Terminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// Completed reports whether the phase is already in PhasesCompleted.
func (r *Run) Completed(p Phase) bool {
	for _, rec := range r.PhasesCompleted {
		if rec.Phase == p {
			return true
		}
	}
	return false
}

// Clone returns an independent snapshot safe to hand across goroutines.
func (r *Run) Clone() *Run {
	cp := *r
	cp.PhasesCompleted = append([]PhaseRecord(nil), r.PhasesCompleted...)
	if r.EndTime != nil {
		end := *r.EndTime
		cp.EndTime = &end
	}
	return &cp
}
