// Package matrix enumerates the experiment cells and fans generation out
// across them. A cell failure is recorded on the cell, never raised; one
// bad generation cannot abort the batch.
package matrix

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/metrics"
)

type CellStatus string

const (
	StatusPending   CellStatus = "pending"
	StatusExtracted CellStatus = "extracted"
	StatusMissing   CellStatus = "missing"
	StatusErrored   CellStatus = "errored"
)

// Cell is one (category, identifier) unit of generated work.
// ArtifactPath is assigned once at enumeration time.
type Cell struct {
	Category     string              `json:"category"`
	Identifier   string              `json:"identifier"`
	ArtifactPath string              `json:"artifact_path"`
	Metrics      *metrics.MetricSet  `json:"metrics,omitempty"`
	Status       CellStatus          `json:"status"`
	Error        string              `json:"error,omitempty"`
}

type Category struct {
	Name    string
	Members []string
}

// Categories assembles the experiment's category set: the configured
// baselines, plus every variant paired with every base.
func Categories(exp config.Experiment) []Category {
	var cats []Category
	if len(exp.Baselines) > 0 {
		cats = append(cats, Category{Name: "baseline", Members: append([]string(nil), exp.Baselines...)})
	}
	var crossed []string
	for _, v := range exp.Variants {
		for _, b := range exp.Bases {
			crossed = append(crossed, v+"+"+b)
		}
	}
	if len(crossed) > 0 {
		cats = append(cats, Category{Name: "cross", Members: crossed})
	}
	return cats
}

// Generator is the external implementation-generator boundary. A call
// produces the artifact directory for one cell, or fails.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) error
}

type GenerateRequest struct {
	Category     string `json:"category"`
	Identifier   string `json:"identifier"`
	Context      string `json:"context"`
	ArtifactPath string `json:"artifact_path"`
}

type Runner struct {
	Generator   Generator
	Parallel    int
	CellTimeout time.Duration
	Logger      *zap.Logger
}

func NewRunner(gen Generator, exp config.Experiment, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Generator:   gen,
		Parallel:    exp.Parallel,
		CellTimeout: exp.CellTimeout(),
		Logger:      logger,
	}
}

// Run enumerates every (category, identifier) pair, invokes the generator
// once per cell with bounded parallelism, and returns all cells. Cells
// whose generation failed or timed out come back as StatusErrored with the
// reason attached.
func (r *Runner) Run(ctx context.Context, runDir string, cats []Category, promptContext string) []*Cell {
	var cells []*Cell
	for _, cat := range cats {
		for _, id := range cat.Members {
			cells = append(cells, &Cell{
				Category:     cat.Name,
				Identifier:   id,
				ArtifactPath: filepath.Join(runDir, "cells", cat.Name, id),
				Status:       StatusPending,
			})
		}
	}

	jobs := make([]func(), len(cells))
	for i, cell := range cells {
		cell := cell
		jobs[i] = func() {
			r.generate(ctx, cell, promptContext)
		}
	}
	runPool(r.Parallel, jobs)
	return cells
}

func (r *Runner) generate(ctx context.Context, cell *Cell, promptContext string) {
	cellCtx, cancel := context.WithTimeout(ctx, r.CellTimeout)
	defer cancel()

	r.Logger.Info("generating cell",
		zap.String("category", cell.Category),
		zap.String("identifier", cell.Identifier))

	err := r.Generator.Generate(cellCtx, GenerateRequest{
		Category:     cell.Category,
		Identifier:   cell.Identifier,
		Context:      promptContext,
		ArtifactPath: cell.ArtifactPath,
	})
	if err != nil {
		cell.Status = StatusErrored
		cell.Error = fmt.Sprintf("generation failed: %v", err)
		r.Logger.Warn("cell generation failed",
			zap.String("category", cell.Category),
			zap.String("identifier", cell.Identifier),
			zap.Error(err))
	}
}
