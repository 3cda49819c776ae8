package cmd

import (
	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/deploy"
	"github.com/cruciblelabs/crucible/internal/evaluate"
	"github.com/cruciblelabs/crucible/internal/generator"
	"github.com/cruciblelabs/crucible/internal/matrix"
	"github.com/cruciblelabs/crucible/internal/metrics"
	"github.com/cruciblelabs/crucible/internal/pipeline"
	"github.com/cruciblelabs/crucible/internal/research"
	"github.com/cruciblelabs/crucible/internal/sandbox"
	"github.com/cruciblelabs/crucible/internal/synthesis"
)

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// buildEngine assembles the pipeline from configuration: external service
// clients, the Docker-backed extractor, the matrix runner, and the evaluator.
func buildEngine(cfg *config.Config, logger *zap.Logger) *pipeline.Engine {
	timeout := cfg.Services.Timeout()

	extractor := metrics.NewExtractor(sandbox.Docker{}, cfg.Sandbox, logger)
	runner := matrix.NewRunner(
		generator.NewClient(cfg.Services.GeneratorURL, cfg.Experiment.CellTimeout()),
		cfg.Experiment,
		logger,
	)

	return pipeline.New(pipeline.Options{
		Store:       pipeline.NewStore(cfg.Results.RetainedRuns),
		Researcher:  research.NewClient(cfg.Services.ResearchURL, timeout),
		Synthesizer: synthesis.NewClient(cfg.Services.SynthesisURL, timeout),
		Runner:      runner,
		Evaluator:   evaluate.New(extractor, cfg.Scoring, logger),
		Deployer:    deploy.NewClient(cfg.Services.DeployURL, timeout, logger),
		Categories:  matrix.Categories(cfg.Experiment),
		ResultsDir:  cfg.Results.Dir,
		Logger:      logger,
	})
}
