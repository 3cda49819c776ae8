package config_test

import (
	"testing"
	"time"

	"github.com/cruciblelabs/crucible/internal/config"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Services.GeneratorURL != "http://localhost:9001" {
		t.Errorf("generator_url: got %q", cfg.Services.GeneratorURL)
	}
	if len(cfg.Experiment.Baselines) != 1 || cfg.Experiment.Baselines[0] != "o3" {
		t.Errorf("baselines: got %v", cfg.Experiment.Baselines)
	}
	// Defaults fill in everything the file omits.
	if cfg.Experiment.Parallel != 2 {
		t.Errorf("expected default parallel 2, got %d", cfg.Experiment.Parallel)
	}
	if cfg.Experiment.CellTimeout() != 15*time.Minute {
		t.Errorf("expected default cell timeout 15m, got %s", cfg.Experiment.CellTimeout())
	}
	if cfg.Sandbox.Image != "python:3.12-slim" {
		t.Errorf("expected default sandbox image, got %q", cfg.Sandbox.Image)
	}
	if cfg.Results.Dir != "results" {
		t.Errorf("expected default results dir, got %q", cfg.Results.Dir)
	}
	if cfg.Results.RetainedRuns != 100 {
		t.Errorf("expected default retained_runs 100, got %d", cfg.Results.RetainedRuns)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("testdata/full.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Services.ResearchURL == "" || cfg.Services.DeployURL == "" {
		t.Error("expected all service urls to be set")
	}
	if cfg.Services.Timeout() != 120*time.Second {
		t.Errorf("expected 120s service timeout, got %s", cfg.Services.Timeout())
	}
	if len(cfg.Experiment.Variants) != 2 || len(cfg.Experiment.Bases) != 2 {
		t.Errorf("cross product: got %v x %v", cfg.Experiment.Variants, cfg.Experiment.Bases)
	}
	if cfg.Experiment.Parallel != 4 {
		t.Errorf("expected parallel 4, got %d", cfg.Experiment.Parallel)
	}
	if cfg.Sandbox.TestCmd != "npm test" {
		t.Errorf("expected npm test, got %q", cfg.Sandbox.TestCmd)
	}
	if cfg.Sandbox.Timeout() != 600*time.Second {
		t.Errorf("expected 600s sandbox timeout, got %s", cfg.Sandbox.Timeout())
	}
	if cfg.Scoring.ComplexityBonus != 20.0 {
		t.Errorf("expected complexity bonus 20, got %f", cfg.Scoring.ComplexityBonus)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server: got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := config.Load("testdata/invalid.yaml")
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadMissingGenerator(t *testing.T) {
	_, err := config.Load("testdata/no_generator.yaml")
	if err == nil {
		t.Error("expected error when generator_url is absent")
	}
}

func TestLoadNoCells(t *testing.T) {
	// Variants without bases cannot form a cross product, and there are no
	// baselines, so the matrix would be empty.
	_, err := config.Load("testdata/no_cells.yaml")
	if err == nil {
		t.Error("expected error when no cells can be enumerated")
	}
}
