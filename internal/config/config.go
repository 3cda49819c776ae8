package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Services   Services   `yaml:"services"`
	Experiment Experiment `yaml:"experiment"`
	Sandbox    Sandbox    `yaml:"sandbox"`
	Scoring    Scoring    `yaml:"scoring"`
	Results    Results    `yaml:"results"`
	Server     Server     `yaml:"server"`
}

// Services holds endpoints for the external collaborators the pipeline
// delegates to. deploy_url may be empty; the deploy trigger then reports
// an error and the workflow fails rather than silently succeeding.
type Services struct {
	ResearchURL   string `yaml:"research_url"`
	SynthesisURL  string `yaml:"synthesis_url"`
	GeneratorURL  string `yaml:"generator_url"`
	DeployURL     string `yaml:"deploy_url"`
	TimeoutSecond int    `yaml:"timeout_s"`
}

// Experiment describes the generation matrix: baseline entries evaluated
// as-is, plus the cross product of variants and bases.
type Experiment struct {
	Baselines      []string `yaml:"baselines"`
	Variants       []string `yaml:"variants"`
	Bases          []string `yaml:"bases"`
	Parallel       int      `yaml:"parallel"`
	CellTimeoutMin int      `yaml:"cell_timeout_minutes"`
}

type Sandbox struct {
	Image          string `yaml:"image"`
	InstallCmd     string `yaml:"install_cmd"`
	TestCmd        string `yaml:"test_cmd"`
	LintCmd        string `yaml:"lint_cmd"`
	TimeoutSeconds int    `yaml:"timeout_s"`
}

// Scoring weights. Zero values fall back to the defaults in the score
// package, same as leaving the section out entirely.
type Scoring struct {
	PassRate        float64 `yaml:"pass_rate"`
	ComplexityBonus float64 `yaml:"complexity_bonus"`
	LinesWeight     float64 `yaml:"lines_weight"`
}

type Results struct {
	Dir          string `yaml:"dir"`
	RetainedRuns int    `yaml:"retained_runs"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Services.GeneratorURL == "" {
		return fmt.Errorf("services.generator_url is required")
	}
	if len(cfg.Experiment.Baselines) == 0 && (len(cfg.Experiment.Variants) == 0 || len(cfg.Experiment.Bases) == 0) {
		return fmt.Errorf("experiment: need baselines or a variants/bases cross product")
	}
	if cfg.Services.TimeoutSecond <= 0 {
		cfg.Services.TimeoutSecond = 60
	}
	if cfg.Experiment.Parallel <= 0 {
		cfg.Experiment.Parallel = 2
	}
	if cfg.Experiment.CellTimeoutMin <= 0 {
		cfg.Experiment.CellTimeoutMin = 15
	}
	if cfg.Sandbox.Image == "" {
		cfg.Sandbox.Image = "python:3.12-slim"
	}
	if cfg.Sandbox.TimeoutSeconds <= 0 {
		cfg.Sandbox.TimeoutSeconds = 300
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Results.RetainedRuns <= 0 {
		cfg.Results.RetainedRuns = 100
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	return nil
}

func (s *Services) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecond) * time.Second
}

func (e *Experiment) CellTimeout() time.Duration {
	return time.Duration(e.CellTimeoutMin) * time.Minute
}

func (s *Sandbox) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
