package metrics

import (
	"context"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/sandbox"
)

// Extractor measures one candidate artifact directory. Static counts come
// from a read-only pass over the sources; test and lint results from the
// sandbox. Pure over the directory snapshot apart from those sandboxed runs.
type Extractor struct {
	Sandbox sandbox.Runner
	Cfg     config.Sandbox
	Logger  *zap.Logger
}

func NewExtractor(runner sandbox.Runner, cfg config.Sandbox, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Sandbox: runner, Cfg: cfg, Logger: logger}
}

// Extract returns the MetricSet for the artifact at dir. A missing or empty
// directory yields an ExtractionError of KindNotFound; a test run that
// cannot execute (or times out) yields KindUnrunnable carrying the static
// partial. Neither aborts the caller's batch.
func (e *Extractor) Extract(ctx context.Context, dir string) (*MetricSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return nil, &ExtractionError{Kind: KindNotFound, Path: dir}
	}

	m := &MetricSet{LintStatus: LintUnknown}

	counts, err := analyzeStatic(dir)
	if err == nil && counts.Files > 0 {
		m.FilesAnalyzed = intp(counts.Files)
		m.TotalLines = intp(counts.Lines)
		m.FunctionsCount = intp(counts.Functions)
		m.ClassesCount = intp(counts.Classes)
		if counts.Functions > 0 {
			avg := counts.AvgComplexity()
			m.CyclomaticComplexity = &avg
		}
	}

	if info, err := os.Stat(filepath.Join(dir, "Dockerfile")); err == nil && !info.IsDir() {
		m.PackagingExists = true
		m.PackagingSize = units.HumanSize(float64(info.Size()))
	}

	if e.Sandbox == nil {
		return m, nil
	}

	if err := e.runTests(ctx, dir, m); err != nil {
		return nil, err
	}
	e.runLint(ctx, dir, m)
	return m, nil
}

func (e *Extractor) runTests(ctx context.Context, dir string, m *MetricSet) error {
	if e.Cfg.InstallCmd != "" {
		// Install failure shows up as an unrunnable test step next; no
		// separate handling needed here.
		e.shell(ctx, dir, e.Cfg.InstallCmd)
	}

	testCmd := e.Cfg.TestCmd
	if testCmd == "" {
		testCmd = detectTestCommand(dir)
	}
	res, err := e.shell(ctx, dir, testCmd)
	if err != nil {
		return &ExtractionError{Kind: KindUnrunnable, Path: dir, Reason: err.Error(), Partial: m}
	}
	if res.TimedOut {
		return &ExtractionError{Kind: KindUnrunnable, Path: dir, Reason: "test run timed out", Partial: m}
	}

	summary := parseTestOutput(res.Output)
	if !summary.Found {
		if res.ExitCode != 0 {
			return &ExtractionError{Kind: KindUnrunnable, Path: dir, Reason: "test runner produced no results", Partial: m}
		}
		// ran clean but reported nothing countable
		m.TestCount = intp(0)
		return nil
	}
	m.TestCount = intp(summary.Total())
	rate := summary.PassRate()
	m.TestPassRate = &rate
	return nil
}

func (e *Extractor) runLint(ctx context.Context, dir string, m *MetricSet) {
	if e.Cfg.LintCmd == "" {
		return
	}
	res, err := e.shell(ctx, dir, e.Cfg.LintCmd)
	if err != nil || res.TimedOut {
		e.Logger.Warn("lint unrunnable", zap.String("dir", dir), zap.Error(err))
		return
	}
	if res.ExitCode == 0 {
		m.LintStatus = LintPassed
	} else {
		m.LintStatus = LintFailed
	}
}

func (e *Extractor) shell(ctx context.Context, dir, command string) (*sandbox.Result, error) {
	return e.Sandbox.Run(ctx, &sandbox.RunOpts{
		Image:   e.Cfg.Image,
		Command: []string{"sh", "-c", command},
		WorkDir: dir,
		Timeout: e.Cfg.Timeout(),
	})
}

func detectTestCommand(dir string) string {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return "npm test"
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return "go test -v ./..."
	}
	return "python -m pytest -q"
}

func intp(v int) *int { return &v }
