package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/sandbox"
)

type fakeSandbox struct {
	result *sandbox.Result
	err    error
	calls  []string
}

func (f *fakeSandbox) Run(ctx context.Context, opts *sandbox.RunOpts) (*sandbox.Result, error) {
	f.calls = append(f.calls, opts.Command[len(opts.Command)-1])
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func writeArtifact(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const pyModule = `# module under test
import os

def first(x):
    if x > 0:
        return x
    return -x

def second(items):
    for item in items:
        if item:
            yield item

class Thing:
    def third(self):
        return 1
`

func TestExtractNotFoundMissing(t *testing.T) {
	e := NewExtractor(nil, config.Sandbox{}, nil)
	_, err := e.Extract(context.Background(), "/nonexistent/path")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestExtractNotFoundEmpty(t *testing.T) {
	e := NewExtractor(nil, config.Sandbox{}, nil)
	_, err := e.Extract(context.Background(), t.TempDir())
	if !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestExtractStaticCounts(t *testing.T) {
	dir := writeArtifact(t, map[string]string{
		"main.py":    pyModule,
		"Dockerfile": "FROM python:3.12-slim\nCOPY . .\n",
	})
	e := NewExtractor(nil, config.Sandbox{}, nil)
	m, err := e.Extract(context.Background(), dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := *m.FilesAnalyzed; got != 1 {
		t.Errorf("files: got %d, want 1", got)
	}
	if got := *m.FunctionsCount; got != 3 {
		t.Errorf("functions: got %d, want 3", got)
	}
	if got := *m.ClassesCount; got != 1 {
		t.Errorf("classes: got %d, want 1", got)
	}
	if m.CyclomaticComplexity == nil || *m.CyclomaticComplexity <= 1.0 {
		t.Errorf("complexity: got %v, want > 1", m.CyclomaticComplexity)
	}
	if !m.PackagingExists || m.PackagingSize == "" {
		t.Errorf("packaging: got exists=%v size=%q", m.PackagingExists, m.PackagingSize)
	}
	if m.LintStatus != LintUnknown {
		t.Errorf("lint: got %q, want unknown", m.LintStatus)
	}
}

func TestExtractTestRun(t *testing.T) {
	dir := writeArtifact(t, map[string]string{"main.py": pyModule})
	sb := &fakeSandbox{result: &sandbox.Result{
		ExitCode: 1,
		Output:   "=========== 2 failed, 6 passed in 0.41s ===========",
	}}
	e := NewExtractor(sb, config.Sandbox{TestCmd: "pytest -q", TimeoutSeconds: 60}, nil)
	m, err := e.Extract(context.Background(), dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := *m.TestCount; got != 8 {
		t.Errorf("test count: got %d, want 8", got)
	}
	if got := *m.TestPassRate; got != 75.0 {
		t.Errorf("pass rate: got %f, want 75", got)
	}
}

func TestExtractGoCandidate(t *testing.T) {
	dir := writeArtifact(t, map[string]string{
		"go.mod":  "module example.com/mod\n\ngo 1.24\n",
		"main.go": "package main\n\nfunc main() {\n}\n",
	})
	sb := &fakeSandbox{result: &sandbox.Result{
		ExitCode: 0,
		Output: `=== RUN   TestAdd
--- PASS: TestAdd (0.00s)
=== RUN   TestSub
--- PASS: TestSub (0.00s)
PASS
ok  	example.com/mod	0.31s`,
	}}
	e := NewExtractor(sb, config.Sandbox{TimeoutSeconds: 60}, nil)
	m, err := e.Extract(context.Background(), dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := sb.calls[0]; got != "go test -v ./..." {
		t.Errorf("test command: got %q", got)
	}
	if got := *m.TestCount; got != 2 {
		t.Errorf("test count: got %d, want 2", got)
	}
	if got := *m.TestPassRate; got != 100.0 {
		t.Errorf("pass rate: got %f, want 100", got)
	}
}

func TestExtractUnrunnableKeepsPartial(t *testing.T) {
	dir := writeArtifact(t, map[string]string{"main.py": pyModule})
	sb := &fakeSandbox{err: errors.New("docker daemon unreachable")}
	e := NewExtractor(sb, config.Sandbox{TestCmd: "pytest -q"}, nil)
	_, err := e.Extract(context.Background(), dir)
	if !IsUnrunnable(err) {
		t.Fatalf("expected Unrunnable, got %v", err)
	}
	partial := err.(*ExtractionError).Partial
	if partial == nil || partial.TotalLines == nil || *partial.TotalLines == 0 {
		t.Errorf("expected partial static metrics, got %+v", partial)
	}
}

func TestExtractUnrunnableOnTimeout(t *testing.T) {
	dir := writeArtifact(t, map[string]string{"main.py": pyModule})
	sb := &fakeSandbox{result: &sandbox.Result{ExitCode: 124, TimedOut: true, Duration: time.Minute}}
	e := NewExtractor(sb, config.Sandbox{TestCmd: "pytest -q"}, nil)
	_, err := e.Extract(context.Background(), dir)
	if !IsUnrunnable(err) {
		t.Fatalf("expected Unrunnable, got %v", err)
	}
}

func TestExtractLintStatus(t *testing.T) {
	dir := writeArtifact(t, map[string]string{"main.py": pyModule})
	sb := &fakeSandbox{result: &sandbox.Result{ExitCode: 0, Output: "1 passed in 0.01s"}}
	e := NewExtractor(sb, config.Sandbox{TestCmd: "pytest -q", LintCmd: "ruff check ."}, nil)
	m, err := e.Extract(context.Background(), dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if m.LintStatus != LintPassed {
		t.Errorf("lint: got %q, want passed", m.LintStatus)
	}
	if len(sb.calls) != 2 {
		t.Errorf("expected test + lint runs, got %v", sb.calls)
	}
}

func TestDetectTestCommand(t *testing.T) {
	npm := writeArtifact(t, map[string]string{"package.json": "{}"})
	if got := detectTestCommand(npm); got != "npm test" {
		t.Errorf("got %q", got)
	}
	gomod := writeArtifact(t, map[string]string{"go.mod": "module x"})
	if got := detectTestCommand(gomod); got != "go test -v ./..." {
		t.Errorf("got %q", got)
	}
	if got := detectTestCommand(t.TempDir()); got != "python -m pytest -q" {
		t.Errorf("got %q", got)
	}
}
