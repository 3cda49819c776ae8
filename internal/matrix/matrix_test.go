package matrix_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cruciblelabs/crucible/internal/config"
	"github.com/cruciblelabs/crucible/internal/matrix"
)

type fakeGenerator struct {
	calls   atomic.Int32
	failFor map[string]error
	block   time.Duration
}

func (g *fakeGenerator) Generate(ctx context.Context, req matrix.GenerateRequest) error {
	g.calls.Add(1)
	if g.block > 0 {
		select {
		case <-time.After(g.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err, ok := g.failFor[req.Identifier]; ok {
		return err
	}
	return os.MkdirAll(req.ArtifactPath, 0o755)
}

func TestCategories(t *testing.T) {
	cats := matrix.Categories(config.Experiment{
		Baselines: []string{"o3", "sonnet"},
		Variants:  []string{"tdd", "plan-first"},
		Bases:     []string{"o3"},
	})
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Name != "baseline" || len(cats[0].Members) != 2 {
		t.Errorf("baseline: %+v", cats[0])
	}
	if cats[1].Name != "cross" || len(cats[1].Members) != 2 {
		t.Errorf("cross: %+v", cats[1])
	}
	if cats[1].Members[0] != "tdd+o3" {
		t.Errorf("cross member: got %q", cats[1].Members[0])
	}
}

func TestCategoriesBaselineOnly(t *testing.T) {
	cats := matrix.Categories(config.Experiment{Baselines: []string{"o3"}})
	if len(cats) != 1 || cats[0].Name != "baseline" {
		t.Errorf("got %+v", cats)
	}
}

func TestRunProducesAllCells(t *testing.T) {
	gen := &fakeGenerator{}
	r := &matrix.Runner{Generator: gen, Parallel: 3, CellTimeout: time.Minute, Logger: zap.NewNop()}
	cells := r.Run(context.Background(), t.TempDir(), []matrix.Category{
		{Name: "baseline", Members: []string{"a", "b", "c"}},
	}, "ctx")

	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if gen.calls.Load() != 3 {
		t.Errorf("expected 3 generator calls, got %d", gen.calls.Load())
	}
	for _, c := range cells {
		if c.Status != matrix.StatusPending {
			t.Errorf("cell %s: status %q", c.Identifier, c.Status)
		}
		if _, err := os.Stat(c.ArtifactPath); err != nil {
			t.Errorf("cell %s: artifact missing: %v", c.Identifier, err)
		}
	}
}

func TestRunIsolatesCellFailure(t *testing.T) {
	gen := &fakeGenerator{failFor: map[string]error{"bad": errors.New("model refused")}}
	r := &matrix.Runner{Generator: gen, Parallel: 2, CellTimeout: time.Minute, Logger: zap.NewNop()}
	cells := r.Run(context.Background(), t.TempDir(), []matrix.Category{
		{Name: "baseline", Members: []string{"good", "bad", "fine"}},
	}, "")

	byID := map[string]*matrix.Cell{}
	for _, c := range cells {
		byID[c.Identifier] = c
	}
	if byID["bad"].Status != matrix.StatusErrored || byID["bad"].Error == "" {
		t.Errorf("bad cell: %+v", byID["bad"])
	}
	if byID["good"].Status != matrix.StatusPending || byID["fine"].Status != matrix.StatusPending {
		t.Error("sibling cells should be unaffected by one failure")
	}
}

func TestRunTimesOutSlowCell(t *testing.T) {
	gen := &fakeGenerator{block: time.Second}
	r := &matrix.Runner{Generator: gen, Parallel: 1, CellTimeout: 20 * time.Millisecond, Logger: zap.NewNop()}
	cells := r.Run(context.Background(), t.TempDir(), []matrix.Category{
		{Name: "baseline", Members: []string{"slow"}},
	}, "")
	if cells[0].Status != matrix.StatusErrored {
		t.Errorf("expected errored, got %q", cells[0].Status)
	}
}

func TestRunArtifactPathsDisjoint(t *testing.T) {
	gen := &fakeGenerator{}
	r := &matrix.Runner{Generator: gen, Parallel: 4, CellTimeout: time.Minute, Logger: zap.NewNop()}
	runDir := t.TempDir()
	cells := r.Run(context.Background(), runDir, []matrix.Category{
		{Name: "baseline", Members: []string{"x"}},
		{Name: "cross", Members: []string{"x"}},
	}, "")
	if cells[0].ArtifactPath == cells[1].ArtifactPath {
		t.Error("same identifier in different categories must not share a path")
	}
	for _, c := range cells {
		want := filepath.Join(runDir, "cells", c.Category, c.Identifier)
		if c.ArtifactPath != want {
			t.Errorf("path: got %q, want %q", c.ArtifactPath, want)
		}
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := matrix.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); err != nil {
		t.Errorf("run dir missing: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(base, "latest"))
	if err != nil {
		t.Fatalf("latest symlink: %v", err)
	}
	wantDir, _ := filepath.EvalSymlinks(runDir)
	if resolved != wantDir {
		t.Errorf("latest points at %q, want %q", resolved, wantDir)
	}
}

func TestCreateRunDirDistinctWithinSecond(t *testing.T) {
	base := t.TempDir()
	first, err := matrix.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	second, err := matrix.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if first == second {
		t.Fatalf("back-to-back runs share dir %q", first)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(base, "latest"))
	if err != nil {
		t.Fatalf("latest symlink: %v", err)
	}
	wantDir, _ := filepath.EvalSymlinks(second)
	if resolved != wantDir {
		t.Errorf("latest points at %q, want %q", resolved, wantDir)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	gen := genFunc(func(ctx context.Context, req matrix.GenerateRequest) error {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	})
	r := &matrix.Runner{Generator: gen, Parallel: 2, CellTimeout: time.Minute, Logger: zap.NewNop()}
	members := make([]string, 8)
	for i := range members {
		members[i] = fmt.Sprintf("m%d", i)
	}
	r.Run(context.Background(), t.TempDir(), []matrix.Category{{Name: "baseline", Members: members}}, "")
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds limit 2", peak.Load())
	}
}

type genFunc func(context.Context, matrix.GenerateRequest) error

func (f genFunc) Generate(ctx context.Context, req matrix.GenerateRequest) error {
	return f(ctx, req)
}
