package pipeline

import (
	"fmt"
	"testing"
	"time"
)

func TestStoreGetUnknown(t *testing.T) {
	s := NewStore(10)
	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore(10)
	s.Add(&Run{ID: "w1", Status: StatusProcessing, StartTime: time.Now()})

	snap, err := s.Get("w1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s.Update("w1", func(r *Run) {
		r.PhasesCompleted = append(r.PhasesCompleted, PhaseRecord{Phase: PhaseResearch})
		r.Status = StatusCompleted
	})
	if len(snap.PhasesCompleted) != 0 || snap.Status != StatusProcessing {
		t.Error("snapshot observed later mutation")
	}

	snap2, _ := s.Get("w1")
	snap2.PhasesCompleted[0].Phase = PhaseDeploy
	snap3, _ := s.Get("w1")
	if snap3.PhasesCompleted[0].Phase != PhaseResearch {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestStoreEvictsOldestTerminal(t *testing.T) {
	s := NewStore(2)
	for i := 0; i < 3; i++ {
		s.Add(&Run{ID: fmt.Sprintf("t%d", i), Status: StatusCompleted})
	}
	s.Add(&Run{ID: "active", Status: StatusProcessing})

	if _, err := s.Get("t0"); err != ErrNotFound {
		t.Error("oldest terminal run should have been evicted")
	}
	for _, id := range []string{"t1", "t2", "active"} {
		if _, err := s.Get(id); err != nil {
			t.Errorf("run %s unexpectedly evicted: %v", id, err)
		}
	}
}

func TestStoreNeverEvictsActive(t *testing.T) {
	s := NewStore(1)
	s.Add(&Run{ID: "busy", Status: StatusProcessing})
	for i := 0; i < 5; i++ {
		s.Add(&Run{ID: fmt.Sprintf("t%d", i), Status: StatusCompleted})
	}
	if _, err := s.Get("busy"); err != nil {
		t.Errorf("active run evicted: %v", err)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("expected active + 1 retained terminal, got %d", got)
	}
}
