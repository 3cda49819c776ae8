package pipeline

import (
	"errors"
	"sync"
)

// ErrNotFound is returned for queries against an unknown workflow id.
var ErrNotFound = errors.New("workflow not found")

// ErrNoReport is returned when a workflow has not produced an evaluation
// report yet.
var ErrNoReport = errors.New("workflow has no evaluation report yet")

// Store is the workflow registry. In-memory and process-scoped; the
// interface between engine and store is the persistence extension point.
// Terminal runs are retained up to a cap, oldest evicted first, so the
// registry cannot grow without bound. Active runs are never evicted.
type Store struct {
	mu     sync.RWMutex
	runs   map[string]*Run
	order  []string // insertion order, for eviction
	retain int
}

func NewStore(retainTerminal int) *Store {
	if retainTerminal < 1 {
		retainTerminal = 100
	}
	return &Store{
		runs:   make(map[string]*Run),
		retain: retainTerminal,
	}
}

func (s *Store) Add(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.evictLocked()
}

// Get returns a snapshot; concurrent readers never observe a run
// mid-transition.
func (s *Store) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run.Clone(), nil
}

// Update applies fn to the run under the write lock, so every mutation is
// atomic with respect to Get snapshots.
func (s *Store) Update(id string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	fn(run)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *Store) evictLocked() {
	terminal := 0
	for _, run := range s.runs {
		if run.Terminal() {
			terminal++
		}
	}
	for i := 0; terminal > s.retain && i < len(s.order); {
		id := s.order[i]
		run, ok := s.runs[id]
		if ok && run.Terminal() {
			delete(s.runs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			terminal--
			continue
		}
		i++
	}
}
