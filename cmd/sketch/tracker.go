package main

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-sketch/pkg/health"
	"github.com/dd0wney/cluso-sketch/pkg/inference"
)

// runTracker follows a run for the health endpoint.
type runTracker struct {
	mu      sync.Mutex
	started time.Time
	total   int
	applied int
	done    bool
	err     error
}

func newRunTracker(s *inference.Sketch) *runTracker {
	t := &runTracker{started: time.Now()}
	// An invalid sketch fails in the run itself.
	if constraints, err := inference.Constraints(s); err == nil {
		t.total = len(constraints)
	}
	return t
}

func (t *runTracker) step(inference.Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applied++
}

func (t *runTracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.err = err
}

func (t *runTracker) state() health.RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return health.RunState{
		Applied: t.applied,
		Total:   t.total,
		Done:    t.done,
		Err:     t.err,
		Elapsed: time.Since(t.started),
	}
}
