package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/specialistvlad/gridflow/internal/script"
)

// RunnerFunc adapts a function to the scheduler's Runner interface.
type RunnerFunc func(ctx context.Context, inv script.Invocation) script.Outcome

func (f RunnerFunc) Execute(ctx context.Context, inv script.Invocation) script.Outcome {
	return f(ctx, inv)
}

// RecordingRunner wraps another runner and records which nodes ran and how
// many ran at the same time.
type RecordingRunner struct {
	Inner interface {
		Execute(ctx context.Context, inv script.Invocation) script.Outcome
	}

	mu     sync.Mutex
	calls  []string
	active int
	peak   int
}

func (r *RecordingRunner) Execute(ctx context.Context, inv script.Invocation) script.Outcome {
	r.mu.Lock()
	r.calls = append(r.calls, inv.NodeID)
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()
	return r.Inner.Execute(ctx, inv)
}

// Calls returns the ids of the nodes executed so far, sorted.
func (r *RecordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.calls...)
	sort.Strings(out)
	return out
}

// Peak returns the highest number of concurrent executions observed.
func (r *RecordingRunner) Peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}
