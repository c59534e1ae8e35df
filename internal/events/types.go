package events

import (
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
)

// Type identifies what happened to a run.
type Type string

const (
	RunStarted    Type = "run.started"
	NodeCompleted Type = "node.completed"
	RunFinished   Type = "run.finished"
)

// Event is one entry of the run event stream.
type Event struct {
	Type  Type
	RunID string
	Time  time.Time
	// Status is set on RunStarted and RunFinished.
	Status model.RunStatus
	// Result is set on NodeCompleted.
	Result *model.NodeResult
	// Error is the run error message on RunFinished, if any.
	Error string
}

// Filter selects events for a subscriber. Empty fields match everything.
type Filter struct {
	RunID string
	Types []Type
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Event) bool {
	if f.RunID != "" && f.RunID != e.RunID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Terminal reports whether e is the last event of its run.
func (e Event) Terminal() bool {
	return e.Type == RunFinished
}
