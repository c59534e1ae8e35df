package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunCancelled is returned when the run's context was cancelled before
// every layer finished.
var ErrRunCancelled = errors.New("run cancelled")

// NodeFailureError is returned when the run completed but at least one node
// Failed.
type NodeFailureError struct {
	NodeIDs []string
}

func (e *NodeFailureError) Error() string {
	return fmt.Sprintf("%d node(s) failed: %s", len(e.NodeIDs), strings.Join(e.NodeIDs, ", "))
}

// InternalError wraps a failure of the scheduler itself, as opposed to a
// failure of a node's unit.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal scheduler error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
