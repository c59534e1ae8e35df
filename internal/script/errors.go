package script

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
)

// ErrCancelled is returned when the caller's context ends while a unit runs.
var ErrCancelled = errors.New("execution cancelled")

// ScriptError is a failure of the user logic itself: a non-zero exit, a
// rejected command, malformed output or a panic.
type ScriptError struct {
	ExitCode int
	Message  string
	Err      error
}

func (e *ScriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ScriptError) Unwrap() error { return e.Err }

// TimeoutError reports that a unit ran past its wall-clock budget.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s", e.Timeout)
}

// LimitError reports that a unit exceeded a resource ceiling.
type LimitError struct {
	Resource string
	Limit    int64
	Actual   int64
}

func (e *LimitError) Error() string {
	if e.Actual > 0 {
		return fmt.Sprintf("%s limit exceeded: %d > %d", e.Resource, e.Actual, e.Limit)
	}
	return fmt.Sprintf("%s limit exceeded (limit %d)", e.Resource, e.Limit)
}

// ReasonFor maps an Outcome error onto the node failure reason.
func ReasonFor(err error) model.Reason {
	var (
		timeout *TimeoutError
		limit   *LimitError
	)
	switch {
	case err == nil:
		return model.ReasonNone
	case errors.Is(err, ErrCancelled):
		return model.ReasonCancelled
	case errors.As(err, &timeout):
		return model.ReasonTimeout
	case errors.As(err, &limit):
		return model.ReasonResourceLimit
	default:
		return model.ReasonScriptFailure
	}
}
