package script

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/zclconf/go-cty/cty"
)

type funcResult struct {
	outputs map[string]cty.Value
	err     error
}

// runFunc runs built-in logic in its own goroutine. On timeout or
// cancellation the goroutine is abandoned; its late result is discarded.
func runFunc(ctx context.Context, fn Func, inv Invocation) Outcome {
	runCtx, cancel := withTimeout(ctx, inv.Limits.Timeout)
	defer cancel()

	done := make(chan funcResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- funcResult{err: &ScriptError{
					ExitCode: -1,
					Message:  fmt.Sprintf("panic: %v", r),
					Err:      fmt.Errorf("%s", debug.Stack()),
				}}
			}
		}()
		outputs, err := fn(runCtx, copyInputs(inv.Inputs))
		done <- funcResult{outputs: outputs, err: err}
	}()

	var res funcResult
	select {
	case res = <-done:
	case <-runCtx.Done():
	}

	switch {
	case ctx.Err() != nil:
		return Outcome{ExitCode: -1, Err: fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Outcome{ExitCode: -1, Err: &TimeoutError{Timeout: inv.Limits.Timeout}}
	}

	if res.err != nil {
		var se *ScriptError
		if errors.As(res.err, &se) {
			return Outcome{ExitCode: se.ExitCode, Stderr: se.Error(), Err: se}
		}
		return Outcome{ExitCode: 1, Stderr: res.err.Error(), Err: &ScriptError{ExitCode: 1, Message: "builtin failed", Err: res.err}}
	}

	if max := inv.Limits.MaxOutputBytes; max > 0 && len(res.outputs) > 0 {
		doc, err := ctyval.MarshalObject(res.outputs)
		if err != nil {
			return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: "encoding outputs", Err: err}}
		}
		if int64(len(doc)) > max {
			return Outcome{ExitCode: -1, Err: &LimitError{Resource: "output", Limit: max, Actual: int64(len(doc))}}
		}
	}
	return Outcome{Outputs: res.outputs}
}

func copyInputs(in map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
