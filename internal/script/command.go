package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/zclconf/go-cty/cty"
)

const (
	inputFile  = "input.json"
	outputFile = "output.json"
)

func (e *Executor) runCommand(ctx context.Context, c *Command, inv Invocation) Outcome {
	logger := ctxlog.FromContext(ctx)

	if len(c.Args) == 0 || c.Args[0] == "" {
		return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: "empty command"}}
	}
	if err := e.policy.Check(c); err != nil {
		return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: err.Error()}}
	}

	workDir, err := os.MkdirTemp(e.tempDir, "gridflow-"+sanitize(inv.NodeID)+"-")
	if err != nil {
		return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: "creating working directory", Err: err}}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("Failed to remove working directory.", "dir", workDir, "error", err)
		}
	}()

	inputDoc, err := ctyval.MarshalObject(inv.Inputs)
	if err != nil {
		return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: "encoding inputs", Err: err}}
	}
	inputPath := filepath.Join(workDir, inputFile)
	outputPath := filepath.Join(workDir, outputFile)
	if err := os.WriteFile(inputPath, inputDoc, 0o600); err != nil {
		return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: "writing inputs", Err: err}}
	}

	runCtx, cancel := withTimeout(ctx, inv.Limits.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Args[0], c.Args[1:]...)
	cmd.Dir = workDir
	cmd.Env = e.environment(c, inv, workDir, inputPath, outputPath)
	cmd.Stdin = bytes.NewReader(inputDoc)
	stdout := newLimitedBuffer(inv.Limits.MaxOutputBytes)
	stderr := newLimitedBuffer(inv.Limits.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = e.waitDelay
	isolate(cmd)

	logger.Debug("Starting command.", "node_id", inv.NodeID, "command", c.Describe(), "dir", workDir)
	if err := cmd.Start(); err != nil {
		return Outcome{ExitCode: -1, Err: &ScriptError{ExitCode: -1, Message: "starting command", Err: err}}
	}
	if err := applyLimits(cmd.Process.Pid, inv.Limits); err != nil {
		logger.Warn("Failed to apply resource limits.", "node_id", inv.NodeID, "error", err)
	}
	waitErr := cmd.Wait()
	// Reap anything the command left behind in its group.
	killGroup(cmd)

	out := Outcome{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  cmd.ProcessState.ExitCode(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}

	switch {
	case ctx.Err() != nil:
		out.Err = fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
		return out
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		out.Err = &TimeoutError{Timeout: inv.Limits.Timeout}
		return out
	}

	if resource, ok := limitSignal(cmd.ProcessState, inv.Limits); ok {
		out.Err = &LimitError{Resource: resource, Limit: limitValue(resource, inv.Limits)}
		return out
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			out.Err = &ScriptError{ExitCode: out.ExitCode, Message: "waiting for command", Err: waitErr}
			return out
		}
		out.Err = &ScriptError{ExitCode: out.ExitCode, Message: fmt.Sprintf("command exited with code %d", out.ExitCode)}
		return out
	}

	outputs, err := readOutputs(outputPath, inv, out.Stdout, inv.Limits.MaxOutputBytes)
	if err != nil {
		out.Err = err
		return out
	}
	out.Outputs = outputs
	return out
}

// environment builds the allowlisted environment of a command. Nothing is
// inherited from the engine process except PATH.
func (e *Executor) environment(c *Command, inv Invocation, workDir, inputPath, outputPath string) []string {
	env := []string{
		"PATH=" + e.path,
		"HOME=" + workDir,
		"TMPDIR=" + workDir,
		EnvInput + "=" + inputPath,
		EnvOutput + "=" + outputPath,
		EnvNodeID + "=" + inv.NodeID,
	}
	env = append(env, inputEnv(inv.Inputs)...)

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// readOutputs loads the output document. A command that writes no document
// but declares exactly one output port publishes its trimmed stdout there.
func readOutputs(path string, inv Invocation, stdout string, max int64) (map[string]cty.Value, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return stdoutOutput(inv, stdout), nil
	}
	if err != nil {
		return nil, &ScriptError{Message: "opening output document", Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if max > 0 {
		r = io.LimitReader(f, max+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ScriptError{Message: "reading output document", Err: err}
	}
	if max > 0 && int64(len(raw)) > max {
		actual := int64(len(raw))
		if st, err := f.Stat(); err == nil {
			actual = st.Size()
		}
		return nil, &LimitError{Resource: "output", Limit: max, Actual: actual}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]cty.Value{}, nil
	}
	values, err := ctyval.UnmarshalObject(raw)
	if err != nil {
		return nil, &ScriptError{Message: "malformed output document", Err: err}
	}
	return values, nil
}

func stdoutOutput(inv Invocation, stdout string) map[string]cty.Value {
	if len(inv.Outputs) != 1 {
		return map[string]cty.Value{}
	}
	text := strings.TrimRight(stdout, "\r\n")
	if text == "" {
		return map[string]cty.Value{}
	}
	port := inv.Outputs[0]
	if !port.Type.CtyType().IsPrimitiveType() {
		if v, err := ctyval.FromJSON([]byte(text)); err == nil {
			return map[string]cty.Value{port.ID: v}
		}
	}
	return map[string]cty.Value{port.ID: cty.StringVal(text)}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func limitValue(resource string, l Limits) int64 {
	switch resource {
	case "cpu":
		return int64(l.MaxCPUSeconds)
	case "memory":
		return int64(l.MaxMemoryBytes)
	}
	return l.MaxOutputBytes
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, id)
}
