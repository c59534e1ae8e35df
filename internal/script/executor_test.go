//go:build unix

package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func textPort(id string) model.Port { return model.Port{ID: id, Type: model.TypeText} }

func shell(script string) Invocation {
	return Invocation{
		NodeID:  "n1",
		Unit:    Shell(script, nil),
		Inputs:  map[string]cty.Value{"value": cty.StringVal("hello")},
		Outputs: []model.Port{textPort("value")},
		Limits:  Limits{Timeout: 10 * time.Second, MaxOutputBytes: 1 << 20},
	}
}

func TestExecute_Command(t *testing.T) {
	t.Parallel()
	exec := NewExecutor(WithTempDir(t.TempDir()))
	ctx := context.Background()

	t.Run("identity through the input and output documents", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`cat "$GRIDFLOW_INPUT" > "$GRIDFLOW_OUTPUT"`))
		require.NoError(t, out.Err)
		assert.Equal(t, map[string]cty.Value{"value": cty.StringVal("hello")}, out.Outputs)
		assert.Equal(t, 0, out.ExitCode)
	})

	t.Run("input document is piped on stdin", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`cat > "$GRIDFLOW_OUTPUT"`))
		require.NoError(t, out.Err)
		assert.Equal(t, cty.StringVal("hello"), out.Outputs["value"])
	})

	t.Run("stdout feeds a single output port", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`echo "got $GRIDFLOW_IN_VALUE"`))
		require.NoError(t, out.Err)
		assert.Equal(t, cty.StringVal("got hello"), out.Outputs["value"])
		assert.Equal(t, "got hello\n", out.Stdout)
	})

	t.Run("stdout and stderr are captured separately", func(t *testing.T) {
		t.Parallel()
		inv := shell(`echo to-out; echo to-err >&2; echo '{}' > "$GRIDFLOW_OUTPUT"`)
		out := exec.Execute(ctx, inv)
		require.NoError(t, out.Err)
		assert.Equal(t, "to-out\n", out.Stdout)
		assert.Equal(t, "to-err\n", out.Stderr)
		assert.Empty(t, out.Outputs)
	})

	t.Run("non-zero exit is a script failure", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`echo oops >&2; exit 3`))
		var se *ScriptError
		require.True(t, errors.As(out.Err, &se))
		assert.Equal(t, 3, se.ExitCode)
		assert.Equal(t, 3, out.ExitCode)
		assert.Equal(t, "oops\n", out.Stderr)
		assert.Nil(t, out.Outputs)
		assert.Equal(t, model.ReasonScriptFailure, ReasonFor(out.Err))
	})

	t.Run("malformed output document", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`echo '{not json' > "$GRIDFLOW_OUTPUT"`))
		var se *ScriptError
		require.True(t, errors.As(out.Err, &se))
		assert.Contains(t, se.Error(), "malformed output document")
	})

	t.Run("undeclared output port", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`echo '{"other":1}' > "$GRIDFLOW_OUTPUT"`))
		require.Error(t, out.Err)
		assert.Contains(t, out.Err.Error(), "outputs not declared as ports: other")
	})

	t.Run("value that does not conform to its port", func(t *testing.T) {
		t.Parallel()
		inv := shell(`echo '{"n":"abc"}' > "$GRIDFLOW_OUTPUT"`)
		inv.Outputs = []model.Port{{ID: "n", Type: model.TypeNumber}}
		out := exec.Execute(ctx, inv)
		require.Error(t, out.Err)
		assert.Contains(t, out.Err.Error(), `output "n" does not conform`)
	})

	t.Run("numeric text is converted to a number port", func(t *testing.T) {
		t.Parallel()
		inv := shell(`echo '{"n":"42"}' > "$GRIDFLOW_OUTPUT"`)
		inv.Outputs = []model.Port{{ID: "n", Type: model.TypeNumber}}
		out := exec.Execute(ctx, inv)
		require.NoError(t, out.Err)
		assert.Equal(t, cty.Number, out.Outputs["n"].Type())
	})

	t.Run("captured output is truncated without failing", func(t *testing.T) {
		t.Parallel()
		inv := shell(`i=0; while [ $i -lt 50 ]; do echo 0123456789; i=$((i+1)); done`)
		inv.Outputs = nil
		inv.Limits.MaxOutputBytes = 100
		out := exec.Execute(ctx, inv)
		require.NoError(t, out.Err)
		assert.True(t, out.Truncated)
		assert.Len(t, out.Stdout, 100)
	})

	t.Run("oversized output document is a resource limit failure", func(t *testing.T) {
		t.Parallel()
		inv := shell(`printf '{"value":"%0500d"}' 0 > "$GRIDFLOW_OUTPUT"`)
		inv.Limits.MaxOutputBytes = 100
		out := exec.Execute(ctx, inv)
		var le *LimitError
		require.True(t, errors.As(out.Err, &le))
		assert.Equal(t, "output", le.Resource)
		assert.Equal(t, model.ReasonResourceLimit, ReasonFor(out.Err))
	})

	t.Run("denied commands never start", func(t *testing.T) {
		t.Parallel()
		marker := filepath.Join(t.TempDir(), "ran")
		inv := shell(`touch ` + marker + `; mkfs.ext4 /dev/null`)
		out := exec.Execute(ctx, inv)
		var se *ScriptError
		require.True(t, errors.As(out.Err, &se))
		assert.Equal(t, -1, se.ExitCode)
		assert.Contains(t, se.Error(), "mkfs")
		assert.NoFileExists(t, marker)
	})

	t.Run("runs in a fresh working directory", func(t *testing.T) {
		t.Parallel()
		out := exec.Execute(ctx, shell(`pwd; ls -A | sort | tr '\n' ' '`))
		require.NoError(t, out.Err)
		lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "gridflow-n1-")
		assert.Equal(t, "input.json", strings.TrimSpace(lines[1]))
		assert.NoDirExists(t, strings.TrimSpace(lines[0]))
	})
}

func TestExecute_EnvironmentIsIsolated(t *testing.T) {
	t.Setenv("GRIDFLOW_TEST_SECRET", "leaked")
	exec := NewExecutor(WithTempDir(t.TempDir()))

	inv := shell(`echo "${GRIDFLOW_TEST_SECRET:-unset} $CUSTOM"`)
	inv.Unit = Shell(`echo "${GRIDFLOW_TEST_SECRET:-unset} $CUSTOM"`, map[string]string{"CUSTOM": "yes"})
	out := exec.Execute(context.Background(), inv)
	require.NoError(t, out.Err)
	assert.Equal(t, cty.StringVal("unset yes"), out.Outputs["value"])
}

func TestExecute_TimeoutKillsProcessGroup(t *testing.T) {
	t.Parallel()
	exec := NewExecutor(WithTempDir(t.TempDir()))
	marker := filepath.Join(t.TempDir(), "survivor")

	inv := shell(`(sleep 1; touch ` + marker + `) & sleep 10`)
	inv.Limits.Timeout = 200 * time.Millisecond

	start := time.Now()
	out := exec.Execute(context.Background(), inv)
	elapsed := time.Since(start)

	var te *TimeoutError
	require.True(t, errors.As(out.Err, &te), "expected timeout, got %v", out.Err)
	assert.Equal(t, model.ReasonTimeout, ReasonFor(out.Err))
	assert.Less(t, elapsed, 5*time.Second)

	time.Sleep(1500 * time.Millisecond)
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "background child outlived the timeout")
}

func TestExecute_Cancellation(t *testing.T) {
	t.Parallel()
	exec := NewExecutor(WithTempDir(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	out := exec.Execute(ctx, shell(`sleep 10`))
	assert.ErrorIs(t, out.Err, ErrCancelled)
	assert.Equal(t, model.ReasonCancelled, ReasonFor(out.Err))
}

func TestExecute_Func(t *testing.T) {
	t.Parallel()
	exec := NewExecutor()
	ctx := context.Background()

	inv := func(fn Func) Invocation {
		return Invocation{
			NodeID:  "f",
			Unit:    fn,
			Inputs:  map[string]cty.Value{"value": cty.StringVal("x")},
			Outputs: []model.Port{textPort("value")},
			Limits:  Limits{Timeout: time.Second},
		}
	}

	t.Run("identity", func(t *testing.T) {
		out := exec.Execute(ctx, inv(func(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
			return in, nil
		}))
		require.NoError(t, out.Err)
		assert.Equal(t, cty.StringVal("x"), out.Outputs["value"])
	})

	t.Run("panic is recovered", func(t *testing.T) {
		out := exec.Execute(ctx, inv(func(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
			panic("boom")
		}))
		var se *ScriptError
		require.True(t, errors.As(out.Err, &se))
		assert.Contains(t, se.Message, "panic: boom")
	})

	t.Run("error becomes a script failure", func(t *testing.T) {
		out := exec.Execute(ctx, inv(func(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
			return nil, errors.New("bad input")
		}))
		assert.Equal(t, model.ReasonScriptFailure, ReasonFor(out.Err))
		assert.Contains(t, out.Stderr, "bad input")
	})

	t.Run("timeout", func(t *testing.T) {
		i := inv(func(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		i.Limits.Timeout = 50 * time.Millisecond
		out := exec.Execute(ctx, i)
		var te *TimeoutError
		assert.True(t, errors.As(out.Err, &te))
	})
}

func TestLimitedBuffer(t *testing.T) {
	b := newLimitedBuffer(5)
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "abcde", b.String())
	assert.True(t, b.Truncated())

	unlimited := newLimitedBuffer(0)
	_, _ = unlimited.Write([]byte("abcdefgh"))
	assert.Equal(t, "abcdefgh", unlimited.String())
	assert.False(t, unlimited.Truncated())
}
