package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/eventsrv"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphYAML = `
nodes:
  - id: name
    kind: input
    outputs: [{portId: value, valueType: text}]
  - id: shout
    kind: process
    config: {transform: upper}
    inputs: [{portId: value, valueType: text}]
    outputs: [{portId: value, valueType: text}]
  - id: result
    kind: output
    inputs: [{portId: value, valueType: text}]
edges:
  - {sourceNodeId: name, sourcePortId: value, destNodeId: shout, destPortId: value}
  - {sourceNodeId: shout, sourcePortId: value, destNodeId: result, destPortId: value}
`

const cyclicYAML = `
nodes:
  - id: a
    kind: output
    inputs: [{portId: value, valueType: text}]
  - id: b
    kind: output
    inputs: [{portId: value, valueType: text}]
edges:
  - {sourceNodeId: a, sourcePortId: value, destNodeId: b, destPortId: value}
  - {sourceNodeId: b, sourcePortId: value, destNodeId: a, destPortId: value}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T", err)
	return exitErr.Code
}

func TestExecute_Run(t *testing.T) {
	graph := writeFile(t, "graph.yaml", graphYAML)

	out, _, err := execute(t, "run", graph, "--input", "name=world", "--no-color", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes: 3 succeeded, 0 failed, 0 skipped")
	assert.Contains(t, out, "result.value = WORLD")
}

func TestExecute_RunJSON(t *testing.T) {
	graph := writeFile(t, "graph.yaml", graphYAML)
	inputs := writeFile(t, "inputs.json", `{"name": "file"}`)

	out, _, err := execute(t, "run", graph, "--inputs-file", inputs, "--json", "--log-format", "json")
	require.NoError(t, err)

	res, err := engine.DecodeResult([]byte(strings.TrimSpace(out)))
	require.NoError(t, err, "stdout holds only the JSON result")
	assert.Equal(t, model.RunSucceeded, res.Status)
	assert.Equal(t, "FILE", res.NodeResults["result"].Outputs["value"])
}

func TestExecute_ExitCodes(t *testing.T) {
	graph := writeFile(t, "graph.yaml", graphYAML)
	cyclic := writeFile(t, "cyclic.yaml", cyclicYAML)

	testCases := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"missing input fails the run", []string{"run", graph}, CodeFailure, "run did not succeed"},
		{"unknown input key", []string{"run", graph, "-i", "ghost=1"}, CodeFailure, "invalid initial input"},
		{"invalid graph", []string{"run", cyclic}, CodeUsage, "cycle detected"},
		{"validate invalid graph", []string{"validate", cyclic}, CodeUsage, "invalid graph"},
		{"validate valid graph", []string{"validate", graph}, 0, ""},
		{"missing graph file", []string{"validate", "/no/such/graph.yaml"}, CodeUsage, "failed to load graph"},
		{"missing argument", []string{"run"}, CodeUsage, "accepts 1 arg"},
		{"unknown flag", []string{"validate", graph, "--bogus"}, CodeUsage, "unknown flag"},
		{"bad input pair", []string{"run", graph, "-i", "novalue"}, CodeUsage, "expected key=value"},
		{"bad log level", []string{"validate", graph, "--log-level", "loud"}, CodeUsage, "GRIDFLOW_LOG_LEVEL"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, append(tc.args, "--no-color")...)
			assert.Equal(t, tc.code, exitCode(t, err))
			if tc.msg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestExecute_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"run", "validate", "serve", "watch"} {
		assert.Contains(t, out, sub)
	}
}

func TestParseInputs(t *testing.T) {
	file := writeFile(t, "inputs.json", `{"a": 1, "b": "from file"}`)

	got, err := parseInputs(file, []string{"b=42", "c=hello", `d="42"`, "e={\"k\":[1,2]}", "f=true", "g=a=b"})
	require.NoError(t, err)

	want := map[string]any{
		"a": float64(1),
		"b": float64(42),
		"c": "hello",
		"d": "42",
		"e": map[string]any{"k": []any{float64(1), float64(2)}},
		"f": true,
		"g": "a=b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseInputs() mismatch (-want +got):\n%s", diff)
	}

	_, err = parseInputs("", []string{"=x"})
	assert.Error(t, err)
	_, err = parseInputs(writeFile(t, "bad.json", `[1]`), nil)
	assert.Error(t, err)
	_, err = parseInputs("/no/such/file.json", nil)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	report := map[string]any{"status": "failed"}
	testCases := []struct {
		msg  eventsrv.Message
		want string
	}{
		{eventsrv.Message{Event: eventsrv.EventAccepted, RunID: "r1"}, "run:accepted r1"},
		{eventsrv.Message{Event: eventsrv.EventStarted, RunID: "r1", Data: map[string]any{"status": "running"}}, "run:started r1 running"},
		{eventsrv.Message{Event: eventsrv.EventNodeCompleted, RunID: "r1", Data: map[string]any{"nodeId": "n", "report": report}}, "node:completed n failed"},
		{eventsrv.Message{Event: eventsrv.EventFinished, RunID: "r1", Data: map[string]any{"status": "failed"}}, "run:finished r1 failed"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, describe(tc.msg))
	}
}
