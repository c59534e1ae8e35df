package integration_tests

import (
	"context"
	"testing"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/specialistvlad/gridflow/internal/graph"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, name, content string) *app.App {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		GraphPath: app.WriteGraph(t, name, content),
		Engine:    app.TestEngineConfig(),
	})
	require.NoError(t, err)
	testApp, _, _ := app.SetupAppTest(t, cfg)
	return testApp
}

// Test for: incompatible port types are caught before anything runs.
func TestTypes_StartupMismatch(t *testing.T) {
	// --- Arrange ---
	graphHCL := `
		node "n" {
			kind = "input"
			output "value" { type = number }
		}
		node "out" {
			kind = "output"
			input "value" { type = structured }
		}
		edge "bad" {
			from = "n.value"
			to   = "out.value"
		}
	`
	testApp := newApp(t, "main.hcl", graphHCL)

	// --- Act ---
	verr := testApp.Validate()
	res, err := testApp.Run(context.Background(), map[string]any{"n": 1}, session.Options{})

	// --- Assert ---
	var mismatch *graph.TypeMismatchError
	require.ErrorAs(t, verr, &mismatch)
	assert.Equal(t, "bad", mismatch.EdgeID)
	require.ErrorIs(t, err, graph.ErrInvalidGraph)
	assert.Equal(t, model.ReasonGraphInvalid, res.NodeResults["n"].Reason)
}

// Test for: values are converted between compatible primitive types.
func TestTypes_ImplicitConversion(t *testing.T) {
	// --- Arrange ---
	graphYAML := `
nodes:
  - {id: n, kind: input, outputs: [{portId: value, valueType: number}]}
  - id: shout
    kind: process
    config: {transform: identity}
    inputs: [{portId: value, valueType: text}]
    outputs: [{portId: value, valueType: text}]
  - id: flag
    kind: input
    outputs: [{portId: value, valueType: boolean}]
  - id: out
    kind: output
    inputs:
      - {portId: text, valueType: text}
      - {portId: flag, valueType: bool}
edges:
  - {sourceNodeId: n, sourcePortId: value, destNodeId: shout, destPortId: value}
  - {sourceNodeId: shout, sourcePortId: value, destNodeId: out, destPortId: text}
  - {sourceNodeId: flag, sourcePortId: value, destNodeId: out, destPortId: flag}
`
	testApp := newApp(t, "graph.yaml", graphYAML)

	// --- Act ---
	res, err := testApp.Run(context.Background(), map[string]any{"n": 12.5, "flag": "true"}, session.Options{})

	// --- Assert ---
	require.NoError(t, err)
	out := res.NodeResults["out"].Outputs
	assert.Equal(t, "12.5", out["text"])
	assert.Equal(t, true, out["flag"])
}

// Test for: an initial input that does not fit its port fails the input node.
func TestTypes_InvalidInitialInput(t *testing.T) {
	// --- Arrange ---
	graphYAML := `
nodes:
  - {id: n, kind: input, outputs: [{portId: value, valueType: number}]}
  - {id: out, kind: output, inputs: [{portId: value, valueType: number}]}
edges:
  - {sourceNodeId: n, sourcePortId: value, destNodeId: out, destPortId: value}
`
	testApp := newApp(t, "graph.yaml", graphYAML)

	// --- Act ---
	res, err := testApp.Run(context.Background(), map[string]any{"n": "not a number"}, session.Options{})

	// --- Assert ---
	require.ErrorIs(t, err, app.ErrRunFailed)
	n := res.NodeResults["n"]
	assert.Equal(t, model.NodeFailed, n.Status)
	assert.Equal(t, model.ReasonInvalidInput, n.Reason)
	assert.Equal(t, model.ReasonUpstreamFailed, res.NodeResults["out"].Reason)
}
