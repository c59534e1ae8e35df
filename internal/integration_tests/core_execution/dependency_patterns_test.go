package integration_tests

import (
	"context"
	"testing"

	"github.com/specialistvlad/gridflow/internal/app"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: diamond dependencies deliver both branches to the join node.
func TestCoreExecution_DiamondDependency(t *testing.T) {
	// --- Arrange ---
	graphYAML := `
nodes:
  - id: src
    kind: input
    outputs: [{portId: value, valueType: text}]
  - id: loud
    kind: process
    config: {transform: upper}
    inputs: [{portId: value, valueType: text}]
    outputs: [{portId: value, valueType: text}]
  - id: quiet
    kind: process
    config: {transform: lower}
    inputs: [{portId: value, valueType: text}]
    outputs: [{portId: value, valueType: text}]
  - id: join
    kind: process
    config: {transform: concat, separator: " / "}
    inputs:
      - {portId: left, valueType: text}
      - {portId: right, valueType: text}
    outputs: [{portId: value, valueType: text}]
  - id: out
    kind: output
    inputs: [{portId: value, valueType: text}]
edges:
  - {sourceNodeId: src, sourcePortId: value, destNodeId: loud, destPortId: value}
  - {sourceNodeId: src, sourcePortId: value, destNodeId: quiet, destPortId: value}
  - {sourceNodeId: loud, sourcePortId: value, destNodeId: join, destPortId: left}
  - {sourceNodeId: quiet, sourcePortId: value, destNodeId: join, destPortId: right}
  - {sourceNodeId: join, sourcePortId: value, destNodeId: out, destPortId: value}
`
	cfg, err := app.NewConfig(app.Config{
		GraphPath: app.WriteGraph(t, "diamond.yaml", graphYAML),
		Engine:    app.TestEngineConfig(),
	})
	require.NoError(t, err)
	testApp, _, _ := app.SetupAppTest(t, cfg)

	// --- Act ---
	res, runErr := testApp.Run(context.Background(), map[string]any{"src.value": "MiXeD"}, session.Options{})

	// --- Assert ---
	require.NoError(t, runErr)
	assert.Equal(t, "MIXED / mixed", res.NodeResults["out"].Outputs["value"])
	for id, n := range res.NodeResults {
		assert.Equal(t, model.NodeSucceeded, n.Status, "node %s", id)
	}
}

// Test for: running the same engine twice with the same inputs yields the same results.
func TestCoreExecution_IdempotentReruns(t *testing.T) {
	// --- Arrange ---
	graphJSON := `{
  "nodes": [
    {"id": "a", "kind": "input", "outputs": [{"portId": "value", "valueType": "number"}]},
    {"id": "b", "kind": "output", "inputs": [{"portId": "value", "valueType": "number"}]}
  ],
  "edges": [{"sourceNodeId": "a", "sourcePortId": "value", "destNodeId": "b", "destPortId": "value"}]
}`
	cfg, err := app.NewConfig(app.Config{
		GraphPath: app.WriteGraph(t, "graph.json", graphJSON),
		Engine:    app.TestEngineConfig(),
	})
	require.NoError(t, err)
	testApp, _, _ := app.SetupAppTest(t, cfg)

	// --- Act ---
	first, err1 := testApp.Run(context.Background(), map[string]any{"a": 7}, session.Options{})
	second, err2 := testApp.Run(context.Background(), map[string]any{"a": 7}, session.Options{})

	// --- Assert ---
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.NodeResults["b"].Outputs, second.NodeResults["b"].Outputs)
	assert.Equal(t, float64(7), second.NodeResults["b"].Outputs["value"])
}
