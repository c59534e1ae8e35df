package eventsrv

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/events"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestServerEvent(t *testing.T) {
	testCases := []struct {
		in   events.Type
		want string
		ok   bool
	}{
		{events.RunStarted, EventStarted, true},
		{events.NodeCompleted, EventNodeCompleted, true},
		{events.RunFinished, EventFinished, true},
		{events.Type("other"), "", false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.in), func(t *testing.T) {
			got, ok := serverEvent(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPayload_NodeCompleted(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := events.Event{
		Type:  events.NodeCompleted,
		RunID: "r1",
		Time:  at,
		Result: &model.NodeResult{
			NodeID:   "p",
			Status:   model.NodeSucceeded,
			Outputs:  map[string]cty.Value{"count": cty.NumberIntVal(3), "name": cty.StringVal("x")},
			Duration: 1500 * time.Millisecond,
		},
	}
	data, err := payload(context.Background(), nil, ev)
	require.NoError(t, err)

	assert.Equal(t, "r1", data["runId"])
	assert.Equal(t, "p", data["nodeId"])
	assert.Equal(t, "2025-01-02T03:04:05Z", data["time"])
	report, ok := data["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "succeeded", report["status"])
	assert.EqualValues(t, 1500, report["durationMs"])
	assert.Equal(t, map[string]any{"count": float64(3), "name": "x"}, report["outputs"])
}

func TestPayload_NodeCompletedWithoutResult(t *testing.T) {
	_, err := payload(context.Background(), nil, events.Event{Type: events.NodeCompleted, RunID: "r1"})
	require.Error(t, err)
}

func TestFromPayload(t *testing.T) {
	var ref runRef
	require.NoError(t, fromPayload([]any{map[string]any{"runId": "abc"}}, &ref))
	assert.Equal(t, "abc", ref.RunID)

	assert.Error(t, fromPayload(nil, &ref))
	assert.Error(t, fromPayload([]any{"just a string"}, &ref))
}

func TestDecodeResult(t *testing.T) {
	res, err := decodeResult(map[string]any{
		"result": map[string]any{"runId": "r", "status": "failed", "nodeResults": map[string]any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, "r", res.RunID)
	assert.Equal(t, model.RunFailed, res.Status)

	_, err = decodeResult(map[string]any{})
	assert.Error(t, err)
}
