package eventsrv

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/events"
)

// Client events.
const (
	EventStart  = "run:start"
	EventCancel = "run:cancel"
	EventWatch  = "run:watch"
)

// Server events.
const (
	EventAccepted      = "run:accepted"
	EventStarted       = "run:started"
	EventNodeCompleted = "node:completed"
	EventFinished      = "run:finished"
	EventError         = "run:error"
)

// Message is a server event as seen by a client.
type Message struct {
	Event string
	RunID string
	Data  map[string]any
}

// serverEvent maps a bus event type onto its socket.io name.
func serverEvent(t events.Type) (string, bool) {
	switch t {
	case events.RunStarted:
		return EventStarted, true
	case events.NodeCompleted:
		return EventNodeCompleted, true
	case events.RunFinished:
		return EventFinished, true
	}
	return "", false
}

// payload renders a bus event as the map socket.io puts on the wire.
// RunFinished carries the full run result when the engine still has it.
func payload(ctx context.Context, e *engine.Engine, ev events.Event) (map[string]any, error) {
	out := map[string]any{
		"runId": ev.RunID,
		"time":  ev.Time.UTC().Format(time.RFC3339Nano),
	}
	switch ev.Type {
	case events.RunStarted:
		out["status"] = string(ev.Status)
	case events.NodeCompleted:
		if ev.Result == nil {
			return nil, fmt.Errorf("node event for run '%s' has no result", ev.RunID)
		}
		report, err := engine.NewNodeReport(*ev.Result)
		if err != nil {
			return nil, err
		}
		m, err := toMap(report)
		if err != nil {
			return nil, err
		}
		out["nodeId"] = ev.Result.NodeID
		out["report"] = m
	case events.RunFinished:
		out["status"] = string(ev.Status)
		if ev.Error != "" {
			out["error"] = ev.Error
		}
		res, err := e.Report(ctx, ev.RunID)
		if err != nil {
			return nil, err
		}
		m, err := toMap(res)
		if err != nil {
			return nil, err
		}
		out["result"] = m
	}
	return out, nil
}

// toMap round-trips v through JSON so the payload only holds plain maps,
// slices and scalars.
func toMap(v any) (map[string]any, error) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var out map[string]any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return out, nil
}

// fromPayload decodes the first argument of a socket.io event into dst.
func fromPayload(args []any, dst any) error {
	if len(args) == 0 || args[0] == nil {
		return fmt.Errorf("missing payload")
	}
	raw, err := sonic.Marshal(args[0])
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// decodeResult extracts the run result from a run:finished payload.
func decodeResult(data map[string]any) (*engine.Result, error) {
	res, ok := data["result"]
	if !ok {
		return nil, fmt.Errorf("finished event carries no result")
	}
	raw, err := sonic.Marshal(res)
	if err != nil {
		return nil, err
	}
	return engine.DecodeResult(raw)
}

func runIDOf(data map[string]any) string {
	id, _ := data["runId"].(string)
	return id
}
