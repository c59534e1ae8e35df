package eventsrv_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/eventsrv"
	"github.com/specialistvlad/gridflow/internal/graphdoc"
	"github.com/specialistvlad/gridflow/internal/model"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/script"
	"github.com/specialistvlad/gridflow/internal/session"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/specialistvlad/gridflow/modules/input"
	"github.com/specialistvlad/gridflow/modules/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, *engine.Engine, string) {
	t.Helper()
	ctx, _ := testutil.Context(t)
	g := testutil.NewGraph().
		Input("in", model.TypeText).
		Output("out", model.TypeText).
		Edge("in.value", "out.value").
		Build()
	reg := registry.New(&input.Module{}, &output.Module{})
	e := engine.New(g, reg, script.NewExecutor())

	srv := eventsrv.New(ctx, e)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
		_ = e.Close(context.Background())
	})
	return ctx, e, ts.URL
}

func dial(t *testing.T, ctx context.Context, url string) *eventsrv.Client {
	t.Helper()
	c, err := eventsrv.Dial(ctx, url, eventsrv.DialOptions{ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestServer_StartStreamsRunEvents(t *testing.T) {
	ctx, _, url := setup(t)
	c := dial(t, ctx, url)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var seen []string
	res, err := c.Start(ctx, &engine.Request{InitialInputs: map[string]any{"in": "hello"}}, func(m eventsrv.Message) {
		seen = append(seen, m.Event)
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunSucceeded, res.Status)
	require.Len(t, res.NodeResults, 2)
	assert.Equal(t, model.NodeSucceeded, res.NodeResults["out"].Status)
	assert.Equal(t, "hello", res.NodeResults["in"].Outputs["value"])

	require.Len(t, seen, 5)
	assert.Equal(t, eventsrv.EventAccepted, seen[0])
	assert.Equal(t, eventsrv.EventStarted, seen[1])
	assert.Equal(t, eventsrv.EventNodeCompleted, seen[2])
	assert.Equal(t, eventsrv.EventNodeCompleted, seen[3])
	assert.Equal(t, eventsrv.EventFinished, seen[4])
}

func TestServer_RejectsInvalidRequest(t *testing.T) {
	ctx, _, url := setup(t)
	c := dial(t, ctx, url)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.Start(ctx, &engine.Request{MaxConcurrency: -1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")

	_, err = c.Start(ctx, &engine.Request{InitialInputs: map[string]any{"ghost.value": 1}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid initial input")

	foreign := testutil.NewGraph().Input("other", model.TypeText).Build()
	_, err = c.Start(ctx, &engine.Request{Graph: graphdoc.FromGraph(foreign)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differs from the engine's graph")
}

func TestServer_WatchFinishedRun(t *testing.T) {
	ctx, e, url := setup(t)
	id, err := e.Start(ctx, map[string]any{"in": "x"}, session.Options{})
	require.NoError(t, err)
	_, err = e.Wait(ctx, id)
	require.NoError(t, err)

	c := dial(t, ctx, url)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := c.Watch(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, id, res.RunID)
	assert.Equal(t, model.RunSucceeded, res.Status)
}

func TestServer_WatchUnknownRun(t *testing.T) {
	ctx, _, url := setup(t)
	c := dial(t, ctx, url)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.Watch(ctx, "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestDial_Errors(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := eventsrv.Dial(ctx, "not a url", eventsrv.DialOptions{})
	require.Error(t, err)

	_, err = eventsrv.Dial(ctx, "http://127.0.0.1:1", eventsrv.DialOptions{ConnectTimeout: 2 * time.Second})
	require.Error(t, err)
}
