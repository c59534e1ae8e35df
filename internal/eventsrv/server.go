package eventsrv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/events"
	"github.com/zishang520/socket.io/v2/socket"
)

// Path is where the socket.io handler is mounted.
const Path = "/socket.io/"

// Server bridges an engine to socket.io clients.
type Server struct {
	engine *engine.Engine
	io     *socket.Server
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server for e and starts relaying run events to the run
// rooms. It stops when ctx is done or Close is called.
func New(ctx context.Context, e *engine.Engine) *Server {
	ctx, cancel := context.WithCancel(ctx)
	s := &Server{
		engine: e,
		io:     socket.NewServer(nil, nil),
		ctx:    ctx,
		cancel: cancel,
	}
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.connect(client)
	})

	ch, stop := e.Subscribe(ctx, eventsFilter())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		s.bridge(ch)
	}()
	return s
}

func eventsFilter() events.Filter {
	return events.Filter{Types: []events.Type{events.RunStarted, events.NodeCompleted, events.RunFinished}}
}

// Handler returns the socket.io HTTP handler. Mount it at Path.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Mux returns a mux serving the socket.io handler at Path.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, s.Handler())
	return mux
}

// Close stops relaying events and disconnects every client.
func (s *Server) Close() error {
	s.cancel()
	var err error
	s.io.Close(func(cerr error) { err = cerr })
	s.wg.Wait()
	return err
}

func (s *Server) bridge(ch <-chan events.Event) {
	logger := ctxlog.FromContext(s.ctx)
	for ev := range ch {
		name, ok := serverEvent(ev.Type)
		if !ok {
			continue
		}
		data, err := payload(s.ctx, s.engine, ev)
		if err != nil {
			logger.Warn("Failed to build event payload.", "run_id", ev.RunID, "event", name, "error", err)
			continue
		}
		if err := s.io.To(socket.Room(ev.RunID)).Emit(name, data); err != nil {
			logger.Warn("Failed to broadcast event.", "run_id", ev.RunID, "event", name, "error", err)
		}
	}
}

func (s *Server) connect(client *socket.Socket) {
	ctx, cancel := context.WithCancel(s.ctx)
	logger := ctxlog.FromContext(ctx).With("sid", string(client.Id()))
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Client connected.")

	client.On("disconnect", func(reason ...any) {
		logger.Debug("Client disconnected.", "reason", reason)
		cancel()
	})
	client.On(EventStart, func(args ...any) {
		s.start(ctx, client, args)
	})
	client.On(EventWatch, func(args ...any) {
		s.watch(ctx, client, args)
	})
	client.On(EventCancel, func(args ...any) {
		s.cancelRun(ctx, client, args)
	})
}

type runRef struct {
	RunID string `json:"runId"`
}

// start subscribes before starting the run so the starting client sees
// every event of its run, including run:started.
func (s *Server) start(ctx context.Context, client *socket.Socket, args []any) {
	logger := ctxlog.FromContext(ctx)
	if len(args) == 0 {
		s.fail(ctx, client, "", errors.New("missing request"))
		return
	}
	raw, err := sonic.Marshal(args[0])
	if err != nil {
		s.fail(ctx, client, "", fmt.Errorf("failed to encode request: %w", err))
		return
	}
	req, err := engine.DecodeRequest(raw)
	if err != nil {
		s.fail(ctx, client, "", err)
		return
	}

	ch, stop := s.engine.Subscribe(ctx, eventsFilter())
	id, err := s.engine.StartRequest(ctx, req)
	if err != nil {
		stop()
		s.fail(ctx, client, "", err)
		return
	}
	logger.Info("Run started by client.", "run_id", id)
	s.emit(ctx, client, EventAccepted, map[string]any{"runId": id})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		s.forward(ctx, client, id, ch)
	}()
}

func (s *Server) forward(ctx context.Context, client *socket.Socket, runID string, ch <-chan events.Event) {
	for ev := range ch {
		if ev.RunID != runID {
			continue
		}
		name, _ := serverEvent(ev.Type)
		data, err := payload(ctx, s.engine, ev)
		if err != nil {
			s.fail(ctx, client, runID, err)
			return
		}
		s.emit(ctx, client, name, data)
		if ev.Terminal() {
			return
		}
	}
}

// watch joins the client to the run's room. A run that is already over is
// answered with its run:finished event right away.
func (s *Server) watch(ctx context.Context, client *socket.Socket, args []any) {
	var ref runRef
	if err := fromPayload(args, &ref); err != nil {
		s.fail(ctx, client, "", err)
		return
	}
	client.Join(socket.Room(ref.RunID))
	snap, err := s.engine.Status(ctx, ref.RunID)
	if err != nil {
		client.Leave(socket.Room(ref.RunID))
		s.fail(ctx, client, ref.RunID, err)
		return
	}
	s.emit(ctx, client, EventAccepted, map[string]any{"runId": ref.RunID})
	if !snap.Status.Terminal() {
		return
	}
	ev := events.Event{Type: events.RunFinished, RunID: snap.RunID, Status: snap.Status, Time: snap.FinishedAt}
	if snap.Err != nil {
		ev.Error = snap.Err.Error()
	}
	data, err := payload(ctx, s.engine, ev)
	if err != nil {
		s.fail(ctx, client, ref.RunID, err)
		return
	}
	s.emit(ctx, client, EventFinished, data)
}

func (s *Server) cancelRun(ctx context.Context, client *socket.Socket, args []any) {
	var ref runRef
	if err := fromPayload(args, &ref); err != nil {
		s.fail(ctx, client, "", err)
		return
	}
	if err := s.engine.Cancel(ctx, ref.RunID); err != nil {
		s.fail(ctx, client, ref.RunID, err)
	}
}

func (s *Server) emit(ctx context.Context, client *socket.Socket, name string, data map[string]any) {
	if err := client.Emit(name, data); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit event.", "event", name, "error", err)
	}
}

func (s *Server) fail(ctx context.Context, client *socket.Socket, runID string, err error) {
	ctxlog.FromContext(ctx).Warn("Client request failed.", "run_id", runID, "error", err)
	s.emit(ctx, client, EventError, map[string]any{"runId": runID, "error": err.Error()})
}
