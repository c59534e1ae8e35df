package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
)

const healthShutdownTimeout = 5 * time.Second

// healthStatus is the body served on /health.
type healthStatus struct {
	Status string   `json:"status"`
	Runs   int      `json:"runs"`
	Kinds  []string `json:"kinds"`
}

// healthHandler reports liveness, the runs the engine still holds and the
// registered node kinds.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctxlog.FromContext(a.ctx).Debug("Health check requested.", "remote_addr", r.RemoteAddr)

	body, err := sonic.Marshal(healthStatus{
		Status: "ok",
		Runs:   len(a.engine.Runs()),
		Kinds:  a.registry.Names(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// startHealthServer binds the health check port and serves /health in the
// background until stopHealthServer is called.
func (a *App) startHealthServer() error {
	logger := ctxlog.FromContext(a.ctx)
	addr := fmt.Sprintf(":%d", a.config.Engine.HealthcheckPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start health check server on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.httpServer = srv

	logger.Info("🩺 Health check server listening.", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed.", "error", err)
		}
	}()
	return nil
}

func (a *App) stopHealthServer() {
	if a.httpServer == nil {
		return
	}
	logger := ctxlog.FromContext(a.ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), healthShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Health check server did not shut down cleanly.", "error", err)
	}
	a.httpServer = nil
	logger.Debug("Health check server stopped.")
}
