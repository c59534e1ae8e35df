package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/eventsrv"
)

// Serve runs the socket.io event server, and the health check server when a
// port is configured, until ctx is done. Runs still active afterwards are
// stopped by Close.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ln, err := net.Listen("tcp", a.config.Engine.EventsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Engine.EventsAddr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx)

	if a.config.Engine.HealthcheckPort > 0 {
		if err := a.startHealthServer(); err != nil {
			return err
		}
		defer a.stopHealthServer()
	}

	events := eventsrv.New(ctx, a.engine)
	mux := events.Mux()
	mux.HandleFunc("/health", a.healthHandler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("📡 Event server listening", "address", ln.Addr().String(), "path", eventsrv.Path)
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logger.Info("Shutting down event server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	errs := []error{}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		errs = append(errs, serveErr)
	}
	if err := events.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
