package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/gridflow/internal/archive"
	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/graphdoc"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/scheduler"
	"github.com/specialistvlad/gridflow/internal/script"
)

// ErrLoadGraph wraps every failure to read or decode the graph documents.
var ErrLoadGraph = errors.New("failed to load graph")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	engine   *engine.Engine

	httpServer *http.Server
}

// NewApp is the constructor for the main application. Logs go to logW and
// summaries to outW. Without modules the core kinds are registered.
func NewApp(ctx context.Context, outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := NewLogger(cfg.Engine.LogLevel, cfg.Engine.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	g, err := graphdoc.LoadPath(ctx, cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadGraph, err)
	}
	logger.Debug("Graph loaded.", "path", cfg.GraphPath, "nodes", len(g.Nodes), "edges", len(g.Edges))

	if len(modules) == 0 {
		modules = coreModules()
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", reg.Names())

	arch, err := newArchive(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}

	eng := engine.New(g, reg, newExecutor(cfg.Engine),
		engine.WithDefaults(defaults(cfg.Engine)),
		engine.WithArchive(arch),
	)

	return &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		engine:   eng,
	}, nil
}

func newExecutor(cfg config.Engine) *script.Executor {
	var opts []script.Option
	if len(cfg.DenyList) > 0 {
		opts = append(opts, script.WithPolicy(&script.Policy{Deny: cfg.DenyList}))
	}
	if cfg.TempDir != "" {
		opts = append(opts, script.WithTempDir(cfg.TempDir))
	}
	return script.NewExecutor(opts...)
}

func defaults(cfg config.Engine) scheduler.Defaults {
	return scheduler.Defaults{
		Workers:     cfg.Workers,
		NodeTimeout: cfg.NodeTimeout,
		Limits: script.Limits{
			MaxOutputBytes: cfg.MaxOutputBytes,
			MaxMemoryBytes: cfg.MaxMemoryBytes,
			MaxCPUSeconds:  cfg.MaxCPUSeconds,
		},
	}
}

// newArchive picks Redis when a URL is configured and memory otherwise.
func newArchive(ctx context.Context, cfg config.Engine) (archive.Archiver, error) {
	ttl := cfg.ArchiveTTL
	if ttl == 0 {
		ttl = archive.DefaultTTL
	}
	if cfg.RedisURL == "" {
		return archive.NewMemory(ttl), nil
	}
	a, err := archive.NewRedis(ctx, cfg.RedisURL, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to open run archive: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Run archive connected.", "backend", "redis", "ttl", ttl)
	return a, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Engine returns the application's engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Close stops the engine and releases the archive.
func (a *App) Close(ctx context.Context) error {
	return a.engine.Close(ctx)
}
