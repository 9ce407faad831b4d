// Package app wires the bootstrap, the registry, the listener engine and
// the phase orchestrator into one application container with lifecycle
// management.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"appshell/internal/bootstrap"
	"appshell/internal/config"
	apperrors "appshell/internal/errors"
	"appshell/internal/events"
	"appshell/internal/lifecycle"
	"appshell/internal/observability"
	"appshell/internal/registry"
)

// Module is the contract every external initialization collaborator must
// expose to be admitted into the orchestrator's fixed phase list.
type Module interface {
	Run(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// ModuleFunc builds a Module from plain functions. Either may be nil.
type ModuleFunc struct {
	RunFunc     func(ctx context.Context) error
	CleanupFunc func(ctx context.Context) error
}

// Run implements Module.
func (m ModuleFunc) Run(ctx context.Context) error {
	if m.RunFunc == nil {
		return nil
	}
	return m.RunFunc(ctx)
}

// Cleanup implements Module.
func (m ModuleFunc) Cleanup(ctx context.Context) error {
	if m.CleanupFunc == nil {
		return nil
	}
	return m.CleanupFunc(ctx)
}

// Modules supplies one collaborator per fixed phase. Nil entries become
// no-op phases so partial hosts (and tests) stay easy to assemble.
type Modules struct {
	ServicesBasic    Module
	ServicesAdvanced Module
	Errors           Module
	Core             Module
	Auth             Module
	UI               Module
}

// shutdownTimeout bounds each external teardown call (trace flush).
const shutdownTimeout = 5 * time.Second

// App holds all application dependencies with lifecycle management.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Registry     *registry.Registry
	Tracker      *events.Tracker
	Orchestrator *lifecycle.Orchestrator
	Metrics      *observability.Collector
	Tracing      *observability.TracerProvider
	Watcher      *config.Watcher

	shutdownFunctions []func() error
}

// New bootstraps the foundational services and assembles the container.
// buildModules receives the partially-assembled container (registry,
// tracker, logger and metrics are live; the orchestrator is not yet) and
// returns the collaborator modules; their Run/Cleanup functions execute
// only during Start/Shutdown, when the container is complete.
func New(ctx context.Context, cfg config.Config, env bootstrap.Options, buildModules func(*App) Modules) (*App, error) {
	env.Config = cfg
	services, err := bootstrap.Run(env)
	if err != nil {
		return nil, apperrors.Wrap(err, "bootstrap failed")
	}

	a := &App{
		Config:   cfg,
		Logger:   services.Logger,
		Registry: services.Registry,
		Tracker:  services.Tracker,
		Metrics:  services.Metrics,
	}

	watcher, err := config.NewWatcher(cfg, services.Logger)
	if err != nil {
		return nil, apperrors.Wrap(err, "config watcher failed")
	}
	a.Watcher = watcher
	a.addShutdownFunction(func() error {
		watcher.Stop()
		return nil
	})

	var modules Modules
	if buildModules != nil {
		modules = buildModules(a)
	}
	orchestrator, err := lifecycle.NewOrchestrator(
		a.phases(modules), services.Tracker, services.Logger, services.Metrics,
	)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orchestrator

	// Tracing is best-effort: a missing collector endpoint must not fail
	// startup.
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: "appshell",
			Environment: string(cfg.Environment),
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			services.Logger.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			a.Tracing = tp
			orchestrator.AddObserver(observability.NewPhaseTracer(tp.Tracer()))
			a.addShutdownFunction(func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return tp.Shutdown(shutdownCtx)
			})
		}
	}

	return a, nil
}

// phases maps collaborator modules onto the fixed, ordered phase list.
func (a *App) phases(modules Modules) []lifecycle.Phase {
	ordered := []struct {
		name   string
		module Module
	}{
		{lifecycle.PhaseServicesBasic, modules.ServicesBasic},
		{lifecycle.PhaseServicesAdvanced, modules.ServicesAdvanced},
		{lifecycle.PhaseErrors, modules.Errors},
		{lifecycle.PhaseCore, modules.Core},
		{lifecycle.PhaseAuth, modules.Auth},
		{lifecycle.PhaseUI, modules.UI},
	}
	phases := make([]lifecycle.Phase, 0, len(ordered))
	for _, entry := range ordered {
		module := entry.module
		if module == nil {
			module = ModuleFunc{}
		}
		phases = append(phases, lifecycle.Phase{
			Name:     entry.name,
			Run:      module.Run,
			Rollback: module.Cleanup,
		})
	}
	return phases
}

// Start runs the full initialization sequence.
func (a *App) Start(ctx context.Context) error {
	return a.Orchestrator.InitializeApp(ctx)
}

// Shutdown tears the application down: lifecycle cleanup first, then the
// shutdown functions in reverse registration order. Every step runs even
// when earlier ones fail.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application container")
	a.Orchestrator.Cleanup(ctx)

	var errs []error
	for i := len(a.shutdownFunctions) - 1; i >= 0; i-- {
		if err := a.shutdownFunctions[i](); err != nil {
			errs = append(errs, err)
			a.Logger.Error("error during shutdown", zap.Error(err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}
	a.Logger.Info("application container shutdown complete")
	return nil
}

// AddShutdownFunction registers a function for Shutdown's reverse-order
// teardown.
func (a *App) AddShutdownFunction(fn func() error) {
	a.addShutdownFunction(fn)
}

func (a *App) addShutdownFunction(fn func() error) {
	a.shutdownFunctions = append(a.shutdownFunctions, fn)
}
