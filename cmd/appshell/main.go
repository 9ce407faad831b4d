// Command appshell is a reference host for the bootstrap core: it boots
// the phase orchestrator against an in-memory document, exposes the
// diagnostics surface, and tears everything down on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"appshell/internal/app"
	"appshell/internal/bootstrap"
	"appshell/internal/config"
	"appshell/internal/diagnostics"
	"appshell/internal/dom"
	"appshell/internal/events"
	"appshell/internal/lifecycle"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	doc := buildDocument()

	shell, err := app.New(ctx, cfg, bootstrap.Options{
		Document:  doc,
		Sanitizer: dom.StripTagSanitizer{},
	}, hostModules(doc, cfg))
	if err != nil {
		log.Fatalf("failed to assemble application: %v", err)
	}

	var diag *diagnostics.Server
	if cfg.Diagnostics.Enabled {
		diag = diagnostics.NewServer(
			cfg.Diagnostics.Addr,
			shell.Orchestrator.State(),
			shell.Registry,
			shell.Metrics,
			shell.Logger,
		)
		go func() {
			if err := diag.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				shell.Logger.Error("diagnostics server stopped", zap.Error(err))
			}
		}()
	}

	shell.Orchestrator.Ready().Subscribe(func(e lifecycle.Emission) {
		shell.Logger.Info("application ready", zap.String("bootId", e.BootID))
	})
	shell.Orchestrator.Failed().Subscribe(func(e lifecycle.Emission) {
		shell.Logger.Error("application failed", zap.String("bootId", e.BootID), zap.Error(e.Err))
	})

	// The hosting environment signals document readiness; the core phase
	// waits on it.
	doc.MarkReady()

	if err := shell.Start(ctx); err != nil {
		shell.Logger.Fatal("boot failed after rollback", zap.Error(err))
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if diag != nil {
		if err := diag.Shutdown(shutdownCtx); err != nil {
			shell.Logger.Warn("diagnostics shutdown failed", zap.Error(err))
		}
	}
	if err := shell.Shutdown(shutdownCtx); err != nil {
		shell.Logger.Error("shutdown finished with errors", zap.Error(err))
	}
}

// buildDocument assembles the demo markup the UI phase delegates over.
func buildDocument() *dom.MemoryDocument {
	doc := dom.NewMemoryDocument()
	list := dom.NewElement("ul").WithID("project-list")
	list.Append(dom.NewElement("li").WithClasses("project-item"))
	doc.Root().Append(list)
	return doc
}

// hostModules supplies this host's collaborator per lifecycle phase.
// Each phase pulls its dependencies from the registry, never through
// direct construction.
func hostModules(doc *dom.MemoryDocument, cfg config.Config) func(*app.App) app.Modules {
	return func(shell *app.App) app.Modules {
		reg := shell.Registry
		tracker := shell.Tracker

		return app.Modules{
			ServicesBasic: app.ModuleFunc{
				RunFunc: func(ctx context.Context) error {
					// Foundational services must already be in place.
					if err := lifecycle.WaitFor(ctx, cfg.PhaseTimeout, "foundational services", func() bool {
						return reg.Has(bootstrap.ServiceEventHandlers) && reg.Has(bootstrap.ServiceLogger)
					}); err != nil {
						return err
					}
					reg.Register("tokenStatsManager", newTokenStatsStub())
					return reg.Upgrade("authApiService", authAPIStub{})
				},
				CleanupFunc: func(context.Context) error { return nil },
			},

			ServicesAdvanced: app.ModuleFunc{
				RunFunc: func(ctx context.Context) error {
					// Swap the cold-start auth stub for the real client.
					return reg.Upgrade("authApiService", newAuthAPI(shell.Logger))
				},
				CleanupFunc: func(context.Context) error { return nil },
			},

			Errors: app.ModuleFunc{
				RunFunc: func(ctx context.Context) error {
					tracker.Track(doc.Root(), "error", func(ev dom.Event) {
						shell.Logger.Warn("unhandled document error event")
					}, events.Options{
						Context: lifecycle.OrchestratorContext,
						Module:  "host",
					})
					return nil
				},
				CleanupFunc: func(context.Context) error {
					tracker.Cleanup(events.Filter{Context: lifecycle.OrchestratorContext, Type: "error"})
					return nil
				},
			},

			Core: app.ModuleFunc{
				RunFunc: func(ctx context.Context) error {
					return lifecycle.WaitForChannel(ctx, cfg.PhaseTimeout, "document readiness", doc.Ready())
				},
				CleanupFunc: func(context.Context) error { return nil },
			},

			Auth: app.ModuleFunc{
				RunFunc: func(ctx context.Context) error {
					api, ok := reg.Get("authApiService").(authAPI)
					if !ok {
						return errors.New("authApiService not registered")
					}
					user, authenticated := api.CurrentSession(ctx)
					shell.Orchestrator.State().SetAuthenticated(authenticated, user)
					return nil
				},
				CleanupFunc: func(context.Context) error {
					shell.Orchestrator.State().SetAuthenticated(false, nil)
					return nil
				},
			},

			UI: app.ModuleFunc{
				RunFunc: func(ctx context.Context) error {
					tracker.Delegate(doc.Root(), "click", ".project-item", func(ev dom.Event, match dom.Matcher) {
						shell.Logger.Info("project item activated")
					}, events.Options{Context: "ui", Module: "host"})
					return nil
				},
				CleanupFunc: func(context.Context) error {
					tracker.Cleanup(events.Filter{Context: "ui"})
					return nil
				},
			},
		}
	}
}

// authAPI is the capability the auth phase needs from its service.
type authAPI interface {
	CurrentSession(ctx context.Context) (user any, authenticated bool)
}

type authAPIStub struct{}

func (authAPIStub) CurrentSession(context.Context) (any, bool) { return nil, false }

type zapAuthAPI struct {
	logger *zap.Logger
}

func newAuthAPI(logger *zap.Logger) authAPI {
	return &zapAuthAPI{logger: logger}
}

func (a *zapAuthAPI) CurrentSession(ctx context.Context) (any, bool) {
	// A real host would call its session endpoint here.
	a.logger.Debug("no persisted session found")
	return nil, false
}

// tokenStats tracks rough usage counters for the session.
type tokenStats struct {
	Requests int `json:"requests"`
}

func newTokenStatsStub() *tokenStats { return &tokenStats{} }
