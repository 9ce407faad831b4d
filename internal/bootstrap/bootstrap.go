// Package bootstrap constructs the minimum viable set of foundational
// services despite their mutual dependencies. The logger wants the
// listener engine's error channel; the engine wants a logger; both want
// the DOM-access abstraction; the abstraction wants a sanitizer that may
// be unavailable at cold start. The knot is cut with stub-then-upgrade:
// construct with a no-op placeholder, then swap the internal reference
// once the real dependency exists. No foundational service is ever
// reconstructed, and only the registry's explicit allow-list of names
// may be swapped, so the mechanism cannot sprawl into general mutable
// state.
package bootstrap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"appshell/internal/config"
	"appshell/internal/dom"
	apperrors "appshell/internal/errors"
	"appshell/internal/events"
	"appshell/internal/observability"
	"appshell/internal/registry"
)

// Registry names of the foundational services.
const (
	ServiceLogger        = "logger"
	ServiceDOMAccess     = "domAccess"
	ServiceSanitizer     = "sanitizer"
	ServiceSafeHandler   = "safeHandler"
	ServiceEventHandlers = "eventHandlers"
	ServiceErrorReporter = "errorReporter"
)

// Options are the environment-supplied inputs to the bootstrap.
type Options struct {
	// Document is required; bootstrap fails fast without it.
	Document dom.Document
	// Window is the opaque window handle; may be nil for headless hosts.
	Window any
	// Sanitizer may be nil: booting must not hard-fail on a missing
	// sanitizer, but the pass-through fallback is loudly diagnosed.
	Sanitizer dom.Sanitizer
	// Sink optionally forwards reported errors to an external collector.
	Sink apperrors.Sink

	Config  config.Config
	Metrics *observability.Collector
}

// Services are the foundational services the bootstrap produced.
// Downstream phases consume them purely through the Registry, never
// through direct construction.
type Services struct {
	Logger    *zap.Logger
	Access    *dom.Access
	Sanitizer dom.Sanitizer
	Safe      events.SafeHandler
	Tracker   *events.Tracker
	Reporter  *apperrors.ZapReporter
	Registry  *registry.Registry
	Metrics   *observability.Collector

	// SanitizerDegraded records that the pass-through fallback is live.
	SanitizerDegraded bool
}

// Run executes the stub-then-upgrade protocol and registers every
// foundational service into the registry.
func Run(opts Options) (*Services, error) {
	// 1. Resolve the sanitizer, or install the pass-through fallback.
	// The compromise is logged at high severity once the real logger
	// exists (step 5), not silently swallowed.
	sanitizer := opts.Sanitizer
	degraded := false
	if sanitizer == nil {
		sanitizer = dom.PassthroughSanitizer{}
		degraded = true
	}

	// 2. The DOM-access abstraction needs only the sanitizer and the raw
	// platform handles. A missing document is a fatal construction error.
	access, err := dom.NewAccess(opts.Document, opts.Window, sanitizer)
	if err != nil {
		return nil, err
	}

	// 3. Silent logger stub and a swallow-all safe handler.
	stubLogger := zap.NewNop()

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewCollector("appshell")
	}

	// 4. The real listener engine, built against the stub logger: fully
	// functional for attach/detach, nowhere useful to send diagnostics yet.
	tracker := events.NewTracker(stubLogger, metrics)

	reg := registry.New(stubLogger)

	// 5. The real logger, now that the engine exists to carry any
	// log-delivery side effects.
	logger, err := newLogger(opts.Config)
	if err != nil {
		return nil, apperrors.NewInternal("failed to construct logger", err)
	}

	// 6. Upgrade the engine's diagnostic sink in place. Every listener
	// attached before this point keeps working.
	tracker.SetLogger(logger)
	reg.SetLogger(logger)

	// 7. The real safe handler, and the same in-place upgrade.
	safe := NewSafeHandler(logger)
	tracker.SetSafeHandler(safe)

	reporter, err := apperrors.NewReporter(logger, opts.Sink)
	if err != nil {
		return nil, err
	}
	tracker.SetReporter(reporter)

	if degraded {
		logger.Error("content sanitizer unavailable at cold start; pass-through fallback installed",
			zap.String("severity", string(apperrors.SeverityCritical)),
			zap.String("remediation", "supply a Sanitizer in bootstrap.Options"),
		)
	}

	// 8. Register everything. The upgradable names go through the
	// registry's documented upgrade path; the rest are register-once.
	if err := reg.Upgrade(ServiceLogger, logger); err != nil {
		return nil, err
	}
	if err := reg.Upgrade(ServiceSafeHandler, safe); err != nil {
		return nil, err
	}
	reg.Register(ServiceDOMAccess, access)
	reg.Register(ServiceSanitizer, sanitizer)
	reg.Register(ServiceEventHandlers, tracker)
	reg.Register(ServiceErrorReporter, reporter)

	logger.Info("foundational services bootstrapped",
		zap.Bool("sanitizerDegraded", degraded),
		zap.Int("registered", reg.Len()),
	)

	return &Services{
		Logger:            logger,
		Access:            access,
		Sanitizer:         sanitizer,
		Safe:              safe,
		Tracker:           tracker,
		Reporter:          reporter,
		Registry:          reg,
		Metrics:           metrics,
		SanitizerDegraded: degraded,
	}, nil
}

// NewSafeHandler builds the exception-wrapping utility: it contains
// panics and logs them, so one faulty handler cannot break the caller.
func NewSafeHandler(logger *zap.Logger) events.SafeHandler {
	return func(description string, fn func()) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic contained by safe handler",
					zap.String("description", description),
					zap.Any("panic", r),
				)
			}
		}()
		fn()
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
