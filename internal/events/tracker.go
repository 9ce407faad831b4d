package events

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"appshell/internal/dom"
	apperrors "appshell/internal/errors"
	"appshell/internal/observability"
)

// recordKey is the composite identity of a tracked listener. Handlers
// are compared by function identity, like platform listener semantics.
type recordKey struct {
	target    any
	eventType string
	handler   uintptr
}

// record is the bookkeeping entry for one tracked listener.
type record struct {
	key     recordKey
	detach  func()
	opts    Options
	context string
	done    chan struct{}

	removeOnce sync.Once
	remove     RemoveFunc
}

// Tracker is the listener tracking engine. Its bookkeeping maps are the
// only shared mutable state in the engine; bulk cleanup snapshots
// matching entries before mutating them so iteration is never
// invalidated mid-sweep.
type Tracker struct {
	mu        sync.Mutex
	records   map[recordKey]*record
	byContext map[string]map[recordKey]struct{}

	logger   *zap.Logger
	reporter apperrors.Reporter
	safe     SafeHandler
	metrics  *observability.Collector
}

// NewTracker creates the engine. The logger may be a silent stub during
// bootstrap; reporter may be nil until the error channel exists. Both
// are upgraded in place later, never by reconstruction.
func NewTracker(logger *zap.Logger, metrics *observability.Collector) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewCollector("appshell")
	}
	return &Tracker{
		records:   make(map[recordKey]*record),
		byContext: make(map[string]map[recordKey]struct{}),
		logger:    logger,
		safe:      NoopSafeHandler,
		metrics:   metrics,
	}
}

// SetLogger swaps the diagnostic sink. Listeners attached before the
// swap keep working; only diagnostics change destination.
func (t *Tracker) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	t.mu.Lock()
	t.logger = logger
	t.mu.Unlock()
}

// SetSafeHandler swaps the exception-wrapping utility.
func (t *Tracker) SetSafeHandler(safe SafeHandler) {
	if safe == nil {
		return
	}
	t.mu.Lock()
	t.safe = safe
	t.mu.Unlock()
}

// SetReporter swaps the error-reporting collaborator.
func (t *Tracker) SetReporter(reporter apperrors.Reporter) {
	t.mu.Lock()
	t.reporter = reporter
	t.mu.Unlock()
}

// Track attaches handler to target for eventType and records the
// registration. The same (target, type, handler) triple attaches at most
// once: a second call returns the existing removal handle. Invalid
// targets degrade to a no-op handle with a diagnostic; event wiring
// failures must never crash application boot.
func (t *Tracker) Track(target dom.Target, eventType string, handler dom.Handler, opts Options) RemoveFunc {
	if target == nil || handler == nil {
		t.currentLogger().Warn("listener not tracked: invalid target or handler",
			zap.String("eventType", eventType),
			zap.String("module", opts.Module),
		)
		return func() {}
	}
	if !reflect.TypeOf(target).Comparable() {
		t.currentLogger().Warn("listener not tracked: target does not support identity bookkeeping",
			zap.String("eventType", eventType),
			zap.String("module", opts.Module),
		)
		return func() {}
	}

	key := recordKey{
		target:    target,
		eventType: eventType,
		handler:   reflect.ValueOf(handler).Pointer(),
	}

	t.mu.Lock()
	if existing, ok := t.records[key]; ok {
		t.mu.Unlock()
		t.currentLogger().Debug("duplicate listener registration, returning existing handle",
			zap.String("eventType", eventType),
			zap.String("module", opts.Module),
		)
		return existing.remove
	}
	t.mu.Unlock()

	passive := defaultPassive(eventType)
	if opts.Passive != nil {
		passive = *opts.Passive
	}

	rec := &record{
		key:     key,
		opts:    opts,
		context: opts.Context,
		done:    make(chan struct{}),
	}
	rec.remove = func() {
		rec.removeOnce.Do(func() {
			t.drop(rec)
		})
	}

	wrapped := t.wrap(rec, handler, passive)

	detach, err := target.AddEventListener(eventType, wrapped, opts.listenerOptions(passive))
	if err != nil {
		attachErr := apperrors.NewAttachFailure(
			fmt.Sprintf("failed to attach %q listener", eventType), err,
		).WithModule(opts.Module)
		t.report(attachErr, zap.String("eventType", eventType))
		return func() {}
	}
	rec.detach = detach

	t.mu.Lock()
	// A racing Track for the same key attached first; keep its record
	// and discard this attachment.
	if existing, ok := t.records[key]; ok {
		t.mu.Unlock()
		detach()
		return existing.remove
	}
	t.records[key] = rec
	if opts.Context != "" {
		if t.byContext[opts.Context] == nil {
			t.byContext[opts.Context] = make(map[recordKey]struct{})
		}
		t.byContext[opts.Context][key] = struct{}{}
	}
	t.mu.Unlock()

	t.metrics.ListenersActive.Inc()
	t.metrics.ListenersAttached.WithLabelValues(eventType).Inc()

	if opts.Signal != nil {
		go func() {
			select {
			case <-opts.Signal:
				rec.remove()
			case <-rec.done:
			}
		}()
	}

	return rec.remove
}

// Untrack removes a single registration identified by its composite key.
// No-op if the triple was never tracked.
func (t *Tracker) Untrack(target dom.Target, eventType string, handler dom.Handler) {
	if target == nil || handler == nil || !reflect.TypeOf(target).Comparable() {
		return
	}
	key := recordKey{
		target:    target,
		eventType: eventType,
		handler:   reflect.ValueOf(handler).Pointer(),
	}
	t.mu.Lock()
	rec, ok := t.records[key]
	t.mu.Unlock()
	if ok {
		rec.remove()
	}
}

// Filter selects tracked listeners for bulk cleanup. All supplied fields
// must match; the zero value matches every record.
type Filter struct {
	Context string
	Target  any
	Type    string
}

func (f Filter) empty() bool {
	return f.Context == "" && f.Target == nil && f.Type == ""
}

func (f Filter) matches(rec *record) bool {
	if f.Context != "" && rec.context != f.Context {
		return false
	}
	if f.Target != nil && rec.key.target != f.Target {
		return false
	}
	if f.Type != "" && rec.key.eventType != f.Type {
		return false
	}
	return true
}

// Cleanup removes every tracked listener matching the filter. An empty
// filter removes everything — deliberately loud, because unscoped sweeps
// are rare and must be visible in diagnostics. One failing removal never
// blocks removal of the rest.
func (t *Tracker) Cleanup(filter Filter) int {
	t.mu.Lock()
	matched := make([]*record, 0)
	if filter.Context != "" {
		for key := range t.byContext[filter.Context] {
			if rec, ok := t.records[key]; ok && filter.matches(rec) {
				matched = append(matched, rec)
			}
		}
	} else {
		for _, rec := range t.records {
			if filter.matches(rec) {
				matched = append(matched, rec)
			}
		}
	}
	t.mu.Unlock()

	if filter.empty() {
		t.currentLogger().Warn("unscoped listener cleanup: removing all tracked listeners",
			zap.Int("count", len(matched)),
		)
	}

	removed := 0
	for _, rec := range matched {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.report(apperrors.NewAttachFailure(
						fmt.Sprintf("listener removal panicked: %v", r), nil,
					), zap.String("eventType", rec.key.eventType))
				}
			}()
			// A record can disappear between snapshot and sweep (a once
			// handler firing, a cascading detach); count only removals
			// this sweep performed itself.
			t.mu.Lock()
			_, live := t.records[rec.key]
			t.mu.Unlock()
			rec.remove()
			if live {
				removed++
			}
		}()
	}
	return removed
}

// Count returns the number of tracked listeners, optionally filtered.
func (t *Tracker) Count(filter Filter) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.records {
		if filter.matches(rec) {
			n++
		}
	}
	return n
}

// drop detaches the underlying listener and purges the bookkeeping.
// Detach failures degrade to a logged skip.
func (t *Tracker) drop(rec *record) {
	close(rec.done)

	t.mu.Lock()
	_, present := t.records[rec.key]
	delete(t.records, rec.key)
	if rec.context != "" {
		if set, ok := t.byContext[rec.context]; ok {
			delete(set, rec.key)
			if len(set) == 0 {
				delete(t.byContext, rec.context)
			}
		}
	}
	t.mu.Unlock()

	if !present {
		return
	}

	if rec.detach != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.currentLogger().Warn("listener detach failed, skipping",
						zap.String("eventType", rec.key.eventType),
						zap.Any("panic", r),
					)
				}
			}()
			rec.detach()
		}()
	}

	t.metrics.ListenersActive.Dec()
	t.metrics.ListenersRemoved.WithLabelValues(rec.key.eventType).Inc()
}

// wrap builds the handler actually attached to the target: it brackets
// the caller's handler with duration measurement, panic containment,
// passive-violation detection, and once auto-removal.
func (t *Tracker) wrap(rec *record, handler dom.Handler, passive bool) dom.Handler {
	eventType := rec.key.eventType
	threshold := slowThreshold(eventType)
	description := rec.opts.Description
	if description == "" {
		description = fmt.Sprintf("%s handler (%s)", eventType, rec.opts.Module)
	}

	return func(ev dom.Event) {
		pa, passiveAware := ev.(dom.PassiveAware)
		if passiveAware {
			pa.SetPassive(passive)
		}
		// The violation flag on the event is cumulative across the
		// dispatch; only a violation raised by THIS handler is logged.
		violationBefore := passiveAware && pa.PassiveViolation()

		start := time.Now()
		t.currentSafe()(description, func() {
			defer func() {
				if r := recover(); r != nil {
					t.report(apperrors.NewHandlerFailure(
						fmt.Sprintf("handler panicked: %v", r), nil,
					).WithModule(rec.opts.Module).WithOperation(description),
						zap.String("eventType", eventType))
					t.metrics.HandlerErrors.WithLabelValues(eventType).Inc()
					panic(r) // re-raise into the safe handler, which contains it
				}
			}()
			handler(ev)
		})
		elapsed := time.Since(start)

		if elapsed > threshold {
			t.metrics.SlowHandlers.WithLabelValues(eventType).Inc()
			t.currentLogger().Warn("slow event handler",
				zap.String("eventType", eventType),
				zap.String("description", description),
				zap.Duration("elapsed", elapsed),
				zap.Duration("threshold", threshold),
			)
		}

		if passiveAware && passive && pa.PassiveViolation() && !violationBefore {
			t.currentLogger().Warn("preventDefault called from passive listener; call ignored",
				zap.String("eventType", eventType),
				zap.String("description", description),
			)
		}

		if rec.opts.Once {
			rec.remove()
		}
	}
}

func (t *Tracker) currentLogger() *zap.Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logger
}

func (t *Tracker) currentSafe() SafeHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.safe
}

func (t *Tracker) report(err error, fields ...zap.Field) {
	t.mu.Lock()
	reporter := t.reporter
	logger := t.logger
	t.mu.Unlock()
	if reporter != nil {
		reporter.Report(context.Background(), err, fields...)
		return
	}
	logger.Warn("error reported before reporter available",
		append([]zap.Field{zap.Error(err)}, fields...)...)
}
