package errors

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Reporter receives contained runtime errors (handler failures, attach
// failures) with enough context to diagnose them. Implementations must
// never propagate errors back to the caller: one faulty UI handler must
// not break the event loop or abort sibling handlers.
type Reporter interface {
	Report(ctx context.Context, err error, fields ...zap.Field)
}

// Sink forwards reported errors to an external collector (crash reporting,
// log aggregation). Supplied by the hosting environment; optional.
type Sink interface {
	Send(ctx context.Context, err error) error
}

// ZapReporter reports errors through a zap logger and optionally forwards
// them to an external sink behind a circuit breaker, so a broken sink
// cannot stall handler dispatch.
type ZapReporter struct {
	logger  *zap.Logger
	sink    Sink
	breaker *gobreaker.CircuitBreaker
}

// NewReporter creates a reporter. logger is required; sink may be nil.
func NewReporter(logger *zap.Logger, sink Sink) (*ZapReporter, error) {
	if logger == nil {
		return nil, NewMissingDependency("logger")
	}
	r := &ZapReporter{logger: logger, sink: sink}
	if sink != nil {
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "error-sink",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("error sink breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	return r, nil
}

// SetLogger swaps the diagnostic logger. Used by the bootstrap's
// stub-then-upgrade step; the reporter itself is never reconstructed.
func (r *ZapReporter) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Report logs the error with its classified type and severity, then
// forwards it to the sink if one is configured and the breaker is closed.
func (r *ZapReporter) Report(ctx context.Context, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	all := append([]zap.Field{
		zap.String("errorType", string(TypeOf(err))),
		zap.Error(err),
	}, fields...)

	var core *CoreError
	severity := SeverityMedium
	if stderrors.As(err, &core) {
		severity = core.Severity
		if core.Module != "" {
			all = append(all, zap.String("module", core.Module))
		}
		if core.Operation != "" {
			all = append(all, zap.String("operation", core.Operation))
		}
	}

	switch severity {
	case SeverityCritical, SeverityHigh:
		r.logger.Error("error reported", all...)
	default:
		r.logger.Warn("error reported", all...)
	}

	if r.sink == nil {
		return
	}
	if _, sinkErr := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.sink.Send(ctx, err)
	}); sinkErr != nil {
		r.logger.Debug("error sink delivery failed", zap.Error(sinkErr))
	}
}
