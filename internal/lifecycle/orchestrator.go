package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "appshell/internal/errors"
	"appshell/internal/events"
	"appshell/internal/observability"
)

// OrchestratorContext is the listener context tag under which the
// orchestrator and its phases attach listeners; Cleanup sweeps it last.
const OrchestratorContext = "lifecycle:orchestrator"

// Phase is one named, ordered unit of application bring-up. Run performs
// the work; Rollback undoes it. Rollback may be nil for phases with
// nothing to unwind.
type Phase struct {
	Name     string
	Run      func(ctx context.Context) error
	Rollback func(ctx context.Context) error
}

// Observer receives phase boundaries, for metrics and tracing.
type Observer interface {
	PhaseStarted(ctx context.Context, phase string)
	PhaseFinished(ctx context.Context, phase string, duration time.Duration, err error)
}

// Orchestrator runs the fixed phase sequence with rollback-on-failure.
// Phases never run concurrently: the next phase starts only after the
// previous one settles, so every later phase can rely on a total order
// over phase-visible side effects.
type Orchestrator struct {
	phases    []Phase
	state     *State
	logger    *zap.Logger
	tracker   *events.Tracker
	metrics   *observability.Collector
	observers []Observer

	ready  *Signal
	failed *Signal

	completed []Phase
	bootID    string
}

// NewOrchestrator creates an orchestrator over the given phase list.
// The logger and tracker are required collaborators.
func NewOrchestrator(phases []Phase, tracker *events.Tracker, logger *zap.Logger, metrics *observability.Collector) (*Orchestrator, error) {
	if logger == nil {
		return nil, apperrors.NewMissingDependency("logger")
	}
	if tracker == nil {
		return nil, apperrors.NewMissingDependency("tracker")
	}
	if metrics == nil {
		metrics = observability.NewCollector("appshell")
	}
	return &Orchestrator{
		phases:  phases,
		state:   NewState(),
		logger:  logger,
		tracker: tracker,
		metrics: metrics,
		ready:   NewSignal(SignalReady, logger),
		failed:  NewSignal(SignalFailed, logger),
	}, nil
}

// AddObserver registers a phase observer. Must be called before
// InitializeApp.
func (o *Orchestrator) AddObserver(obs Observer) {
	if obs != nil {
		o.observers = append(o.observers, obs)
	}
}

// State exposes the lifecycle state.
func (o *Orchestrator) State() *State { return o.state }

// Ready exposes the app:ready signal.
func (o *Orchestrator) Ready() *Signal { return o.ready }

// Failed exposes the app:failed signal.
func (o *Orchestrator) Failed() *Signal { return o.failed }

// BootID returns the identifier of the current boot attempt.
func (o *Orchestrator) BootID() string { return o.bootID }

// InitializeApp runs every phase in declaration order. On any phase
// failure it unwinds the completed phases in reverse, transitions the
// lifecycle to failed_idle, emits app:failed, and returns the phase
// error so the boot entry point decides how to present it. On success it
// transitions to initialized_idle and emits app:ready exactly once, even
// when a UI phase pre-emitted readiness. Calling it again after a
// successful boot is a no-op.
func (o *Orchestrator) InitializeApp(ctx context.Context) error {
	if o.state.Initialized() {
		o.logger.Debug("initializeApp called after successful boot, ignoring")
		return nil
	}
	if o.state.Initializing() {
		return apperrors.NewInternal("initialization already in progress", nil)
	}

	o.bootID = uuid.NewString()
	o.completed = o.completed[:0]
	o.ready.Reset()
	o.failed.Reset()
	o.state.beginInit()
	o.metrics.BootAttempts.Inc()

	o.logger.Info("application initialization starting",
		zap.String("bootId", o.bootID),
		zap.Int("phases", len(o.phases)),
	)
	bootStart := time.Now()

	for _, phase := range o.phases {
		if err := o.runPhase(ctx, phase); err != nil {
			o.rollback(ctx)
			o.state.failInit()
			o.metrics.BootFailures.Inc()
			o.failed.Emit(o.bootID, err)
			o.logger.Error("application initialization failed",
				zap.String("bootId", o.bootID),
				zap.String("phase", phase.Name),
				zap.Duration("elapsed", time.Since(bootStart)),
				zap.Error(err),
			)
			return err
		}
		o.completed = append(o.completed, phase)
	}

	o.state.completeInit()
	if !o.ready.Emitted() {
		o.ready.Emit(o.bootID, nil)
	}
	o.logger.Info("application initialization complete",
		zap.String("bootId", o.bootID),
		zap.Duration("elapsed", time.Since(bootStart)),
	)
	return nil
}

// runPhase is the uniform phase runner: it records the start, awaits the
// phase, and logs outcome with duration. Phase panics become phase
// failures, not crashes.
func (o *Orchestrator) runPhase(ctx context.Context, phase Phase) (err error) {
	o.state.setPhase(phase.Name)
	o.logger.Info("phase starting", zap.String("phase", phase.Name))
	start := time.Now()

	for _, obs := range o.observers {
		obs.PhaseStarted(ctx, phase.Name)
	}
	defer func() {
		elapsed := time.Since(start)
		for _, obs := range o.observers {
			obs.PhaseFinished(ctx, phase.Name, elapsed, err)
		}
		o.metrics.ObservePhase(phase.Name, elapsed, err)
		if err != nil {
			o.logger.Error("phase failed",
				zap.String("phase", phase.Name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		} else {
			o.logger.Info("phase complete",
				zap.String("phase", phase.Name),
				zap.Duration("elapsed", elapsed),
			)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewPhaseFailure(phase.Name, fmt.Errorf("panic: %v", r))
		}
	}()

	if phase.Run == nil {
		return nil
	}
	if runErr := phase.Run(ctx); runErr != nil {
		return apperrors.NewPhaseFailure(phase.Name, runErr)
	}
	return nil
}

// rollback unwinds the completed phases in reverse order. Each rollback
// call is independently contained so one faulty cleanup cannot prevent
// the rest from running.
func (o *Orchestrator) rollback(ctx context.Context) {
	o.logger.Warn("rolling back completed phases",
		zap.Int("completed", len(o.completed)),
	)
	for i := len(o.completed) - 1; i >= 0; i-- {
		o.unwindPhase(ctx, o.completed[i])
	}
	o.completed = o.completed[:0]
}

// Cleanup is the deliberate, non-failure teardown path: it unwinds every
// phase in strict reverse order regardless of completion, clears the
// lifecycle state, and sweeps the orchestrator's own listener context.
// Rollback after a failed boot instead unwinds only the phases that
// actually completed.
func (o *Orchestrator) Cleanup(ctx context.Context) {
	o.logger.Info("application cleanup starting")
	for i := len(o.phases) - 1; i >= 0; i-- {
		o.unwindPhase(ctx, o.phases[i])
	}
	o.completed = o.completed[:0]
	o.state.reset()
	o.ready.Reset()
	o.failed.Reset()
	removed := o.tracker.Cleanup(events.Filter{Context: OrchestratorContext})
	o.logger.Info("application cleanup complete",
		zap.Int("listenersRemoved", removed),
	)
}

func (o *Orchestrator) unwindPhase(ctx context.Context, phase Phase) {
	if phase.Rollback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("phase rollback panicked, continuing",
				zap.String("phase", phase.Name),
				zap.Any("panic", r),
			)
		}
	}()
	if err := phase.Rollback(ctx); err != nil {
		o.logger.Error("phase rollback failed, continuing",
			zap.String("phase", phase.Name),
			zap.Error(err),
		)
		return
	}
	o.logger.Info("phase rolled back", zap.String("phase", phase.Name))
}
