package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appshell/internal/dom"
	apperrors "appshell/internal/errors"
	"appshell/internal/events"
)

// phaseRecorder builds phases that append their name to a shared journal
// so tests can assert execution and rollback order.
type phaseRecorder struct {
	journal []string
}

func (r *phaseRecorder) phase(name string, runErr error) Phase {
	return Phase{
		Name: name,
		Run: func(context.Context) error {
			r.journal = append(r.journal, "run:"+name)
			return runErr
		},
		Rollback: func(context.Context) error {
			r.journal = append(r.journal, "rollback:"+name)
			return nil
		},
	}
}

func newTestOrchestrator(t *testing.T, phases []Phase) *Orchestrator {
	t.Helper()
	tracker := events.NewTracker(zap.NewNop(), nil)
	o, err := NewOrchestrator(phases, tracker, zap.NewNop(), nil)
	require.NoError(t, err)
	return o
}

func TestNewOrchestrator_RequiresCollaborators(t *testing.T) {
	tracker := events.NewTracker(zap.NewNop(), nil)

	_, err := NewOrchestrator(nil, tracker, nil, nil)
	assert.True(t, apperrors.IsMissingDependency(err))

	_, err = NewOrchestrator(nil, nil, zap.NewNop(), nil)
	assert.True(t, apperrors.IsMissingDependency(err))
}

func TestInitializeApp_RunsPhasesInOrder(t *testing.T) {
	rec := &phaseRecorder{}
	o := newTestOrchestrator(t, []Phase{
		rec.phase(PhaseServicesBasic, nil),
		rec.phase(PhaseServicesAdvanced, nil),
		rec.phase(PhaseErrors, nil),
		rec.phase(PhaseCore, nil),
		rec.phase(PhaseAuth, nil),
		rec.phase(PhaseUI, nil),
	})

	require.NoError(t, o.InitializeApp(context.Background()))

	assert.Equal(t, []string{
		"run:" + PhaseServicesBasic,
		"run:" + PhaseServicesAdvanced,
		"run:" + PhaseErrors,
		"run:" + PhaseCore,
		"run:" + PhaseAuth,
		"run:" + PhaseUI,
	}, rec.journal)
	assert.Equal(t, PhaseInitialized, o.State().CurrentPhase())
	assert.True(t, o.State().IsReady())
	assert.True(t, o.Ready().Emitted())
	assert.NotEmpty(t, o.BootID())
}

func TestInitializeApp_FailureRollsBackCompletedPhasesInReverse(t *testing.T) {
	rec := &phaseRecorder{}
	boom := errors.New("advanced wiring failed")
	phaseC := rec.phase(PhaseErrors, nil)
	o := newTestOrchestrator(t, []Phase{
		rec.phase(PhaseServicesBasic, nil),
		rec.phase(PhaseServicesAdvanced, boom),
		phaseC,
	})

	err := o.InitializeApp(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsPhaseFailure(err))
	assert.ErrorIs(t, err, boom)
	// A ran, B ran and failed, A rolled back exactly once, C never ran.
	assert.Equal(t, []string{
		"run:" + PhaseServicesBasic,
		"run:" + PhaseServicesAdvanced,
		"rollback:" + PhaseServicesBasic,
	}, rec.journal)
	assert.Equal(t, PhaseFailed, o.State().CurrentPhase())
	assert.False(t, o.State().IsReady())
	assert.True(t, o.Failed().Emitted())
	assert.False(t, o.Ready().Emitted())
}

func TestInitializeApp_FailedPhaseIsNotRolledBack(t *testing.T) {
	rec := &phaseRecorder{}
	o := newTestOrchestrator(t, []Phase{
		rec.phase(PhaseServicesBasic, nil),
		rec.phase(PhaseServicesAdvanced, errors.New("boom")),
	})

	require.Error(t, o.InitializeApp(context.Background()))

	assert.NotContains(t, rec.journal, "rollback:"+PhaseServicesAdvanced,
		"the failing phase cleans up after itself; only completed phases unwind")
}

func TestInitializeApp_PanicBecomesPhaseFailure(t *testing.T) {
	rec := &phaseRecorder{}
	o := newTestOrchestrator(t, []Phase{
		rec.phase(PhaseServicesBasic, nil),
		{Name: PhaseServicesAdvanced, Run: func(context.Context) error { panic("kaboom") }},
	})

	err := o.InitializeApp(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsPhaseFailure(err))
	assert.Contains(t, rec.journal, "rollback:"+PhaseServicesBasic)
	assert.Equal(t, PhaseFailed, o.State().CurrentPhase())
}

func TestInitializeApp_RollbackFailureDoesNotStopUnwinding(t *testing.T) {
	rec := &phaseRecorder{}
	flaky := Phase{
		Name: PhaseServicesAdvanced,
		Run: func(context.Context) error {
			rec.journal = append(rec.journal, "run:"+PhaseServicesAdvanced)
			return nil
		},
		Rollback: func(context.Context) error {
			rec.journal = append(rec.journal, "rollback:"+PhaseServicesAdvanced)
			panic("rollback panic")
		},
	}
	o := newTestOrchestrator(t, []Phase{
		rec.phase(PhaseServicesBasic, nil),
		flaky,
		rec.phase(PhaseErrors, errors.New("boom")),
	})

	require.Error(t, o.InitializeApp(context.Background()))

	// The panicking rollback is contained and the earlier phase still unwinds.
	assert.Equal(t, []string{
		"run:" + PhaseServicesBasic,
		"run:" + PhaseServicesAdvanced,
		"run:" + PhaseErrors,
		"rollback:" + PhaseServicesAdvanced,
		"rollback:" + PhaseServicesBasic,
	}, rec.journal)
}

func TestInitializeApp_SecondCallAfterSuccessIsNoop(t *testing.T) {
	rec := &phaseRecorder{}
	o := newTestOrchestrator(t, []Phase{rec.phase(PhaseCore, nil)})

	require.NoError(t, o.InitializeApp(context.Background()))
	firstBoot := o.BootID()
	require.NoError(t, o.InitializeApp(context.Background()))

	assert.Equal(t, []string{"run:" + PhaseCore}, rec.journal, "phases run once")
	assert.Equal(t, firstBoot, o.BootID())
}

func TestInitializeApp_RetryAfterFailureRunsAgain(t *testing.T) {
	attempts := 0
	o := newTestOrchestrator(t, []Phase{{
		Name: PhaseCore,
		Run: func(context.Context) error {
			attempts++
			if attempts == 1 {
				return errors.New("transient")
			}
			return nil
		},
	}})

	require.Error(t, o.InitializeApp(context.Background()))
	firstBoot := o.BootID()
	require.NoError(t, o.InitializeApp(context.Background()))

	assert.Equal(t, 2, attempts)
	assert.NotEqual(t, firstBoot, o.BootID(), "each attempt gets a fresh boot id")
	assert.True(t, o.State().IsReady())
	assert.True(t, o.Ready().Emitted())
	assert.False(t, o.Failed().Emitted(), "failure latch cleared for the retry")
}

func TestInitializeApp_UIPreEmissionYieldsExactlyOneReady(t *testing.T) {
	var o *Orchestrator
	deliveries := 0
	phases := []Phase{{
		Name: PhaseUI,
		Run: func(context.Context) error {
			// An eager UI phase announces readiness itself.
			o.Ready().Emit(o.BootID(), nil)
			return nil
		},
	}}
	o = newTestOrchestrator(t, phases)
	o.Ready().Subscribe(func(Emission) { deliveries++ })

	require.NoError(t, o.InitializeApp(context.Background()))

	assert.Equal(t, 1, deliveries, "post-boot emission suppressed after pre-emission")
	assert.True(t, o.Ready().Emitted())
}

func TestInitializeApp_FailedEmissionCarriesPhaseError(t *testing.T) {
	o := newTestOrchestrator(t, []Phase{
		{Name: PhaseAuth, Run: func(context.Context) error { return errors.New("token expired") }},
	})
	var got Emission
	o.Failed().Subscribe(func(e Emission) { got = e })

	err := o.InitializeApp(context.Background())

	require.Error(t, err)
	assert.Equal(t, SignalFailed, got.Signal)
	assert.Equal(t, o.BootID(), got.BootID)
	assert.ErrorIs(t, got.Err, err)
}

func TestCleanup_UnwindsEverythingAndSweepsOrchestratorListeners(t *testing.T) {
	rec := &phaseRecorder{}
	tracker := events.NewTracker(zap.NewNop(), nil)
	phases := []Phase{
		rec.phase(PhaseServicesBasic, nil),
		rec.phase(PhaseCore, nil),
	}
	o, err := NewOrchestrator(phases, tracker, zap.NewNop(), nil)
	require.NoError(t, err)

	el := dom.NewElement("div")
	tracker.Track(el, "error", func(dom.Event) {}, events.Options{Context: OrchestratorContext})
	tracker.Track(el, "click", func(dom.Event) {}, events.Options{Context: "ui"})

	require.NoError(t, o.InitializeApp(context.Background()))
	rec.journal = rec.journal[:0]

	o.Cleanup(context.Background())

	assert.Equal(t, []string{
		"rollback:" + PhaseCore,
		"rollback:" + PhaseServicesBasic,
	}, rec.journal, "deliberate teardown unwinds in strict reverse order")
	assert.Equal(t, PhaseIdle, o.State().CurrentPhase())
	assert.False(t, o.State().IsReady())
	assert.Equal(t, 0, tracker.Count(events.Filter{Context: OrchestratorContext}))
	assert.Equal(t, 1, tracker.Count(events.Filter{Context: "ui"}),
		"cleanup sweeps only the orchestrator's own context")
}

func TestInitializeApp_ObserversSeePhaseBoundaries(t *testing.T) {
	obs := &recordingObserver{}
	o := newTestOrchestrator(t, []Phase{
		{Name: PhaseCore, Run: func(context.Context) error { return nil }},
		{Name: PhaseAuth, Run: func(context.Context) error { return errors.New("boom") }},
	})
	o.AddObserver(obs)

	require.Error(t, o.InitializeApp(context.Background()))

	assert.Equal(t, []string{PhaseCore, PhaseAuth}, obs.started)
	require.Len(t, obs.finished, 2)
	assert.NoError(t, obs.finished[0].err)
	assert.Error(t, obs.finished[1].err)
}

type recordingObserver struct {
	started  []string
	finished []struct {
		phase string
		err   error
	}
}

func (r *recordingObserver) PhaseStarted(_ context.Context, phase string) {
	r.started = append(r.started, phase)
}

func (r *recordingObserver) PhaseFinished(_ context.Context, phase string, _ time.Duration, err error) {
	r.finished = append(r.finished, struct {
		phase string
		err   error
	}{phase, err})
}
