package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_OwnsItsRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("test")
		NewCollector("test")
	}, "independent registries never collide on duplicate registration")
}

func TestObservePhase_LabelsOutcome(t *testing.T) {
	c := NewCollector("test")

	c.ObservePhase("core", 25*time.Millisecond, nil)
	c.ObservePhase("auth", 5*time.Millisecond, errors.New("session restore failed"))

	assert.Equal(t, float64(0), testutil.ToFloat64(c.PhaseFailures.WithLabelValues("core")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.PhaseFailures.WithLabelValues("auth")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	samples := map[string]uint64{}
	for _, fam := range families {
		if fam.GetName() != "test_phase_duration_seconds" {
			continue
		}
		for _, m := range fam.GetMetric() {
			var phase, outcome string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "phase":
					phase = lp.GetValue()
				case "outcome":
					outcome = lp.GetValue()
				}
			}
			samples[phase+"/"+outcome] = m.GetHistogram().GetSampleCount()
		}
	}

	assert.Equal(t, uint64(1), samples["core/success"])
	assert.Equal(t, uint64(1), samples["auth/failure"])
	assert.NotContains(t, samples, "core/failure")
}
