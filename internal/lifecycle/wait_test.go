package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "appshell/internal/errors"
)

func TestWaitFor_ImmediateCondition(t *testing.T) {
	err := WaitFor(context.Background(), time.Millisecond, "ready", func() bool { return true })
	assert.NoError(t, err)
}

func TestWaitFor_ConditionBecomesTrue(t *testing.T) {
	var flag atomic.Bool
	go func() {
		time.Sleep(30 * time.Millisecond)
		flag.Store(true)
	}()

	err := WaitFor(context.Background(), 2*time.Second, "flag", flag.Load)

	assert.NoError(t, err)
}

func TestWaitFor_TimesOut(t *testing.T) {
	err := WaitFor(context.Background(), 30*time.Millisecond, "never", func() bool { return false })

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestWaitFor_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitFor(ctx, time.Second, "never", func() bool { return false })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForChannel_ClosedChannel(t *testing.T) {
	ch := make(chan struct{})
	close(ch)

	assert.NoError(t, WaitForChannel(context.Background(), time.Millisecond, "doc", ch))
}

func TestWaitForChannel_TimesOut(t *testing.T) {
	err := WaitForChannel(context.Background(), 20*time.Millisecond, "doc", make(chan struct{}))

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}
