// Package events implements the listener tracking engine: every UI event
// listener in the application is attached and detached through it, keyed
// by (target, event type, handler identity), with deduplication,
// fire-once auto-removal, and scoped bulk cleanup by context tag.
package events

import (
	"strings"
	"time"

	"appshell/internal/dom"
)

// Options control one tracked listener registration.
type Options struct {
	// Capture is passed through to the target.
	Capture bool

	// Once auto-removes the registration after its first invocation. The
	// removal runs after the handler returns, so the handler's own
	// synchronous work is unaffected by its bookkeeping being purged.
	Once bool

	// Passive overrides the per-event-type default when non-nil.
	// Interaction event types default to non-passive; everything else
	// defaults to passive, matching platform performance guidance.
	Passive *bool

	// Signal detaches the registration when it fires, mirroring platform
	// abort signals.
	Signal <-chan struct{}

	// Context is the opaque tag used for scoped bulk cleanup.
	Context string

	// Module names the registering component for diagnostics.
	Module string

	// Description labels the handler in diagnostics and error reports.
	Description string
}

// Bool returns a pointer to v, for the Options.Passive override.
func Bool(v bool) *bool { return &v }

// RemoveFunc detaches a tracked listener. It is idempotent: only the
// first call has effect.
type RemoveFunc func()

// SafeHandler runs fn, containing any panic so one faulty UI handler
// cannot break the event loop or abort sibling handlers. The bootstrap
// supplies a swallow-all stub first and upgrades it to a reporting
// implementation once the real logger exists.
type SafeHandler func(description string, fn func())

// NoopSafeHandler contains panics silently. Used before the real logger
// and reporter exist.
func NoopSafeHandler(description string, fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}

// Slow-handler thresholds by event type. Submit handlers legitimately do
// more work than clicks; everything else should be near-instant.
const (
	slowSubmitThreshold  = 800 * time.Millisecond
	slowClickThreshold   = 500 * time.Millisecond
	slowDefaultThreshold = 100 * time.Millisecond
)

func slowThreshold(eventType string) time.Duration {
	switch eventType {
	case "submit":
		return slowSubmitThreshold
	case "click":
		return slowClickThreshold
	default:
		return slowDefaultThreshold
	}
}

// defaultPassive reports the passive default for an event type: false
// for interaction events whose handlers commonly cancel the default
// action, true otherwise.
func defaultPassive(eventType string) bool {
	switch eventType {
	case "click", "submit", "wheel":
		return false
	}
	if strings.HasPrefix(eventType, "touch") || strings.HasPrefix(eventType, "key") {
		return false
	}
	return true
}

func (o Options) listenerOptions(passive bool) dom.ListenerOptions {
	return dom.ListenerOptions{
		Capture: o.Capture,
		Once:    o.Once,
		Passive: passive,
		Signal:  o.Signal,
	}
}
