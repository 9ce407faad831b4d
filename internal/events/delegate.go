package events

import (
	"go.uber.org/zap"

	"appshell/internal/dom"
)

// DelegateHandler receives the bubbled event plus the nearest
// ancestor-or-self of the event's original target that matched the
// delegation selector.
type DelegateHandler func(ev dom.Event, match dom.Matcher)

// Delegate attaches one real listener on container that dispatches to
// handler for every event whose original target matches selector, or has
// an ancestor inside the container that does. The listener count on
// dynamically-injected descendants stays zero: markup churn below the
// container never requires listener churn.
//
// The returned handle has the same shape and idempotence as Track's.
func (t *Tracker) Delegate(container dom.Target, eventType, selector string, handler DelegateHandler, opts Options) RemoveFunc {
	if handler == nil {
		t.currentLogger().Warn("delegated listener not tracked: nil handler",
			zap.String("eventType", eventType),
			zap.String("selector", selector),
		)
		return func() {}
	}

	dispatch := func(ev dom.Event) {
		matcher, ok := ev.Target().(dom.Matcher)
		if !ok {
			return
		}
		match := matcher.Closest(selector)
		if match == nil || isNilMatcher(match) {
			return
		}
		if !withinContainer(match, container) {
			return
		}
		handler(ev, match)
	}

	if opts.Description == "" {
		opts.Description = "delegated " + eventType + " " + selector
	}
	return t.Track(container, eventType, dispatch, opts)
}

// withinContainer verifies the resolved match did not escape the
// delegation root. Only enforceable when both sides expose the element
// tree; other target implementations are trusted.
func withinContainer(match dom.Matcher, container dom.Target) bool {
	el, ok := match.(*dom.Element)
	if !ok {
		return true
	}
	root, ok := container.(*dom.Element)
	if !ok {
		return true
	}
	for node := el; node != nil; node = node.Parent() {
		if node == root {
			return true
		}
	}
	return false
}

// isNilMatcher guards against a typed-nil Matcher coming back from
// Closest implementations that return concrete pointer types.
func isNilMatcher(m dom.Matcher) bool {
	el, ok := m.(*dom.Element)
	return ok && el == nil
}
