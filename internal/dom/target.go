// Package dom abstracts the platform document/window surface the hosting
// environment supplies. The bootstrap core never touches a concrete UI
// toolkit; it depends on the small capability interfaces defined here.
// An in-memory implementation backs headless hosts and tests.
package dom

// Handler is the caller-supplied listener function.
type Handler func(Event)

// ListenerOptions mirror platform listener options. Passive and Once are
// interpreted by the tracking engine; Capture and Signal are passed
// through to the target.
type ListenerOptions struct {
	Capture bool
	Once    bool
	Passive bool
	Signal  <-chan struct{}
}

// Target is the capability required of anything listeners attach to.
// AddEventListener returns the detach function for the registration;
// registering the same handler twice yields two independent detachers.
type Target interface {
	AddEventListener(eventType string, handler Handler, opts ListenerOptions) (remove func(), err error)
}

// Event is the value delivered to handlers.
type Event interface {
	// Type returns the event type string ("click", "submit", ...).
	Type() string
	// Target returns the object the event was originally dispatched on.
	Target() any
	// CurrentTarget returns the object whose listener is being invoked.
	CurrentTarget() any
	// PreventDefault cancels the event's default action. Under a passive
	// listener the call is ignored and recorded as a violation.
	PreventDefault()
	// DefaultPrevented reports whether PreventDefault took effect.
	DefaultPrevented() bool
	// StopPropagation halts bubbling past the current target.
	StopPropagation()
}

// PassiveAware is implemented by events that can track misuse of
// PreventDefault under a passive listener. The tracking engine brackets
// each passive handler invocation with SetPassive and checks
// PassiveViolation afterwards to emit a targeted diagnostic.
type PassiveAware interface {
	SetPassive(passive bool)
	PassiveViolation() bool
}

// Matcher is the capability delegation needs from event targets: selector
// matching and nearest-ancestor-or-self resolution. It replaces ad hoc
// shape checks with an explicit interface resolved once per dispatch.
type Matcher interface {
	Matches(selector string) bool
	Closest(selector string) Matcher
}
