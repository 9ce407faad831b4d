package dom

import (
	"strings"
	"sync"
)

// Element is the in-memory node implementation backing headless hosts
// and tests. It implements Target (listener attach/detach with bubbling
// dispatch) and Matcher (selector matching and Closest).
type Element struct {
	TagName string
	ID      string
	Classes []string

	mu        sync.Mutex
	parent    *Element
	children  []*Element
	listeners map[string][]*registration
	nextID    int
	text      string
}

type registration struct {
	id      int
	handler Handler
	opts    ListenerOptions
}

// NewElement creates a detached element.
func NewElement(tag string) *Element {
	return &Element{
		TagName:   strings.ToLower(tag),
		listeners: make(map[string][]*registration),
	}
}

// WithID sets the element id and returns the element for chaining.
func (e *Element) WithID(id string) *Element {
	e.ID = id
	return e
}

// WithClasses sets the class list and returns the element for chaining.
func (e *Element) WithClasses(classes ...string) *Element {
	e.Classes = classes
	return e
}

// Append adds a child, reparenting it under this element.
func (e *Element) Append(child *Element) *Element {
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
	child.mu.Lock()
	child.parent = e
	child.mu.Unlock()
	return e
}

// Remove detaches the element from its parent, simulating markup churn.
func (e *Element) Remove() {
	e.mu.Lock()
	parent := e.parent
	e.parent = nil
	e.mu.Unlock()
	if parent == nil {
		return
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	for i, c := range parent.children {
		if c == e {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return
		}
	}
}

// Parent returns the element's parent, or nil when detached.
func (e *Element) Parent() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

// Children returns a snapshot of the element's children.
func (e *Element) Children() []*Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// SetText stores the element's text content. Access routes all writes
// here through the sanitizer first.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

// Text returns the element's text content.
func (e *Element) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// AddEventListener implements Target. The returned remove function
// detaches exactly this registration and is safe to call more than once.
func (e *Element) AddEventListener(eventType string, handler Handler, opts ListenerOptions) (func(), error) {
	e.mu.Lock()
	e.nextID++
	reg := &registration{id: e.nextID, handler: handler, opts: opts}
	e.listeners[eventType] = append(e.listeners[eventType], reg)
	e.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			regs := e.listeners[eventType]
			for i, r := range regs {
				if r.id == reg.id {
					e.listeners[eventType] = append(regs[:i], regs[i+1:]...)
					return
				}
			}
		})
	}
	return remove, nil
}

// Dispatch fires an event of the given type on this element and bubbles
// it through the ancestor chain, invoking listeners in registration
// order. It returns the event so callers can inspect its final state.
func (e *Element) Dispatch(eventType string) *BaseEvent {
	ev := newBaseEvent(eventType, e)
	for node := e; node != nil; node = node.Parent() {
		ev.currentTarget = node
		for _, reg := range node.snapshot(eventType) {
			ev.passive = reg.opts.Passive
			reg.handler(ev)
		}
		if ev.propagationStopped {
			break
		}
	}
	return ev
}

// snapshot copies the listener list so dispatch is unaffected by
// concurrent attach/detach, including self-removal by once handlers.
func (e *Element) snapshot(eventType string) []*registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	regs := e.listeners[eventType]
	out := make([]*registration, len(regs))
	copy(out, regs)
	return out
}

// ListenerCount returns the number of attached listeners for a type,
// used by tests to verify deduplication and delegation bounds.
func (e *Element) ListenerCount(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[eventType])
}

// Matches implements Matcher for simple selectors: "tag", "#id",
// ".class", and compound forms like "button.primary".
func (e *Element) Matches(selector string) bool {
	tag, id, classes := parseSelector(selector)
	if tag != "" && tag != e.TagName {
		return false
	}
	if id != "" && id != e.ID {
		return false
	}
	for _, class := range classes {
		if !e.hasClass(class) {
			return false
		}
	}
	return tag != "" || id != "" || len(classes) > 0
}

// Closest implements Matcher, walking ancestor-or-self for the nearest
// match. Returns nil when nothing matches.
func (e *Element) Closest(selector string) Matcher {
	for node := e; node != nil; node = node.Parent() {
		if node.Matches(selector) {
			return node
		}
	}
	return nil
}

func (e *Element) hasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// parseSelector splits a compound simple selector into its tag, id and
// class parts. Combinators are not supported.
func parseSelector(selector string) (tag, id string, classes []string) {
	selector = strings.TrimSpace(selector)
	cur := &tag
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			switch cur {
			case &tag:
				tag = strings.ToLower(buf.String())
			case &id:
				id = buf.String()
			default:
				classes = append(classes, buf.String())
			}
			buf.Reset()
		}
	}
	var classSlot string
	for _, r := range selector {
		switch r {
		case '#':
			flush()
			cur = &id
		case '.':
			flush()
			cur = &classSlot
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return tag, id, classes
}

// BaseEvent is the Event implementation produced by Dispatch.
type BaseEvent struct {
	eventType          string
	target             *Element
	currentTarget      *Element
	passive            bool
	defaultPrevented   bool
	passiveViolation   bool
	propagationStopped bool
}

func newBaseEvent(eventType string, target *Element) *BaseEvent {
	return &BaseEvent{eventType: eventType, target: target}
}

// Type returns the event type.
func (ev *BaseEvent) Type() string { return ev.eventType }

// Target returns the element the event was dispatched on.
func (ev *BaseEvent) Target() any { return ev.target }

// CurrentTarget returns the element whose listener is running.
func (ev *BaseEvent) CurrentTarget() any { return ev.currentTarget }

// PreventDefault cancels the default action. Under a passive listener
// the call is ignored and recorded as a violation.
func (ev *BaseEvent) PreventDefault() {
	if ev.passive {
		ev.passiveViolation = true
		return
	}
	ev.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault took effect.
func (ev *BaseEvent) DefaultPrevented() bool { return ev.defaultPrevented }

// StopPropagation halts bubbling past the current target.
func (ev *BaseEvent) StopPropagation() { ev.propagationStopped = true }

// SetPassive implements PassiveAware.
func (ev *BaseEvent) SetPassive(passive bool) { ev.passive = passive }

// PassiveViolation implements PassiveAware.
func (ev *BaseEvent) PassiveViolation() bool { return ev.passiveViolation }
