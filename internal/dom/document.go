package dom

import (
	"context"
	"sync"

	apperrors "appshell/internal/errors"
)

// Document is the platform document handle the hosting environment
// supplies to the bootstrap.
type Document interface {
	// Root returns the document's root element.
	Root() *Element
	// ElementByID returns the first element with the given id, or nil.
	ElementByID(id string) *Element
	// Query returns the first element matching the selector, or nil.
	Query(selector string) *Element
	// Ready is closed once the document has finished loading.
	Ready() <-chan struct{}
}

// MemoryDocument is an in-memory Document for headless hosts and tests.
type MemoryDocument struct {
	root     *Element
	readyCh  chan struct{}
	readyOne sync.Once
}

// NewMemoryDocument creates a document with a root element.
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{
		root:    NewElement("body"),
		readyCh: make(chan struct{}),
	}
}

// Root returns the document root.
func (d *MemoryDocument) Root() *Element { return d.root }

// ElementByID walks the tree for the first id match.
func (d *MemoryDocument) ElementByID(id string) *Element {
	return find(d.root, func(e *Element) bool { return e.ID == id })
}

// Query walks the tree for the first selector match.
func (d *MemoryDocument) Query(selector string) *Element {
	return find(d.root, func(e *Element) bool { return e.Matches(selector) })
}

// Ready is closed once MarkReady has been called.
func (d *MemoryDocument) Ready() <-chan struct{} { return d.readyCh }

// MarkReady signals document readiness. Idempotent.
func (d *MemoryDocument) MarkReady() {
	d.readyOne.Do(func() { close(d.readyCh) })
}

func find(node *Element, pred func(*Element) bool) *Element {
	if pred(node) {
		return node
	}
	for _, child := range node.Children() {
		if match := find(child, pred); match != nil {
			return match
		}
	}
	return nil
}

// Access is the DOM-access abstraction foundational services share. All
// content writes are routed through the sanitizer; element lookups come
// from the document handle.
type Access struct {
	doc       Document
	window    any
	sanitizer Sanitizer
}

// NewAccess constructs the abstraction. The document handle is required;
// construction fails fast without it. The sanitizer is required here as
// well: the bootstrap decides the degraded fallback policy, not Access.
func NewAccess(doc Document, window any, sanitizer Sanitizer) (*Access, error) {
	if doc == nil {
		return nil, apperrors.NewMissingDependency("document")
	}
	if sanitizer == nil {
		return nil, apperrors.NewMissingDependency("sanitizer")
	}
	return &Access{doc: doc, window: window, sanitizer: sanitizer}, nil
}

// Document returns the underlying document handle.
func (a *Access) Document() Document { return a.doc }

// Window returns the opaque window handle, which may be nil in headless
// hosts.
func (a *Access) Window() any { return a.window }

// ElementByID returns the element with the given id, or nil.
func (a *Access) ElementByID(id string) *Element {
	return a.doc.ElementByID(id)
}

// Query returns the first element matching the selector, or nil.
func (a *Access) Query(selector string) *Element {
	return a.doc.Query(selector)
}

// SetText writes sanitized text content to an element.
func (a *Access) SetText(el *Element, text string) {
	if el == nil {
		return
	}
	el.SetText(a.sanitizer.Sanitize(text))
}

// WaitReady blocks until the document reports readiness or the context
// is done.
func (a *Access) WaitReady(ctx context.Context) error {
	select {
	case <-a.doc.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
