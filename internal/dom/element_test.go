package dom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElement_Matches(t *testing.T) {
	el := NewElement("button").WithID("save").WithClasses("primary", "wide")

	assert.True(t, el.Matches("button"))
	assert.True(t, el.Matches("#save"))
	assert.True(t, el.Matches(".primary"))
	assert.True(t, el.Matches("button.primary"))
	assert.True(t, el.Matches("button#save.wide"))
	assert.False(t, el.Matches("div"))
	assert.False(t, el.Matches(".missing"))
	assert.False(t, el.Matches("#other"))
	assert.False(t, el.Matches(""))
}

func TestElement_Closest(t *testing.T) {
	root := NewElement("div").WithClasses("container")
	middle := NewElement("ul").WithClasses("list")
	leaf := NewElement("li").WithClasses("item")
	root.Append(middle)
	middle.Append(leaf)

	assert.Equal(t, leaf, leaf.Closest(".item"), "closest includes self")
	assert.Equal(t, root, leaf.Closest(".container"))
	assert.Nil(t, leaf.Closest(".absent"))
}

func TestElement_DispatchBubbles(t *testing.T) {
	parent := NewElement("div")
	child := NewElement("button")
	parent.Append(child)

	var order []string
	_, err := child.AddEventListener("click", func(ev Event) {
		order = append(order, "child")
		assert.Equal(t, child, ev.Target())
		assert.Equal(t, child, ev.CurrentTarget())
	}, ListenerOptions{})
	require.NoError(t, err)
	_, err = parent.AddEventListener("click", func(ev Event) {
		order = append(order, "parent")
		assert.Equal(t, child, ev.Target(), "original target survives bubbling")
		assert.Equal(t, parent, ev.CurrentTarget())
	}, ListenerOptions{})
	require.NoError(t, err)

	child.Dispatch("click")

	assert.Equal(t, []string{"child", "parent"}, order)
}

func TestElement_StopPropagation(t *testing.T) {
	parent := NewElement("div")
	child := NewElement("button")
	parent.Append(child)

	parentCalled := false
	_, _ = child.AddEventListener("click", func(ev Event) {
		ev.StopPropagation()
	}, ListenerOptions{})
	_, _ = parent.AddEventListener("click", func(Event) {
		parentCalled = true
	}, ListenerOptions{})

	child.Dispatch("click")

	assert.False(t, parentCalled)
}

func TestElement_RemoveListenerIsIdempotent(t *testing.T) {
	el := NewElement("button")
	calls := 0
	remove, err := el.AddEventListener("click", func(Event) { calls++ }, ListenerOptions{})
	require.NoError(t, err)

	el.Dispatch("click")
	remove()
	remove()
	el.Dispatch("click")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, el.ListenerCount("click"))
}

func TestBaseEvent_PassiveViolation(t *testing.T) {
	el := NewElement("div")
	_, _ = el.AddEventListener("scroll", func(ev Event) {
		ev.PreventDefault()
	}, ListenerOptions{Passive: true})

	ev := el.Dispatch("scroll")

	assert.False(t, ev.DefaultPrevented(), "preventDefault is ignored under passive")
	assert.True(t, ev.PassiveViolation())
}

func TestBaseEvent_PreventDefault(t *testing.T) {
	el := NewElement("form")
	_, _ = el.AddEventListener("submit", func(ev Event) {
		ev.PreventDefault()
	}, ListenerOptions{})

	ev := el.Dispatch("submit")

	assert.True(t, ev.DefaultPrevented())
	assert.False(t, ev.PassiveViolation())
}

func TestMemoryDocument_Lookup(t *testing.T) {
	doc := NewMemoryDocument()
	section := NewElement("section").WithID("main")
	item := NewElement("li").WithClasses("entry")
	doc.Root().Append(section)
	section.Append(item)

	assert.Equal(t, section, doc.ElementByID("main"))
	assert.Nil(t, doc.ElementByID("nope"))
	assert.Equal(t, item, doc.Query(".entry"))
	assert.Nil(t, doc.Query(".ghost"))
}

func TestAccess_RequiresDocumentAndSanitizer(t *testing.T) {
	_, err := NewAccess(nil, nil, PassthroughSanitizer{})
	require.Error(t, err)

	_, err = NewAccess(NewMemoryDocument(), nil, nil)
	require.Error(t, err)
}

func TestAccess_SetTextSanitizes(t *testing.T) {
	doc := NewMemoryDocument()
	el := NewElement("p").WithID("msg")
	doc.Root().Append(el)
	access, err := NewAccess(doc, nil, StripTagSanitizer{})
	require.NoError(t, err)

	access.SetText(access.ElementByID("msg"), "<b>hello</b>")

	assert.Equal(t, "bhello/b", el.Text())
}

func TestAccess_WaitReady(t *testing.T) {
	doc := NewMemoryDocument()
	access, err := NewAccess(doc, nil, PassthroughSanitizer{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, access.WaitReady(ctx), "unready document times out")

	doc.MarkReady()
	doc.MarkReady() // idempotent
	assert.NoError(t, access.WaitReady(context.Background()))
}

func TestElement_Remove(t *testing.T) {
	parent := NewElement("ul")
	child := NewElement("li")
	parent.Append(child)

	child.Remove()

	assert.Nil(t, child.Parent())
	assert.Empty(t, parent.Children())
}
