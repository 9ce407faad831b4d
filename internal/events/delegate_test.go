package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appshell/internal/dom"
)

func buildList() (*dom.Element, *dom.Element) {
	root := dom.NewElement("div")
	list := dom.NewElement("ul")
	list.WithID("items")
	root.Append(list)
	return root, list
}

func TestDelegate_MatchesDynamicallyInsertedDescendants(t *testing.T) {
	tracker := newTestTracker()
	_, list := buildList()

	var seen []string
	tracker.Delegate(list, "click", ".item", func(_ dom.Event, match dom.Matcher) {
		el, ok := match.(*dom.Element)
		require.True(t, ok)
		seen = append(seen, el.ID)
	}, Options{Context: "ui"})

	// Children added after delegation was installed.
	for _, id := range []string{"a", "b"} {
		list.Append(dom.NewElement("li").WithID(id).WithClasses("item"))
	}

	require.Len(t, list.Children(), 2)
	for _, child := range list.Children() {
		child.Dispatch("click")
		// Delegation keeps descendants listener-free.
		assert.Equal(t, 0, child.ListenerCount("click"))
	}

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, 1, list.ListenerCount("click"), "one real listener on the container")
}

func TestDelegate_ResolvesNearestMatchingAncestor(t *testing.T) {
	tracker := newTestTracker()
	_, list := buildList()

	item := dom.NewElement("li").WithID("row").WithClasses("item")
	list.Append(item)
	icon := dom.NewElement("span")
	item.Append(icon)

	var matched string
	tracker.Delegate(list, "click", ".item", func(_ dom.Event, match dom.Matcher) {
		matched = match.(*dom.Element).ID
	}, Options{})

	icon.Dispatch("click")

	assert.Equal(t, "row", matched, "Closest climbs from the inner target")
}

func TestDelegate_IgnoresNonMatchingTargets(t *testing.T) {
	tracker := newTestTracker()
	_, list := buildList()

	other := dom.NewElement("li").WithClasses("divider")
	list.Append(other)

	fired := false
	tracker.Delegate(list, "click", ".item", func(dom.Event, dom.Matcher) {
		fired = true
	}, Options{})

	other.Dispatch("click")

	assert.False(t, fired)
}

func TestDelegate_MatchOutsideContainerIsIgnored(t *testing.T) {
	tracker := newTestTracker()
	root, list := buildList()
	root.WithClasses("item")

	fired := false
	tracker.Delegate(list, "click", ".item", func(dom.Event, dom.Matcher) {
		fired = true
	}, Options{})

	inner := dom.NewElement("li")
	list.Append(inner)
	// The nearest .item ancestor of inner is root, which sits above the
	// delegation container; the dispatch must be dropped.
	inner.Dispatch("click")

	assert.False(t, fired)
}

func TestDelegate_RemovableAndContextScoped(t *testing.T) {
	tracker := newTestTracker()
	_, list := buildList()
	item := dom.NewElement("li").WithClasses("item")
	list.Append(item)

	calls := 0
	remove := tracker.Delegate(list, "click", ".item", func(dom.Event, dom.Matcher) {
		calls++
	}, Options{Context: "ui"})

	item.Dispatch("click")
	assert.Equal(t, 1, calls)

	remove()
	item.Dispatch("click")
	assert.Equal(t, 1, calls)

	// Re-install and sweep by context instead.
	tracker.Delegate(list, "click", ".item", func(dom.Event, dom.Matcher) {
		calls++
	}, Options{Context: "ui"})
	assert.Equal(t, 1, tracker.Cleanup(Filter{Context: "ui"}))
	item.Dispatch("click")
	assert.Equal(t, 1, calls)
}

func TestDelegate_NilHandlerDegradesToNoop(t *testing.T) {
	tracker := newTestTracker()
	_, list := buildList()

	remove := tracker.Delegate(list, "click", ".item", nil, Options{})

	assert.NotPanics(t, func() { remove() })
	assert.Equal(t, 0, tracker.Count(Filter{}))
}
