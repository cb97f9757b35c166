package popup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShow_IsExclusive(t *testing.T) {
	m := NewManager()
	var events []Event
	m.OnChange(func(e Event) { events = append(events, e) })

	m.Show(Clipboard)
	m.Show(Snippet)

	assert.Equal(t, Snippet, m.Visible())
	assert.Equal(t, []Event{
		{Kind: Clipboard, Visible: true},
		{Kind: Clipboard, Visible: false},
		{Kind: Snippet, Visible: true},
	}, events)
}

func TestShow_SameKindIsNoop(t *testing.T) {
	m := NewManager()
	count := 0
	m.OnChange(func(Event) { count++ })

	m.Show(History)
	m.Show(History)
	assert.Equal(t, 1, count)
}

func TestToggleAndHide(t *testing.T) {
	m := NewManager()

	m.Toggle(Clipboard)
	assert.Equal(t, Clipboard, m.Visible())
	m.Toggle(Clipboard)
	assert.Equal(t, Kind(""), m.Visible())

	m.Show(History)
	m.Hide(Clipboard)
	assert.Equal(t, History, m.Visible(), "hiding a non-visible popup changes nothing")

	m.HideAll()
	assert.Equal(t, Kind(""), m.Visible())
}

func TestAuxiliaryWindows(t *testing.T) {
	m := NewManager()
	var events []Event
	m.OnChange(func(e Event) { events = append(events, e) })

	m.Show(Snippet)
	m.OpenWindow(Editor)
	assert.True(t, m.IsOpen(Editor))
	assert.Equal(t, Snippet, m.Visible(), "editor does not replace the popup")

	m.CloseWindow(Editor)
	m.CloseWindow(Editor)
	assert.False(t, m.IsOpen(Editor))
	assert.Len(t, events, 3)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("history")
	require.NoError(t, err)
	assert.Equal(t, History, k)

	_, err = ParseKind("editor")
	assert.Error(t, err)
}
