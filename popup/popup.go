// Package popup tracks which popup window is visible. The clipboard,
// snippet and history popups are mutually exclusive.
package popup

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Kind names a popup or auxiliary window
type Kind string

const (
	Clipboard Kind = "clipboard"
	Snippet   Kind = "snippet"
	History   Kind = "history"

	// Auxiliary windows; they do not take part in popup exclusivity
	Editor          Kind = "editor"
	PermissionGuide Kind = "permission-guide"
)

// ParseKind validates a popup kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Clipboard, Snippet, History:
		return k, nil
	}
	return "", fmt.Errorf("unknown popup %q", s)
}

// Event describes a visibility transition
type Event struct {
	Kind    Kind `json:"kind"`
	Visible bool `json:"visible"`
}

// Manager is safe for concurrent use
type Manager struct {
	mu        sync.Mutex
	visible   Kind
	windows   map[Kind]bool
	observers []func(Event)
}

// NewManager creates a manager with nothing visible
func NewManager() *Manager {
	return &Manager{windows: make(map[Kind]bool)}
}

// OnChange registers fn to receive every transition
func (m *Manager) OnChange(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Visible returns the visible popup, or "" when none is
func (m *Manager) Visible() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// Show makes kind the visible popup, hiding any other
func (m *Manager) Show(kind Kind) {
	m.mu.Lock()
	var events []Event
	if m.visible != kind {
		if m.visible != "" {
			events = append(events, Event{Kind: m.visible, Visible: false})
		}
		m.visible = kind
		events = append(events, Event{Kind: kind, Visible: true})
	}
	m.emit(events)
}

// Toggle hides kind if it is visible and shows it otherwise
func (m *Manager) Toggle(kind Kind) {
	if m.Visible() == kind {
		m.Hide(kind)
		return
	}
	m.Show(kind)
}

// Hide hides kind if it is the visible popup
func (m *Manager) Hide(kind Kind) {
	m.mu.Lock()
	var events []Event
	if m.visible == kind {
		m.visible = ""
		events = append(events, Event{Kind: kind, Visible: false})
	}
	m.emit(events)
}

// HideAll hides whichever popup is visible
func (m *Manager) HideAll() {
	m.mu.Lock()
	var events []Event
	if m.visible != "" {
		events = append(events, Event{Kind: m.visible, Visible: false})
		m.visible = ""
	}
	m.emit(events)
}

// OpenWindow marks an auxiliary window such as the editor as open
func (m *Manager) OpenWindow(kind Kind) {
	m.setWindow(kind, true)
}

// CloseWindow marks an auxiliary window as closed
func (m *Manager) CloseWindow(kind Kind) {
	m.setWindow(kind, false)
}

// IsOpen reports whether an auxiliary window is open
func (m *Manager) IsOpen(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windows[kind]
}

func (m *Manager) setWindow(kind Kind, open bool) {
	m.mu.Lock()
	var events []Event
	if m.windows[kind] != open {
		m.windows[kind] = open
		events = append(events, Event{Kind: kind, Visible: open})
	}
	m.emit(events)
}

// emit releases mu and delivers events outside the lock
func (m *Manager) emit(events []Event) {
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, e := range events {
		slog.Debug("Popup visibility changed", "kind", e.Kind, "visible", e.Visible)
		for _, fn := range observers {
			fn(e)
		}
	}
}
