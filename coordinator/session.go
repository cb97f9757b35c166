package coordinator

import (
	"sync"

	"markestedt/snipee/platform"
)

// Session holds the application that had focus when a hotkey fired. It
// lives in memory only and is cleared after each paste.
type Session struct {
	mu       sync.Mutex
	target   platform.App
	captured bool
}

// Capture records app as the paste target
func (s *Session) Capture(app platform.App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = app
	s.captured = true
}

// Clear forgets the captured target
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = platform.App{}
	s.captured = false
}

// Target returns the captured target, if any
func (s *Session) Target() (platform.App, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.captured
}

// IsCaptured reports whether a target is held
func (s *Session) IsCaptured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}
