package platform

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by automation primitives the current OS
// build cannot provide.
var ErrUnsupported = errors.New("not supported on this platform")

// App identifies a foreground application. ID is opaque and platform
// specific: a bundle identifier on macOS, a window handle on Windows and
// an X window id on Linux.
type App struct {
	ID   string `json:"id"`
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

// Clipboard provides clipboard text access
type Clipboard interface {
	ReadClipboardText() (string, error)
	WriteClipboardText(text string) error
}

// Automation is the OS automation bridge: clipboard, accessibility
// permission, foreground application tracking and keystroke synthesis.
type Automation interface {
	Clipboard

	// Name returns a human-readable backend name
	Name() string

	// HasAutomationPermission reports whether focus changes and synthesized
	// keystrokes are allowed. Only macOS gates this behind a user grant.
	HasAutomationPermission() bool

	// RequestAutomationPermission asks the OS to prompt for the grant
	RequestAutomationPermission()

	// ForegroundApplication returns the application that currently has focus
	ForegroundApplication(ctx context.Context) (App, error)

	// ActivateApplication brings app to the foreground and returns once the
	// OS reports it focused, or when ctx expires.
	ActivateApplication(ctx context.Context, app App) error

	// SendPasteKeystroke synthesizes Cmd+V / Ctrl+V
	SendPasteKeystroke(ctx context.Context) error

	// OpenURL opens url with the system handler
	OpenURL(url string) error
}
