//go:build !darwin && !linux && !windows

package platform

import "context"

// headless has no clipboard or focus control
type headless struct{}

// New returns a backend whose every primitive fails with ErrUnsupported
func New() Automation {
	return headless{}
}

func (headless) Name() string                                   { return "headless" }
func (headless) ReadClipboardText() (string, error)             { return "", ErrUnsupported }
func (headless) WriteClipboardText(string) error                { return ErrUnsupported }
func (headless) HasAutomationPermission() bool                  { return false }
func (headless) RequestAutomationPermission()                   {}
func (headless) ActivateApplication(context.Context, App) error { return ErrUnsupported }
func (headless) SendPasteKeystroke(context.Context) error       { return ErrUnsupported }
func (headless) OpenURL(string) error                           { return ErrUnsupported }

func (headless) ForegroundApplication(context.Context) (App, error) {
	return App{}, ErrUnsupported
}
