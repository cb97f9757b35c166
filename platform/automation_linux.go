//go:build linux

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

const xdotool = "xdotool"

// linuxAutomation drives X11 through xdotool. Wayland sessions without
// XWayland focus support degrade to clipboard-only pastes.
type linuxAutomation struct {
	nativeClipboard
}

// New returns the X11 automation backend
func New() Automation {
	return &linuxAutomation{}
}

func (a *linuxAutomation) Name() string { return "x11" }

// HasAutomationPermission reports whether xdotool is installed
func (a *linuxAutomation) HasAutomationPermission() bool {
	_, err := exec.LookPath(xdotool)
	return err == nil
}

func (a *linuxAutomation) RequestAutomationPermission() {}

func (a *linuxAutomation) ForegroundApplication(ctx context.Context) (App, error) {
	id, err := run(ctx, xdotool, "getactivewindow")
	if err != nil {
		return App{}, fmt.Errorf("failed to query active window: %w", err)
	}

	app := App{ID: id}
	if out, err := run(ctx, xdotool, "getwindowpid", id); err == nil {
		app.PID, _ = strconv.Atoi(out)
	}
	if name, err := run(ctx, xdotool, "getwindowname", id); err == nil {
		app.Name = name
	}

	return app, nil
}

// ActivateApplication uses --sync so the call returns once focus moved
func (a *linuxAutomation) ActivateApplication(ctx context.Context, app App) error {
	if app.ID == "" {
		return fmt.Errorf("application has no window id")
	}
	if _, err := run(ctx, xdotool, "windowactivate", "--sync", app.ID); err != nil {
		return fmt.Errorf("failed to activate window %s: %w", app.ID, err)
	}
	return nil
}

func (a *linuxAutomation) SendPasteKeystroke(ctx context.Context) error {
	if _, err := run(ctx, xdotool, "key", "--clearmodifiers", "ctrl+v"); err != nil {
		return fmt.Errorf("failed to send paste keystroke: %w", err)
	}
	return nil
}

func (a *linuxAutomation) OpenURL(url string) error {
	if err := exec.Command("xdg-open", url).Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
