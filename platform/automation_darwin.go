//go:build darwin

package platform

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>

static int snipee_ax_trusted(int prompt) {
	const void *keys[] = { kAXTrustedCheckOptionPrompt };
	const void *values[] = { prompt ? kCFBooleanTrue : kCFBooleanFalse };
	CFDictionaryRef opts = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
		&kCFCopyStringDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
	Boolean trusted = AXIsProcessTrustedWithOptions(opts);
	CFRelease(opts);
	return trusted ? 1 : 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	frontmostScript = `tell application "System Events"
	set p to first application process whose frontmost is true
	return (bundle identifier of p as text) & "|" & (unix id of p as text) & "|" & (name of p as text)
end tell`

	pasteScript = `tell application "System Events" to keystroke "v" using command down`

	frontmostPoll = 20 * time.Millisecond
)

type darwinAutomation struct {
	nativeClipboard
}

// New returns the macOS automation backend
func New() Automation {
	return &darwinAutomation{}
}

func (a *darwinAutomation) Name() string { return "macos" }

func (a *darwinAutomation) HasAutomationPermission() bool {
	return C.snipee_ax_trusted(0) == 1
}

// RequestAutomationPermission triggers the system Accessibility prompt
func (a *darwinAutomation) RequestAutomationPermission() {
	C.snipee_ax_trusted(1)
}

func (a *darwinAutomation) ForegroundApplication(ctx context.Context) (App, error) {
	out, err := run(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return App{}, fmt.Errorf("failed to query frontmost application: %w", err)
	}

	parts := strings.SplitN(out, "|", 3)
	if len(parts) != 3 {
		return App{}, fmt.Errorf("unexpected frontmost application output %q", out)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return App{}, fmt.Errorf("invalid frontmost pid %q: %w", parts[1], err)
	}

	id := parts[0]
	if id == "missing value" {
		id = ""
	}

	return App{ID: id, PID: pid, Name: parts[2]}, nil
}

// ActivateApplication activates by bundle id when known, otherwise by pid,
// then waits until the app is frontmost.
func (a *darwinAutomation) ActivateApplication(ctx context.Context, app App) error {
	var script string
	switch {
	case app.ID != "":
		script = fmt.Sprintf(`tell application id %q to activate`, app.ID)
	case app.PID > 0:
		script = fmt.Sprintf(`tell application "System Events" to set frontmost of (first application process whose unix id is %d) to true`, app.PID)
	default:
		return fmt.Errorf("application has neither bundle id nor pid")
	}

	if _, err := run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("failed to activate %s: %w", app.Name, err)
	}

	ticker := time.NewTicker(frontmostPoll)
	defer ticker.Stop()

	for {
		front, err := a.ForegroundApplication(ctx)
		if err == nil && front.PID == app.PID {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s to become frontmost: %w", app.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *darwinAutomation) SendPasteKeystroke(ctx context.Context) error {
	if _, err := run(ctx, "osascript", "-e", pasteScript); err != nil {
		return fmt.Errorf("failed to send paste keystroke: %w", err)
	}
	return nil
}

func (a *darwinAutomation) OpenURL(url string) error {
	if _, err := run(context.Background(), "open", url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
