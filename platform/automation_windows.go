//go:build windows

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	getForegroundWindow      = user32.NewProc("GetForegroundWindow")
	setForegroundWindow      = user32.NewProc("SetForegroundWindow")
	getWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	getWindowTextW           = user32.NewProc("GetWindowTextW")
	isWindow                 = user32.NewProc("IsWindow")
	isIconic                 = user32.NewProc("IsIconic")
	showWindow               = user32.NewProc("ShowWindow")
)

const (
	swRestore = 9

	foregroundPoll = 10 * time.Millisecond
)

type windowsAutomation struct {
	win32Clipboard
}

// New returns the Win32 automation backend
func New() Automation {
	return &windowsAutomation{}
}

func (a *windowsAutomation) Name() string { return "win32" }

// HasAutomationPermission is always true; Windows has no grant for SendInput
func (a *windowsAutomation) HasAutomationPermission() bool { return true }

func (a *windowsAutomation) RequestAutomationPermission() {}

// ForegroundApplication returns the foreground window handle as the App ID
func (a *windowsAutomation) ForegroundApplication(ctx context.Context) (App, error) {
	hwnd, _, _ := getForegroundWindow.Call()
	if hwnd == 0 {
		return App{}, fmt.Errorf("no foreground window")
	}

	var pid uint32
	getWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	buf := make([]uint16, 256)
	getWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))

	return App{
		ID:   strconv.FormatUint(uint64(hwnd), 16),
		PID:  int(pid),
		Name: windows.UTF16ToString(buf),
	}, nil
}

// ActivateApplication restores and focuses the window, then polls until the
// OS reports it as foreground or ctx expires.
func (a *windowsAutomation) ActivateApplication(ctx context.Context, app App) error {
	h, err := strconv.ParseUint(app.ID, 16, 64)
	if err != nil {
		return fmt.Errorf("invalid window handle %q: %w", app.ID, err)
	}
	hwnd := uintptr(h)

	if r, _, _ := isWindow.Call(hwnd); r == 0 {
		return fmt.Errorf("window %s no longer exists", app.ID)
	}
	if r, _, _ := isIconic.Call(hwnd); r != 0 {
		showWindow.Call(hwnd, swRestore)
	}
	setForegroundWindow.Call(hwnd)

	ticker := time.NewTicker(foregroundPoll)
	defer ticker.Stop()

	for {
		if fg, _, _ := getForegroundWindow.Call(); fg == hwnd {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to activate window %s: %w", app.ID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *windowsAutomation) OpenURL(url string) error {
	if err := exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
