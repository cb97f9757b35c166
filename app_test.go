package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/snipee/coordinator"
	"markestedt/snipee/hotkeys"
	"markestedt/snipee/platform"
	"markestedt/snipee/popup"
	"markestedt/snipee/storage"
)

type stubAutomation struct {
	foreground platform.App
	activated  []string
}

func (s *stubAutomation) Name() string                       { return "stub" }
func (s *stubAutomation) ReadClipboardText() (string, error) { return "", nil }
func (s *stubAutomation) WriteClipboardText(string) error    { return nil }
func (s *stubAutomation) HasAutomationPermission() bool      { return true }
func (s *stubAutomation) RequestAutomationPermission()       {}
func (s *stubAutomation) SendPasteKeystroke(context.Context) error {
	return nil
}
func (s *stubAutomation) OpenURL(string) error { return nil }

func (s *stubAutomation) ForegroundApplication(context.Context) (platform.App, error) {
	return s.foreground, nil
}

func (s *stubAutomation) ActivateApplication(_ context.Context, app platform.App) error {
	s.activated = append(s.activated, app.ID)
	return nil
}

type recordingRegistrar struct {
	mu       sync.Mutex
	handlers map[string]func()
}

type nopRegistration struct{}

func (nopRegistration) Unregister() error { return nil }

func (r *recordingRegistrar) Register(acc hotkeys.Accelerator, fn func()) (hotkeys.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[acc.String()] = fn
	return nopRegistration{}, nil
}

func (r *recordingRegistrar) press(t *testing.T, action hotkeys.Action) {
	t.Helper()
	acc, err := hotkeys.ParseAccelerator(hotkeys.DefaultBinding(action))
	require.NoError(t, err)

	r.mu.Lock()
	fn, ok := r.handlers[acc.String()]
	r.mu.Unlock()
	require.True(t, ok, "no registration for %s", action)
	fn()
}

func TestBindHotkeys_CaptureToggleAndCancel(t *testing.T) {
	ctx := context.Background()

	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	automation := &stubAutomation{foreground: platform.App{ID: "editor", PID: 100}}
	popups := popup.NewManager()
	coord := coordinator.New(automation, coordinator.Options{
		Popups: popups,
		Timing: coordinator.Timing{HideDelay: time.Millisecond},
	})

	registrar := &recordingRegistrar{handlers: make(map[string]func())}
	manager := hotkeys.NewManager(db, registrar, hotkeys.RetryPolicy{Attempts: 1, Interval: time.Millisecond})

	bindHotkeys(ctx, manager, coord, popups)
	require.NoError(t, manager.RegisterAll(ctx))

	registrar.press(t, hotkeys.ActionMain)
	assert.Equal(t, popup.Clipboard, popups.Visible())
	target, ok := coord.Session().Target()
	require.True(t, ok)
	assert.Equal(t, "editor", target.ID)

	registrar.press(t, hotkeys.ActionMain)
	assert.Equal(t, popup.Kind(""), popups.Visible())
	assert.False(t, coord.Session().IsCaptured(), "closing the popup cancels the capture")

	automation.foreground = platform.App{ID: "browser", PID: 200}
	registrar.press(t, hotkeys.ActionSnippet)
	assert.Equal(t, popup.Snippet, popups.Visible())

	_, err = coord.Paste(ctx, coordinator.PasteRequest{Text: "x", Source: coordinator.SourceSnippet})
	require.NoError(t, err)
	assert.Equal(t, []string{"browser"}, automation.activated)
	assert.Equal(t, popup.Kind(""), popups.Visible())
}
