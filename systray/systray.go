package systray

import (
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

// Actions are the callbacks behind the tray menu. Nil entries hide their
// menu item.
type Actions struct {
	ShowClipboard func()
	ShowSnippets  func()
	ShowHistory   func()
	Sync          func()
	OpenSettings  func()
}

// SystrayManager manages the system tray icon and menu
type SystrayManager struct {
	iconData []byte
	actions  Actions
	quit     chan struct{}
	quitOnce sync.Once
}

// NewSystrayManager creates a new systray manager
func NewSystrayManager(iconData []byte, actions Actions) *SystrayManager {
	return &SystrayManager{
		iconData: iconData,
		actions:  actions,
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call). On macOS it must run on the
// main thread; its run loop also services global hotkeys.
func (m *SystrayManager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *SystrayManager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// onReady is called when the systray is ready
func (m *SystrayManager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	} else {
		systray.SetTitle("Snipee")
	}
	systray.SetTooltip("Snipee")

	items := []struct {
		title, tooltip string
		fn             func()
	}{
		{"クリップボード履歴を開く", "Open the clipboard popup", m.actions.ShowClipboard},
		{"スニペットを開く", "Open the snippet popup", m.actions.ShowSnippets},
		{"履歴を開く", "Open the history popup", m.actions.ShowHistory},
		{"今すぐ同期", "Sync master snippets now", m.actions.Sync},
		{"設定", "Open the settings page", m.actions.OpenSettings},
	}

	for i, it := range items {
		if it.fn == nil {
			continue
		}
		if i == 3 {
			systray.AddSeparator()
		}
		item := systray.AddMenuItem(it.title, it.tooltip)
		go m.dispatch(item, it.fn)
	}

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("終了", "Quit Snipee")

	go func() {
		<-mQuit.ClickedCh
		slog.Info("User requested quit from system tray")
		m.requestQuit()
		systray.Quit()
	}()
}

func (m *SystrayManager) dispatch(item *systray.MenuItem, fn func()) {
	for {
		select {
		case <-item.ClickedCh:
			fn()
		case <-m.quit:
			return
		}
	}
}

func (m *SystrayManager) requestQuit() {
	m.quitOnce.Do(func() { close(m.quit) })
}

// onExit is called when the systray is exiting
func (m *SystrayManager) onExit() {
	m.requestQuit()
	slog.Info("System tray exited")
}
