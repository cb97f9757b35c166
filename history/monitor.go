package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"markestedt/snipee/logging"
	"markestedt/snipee/platform"
)

// DefaultPollInterval is how often the clipboard is sampled
const DefaultPollInterval = 500 * time.Millisecond

// Monitor polls the system clipboard and records changed text
type Monitor struct {
	clipboard platform.Clipboard
	history   *History
	interval  time.Duration

	mu       sync.Mutex
	lastSeen string
}

// NewMonitor creates a clipboard monitor feeding h
func NewMonitor(clipboard platform.Clipboard, h *History, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		clipboard: clipboard,
		history:   h,
		interval:  interval,
	}
}

// MarkSeen records text as the current clipboard content so the next
// poll does not add it. Used for text snipee writes itself.
func (m *Monitor) MarkSeen(text string) {
	m.mu.Lock()
	m.lastSeen = text
	m.mu.Unlock()
}

// Run samples the clipboard until ctx is cancelled. Whatever is on the
// clipboard at start is treated as already seen.
func (m *Monitor) Run(ctx context.Context) {
	if text, err := m.clipboard.ReadClipboardText(); err == nil {
		m.MarkSeen(text)
	} else {
		slog.Warn("Failed to read clipboard", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("Clipboard monitor started", "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Clipboard monitor stopped")
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll performs one clipboard sample and reports whether an entry was added
func (m *Monitor) Poll(ctx context.Context) bool {
	text, err := m.clipboard.ReadClipboardText()
	if err != nil {
		slog.Debug("Failed to read clipboard", "error", err)
		return false
	}

	m.mu.Lock()
	if text == "" || text == m.lastSeen {
		m.mu.Unlock()
		return false
	}
	m.lastSeen = text
	m.mu.Unlock()

	if _, _, err := m.history.Add(ctx, text); err != nil {
		slog.Error("Failed to record clipboard entry", "error", err)
		return false
	}

	logging.DebugText("Clipboard entry recorded", text)
	return true
}
