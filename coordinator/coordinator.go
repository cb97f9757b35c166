// Package coordinator sequences focus capture and paste: it remembers the
// application a hotkey was pressed in and pastes back into it.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"markestedt/snipee/platform"
	"markestedt/snipee/storage"
)

// Default timing contracts
const (
	DefaultHideDelay       = 50 * time.Millisecond
	DefaultActivateTimeout = time.Second
)

// Source says where pasted text came from
type Source string

const (
	SourceHistory Source = "history"
	SourceSnippet Source = "snippet"
	SourceText    Source = "text"
)

// Popups hides every popup window before a paste
type Popups interface {
	HideAll()
}

// SeenMarker is told about clipboard writes snipee makes itself
type SeenMarker interface {
	MarkSeen(text string)
}

// Recorder persists paste outcomes
type Recorder interface {
	SavePaste(p *storage.Paste) error
}

// Timing holds the minimum waits of the paste sequence. HideDelay lets
// popup hide and focus transitions settle; ActivateTimeout bounds the wait
// for the target to become frontmost.
type Timing struct {
	HideDelay       time.Duration
	ActivateTimeout time.Duration
}

// Options wires optional collaborators
type Options struct {
	Popups   Popups
	Seen     SeenMarker
	Recorder Recorder
	Timing   Timing
	// SelfPID defaults to os.Getpid()
	SelfPID int
}

// PasteRequest is one paste
type PasteRequest struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// PasteResult reports which automation steps succeeded
type PasteResult struct {
	Target        string `json:"target,omitempty"`
	FocusRestored bool   `json:"focusRestored"`
	KeystrokeSent bool   `json:"keystrokeSent"`
}

// Coordinator owns the capture session and drives the paste chain
type Coordinator struct {
	automation platform.Automation
	popups     Popups
	seen       SeenMarker
	recorder   Recorder
	timing     Timing
	selfPID    int
	session    Session
}

// New creates a coordinator on top of automation
func New(automation platform.Automation, opts Options) *Coordinator {
	if opts.Timing.HideDelay <= 0 {
		opts.Timing.HideDelay = DefaultHideDelay
	}
	if opts.Timing.ActivateTimeout <= 0 {
		opts.Timing.ActivateTimeout = DefaultActivateTimeout
	}
	if opts.SelfPID == 0 {
		opts.SelfPID = os.Getpid()
	}

	return &Coordinator{
		automation: automation,
		popups:     opts.Popups,
		seen:       opts.Seen,
		recorder:   opts.Recorder,
		timing:     opts.Timing,
		selfPID:    opts.SelfPID,
	}
}

// Session exposes the capture session
func (c *Coordinator) Session() *Session {
	return &c.session
}

// Capture records the foreground application as the paste target. It runs
// only when a global hotkey fires; snipee's own windows are never
// captured, so toggling a popup keeps the earlier target.
func (c *Coordinator) Capture(ctx context.Context) {
	app, err := c.automation.ForegroundApplication(ctx)
	if err != nil {
		slog.Warn("Failed to capture foreground application", "error", err)
		return
	}

	if app.PID == c.selfPID {
		slog.Debug("Foreground application is snipee, keeping previous target")
		return
	}

	c.session.Capture(app)
	slog.Debug("Captured paste target", "app", app.Name, "id", app.ID, "pid", app.PID)
}

// Copy writes text to the clipboard without pasting
func (c *Coordinator) Copy(ctx context.Context, text string) error {
	if err := c.automation.WriteClipboardText(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	if c.seen != nil {
		c.seen.MarkSeen(text)
	}
	return nil
}

// Paste writes text to the clipboard, hides the popups, restores focus to
// the captured target and sends the paste keystroke, in that order. Only
// the clipboard write can fail the call; automation failures are logged
// and degrade to a clipboard-only paste. Once started the sequence runs to
// completion even if ctx is cancelled, so popups are never left hidden
// with the target still captured.
func (c *Coordinator) Paste(ctx context.Context, req PasteRequest) (PasteResult, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	if err := c.Copy(ctx, req.Text); err != nil {
		return PasteResult{}, err
	}

	if c.popups != nil {
		c.popups.HideAll()
	}

	var result PasteResult
	var failures []error

	if err := sleep(ctx, c.timing.HideDelay); err != nil {
		return result, err
	}

	if target, ok := c.session.Target(); ok {
		result.Target = target.Name
		if result.Target == "" {
			result.Target = target.ID
		}

		actx, cancel := context.WithTimeout(ctx, c.timing.ActivateTimeout)
		err := c.automation.ActivateApplication(actx, target)
		cancel()

		if err != nil {
			slog.Warn("Failed to restore focus", "app", result.Target, "error", err)
			failures = append(failures, err)
		} else {
			result.FocusRestored = true
		}
	}

	if c.automation.HasAutomationPermission() {
		if err := c.automation.SendPasteKeystroke(ctx); err != nil {
			slog.Warn("Failed to send paste keystroke", "error", err)
			failures = append(failures, err)
		} else {
			result.KeystrokeSent = true
		}
	} else {
		slog.Info("No automation permission, text left on clipboard")
	}

	c.session.Clear()

	latency := time.Since(start)
	slog.Info("Paste completed",
		"source", req.Source,
		"chars", utf8.RuneCountInString(req.Text),
		"focus_restored", result.FocusRestored,
		"keystroke_sent", result.KeystrokeSent,
		"latency", latency)

	c.record(req, result, latency, errors.Join(failures...))
	return result, nil
}

func (c *Coordinator) record(req PasteRequest, result PasteResult, latency time.Duration, failure error) {
	if c.recorder == nil {
		return
	}

	p := &storage.Paste{
		Source:         string(req.Source),
		CharacterCount: utf8.RuneCountInString(req.Text),
		TargetApp:      result.Target,
		FocusRestored:  result.FocusRestored,
		KeystrokeSent:  result.KeystrokeSent,
		LatencyMs:      latency.Milliseconds(),
	}
	if failure != nil {
		p.ErrorMessage = failure.Error()
	}

	if err := c.recorder.SavePaste(p); err != nil {
		slog.Error("Failed to save paste", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
