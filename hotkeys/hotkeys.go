// Package hotkeys binds the global shortcuts that open snipee's popups.
package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"markestedt/snipee/platform"
	"markestedt/snipee/storage"
)

// Action is a logical hotkey target
type Action string

const (
	ActionMain    Action = "main"
	ActionSnippet Action = "snippet"
	ActionHistory Action = "history"
)

// Actions lists every action in registration order
var Actions = []Action{ActionMain, ActionSnippet, ActionHistory}

// ErrUnknownAction is returned for an action name with no hotkey
var ErrUnknownAction = errors.New("unknown hotkey action")

var settingKeys = map[Action]string{
	ActionMain:    storage.KeyHotkeyMain,
	ActionSnippet: storage.KeyHotkeySnippet,
	ActionHistory: storage.KeyHotkeyHistory,
}

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := settingKeys[a]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownAction, s)
	}
	return a, nil
}

// DefaultBinding returns the platform default accelerator for action
func DefaultBinding(action Action) string {
	prefix := "Ctrl+Alt+"
	if runtime.GOOS == "darwin" {
		prefix = "Command+Control+"
	}

	switch action {
	case ActionSnippet:
		return prefix + "V"
	case ActionHistory:
		return prefix + "X"
	default:
		return prefix + "C"
	}
}

// Registration is a live OS hotkey
type Registration interface {
	Unregister() error
}

// Registrar binds accelerators with the OS
type Registrar interface {
	Register(acc Accelerator, fn func()) (Registration, error)
}

// RetryPolicy bounds registration attempts
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetryPolicy is three attempts half a second apart
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Interval: 500 * time.Millisecond}

// Manager owns the bindings and their registrations
type Manager struct {
	store     storage.Store
	registrar Registrar
	policy    RetryPolicy

	mu       sync.Mutex
	handlers map[Action]func()
	active   map[Action]Registration
}

// NewManager creates a manager. A zero policy selects DefaultRetryPolicy.
func NewManager(store storage.Store, registrar Registrar, policy RetryPolicy) *Manager {
	if policy.Attempts <= 0 {
		policy.Attempts = DefaultRetryPolicy.Attempts
	}
	if policy.Interval <= 0 {
		policy.Interval = DefaultRetryPolicy.Interval
	}

	return &Manager{
		store:     store,
		registrar: registrar,
		policy:    policy,
		handlers:  make(map[Action]func()),
		active:    make(map[Action]Registration),
	}
}

// Handle sets the callback run when action's hotkey fires
func (m *Manager) Handle(action Action, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[action] = fn
}

// Get returns the accelerator bound to action
func (m *Manager) Get(ctx context.Context, action Action) (string, error) {
	key, ok := settingKeys[action]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownAction, action)
	}
	return storage.GetString(ctx, m.store, key, DefaultBinding(action))
}

// Bindings returns the accelerator of every action
func (m *Manager) Bindings(ctx context.Context) (map[Action]string, error) {
	out := make(map[Action]string, len(Actions))
	for _, a := range Actions {
		acc, err := m.Get(ctx, a)
		if err != nil {
			return nil, err
		}
		out[a] = acc
	}
	return out, nil
}

// Set validates and persists a binding, then re-registers all hotkeys
func (m *Manager) Set(ctx context.Context, action Action, accelerator string) error {
	key, ok := settingKeys[action]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownAction, action)
	}

	acc, err := ParseAccelerator(accelerator)
	if err != nil {
		return err
	}

	if err := storage.SetString(ctx, m.store, key, acc.String()); err != nil {
		return fmt.Errorf("failed to save hotkey: %w", err)
	}

	return m.RegisterAll(ctx)
}

// Reset drops every override and re-registers the defaults
func (m *Manager) Reset(ctx context.Context) error {
	for _, a := range Actions {
		if err := m.store.Delete(ctx, settingKeys[a]); err != nil {
			return fmt.Errorf("failed to reset hotkey: %w", err)
		}
	}
	return m.RegisterAll(ctx)
}

// RegisterAll replaces every registration. Each binding is retried per
// the policy; failures are logged and joined into the returned error, and
// the remaining actions are still registered.
func (m *Manager) RegisterAll(ctx context.Context) error {
	m.UnregisterAll()

	var errs []error
	for _, action := range Actions {
		if err := m.register(ctx, action); err != nil {
			slog.Error("Failed to register hotkey", "action", action, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", action, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) register(ctx context.Context, action Action) error {
	raw, err := m.Get(ctx, action)
	if err != nil {
		return err
	}
	acc, err := ParseAccelerator(raw)
	if err != nil {
		return err
	}

	m.mu.Lock()
	handler := m.handlers[action]
	m.mu.Unlock()
	if handler == nil {
		handler = func() {}
	}

	backoff := retry.WithMaxRetries(uint64(m.policy.Attempts-1), retry.NewConstant(m.policy.Interval))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		reg, err := m.registrar.Register(acc, handler)
		if errors.Is(err, platform.ErrUnsupported) {
			return err
		}
		if err != nil {
			slog.Warn("Hotkey registration attempt failed",
				"action", action, "accelerator", acc.String(), "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		m.mu.Lock()
		m.active[action] = reg
		m.mu.Unlock()

		slog.Info("Hotkey registered", "action", action, "accelerator", acc.String(), "attempt", attempt)
		return nil
	})
}

// Registered returns the actions with a live registration
func (m *Manager) Registered() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Action
	for _, a := range Actions {
		if _, ok := m.active[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// UnregisterAll releases every registration
func (m *Manager) UnregisterAll() {
	m.mu.Lock()
	active := m.active
	m.active = make(map[Action]Registration)
	m.mu.Unlock()

	for action, reg := range active {
		if err := reg.Unregister(); err != nil {
			slog.Warn("Failed to unregister hotkey", "action", action, "error", err)
		}
	}
}
