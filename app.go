package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"markestedt/snipee/config"
	"markestedt/snipee/coordinator"
	"markestedt/snipee/history"
	"markestedt/snipee/hotkeys"
	"markestedt/snipee/platform"
	"markestedt/snipee/popup"
	"markestedt/snipee/postprocess"
	"markestedt/snipee/snippets"
	"markestedt/snipee/snipsync"
	"markestedt/snipee/storage"
	"markestedt/snipee/systray"
	"markestedt/snipee/web"
)

// App wires snipee's components together
type App struct {
	cfg        *config.Config
	db         *storage.DB
	automation platform.Automation

	history     *history.History
	monitor     *history.Monitor
	library     *snippets.Library
	syncer      *snipsync.Syncer
	expander    *postprocess.Expander
	coordinator *coordinator.Coordinator
	popups      *popup.Manager
	hotkeys     *hotkeys.Manager
	server      *web.Server
}

// NewApp opens the database and builds every component. popups is passed
// in so the single-instance guard can show a popup before the app exists.
func NewApp(ctx context.Context, cfg *config.Config, popups *popup.Manager) (*App, error) {
	db, err := storage.Open(cfg.General.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	hist, err := history.New(ctx, db, cfg.Clipboard.MaxHistory)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load clipboard history: %w", err)
	}

	automation := platform.New()
	monitor := history.NewMonitor(automation, hist, cfg.Clipboard.PollInterval())
	library := snippets.NewLibrary(db)

	a := &App{
		cfg:        cfg,
		db:         db,
		automation: automation,
		history:    hist,
		monitor:    monitor,
		library:    library,
		syncer:     snipsync.New(library, snipsync.NewHTTPFetcher(cfg.Sync.Timeout())),
		popups:     popups,
	}

	a.expander = postprocess.NewExpander(a.userName)

	a.coordinator = coordinator.New(automation, coordinator.Options{
		Popups:   popups,
		Seen:     monitor,
		Recorder: db,
		Timing: coordinator.Timing{
			HideDelay:       cfg.Paste.HideDelay(),
			ActivateTimeout: cfg.Paste.ActivateTimeout(),
		},
	})

	a.hotkeys = hotkeys.NewManager(db, hotkeys.NewRegistrar(), hotkeys.RetryPolicy{
		Attempts: cfg.Hotkeys.Attempts,
		Interval: cfg.Hotkeys.RetryInterval(),
	})

	a.server = web.NewServer(cfg, web.Deps{
		DB:          db,
		History:     hist,
		Library:     library,
		Syncer:      a.syncer,
		Coordinator: a.coordinator,
		Expander:    a.expander,
		Hotkeys:     a.hotkeys,
		Popups:      popups,
		Automation:  automation,
	})

	if cfg.Web.Enabled {
		hist.OnChange(a.server.BroadcastHistory)
		library.OnPersonalChange(a.server.BroadcastPersonal)
		a.syncer.OnSync(a.server.BroadcastSync)
		popups.OnChange(a.server.BroadcastPopup)
	}

	return a, nil
}

func (a *App) userName() string {
	name, err := storage.GetString(context.Background(), a.db, storage.KeyUserName, "")
	if err != nil {
		slog.Warn("Failed to load user name", "error", err)
	}
	return name
}

// Run starts the background workers and blocks until ctx is done or the
// user quits from the tray. With withTray the tray owns the calling
// goroutine, which must be the main thread on macOS.
func (a *App) Run(ctx context.Context, withTray bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.seedMasterURL(ctx); err != nil {
		slog.Warn("Failed to seed master snippet URL", "error", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if a.cfg.Web.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.Start(ctx); err != nil {
				errCh <- fmt.Errorf("web server failed: %w", err)
				cancel()
			}
		}()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		a.monitor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.syncer.Run(ctx, a.cfg.Sync.Interval())
	}()
	go func() {
		defer wg.Done()
		a.startHotkeys(ctx)
	}()

	a.announcePermissionGuide(ctx)

	slog.Info("Snipee started",
		"automation", a.automation.Name(),
		"permission", a.automation.HasAutomationPermission(),
		"web", a.cfg.Web.Enabled)

	if withTray {
		tray := systray.NewSystrayManager(nil, a.trayActions(ctx))
		go func() {
			select {
			case <-ctx.Done():
				tray.Stop()
			case <-tray.WaitForQuit():
				cancel()
			}
		}()
		tray.Run()
		cancel()
	} else {
		<-ctx.Done()
	}

	a.hotkeys.UnregisterAll()
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// Close releases the database
func (a *App) Close() error {
	return a.db.Close()
}

// ShowClipboard shows the clipboard popup
func (a *App) ShowClipboard() {
	a.popups.Show(popup.Clipboard)
}

// bindHotkeys routes each hotkey action to its popup. Opening a popup
// captures the paste target first; toggling it closed cancels the capture.
func bindHotkeys(ctx context.Context, m *hotkeys.Manager, coord *coordinator.Coordinator, popups *popup.Manager) {
	toggle := func(kind popup.Kind) func() {
		return func() {
			if popups.Visible() == kind {
				popups.Hide(kind)
				coord.Session().Clear()
				return
			}
			coord.Capture(ctx)
			popups.Show(kind)
		}
	}
	m.Handle(hotkeys.ActionMain, toggle(popup.Clipboard))
	m.Handle(hotkeys.ActionSnippet, toggle(popup.Snippet))
	m.Handle(hotkeys.ActionHistory, toggle(popup.History))
}

func (a *App) startHotkeys(ctx context.Context) {
	bindHotkeys(ctx, a.hotkeys, a.coordinator, a.popups)

	// input methods need time to settle before accelerators are grabbed
	select {
	case <-ctx.Done():
		return
	case <-time.After(a.cfg.Hotkeys.StartupDelay()):
	}

	if err := a.hotkeys.RegisterAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Some hotkeys are not registered", "error", err)
	}
}

func (a *App) seedMasterURL(ctx context.Context) error {
	if a.cfg.Sync.URL == "" {
		return nil
	}
	current, err := a.library.MasterURL(ctx)
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	return a.library.SetMasterURL(ctx, a.cfg.Sync.URL)
}

// announcePermissionGuide opens the accessibility guide once on macOS
// when automation permission is missing.
func (a *App) announcePermissionGuide(ctx context.Context) {
	if runtime.GOOS != "darwin" || a.automation.HasAutomationPermission() {
		return
	}

	shown, err := storage.GetString(ctx, a.db, storage.KeyPermissionGuideShown, "")
	if err != nil {
		slog.Warn("Failed to load permission guide state", "error", err)
		return
	}
	if shown == "true" {
		return
	}

	if err := storage.SetString(ctx, a.db, storage.KeyPermissionGuideShown, "true"); err != nil {
		slog.Warn("Failed to save permission guide state", "error", err)
	}

	slog.Warn("Accessibility permission missing, pastes will be clipboard-only")
	a.popups.OpenWindow(popup.PermissionGuide)
	if a.cfg.Web.Enabled {
		if err := a.automation.OpenURL(a.server.URL() + "/#permission"); err != nil {
			slog.Warn("Failed to open permission guide", "error", err)
		}
	}
}

func (a *App) trayActions(ctx context.Context) systray.Actions {
	actions := systray.Actions{
		ShowClipboard: a.ShowClipboard,
		ShowSnippets:  func() { a.popups.Show(popup.Snippet) },
		ShowHistory:   func() { a.popups.Show(popup.History) },
		Sync: func() {
			if res := a.syncer.Sync(ctx); !res.Success {
				slog.Warn("Manual sync failed", "error", res.Error)
			}
		},
	}

	if a.cfg.Web.Enabled {
		actions.OpenSettings = func() {
			url := a.server.URL()
			slog.Info("Opening web UI", "url", url)
			if err := a.automation.OpenURL(url); err != nil {
				slog.Error("Failed to open web UI", "error", err)
			}
		}
	}
	return actions
}
