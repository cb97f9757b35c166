// snipee: clipboard history and snippet paster.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"markestedt/snipee/config"
	"markestedt/snipee/instance"
	"markestedt/snipee/logging"
	"markestedt/snipee/popup"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func init() {
	// the tray and hotkey run loops must own the main thread on macOS
	runtime.LockOSThread()
}

type rootOptions struct {
	configPath string
	logFormat  string
	logLevel   string
	noTray     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "snipee",
		Short: "Clipboard history and snippet paster",
		Long: `snipee keeps a clipboard history, stores personal snippets and syncs a
shared snippet set from a remote XML document. Global hotkeys open the
popups; choosing an item pastes it back into the application that was
focused when the hotkey was pressed.

Run without a sub-command to start the tray application.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runApp(cmd.Context(), cfg, !opts.noTray)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "path to config.toml (default: user config dir)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format: auto, text or json (overrides config)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	root.Flags().BoolVar(&opts.noTray, "no-tray", false, "run without the system tray icon")

	root.AddCommand(
		newSyncCmd(opts),
		newExpandCmd(opts),
		newExportCmd(opts),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "snipee %s\n", Version)
		},
	}
}

// loadConfig reads the configuration and sets up logging. Flags win over
// the config file.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	format, level := cfg.General.LogFormat, cfg.General.LogLevel
	if opts.logFormat != "" {
		format = opts.logFormat
	}
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logging.Setup(logging.ParseFormat(format), logging.ParseLevel(level))

	slog.Debug("Configuration loaded", "path", cfg.Path())
	return cfg, nil
}

func runApp(parent context.Context, cfg *config.Config, withTray bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	popups := popup.NewManager()

	guard, err := instance.Acquire(func() { popups.Show(popup.Clipboard) })
	if errors.Is(err, instance.ErrAlreadyRunning) {
		slog.Info("Snipee is already running, activated the existing instance")
		return nil
	}
	if err != nil {
		return err
	}
	defer guard.Close()

	app, err := NewApp(ctx, cfg, popups)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Run(ctx, withTray); err != nil {
		slog.Error("Snipee stopped with error", "error", err)
		return err
	}

	slog.Info("Snipee stopped")
	return nil
}
