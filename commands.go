package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"markestedt/snipee/config"
	"markestedt/snipee/postprocess"
	"markestedt/snipee/snippets"
	"markestedt/snipee/snipsync"
	"markestedt/snipee/storage"
)

// withStore loads the config, opens the database and runs fn
func withStore(opts *rootOptions, fn func(cfg *config.Config, db *storage.DB) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.General.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return fn(cfg, db)
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the master snippets once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(opts, func(cfg *config.Config, db *storage.DB) error {
				return runSync(cmd.Context(), cmd.OutOrStdout(), cfg, db, url)
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "store this master snippet URL before syncing")
	return cmd
}

func runSync(ctx context.Context, out io.Writer, cfg *config.Config, db *storage.DB, url string) error {
	lib := snippets.NewLibrary(db)

	if url == "" {
		current, err := lib.MasterURL(ctx)
		if err != nil {
			return err
		}
		if current == "" {
			url = cfg.Sync.URL
		}
	}
	if url != "" {
		if err := lib.SetMasterURL(ctx, url); err != nil {
			return fmt.Errorf("failed to save master URL: %w", err)
		}
	}

	res := snipsync.New(lib, snipsync.NewHTTPFetcher(cfg.Sync.Timeout())).Sync(ctx)
	if !res.Success {
		return fmt.Errorf("sync failed: %s", res.Error)
	}

	fmt.Fprintf(out, "synced %d snippets at %s\n", res.Count, res.LastSync.Local().Format("2006/01/02 15:04:05"))
	return nil
}

func newExpandCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expand [text]",
		Short: "Expand snippet variables in text (or stdin) and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}

			return withStore(opts, func(_ *config.Config, db *storage.DB) error {
				ctx := cmd.Context()
				name, err := storage.GetString(ctx, db, storage.KeyUserName, "")
				if err != nil {
					return err
				}

				expander := postprocess.NewExpander(func() string { return name })
				out, err := postprocess.NewPipeline(expander.VariableProcessor()).Process(ctx, text)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				if !strings.HasSuffix(out, "\n") {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				return nil
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export personal snippets as Clipy-compatible XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(opts, func(_ *config.Config, db *storage.DB) error {
				personal, err := snippets.NewLibrary(db).Personal(cmd.Context())
				if err != nil {
					return err
				}

				data, err := snippets.EncodeXML(personal.Folders, personal.Snippets)
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}

				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				slog.Info("Exported snippets", "path", output, "count", len(personal.Snippets))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
