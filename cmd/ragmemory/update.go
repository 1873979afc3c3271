package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/ragmemory/internal/http"
	"github.com/fyrsmithlabs/ragmemory/internal/updater"
)

var (
	updateOnce        bool
	updateSchedule    string
	updateWatch       bool
	updateDataDir     string
	updateMetricsAddr string
)

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&updateOnce, "once", false, "run a single update and exit")
	updateCmd.Flags().StringVar(&updateSchedule, "schedule", "", "cron schedule for periodic updates (overrides updater.schedule)")
	updateCmd.Flags().BoolVar(&updateWatch, "watch", false, "re-ingest when an export file in <data-dir>/latest changes")
	updateCmd.Flags().StringVar(&updateDataDir, "data-dir", "", "directory holding latest/<export>.json (overrides updater.data_dir)")
	updateCmd.Flags().StringVar(&updateMetricsAddr, "metrics-addr", "", "serve /health, /metrics and the status API on this address")
}

// updateCmd rebuilds both collections from <data-dir>/latest
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rebuild the ChatGPT and Claude collections from the latest exports",
	Long: `Re-ingest <data-dir>/latest/chatgpt_conversations.json and
<data-dir>/latest/claude_conversations.json into their collections.

Without --once the command keeps running: on a cron schedule, on file
changes with --watch, or both. A missing export fails only its own source.

Examples:
  # One-off refresh
  ragmemory update --once

  # Nightly refresh plus file watching, with status on :9090
  ragmemory update --schedule "0 3 * * *" --watch --metrics-addr localhost:9090`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	cfg := updaterConfig(a)
	if updateSchedule != "" {
		cfg.Schedule = updateSchedule
	}
	if updateWatch {
		cfg.Watch = true
	}
	if updateDataDir != "" {
		cfg.DataDir = updateDataDir
	}

	p, err := a.pipelineFor("")
	if err != nil {
		return err
	}
	u, err := updater.New(p, a.index, cfg, a.logger.Named("updater"))
	if err != nil {
		return err
	}

	if updateOnce {
		summary, err := u.RunOnce(ctx)
		if summary != nil {
			printSummary(cmd.OutOrStdout(), summary)
		}
		return err
	}

	addr := updateMetricsAddr
	if addr == "" {
		addr = a.cfg.Updater.MetricsAddr
	}
	if addr != "" {
		stop, err := serveStatus(ctx, a, u, addr)
		if err != nil {
			return err
		}
		defer stop()
	}

	return u.Run(ctx)
}

func updaterConfig(a *app) updater.Config {
	return updater.Config{
		DataDir:           a.cfg.Updater.DataDir,
		ChatGPTFile:       a.cfg.Updater.ChatGPTFile,
		ClaudeFile:        a.cfg.Updater.ClaudeFile,
		ChatGPTCollection: a.cfg.Ingest.ChatGPTCollection,
		ClaudeCollection:  a.cfg.Ingest.ClaudeCollection,
		Schedule:          a.cfg.Updater.Schedule,
		Watch:             a.cfg.Updater.Watch,
		Debounce:          a.cfg.Updater.Debounce.Duration(),
	}
}

// serveStatus runs the HTTP server in the background. The returned func
// shuts it down.
func serveStatus(ctx context.Context, a *app, updates httpserver.UpdateStatus, addr string) (func(), error) {
	svc, err := a.searchService()
	if err != nil {
		return nil, err
	}
	srv, err := newHTTPServer(a, svc, updates, addr)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Start(); err != nil {
			a.logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn(ctx, "http shutdown", zap.Error(err))
		}
	}, nil
}

func printSummary(w io.Writer, s *updater.Summary) {
	fmt.Fprintf(w, "Update (%s) finished in %s: %d/%d sources succeeded\n",
		s.Trigger, s.Duration.Round(1e6), s.Succeeded(), len(s.Sources))
	for _, r := range s.Sources {
		if r.Err != nil {
			fmt.Fprintf(w, "  %-8s FAILED %s\n", r.Source, r.Error)
			continue
		}
		fmt.Fprintf(w, "  %-8s %d points in %q\n", r.Source, r.Report.PointsUpserted, r.Collection)
	}
	for _, info := range s.Collections {
		fmt.Fprintf(w, "  %s: %d points\n", info.Name, info.PointCount)
	}
}
