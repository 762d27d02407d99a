package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/jobscout/models"
	"github.com/use-agent/jobscout/notify"
	"github.com/use-agent/jobscout/scraper"
	"github.com/use-agent/jobscout/sink"
)

type runFlags struct {
	keyword    string
	location   string
	maxResults int
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and write the screenshot and results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := models.SearchQuery{Keyword: a.cfg.Search.Keyword, Location: a.cfg.Search.Location}
			if cmd.Flags().Changed("keyword") {
				q.Keyword = f.keyword
			}
			if cmd.Flags().Changed("location") {
				q.Location = f.location
			}
			if cmd.Flags().Changed("max-results") {
				a.cfg.Extractor.MaxResults = f.maxResults
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			_, err := a.runOnce(ctx, q)
			return err
		},
	}
	cmd.Flags().StringVarP(&f.keyword, "keyword", "k", "", "search keyword (default from config)")
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "search location (default from config)")
	cmd.Flags().IntVarP(&f.maxResults, "max-results", "n", 0, "maximum records to keep (default from config)")
	return cmd
}

// runOnce wires a Runner and executes one run. A failed run is logged and
// reported in the result but is not an error: only setup failures are.
func (a *app) runOnce(ctx context.Context, q models.SearchQuery) (*models.RunResult, error) {
	cfg := a.cfg
	slog.Info("=== jobscout run starting ===",
		"keyword", q.Keyword,
		"location", q.Location,
		"engine", cfg.Browser.Engine,
		"sink", cfg.Output.Sink,
		"max_results", cfg.Extractor.MaxResults,
	)
	var run *models.RunResult
	defer func() {
		attrs := []any{"success", run != nil && run.Success}
		if run != nil {
			attrs = append(attrs, "run_id", run.RunID, "duration_ms", run.DurationMs)
		}
		slog.Info("=== jobscout run finished ===", attrs...)
	}()

	eng, err := newEngine(cfg.Browser.Engine)
	if err != nil {
		return nil, err
	}
	snk, err := sink.New(cfg)
	if err != nil {
		return nil, err
	}
	defer snk.Close()

	var opts []scraper.Option
	n, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		slog.Warn("notifications disabled", "error", err)
	} else if n != nil {
		opts = append(opts, scraper.WithNotifier(n))
	}

	runner, err := scraper.NewRunner(cfg, eng, snk, opts...)
	if err != nil {
		return nil, err
	}

	run = runner.RunOnce(ctx, q)
	if run.Success {
		slog.Info("=== jobscout run completed ===", "run_id", run.RunID, "records", len(run.Records), "duration_ms", run.DurationMs)
	} else {
		slog.Error("=== jobscout run failed ===", "run_id", run.RunID, "stage", run.FailedStage, "error", run.Error.Message)
	}
	return run, nil
}
