package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/jobscout/api/handler"
	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/engine"
)

// newEngine resolves the configured engine. Replaced in tests.
var newEngine = engine.New

// logOutput is where the process logs go. Replaced in tests.
var logOutput io.Writer = os.Stdout

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "jobscout",
		Short:         "Render a job search page in a headless browser and save the first results.",
		Version:       handler.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			initLogger(cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file (defaults and JOBSCOUT_* env vars apply without one)")

	runCmd := newRunCmd(a)
	root.AddCommand(runCmd, newServeCmd(a), newExtractCmd(a))

	// `jobscout` alone behaves like `jobscout run`.
	root.Flags().AddFlagSet(runCmd.Flags())
	root.RunE = runCmd.RunE
	return root
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(logOutput, opts)
	} else {
		h = slog.NewTextHandler(logOutput, opts)
	}

	slog.SetDefault(slog.New(h))
}
