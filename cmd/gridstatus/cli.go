package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridstatus/internal/config"
	"github.com/shehryarbajwa/gridstatus/internal/grid"
	"github.com/shehryarbajwa/gridstatus/internal/observability"
	"github.com/shehryarbajwa/gridstatus/internal/ratelimit"
	"github.com/shehryarbajwa/gridstatus/internal/reporter"
)

const version = "gridstatus v0.3.0"

// app is built once per invocation from the loaded configuration
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	client   *grid.Client
	registry *prometheus.Registry
	metrics  *observability.ReporterMetrics
	reporter *reporter.SessionStatusReporter
}

func newApp(configPath string) (*app, error) {
	dotenvErr := config.LoadDotEnv(".env")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Log, "gridstatus")
	if dotenvErr != nil {
		logger.Warn().Err(dotenvErr).Msg("ignoring .env")
	}

	creds := cfg.Credentials()
	client := grid.NewClient(creds,
		grid.WithBaseURL(cfg.Grid.BaseURL),
		grid.WithLimiter(ratelimit.NewLimiter(cfg.Grid.RequestsPerMinute, max(cfg.Report.Workers, 1))),
	)

	registry := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		registry: registry,
		metrics:  observability.NewReporterMetrics(registry),
	}
	a.reporter = a.newReporter(cfg.Report.MaxWait)
	return a, nil
}

func (a *app) newReporter(maxWait time.Duration) *reporter.SessionStatusReporter {
	return reporter.New(a.client, a.cfg.Credentials(),
		reporter.WithLogger(a.logger),
		reporter.WithMetrics(a.metrics),
		reporter.WithMaxWait(maxWait),
	)
}

func newRootCmd() *cobra.Command {
	var configPath string
	var a *app

	root := &cobra.Command{
		Use:   "gridstatus",
		Short: "Report test outcomes to a remote browser grid",
		Long: `gridstatus marks remote browser grid sessions as passed or failed.

It waits for freshly created sessions to become visible on the grid before
writing the status and retries transient failures, so reporting never depends
on winning the grid's session registration race.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			a, err = newApp(configPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.CompletionOptions.DisableDefaultCmd = true

	get := func() *app { return a }
	root.AddCommand(
		newVersionCmd(),
		newMarkCmd(get),
		newSessionCmd(get),
		newBuildCmd(get),
		newReportCmd(get),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
