package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridstatus/internal/batch"
)

func newReportCmd(get func() *app) *cobra.Command {
	var textfile string

	cmd := &cobra.Command{
		Use:   "report <results-file>",
		Short: "Report a file of test results",
		Long: `Report every entry of a results file in parallel.

The file is a JSON array or newline-delimited JSON of
{"session_id": "...", "outcome": "passed|failed|unknown", "reason": "..."}.
Unknown outcomes follow report.unknown_outcome (skip, passed or failed).
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open results: %w", err)
				}
				defer f.Close()
				in = f
			}

			results, err := batch.ReadResults(in)
			if err != nil {
				return err
			}

			a := get()
			br := batch.NewReporter(a.reporter, a.cfg.UnknownPolicy(), a.cfg.Report.Workers, a.cfg.Report.RetryCount, a.logger)
			summary := br.ReportAll(cmd.Context(), results)

			out := cmd.OutOrStdout()
			for _, e := range summary.Entries {
				switch {
				case e.Skipped:
					fmt.Fprintf(out, "- %s skipped (outcome %s)\n", e.TestResult.SessionID, e.TestResult.Outcome)
				case e.Result.OK():
					fmt.Fprintf(out, "✓ %s\n", e.TestResult.SessionID)
				default:
					fmt.Fprintf(out, "✗ %s: %s\n", e.TestResult.SessionID, e.Result.Outcome)
				}
			}
			fmt.Fprintf(out, "%d succeeded, %d failed, %d skipped\n", summary.Succeeded, summary.Failed, summary.Skipped)

			if textfile != "" {
				if err := prometheus.WriteToTextfile(textfile, a.registry); err != nil {
					a.logger.Warn().Err(err).Str("path", textfile).Msg("failed to write metrics")
				}
			}

			if !summary.OK() {
				return fmt.Errorf("%d status updates failed", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&textfile, "metrics-textfile", "", "write reporting counters in Prometheus text format to this path")
	return cmd
}
