package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

func newMarkCmd(get func() *app) *cobra.Command {
	var statusFlag, reason string
	var retries int
	var maxWait time.Duration

	cmd := &cobra.Command{
		Use:   "mark <session-id>",
		Short: "Mark a session passed or failed",
		Long: `Mark a remote session passed or failed.

The session is polled until the grid can see it (up to --max-wait), then the
status is written with up to --retries attempts. Exits non-zero if the grid
never accepted the status.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := models.ParseSessionStatus(statusFlag)
			if err != nil {
				return err
			}

			a := get()
			if retries <= 0 {
				retries = a.cfg.Report.RetryCount
			}
			r := a.reporter
			if maxWait > 0 {
				r = a.newReporter(maxWait)
			}

			res := r.UpdateSessionStatus(cmd.Context(), args[0], status, reason, retries)
			if !res.OK() {
				return fmt.Errorf("status update for %s failed (%s after %d attempts)", args[0], res.Outcome, res.Attempts)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s marked %s\n", args[0], status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "passed or failed")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason shown on the grid dashboard (max 255 characters)")
	cmd.Flags().IntVar(&retries, "retries", 0, "status write attempts (defaults to report.retry_count)")
	cmd.Flags().DurationVar(&maxWait, "max-wait", 0, "how long to wait for the session to appear (defaults to report.max_wait)")
	cmd.MarkFlagRequired("status")

	return cmd
}
