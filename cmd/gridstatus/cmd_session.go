package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session <session-id>",
		Short: "Show a session's details as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details := get().reporter.GetSessionDetails(cmd.Context(), args[0])
			if details == nil {
				return fmt.Errorf("session %s not available", args[0])
			}
			return printJSON(cmd.OutOrStdout(), details)
		},
	}
}

func newBuildCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build <build-id>",
		Short: "List the sessions of a build as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := get().reporter.ListBuildSessions(cmd.Context(), args[0])
			if sessions == nil {
				return fmt.Errorf("build %s not available", args[0])
			}
			return printJSON(cmd.OutOrStdout(), sessions)
		},
	}
}
