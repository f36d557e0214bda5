package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synaptiai/agent-capability-standard/pkg/audit"
	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit events",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		sqlDB, err := openDB(ctx)
		if err != nil {
			presenter.Error(err, "failed to open storage")
			os.Exit(1)
		}
		defer sqlDB.Close()

		trail := audit.NewTrail(sqlDB, "")

		runID, _ := cmd.Flags().GetString("run")
		var events []audit.Event
		if runID != "" {
			events, err = trail.ByRun(ctx, runID)
		} else {
			n, _ := cmd.Flags().GetInt("lines")
			events, err = trail.Tail(ctx, n)
		}
		if err != nil {
			presenter.Error(err, "failed to query audit trail")
			os.Exit(1)
		}

		if len(events) == 0 {
			presenter.Info("No audit events")
			return
		}
		for _, event := range events {
			fmt.Println(event.Line())
		}
	},
}

func init() {
	auditTailCmd.Flags().IntP("lines", "n", 20, "Number of events to show")
	auditTailCmd.Flags().String("run", "", "Show every event of a run instead")

	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(auditCmd)
}
