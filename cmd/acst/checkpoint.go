package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/synaptiai/agent-capability-standard/pkg/checkpoint"
	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage worktree checkpoints",
	Long: `Create, list, restore, and compare worktree checkpoints. Checkpoints
snapshot uncommitted state using git's stash plumbing without touching the
worktree.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// newCheckpointManager wires the manager against the shared storage and
// the current worktree. The returned cleanup closes the storage handle.
func newCheckpointManager(cmd *cobra.Command) (*checkpoint.Manager, func()) {
	ctx := cmd.Context()

	sqlDB, err := openDB(ctx)
	if err != nil {
		presenter.Error(err, "failed to open storage")
		os.Exit(1)
	}

	workdir, err := os.Getwd()
	if err != nil {
		sqlDB.Close()
		presenter.Error(err, "failed to get working directory")
		os.Exit(1)
	}

	return checkpoint.NewManager(sqlDB, workdir), func() { sqlDB.Close() }
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the current worktree state",
	Run: func(cmd *cobra.Command, _ []string) {
		manager, cleanup := newCheckpointManager(cmd)
		defer cleanup()

		label, _ := cmd.Flags().GetString("label")
		if label == "" {
			label = "manual"
		}
		runID, _ := cmd.Flags().GetString("run")
		if runID == "" {
			runID = "manual-" + uuid.NewString()[:8]
		}

		cp, err := manager.Create(cmd.Context(), runID, label)
		if err != nil {
			presenter.Error(err, "failed to create checkpoint")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("checkpoint %s created (%s)", cp.ID, cp.Label))
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored checkpoints",
	Run: func(cmd *cobra.Command, _ []string) {
		manager, cleanup := newCheckpointManager(cmd)
		defer cleanup()

		cps, err := manager.List(cmd.Context())
		if err != nil {
			presenter.Error(err, "failed to list checkpoints")
			os.Exit(1)
		}

		if len(cps) == 0 {
			presenter.Info("No checkpoints")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRUN\tLABEL\tCREATED")
		for _, cp := range cps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cp.ID, cp.RunID, cp.Label, cp.CreatedAt.Local().Format(time.RFC3339))
		}
		w.Flush()
	},
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore the worktree to a checkpoint",
	Long: `Restore the worktree to a checkpoint. Uncommitted changes made after
the checkpoint are discarded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, cleanup := newCheckpointManager(cmd)
		defer cleanup()

		cp, err := manager.Get(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		if err := manager.Restore(cmd.Context(), cp); err != nil {
			presenter.Error(err, "restore failed")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("restored checkpoint %s (%s)", cp.ID, cp.Label))
	},
}

var checkpointDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Remove a checkpoint's metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, cleanup := newCheckpointManager(cmd)
		defer cleanup()

		if err := manager.Drop(cmd.Context(), args[0]); err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}
		presenter.Success("checkpoint dropped")
	},
}

var checkpointDiffCmd = &cobra.Command{
	Use:   "diff <id>",
	Short: "Show differences between a checkpoint and the worktree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, cleanup := newCheckpointManager(cmd)
		defer cleanup()

		cp, err := manager.Get(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		diff, err := manager.Diff(cmd.Context(), cp)
		if err != nil {
			presenter.Error(err, "diff failed")
			os.Exit(1)
		}

		if diff == "" {
			presenter.Info("worktree matches checkpoint")
			return
		}
		fmt.Print(diff)
	},
}

func init() {
	checkpointCreateCmd.Flags().String("label", "", "Checkpoint label")
	checkpointCreateCmd.Flags().String("run", "", "Run id to associate the checkpoint with")

	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointRestoreCmd)
	checkpointCmd.AddCommand(checkpointDropCmd)
	checkpointCmd.AddCommand(checkpointDiffCmd)
	rootCmd.AddCommand(checkpointCmd)
}
