package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/synaptiai/agent-capability-standard/pkg/audit"
	"github.com/synaptiai/agent-capability-standard/pkg/checkpoint"
	"github.com/synaptiai/agent-capability-standard/pkg/engine"
	"github.com/synaptiai/agent-capability-standard/pkg/hooks"
	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
	"github.com/synaptiai/agent-capability-standard/pkg/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect, validate, and run workflows",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workflow catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		catalog, err := workflow.LoadDir(viper.GetString("workflow_dir"))
		if err != nil {
			presenter.Error(err, "failed to load workflow catalog")
			os.Exit(1)
		}

		if len(catalog) == 0 {
			presenter.Info("No workflows found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTEPS\tCEILING\tDESCRIPTION")
		for _, name := range workflow.Names(catalog) {
			wf := catalog[name]
			ceiling := string(wf.RiskCeiling)
			if ceiling == "" {
				ceiling = "-"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, len(wf.Steps), ceiling, wf.Description)
		}
		w.Flush()
	},
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate [name]",
	Short: "Validate workflows against the capability graph and risk policy",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pol, err := activeProfile()
		if err != nil {
			presenter.Error(err, "failed to load profile")
			os.Exit(1)
		}

		g, warnings, err := buildGraph(pol)
		if err != nil {
			presenter.Error(err, "capability graph is inconsistent")
			os.Exit(1)
		}
		for _, warning := range warnings {
			presenter.Warning(warning.String())
		}

		catalog, err := workflow.LoadDir(viper.GetString("workflow_dir"))
		if err != nil {
			presenter.Error(err, "failed to load workflow catalog")
			os.Exit(1)
		}

		if len(args) == 1 {
			wf, ok := catalog[args[0]]
			if !ok {
				presenter.Error(fmt.Errorf("workflow %q not found", args[0]), "")
				os.Exit(1)
			}
			catalog = map[string]*workflow.Workflow{wf.Name: wf}
		}

		problems := workflow.ValidateCatalog(catalog, g, pol)
		if len(problems) == 0 {
			presenter.Success(fmt.Sprintf("%d workflow(s) valid", len(catalog)))
			return
		}
		for _, name := range workflow.Names(catalog) {
			if err, bad := problems[name]; bad {
				presenter.Error(err, name)
			}
		}
		os.Exit(1)
	},
}

var workflowRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Compose and execute a workflow",
	Long: `Compose the named workflow through the capability graph and execute
the resulting plan under the active risk policy. --dry-run prints the plan
without executing anything.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		pol, err := activeProfile()
		if err != nil {
			presenter.Error(err, "failed to load profile")
			os.Exit(1)
		}

		g, warnings, err := buildGraph(pol)
		if err != nil {
			presenter.Error(err, "capability graph is inconsistent")
			os.Exit(1)
		}
		for _, warning := range warnings {
			presenter.Warning(warning.String())
		}

		catalog, err := workflow.LoadDir(viper.GetString("workflow_dir"))
		if err != nil {
			presenter.Error(err, "failed to load workflow catalog")
			os.Exit(1)
		}
		wf, ok := catalog[args[0]]
		if !ok {
			presenter.Error(fmt.Errorf("workflow %q not found", args[0]), "")
			os.Exit(1)
		}

		if err := wf.Validate(g, pol); err != nil {
			presenter.Error(err, "workflow is invalid")
			os.Exit(1)
		}

		plan, err := wf.Compose(g)
		if err != nil {
			presenter.Error(err, "failed to compose plan")
			os.Exit(1)
		}

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			presenter.Section(fmt.Sprintf("Plan for %s (max risk: %s)", plan.Workflow, plan.MaxRisk()))
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCAPABILITY\tRISK\tON_FAILURE\tSOURCE")
			for i, step := range plan.Steps {
				source := "explicit"
				if step.Implicit {
					source = "dependency"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, step.Capability, step.Risk, step.OnFailure, source)
			}
			w.Flush()
			return
		}

		shutdownTracer, err := initTracing(ctx)
		if err != nil {
			presenter.Warning(fmt.Sprintf("tracing disabled: %v", err))
		} else {
			defer shutdownTracer(ctx)
		}

		sqlDB, err := openDB(ctx)
		if err != nil {
			presenter.Error(err, "failed to open storage")
			os.Exit(1)
		}
		defer sqlDB.Close()

		hookManager, err := newHookManager()
		if err != nil {
			presenter.Error(err, "failed to discover hooks")
			os.Exit(1)
		}

		workdir, err := os.Getwd()
		if err != nil {
			presenter.Error(err, "failed to get working directory")
			os.Exit(1)
		}

		opts := []engine.Option{
			engine.WithHooks(hookManager),
			engine.WithCheckpoints(checkpoint.NewManager(sqlDB, workdir)),
			engine.WithAuditTrail(audit.NewTrail(sqlDB, auditLogPath())),
			engine.WithWorkdir(workdir),
		}
		if rulesPath, _ := cmd.Flags().GetString("rules"); rulesPath != "" {
			rs, err := hooks.LoadRules(rulesPath)
			if err != nil {
				presenter.Error(err, "failed to load gate rules")
				os.Exit(1)
			}
			opts = append(opts, engine.WithRuleSets(rs))
		}

		eng := engine.New(g, pol, opts...)
		result, runErr := eng.Run(ctx, plan)

		stats := &presenter.RunStats{
			RunID:      result.RunID,
			Steps:      len(result.Steps),
			RolledBack: result.RolledBack,
		}
		for _, step := range result.Steps {
			switch step.Status {
			case engine.StepOK:
				stats.OK++
			case engine.StepSkipped:
				stats.Skipped++
			case engine.StepFailed:
				stats.Failed++
			case engine.StepBlocked:
				stats.Blocked++
			}
		}
		presenter.Stats(stats)

		if runErr != nil {
			presenter.Error(runErr, "workflow aborted")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("workflow %s completed", plan.Workflow))
	},
}

// auditLogPath returns the configured audit log file location
func auditLogPath() string {
	if path := viper.GetString("audit_log"); path != "" {
		return path
	}
	return "./.acst/audit.log"
}

func init() {
	workflowRunCmd.Flags().Bool("dry-run", false, "Print the composed plan without executing it")
	workflowRunCmd.Flags().String("rules", "", "Pattern-gate rule file applied before hook gates")

	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowValidateCmd)
	workflowCmd.AddCommand(workflowRunCmd)
	rootCmd.AddCommand(workflowCmd)
}
