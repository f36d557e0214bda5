package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/synaptiai/agent-capability-standard/pkg/hooks"
	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage gate hooks and pattern rules",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var hookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered hook executables",
	Run: func(cmd *cobra.Command, _ []string) {
		discovery, err := hooks.NewDiscovery(hookDiscoveryOpts()...)
		if err != nil {
			presenter.Error(err, "failed to initialize discovery")
			os.Exit(1)
		}

		discovered, err := discovery.DiscoverHooks()
		if err != nil {
			presenter.Error(err, "hook discovery failed")
			os.Exit(1)
		}

		total := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tPATH")
		for _, hookType := range []hooks.HookType{hooks.HookTypeGate, hooks.HookTypePreStep, hooks.HookTypePostStep, hooks.HookTypeRunEnd} {
			for _, hook := range discovered[hookType] {
				fmt.Fprintf(w, "%s\t%s\t%s\n", hook.Name, hook.HookType, hook.Path)
				total++
			}
		}
		w.Flush()

		if total == 0 {
			presenter.Info("No hooks found")
		}
	},
}

var hookTestCmd = &cobra.Command{
	Use:   "test <payload>",
	Short: "Evaluate a payload against a pattern-gate rule file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rulesPath, _ := cmd.Flags().GetString("rules")
		if rulesPath == "" {
			presenter.Error(fmt.Errorf("--rules is required"), "")
			os.Exit(1)
		}

		rs, err := hooks.LoadRules(rulesPath)
		if err != nil {
			presenter.Error(err, "failed to load rules")
			os.Exit(1)
		}

		decision := rs.Evaluate(args[0])
		if decision.Allowed {
			presenter.Success("allow")
			return
		}
		presenter.Error(fmt.Errorf("%s", decision.Reason), "block")
		os.Exit(1)
	},
}

var hookRenderCmd = &cobra.Command{
	Use:   "render <rules.yaml>",
	Short: "Render a rule file into a standalone gate shell script",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rs, err := hooks.LoadRules(args[0])
		if err != nil {
			presenter.Error(err, "failed to load rules")
			os.Exit(1)
		}

		script, err := rs.Render()
		if err != nil {
			presenter.Error(err, "failed to render script")
			os.Exit(1)
		}

		outPath, _ := cmd.Flags().GetString("output")
		if outPath == "" {
			fmt.Print(string(script))
			return
		}

		if err := os.WriteFile(outPath, script, 0o755); err != nil {
			presenter.Error(err, "failed to write script")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("gate script written to %s", outPath))
	},
}

func init() {
	hookTestCmd.Flags().String("rules", "", "Pattern-gate rule file")
	hookRenderCmd.Flags().StringP("output", "o", "", "Write the script to a file instead of stdout")

	hookCmd.AddCommand(hookListCmd)
	hookCmd.AddCommand(hookTestCmd)
	hookCmd.AddCommand(hookRenderCmd)
	rootCmd.AddCommand(hookCmd)
}
