package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Query the capability ontology",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var graphOrderCmd = &cobra.Command{
	Use:   "order <capability>...",
	Short: "Print the execution order covering the given capabilities",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g := mustGraph()

		order, err := g.Order(args...)
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}
		fmt.Println(strings.Join(order, "\n"))
	},
}

var graphClosureCmd = &cobra.Command{
	Use:   "closure <capability>",
	Short: "Print the transitive hard-dependency set of a capability",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g := mustGraph()

		closure, err := g.Closure(args[0])
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		trust, err := g.EffectiveTrust(args[0])
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		if len(closure) == 0 {
			presenter.Info("no hard dependencies")
		} else {
			fmt.Println(strings.Join(closure, "\n"))
		}
		presenter.Info(fmt.Sprintf("effective trust: %.2f", trust))
	},
}

var graphLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Report ontology inconsistencies",
	Long: `Build the capability graph and report every inconsistency:
unknown soft dependencies, enables edges the target does not acknowledge,
and hard errors such as cycles or missing requirements.`,
	Run: func(cmd *cobra.Command, _ []string) {
		pol, err := activeProfile()
		if err != nil {
			presenter.Error(err, "failed to load profile")
			os.Exit(1)
		}

		_, warnings, err := buildGraph(pol)
		if err != nil {
			presenter.Error(err, "capability graph is inconsistent")
			os.Exit(1)
		}

		if len(warnings) == 0 {
			presenter.Success("capability graph is consistent")
			return
		}
		for _, warning := range warnings {
			presenter.Warning(warning.String())
		}
		os.Exit(1)
	},
}

// mustGraph builds the graph with the active profile, exiting on failure.
// Warnings are shown but not fatal.
func mustGraph() graphQuerier {
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
	return g
}

// graphQuerier is the subset of graph operations the CLI needs
type graphQuerier interface {
	Order(names ...string) ([]string, error)
	Closure(name string) ([]string, error)
	EffectiveTrust(name string) (float64, error)
}

func init() {
	graphCmd.AddCommand(graphOrderCmd)
	graphCmd.AddCommand(graphClosureCmd)
	graphCmd.AddCommand(graphLintCmd)
	rootCmd.AddCommand(graphCmd)
}
