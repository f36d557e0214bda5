package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect and validate capability skills",
	Long:  `List, show, and validate SKILL.md capability documents.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all discovered skills",
	Long:  `List all discovered skills with their layer, risk, and description.`,
	Run: func(cmd *cobra.Command, _ []string) {
		discovery, err := newDiscovery()
		if err != nil {
			presenter.Error(err, "failed to initialize discovery")
			os.Exit(1)
		}

		found, err := discovery.DiscoverSkills()
		if err != nil {
			presenter.Error(err, "skill discovery failed")
			os.Exit(1)
		}

		if len(found) == 0 {
			presenter.Info("No skills found")
			return
		}

		names := make([]string, 0, len(found))
		for name := range found {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLAYER\tRISK\tDESCRIPTION")
		for _, name := range names {
			skill := found[name]
			layer := string(skill.Layer)
			if layer == "" {
				layer = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, layer, skill.EffectiveRisk(), skill.Description)
		}
		w.Flush()
	},
}

var skillShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a skill's metadata and instructions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		discovery, err := newDiscovery()
		if err != nil {
			presenter.Error(err, "failed to initialize discovery")
			os.Exit(1)
		}

		skill, err := discovery.GetSkill(args[0])
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		presenter.Section(skill.Name)
		presenter.Info(fmt.Sprintf("Description: %s", skill.Description))
		presenter.Info(fmt.Sprintf("Directory:   %s", skill.Directory))
		presenter.Info(fmt.Sprintf("Risk:        %s", skill.EffectiveRisk()))
		if skill.Layer != "" {
			presenter.Info(fmt.Sprintf("Layer:       %s", skill.Layer))
		}
		presenter.Info(fmt.Sprintf("Trust:       %.2f", skill.TrustWeight()))
		if len(skill.Requires) > 0 {
			presenter.Info(fmt.Sprintf("Requires:    %v", skill.Requires))
		}
		if len(skill.SoftRequires) > 0 {
			presenter.Info(fmt.Sprintf("Soft req:    %v", skill.SoftRequires))
		}
		if len(skill.Enables) > 0 {
			presenter.Info(fmt.Sprintf("Enables:     %v", skill.Enables))
		}
		if len(skill.AllowedTools) > 0 {
			presenter.Info(fmt.Sprintf("Tools:       %v", skill.AllowedTools))
		}
		presenter.Separator()
		fmt.Println(skill.Content)
	},
}

var skillValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every discovered skill document",
	Long: `Validate every SKILL.md reachable from the configured skill
directories. With --watch, stay running and revalidate on change.`,
	Run: func(cmd *cobra.Command, _ []string) {
		discovery, err := newDiscovery()
		if err != nil {
			presenter.Error(err, "failed to initialize discovery")
			os.Exit(1)
		}

		ctx := cmd.Context()
		watch, _ := cmd.Flags().GetBool("watch")

		report := func(problems []skills.Problem) {
			if len(problems) == 0 {
				presenter.Success("all skill documents are valid")
				return
			}
			for _, problem := range problems {
				presenter.Error(problem.Err, problem.Path)
			}
		}

		if watch {
			if err := discovery.Watch(ctx, report); err != nil && ctx.Err() == nil {
				presenter.Error(err, "watch failed")
				os.Exit(1)
			}
			return
		}

		problems, err := discovery.ValidateAll(ctx)
		if err != nil {
			presenter.Error(err, "validation failed")
			os.Exit(1)
		}
		report(problems)
		if len(problems) > 0 {
			os.Exit(1)
		}
	},
}

var skillSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for SKILL.md frontmatter",
	Run: func(_ *cobra.Command, _ []string) {
		schema, err := skills.FrontmatterSchema()
		if err != nil {
			presenter.Error(err, "failed to generate schema")
			os.Exit(1)
		}
		fmt.Println(string(schema))
	},
}

func init() {
	skillValidateCmd.Flags().Bool("watch", false, "Revalidate whenever a skill document changes")

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillShowCmd)
	skillCmd.AddCommand(skillValidateCmd)
	skillCmd.AddCommand(skillSchemaCmd)
	rootCmd.AddCommand(skillCmd)
}
