package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synaptiai/agent-capability-standard/pkg/packs"
	"github.com/synaptiai/agent-capability-standard/pkg/presenter"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Install and manage capability packs",
	Long: `Install capability packs from git repositories. A pack's skills are
discovered under the org/repo name prefix.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var packInstallCmd = &cobra.Command{
	Use:   "install <org/repo>",
	Short: "Install a capability pack from a git repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		ref, _ := cmd.Flags().GetString("ref")

		installer, err := packs.NewInstaller(packs.WithForce(force))
		if err != nil {
			presenter.Error(err, "failed to initialize installer")
			os.Exit(1)
		}

		result, err := installer.Install(cmd.Context(), args[0], ref)
		if err != nil {
			presenter.Error(err, "pack installation failed")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("installed pack %s", result.Pack))
		if len(result.Skills) > 0 {
			presenter.Info(fmt.Sprintf("Skills: %s", strings.Join(result.Skills, ", ")))
		}
		if len(result.Hooks) > 0 {
			presenter.Info(fmt.Sprintf("Hooks:  %s", strings.Join(result.Hooks, ", ")))
		}
	},
}

var packListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed capability packs",
	Run: func(_ *cobra.Command, _ []string) {
		remover, err := packs.NewRemover()
		if err != nil {
			presenter.Error(err, "failed to initialize pack manager")
			os.Exit(1)
		}

		installed, err := remover.ListPacks()
		if err != nil {
			presenter.Error(err, "failed to list packs")
			os.Exit(1)
		}

		if len(installed) == 0 {
			presenter.Info("No packs installed")
			return
		}
		for _, pack := range installed {
			presenter.Info(pack)
		}
	},
}

var packRemoveCmd = &cobra.Command{
	Use:   "remove <org/repo>",
	Short: "Remove an installed capability pack",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		remover, err := packs.NewRemover()
		if err != nil {
			presenter.Error(err, "failed to initialize pack manager")
			os.Exit(1)
		}

		if err := remover.Remove(args[0]); err != nil {
			presenter.Error(err, "pack removal failed")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("removed pack %s", args[0]))
	},
}

func init() {
	packInstallCmd.Flags().Bool("force", false, "Reinstall when the pack is already present")
	packInstallCmd.Flags().String("ref", "", "Branch or tag to install")

	packCmd.AddCommand(packInstallCmd)
	packCmd.AddCommand(packListCmd)
	packCmd.AddCommand(packRemoveCmd)
	rootCmd.AddCommand(packCmd)
}
