package main

// #region imports
import (
	"github.com/spf13/cobra"
)

// #endregion imports

// #region root

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coscientist",
		Short: "Hypothesis evolution controller",
		Long: `coscientist runs research sessions that generate, review, rank, and
evolve scientific hypotheses against a model backend.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newInspectCmd())
	return root
}

// #endregion root
