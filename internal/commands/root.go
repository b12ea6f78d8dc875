package commands

import (
	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/nest"
	"github.com/simonhull/firebird-suite/nest/internal/output"
)

// RootCmd creates and returns the root command for the nest CLI
func RootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "nest",
		Short: "Two-layer code generator that keeps your custom code",
		Long: `Nest renders code templates for the entities of a project catalog.

Every entity and template produces two files:
• base/ is regenerated and overwritten on every run
• biz/ is yours; regeneration merges into it and keeps marked custom code

Learn more: https://github.com/simonhull/firebird-suite`,
		Version:       nest.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	cmd.PersistentFlags().String("config", "", "Settings file (default: ./nest.yaml when present)")

	return cmd
}

// NewCLI returns the root command with every subcommand registered.
func NewCLI() *cobra.Command {
	root := RootCmd()
	root.AddCommand(
		GenerateCmd(),
		ValidateCmd(),
		CompareCmd(),
		DiffCmd(),
		ServeCmd(),
		HistoryCmd(),
	)
	return root
}
