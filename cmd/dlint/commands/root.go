// Package commands provides the CLI commands for the dlint tool.
package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "dlint",
	Short: "dlint finds derivatives taken under non-uniform control flow",
	Long: `dlint lints a binary shader IR module for derivative-taking
instructions (implicit-LOD image samples, DPdx/DPdy/Fwidth) that execute
under non-uniform control flow, where the value a derivative approximates
is undefined.

Commands:
  lint        Lint a module and report findings
  cdg         Dump a function's control dependence graph
  divergence  Dump a function's divergence witness graph
  init        Initialize dlint configuration interactively

Use "dlint [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(lintCmd)
	RootCmd.AddCommand(cdgCmd)
	RootCmd.AddCommand(divergenceCmd)
	RootCmd.AddCommand(initCmd)
}
