// Package main implements the dlint CLI: a lint pass that flags
// derivative-taking instructions executing under non-uniform control
// flow in a binary shader IR module.
package main

import (
	"fmt"
	"os"

	"github.com/l3aro/divergence-lint/cmd/dlint/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
