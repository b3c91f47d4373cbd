package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/divergence-lint/internal/config"
	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/dump"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

var cdgCmd = &cobra.Command{
	Use:   "cdg <in_file> <function_id>",
	Short: "Dump a function's control dependence graph",
	Long: `Builds the control dependence graph for one function of a module and
dumps every edge, for inspecting why the divergence analysis propagates
non-uniformity the way it does.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return runCDG(args[0], args[1], format)
	},
}

func init() {
	cdgCmd.Flags().String("format", "", "Output format: text, json or msgpack (default from config)")
}

func runCDG(inFile, functionArg, formatFlag string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, fn, err := decodeAndFindFunction(inFile, functionArg)
	if err != nil {
		return err
	}

	cfgGraph := cfgview.Build(fn)
	pdt := postdom.Build(cfgGraph)
	cdg, err := controldep.Build(cfgGraph, pdt)
	if err != nil {
		return fmt.Errorf("building control dependence graph: %w", err)
	}

	var blocks []ir.ID
	cfgGraph.ForEachBlockInReversePostOrder(fn.Entry().ID, func(id ir.ID) {
		blocks = append(blocks, id)
	})
	edges := dump.ControlDependenceGraph(cdg, blocks)

	format := resolveFormat(cfg, formatFlag)
	if format == string(config.OutputText) {
		for _, e := range edges {
			fmt.Printf("%s -> %s (%s)\n", e.Source, e.Target, e.Kind)
		}
		return nil
	}
	return dump.Write(os.Stdout, dump.Format(format), edges)
}
