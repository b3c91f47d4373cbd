package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/divergence-lint/internal/config"
	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/defuse"
	"github.com/l3aro/divergence-lint/pkg/divergence"
	"github.com/l3aro/divergence-lint/pkg/dump"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

var divergenceCmd = &cobra.Command{
	Use:   "divergence <in_file> <function_id>",
	Short: "Dump a function's divergence witness graph",
	Long: `Runs the uniformity analysis for one function of a module and dumps
every non-uniform block and value it found, with the witness that
explains why each one is non-uniform.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return runDivergence(args[0], args[1], format)
	},
}

func init() {
	divergenceCmd.Flags().String("format", "", "Output format: text, json or msgpack (default from config)")
}

func runDivergence(inFile, functionArg, formatFlag string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mod, fn, err := decodeAndFindFunction(inFile, functionArg)
	if err != nil {
		return err
	}

	du := defuse.Build(mod)
	cfgGraph := cfgview.Build(fn)
	pdt := postdom.Build(cfgGraph)
	cdg, err := controldep.Build(cfgGraph, pdt)
	if err != nil {
		return fmt.Errorf("building control dependence graph: %w", err)
	}

	state := divergence.Run(mod, fn, cfgGraph, cdg, du, divergence.Options{
		ImageLoadsDivergent: cfg.ImageLoadsDivergent,
	})
	entries := dump.DivergenceReport(fn, state)

	format := resolveFormat(cfg, formatFlag)
	if format == string(config.OutputText) {
		for _, e := range entries {
			if e.Root {
				fmt.Printf("%s %s: non-uniform (root)\n", e.Kind, e.ID)
				continue
			}
			fmt.Printf("%s %s: non-uniform because of %s in block %s\n", e.Kind, e.ID, e.Cause, e.Block)
		}
		return nil
	}
	return dump.Write(os.Stdout, dump.Format(format), entries)
}
