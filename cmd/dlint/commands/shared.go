package commands

import (
	"fmt"
	"strconv"

	"github.com/l3aro/divergence-lint/internal/config"
	"github.com/l3aro/divergence-lint/pkg/ir"
)

// decodeAndFindFunction reads and decodes inFile, then returns the
// function whose result ID matches functionArg (a decimal integer, the
// same numeric ID a diagnostic message renders as "%N").
func decodeAndFindFunction(inFile, functionArg string) (*ir.Module, *ir.Function, error) {
	words, err := readWords(inFile)
	if err != nil {
		return nil, nil, err
	}
	mod, err := ir.DecodeModule(words)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", inFile, err)
	}

	id, err := strconv.ParseUint(functionArg, 10, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid function id %q: %w", functionArg, err)
	}
	for _, fn := range mod.Functions {
		if uint32(fn.ResultID) == uint32(id) {
			return mod, fn, nil
		}
	}
	return nil, nil, fmt.Errorf("no function with id %s in %s", functionArg, inFile)
}

// resolveFormat returns the effective output format: the --format flag
// if set, otherwise the config default.
func resolveFormat(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return string(cfg.OutputFormat)
}
