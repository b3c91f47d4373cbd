// Package dump serializes a function's control dependence graph and
// divergence witness graph to JSON or msgpack, for the `dlint cdg` and
// `dlint divergence` inspection commands. Neither format round-trips
// back into controldep.Graph or divergence.State: dumping is a
// one-way rendering for human or tool consumption, the same role
// pkg/cache's msgpack encoding plays for its own on-disk entries.
package dump

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/divergence"
	"github.com/l3aro/divergence-lint/pkg/ir"
)

// Format selects the wire encoding Write produces.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ControlDependenceEdge is the serializable form of a
// controldep.ControlDependence edge.
type ControlDependenceEdge struct {
	Source               ir.ID    `json:"source" msgpack:"source"`
	Target               ir.ID    `json:"target" msgpack:"target"`
	Kind                 string   `json:"kind" msgpack:"kind"`
	DependentValueLabel  ir.ID    `json:"dependent_value_label,omitempty" msgpack:"dependent_value_label,omitempty"`
	ConditionValue       bool     `json:"condition_value,omitempty" msgpack:"condition_value,omitempty"`
	SwitchCaseValues     []uint32 `json:"switch_case_values,omitempty" msgpack:"switch_case_values,omitempty"`
	IsSwitchDefault      bool     `json:"is_switch_default,omitempty" msgpack:"is_switch_default,omitempty"`
}

func kindName(k controldep.DependenceKind) string {
	switch k {
	case controldep.ConditionalBranch:
		return "conditional_branch"
	case controldep.SwitchCase:
		return "switch_case"
	case controldep.Entry:
		return "entry"
	default:
		return "unknown"
	}
}

// ControlDependenceGraph renders every edge of g reachable from
// blocks, keyed by the block whose dependees are being listed. blocks
// should be every block ID in the function, in the order the caller
// wants them reported (typically reverse post order).
func ControlDependenceGraph(g *controldep.Graph, blocks []ir.ID) []ControlDependenceEdge {
	var out []ControlDependenceEdge
	for _, b := range blocks {
		for _, dep := range g.GetDependees(b) {
			out = append(out, ControlDependenceEdge{
				Source:              dep.Source,
				Target:              dep.Target,
				Kind:                kindName(dep.Kind),
				DependentValueLabel: dep.DependentValueLabel,
				ConditionValue:      dep.ConditionValue,
				SwitchCaseValues:    dep.SwitchCaseValues,
				IsSwitchDefault:     dep.IsSwitchDefault,
			})
		}
	}
	return out
}

// WitnessEntry is the serializable form of one State.blocks or
// State.values entry.
type WitnessEntry struct {
	ID    ir.ID  `json:"id" msgpack:"id"`
	Kind  string `json:"entity" msgpack:"entity"` // "block" or "value"
	Root  bool   `json:"root,omitempty" msgpack:"root,omitempty"`
	Cause ir.ID  `json:"cause,omitempty" msgpack:"cause,omitempty"`
	Block ir.ID  `json:"block,omitempty" msgpack:"block,omitempty"`
}

// DivergenceReport renders every non-uniform block and value state
// knows about for fn.
func DivergenceReport(fn *ir.Function, state *divergence.State) []WitnessEntry {
	var out []WitnessEntry
	for _, b := range fn.Blocks {
		w, ok := state.BlockWitness(b.ID)
		if !ok {
			continue
		}
		out = append(out, WitnessEntry{ID: b.ID, Kind: "block", Root: w.Root, Cause: w.Cause, Block: w.Block})
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if !inst.HasResult() {
				continue
			}
			w, ok := state.ValueWitness(inst.ResultID)
			if !ok {
				continue
			}
			out = append(out, WitnessEntry{ID: inst.ResultID, Kind: "value", Root: w.Root, Cause: w.Cause, Block: w.Block})
		}
	}
	return out
}

// Write encodes v to w in the given format.
func Write(w io.Writer, format Format, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		return enc.Encode(v)
	default:
		return fmt.Errorf("dump: unknown format %q", format)
	}
}
