// Package controldep builds the control dependence graph (CDG) of a
// function: a basic block A is control dependent on B if the outcome
// of B's branch determines whether A executes. The construction
// follows Cytron, Ferrante, Rosen, Wegman & Zadeck 1991, "Efficiently
// Computing Static Single Assignment Form and the Control Dependence
// Graph": the control dependees of a block are exactly its
// post-dominance frontier, computed here in one post-order pass over
// the post-dominator tree rather than the two-pass frontier-then-graph
// construction some other implementations use.
//
// The pseudo-entry block (ir.PseudoEntryBlock) is added as a control
// dependee of the function's real entry and of every block that
// post-dominates the entry, giving those blocks (which no branch
// controls) a dependee and representing "the program executes at all"
// as an ordinary edge rather than a special case callers must know
// about.
package controldep

import (
	"fmt"

	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

// DependenceKind classifies why a control dependence edge exists.
type DependenceKind int

const (
	// ConditionalBranch: the dependee ends in OpBranchConditional.
	ConditionalBranch DependenceKind = iota
	// SwitchCase: the dependee ends in OpSwitch.
	SwitchCase
	// Entry: the dependee is the pseudo-entry block.
	Entry
)

func (k DependenceKind) String() string {
	switch k {
	case ConditionalBranch:
		return "ConditionalBranch"
	case SwitchCase:
		return "SwitchCase"
	case Entry:
		return "Entry"
	default:
		return "Unknown"
	}
}

// ControlDependence is one edge of the CDG: Target is control
// dependent on Source.
type ControlDependence struct {
	Source, Target ir.ID
	Kind           DependenceKind

	// DependentValueLabel is the branch condition (ConditionalBranch)
	// or the switch selector (SwitchCase) this edge depends on. Unset
	// for Entry edges.
	DependentValueLabel ir.ID
	// ConditionValue is the branch outcome that reaches Target. Only
	// meaningful for ConditionalBranch.
	ConditionValue bool
	// SwitchCaseValues holds the case constants that reach Target via
	// a labeled case (as opposed to the default label). Only
	// meaningful for SwitchCase.
	SwitchCaseValues []uint32
	// IsSwitchDefault reports whether Target is also reached via the
	// switch's default label. Only meaningful for SwitchCase.
	IsSwitchDefault bool
}

// Equal reports whether d and o describe the same dependence edge.
func (d ControlDependence) Equal(o ControlDependence) bool {
	if d.Source != o.Source || d.Target != o.Target || d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case ConditionalBranch:
		return d.DependentValueLabel == o.DependentValueLabel &&
			d.ConditionValue == o.ConditionValue
	case SwitchCase:
		if d.DependentValueLabel != o.DependentValueLabel ||
			d.IsSwitchDefault != o.IsSwitchDefault ||
			len(d.SwitchCaseValues) != len(o.SwitchCaseValues) {
			return false
		}
		for i := range d.SwitchCaseValues {
			if d.SwitchCaseValues[i] != o.SwitchCaseValues[i] {
				return false
			}
		}
		return true
	default: // Entry
		return true
	}
}

// ConsistencyError reports that the CFG fed to Build violates an
// invariant the CDG construction depends on: a block ending in
// something other than a conditional branch or switch was found on
// the post-dominance frontier, or a dependence edge pointed at a
// label that is not actually a successor of its source.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string { return "controldep: " + e.Msg }

// Graph is the control dependence graph of a single function.
type Graph struct {
	forward map[ir.ID][]ControlDependence // dependents, keyed by dependee
	reverse map[ir.ID][]ControlDependence // dependees, keyed by dependent
}

// GetDependents returns the blocks that are control dependent on
// block, i.e. the edges for which block is the source.
func (g *Graph) GetDependents(block ir.ID) []ControlDependence {
	return g.forward[block]
}

// GetDependees returns the blocks that block is control dependent on,
// i.e. the edges for which block is the target.
func (g *Graph) GetDependees(block ir.ID) []ControlDependence {
	return g.reverse[block]
}

// DoesBlockExist reports whether block appears anywhere in the graph,
// as either a dependee or a dependent.
func (g *Graph) DoesBlockExist(block ir.ID) bool {
	if _, ok := g.forward[block]; ok {
		return true
	}
	_, ok := g.reverse[block]
	return ok
}

// IsDependent reports whether a is directly control dependent on b.
func (g *Graph) IsDependent(a, b ir.ID) bool {
	if _, ok := g.forward[a]; !ok {
		return false
	}
	// Blocks tend to have more dependents than dependees, so search
	// the (usually shorter) dependee list.
	for _, dep := range g.reverse[a] {
		if dep.Source == b {
			return true
		}
	}
	return false
}

// ForEachBlockLabel calls f once for every block label present in the
// graph (as either a dependee or a dependent).
func (g *Graph) ForEachBlockLabel(f func(ir.ID)) {
	g.WhileEachBlockLabel(func(id ir.ID) bool {
		f(id)
		return true
	})
}

// WhileEachBlockLabel calls f for each block label present in the
// graph until f returns false, then reports whether every call
// returned true.
func (g *Graph) WhileEachBlockLabel(f func(ir.ID) bool) bool {
	for label := range g.forward {
		if !f(label) {
			return false
		}
	}
	return true
}

// Build computes the control dependence graph for the function
// underlying cfg, given its post-dominator tree pdt. It returns a
// *ConsistencyError if cfg contains a block whose terminator cannot
// possibly explain an edge the post-dominance frontier computation
// discovers, which indicates the CFG and post-dominator tree passed in
// disagree with each other.
func Build(cfg *cfgview.CFG, pdt *postdom.Tree) (g *Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*ConsistencyError); ok {
				g, err = nil, ce
				return
			}
			panic(r)
		}
	}()

	entry := cfg.EntryBlock()
	graph := &Graph{
		forward: make(map[ir.ID][]ControlDependence),
		reverse: make(map[ir.ID][]ControlDependence),
	}

	// Post-order over the post-dominator tree: children (which sit
	// deeper in the CFG) are visited, and hence have their frontier
	// contributions computed, before their post-dominator-tree parent.
	for _, node := range pdt.PostOrder() {
		label := node.ID
		if cfg.IsPseudoExitBlock(label) {
			continue
		}

		var edges []ControlDependence
		for _, pred := range cfg.Preds(label) {
			if !pdt.StrictlyPostDominates(label, pred) {
				edges = append(edges, classify(cfg, pred, label))
			}
		}
		if label == entry {
			// Edge from pseudo-entry to entry; the DF_up step below
			// carries it on to every block that post-dominates entry.
			edges = append(edges, ControlDependence{
				Source: ir.PseudoEntryBlock,
				Target: label,
				Kind:   Entry,
			})
		}
		// DF_up(child): frontier entries the child couldn't resolve
		// locally propagate up to label, unless label itself
		// post-dominates them away.
		for _, child := range node.Children {
			for _, dep := range graph.reverse[child] {
				if dep.Source == ir.PseudoEntryBlock || !pdt.StrictlyPostDominates(label, dep.Source) {
					dep.Target = label
					edges = append(edges, dep)
				}
			}
		}
		graph.reverse[label] = edges
		if _, ok := graph.forward[label]; !ok {
			graph.forward[label] = nil // ensure the label is enumerated even with no dependents
		}
	}

	for _, edges := range graph.reverse {
		for _, dep := range edges {
			graph.forward[dep.Source] = append(graph.forward[dep.Source], dep)
		}
	}

	return graph, nil
}

// classify determines the ControlDependence edge from source to
// target, reading source's terminator to work out which branch
// outcome (or switch case) leads to target.
func classify(cfg *cfgview.CFG, source, target ir.ID) ControlDependence {
	dep := ControlDependence{Source: source, Target: target}
	block := cfg.Block(source)
	if block == nil {
		panic(&ConsistencyError{Msg: fmt.Sprintf("block %s not found in CFG", source)})
	}
	branch := block.Terminator()
	if branch == nil {
		panic(&ConsistencyError{Msg: fmt.Sprintf("block %s has no terminator", source)})
	}
	switch branch.Opcode {
	case ir.OpBranchConditional:
		trueLabel := ir.ID(branch.InOperand(1))
		falseLabel := ir.ID(branch.InOperand(2))
		if trueLabel == falseLabel {
			panic(&ConsistencyError{Msg: fmt.Sprintf(
				"block %s: conditional branch true and false labels are both %s", source, trueLabel)})
		}
		dep.Kind = ConditionalBranch
		dep.DependentValueLabel = ir.ID(branch.InOperand(0))
		switch target {
		case trueLabel:
			dep.ConditionValue = true
		case falseLabel:
			dep.ConditionValue = false
		default:
			panic(&ConsistencyError{Msg: fmt.Sprintf(
				"impossible control dependence %s->%s: %s branches to neither operand", source, target, source)})
		}
	case ir.OpSwitch:
		dep.Kind = SwitchCase
		dep.DependentValueLabel = ir.ID(branch.InOperand(0))
		defaultLabel := ir.ID(branch.InOperand(1))
		numCases := (branch.NumInOperands() - 2) / 2
		for i := 0; i < numCases; i++ {
			caseValue := branch.InOperand(2 + 2*i)
			label := ir.ID(branch.InOperand(2 + 2*i + 1))
			if target == label {
				dep.SwitchCaseValues = append(dep.SwitchCaseValues, caseValue)
			}
		}
		if target == defaultLabel {
			dep.IsSwitchDefault = true
		} else if len(dep.SwitchCaseValues) == 0 {
			panic(&ConsistencyError{Msg: fmt.Sprintf(
				"impossible control dependence %s->%s: %s switches to neither a case nor the default", source, target, source)})
		}
	default:
		panic(&ConsistencyError{Msg: fmt.Sprintf(
			"block %s ends in %s, which is not a conditional branch", source, branch.Opcode)})
	}
	return dep
}
