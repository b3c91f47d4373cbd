// Package derivcheck is the thin front-end that turns a completed
// divergence.State into diagnostics: it walks every instruction in a
// function looking for derivative-taking ops sitting in a block the
// divergence analysis marked non-uniform, and for each one found,
// walks the witness chain backward to explain why.
package derivcheck

import (
	"fmt"

	"github.com/l3aro/divergence-lint/internal/diag"
	"github.com/l3aro/divergence-lint/pkg/defuse"
	"github.com/l3aro/divergence-lint/pkg/divergence"
	"github.com/l3aro/divergence-lint/pkg/ir"
)

// Options tunes how a diagnostic's source text is rendered.
type Options struct {
	// FriendlyNames pretty-prints instructions using friendly names for
	// well-known types instead of raw numeric IDs.
	FriendlyNames bool
}

// Check scans every basic block in fn for a derivative-taking
// instruction executing in a block state marks non-uniform, and
// reports each one found through consumer, followed by the chain of
// witnesses explaining the non-uniformity.
func Check(fn *ir.Function, du *defuse.Index, state *divergence.State, consumer diag.Consumer, opts Options) {
	print := ir.PrettyPrint
	if opts.FriendlyNames && fn.Module != nil {
		mod := fn.Module
		print = func(inst *ir.Instruction) string { return ir.PrettyPrintFriendly(mod, inst) }
	}

	for _, b := range fn.Blocks {
		if !state.IsBlockDivergent(b.ID) {
			continue
		}
		for _, inst := range b.Instructions {
			if !ir.HasDerivative(inst) {
				continue
			}
			consumer(diag.LevelWarning, "", diag.Position{}, withInstruction(fmt.Sprintf(
				"derivative with non-uniform control flow located in block %s", b.ID), print(inst)))
			printDivergenceFlow(fn, du, state, consumer, print, blockPhase, b.ID)
		}
	}
}

// withInstruction appends an instruction's pretty-printed form to a
// diagnostic message, on its own indented line.
func withInstruction(message, inst string) string {
	return message + "\n  " + inst
}

type phase int

const (
	blockPhase phase = iota
	valuePhase
)

// printDivergenceFlow walks the witness chain rooted at id, alternating
// between block phase (id names a non-uniform block) and value phase
// (id names a non-uniform value), printing one line per phase entered,
// one explanatory line per phase transition and one per value-to-value
// hop, until it reaches a root cause. A well-formed witness graph is
// acyclic; visited tracks every block or value id the walk has already explained, so a
// malformed cyclic graph aborts the walk with a diagnostic instead of
// looping forever.
func printDivergenceFlow(fn *ir.Function, du *defuse.Index, state *divergence.State, consumer diag.Consumer, print func(*ir.Instruction) string, ph phase, id ir.ID) {
	visited := make(map[ir.ID]bool)
	if !markVisited(visited, id, consumer) {
		return
	}
	for {
		word := "block"
		if ph == valuePhase {
			word = "value"
		}
		consumer(diag.LevelWarning, "", diag.Position{}, fmt.Sprintf("%s %s is non-uniform", word, id))

		if ph == blockPhase {
			w, ok := state.BlockWitness(id)
			if !ok {
				return
			}
			for w.Kind == divergence.CauseIsBlock {
				id = w.Cause
				if !markVisited(visited, id, consumer) {
					return
				}
				w, ok = state.BlockWitness(id)
				if !ok {
					return
				}
			}
			branch := fn.Block(w.Block).Terminator()
			consumer(diag.LevelWarning, "", diag.Position{}, withInstruction(fmt.Sprintf(
				"because %s depends on conditional branch on non-uniform value %s", id, w.Cause), print(branch)))
			id = w.Cause
			if !markVisited(visited, id, consumer) {
				return
			}
			ph = valuePhase
			continue
		}

		w, ok := state.ValueWitness(id)
		if !ok {
			return
		}
		for !w.Root && w.Kind == divergence.CauseIsValue {
			def := du.GetDef(id)
			consumer(diag.LevelWarning, "", diag.Position{}, withInstruction(fmt.Sprintf(
				"because %s uses %s in its definition", id, w.Cause), print(def)))
			id = w.Cause
			if !markVisited(visited, id, consumer) {
				return
			}
			w, ok = state.ValueWitness(id)
			if !ok {
				return
			}
		}
		if w.Root {
			def := du.GetDef(id)
			consumer(diag.LevelWarning, "", diag.Position{}, withInstruction("because it has a non-uniform definition", print(def)))
			return
		}
		def := du.GetDef(id)
		consumer(diag.LevelWarning, "", diag.Position{}, withInstruction(fmt.Sprintf(
			"because it is conditionally set in block %s, which is non-uniform", w.Cause), print(def)))
		id = w.Cause
		if !markVisited(visited, id, consumer) {
			return
		}
		ph = blockPhase
	}
}

// markVisited records id as explained by the current witness walk,
// reporting an internal consistency error and returning false if id
// was already visited (a cycle in the witness graph, which a correct
// analysis never produces).
func markVisited(visited map[ir.ID]bool, id ir.ID, consumer diag.Consumer) bool {
	if visited[id] {
		consumer(diag.LevelError, "", diag.Position{}, fmt.Sprintf(
			"internal consistency error: witness chain revisits %s, aborting", id))
		return false
	}
	visited[id] = true
	return true
}
