// Package divergence computes, for a single function, which basic
// blocks execute under non-uniform control flow and which SSA values
// hold non-uniform results across an invocation group. It is a forward
// data-flow analysis over a two-point lattice (uniform, non-uniform)
// seeded from divergent loads and function parameters, and propagated
// along both the def-use chain (a value computed from a non-uniform
// value is itself non-uniform) and the control dependence graph (a
// block control dependent on a non-uniform branch executes
// non-uniformly).
//
// Every non-uniform block or value is given a Witness recording what
// made it non-uniform, so pkg/derivcheck can explain a finding instead
// of just reporting it.
package divergence

import (
	"container/list"

	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/defuse"
	"github.com/l3aro/divergence-lint/pkg/ir"
)

// WitnessKind names what a Witness's Cause field refers to.
type WitnessKind int

const (
	CauseIsBlock WitnessKind = iota
	CauseIsValue
)

// Witness explains why one block or value in a State is non-uniform.
// A Witness with Root set is a base case: a load from non-uniform
// storage, or a function parameter. Otherwise it names the block or
// value the entry's non-uniformity was inherited from, and callers
// walk State to keep explaining that cause in turn.
type Witness struct {
	Root  bool
	Kind  WitnessKind
	Cause ir.ID
	// Block additionally names the block whose branch or switch tests
	// Cause, when Kind == CauseIsValue and this Witness explains a
	// BLOCK's divergence (as opposed to a value's).
	Block ir.ID
}

// State is the fixed point of the divergence analysis for one
// function.
type State struct {
	blocks map[ir.ID]Witness
	values map[ir.ID]Witness
}

// IsBlockDivergent reports whether block executes under non-uniform
// control flow.
func (s *State) IsBlockDivergent(block ir.ID) bool {
	_, ok := s.blocks[block]
	return ok
}

// IsValueDivergent reports whether value holds a non-uniform result.
func (s *State) IsValueDivergent(value ir.ID) bool {
	_, ok := s.values[value]
	return ok
}

// BlockWitness returns why block is non-uniform, if it is.
func (s *State) BlockWitness(block ir.ID) (Witness, bool) {
	w, ok := s.blocks[block]
	return w, ok
}

// ValueWitness returns why value is non-uniform, if it is.
func (s *State) ValueWitness(value ir.ID) (Witness, bool) {
	w, ok := s.values[value]
	return w, ok
}

// Options tunes analysis decisions the underlying tool left as open
// questions rather than fixed semantics.
type Options struct {
	// ImageLoadsDivergent treats a load through the Image storage class
	// as non-uniform. Off by default: image handles are typically
	// uniform resource bindings, not per-invocation values, so treating
	// them as uniform is the conservative choice against false
	// positives. A target whose Image bindings really do vary per
	// invocation can opt back in.
	ImageLoadsDivergent bool
}

// IsSourceOfDivergence reports whether inst's result is non-uniform on
// account of what inst IS, independent of its operands: a function
// parameter (assumed to vary per invocation absent further analysis),
// or a load through a storage class the invocation group does not see
// identically.
func IsSourceOfDivergence(mod *ir.Module, du *defuse.Index, inst *ir.Instruction, opts Options) bool {
	switch inst.Opcode {
	case ir.OpFunctionParameter:
		return true
	case ir.OpLoad:
		return isDivergentLoad(mod, du, inst, opts)
	default:
		return false
	}
}

// isDivergentLoad classifies a load by the storage class of the
// pointer it reads through. Function, Generic, AtomicCounter,
// StorageBuffer, PhysicalStorageBuffer and Output are always
// non-uniform: nothing enforces that every invocation observes the
// same value. Input is non-uniform unless the load's result carries
// a Flat decoration, which tells the rasterizer to interpolate it
// identically for every invocation in the group. Image is uniform
// unless opts.ImageLoadsDivergent says otherwise. Everything else
// (UniformConstant, Uniform, Workgroup, CrossWorkgroup, Private,
// PushConstant) is broadcast identically and stays uniform.
func isDivergentLoad(mod *ir.Module, du *defuse.Index, load *ir.Instruction, opts Options) bool {
	pointer := du.GetDef(ir.ID(load.InOperand(0)))
	if pointer == nil {
		return false
	}
	ptrType := mod.Type(pointer.TypeID)
	if ptrType == nil || ptrType.Kind != ir.TypeKindPointer {
		return false
	}
	switch ptrType.PointeeClass {
	case ir.StorageClassFunction, ir.StorageClassGeneric, ir.StorageClassAtomicCounter,
		ir.StorageClassStorageBuffer, ir.StorageClassPhysicalStorageBuffer, ir.StorageClassOutput:
		return true
	case ir.StorageClassInput:
		return !isFlat(mod, load.ResultID)
	case ir.StorageClassImage:
		return opts.ImageLoadsDivergent
	default:
		return false
	}
}

func isFlat(mod *ir.Module, id ir.ID) bool {
	for _, dec := range mod.DecorationsFor(id) {
		if dec.Kind == ir.DecorationFlat {
			return true
		}
	}
	return false
}

// workKind distinguishes the two kinds of worklist entry: a block,
// visited to decide whether it executes non-uniformly, and an
// instruction, visited to decide whether its result is non-uniform.
type workKind int

const (
	workBlock workKind = iota
	workInstruction
)

// workItem is a worklist entry. It is comparable so it can key the
// on-worklist set directly, mirroring the analysis's own instruction
// pointers and block IDs rather than boxing them.
type workItem struct {
	kind  workKind
	block ir.ID
	inst  *ir.Instruction
}

type analysis struct {
	state *State
	cfg   *cfgview.CFG
	cdg   *controldep.Graph
	du    *defuse.Index
	mod   *ir.Module
	opts  Options

	worklist *list.List
	queued   map[workItem]bool
}

// Run computes the divergence fixed point for fn. cfg, cdg and du must
// all have been built from fn (or fn's enclosing module, for du).
func Run(mod *ir.Module, fn *ir.Function, cfg *cfgview.CFG, cdg *controldep.Graph, du *defuse.Index, opts Options) *State {
	a := &analysis{
		state:    &State{blocks: make(map[ir.ID]Witness), values: make(map[ir.ID]Witness)},
		cfg:      cfg,
		cdg:      cdg,
		du:       du,
		mod:      mod,
		opts:     opts,
		worklist: list.New(),
		queued:   make(map[workItem]bool),
	}
	a.initializeWorklist(fn)
	for a.worklist.Len() > 0 {
		front := a.worklist.Front()
		a.worklist.Remove(front)
		item := front.Value.(workItem)
		a.queued[item] = false
		if a.visit(item) {
			a.enqueueSuccessors(item)
		}
	}
	return a.state
}

// initializeWorklist seeds every instruction that could possibly be a
// starting point for the analysis: module-scope types and constants
// (never divergent, but visiting them is cheap and uniform), every
// function parameter, and every instruction in the function body in
// reverse post order, so a block's instructions are queued before the
// blocks that are control dependent on it.
func (a *analysis) initializeWorklist(fn *ir.Function) {
	for _, inst := range a.mod.TypesAndConstants {
		a.enqueue(workItem{kind: workInstruction, inst: inst})
	}
	for _, p := range fn.Params {
		a.enqueue(workItem{kind: workInstruction, inst: p})
	}
	entry := fn.Entry()
	if entry == nil {
		return
	}
	a.cfg.ForEachBlockInReversePostOrder(entry.ID, func(id ir.ID) {
		b := fn.Block(id)
		if b == nil {
			return
		}
		for _, inst := range b.Instructions {
			a.enqueue(workItem{kind: workInstruction, inst: inst})
		}
	})
}

func (a *analysis) enqueue(item workItem) bool {
	if a.queued[item] {
		return false
	}
	a.queued[item] = true
	a.worklist.PushBack(item)
	return true
}

// enqueueSuccessors re-queues everything whose classification might
// change as a result of item having just changed: for an instruction,
// every def-use user, plus (if it is a block terminator) every block
// control dependent on the terminator's own block; for a block, every
// block control dependent on it, since a block's own divergence (as
// opposed to its terminator's condition value) is itself a cause other
// blocks' visitBlock checks against.
func (a *analysis) enqueueSuccessors(item workItem) {
	if item.kind == workBlock {
		for _, dep := range a.cdg.GetDependents(item.block) {
			a.enqueue(workItem{kind: workBlock, block: dep.Target})
		}
		return
	}
	inst := item.inst
	a.du.ForEachUser(inst, func(user *ir.Instruction) {
		a.enqueue(workItem{kind: workInstruction, inst: user})
	})
	if !inst.IsBlockTerminator() || inst.Block == nil {
		return
	}
	for _, dep := range a.cdg.GetDependents(inst.Block.ID) {
		a.enqueue(workItem{kind: workBlock, block: dep.Target})
	}
}

func (a *analysis) visit(item workItem) bool {
	if item.kind == workBlock {
		return a.visitBlock(item.block)
	}
	return a.visitInstruction(item.inst)
}

// visitBlock decides whether block executes under non-uniform control
// flow: it does if it is control dependent on a block that is itself
// already known to be non-uniform, or on a conditional branch or
// switch whose tested value is already known to be non-uniform. Entry
// dependences (on the pseudo-entry block) never make a block
// non-uniform on their own — every block depends on the program simply
// running, and that alone explains nothing.
func (a *analysis) visitBlock(id ir.ID) bool {
	if a.state.IsBlockDivergent(id) {
		return false
	}
	for _, dep := range a.cdg.GetDependees(id) {
		if a.state.IsBlockDivergent(dep.Source) {
			a.state.blocks[id] = Witness{Kind: CauseIsBlock, Cause: dep.Source}
			return true
		}
		if dep.Kind != controldep.Entry && a.state.IsValueDivergent(dep.DependentValueLabel) {
			a.state.blocks[id] = Witness{Kind: CauseIsValue, Cause: dep.DependentValueLabel, Block: dep.Source}
			return true
		}
	}
	return false
}

// visitInstruction decides whether inst's result is non-uniform.
// Terminators are never given a witness of their own — a branch has no
// result — but are reported as "changed" every time they are
// visited, which is what drives the initial control-dependence
// propagation in enqueueSuccessors.
func (a *analysis) visitInstruction(inst *ir.Instruction) bool {
	if inst.IsBlockTerminator() {
		return true
	}
	if !inst.HasResult() {
		return false
	}
	id := inst.ResultID
	if a.state.IsValueDivergent(id) {
		return false
	}
	if IsSourceOfDivergence(a.mod, a.du, inst, a.opts) {
		a.state.values[id] = Witness{Root: true}
		return true
	}
	if ir.IsNeverDivergent(inst) {
		return false
	}
	for _, operand := range inst.ValueOperands() {
		if a.state.IsValueDivergent(operand) {
			a.state.values[id] = Witness{Kind: CauseIsValue, Cause: operand}
			return true
		}
		if a.state.IsBlockDivergent(operand) {
			a.state.values[id] = Witness{Kind: CauseIsBlock, Cause: operand}
			return true
		}
	}
	return false
}
