// Package cfgview provides a read-only view over an ir.Function's
// control flow: predecessors, successors, reverse-post-order iteration,
// and a synthetic pseudo-exit block for functions with more than one
// return/kill/unreachable terminator. It plays the role of the "CFG
// adapter" external collaborator from the design (component C1):
// pkg/postdom and pkg/controldep consume it through the narrow
// interface described there and never touch ir.Function directly.
package cfgview

import "github.com/l3aro/divergence-lint/pkg/ir"

// PseudoExitBlock is a synthetic node representing "the function has
// returned", added, when a function has more than one such block, as
// the common successor of every block whose
// terminator has no successors (OpReturn, OpReturnValue, OpKill,
// OpUnreachable). It is distinct from ir.PseudoEntryBlock, which is a
// pkg/controldep-level concept, not a CFG-level one.
const PseudoExitBlock ir.ID = 0xFFFFFFFF

// CFG is a read-only control-flow view of a single function.
type CFG struct {
	fn       *ir.Function
	preds    map[ir.ID][]ir.ID
	succs    map[ir.ID][]ir.ID
	multiExit bool
}

// Build computes the predecessor/successor adjacency for fn. If fn has
// more than one exiting block, PseudoExitBlock is inserted as their
// common successor so post-dominance has a single root.
func Build(fn *ir.Function) *CFG {
	c := &CFG{
		fn:    fn,
		preds: make(map[ir.ID][]ir.ID),
		succs: make(map[ir.ID][]ir.ID),
	}
	var exits []ir.ID
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		targets := term.LabelOperands()
		switch term.Opcode {
		case ir.OpBranch, ir.OpBranchConditional, ir.OpSwitch:
			// targets already populated above.
		default:
			// OpReturn, OpReturnValue, OpKill, OpUnreachable: no
			// successors in the real CFG; they connect to the
			// pseudo-exit below.
			exits = append(exits, b.ID)
		}
		for _, t := range targets {
			c.succs[b.ID] = append(c.succs[b.ID], t)
			c.preds[t] = append(c.preds[t], b.ID)
		}
	}
	if len(exits) > 1 {
		c.multiExit = true
		for _, e := range exits {
			c.succs[e] = append(c.succs[e], PseudoExitBlock)
			c.preds[PseudoExitBlock] = append(c.preds[PseudoExitBlock], e)
		}
	} else if len(exits) == 1 {
		// A single exit block IS the post-dominance root; no
		// pseudo-exit needed.
	}
	return c
}

// ExitBlock returns the ID that plays the "root of the post-dominator
// tree" role: PseudoExitBlock if the function has multiple exits, or
// the sole exiting block's ID otherwise.
func (c *CFG) ExitBlock() ir.ID {
	if c.multiExit {
		return PseudoExitBlock
	}
	for _, b := range c.fn.Blocks {
		if term := b.Terminator(); term != nil {
			switch term.Opcode {
			case ir.OpReturn, ir.OpReturnValue, ir.OpKill, ir.OpUnreachable:
				return b.ID
			}
		}
	}
	// Unreachable for a well-formed function: every path terminates.
	return PseudoExitBlock
}

// IsPseudoExitBlock reports whether id is the synthetic exit node.
func (c *CFG) IsPseudoExitBlock(id ir.ID) bool {
	return c.multiExit && id == PseudoExitBlock
}

// Block returns the basic block for id, or nil for the pseudo-exit or
// an unknown ID.
func (c *CFG) Block(id ir.ID) *ir.BasicBlock {
	return c.fn.Block(id)
}

// Preds returns the predecessor block IDs of id, in the order they
// were discovered while scanning the function's blocks.
func (c *CFG) Preds(id ir.ID) []ir.ID { return c.preds[id] }

// Succs returns the successor block IDs of id, in the terminator's
// declared operand order.
func (c *CFG) Succs(id ir.ID) []ir.ID { return c.succs[id] }

// EntryBlock returns the function's entry block ID.
func (c *CFG) EntryBlock() ir.ID {
	if e := c.fn.Entry(); e != nil {
		return e.ID
	}
	return 0
}

// ForEachBlockInReversePostOrder visits every reachable block starting
// at entry, in reverse post-order (each block visited before any of
// its predecessors that are reachable only through it — the standard
// order for forward data-flow worklist seeding).
func (c *CFG) ForEachBlockInReversePostOrder(entry ir.ID, f func(ir.ID)) {
	visited := make(map[ir.ID]bool)
	var postOrder []ir.ID
	var visit func(ir.ID)
	visit = func(id ir.ID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, s := range c.succs[id] {
			if !c.IsPseudoExitBlock(s) {
				visit(s)
			}
		}
		postOrder = append(postOrder, id)
	}
	visit(entry)
	for i := len(postOrder) - 1; i >= 0; i-- {
		f(postOrder[i])
	}
}

// AllBlockIDs returns every real block ID in the function, in
// declaration order.
func (c *CFG) AllBlockIDs() []ir.ID {
	ids := make([]ir.ID, 0, len(c.fn.Blocks))
	for _, b := range c.fn.Blocks {
		ids = append(ids, b.ID)
	}
	return ids
}

// Function returns the underlying function.
func (c *CFG) Function() *ir.Function { return c.fn }
