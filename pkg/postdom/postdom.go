// Package postdom computes the post-dominator tree of a function's
// control-flow graph, the "PDT adapter" collaborator from the design's
// component C1. It runs the iterative, engineered dominators algorithm
// (Cooper, Harvey & Kennedy, "A Simple, Fast Dominance Algorithm") over
// the *reverse* graph, which turns dominance into post-dominance.
package postdom

import (
	"sort"

	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/ir"
)

// Node is one entry in the post-dominator tree's post-order traversal:
// the block itself plus its immediate children in the tree.
type Node struct {
	ID       ir.ID
	Children []ir.ID
}

// Tree is the post-dominator tree of a single function.
type Tree struct {
	root      ir.ID
	immPDom   map[ir.ID]ir.ID
	children  map[ir.ID][]ir.ID
	postOrder []ir.ID // post-order over the tree: children before parents
	rpoIndex  map[ir.ID]int
}

// Build computes the post-dominator tree for the function underlying
// cfg. The tree's root is cfg.ExitBlock().
func Build(cfg *cfgview.CFG) *Tree {
	root := cfg.ExitBlock()

	// Reverse post-order of the *reverse* CFG starting from the exit
	// (a depth-first walk over predecessors). This gives the traversal order the Cooper/Harvey/Kennedy algorithm
	// needs for fast convergence.
	order := reversePostOrderFromExit(cfg, root)
	rpoIndex := make(map[ir.ID]int, len(order))
	for i, id := range order {
		rpoIndex[id] = i
	}

	const undefined = -1
	idom := make(map[ir.ID]int, len(order))
	for _, id := range order {
		idom[id] = undefined
	}
	idom[root] = rpoIndex[root]

	changed := true
	for changed {
		changed = false
		for _, id := range order {
			if id == root {
				continue
			}
			var newIdom = undefined
			for _, pred := range successorsInReverseGraph(cfg, id) {
				if _, ok := rpoIndex[pred]; !ok || idom[pred] == undefined {
					continue
				}
				if newIdom == undefined {
					newIdom = rpoIndex[pred]
					continue
				}
				newIdom = intersect(order, idom, newIdom, rpoIndex[pred])
			}
			if newIdom != undefined && newIdom != idom[id] {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	t := &Tree{
		root:     root,
		immPDom:  make(map[ir.ID]ir.ID, len(order)),
		children: make(map[ir.ID][]ir.ID, len(order)),
		rpoIndex: rpoIndex,
	}
	for _, id := range order {
		if id == root {
			continue
		}
		if idom[id] == undefined {
			continue // unreachable towards the exit; no post-dominator
		}
		parent := order[idom[id]]
		t.immPDom[id] = parent
		t.children[parent] = append(t.children[parent], id)
	}
	for parent := range t.children {
		sort.Slice(t.children[parent], func(i, j int) bool {
			return t.children[parent][i] < t.children[parent][j]
		})
	}
	t.postOrder = computePostOrder(root, t.children)
	return t
}

// intersect walks the two dominator chains up until they meet,
// following Cooper/Harvey/Kennedy's "finger" algorithm: whichever
// index is larger (later in RPO) steps to its own immediate dominator.
func intersect(order []ir.ID, idom map[ir.ID]int, a, b int) int {
	for a != b {
		for a > b {
			a = idom[order[a]]
		}
		for b > a {
			b = idom[order[b]]
		}
	}
	return a
}

// reversePostOrderFromExit computes reverse post-order of the reverse
// CFG (successors become predecessors) starting from root, which is
// exactly the traversal order the forward dominance algorithm needs
// when computing *post*-dominance.
func reversePostOrderFromExit(cfg *cfgview.CFG, root ir.ID) []ir.ID {
	visited := make(map[ir.ID]bool)
	var order []ir.ID
	var visit func(ir.ID)
	visit = func(id ir.ID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, pred := range predecessorsTowardEntry(cfg, id) {
			visit(pred)
		}
		order = append(order, id)
	}
	visit(root)
	// order is post-order of the reverse graph; reverse it for RPO.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// predecessorsTowardEntry returns id's predecessors in the *forward*
// CFG, which are its successors when walking the reverse graph from
// the exit toward the entry.
func predecessorsTowardEntry(cfg *cfgview.CFG, id ir.ID) []ir.ID {
	return cfg.Preds(id)
}

// successorsInReverseGraph returns id's neighbors when treating the
// reverse CFG as the graph being dominated, i.e. id's successors in
// the forward CFG (the nodes that must all be post-dominated by id's
// post-dominator for the fixed point to hold).
func successorsInReverseGraph(cfg *cfgview.CFG, id ir.ID) []ir.ID {
	return cfg.Succs(id)
}

func computePostOrder(root ir.ID, children map[ir.ID][]ir.ID) []ir.ID {
	var order []ir.ID
	var visit func(ir.ID)
	visit = func(id ir.ID) {
		for _, c := range children[id] {
			visit(c)
		}
		order = append(order, id)
	}
	visit(root)
	return order
}

// PostOrder returns the tree nodes in post-order: every node appears
// after all of its children.
func (t *Tree) PostOrder() []Node {
	nodes := make([]Node, 0, len(t.postOrder))
	for _, id := range t.postOrder {
		nodes = append(nodes, Node{ID: id, Children: t.children[id]})
	}
	return nodes
}

// Root returns the tree's root (the function's unique exit node).
func (t *Tree) Root() ir.ID { return t.root }

// ImmediatePostDominator returns id's parent in the tree, or id itself
// if id is the root.
func (t *Tree) ImmediatePostDominator(id ir.ID) ir.ID {
	if id == t.root {
		return id
	}
	return t.immPDom[id]
}

// Children returns id's immediate children in the post-dominator tree,
// in ascending ID order.
func (t *Tree) Children(id ir.ID) []ir.ID {
	return t.children[id]
}

// StrictlyPostDominates reports whether a strictly post-dominates b,
// i.e. a != b and every path from b to the exit passes through a.
func (t *Tree) StrictlyPostDominates(a, b ir.ID) bool {
	if a == b || b == t.root {
		return false
	}
	cur, ok := t.immPDom[b]
	if !ok {
		// b never reaches the exit; it has no post-dominators.
		return false
	}
	for {
		if cur == a {
			return true
		}
		if cur == t.root {
			return false
		}
		next, ok := t.immPDom[cur]
		if !ok {
			return false
		}
		cur = next
	}
}
