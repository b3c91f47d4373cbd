// Package defuse indexes an ir.Module's definitions and uses. It plays
// the role of the "def-use adapter" external collaborator (component
// C2): pkg/divergence never walks Instruction.InOperands directly to
// find a value's users, it goes through Index.
package defuse

import "github.com/l3aro/divergence-lint/pkg/ir"

// Index is a module-wide def-use index. It is built once per Module and
// reused for every function within it.
type Index struct {
	mod  *ir.Module
	uses map[ir.ID][]*ir.Instruction
}

// Build walks every instruction in mod (module scope and every
// function body) and records, for each operand that names a result ID,
// the instruction in which it is used.
func Build(mod *ir.Module) *Index {
	idx := &Index{mod: mod, uses: make(map[ir.ID][]*ir.Instruction)}
	for _, inst := range mod.TypesAndConstants {
		idx.recordUses(inst)
	}
	for _, fn := range mod.Functions {
		for _, p := range fn.Params {
			idx.recordUses(p)
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				idx.recordUses(inst)
			}
		}
	}
	return idx
}

// recordUses records inst's type operand and every in-operand that
// ir.Instruction.ValueOperands identifies as a genuine reference to
// another instruction's result ID. Literal operands (storage classes,
// decoration kinds, constant values) and block-label operands are
// deliberately excluded: treating them as IDs would let a small
// literal collide with an unrelated real result ID of the same value.
func (idx *Index) recordUses(inst *ir.Instruction) {
	if inst.TypeID != 0 {
		idx.uses[inst.TypeID] = append(idx.uses[inst.TypeID], inst)
	}
	for _, id := range inst.ValueOperands() {
		idx.uses[id] = append(idx.uses[id], inst)
	}
}

// GetDef returns the instruction that defines id, or nil if id is not
// the result of any instruction in the module (e.g. it is a block
// label or an unused ID).
func (idx *Index) GetDef(id ir.ID) *ir.Instruction {
	return idx.mod.Def(id)
}

// ForEachUser calls f once for every instruction that reads inst's
// result, in the order those uses were discovered while indexing. If
// inst has no result, or nothing uses it, f is never called.
func (idx *Index) ForEachUser(inst *ir.Instruction, f func(*ir.Instruction)) {
	if !inst.HasResult() {
		return
	}
	seen := make(map[*ir.Instruction]bool)
	for _, user := range idx.uses[inst.ResultID] {
		if seen[user] {
			continue
		}
		seen[user] = true
		f(user)
	}
}
