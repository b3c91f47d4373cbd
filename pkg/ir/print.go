package ir

import (
	"fmt"
	"strings"
)

// PrettyPrint renders an instruction with result and type IDs printed
// as "%N", the opcode as its mnemonic, and operands space-separated.
// See PrettyPrintFriendly for the friendly-name variant.
func PrettyPrint(inst *Instruction) string {
	var b strings.Builder
	if inst.HasResult() {
		fmt.Fprintf(&b, "%s = ", inst.ResultID)
	}
	b.WriteString(inst.Opcode.String())
	if inst.TypeID != 0 {
		fmt.Fprintf(&b, " %s", inst.TypeID)
	}
	for _, op := range inst.InOperands {
		fmt.Fprintf(&b, " %d", op)
	}
	return b.String()
}

// FriendlyName returns a human-readable name for id when it names one
// of the type instructions this tool models, matching the underlying
// disassembler's own friendly-name convention ("%void", "%bool",
// "%uint32", "%_ptr_Input_bool"). Anything else — a value, a type this
// tool treats opaquely, or an unknown ID — renders as the plain "%N"
// numeric form.
func FriendlyName(mod *Module, id ID) string {
	def := mod.Def(id)
	if def == nil {
		return id.String()
	}
	switch def.Opcode {
	case OpTypeVoid:
		return "%void"
	case OpTypeBool:
		return "%bool"
	case OpTypeInt:
		width, signed := def.InOperand(0), def.InOperand(1)
		if signed != 0 {
			return fmt.Sprintf("%%int%d", width)
		}
		return fmt.Sprintf("%%uint%d", width)
	case OpTypeFunction:
		return "%fn"
	case OpTypePointer:
		class := StorageClass(def.InOperand(0))
		pointee := ID(def.InOperand(1))
		return fmt.Sprintf("%%_ptr_%s_%s", class, strings.TrimPrefix(FriendlyName(mod, pointee), "%"))
	default:
		return id.String()
	}
}

// PrettyPrintFriendly renders inst the way PrettyPrint does, but
// substitutes FriendlyName for the instruction's type ID, matching the
// underlying disassembler's friendly-names text mode.
func PrettyPrintFriendly(mod *Module, inst *Instruction) string {
	var b strings.Builder
	if inst.HasResult() {
		fmt.Fprintf(&b, "%s = ", inst.ResultID)
	}
	b.WriteString(inst.Opcode.String())
	if inst.TypeID != 0 {
		fmt.Fprintf(&b, " %s", FriendlyName(mod, inst.TypeID))
	}
	for _, op := range inst.InOperands {
		fmt.Fprintf(&b, " %d", op)
	}
	return b.String()
}
