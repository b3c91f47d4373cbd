// Package ir defines the data model for the stack-based SSA shader
// intermediate representation that the lint passes in pkg/controldep,
// pkg/divergence and pkg/derivcheck consume. It also provides a binary
// decoder (binary.go) and a friendly-name pretty printer (print.go),
// since nothing else in this module can supply them.
package ir

import "fmt"

// ID is an unsigned 32-bit label identifying either a basic block or an
// SSA value. Zero is reserved for the pseudo-entry block, a synthetic
// node used by pkg/controldep as the dependee of the function entry and
// of every block that post-dominates it.
type ID uint32

// PseudoEntryBlock is the synthetic control-dependence-graph node
// representing "the program executes at all". It is never a real
// basic block ID.
const PseudoEntryBlock ID = 0

func (id ID) String() string {
	return fmt.Sprintf("%%%d", uint32(id))
}

// StorageClass classifies the memory region a pointer type addresses.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = iota
	StorageClassInput
	StorageClassUniform
	StorageClassOutput
	StorageClassWorkgroup
	StorageClassCrossWorkgroup
	StorageClassPrivate
	StorageClassFunction
	StorageClassGeneric
	StorageClassPushConstant
	StorageClassAtomicCounter
	StorageClassImage
	StorageClassStorageBuffer
	StorageClassPhysicalStorageBuffer
)

func (s StorageClass) String() string {
	switch s {
	case StorageClassUniformConstant:
		return "UniformConstant"
	case StorageClassInput:
		return "Input"
	case StorageClassUniform:
		return "Uniform"
	case StorageClassOutput:
		return "Output"
	case StorageClassWorkgroup:
		return "Workgroup"
	case StorageClassCrossWorkgroup:
		return "CrossWorkgroup"
	case StorageClassPrivate:
		return "Private"
	case StorageClassFunction:
		return "Function"
	case StorageClassGeneric:
		return "Generic"
	case StorageClassPushConstant:
		return "PushConstant"
	case StorageClassAtomicCounter:
		return "AtomicCounter"
	case StorageClassImage:
		return "Image"
	case StorageClassStorageBuffer:
		return "StorageBuffer"
	case StorageClassPhysicalStorageBuffer:
		return "PhysicalStorageBuffer"
	default:
		return "Unknown"
	}
}

// Decoration is a single attribute attached to a result ID, e.g. Flat.
type Decoration struct {
	Kind      DecorationKind
	Operands  []uint32
	Target    ID
}

// DecorationKind enumerates the decoration kinds this lint pass cares
// about. Only Flat affects any analysis; the rest exist so a decoder
// can round-trip a module without dropping information silently.
type DecorationKind uint32

const (
	DecorationFlat DecorationKind = iota
	DecorationOther
)

// Type is a tagged variant over the type section. Only the pointer
// case matters to the analyses; everything else is opaque.
type Type struct {
	Kind         TypeKind
	PointeeClass StorageClass // valid iff Kind == TypeKindPointer
	Pointee      ID           // valid iff Kind == TypeKindPointer
}

type TypeKind int

const (
	TypeKindOther TypeKind = iota
	TypeKindPointer
)

// Instruction is one op in the instruction stream: an opcode, an
// optional result ID, an optional type ID, and an ordered operand list.
// Operands are split into InOperands (semantic inputs — the only ones
// the core analyses read) and the rest, which the decoder retains for
// pretty-printing but the core never inspects.
type Instruction struct {
	Opcode     Opcode
	ResultID   ID // 0 if this instruction has no result
	TypeID     ID // 0 if this instruction has no type
	InOperands []uint32

	// Block is set for instructions that live inside a function body;
	// nil for module-level type/constant/global instructions.
	Block *BasicBlock
}

// HasResult reports whether this instruction defines an SSA value.
func (i *Instruction) HasResult() bool { return i.ResultID != 0 }

// IsBlockTerminator reports whether this instruction ends a basic block.
func (i *Instruction) IsBlockTerminator() bool {
	switch i.Opcode {
	case OpBranch, OpBranchConditional, OpSwitch, OpReturn, OpReturnValue,
		OpKill, OpUnreachable:
		return true
	default:
		return false
	}
}

// InOperand returns the i-th in-operand, or 0 if out of range.
func (i *Instruction) InOperand(idx int) uint32 {
	if idx < 0 || idx >= len(i.InOperands) {
		return 0
	}
	return i.InOperands[idx]
}

// NumInOperands returns the number of in-operands.
func (i *Instruction) NumInOperands() int { return len(i.InOperands) }

// BasicBlock is a single-entry, single-exit sequence of instructions
// terminated by a branch. Blocks are never mutated by the core passes.
type BasicBlock struct {
	ID           ID
	Instructions []*Instruction
	Function     *Function
}

// Label returns the block's own ID, matching the "label instruction"
// terminology the divergence analysis uses when treating a block as a
// worklist entity in its own right.
func (b *BasicBlock) Label() ID { return b.ID }

// Terminator returns the last instruction in the block.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// Function is an ordered sequence of basic blocks with a distinguished
// entry block, plus its own parameter definitions.
type Function struct {
	Name       string
	ResultID   ID
	Blocks     []*BasicBlock
	Params     []*Instruction
	blockByID  map[ID]*BasicBlock
	Module     *Module
}

// Entry returns the function's entry block, i.e. the first block.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block looks up a basic block by ID within this function.
func (f *Function) Block(id ID) *BasicBlock {
	if f.blockByID == nil {
		f.indexBlocks()
	}
	return f.blockByID[id]
}

func (f *Function) indexBlocks() {
	f.blockByID = make(map[ID]*BasicBlock, len(f.Blocks))
	for _, b := range f.Blocks {
		f.blockByID[b.ID] = b
	}
}

// Module is the top-level container: module-scope type/constant/global
// instructions plus an ordered list of functions.
type Module struct {
	TypesAndConstants []*Instruction
	Functions         []*Function
	types             map[ID]*Type
	decorations       map[ID][]Decoration
	defs              map[ID]*Instruction
}

// Type returns the decoded type for a type ID, or nil if unknown.
func (m *Module) Type(id ID) *Type {
	return m.types[id]
}

// DecorationsFor returns the decorations attached to a result ID.
func (m *Module) DecorationsFor(id ID) []Decoration {
	return m.decorations[id]
}

// Def returns the instruction defining a result ID, module-wide.
func (m *Module) Def(id ID) *Instruction {
	return m.defs[id]
}

func (m *Module) index() {
	m.types = make(map[ID]*Type)
	m.decorations = make(map[ID][]Decoration)
	m.defs = make(map[ID]*Instruction)
	for _, inst := range m.TypesAndConstants {
		if inst.HasResult() {
			m.defs[inst.ResultID] = inst
		}
		if inst.Opcode == OpTypePointer {
			m.types[inst.ResultID] = &Type{
				Kind:         TypeKindPointer,
				PointeeClass: StorageClass(inst.InOperand(0)),
				Pointee:      ID(inst.InOperand(1)),
			}
		} else if inst.HasResult() {
			m.types[inst.ResultID] = &Type{Kind: TypeKindOther}
		}
		if inst.Opcode == OpDecorate {
			target := ID(inst.InOperand(0))
			kind := DecorationOther
			if DecorationKind(inst.InOperand(1)) == DecorationFlat {
				kind = DecorationFlat
			}
			m.decorations[target] = append(m.decorations[target], Decoration{
				Kind:     kind,
				Operands: append([]uint32(nil), inst.InOperands[2:]...),
				Target:   target,
			})
		}
	}
	for _, fn := range m.Functions {
		for _, p := range fn.Params {
			m.defs[p.ResultID] = p
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				if inst.HasResult() {
					m.defs[inst.ResultID] = inst
				}
			}
		}
	}
}
