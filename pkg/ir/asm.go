package ir

// Builder assembles a binary word stream instruction by instruction.
// It exists so tests can construct literal fixtures the way
// spirv-tools' own control-dependence and linter tests build them from
// textual assembly, without needing a text-format assembler in this
// module: each Builder method appends one instruction's words directly.
type Builder struct {
	words []uint32
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) emit(op Opcode, typeID, resultID ID, operands ...uint32) *Builder {
	hasType, hasResult := operandArity(op)
	var payload []uint32
	if hasType {
		payload = append(payload, uint32(typeID))
	}
	if hasResult {
		payload = append(payload, uint32(resultID))
	}
	payload = append(payload, operands...)
	length := uint32(1 + len(payload))
	b.words = append(b.words, (length<<16)|uint32(op))
	b.words = append(b.words, payload...)
	return b
}

func (b *Builder) TypeVoid(result ID) *Builder     { return b.emit(OpTypeVoid, 0, result) }
func (b *Builder) TypeBool(result ID) *Builder     { return b.emit(OpTypeBool, 0, result) }
func (b *Builder) TypeInt(result ID, width, signed uint32) *Builder {
	return b.emit(OpTypeInt, 0, result, width, signed)
}
func (b *Builder) TypeFunction(result, retType ID) *Builder {
	return b.emit(OpTypeFunction, 0, result, uint32(retType))
}
func (b *Builder) TypePointer(result ID, class StorageClass, pointee ID) *Builder {
	return b.emit(OpTypePointer, 0, result, uint32(class), uint32(pointee))
}

func (b *Builder) ConstantTrue(result, typeID ID) *Builder {
	return b.emit(OpConstantTrue, typeID, result)
}
func (b *Builder) ConstantFalse(result, typeID ID) *Builder {
	return b.emit(OpConstantFalse, typeID, result)
}
func (b *Builder) Constant(result, typeID ID, value uint32) *Builder {
	return b.emit(OpConstant, typeID, result, value)
}

func (b *Builder) Decorate(target ID, kind DecorationKind, extra ...uint32) *Builder {
	ops := append([]uint32{uint32(target), uint32(kind)}, extra...)
	return b.emit(OpDecorate, 0, 0, ops...)
}

func (b *Builder) Variable(result, typeID ID, class StorageClass) *Builder {
	return b.emit(OpVariable, typeID, result, uint32(class))
}
func (b *Builder) Load(result, typeID, pointer ID) *Builder {
	return b.emit(OpLoad, typeID, result, uint32(pointer))
}

func (b *Builder) Function(result, typeID ID) *Builder {
	return b.emit(OpFunction, typeID, result)
}
func (b *Builder) FunctionParameter(result, typeID ID) *Builder {
	return b.emit(OpFunctionParameter, typeID, result)
}
func (b *Builder) FunctionEnd() *Builder { return b.emit(OpFunctionEnd, 0, 0) }

func (b *Builder) Label(id ID) *Builder { return b.emit(OpLabel, 0, id) }
func (b *Builder) Branch(target ID) *Builder {
	return b.emit(OpBranch, 0, 0, uint32(target))
}
func (b *Builder) BranchConditional(cond, trueLabel, falseLabel ID) *Builder {
	return b.emit(OpBranchConditional, 0, 0, uint32(cond), uint32(trueLabel), uint32(falseLabel))
}

// SwitchCase is one (value, label) pair of an OpSwitch.
type SwitchCase struct {
	Value uint32
	Label ID
}

func (b *Builder) Switch(selector, defaultLabel ID, cases ...SwitchCase) *Builder {
	ops := []uint32{uint32(selector), uint32(defaultLabel)}
	for _, c := range cases {
		ops = append(ops, c.Value, uint32(c.Label))
	}
	return b.emit(OpSwitch, 0, 0, ops...)
}

func (b *Builder) Return() *Builder      { return b.emit(OpReturn, 0, 0) }
func (b *Builder) Kill() *Builder        { return b.emit(OpKill, 0, 0) }
func (b *Builder) Unreachable() *Builder { return b.emit(OpUnreachable, 0, 0) }

// Derivative emits one of the derivative-family opcodes.
func (b *Builder) Derivative(op Opcode, result, typeID, operand ID) *Builder {
	return b.emit(op, typeID, result, uint32(operand))
}

func (b *Builder) SubgroupBallot(result, typeID, operand ID) *Builder {
	return b.emit(OpSubgroupBallot, typeID, result, uint32(operand))
}

// Words returns the complete binary stream: header followed by the
// instructions emitted so far.
func (b *Builder) Words() []uint32 {
	header := []uint32{Magic, CurrentVersion, 0, 0, 0}
	return append(header, b.words...)
}
