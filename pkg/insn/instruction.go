package insn

// Instruction is an assembly instruction, bytecode operation or VM
// operation, as seen by the graph builders. Each backend keeps its own
// representation and exposes it only through this interface.
//
// Within one function the Address of every instruction must be unique, and
// instructions are supplied in layout order.
type Instruction interface {
	Address() Address

	// IsCall reports whether the instruction transfers control to another
	// function and expects control to come back.
	IsCall() bool

	// IsLocalJump reports whether the instruction is a conditional or
	// unconditional jump within the current function.
	IsLocalJump() bool

	// IsLocalConditionalJump reports whether the instruction is a local jump
	// that may also fall through. It implies IsLocalJump.
	IsLocalConditionalJump() bool

	// IsReturn reports whether the instruction returns from the function.
	IsReturn() bool

	// TargetAddress returns the statically known target of a call or local
	// jump. ok is false for indirect transfers and for every other
	// instruction.
	TargetAddress() (target Address, ok bool)
}

// Describer is implemented by instructions that can render themselves.
type Describer interface {
	Mnemonic() string
	String() string
}

// Encoder is implemented by instructions that keep their machine encoding.
type Encoder interface {
	Bytes() []byte
}

// IsBlockTerminator reports whether control may diverge after i, forcing a
// new basic block to start at the following instruction.
func IsBlockTerminator(i Instruction) bool {
	return i.IsCall() || i.IsLocalJump() || i.IsReturn()
}

// Text returns the textual form of i, or its mnemonic-less address when the
// backend does not implement Describer.
func Text(i Instruction) string {
	if d, ok := i.(Describer); ok {
		return d.String()
	}
	return i.Address().String()
}

// Mnemonic returns the mnemonic of i, or "" when unknown.
func Mnemonic(i Instruction) string {
	if d, ok := i.(Describer); ok {
		return d.Mnemonic()
	}
	return ""
}

// Erase converts a typed instruction slice to the interface form stored by
// the graph builders.
func Erase[I Instruction](insts []I) []Instruction {
	out := make([]Instruction, len(insts))
	for i, in := range insts {
		out[i] = in
	}
	return out
}
