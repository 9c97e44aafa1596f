// Package insntest provides a tiny synthetic instruction set for exercising
// the graph builders without a real decoder.
package insntest

import (
	"fmt"

	"disassemble/pkg/insn"
)

// Op is a synthetic opcode.
type Op int

const (
	OpAdd Op = iota
	OpMul
	OpCJmp
	OpJmp
	OpCall
	OpCallIndirect
	OpJmpIndirect
	OpRet
)

var opNames = [...]string{
	OpAdd:          "add",
	OpMul:          "mul",
	OpCJmp:         "cjmp",
	OpJmp:          "jmp",
	OpCall:         "call",
	OpCallIndirect: "call*",
	OpJmpIndirect:  "jmp*",
	OpRet:          "ret",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Inst is a synthetic instruction at Addr. Target is meaningful for
// CJmp, Jmp and Call.
type Inst struct {
	Addr   insn.Address
	Op     Op
	Target insn.Address
}

func (i Inst) Address() insn.Address { return i.Addr }

func (i Inst) IsCall() bool { return i.Op == OpCall || i.Op == OpCallIndirect }

func (i Inst) IsLocalJump() bool {
	return i.Op == OpCJmp || i.Op == OpJmp || i.Op == OpJmpIndirect
}

func (i Inst) IsLocalConditionalJump() bool { return i.Op == OpCJmp }

func (i Inst) IsReturn() bool { return i.Op == OpRet }

func (i Inst) TargetAddress() (insn.Address, bool) {
	switch i.Op {
	case OpCJmp, OpJmp, OpCall:
		return i.Target, true
	}
	return 0, false
}

func (i Inst) Mnemonic() string { return i.Op.String() }

func (i Inst) String() string {
	if _, ok := i.TargetAddress(); ok {
		return fmt.Sprintf("%s %s", i.Op, i.Target)
	}
	return i.Op.String()
}

// Add returns an add instruction at addr.
func Add(addr uint64) Inst { return Inst{Addr: insn.Address(addr), Op: OpAdd} }

// Mul returns a mul instruction at addr.
func Mul(addr uint64) Inst { return Inst{Addr: insn.Address(addr), Op: OpMul} }

// CJmp returns a conditional jump at addr to target.
func CJmp(addr, target uint64) Inst {
	return Inst{Addr: insn.Address(addr), Op: OpCJmp, Target: insn.Address(target)}
}

// Jmp returns an unconditional jump at addr to target.
func Jmp(addr, target uint64) Inst {
	return Inst{Addr: insn.Address(addr), Op: OpJmp, Target: insn.Address(target)}
}

// JmpIndirect returns a computed jump at addr.
func JmpIndirect(addr uint64) Inst { return Inst{Addr: insn.Address(addr), Op: OpJmpIndirect} }

// Call returns a direct call at addr to target.
func Call(addr, target uint64) Inst {
	return Inst{Addr: insn.Address(addr), Op: OpCall, Target: insn.Address(target)}
}

// CallIndirect returns a call through a register at addr.
func CallIndirect(addr uint64) Inst { return Inst{Addr: insn.Address(addr), Op: OpCallIndirect} }

// Ret returns a return at addr.
func Ret(addr uint64) Inst { return Inst{Addr: insn.Address(addr), Op: OpRet} }

// Program converts fixtures to the interface slice the builders consume.
func Program(insts ...Inst) []insn.Instruction {
	return insn.Erase(insts)
}
