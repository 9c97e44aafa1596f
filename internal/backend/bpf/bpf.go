// Package bpf decodes eBPF bytecode. Instruction addresses are slot
// indices, the unit eBPF jump offsets are expressed in.
package bpf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cilium/ebpf/asm"
	"tlog.app/go/errors"

	"disassemble/pkg/insn"
)

// SlotSize is the width of one instruction slot.
const SlotSize = 8

var ErrTruncated = errors.New("bpf: truncated instruction")

// Inst is one eBPF instruction at its slot. Wide loads (lddw) occupy two
// slots.
type Inst struct {
	Slot uint64
	Ins  asm.Instruction
	Raw  []byte
}

// Disassemble decodes little-endian code.
func Disassemble(code []byte) ([]Inst, error) {
	if len(code)%SlotSize != 0 {
		return nil, errors.Wrap(ErrTruncated, "%d trailing bytes", len(code)%SlotSize)
	}

	var decoded asm.Instructions
	if err := decoded.Unmarshal(bytes.NewReader(code), binary.LittleEndian); err != nil {
		return nil, errors.Wrap(ErrTruncated, "%v", err)
	}

	result := make([]Inst, 0, len(decoded))
	var slot uint64
	for _, ins := range decoded {
		size := ins.Size()
		result = append(result, Inst{
			Slot: slot,
			Ins:  ins,
			Raw:  code[slot*SlotSize : slot*SlotSize+size],
		})
		slot += size / SlotSize
	}
	return result, nil
}

// Instructions decodes code and returns it in the form the graph builders
// consume.
func Instructions(code []byte) ([]insn.Instruction, error) {
	insts, err := Disassemble(code)
	if err != nil {
		return nil, err
	}
	return insn.Erase(insts), nil
}

func (i Inst) class() asm.Class { return i.Ins.OpCode.Class() }

func (i Inst) jumpOp() asm.JumpOp { return i.Ins.OpCode.JumpOp() }

// opcode is the encoded opcode byte.
func (i Inst) opcode() uint8 { return uint8(i.Ins.OpCode) }

func (i Inst) regSource() bool { return i.opcode()&0x08 != 0 }

// Wide reports whether i is a two-slot 64-bit immediate load.
func (i Inst) Wide() bool { return i.Ins.OpCode.IsDWordLoad() }

func (i Inst) Address() insn.Address { return insn.Address(i.Slot) }

func (i Inst) IsCall() bool { return i.class() == asm.JumpClass && i.jumpOp() == asm.Call }

func (i Inst) IsLocalJump() bool {
	if !i.class().IsJump() {
		return false
	}
	op := i.jumpOp()
	return op != asm.Call && op != asm.Exit
}

func (i Inst) IsLocalConditionalJump() bool { return i.IsLocalJump() && i.jumpOp() != asm.Ja }

func (i Inst) IsReturn() bool { return i.class() == asm.JumpClass && i.jumpOp() == asm.Exit }

// TargetAddress resolves jumps and bpf-to-bpf calls relative to the next
// slot. Helper calls, kfunc calls and callx have no local target.
func (i Inst) TargetAddress() (insn.Address, bool) {
	next := int64(i.Slot) + 1
	switch {
	case i.IsLocalJump():
		off := int64(i.Ins.Offset)
		if i.class() == asm.Jump32Class && i.jumpOp() == asm.Ja {
			off = i.Ins.Constant // gotol
		}
		return insn.Address(next + off), true
	case i.Ins.IsFunctionCall():
		return insn.Address(next + i.Ins.Constant), true
	}
	return 0, false
}

// Bytes returns the encoding of i, both slots for wide loads.
func (i Inst) Bytes() []byte { return i.Raw }

var (
	aluNames = [16]string{"add", "sub", "mul", "div", "or", "and", "lsh", "rsh", "neg", "mod", "xor", "mov", "arsh", "end", "", ""}
	jmpNames = [16]string{"ja", "jeq", "jgt", "jge", "jset", "jne", "jsgt", "jsge", "call", "exit", "jlt", "jle", "jslt", "jsle", "", ""}
	sizeName = map[uint8]string{0x00: "w", 0x08: "h", 0x10: "b", 0x18: "dw"}
)

func (i Inst) Mnemonic() string {
	op := i.opcode()
	size := sizeName[op&0x18]
	switch c := i.class(); c {
	case asm.ALUClass, asm.ALU64Class:
		name := aluNames[op>>4]
		if c == asm.ALUClass {
			name += "32"
		}
		return name
	case asm.JumpClass, asm.Jump32Class:
		if i.IsCall() && i.regSource() {
			return "callx"
		}
		name := jmpNames[op>>4]
		if c == asm.Jump32Class && i.jumpOp() != asm.Ja {
			name += "32"
		}
		return name
	case asm.LdClass:
		if i.Wide() {
			return "lddw"
		}
		return "ld" + size
	case asm.LdXClass:
		return "ldx" + size
	case asm.StClass:
		return "st" + size
	}
	if op&0xe0 == 0xc0 {
		return "atomic" + size
	}
	return "stx" + size
}

func (i Inst) String() string {
	m := i.Mnemonic()
	dst, src, off, imm := uint8(i.Ins.Dst), uint8(i.Ins.Src), i.Ins.Offset, i.Ins.Constant
	operand := func() string {
		if i.regSource() {
			return fmt.Sprintf("r%d", src)
		}
		return fmt.Sprintf("%d", imm)
	}
	switch i.class() {
	case asm.ALUClass, asm.ALU64Class:
		if i.opcode()&0xf0 == 0x80 {
			return fmt.Sprintf("%s r%d", m, dst)
		}
		return fmt.Sprintf("%s r%d, %s", m, dst, operand())
	case asm.JumpClass, asm.Jump32Class:
		switch {
		case i.IsReturn():
			return m
		case i.Ins.IsFunctionCall():
			t, _ := i.TargetAddress()
			return fmt.Sprintf("%s %+d <%d>", m, imm, uint64(t))
		case i.Ins.IsBuiltinCall():
			return fmt.Sprintf("%s %d", m, imm)
		case i.IsCall() && i.regSource():
			return fmt.Sprintf("%s r%d", m, dst)
		case i.IsCall():
			return fmt.Sprintf("%s kfunc %d", m, imm)
		case i.jumpOp() == asm.Ja:
			t, _ := i.TargetAddress()
			return fmt.Sprintf("%s %+d <%d>", m, int64(t)-int64(i.Slot)-1, uint64(t))
		}
		return fmt.Sprintf("%s r%d, %s, %+d", m, dst, operand(), off)
	case asm.LdClass:
		if i.Wide() {
			return fmt.Sprintf("%s r%d, 0x%x", m, dst, uint64(imm))
		}
		return fmt.Sprintf("%s %d", m, imm)
	case asm.LdXClass:
		return fmt.Sprintf("%s r%d, [r%d%+d]", m, dst, src, off)
	case asm.StClass:
		return fmt.Sprintf("%s [r%d%+d], %d", m, dst, off, imm)
	}
	return fmt.Sprintf("%s [r%d%+d], r%d", m, dst, off, src)
}
