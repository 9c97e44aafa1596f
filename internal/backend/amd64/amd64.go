// Package amd64 decodes x86-64 machine code with a linear sweep.
package amd64

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"disassemble/pkg/insn"
)

type class uint8

const (
	classNone class = iota
	classJump
	classCondJump
	classCall
	classRet
)

// Inst is one decoded x86-64 instruction.
type Inst struct {
	Addr   uint64
	Len    int
	Raw    []byte
	Op     string
	Text   string
	Target uint64 // static target of a direct call or jump
	Direct bool

	class class
}

// Options controls decoding.
type Options struct {
	BaseAddr uint64 // VA of the first byte of code
	MaxSteps int    // 0 = unlimited
}

// Disassemble decodes code sequentially. Undecodable bytes become one-byte
// "(bad)" instructions so addresses stay contiguous.
func Disassemble(code []byte, opts Options) []Inst {
	var result []Inst
	offset := 0
	for offset < len(code) {
		if opts.MaxSteps > 0 && len(result) >= opts.MaxSteps {
			break
		}
		addr := opts.BaseAddr + uint64(offset)

		// ENDBR64 (f3 0f 1e fa) and ENDBR32 (f3 0f 1e fb) are not known to
		// x86asm; they are plain fallthrough instructions.
		if offset+4 <= len(code) &&
			code[offset] == 0xf3 && code[offset+1] == 0x0f &&
			code[offset+2] == 0x1e && (code[offset+3] == 0xfa || code[offset+3] == 0xfb) {
			op := "endbr64"
			if code[offset+3] == 0xfb {
				op = "endbr32"
			}
			result = append(result, Inst{Addr: addr, Len: 4, Raw: code[offset : offset+4], Op: op, Text: op})
			offset += 4
			continue
		}

		dec, err := x86asm.Decode(code[offset:], 64)
		if err != nil {
			result = append(result, Inst{Addr: addr, Len: 1, Raw: code[offset : offset+1], Op: "(bad)", Text: fmt.Sprintf("(bad) 0x%02x", code[offset])})
			offset++
			continue
		}
		in := classify(dec, addr)
		in.Raw = code[offset : offset+dec.Len]
		result = append(result, in)
		offset += dec.Len
	}
	return result
}

// Instructions decodes code and returns it in the form the graph builders
// consume.
func Instructions(code []byte, opts Options) []insn.Instruction {
	return insn.Erase(Disassemble(code, opts))
}

func classify(dec x86asm.Inst, addr uint64) Inst {
	text := x86asm.IntelSyntax(dec, addr, nil)
	op, _, _ := strings.Cut(text, " ")
	in := Inst{Addr: addr, Len: dec.Len, Op: op, Text: text}

	switch dec.Op {
	case x86asm.CALL, x86asm.LCALL:
		in.class = classCall
	case x86asm.JMP, x86asm.LJMP:
		in.class = classJump
	case x86asm.RET, x86asm.LRET:
		in.class = classRet
		return in
	default:
		if !isCondJump(dec.Op) {
			return in
		}
		in.class = classCondJump
	}

	// Only pc-relative operands resolve statically. Register and memory
	// operands, RIP-relative GOT slots included, are indirect.
	if rel, ok := dec.Args[0].(x86asm.Rel); ok {
		in.Target = addr + uint64(dec.Len) + uint64(int64(rel))
		in.Direct = true
	}
	return in
}

func isCondJump(op x86asm.Op) bool {
	switch op {
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JE, x86asm.JNE,
		x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE,
		x86asm.JO, x86asm.JNO, x86asm.JP, x86asm.JNP, x86asm.JS, x86asm.JNS,
		x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	}
	return false
}

func (i Inst) Address() insn.Address { return insn.Address(i.Addr) }

func (i Inst) IsCall() bool { return i.class == classCall }

func (i Inst) IsLocalJump() bool { return i.class == classJump || i.class == classCondJump }

func (i Inst) IsLocalConditionalJump() bool { return i.class == classCondJump }

func (i Inst) IsReturn() bool { return i.class == classRet }

// Bytes returns the encoding of i.
func (i Inst) Bytes() []byte { return i.Raw }

func (i Inst) TargetAddress() (insn.Address, bool) {
	if !i.Direct {
		return 0, false
	}
	return insn.Address(i.Target), true
}

func (i Inst) Mnemonic() string { return i.Op }

func (i Inst) String() string { return i.Text }
