// Package arm64 decodes AArch64 machine code into instructions the graph
// builders understand.
package arm64

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"disassemble/pkg/insn"
)

// Inst is a decoded ARM64 instruction with address and raw bytes.
type Inst struct {
	Addr     uint64
	Raw      uint32
	Op       string
	Operands string
	Text     string // full disassembly line
	Branch   *BranchInfo
}

// Size is the fixed instruction width.
const Size = 4

// Options controls disassembly behavior.
type Options struct {
	BaseAddr uint64 // VA of the first byte in Data
	MaxSteps int    // maximum instructions to decode; 0 = 10M
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Disassemble decodes ARM64 instructions from a byte region.
// Returns decoded instructions up to MaxSteps or end of data.
func Disassemble(data []byte, opts Options) []Inst {
	n := min(len(data)/Size, opts.effectiveMax())

	result := make([]Inst, 0, n)
	for i := 0; i < n; i++ {
		off := i * Size
		addr := opts.BaseAddr + uint64(off)
		result = append(result, decodeOne(data[off:off+Size], addr))
	}
	return result
}

func decodeOne(b []byte, addr uint64) Inst {
	raw := binary.LittleEndian.Uint32(b)
	in := Inst{Addr: addr, Raw: raw, Branch: DecodeBranch(raw, addr)}

	dec, err := arm64asm.Decode(b)
	if err != nil {
		in.Op = ".word"
		in.Operands = fmt.Sprintf("0x%08x", raw)
		in.Text = ".word " + in.Operands
		return in
	}
	in.Text = dec.String()
	in.Op, in.Operands, _ = strings.Cut(in.Text, " ")
	return in
}

// Instructions decodes data and returns it in the form the graph builders
// consume.
func Instructions(data []byte, opts Options) []insn.Instruction {
	return insn.Erase(Disassemble(data, opts))
}

func (i Inst) Address() insn.Address { return insn.Address(i.Addr) }

func (i Inst) IsCall() bool { return i.Branch != nil && i.Branch.Kind == KindCall }

func (i Inst) IsLocalJump() bool { return i.Branch != nil && i.Branch.Kind == KindJump }

func (i Inst) IsLocalConditionalJump() bool { return i.IsLocalJump() && i.Branch.Cond }

func (i Inst) IsReturn() bool { return i.Branch != nil && i.Branch.Kind == KindRet }

func (i Inst) TargetAddress() (insn.Address, bool) {
	if i.Branch == nil || i.Branch.Indirect || i.Branch.Kind == KindRet {
		return 0, false
	}
	return insn.Address(i.Branch.Target), true
}

func (i Inst) Mnemonic() string { return i.Op }

func (i Inst) String() string { return i.Text }

// Bytes returns the little-endian encoding of i.
func (i Inst) Bytes() []byte {
	return binary.LittleEndian.AppendUint32(make([]byte, 0, Size), i.Raw)
}
