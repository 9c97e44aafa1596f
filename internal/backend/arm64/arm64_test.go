package arm64

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"disassemble/pkg/callsite"
	"disassemble/pkg/cfg"
	"disassemble/pkg/insn"
)

const (
	nop = 0xD503201F
	ret = 0xD65F03C0
)

func encode(raws ...uint32) []byte {
	data := make([]byte, 4*len(raws))
	for i, r := range raws {
		binary.LittleEndian.PutUint32(data[i*4:], r)
	}
	return data
}

func TestDisassembleNOP(t *testing.T) {
	insts := Disassemble(encode(nop, nop), Options{BaseAddr: 0x1000})
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
	if insts[0].Addr != 0x1000 {
		t.Errorf("addr[0] = 0x%x, want 0x1000", insts[0].Addr)
	}
	if insts[1].Addr != 0x1004 {
		t.Errorf("addr[1] = 0x%x, want 0x1004", insts[1].Addr)
	}
	if !strings.EqualFold(insts[0].Mnemonic(), "nop") {
		t.Errorf("expected NOP, got: %s", insts[0].Text)
	}
	if insn.IsBlockTerminator(insts[0]) {
		t.Error("NOP should not terminate a block")
	}
}

func TestDisassembleMaxSteps(t *testing.T) {
	raws := make([]uint32, 100)
	for i := range raws {
		raws[i] = nop
	}
	insts := Disassemble(encode(raws...), Options{MaxSteps: 10})
	if len(insts) != 10 {
		t.Fatalf("got %d instructions, want 10", len(insts))
	}
}

func TestDisassembleShort(t *testing.T) {
	if insts := Disassemble(nil, Options{}); len(insts) != 0 {
		t.Fatalf("got %d instructions for nil data", len(insts))
	}
	if insts := Disassemble([]byte{0x01, 0x02}, Options{}); len(insts) != 0 {
		t.Fatalf("got %d instructions for 2 bytes", len(insts))
	}
}

func TestInstCapability(t *testing.T) {
	bl := uint32(0x94000000 | 0x10)
	insts := Disassemble(encode(bl, 0xD63F0200, 0x54000040, ret), Options{BaseAddr: 0x1000})

	if !insts[0].IsCall() {
		t.Error("BL should be a call")
	}
	if target, ok := insts[0].TargetAddress(); !ok || target != 0x1040 {
		t.Errorf("BL target = %v/%v, want 0x1040", target, ok)
	}
	if !insts[1].IsCall() {
		t.Error("BLR should be a call")
	}
	if _, ok := insts[1].TargetAddress(); ok {
		t.Error("BLR should have no static target")
	}
	if !insts[2].IsLocalConditionalJump() || !insts[2].IsLocalJump() {
		t.Error("B.EQ should be a conditional local jump")
	}
	if !insts[3].IsReturn() {
		t.Error("RET should be a return")
	}
	if _, ok := insts[3].TargetAddress(); ok {
		t.Error("RET should have no target")
	}
}

func TestBuildCFG_Linear(t *testing.T) {
	g := cfg.Build(Instructions(encode(nop, nop, ret), Options{BaseAddr: 0x1000}))
	if g.NodeCount() != 1 {
		t.Fatalf("blocks = %d, want 1", g.NodeCount())
	}
	if n := len(g.Instructions(0)); n != 3 {
		t.Errorf("block 0 has %d instructions, want 3", n)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("edges = %d, want 0", g.EdgeCount())
	}
}

func TestBuildCFG_ConditionalBranch(t *testing.T) {
	//   0x1000: B.EQ #0x10  → target 0x1010
	//   0x1004: NOP          (fallthrough)
	//   0x1008: RET
	//   0x100C: NOP          (dead)
	//   0x1010: RET          (branch target)
	beq := uint32(0x54000000 | (4 << 5))
	g := cfg.Build(Instructions(encode(beq, nop, ret, nop, ret), Options{BaseAddr: 0x1000}))

	if g.NodeCount() != 4 {
		t.Fatalf("blocks = %d, want 4", g.NodeCount())
	}
	entry, _ := g.EntryBlock()
	target, _ := g.BlockAt(0x1010)
	fall, _ := g.BlockAt(0x1004)

	out := g.OutEdges(entry)
	if len(out) != 2 {
		t.Fatalf("entry out edges = %d, want 2", len(out))
	}
	var hasT, hasF bool
	for _, e := range out {
		if e.Type == cfg.ConditionalTaken && e.To == target {
			hasT = true
		}
		if e.Type == cfg.ConditionalFallthrough && e.To == fall {
			hasF = true
		}
	}
	if !hasT || !hasF {
		t.Errorf("entry edges = %+v, want T→%d and F→%d", out, target, fall)
	}
	if len(g.OutEdges(fall)) != 0 {
		t.Error("block ending in RET should have no successors")
	}
}

func TestBuildCFG_UnconditionalBranch(t *testing.T) {
	//   0x2000: B #0x8     → target 0x2008
	//   0x2004: NOP         (dead)
	//   0x2008: RET
	b := uint32(0x14000000 | 2)
	g := cfg.Build(Instructions(encode(b, nop, ret), Options{BaseAddr: 0x2000}))

	if g.NodeCount() != 3 {
		t.Fatalf("blocks = %d, want 3", g.NodeCount())
	}
	target, _ := g.BlockAt(0x2008)
	succs := g.Successors(0)
	if len(succs) != 1 || succs[0] != target {
		t.Errorf("entry succs = %v, want [%d]", succs, target)
	}
	dead, _ := g.BlockAt(0x2004)
	if len(g.Predecessors(dead)) != 0 {
		t.Error("dead block should have no predecessors")
	}
}

func TestCallSites(t *testing.T) {
	bl := uint32(0x94000000 | 0x40)
	sites := callsite.Identify(Disassemble(encode(nop, bl, 0xD63F0200, ret), Options{BaseAddr: 0x1000}))
	if len(sites) != 2 {
		t.Fatalf("call sites = %d, want 2", len(sites))
	}
	if sites[0].Addr != 0x1004 || sites[0].Target.Addr != 0x1104 {
		t.Errorf("site 0 = %v, want 0x1004 -> 0x1104", sites[0])
	}
	if sites[1].Target.Kind != callsite.Indirect {
		t.Errorf("site 1 = %v, want indirect", sites[1])
	}
}

func TestBytes(t *testing.T) {
	insts := Disassemble(encode(nop, 0x94000001), Options{BaseAddr: 0x1000})
	if got, want := insts[0].Bytes(), []byte{0x1f, 0x20, 0x03, 0xd5}; !bytes.Equal(got, want) {
		t.Errorf("nop bytes = % x, want % x", got, want)
	}
	if got, want := insts[1].Bytes(), []byte{0x01, 0x00, 0x00, 0x94}; !bytes.Equal(got, want) {
		t.Errorf("bl bytes = % x, want % x", got, want)
	}
}
