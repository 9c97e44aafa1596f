package insn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"disassemble/pkg/insn"
	"disassemble/pkg/insn/insntest"
)

func TestIsBlockTerminator(t *testing.T) {
	tests := []struct {
		name string
		in   insntest.Inst
		want bool
	}{
		{"add", insntest.Add(0), false},
		{"mul", insntest.Mul(0), false},
		{"cjmp", insntest.CJmp(0, 4), true},
		{"jmp", insntest.Jmp(0, 4), true},
		{"call", insntest.Call(0, 100), true},
		{"call-indirect", insntest.CallIndirect(0), true},
		{"ret", insntest.Ret(0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, insn.IsBlockTerminator(tt.in))
		})
	}
}

func TestConditionalImpliesLocalJump(t *testing.T) {
	i := insntest.CJmp(1, 4)
	assert.True(t, i.IsLocalConditionalJump())
	assert.True(t, i.IsLocalJump())
}

func TestTargetAddress(t *testing.T) {
	target, ok := insntest.Call(1, 500).TargetAddress()
	assert.True(t, ok)
	assert.Equal(t, insn.Address(500), target)

	_, ok = insntest.CallIndirect(1).TargetAddress()
	assert.False(t, ok)
	_, ok = insntest.Add(1).TargetAddress()
	assert.False(t, ok)
}

func TestAddressOrderAndFormat(t *testing.T) {
	a, b := insn.Address(0x10), insn.Address(0x20)
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.Equal(t, "0x10", a.String())
	assert.Equal(t, b, a.Add(0x10))
}

func TestRange(t *testing.T) {
	r := insn.Range{Start: 0x1000, End: 0x1010}
	assert.True(t, r.Contains(0x1000))
	assert.True(t, r.Contains(0x100f))
	assert.False(t, r.Contains(0x1010))
	assert.True(t, r.ContainsSpan(0x1008, 8))
	assert.False(t, r.ContainsSpan(0x1008, 9))
	assert.Equal(t, uint64(0x10), r.Len())
	assert.Equal(t, uint64(0), insn.Range{Start: 5, End: 5}.Len())
}

func TestSymbolDisplayName(t *testing.T) {
	assert.Equal(t, "main", insn.Symbol{Addr: 0x400, Name: "main"}.DisplayName())
	assert.Equal(t, "sub_400", insn.Symbol{Addr: 0x400}.DisplayName())
}

func TestTextFallsBackToAddress(t *testing.T) {
	assert.Equal(t, "jmp 0x4", insn.Text(insntest.Jmp(0, 4)))
	assert.Equal(t, "jmp", insn.Mnemonic(insntest.Jmp(0, 4)))
	var bare bareInst
	assert.Equal(t, "0x7", insn.Text(bare))
	assert.Equal(t, "", insn.Mnemonic(bare))
}

type bareInst struct{}

func (bareInst) Address() insn.Address               { return 7 }
func (bareInst) IsCall() bool                        { return false }
func (bareInst) IsLocalJump() bool                   { return false }
func (bareInst) IsLocalConditionalJump() bool        { return false }
func (bareInst) IsReturn() bool                      { return false }
func (bareInst) TargetAddress() (insn.Address, bool) { return 0, false }
