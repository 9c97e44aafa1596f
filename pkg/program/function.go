// Package program groups per-function analyses into functions and modules
// and aggregates their call sites into a call graph.
package program

import (
	"disassemble/pkg/callsite"
	"disassemble/pkg/cfg"
	"disassemble/pkg/insn"
	"disassemble/pkg/loops"
)

// Function is a symbol together with its instructions and the control
// flow graph built from them.
type Function struct {
	Symbol insn.Symbol
	Insts  []insn.Instruction
	CFG    *cfg.Graph

	loops *loops.Forest
}

// NewFunction builds the control flow graph of insts once.
func NewFunction(sym insn.Symbol, insts []insn.Instruction, opts ...cfg.Option) *Function {
	opts = append([]cfg.Option{cfg.WithName(sym.DisplayName())}, opts...)
	return &Function{
		Symbol: sym,
		Insts:  insts,
		CFG:    cfg.Build(insts, opts...),
	}
}

// Name returns the display name of the function.
func (f *Function) Name() string { return f.Symbol.DisplayName() }

// CallSites returns the call sites of the function in program order.
func (f *Function) CallSites() []callsite.CallSite {
	return callsite.Identify(f.Insts)
}

// Calls returns the statically known callees, duplicates included.
func (f *Function) Calls() []insn.Address {
	return callsite.Targets(f.Insts)
}

// Loops returns the loop nesting forest, computing it on first use.
func (f *Function) Loops() *loops.Forest {
	if f.loops == nil {
		f.loops = loops.Find(f.CFG)
	}
	return f.loops
}

// Span returns the address range covered by the instructions.
func (f *Function) Span() (insn.Range, bool) {
	if len(f.Insts) == 0 {
		return insn.Range{}, false
	}
	return insn.Range{
		Start: f.Insts[0].Address(),
		End:   f.Insts[len(f.Insts)-1].Address() + 1,
	}, true
}
