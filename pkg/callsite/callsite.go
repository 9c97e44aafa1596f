// Package callsite extracts call sites from a function's instruction
// stream, independently of its control flow graph.
package callsite

import (
	"fmt"

	"disassemble/pkg/insn"
)

// TargetKind says whether a call site's target is statically known.
type TargetKind uint8

const (
	Direct TargetKind = iota
	Indirect
)

func (k TargetKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	}
	return fmt.Sprintf("TargetKind(%d)", uint8(k))
}

// Target is the callee of a call site. Addr is meaningful only for Direct
// targets.
type Target struct {
	Kind TargetKind
	Addr insn.Address
}

// DirectTarget returns a Direct target at addr.
func DirectTarget(addr insn.Address) Target { return Target{Kind: Direct, Addr: addr} }

// IndirectTarget returns an unresolved target.
func IndirectTarget() Target { return Target{Kind: Indirect} }

func (t Target) String() string {
	if t.Kind == Direct {
		return t.Addr.String()
	}
	return "indirect"
}

// CallSite is a call instruction together with its target.
type CallSite struct {
	Addr   insn.Address
	Target Target
}

func (c CallSite) String() string {
	return fmt.Sprintf("%s -> %s", c.Addr, c.Target)
}

// Identify returns one CallSite per call instruction, in program order.
// Repeated calls to the same target are all reported.
func Identify[I insn.Instruction](insts []I) []CallSite {
	var out []CallSite
	for _, in := range insts {
		if !in.IsCall() {
			continue
		}
		cs := CallSite{Addr: in.Address(), Target: IndirectTarget()}
		if target, ok := in.TargetAddress(); ok {
			cs.Target = DirectTarget(target)
		}
		out = append(out, cs)
	}
	return out
}

// Targets returns the statically known call targets in program order. The
// result may contain duplicates.
func Targets[I insn.Instruction](insts []I) []insn.Address {
	var out []insn.Address
	for _, cs := range Identify(insts) {
		if cs.Target.Kind == Direct {
			out = append(out, cs.Target.Addr)
		}
	}
	return out
}
