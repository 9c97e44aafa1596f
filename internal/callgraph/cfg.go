package callgraph

import (
	"github.com/zboralski/lattice"

	"disassemble/pkg/callsite"
	"disassemble/pkg/insn"
	"disassemble/pkg/program"
)

// BuildCFG constructs a lattice.CFGGraph holding every function of m.
func BuildCFG(m *program.Module) *lattice.CFGGraph {
	resolve := Resolver(m)
	cg := &lattice.CFGGraph{}
	for _, fn := range m.Functions {
		cg.Funcs = append(cg.Funcs, ConvertFunc(fn, resolve))
	}
	return cg
}

// Resolver names direct call targets after the functions of m, falling
// back to sub_<hex> placeholders.
func Resolver(m *program.Module) func(insn.Address) string {
	names := make(map[insn.Address]string, len(m.Functions))
	for _, fn := range m.Functions {
		names[fn.Symbol.Addr] = fn.Name()
	}
	return func(a insn.Address) string {
		if name, ok := names[a]; ok {
			return name
		}
		return insn.Placeholder(a)
	}
}

// ConvertFunc maps the CFG of fn to a lattice.FuncCFG.
// Call sites are placed in the block holding the call instruction; their
// Offset is the instruction index within the function.
func ConvertFunc(fn *program.Function, resolve func(insn.Address) string) *lattice.FuncCFG {
	g := fn.CFG
	lcfg := &lattice.FuncCFG{Name: fn.Name()}
	for i := range g.Blocks {
		blk := &g.Blocks[i]
		lb := &lattice.BasicBlock{
			ID:   int(blk.ID),
			Term: g.Terminal(blk.ID),
		}
		if n := len(blk.Insts); n > 0 {
			lb.Start = blk.Insts[0]
			lb.End = blk.Insts[n-1] + 1
		}

		for _, e := range g.OutEdges(blk.ID) {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: int(e.To),
				Cond:    e.Type.Cond(),
			})
		}

		for _, idx := range blk.Insts {
			in := g.Insts[idx]
			if !in.IsCall() {
				continue
			}
			callee := callsite.IndirectTarget().String()
			if target, ok := in.TargetAddress(); ok {
				callee = resolve(target)
			}
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: idx,
				Callee: callee,
			})
		}

		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
