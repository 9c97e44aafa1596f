package program

import (
	"context"
	"runtime"

	"github.com/zboralski/lattice"
	"golang.org/x/sync/errgroup"
	"tlog.app/go/tlog"

	"disassemble/pkg/callsite"
	"disassemble/pkg/cfg"
	"disassemble/pkg/insn"
	"disassemble/pkg/loops"
)

// Module is a shared library, executable or other unit holding functions.
type Module struct {
	Name      string
	Functions []*Function
}

// FuncSource is the input for one function of a module analysis.
type FuncSource struct {
	Symbol insn.Symbol
	Insts  []insn.Instruction
}

// Analysis holds the per-function results computed by Analyze.
type Analysis struct {
	Function  *Function
	CallSites []callsite.CallSite
	Loops     *loops.Forest
}

// Analyze builds functions from srcs with up to workers goroutines and
// returns them in input order. Each function is analyzed independently;
// cancellation is checked between functions.
func Analyze(ctx context.Context, name string, srcs []FuncSource, workers int, opts ...cfg.Option) (*Module, []Analysis, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Analysis, len(srcs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, src := range srcs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn := NewFunction(src.Symbol, src.Insts, opts...)
			results[i] = Analysis{
				Function:  fn,
				CallSites: fn.CallSites(),
				Loops:     fn.Loops(),
			}
			tlog.V("analyze").Printw("function", "name", fn.Name(), "blocks", fn.CFG.NodeCount(), "edges", fn.CFG.EdgeCount(), "loops", results[i].Loops.Count())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	m := &Module{Name: name, Functions: make([]*Function, len(results))}
	for i, r := range results {
		m.Functions[i] = r.Function
	}
	return m, results, nil
}

// Lookup returns the function whose symbol starts at addr.
func (m *Module) Lookup(addr insn.Address) (*Function, bool) {
	for _, f := range m.Functions {
		if f.Symbol.Addr == addr {
			return f, true
		}
	}
	return nil, false
}

// Find returns the function with the given display name.
func (m *Module) Find(name string) (*Function, bool) {
	for _, f := range m.Functions {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// CallGraph aggregates the call sites of every function into a
// lattice.Graph. Each function becomes a node. Direct targets resolve to
// the function at that address, or to a sub_<hex> placeholder. Indirect
// call sites carry no callee and are skipped.
func (m *Module) CallGraph() *lattice.Graph {
	byAddr := make(map[insn.Address]string, len(m.Functions))
	for _, f := range m.Functions {
		byAddr[f.Symbol.Addr] = f.Name()
	}

	g := &lattice.Graph{}
	for _, f := range m.Functions {
		g.Nodes = append(g.Nodes, f.Name())
		for _, cs := range f.CallSites() {
			if cs.Target.Kind != callsite.Direct {
				continue
			}
			callee, ok := byAddr[cs.Target.Addr]
			if !ok {
				callee = insn.Placeholder(cs.Target.Addr)
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name(),
				Callee: callee,
			})
		}
	}
	g.Dedup()
	return g
}
