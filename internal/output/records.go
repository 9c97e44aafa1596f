package output

import (
	"disassemble/pkg/callsite"
	"disassemble/pkg/cfg"
	"disassemble/pkg/insn"
	"disassemble/pkg/loops"
	"disassemble/pkg/program"
)

// FuncRecord summarizes one function.
type FuncRecord struct {
	PC     string `json:"pc" yaml:"pc" msgpack:"pc"`
	Name   string `json:"name" yaml:"name" msgpack:"name"`
	Size   uint64 `json:"size,omitempty" yaml:"size,omitempty" msgpack:"size,omitempty"`
	Insts  int    `json:"insts" yaml:"insts" msgpack:"insts"`
	Blocks int    `json:"blocks" yaml:"blocks" msgpack:"blocks"`
	Edges  int    `json:"edges" yaml:"edges" msgpack:"edges"`
	Loops  int    `json:"loops" yaml:"loops" msgpack:"loops"`
	Calls  int    `json:"calls" yaml:"calls" msgpack:"calls"`
}

// BlockRecord is one basic block.
type BlockRecord struct {
	ID       int      `json:"id" yaml:"id" msgpack:"id"`
	Name     string   `json:"name" yaml:"name" msgpack:"name"`
	PC       string   `json:"pc,omitempty" yaml:"pc,omitempty" msgpack:"pc,omitempty"`
	Insts    []string `json:"insts,omitempty" yaml:"insts,omitempty" msgpack:"insts,omitempty"`
	Entry    bool     `json:"entry,omitempty" yaml:"entry,omitempty" msgpack:"entry,omitempty"`
	Exit     bool     `json:"exit,omitempty" yaml:"exit,omitempty" msgpack:"exit,omitempty"`
	Terminal bool     `json:"terminal,omitempty" yaml:"terminal,omitempty" msgpack:"terminal,omitempty"`
}

// EdgeRecord is one CFG edge.
type EdgeRecord struct {
	From int    `json:"from" yaml:"from" msgpack:"from"`
	To   int    `json:"to" yaml:"to" msgpack:"to"`
	Type string `json:"type" yaml:"type" msgpack:"type"`
}

// CallSiteRecord is one call instruction.
type CallSiteRecord struct {
	PC     string `json:"pc" yaml:"pc" msgpack:"pc"`
	Kind   string `json:"kind" yaml:"kind" msgpack:"kind"`
	Target string `json:"target,omitempty" yaml:"target,omitempty" msgpack:"target,omitempty"`
	Callee string `json:"callee,omitempty" yaml:"callee,omitempty" msgpack:"callee,omitempty"`
}

// LoopRecord is one non-root loop of the nesting forest.
type LoopRecord struct {
	ID        int   `json:"id" yaml:"id" msgpack:"id"`
	Header    int   `json:"header" yaml:"header" msgpack:"header"`
	Parent    int   `json:"parent" yaml:"parent" msgpack:"parent"` // 0 is the root
	Blocks    []int `json:"blocks" yaml:"blocks" msgpack:"blocks"`
	Reducible bool  `json:"reducible" yaml:"reducible" msgpack:"reducible"`
	Nesting   int   `json:"nesting" yaml:"nesting" msgpack:"nesting"`
	Depth     int   `json:"depth" yaml:"depth" msgpack:"depth"`
}

// CallEdgeRecord is one caller to callee edge of a module call graph.
type CallEdgeRecord struct {
	Caller string `json:"caller" yaml:"caller" msgpack:"caller"`
	Callee string `json:"callee" yaml:"callee" msgpack:"callee"`
}

// Report is everything known about one function.
type Report struct {
	Function  FuncRecord       `json:"function" yaml:"function" msgpack:"function"`
	Blocks    []BlockRecord    `json:"blocks,omitempty" yaml:"blocks,omitempty" msgpack:"blocks,omitempty"`
	Edges     []EdgeRecord     `json:"edges,omitempty" yaml:"edges,omitempty" msgpack:"edges,omitempty"`
	CallSites []CallSiteRecord `json:"call_sites,omitempty" yaml:"call_sites,omitempty" msgpack:"call_sites,omitempty"`
	Loops     []LoopRecord     `json:"loops,omitempty" yaml:"loops,omitempty" msgpack:"loops,omitempty"`
}

// Resolver names call targets; it may be nil.
type Resolver func(insn.Address) (string, bool)

// NewFuncRecord summarizes fn.
func NewFuncRecord(fn *program.Function) FuncRecord {
	return FuncRecord{
		PC:     fn.Symbol.Addr.String(),
		Name:   fn.Name(),
		Size:   fn.Symbol.Size,
		Insts:  len(fn.Insts),
		Blocks: fn.CFG.NodeCount(),
		Edges:  fn.CFG.EdgeCount(),
		Loops:  fn.Loops().Count(),
		Calls:  len(fn.CallSites()),
	}
}

// BlockRecords lists the blocks of g with the text of their instructions.
func BlockRecords(g *cfg.Graph) []BlockRecord {
	entry, _ := g.EntryBlock()
	out := make([]BlockRecord, 0, g.NodeCount())
	for i := range g.Blocks {
		blk := &g.Blocks[i]
		r := BlockRecord{
			ID:       int(blk.ID),
			Name:     blk.Label(),
			Entry:    blk.ID == entry,
			Exit:     blk.IsExit,
			Terminal: g.Terminal(blk.ID),
		}
		if blk.Name != "" {
			r.Name = blk.Name
		}
		if !blk.IsExit {
			r.PC = blk.Addr.String()
		}
		for _, in := range g.Instructions(blk.ID) {
			r.Insts = append(r.Insts, in.Address().String()+"  "+insn.Text(in))
		}
		out = append(out, r)
	}
	return out
}

// EdgeRecords lists the edges of g in insertion order.
func EdgeRecords(g *cfg.Graph) []EdgeRecord {
	out := make([]EdgeRecord, 0, g.EdgeCount())
	for _, e := range g.Edges {
		out = append(out, EdgeRecord{From: int(e.From), To: int(e.To), Type: e.Type.String()})
	}
	return out
}

// CallSiteRecords lists the call sites of fn, naming targets with resolve.
func CallSiteRecords(fn *program.Function, resolve Resolver) []CallSiteRecord {
	sites := fn.CallSites()
	out := make([]CallSiteRecord, 0, len(sites))
	for _, cs := range sites {
		r := CallSiteRecord{PC: cs.Addr.String(), Kind: cs.Target.Kind.String()}
		if cs.Target.Kind == callsite.Direct {
			r.Target = cs.Target.Addr.String()
			if resolve != nil {
				if name, ok := resolve(cs.Target.Addr); ok {
					r.Callee = name
				}
			}
		}
		out = append(out, r)
	}
	return out
}

// LoopRecords lists the loops of f in preorder, the root excluded.
func LoopRecords(f *loops.Forest) []LoopRecord {
	var out []LoopRecord
	f.Walk(func(l *loops.Loop) bool {
		if l.IsRoot {
			return true
		}
		r := LoopRecord{
			ID:        l.ID,
			Header:    int(l.Header),
			Reducible: l.IsReducible,
			Nesting:   l.NestingLevel,
			Depth:     l.DepthLevel,
		}
		if l.Parent != nil && !l.Parent.IsRoot {
			r.Parent = l.Parent.ID
		}
		for _, b := range l.Blocks {
			r.Blocks = append(r.Blocks, int(b))
		}
		out = append(out, r)
		return true
	})
	return out
}

// NewReport collects every record of fn.
func NewReport(fn *program.Function, resolve Resolver) Report {
	return Report{
		Function:  NewFuncRecord(fn),
		Blocks:    BlockRecords(fn.CFG),
		Edges:     EdgeRecords(fn.CFG),
		CallSites: CallSiteRecords(fn, resolve),
		Loops:     LoopRecords(fn.Loops()),
	}
}

// CallEdgeRecords flattens the call graph of m.
func CallEdgeRecords(m *program.Module) []CallEdgeRecord {
	g := m.CallGraph()
	out := make([]CallEdgeRecord, 0, len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, CallEdgeRecord{Caller: e.Caller, Callee: e.Callee})
	}
	return out
}
