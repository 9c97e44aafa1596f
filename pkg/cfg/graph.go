package cfg

import (
	"slices"

	"disassemble/pkg/insn"
)

// Graph is a per-function control flow graph. Blocks and edges live in
// arenas indexed by BlockID and EdgeID; blocks refer to each other only
// through those indices.
type Graph struct {
	Insts  []insn.Instruction
	Blocks []BasicBlock
	Edges  []Edge

	entry  BlockID
	exit   BlockID
	finder map[insn.Address]BlockID
}

// NodeCount returns the number of basic blocks.
func (g *Graph) NodeCount() int { return len(g.Blocks) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// EntryBlock returns the block holding the first instruction. ok is false
// iff the graph was built from an empty sequence.
func (g *Graph) EntryBlock() (id BlockID, ok bool) {
	return g.entry, g.entry != NoBlock
}

// ExitBlock returns the synthetic exit block, present only when the graph
// was built with CallExitSentinel.
func (g *Graph) ExitBlock() (id BlockID, ok bool) {
	return g.exit, g.exit != NoBlock
}

// Block returns the block with the given id, or nil when out of range.
func (g *Graph) Block(id BlockID) *BasicBlock {
	if id < 0 || int(id) >= len(g.Blocks) {
		return nil
	}
	return &g.Blocks[id]
}

// BlockAt returns the block whose leader is addr.
func (g *Graph) BlockAt(addr insn.Address) (BlockID, bool) {
	id, ok := g.finder[addr]
	if !ok {
		return NoBlock, false
	}
	return id, true
}

// BlockContaining returns the block that holds the instruction at addr.
func (g *Graph) BlockContaining(addr insn.Address) (BlockID, bool) {
	for i := range g.Blocks {
		for _, idx := range g.Blocks[i].Insts {
			if g.Insts[idx].Address() == addr {
				return g.Blocks[i].ID, true
			}
		}
	}
	return NoBlock, false
}

// Leaders returns every leader address in ascending order.
func (g *Graph) Leaders() []insn.Address {
	out := make([]insn.Address, 0, len(g.finder))
	for a := range g.finder {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// OutEdges returns the outgoing edges of id in insertion order.
func (g *Graph) OutEdges(id BlockID) []Edge {
	b := g.Block(id)
	if b == nil {
		return nil
	}
	return g.edges(b.Out)
}

// InEdges returns the incoming edges of id in insertion order.
func (g *Graph) InEdges(id BlockID) []Edge {
	b := g.Block(id)
	if b == nil {
		return nil
	}
	return g.edges(b.In)
}

func (g *Graph) edges(ids []EdgeID) []Edge {
	out := make([]Edge, len(ids))
	for i, e := range ids {
		out[i] = g.Edges[e]
	}
	return out
}

// Successors returns the targets of the outgoing edges of id, in edge
// insertion order. A block reached by two edges appears twice.
func (g *Graph) Successors(id BlockID) []BlockID {
	b := g.Block(id)
	if b == nil {
		return nil
	}
	out := make([]BlockID, len(b.Out))
	for i, e := range b.Out {
		out[i] = g.Edges[e].To
	}
	return out
}

// Predecessors returns the sources of the incoming edges of id.
func (g *Graph) Predecessors(id BlockID) []BlockID {
	b := g.Block(id)
	if b == nil {
		return nil
	}
	out := make([]BlockID, len(b.In))
	for i, e := range b.In {
		out[i] = g.Edges[e].From
	}
	return out
}

// Instructions returns the instructions of id in program order.
func (g *Graph) Instructions(id BlockID) []insn.Instruction {
	b := g.Block(id)
	if b == nil {
		return nil
	}
	out := make([]insn.Instruction, len(b.Insts))
	for i, idx := range b.Insts {
		out[i] = g.Insts[idx]
	}
	return out
}

// Terminal reports whether id has no outgoing edges.
func (g *Graph) Terminal(id BlockID) bool {
	b := g.Block(id)
	return b != nil && len(b.Out) == 0
}
