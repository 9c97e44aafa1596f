package cfg

import (
	"fmt"

	"disassemble/pkg/insn"
)

// Build constructs the control flow graph of one function from its
// instructions, supplied in layout order.
//
// This is done in two passes:
//  1. Find block leaders: the first instruction, every instruction that
//     follows a block terminator, and every branch or call target inside
//     [first address, last address].
//  2. Walk the instructions again, assigning each one to its block and
//     building edges at block boundaries.
//
// Finding every leader first means backward branches never split a block
// that was already built. An empty sequence yields an empty graph without
// an entry block.
func Build(insts []insn.Instruction, opts ...Option) *Graph {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	g := &Graph{
		Insts:  insts,
		entry:  NoBlock,
		exit:   NoBlock,
		finder: make(map[insn.Address]BlockID),
	}
	if len(insts) == 0 {
		return g
	}

	g.identifyBlocks()
	last := g.buildEdges()
	if o.callExit == CallExitSentinel {
		g.connectExit(last)
	}
	if o.name != "" {
		for i := range g.Blocks {
			g.Blocks[i].Name = fmt.Sprintf("%s.%s", o.name, g.Blocks[i].Label())
		}
	}
	return g
}

// addBlock registers a leader. Registering the same address twice returns
// the existing block.
func (g *Graph) addBlock(addr insn.Address) BlockID {
	if id, ok := g.finder[addr]; ok {
		return id
	}
	id := BlockID(len(g.Blocks))
	g.Blocks = append(g.Blocks, BasicBlock{ID: id, Addr: addr})
	g.finder[addr] = id
	return id
}

func (g *Graph) addEdge(from, to BlockID, typ EdgeType) {
	id := EdgeID(len(g.Edges))
	g.Edges = append(g.Edges, Edge{ID: id, From: from, To: to, Type: typ})
	g.Blocks[from].Out = append(g.Blocks[from].Out, id)
	g.Blocks[to].In = append(g.Blocks[to].In, id)
}

// identifyBlocks is pass 1.
func (g *Graph) identifyBlocks() {
	start := g.Insts[0].Address()
	end := g.Insts[len(g.Insts)-1].Address()

	nextIsLeader := true
	for _, inst := range g.Insts {
		if nextIsLeader {
			g.addBlock(inst.Address())
			nextIsLeader = false
		}
		if !insn.IsBlockTerminator(inst) {
			continue
		}
		// Targets outside this function's span stay dangling references.
		if target, ok := inst.TargetAddress(); ok && target >= start && target <= end {
			g.addBlock(target)
		}
		nextIsLeader = true
	}
	g.entry = g.finder[start]
}

// buildEdges is pass 2. It returns the block holding the last instruction.
func (g *Graph) buildEdges() BlockID {
	cur := g.entry
	for i, inst := range g.Insts {
		blk := &g.Blocks[cur]
		blk.Insts = append(blk.Insts, i)

		if i+1 >= len(g.Insts) {
			break
		}
		next, ok := g.finder[g.Insts[i+1].Address()]
		if !ok || next == cur {
			continue
		}
		g.closeBlock(cur, next, inst)
		cur = next
	}
	return cur
}

// closeBlock adds the edges implied by the instruction that ends cur.
func (g *Graph) closeBlock(cur, next BlockID, inst insn.Instruction) {
	switch {
	case inst.IsLocalConditionalJump():
		if target, ok := g.targetBlock(inst); ok {
			g.addEdge(cur, target, ConditionalTaken)
		}
		g.addEdge(cur, next, ConditionalFallthrough)
	case inst.IsCall():
		// Control comes back after the call; callees are not part of this
		// graph.
		g.addEdge(cur, next, Unconditional)
	case inst.IsLocalJump():
		if target, ok := g.targetBlock(inst); ok {
			g.addEdge(cur, target, Unconditional)
		}
	case inst.IsReturn():
	default:
		g.addEdge(cur, next, Unconditional)
	}
}

func (g *Graph) targetBlock(inst insn.Instruction) (BlockID, bool) {
	target, ok := inst.TargetAddress()
	if !ok {
		return NoBlock, false
	}
	id, ok := g.finder[target]
	return id, ok
}

// connectExit adds the sentinel exit block for CallExitSentinel.
func (g *Graph) connectExit(last BlockID) {
	id := BlockID(len(g.Blocks))
	g.Blocks = append(g.Blocks, BasicBlock{ID: id, Name: "exit", IsExit: true})
	g.exit = id

	for i := range g.Blocks {
		blk := &g.Blocks[i]
		if blk.IsExit || len(blk.Insts) == 0 {
			continue
		}
		tail := g.Insts[blk.Insts[len(blk.Insts)-1]]
		switch {
		case tail.IsReturn():
			g.addEdge(blk.ID, id, Unconditional)
		case blk.ID == last && !tail.IsLocalJump():
			g.addEdge(blk.ID, id, Unconditional)
		}
	}
}
