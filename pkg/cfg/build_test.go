package cfg_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disassemble/pkg/cfg"
	"disassemble/pkg/insn"
	"disassemble/pkg/insn/insntest"
)

type edge struct {
	from, to insn.Address
	typ      cfg.EdgeType
}

// edgesByAddr renders edges as leader-address triples so tests do not
// depend on block numbering.
func edgesByAddr(g *cfg.Graph) []edge {
	var out []edge
	for _, e := range g.Edges {
		out = append(out, edge{g.Blocks[e.From].Addr, g.Blocks[e.To].Addr, e.Type})
	}
	return out
}

func TestBuild_Empty(t *testing.T) {
	g := cfg.Build(nil)
	_, ok := g.EntryBlock()
	assert.False(t, ok)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_OneBasicBlock(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Add(1),
		insntest.Ret(2),
	))
	entry, ok := g.EntryBlock()
	require.True(t, ok)
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.InEdges(entry))
	assert.Empty(t, g.OutEdges(entry))
	assert.Equal(t, []int{0, 1, 2}, g.Block(entry).Insts)
}

func TestBuild_Diamond(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.CJmp(1, 4),
		insntest.Add(2),
		insntest.Jmp(3, 5),
		insntest.Add(4),
		insntest.Ret(5),
	))
	require.Equal(t, 4, g.NodeCount())
	require.Equal(t, 4, g.EdgeCount())

	assert.Equal(t, []edge{
		{0, 4, cfg.ConditionalTaken},
		{0, 2, cfg.ConditionalFallthrough},
		{2, 5, cfg.Unconditional},
		{4, 5, cfg.Unconditional},
	}, edgesByAddr(g))

	b5, ok := g.BlockAt(5)
	require.True(t, ok)
	assert.True(t, g.Terminal(b5))
	assert.Len(t, g.Predecessors(b5), 2)

	b0, _ := g.BlockAt(0)
	b4, _ := g.BlockAt(4)
	b2, _ := g.BlockAt(2)
	assert.Equal(t, []cfg.BlockID{b4, b2}, g.Successors(b0))
	assert.Equal(t, []insn.Address{0, 2, 4, 5}, g.Leaders())
}

func TestBuild_TrailingCallInRange(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Call(1, 0),
	))
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_CallFallsThrough(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Call(1, 0x500),
		insntest.Add(2),
		insntest.Ret(3),
	))
	require.Equal(t, 2, g.NodeCount())
	assert.Equal(t, []edge{{0, 2, cfg.Unconditional}}, edgesByAddr(g))
	// Out-of-range call target never gets a node.
	_, ok := g.BlockAt(0x500)
	assert.False(t, ok)
}

func TestBuild_SelfLoop(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Add(1),
		insntest.CJmp(2, 1),
		insntest.Ret(3),
	))
	require.Equal(t, 3, g.NodeCount())
	assert.Equal(t, []edge{
		{0, 1, cfg.Unconditional},
		{1, 1, cfg.ConditionalTaken},
		{1, 3, cfg.ConditionalFallthrough},
	}, edgesByAddr(g))
}

func TestBuild_UnregisteredConditionalTarget(t *testing.T) {
	// Target 0x100 is outside [0, 3]: the taken edge is dropped, the
	// fallthrough edge stays.
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.CJmp(1, 0x100),
		insntest.Add(2),
		insntest.Ret(3),
	))
	assert.Equal(t, []edge{{0, 2, cfg.ConditionalFallthrough}}, edgesByAddr(g))
}

func TestBuild_IndirectJumpHasNoEdge(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.JmpIndirect(0),
		insntest.Ret(1),
	))
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_BackwardBranchDoesNotResplit(t *testing.T) {
	// The target 1 is discovered after the block holding it was started.
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Add(1),
		insntest.Mul(2),
		insntest.Jmp(3, 1),
		insntest.Ret(4),
	))
	require.Equal(t, 3, g.NodeCount())
	b0, _ := g.BlockAt(0)
	b1, _ := g.BlockAt(1)
	assert.Equal(t, []int{0}, g.Block(b0).Insts)
	assert.Equal(t, []int{1, 2, 3}, g.Block(b1).Insts)
	assert.Equal(t, []edge{
		{0, 1, cfg.Unconditional},
		{1, 1, cfg.Unconditional},
	}, edgesByAddr(g))
}

func TestBuild_TargetBetweenInstructions(t *testing.T) {
	// 0x2 is inside the span but no instruction starts there: the leader
	// still gets a (empty) block.
	g := cfg.Build(insntest.Program(
		insntest.Jmp(0, 2),
		insntest.Add(1),
		insntest.Ret(4),
	))
	b2, ok := g.BlockAt(2)
	require.True(t, ok)
	assert.Empty(t, g.Block(b2).Insts)
	assert.Equal(t, 3, g.NodeCount())
}

func TestBuild_CallExitSentinel(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Call(1, 0),
	), cfg.WithCallExit(cfg.CallExitSentinel))
	require.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())
	exit, ok := g.ExitBlock()
	require.True(t, ok)
	assert.True(t, g.Block(exit).IsExit)
	assert.Equal(t, exit, g.Edges[0].To)

	entry, _ := g.EntryBlock()
	assert.NotEqual(t, exit, entry)
}

func TestBuild_CallExitSentinelReturns(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.CJmp(0, 3),
		insntest.Ret(1),
		insntest.Jmp(2, 0),
		insntest.Ret(3),
	), cfg.WithCallExit(cfg.CallExitSentinel))
	exit, ok := g.ExitBlock()
	require.True(t, ok)
	assert.Len(t, g.Predecessors(exit), 2)
	_, ok = cfg.Build(nil, cfg.WithCallExit(cfg.CallExitSentinel)).ExitBlock()
	assert.False(t, ok)
}

func TestBuild_CallExitSentinelFinalBlock(t *testing.T) {
	// A final block ending in a plain instruction falls off the end and
	// reaches the exit.
	g := cfg.Build(insntest.Program(
		insntest.CJmp(0, 2),
		insntest.Ret(1),
		insntest.Add(2),
	), cfg.WithCallExit(cfg.CallExitSentinel))
	exit, ok := g.ExitBlock()
	require.True(t, ok)
	ret, _ := g.BlockAt(1)
	tail, _ := g.BlockAt(2)
	assert.ElementsMatch(t, []cfg.BlockID{ret, tail}, g.Predecessors(exit))

	// A final block ending in a local jump does not.
	g = cfg.Build(insntest.Program(
		insntest.Add(0),
		insntest.Jmp(1, 0),
	), cfg.WithCallExit(cfg.CallExitSentinel))
	exit, ok = g.ExitBlock()
	require.True(t, ok)
	assert.Empty(t, g.Predecessors(exit))
}

func TestBuild_WithName(t *testing.T) {
	g := cfg.Build(insntest.Program(
		insntest.CJmp(0, 2),
		insntest.Add(1),
		insntest.Ret(2),
	), cfg.WithName("f"))
	assert.Equal(t, "f.bb0", g.Blocks[0].Label())
	assert.Equal(t, "bb1", (&cfg.BasicBlock{ID: 1}).Label())
}

func TestParseCallExitPolicy(t *testing.T) {
	p, err := cfg.ParseCallExitPolicy("sentinel")
	require.NoError(t, err)
	assert.Equal(t, cfg.CallExitSentinel, p)
	p, err = cfg.ParseCallExitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, cfg.CallExitNone, p)
	_, err = cfg.ParseCallExitPolicy("exit")
	assert.Error(t, err)
}

func TestEdgeTypeCond(t *testing.T) {
	assert.Equal(t, "T", cfg.ConditionalTaken.Cond())
	assert.Equal(t, "F", cfg.ConditionalFallthrough.Cond())
	assert.Equal(t, "", cfg.Unconditional.Cond())
	assert.Equal(t, "taken", cfg.ConditionalTaken.String())
}

// randomProgram produces a layout-ordered stream with arbitrary branches,
// including out-of-range and backward targets.
func randomProgram(r *rand.Rand, n int) []insn.Instruction {
	insts := make([]insntest.Inst, n)
	for i := range insts {
		addr := uint64(i * 2)
		target := uint64(r.Intn(n*2 + 8))
		switch r.Intn(8) {
		case 0:
			insts[i] = insntest.CJmp(addr, target)
		case 1:
			insts[i] = insntest.Jmp(addr, target)
		case 2:
			insts[i] = insntest.Call(addr, target)
		case 3:
			insts[i] = insntest.Ret(addr)
		case 4:
			insts[i] = insntest.CallIndirect(addr)
		default:
			insts[i] = insntest.Add(addr)
		}
	}
	return insntest.Program(insts...)
}

// leaders recomputes the leader set independently of the builder.
func leaders(insts []insn.Instruction) map[insn.Address]bool {
	out := make(map[insn.Address]bool)
	if len(insts) == 0 {
		return out
	}
	first, last := insts[0].Address(), insts[len(insts)-1].Address()
	out[first] = true
	for i, in := range insts {
		if !insn.IsBlockTerminator(in) {
			continue
		}
		if i+1 < len(insts) {
			out[insts[i+1].Address()] = true
		}
		if t, ok := in.TargetAddress(); ok && t >= first && t <= last {
			out[t] = true
		}
	}
	return out
}

func TestBuild_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		insts := randomProgram(r, 1+r.Intn(40))
		g := cfg.Build(insts)

		entry, ok := g.EntryBlock()
		require.True(t, ok)
		assert.Equal(t, insts[0].Address(), g.Blocks[entry].Addr)
		assert.Equal(t, len(leaders(insts)), g.NodeCount())

		// Every instruction lands in exactly one block, in program order.
		seen := make([]int, len(insts))
		for _, b := range g.Blocks {
			for k, idx := range b.Insts {
				seen[idx]++
				if k > 0 {
					assert.Equal(t, b.Insts[k-1]+1, idx)
				}
			}
		}
		for idx, n := range seen {
			assert.Equal(t, 1, n, "instruction %d", idx)
		}

		// Deterministic.
		again := cfg.Build(insts)
		assert.Equal(t, g.NodeCount(), again.NodeCount())
		assert.Equal(t, edgesByAddr(g), edgesByAddr(again))
	}
}
