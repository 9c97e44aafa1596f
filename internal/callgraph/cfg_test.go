package callgraph

import (
	"context"
	"strings"
	"testing"

	"disassemble/pkg/insn"
	"disassemble/pkg/insn/insntest"
	"disassemble/pkg/program"
)

// module builds:
//
//	main @0x1000:
//	  0x1000: add
//	  0x1001: call 0x2000     ; init
//	  0x1002: cjmp 0x1006
//	  0x1003: add
//	  0x1004: call 0x3000     ; run
//	  0x1005: jmp 0x1008
//	  0x1006: call*           ; indirect
//	  0x1007: ret
//	  0x1008: ret
//	init @0x2000: call 0x4000 (unknown), ret
//	run  @0x3000: call 0x4000 (unknown), call 0x4000, ret
func module(t *testing.T) *program.Module {
	t.Helper()
	m, _, err := program.Analyze(context.Background(), "test", []program.FuncSource{
		{Symbol: insn.Symbol{Addr: 0x1000, Name: "main"}, Insts: insntest.Program(
			insntest.Add(0x1000),
			insntest.Call(0x1001, 0x2000),
			insntest.CJmp(0x1002, 0x1006),
			insntest.Add(0x1003),
			insntest.Call(0x1004, 0x3000),
			insntest.Jmp(0x1005, 0x1008),
			insntest.CallIndirect(0x1006),
			insntest.Ret(0x1007),
			insntest.Ret(0x1008),
		)},
		{Symbol: insn.Symbol{Addr: 0x2000, Name: "init"}, Insts: insntest.Program(
			insntest.Call(0x2000, 0x4000),
			insntest.Ret(0x2001),
		)},
		{Symbol: insn.Symbol{Addr: 0x3000, Name: "run"}, Insts: insntest.Program(
			insntest.Call(0x3000, 0x4000),
			insntest.Call(0x3001, 0x4000),
			insntest.Ret(0x3002),
		)},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBuildCFG_DOTOutput(t *testing.T) {
	m := module(t)
	cg := BuildCFG(m)

	if len(cg.Funcs) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(cg.Funcs))
	}
	f := cg.Funcs[0]
	if f.Name != "main" {
		t.Errorf("func name = %q", f.Name)
	}
	// [add, call] [cjmp] [add, call] [jmp] [call*] [ret] [ret]
	if len(f.Blocks) != 7 {
		t.Fatalf("expected 7 blocks, got %d", len(f.Blocks))
	}

	b0 := f.Blocks[0]
	if len(b0.Calls) != 1 || b0.Calls[0].Callee != "init" || b0.Calls[0].Offset != 1 {
		t.Errorf("B0 calls = %+v", b0.Calls)
	}
	if b0.Start != 0 || b0.End != 2 {
		t.Errorf("B0 range = [%d,%d), want [0,2)", b0.Start, b0.End)
	}

	var conds []string
	for _, b := range f.Blocks {
		for _, s := range b.Succs {
			if s.Cond != "" {
				conds = append(conds, s.Cond)
			}
		}
	}
	if strings.Join(conds, "") != "TF" {
		t.Errorf("conditional successors = %v, want [T F]", conds)
	}

	var indirect, term int
	for _, b := range f.Blocks {
		for _, c := range b.Calls {
			if c.Callee == "indirect" {
				indirect++
			}
		}
		if b.Term {
			term++
		}
	}
	if indirect != 1 {
		t.Errorf("indirect calls = %d, want 1", indirect)
	}
	if term != 2 {
		t.Errorf("terminal blocks = %d, want 2", term)
	}

	dot := DOTCFG(m, "CFG example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestBuildCallGraph_DOTOutput(t *testing.T) {
	m := module(t)
	cg := BuildCallGraph(m)

	if len(cg.Nodes) < 3 {
		t.Errorf("expected at least 3 nodes, got %d", len(cg.Nodes))
	}
	// main->init, main->run, init->sub_4000, run->sub_4000 (deduplicated).
	if len(cg.Edges) != 4 {
		t.Errorf("expected 4 edges, got %d: %+v", len(cg.Edges), cg.Edges)
	}
	for _, e := range cg.Edges {
		if e.Callee == "indirect" {
			t.Errorf("indirect call leaked into call graph: %+v", e)
		}
	}

	dot := DOT(m, "call graph example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestResolver(t *testing.T) {
	resolve := Resolver(module(t))
	if got := resolve(0x3000); got != "run" {
		t.Errorf("resolve(0x3000) = %q, want run", got)
	}
	if got := resolve(0x4000); got != "sub_4000" {
		t.Errorf("resolve(0x4000) = %q, want sub_4000", got)
	}
}
