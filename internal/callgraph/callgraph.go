// Package callgraph converts analyzed modules into lattice graphs and
// renders them with lattice's DOT writers.
package callgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"disassemble/pkg/program"
)

// BuildCallGraph returns the deduplicated call graph of m.
func BuildCallGraph(m *program.Module) *lattice.Graph {
	return m.CallGraph()
}

// DOT renders the call graph of m.
func DOT(m *program.Module, title string) string {
	return render.DOT(BuildCallGraph(m), title)
}

// DOTCFG renders the control flow graphs of every function of m, with
// call sites listed in their blocks.
func DOTCFG(m *program.Module, title string) string {
	return render.DOTCFG(BuildCFG(m), title)
}
