package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"disassemble/internal/callgraph"
	"disassemble/internal/output"
	"disassemble/internal/render"
)

var maxNodes int

var callgraphCmd = &cobra.Command{
	Use:   "callgraph",
	Short: "Aggregate call sites into a call graph",
	Long: `Aggregate the direct call sites of every function into a deduplicated
call graph, together with call site statistics and the functions reachable
from entry points (functions no direct call reaches).

With render.dot set, the themed call graph, the reachable subgraph and the
lattice call graph and combined CFG views are written as Graphviz files.`,
	RunE: runCallgraph,
}

func init() {
	callgraphCmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "limit rendered call graph nodes (0 = all)")
}

// callgraphReport is the callgraph command output.
type callgraphReport struct {
	Edges       []output.CallEdgeRecord `json:"edges" yaml:"edges" msgpack:"edges"`
	Stats       render.CallgraphStats   `json:"stats" yaml:"stats" msgpack:"stats"`
	EntryPoints []string                `json:"entry_points" yaml:"entry_points" msgpack:"entry_points"`
	Unreachable []string                `json:"unreachable,omitempty" yaml:"unreachable,omitempty" msgpack:"unreachable,omitempty"`
}

func (r callgraphReport) String() string {
	var b strings.Builder
	for _, e := range r.Edges {
		fmt.Fprintf(&b, "%s -> %s\n", e.Caller, e.Callee)
	}
	s := r.Stats
	fmt.Fprintf(&b, "\nfunctions: %d  call sites: %d  direct: %d  indirect: %d  unresolved: %d\n",
		s.Functions, s.CallSites, s.Direct, s.Indirect, s.Unresolved)
	if len(s.TopCallers) > 0 {
		b.WriteString("top callers:\n")
		for _, nc := range s.TopCallers {
			fmt.Fprintf(&b, "  %6d  %s\n", nc.Count, nc.Name)
		}
	}
	if len(s.TopCallees) > 0 {
		b.WriteString("top callees:\n")
		for _, nc := range s.TopCallees {
			fmt.Fprintf(&b, "  %6d  %s\n", nc.Count, nc.Name)
		}
	}
	fmt.Fprintf(&b, "entry points: %s\n", strings.Join(r.EntryPoints, " "))
	if len(r.Unreachable) > 0 {
		fmt.Fprintf(&b, "unreachable: %s\n", strings.Join(r.Unreachable, " "))
	}
	return b.String()
}

func runCallgraph(cmd *cobra.Command, args []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	m := a.mod

	entries := render.FindEntryPoints(m)
	reachable := render.ReachableSet(m, entries)

	rep := callgraphReport{
		Edges:       output.CallEdgeRecords(m),
		Stats:       render.ComputeStats(m),
		EntryPoints: entries,
	}
	for _, fn := range m.Functions {
		if !reachable[fn.Name()] {
			rep.Unreachable = append(rep.Unreachable, fn.Name())
		}
	}
	sort.Strings(rep.Unreachable)

	if conf.Render.DOT {
		for _, d := range []struct{ name, dot string }{
			{"callgraph", render.CallgraphDOT(m, m.Name, render.NASA, maxNodes)},
			{"reachable", render.ReachabilityDOT(m, reachable, entries, m.Name+" (reachable)", render.NASA)},
			{"callgraph_lattice", callgraph.DOT(m, m.Name)},
			{"cfg_lattice", callgraph.DOTCFG(m, m.Name)},
		} {
			if err := writeDOT(m.Name+"_"+d.name, d.dot); err != nil {
				return err
			}
		}
	}

	return emit("callgraph", rep)
}
