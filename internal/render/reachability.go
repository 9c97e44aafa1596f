package render

import (
	"fmt"
	"sort"
	"strings"

	"disassemble/pkg/program"
)

// FindEntryPoints returns the functions of m that no direct call reaches.
// Unnamed sub_<hex> functions are excluded.
func FindEntryPoints(m *program.Module) []string {
	called := make(map[string]bool)
	for _, e := range CallEdges(m) {
		if e.Prov == ProvDirect && e.From != e.To {
			called[e.To] = true
		}
	}

	var entries []string
	for _, f := range m.Functions {
		name := f.Name()
		if strings.HasPrefix(name, "sub_") {
			continue
		}
		if !called[name] {
			entries = append(entries, name)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet follows direct calls breadth first from entryPoints and
// returns every function name reached, entry points included.
func ReachableSet(m *program.Module, entryPoints []string) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range CallEdges(m) {
		if e.Prov == ProvDirect {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ReachabilityDOT renders the direct call graph restricted to reachable.
// Entry points are highlighted.
func ReachabilityDOT(m *program.Module, reachable map[string]bool, entryPoints []string, title string, t Theme) string {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		entrySet[ep] = true
	}

	var edges []CallEdge
	nodes := make(map[string]bool)
	for _, e := range CallEdges(m) {
		if e.Prov != ProvDirect || !reachable[e.From] || !reachable[e.To] {
			continue
		}
		edges = append(edges, e)
		nodes[e.From] = true
		nodes[e.To] = true
	}
	for _, ep := range entryPoints {
		nodes[ep] = true
	}
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("digraph reachable {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	writeGraphHeader(&b, title, t)

	for _, name := range names {
		label := truncLabel(name, 50)
		if entrySet[name] {
			fmt.Fprintf(&b, "  %s [label=%q, penwidth=1.5, color=%q];\n", dotID(name), label, t.EntryBorder)
		} else {
			fmt.Fprintf(&b, "  %s [label=%q];\n", dotID(name), label)
		}
	}
	b.WriteByte('\n')

	for _, e := range edges {
		attrs := fmt.Sprintf("color=%q", t.EdgeDirect)
		if e.Count > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(e.Count)*0.1)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(e.From), dotID(e.To), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
