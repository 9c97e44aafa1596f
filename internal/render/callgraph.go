package render

import (
	"fmt"
	"sort"
	"strings"

	"disassemble/pkg/callsite"
	"disassemble/pkg/insn"
	"disassemble/pkg/program"
)

// Call edge provenance.
const (
	ProvDirect     = "direct"
	ProvIndirect   = "indirect"
	ProvUnresolved = "unresolved" // direct target that starts no function
)

// indirectNode is the pseudo callee of indirect call sites.
const indirectNode = "<indirect>"

// CallEdge is a caller to callee edge with the number of call sites
// that produce it.
type CallEdge struct {
	From, To string
	Prov     string
	Count    int
}

// CallEdges collects the call sites of m into edges sorted by caller,
// callee and provenance. Unlike program.Module.CallGraph, indirect sites
// are kept as edges to a shared pseudo callee.
func CallEdges(m *program.Module) []CallEdge {
	byAddr := make(map[insn.Address]string, len(m.Functions))
	for _, f := range m.Functions {
		byAddr[f.Symbol.Addr] = f.Name()
	}

	type key struct{ from, to, prov string }
	counts := make(map[key]int)
	for _, f := range m.Functions {
		for _, cs := range f.CallSites() {
			k := key{from: f.Name(), to: indirectNode, prov: ProvIndirect}
			if cs.Target.Kind == callsite.Direct {
				if name, ok := byAddr[cs.Target.Addr]; ok {
					k.to, k.prov = name, ProvDirect
				} else {
					k.to, k.prov = insn.Placeholder(cs.Target.Addr), ProvUnresolved
				}
			}
			counts[k]++
		}
	}

	edges := make([]CallEdge, 0, len(counts))
	for k, n := range counts {
		edges = append(edges, CallEdge{From: k.from, To: k.to, Prov: k.prov, Count: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Prov < b.Prov
	})
	return edges
}

func edgeColor(prov string, t Theme) string {
	switch prov {
	case ProvIndirect:
		return t.EdgeIndirect
	case ProvUnresolved:
		return t.EdgeUnresolved
	default:
		return t.EdgeDirect
	}
}

func edgeStyle(prov string) string {
	switch prov {
	case ProvIndirect:
		return "dotted"
	case ProvUnresolved:
		return "dashed"
	default:
		return "solid"
	}
}

// CallgraphDOT renders the call graph of m.
// Functions of the module are boxes; targets outside it are plaintext.
// maxNodes limits the number of function nodes rendered (0 = all).
func CallgraphDOT(m *program.Module, title string, t Theme, maxNodes int) string {
	edges := CallEdges(m)

	funcSet := make(map[string]bool, len(m.Functions))
	var names []string
	for _, f := range m.Functions {
		if maxNodes > 0 && len(names) == maxNodes {
			break
		}
		funcSet[f.Name()] = true
		names = append(names, f.Name())
	}

	external := make(map[string]bool)
	for _, e := range edges {
		if funcSet[e.From] && !funcSet[e.To] {
			external[e.To] = true
		}
	}
	ext := make([]string, 0, len(external))
	for name := range external {
		ext = append(ext, name)
	}
	sort.Strings(ext)

	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	writeGraphHeader(&b, title, t)

	for _, name := range names {
		label := truncLabel(name, 60)
		if strings.HasPrefix(name, "sub_") {
			fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q];\n", dotID(name), label, t.StubFill)
		} else {
			fmt.Fprintf(&b, "  %s [label=%q];\n", dotID(name), label)
		}
	}
	b.WriteByte('\n')

	for _, name := range ext {
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontcolor=%q, fontsize=8];\n",
			dotID(name), truncLabel(name, 50), t.ExternalText)
	}
	b.WriteByte('\n')

	for _, e := range edges {
		if !funcSet[e.From] {
			continue
		}
		color := edgeColor(e.Prov, t)
		attrs := fmt.Sprintf("color=%q, style=%q", color, edgeStyle(e.Prov))
		if e.Count > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(e.Count)*0.1)
			if e.Count > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", color, e.Count)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(e.From), dotID(e.To), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

func writeGraphHeader(b *strings.Builder, title string, t Theme) {
	fmt.Fprintf(b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		b.WriteString("  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')
}

// CallgraphStats summarizes the call sites of a module.
type CallgraphStats struct {
	Functions  int         `json:"functions" yaml:"functions" msgpack:"functions"`
	CallSites  int         `json:"call_sites" yaml:"call_sites" msgpack:"call_sites"`
	Direct     int         `json:"direct" yaml:"direct" msgpack:"direct"`
	Indirect   int         `json:"indirect" yaml:"indirect" msgpack:"indirect"`
	Unresolved int         `json:"unresolved" yaml:"unresolved" msgpack:"unresolved"`
	TopCallers []NameCount `json:"top_callers,omitempty" yaml:"top_callers,omitempty" msgpack:"top_callers,omitempty"`
	TopCallees []NameCount `json:"top_callees,omitempty" yaml:"top_callees,omitempty" msgpack:"top_callees,omitempty"`
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string `json:"name" yaml:"name" msgpack:"name"`
	Count int    `json:"count" yaml:"count" msgpack:"count"`
}

// ComputeStats counts call sites by provenance and ranks callers and
// direct callees.
func ComputeStats(m *program.Module) CallgraphStats {
	stats := CallgraphStats{Functions: len(m.Functions)}

	callers := make(map[string]int)
	callees := make(map[string]int)
	for _, e := range CallEdges(m) {
		stats.CallSites += e.Count
		callers[e.From] += e.Count
		switch e.Prov {
		case ProvDirect:
			stats.Direct += e.Count
			callees[e.To] += e.Count
		case ProvIndirect:
			stats.Indirect += e.Count
		case ProvUnresolved:
			stats.Unresolved += e.Count
			callees[e.To] += e.Count
		}
	}

	stats.TopCallers = topN(callers, 20)
	stats.TopCallees = topN(callees, 20)
	return stats
}

// topN returns the n largest entries of m, ties broken by name.
func topN(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
