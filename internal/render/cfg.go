package render

import (
	"fmt"
	"strings"

	"disassemble/pkg/cfg"
	"disassemble/pkg/insn"
	"disassemble/pkg/loops"
)

// maxBlockLines is the number of instruction lines shown before a block
// label is elided in the middle.
const maxBlockLines = 12

// CFGDOT renders a per-function basic-block CFG as DOT.
// Each basic block is a node; edges represent control flow.
// Entry block is highlighted. Conditional edges use T/F colors. When forest
// is non-nil, loop headers are filled and back edges are dashed.
func CFGDOT(name string, g *cfg.Graph, forest *loops.Forest, t Theme) string {
	if g.NodeCount() == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(name))
	b.WriteByte('\n')

	headers := make(map[cfg.BlockID]*loops.Loop)
	if forest != nil {
		for _, l := range forest.Loops {
			headers[l.Header] = l
		}
	}
	entry, _ := g.EntryBlock()

	// Render blocks as nodes.
	for i := range g.Blocks {
		blk := &g.Blocks[i]

		var lines []string
		if blk.IsExit {
			lines = append(lines, "exit")
		}
		for _, in := range g.Instructions(blk.ID) {
			lines = append(lines, dotEscape(fmt.Sprintf("%s: %s", in.Address(), insn.Text(in))))
		}
		if len(lines) == 0 {
			lines = append(lines, dotEscape(blk.Addr.String()+":"))
		}
		// Truncate long blocks.
		if len(lines) > maxBlockLines {
			kept := append(lines[:5:5], fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}

		label := strings.Join(lines, "<br align=\"left\"/>")
		label += "<br align=\"left\"/>"

		attrs := ""
		if blk.ID == entry {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
		}
		switch l := headers[blk.ID]; {
		case blk.IsExit:
			attrs += fmt.Sprintf(", fillcolor=%q", t.ExitFill)
		case l != nil && !l.IsReducible:
			attrs += fmt.Sprintf(", fillcolor=%q", t.IrreducibleFill)
		case l != nil:
			attrs += fmt.Sprintf(", fillcolor=%q", t.LoopFill)
		case g.Terminal(blk.ID):
			attrs += fmt.Sprintf(", fillcolor=%q", t.TermFill)
		}
		fmt.Fprintf(&b, "  bb%d [label=<%s>%s];\n", blk.ID, label, attrs)
	}
	b.WriteByte('\n')

	// Render edges.
	for _, e := range g.Edges {
		style := ""
		if l := headers[e.To]; l != nil && l.Contains(e.From) {
			style = fmt.Sprintf(", style=dashed, penwidth=1.0, fontcolor=%q", t.EdgeBack)
		}
		switch e.Type {
		case cfg.ConditionalTaken:
			fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>%s];\n",
				e.From, e.To, t.EdgeTaken, t.EdgeTaken, style)
		case cfg.ConditionalFallthrough:
			fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>%s];\n",
				e.From, e.To, t.EdgeFallthrough, t.EdgeFallthrough, style)
		default:
			color := t.EdgeDirect
			if style != "" {
				color = t.EdgeBack
			}
			fmt.Fprintf(&b, "  bb%d -> bb%d [color=%q%s];\n", e.From, e.To, color, style)
		}
	}

	b.WriteString("}\n")
	return b.String()
}
