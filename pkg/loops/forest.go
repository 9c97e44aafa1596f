// Package loops builds the loop nesting forest of a control flow graph.
package loops

import (
	"fmt"
	"io"
	"strings"

	"disassemble/pkg/cfg"
)

// Loop is one node of the loop nesting forest.
//
// Blocks holds the header followed by the blocks that belong to this loop
// and to no loop nested inside it. Nested loops are reachable through
// Children.
type Loop struct {
	ID       int
	Header   cfg.BlockID // cfg.NoBlock for the root
	Blocks   []cfg.BlockID
	Children []*Loop
	Parent   *Loop

	IsRoot      bool
	IsReducible bool
	// NestingLevel is 0 for innermost loops and grows by one per enclosing
	// level. DepthLevel is the distance from the root (root = 0).
	NestingLevel int
	DepthLevel   int
}

func (l *Loop) String() string {
	return fmt.Sprintf("loop-%d", l.ID)
}

// HasHeader reports whether l has a header block. Only the root does not.
func (l *Loop) HasHeader() bool { return l.Header != cfg.NoBlock }

// AllBlocks returns the blocks of l and of every loop nested inside it.
func (l *Loop) AllBlocks() []cfg.BlockID {
	var out []cfg.BlockID
	stack := []*Loop{l}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur.Blocks...)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return out
}

// Contains reports whether b belongs to l or to a loop nested inside it.
func (l *Loop) Contains(b cfg.BlockID) bool {
	for _, id := range l.AllBlocks() {
		if id == b {
			return true
		}
	}
	return false
}

// Forest is the loop nesting forest of one graph. The synthetic Root has
// no header and no blocks; every other loop descends from it.
type Forest struct {
	Root  *Loop
	Loops []*Loop // excluding Root, innermost headers first
	// Unreachable lists blocks not reachable from the entry block.
	Unreachable []cfg.BlockID

	blockLoop map[cfg.BlockID]*Loop
}

func newForest() *Forest {
	return &Forest{
		Root:      &Loop{ID: 0, Header: cfg.NoBlock, IsRoot: true, IsReducible: true},
		blockLoop: make(map[cfg.BlockID]*Loop),
	}
}

func (f *Forest) newLoop(header cfg.BlockID) *Loop {
	l := &Loop{ID: len(f.Loops) + 1, Header: header}
	f.Loops = append(f.Loops, l)
	return l
}

// Count returns the number of loops, not counting the root.
func (f *Forest) Count() int { return len(f.Loops) }

// LoopOf returns the innermost loop containing b.
func (f *Forest) LoopOf(b cfg.BlockID) (*Loop, bool) {
	l, ok := f.blockLoop[b]
	return l, ok
}

// Walk visits the forest in preorder starting at the root. Returning false
// from fn skips the children of that loop.
func (f *Forest) Walk(fn func(*Loop) bool) {
	stack := []*Loop{f.Root}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(l) {
			continue
		}
		for i := len(l.Children) - 1; i >= 0; i-- {
			stack = append(stack, l.Children[i])
		}
	}
}

// link attaches parentless loops to the root, fills Children and computes
// nesting and depth levels.
func (f *Forest) link() {
	for _, l := range f.Loops {
		if l.Parent == nil {
			l.Parent = f.Root
		}
		l.Parent.Children = append(l.Parent.Children, l)
		for _, b := range l.Blocks {
			f.blockLoop[b] = l
		}
	}

	var order []*Loop
	f.Walk(func(l *Loop) bool {
		if l.Parent != nil {
			l.DepthLevel = l.Parent.DepthLevel + 1
		}
		order = append(order, l)
		return true
	})
	for i := len(order) - 1; i > 0; i-- {
		l := order[i]
		if n := l.NestingLevel + 1; l.Parent.NestingLevel < n {
			l.Parent.NestingLevel = n
		}
	}
}

// Dump writes an indented text rendering of the forest.
func (f *Forest) Dump(w io.Writer, g *cfg.Graph) error {
	var b strings.Builder
	var walk func(l *Loop, indent int)
	walk = func(l *Loop, indent int) {
		fmt.Fprintf(&b, "%*s%s nest: %d depth: %d", 2*indent, "", l, l.NestingLevel, l.DepthLevel)
		if !l.IsReducible {
			b.WriteString(" (irreducible)")
		}
		if len(l.Blocks) > 0 {
			b.WriteString(" (")
			for i, id := range l.Blocks {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(blockLabel(g, id))
				if id == l.Header {
					b.WriteByte('*')
				}
			}
			b.WriteByte(')')
		}
		b.WriteByte('\n')
		for _, c := range l.Children {
			walk(c, indent+1)
		}
	}
	walk(f.Root, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func blockLabel(g *cfg.Graph, id cfg.BlockID) string {
	if g != nil {
		if blk := g.Block(id); blk != nil {
			return blk.Label()
		}
	}
	return fmt.Sprintf("bb%d", id)
}
