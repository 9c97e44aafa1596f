package loops

import "disassemble/pkg/cfg"

const unvisited = -1

type blockType uint8

const (
	bbNonHeader   blockType = iota // a regular block
	bbSelf                         // single block loop
	bbIrreducible                  // header of an irreducible loop
	bbDead                         // unreachable from the entry
)

// node is the per-block state of one Find run. Nodes are indexed by
// cfg.BlockID.
type node struct {
	loop        *Loop
	first       int // preorder number
	last        int // largest preorder number in the DFS subtree
	typ         blockType
	backPred    []int
	nonBackPred []int
	union       int
}

type finder struct {
	g     *cfg.Graph
	nodes []node
	order []int // block ids by preorder number
}

// Find computes the loop nesting forest of g with Havlak's algorithm, a
// refinement of Tarjan's interval analysis that also handles irreducible
// loops. Variable names and step letters follow the paper.
//
// Successors are explored in edge insertion order, so the result is
// deterministic for a given graph. Blocks unreachable from the entry never
// belong to a loop. A graph without an entry block yields a forest holding
// only the root.
func Find(g *cfg.Graph) *Forest {
	forest := newForest()
	entry, ok := g.EntryBlock()
	if !ok {
		return forest
	}

	f := &finder{
		g:     g,
		nodes: make([]node, g.NodeCount()),
		order: make([]int, 0, g.NodeCount()),
	}

	// Step A: initialize nodes, number them depth first, mark dead nodes.
	for i := range f.nodes {
		f.nodes[i] = node{first: unvisited, last: unvisited, union: i}
	}
	f.search(int(entry))
	for i := range f.nodes {
		if f.nodes[i].first == unvisited {
			f.nodes[i].typ = bbDead
			forest.Unreachable = append(forest.Unreachable, cfg.BlockID(i))
		}
	}

	// Step B: classify incoming edges as coming from descendants (back
	// edges) or not.
	for _, w := range f.order {
		for _, e := range g.Blocks[w].In {
			v := int(g.Edges[e].From)
			if f.nodes[v].typ == bbDead {
				continue
			}
			if f.isAncestor(w, v) {
				f.nodes[w].backPred = appendUnique(f.nodes[w].backPred, v)
			} else {
				f.nodes[w].nonBackPred = appendUnique(f.nodes[w].nonBackPred, v)
			}
		}
	}

	// Step C: walk the nodes in reverse preorder so that inner loop headers
	// are processed before the headers of the loops around them. For a
	// header w, chase backwards from the sources of its back edges; the
	// nodes collected in pool form the body of the loop headed by w.
	var pool []int
	pooled := make([]int, len(f.nodes)) // header stamp, 0 = not pooled
	add := func(stamp, x int) {
		if pooled[x] != stamp {
			pooled[x] = stamp
			pool = append(pool, x)
		}
	}
	for i := len(f.order) - 1; i >= 0; i-- {
		w := f.order[i]
		stamp := i + 1
		pool = pool[:0]

		// Step D.
		for _, pred := range f.nodes[w].backPred {
			if pred == w {
				f.nodes[w].typ = bbSelf
				continue
			}
			add(stamp, f.find(pred))
		}

		// Step E: the main difference from Tarjan. A predecessor y' that
		// is not a descendant of w is another way into the loop that
		// avoids w, so the loop is irreducible.
		for k := 0; k < len(pool); k++ {
			x := pool[k]
			for _, y := range f.nodes[x].nonBackPred {
				ydash := f.find(y)
				if !f.isAncestor(w, ydash) {
					f.nodes[w].typ = bbIrreducible
					f.nodes[w].nonBackPred = appendUnique(f.nodes[w].nonBackPred, y)
				} else if ydash != w {
					add(stamp, ydash)
				}
			}
		}

		// Step F: collapse the body into w and record the loop.
		if len(pool) == 0 && f.nodes[w].typ != bbSelf {
			continue
		}
		l := forest.newLoop(cfg.BlockID(w))
		l.Blocks = append(l.Blocks, cfg.BlockID(w))
		l.IsReducible = f.nodes[w].typ != bbIrreducible
		f.nodes[w].loop = l
		for _, x := range pool {
			f.nodes[x].union = w
			// Nested loops are linked, not flattened.
			if inner := f.nodes[x].loop; inner != nil {
				inner.Parent = l
			} else {
				l.Blocks = append(l.Blocks, cfg.BlockID(x))
			}
		}
	}

	forest.link()
	return forest
}

// search numbers the blocks reachable from entry in depth-first preorder.
// It uses an explicit stack so fuzzed or very large graphs cannot exhaust
// the goroutine stack.
func (f *finder) search(entry int) {
	type frame struct {
		n    int
		next int
	}
	visit := func(n int) {
		f.nodes[n].first = len(f.order)
		f.order = append(f.order, n)
	}

	visit(entry)
	stack := []frame{{n: entry}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		out := f.g.Blocks[top.n].Out
		if top.next < len(out) {
			s := int(f.g.Edges[out[top.next]].To)
			top.next++
			if f.nodes[s].first == unvisited {
				visit(s)
				stack = append(stack, frame{n: s})
			}
			continue
		}
		f.nodes[top.n].last = len(f.order) - 1
		stack = stack[:len(stack)-1]
	}
}

// isAncestor reports whether w is an ancestor of v in the DFS tree. Every
// node is its own ancestor.
func (f *finder) isAncestor(w, v int) bool {
	nw, nv := &f.nodes[w], &f.nodes[v]
	return nv.first != unvisited && nw.first <= nv.first && nv.first <= nw.last
}

// find returns the representative of x, compressing the path on the way.
func (f *finder) find(x int) int {
	root := x
	for f.nodes[root].union != root {
		root = f.nodes[root].union
	}
	for f.nodes[x].union != root {
		next := f.nodes[x].union
		f.nodes[x].union = root
		x = next
	}
	return root
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
