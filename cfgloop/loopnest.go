package cfgloop

// Loop is one loop header and its nesting relationship to the loops
// around it. Outer is nil for a top-level loop.
type Loop struct {
	Header  BlockID
	Outer   *Loop
	Depth   int
	Blocks  []BlockID
	inner   bool
	members map[BlockID]bool
}

// Has reports whether b belongs directly to this loop, not counting
// blocks that belong to a loop nested inside it. Use LoopNest.LoopFor
// to find a block's innermost loop regardless of nesting depth.
func (l *Loop) Has(b BlockID) bool { return l.members[b] }

// IsInner reports whether l has no loop nested inside it -- a leaf in
// the loop nest.
func (l *Loop) IsInner() bool { return l.inner }

// LoopNest maps every block that sits inside some loop to its
// innermost containing Loop, and lists every loop found, in the order
// Bourdoncle's algorithm discovered them.
type LoopNest struct {
	B2L            map[BlockID]*Loop
	Loops          []*Loop
	HasIrreducible bool
}

// LoopFor returns the innermost loop containing b, or nil if b is not
// part of any loop.
func (ln *LoopNest) LoopFor(b BlockID) *Loop { return ln.B2L[b] }

// Chain returns b's containing loop headers ordered outermost first,
// and whether b is itself the innermost one's header. loop.go's block
// transfer classifier takes exactly this shape.
func (ln *LoopNest) Chain(b BlockID) (chain []BlockID, isHeader bool) {
	l := ln.B2L[b]
	if l == nil {
		return nil, false
	}
	for cur := l; cur != nil; cur = cur.Outer {
		chain = append(chain, cur.Header)
	}
	// chain is innermost-first; reverse to outermost-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, l.Header == b
}

// BuildLoopNest computes g's loop nest via Bourdoncle's algorithm:
// find the graph's top-level strongly connected components, and for
// each non-trivial one, take its header, remove it, and recurse on
// the SCCs of what remains -- each recursion either discovers a
// nested loop or, if the sub-component is trivial, simply belongs to
// the loop currently being built.
func BuildLoopNest(g *Graph) *LoopNest {
	ln := &LoopNest{B2L: map[BlockID]*Loop{}}
	for _, scc := range g.SCCs() {
		if !scc.IsLoop(g) {
			continue
		}
		processSCC(g, scc, nil, ln)
	}
	computeDepths(ln)
	return ln
}

func processSCC(g *Graph, scc *SCC, outer *Loop, ln *LoopNest) {
	header, ok := scc.Header(g)
	if !ok {
		ln.HasIrreducible = true
		// No unique entry: still register every block under outer so
		// the nest stays total, but no new Loop is created for it.
		for _, b := range scc.Blocks {
			if outer != nil {
				outer.Blocks = append(outer.Blocks, b)
				outer.members[b] = true
				ln.B2L[b] = outer
			}
		}
		return
	}

	l := &Loop{
		Header:  header,
		Outer:   outer,
		Blocks:  []BlockID{header},
		inner:   true,
		members: map[BlockID]bool{header: true},
	}
	ln.Loops = append(ln.Loops, l)
	ln.B2L[header] = l
	if outer != nil {
		outer.inner = false
	}

	valid := make(map[BlockID]bool, len(scc.Blocks)-1)
	for _, b := range scc.Blocks {
		if b != header {
			valid[b] = true
		}
	}

	for _, sub := range g.sccs(valid) {
		if sub.IsLoop(g) {
			processSCC(g, sub, l, ln)
			continue
		}
		// Trivial sub-component: its one block belongs to l directly,
		// not to a nested loop.
		b := sub.Blocks[0]
		l.Blocks = append(l.Blocks, b)
		l.members[b] = true
		ln.B2L[b] = l
	}
}

// LoopNest returns g's loop nest, computing and caching it on first
// call. Call after any AddEdge sequence is complete; AddEdge itself
// invalidates a stale cached result.
func (g *Graph) LoopNest() *LoopNest {
	if g.cachedLoopNest == nil {
		g.cachedLoopNest = BuildLoopNest(g)
	}
	return g.cachedLoopNest
}

func computeDepths(ln *LoopNest) {
	for _, l := range ln.Loops {
		depth := 0
		for cur := l.Outer; cur != nil; cur = cur.Outer {
			depth++
		}
		l.Depth = depth
	}
}
