package cfgloop

// SCC is a strongly connected component: a set of blocks each
// reachable from every other. A single block with no self-edge is
// its own trivial, non-looping SCC.
type SCC struct {
	Blocks []BlockID
	member map[BlockID]bool
}

func newSCC(blocks []BlockID) *SCC {
	m := make(map[BlockID]bool, len(blocks))
	for _, b := range blocks {
		m[b] = true
	}
	return &SCC{Blocks: blocks, member: m}
}

// Has reports whether b belongs to the component.
func (s *SCC) Has(b BlockID) bool { return s.member[b] }

// IsLoop reports whether the component represents a loop: more than
// one block, or a single block with an edge back to itself.
func (s *SCC) IsLoop(g *Graph) bool {
	if len(s.Blocks) > 1 {
		return true
	}
	b := s.Blocks[0]
	for _, succ := range g.succs[b] {
		if succ == b {
			return true
		}
	}
	return false
}

// Header returns the unique block in s reached from outside s, the
// loop's entry block. The graph's Entry counts as reached from outside.
// Reports ok=false when more than one block of s is reached from
// outside (irreducible) or when none is (unreachable).
func (s *SCC) Header(g *Graph) (BlockID, bool) {
	var header BlockID
	found := false
	if s.member[g.Entry] {
		header, found = g.Entry, true
	}
	for _, b := range s.Blocks {
		for _, pred := range g.preds[b] {
			if s.member[pred] {
				continue
			}
			if found && header != b {
				return 0, false
			}
			header, found = b, true
		}
	}
	if !found && len(s.Blocks) == 1 {
		return s.Blocks[0], true
	}
	return header, found
}

// sccs computes the strongly connected components of the subgraph
// induced by valid (nil means the whole graph), via Kosaraju-Sharir:
// a postorder DFS over the forward graph, then a reversed-edge walk
// processing blocks in reverse postorder, each walk's reachable set
// forming one component.
func (g *Graph) sccs(valid map[BlockID]bool) []*SCC {
	po := g.postorder(valid)
	var sccs []*SCC
	seen := map[BlockID]bool{}
	for i := len(po) - 1; i >= 0; i-- {
		root := po[i]
		if seen[root] {
			continue
		}
		comp := []BlockID{}
		queue := []BlockID{root}
		seen[root] = true
		for len(queue) > 0 {
			b := queue[0]
			queue = queue[1:]
			comp = append(comp, b)
			for _, pred := range g.preds[b] {
				if (valid != nil && !valid[pred]) || seen[pred] {
					continue
				}
				seen[pred] = true
				queue = append(queue, pred)
			}
		}
		sccs = append(sccs, newSCC(comp))
	}
	return sccs
}

// SCCs returns the graph's strongly connected components.
func (g *Graph) SCCs() []*SCC { return g.sccs(nil) }
