// Package cfgloop computes the loop nest of a control-flow graph: which
// blocks form a loop, which loop headers nest inside which, and how
// deep each loop sits. The loop-fixpoint driver (LoopEnter/LoopExit/
// LoopRepetition) needs exactly this to classify a block transfer as
// entering, exiting, or repeating a loop -- this package is how those
// loop-id chains actually get built from a real graph instead of being
// handed in by the caller by hand.
//
// Adapted from a Go SSA compiler's control-flow analysis: Kosaraju-Sharir
// SCC detection via a postorder DFS plus a reversed-edge walk,
// and Bourdoncle's algorithm for building the loop nest by recursively
// re-partitioning each non-trivial SCC with its header removed. The
// original worked over *Block/*Func; this package generalizes it to any
// graph of comparable BlockID values, since the analyzed program's
// block representation is outside this core's scope.
package cfgloop

// BlockID identifies one basic block. The analyzed program's front end
// supplies these; this package only needs them to be comparable.
type BlockID int

// Graph is a directed control-flow graph: Entry plus a successor
// relation. Predecessors are recorded alongside successors as each edge
// is added.
type Graph struct {
	Entry  BlockID
	blocks []BlockID
	known  map[BlockID]bool
	succs  map[BlockID][]BlockID
	preds  map[BlockID][]BlockID

	cachedLoopNest *LoopNest
}

// NewGraph returns a graph whose single known block is entry.
func NewGraph(entry BlockID) *Graph {
	g := &Graph{
		Entry: entry,
		known: map[BlockID]bool{},
		succs: map[BlockID][]BlockID{},
		preds: map[BlockID][]BlockID{},
	}
	g.addBlock(entry)
	return g
}

func (g *Graph) addBlock(id BlockID) {
	if g.known[id] {
		return
	}
	g.known[id] = true
	g.blocks = append(g.blocks, id)
}

// AddEdge records a from -> to control-flow edge, introducing either
// endpoint as a known block if this is the first time it's mentioned.
// Invalidates any cached loop nest, since adding an edge can change
// which blocks loop back on which.
func (g *Graph) AddEdge(from, to BlockID) {
	g.addBlock(from)
	g.addBlock(to)
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
	g.cachedLoopNest = nil
}

// Succs returns b's successors, in the order their edges were added.
func (g *Graph) Succs(b BlockID) []BlockID { return g.succs[b] }

// Preds returns b's predecessors, in the order their edges were added.
func (g *Graph) Preds(b BlockID) []BlockID { return g.preds[b] }

// Blocks returns every block AddEdge or NewGraph has introduced, in
// first-mention order.
func (g *Graph) Blocks() []BlockID { return append([]BlockID(nil), g.blocks...) }

// blockAndIndex pairs a block with how many of its successor edges a
// postorder DFS has already explored -- an explicit stack entry so the
// traversal never recurses (a control-flow graph can be arbitrarily
// deep, and an arbitrarily deep Go call stack is not something this
// core wants to risk).
type blockAndIndex struct {
	b     BlockID
	index int
}

// postorder returns a postorder DFS forest covering every block valid
// allows (nil means "all known blocks"), rooted at g.Entry first and
// then, for any block a walk from the entry never reaches (disjoint
// subgraphs, as when a loop body's header has been removed for a
// nested-SCC search), at each remaining block in turn.
func (g *Graph) postorder(valid map[BlockID]bool) []BlockID {
	seen := map[BlockID]bool{}
	order := make([]BlockID, 0, len(g.blocks))
	visit := func(root BlockID) {
		if seen[root] {
			return
		}
		stack := make([]blockAndIndex, 0, 32)
		stack = append(stack, blockAndIndex{b: root})
		seen[root] = true
		for len(stack) > 0 {
			top := len(stack) - 1
			frame := &stack[top]
			succs := g.succs[frame.b]
			if frame.index < len(succs) {
				next := succs[frame.index]
				frame.index++
				if (valid == nil || valid[next]) && !seen[next] {
					seen[next] = true
					stack = append(stack, blockAndIndex{b: next})
				}
				continue
			}
			stack = stack[:top]
			order = append(order, frame.b)
		}
	}
	if valid == nil || valid[g.Entry] {
		visit(g.Entry)
	}
	for _, b := range g.blocks {
		if valid == nil || valid[b] {
			visit(b)
		}
	}
	return order
}

// Postorder returns a postorder DFS traversal of the whole graph, rooted
// at its entry first and then at any block the entry does not reach.
func (g *Graph) Postorder() []BlockID { return g.postorder(nil) }
