package symexec

// LoopID identifies one loop header in the analyzed program; the front
// end that builds loop nests supplies these (an instruction cursor, a
// block index -- whatever is stable and comparable).
type LoopID = uint64

// loopSet is ExecutionState.AnalysedLoops: the set of loops this state's
// lineage has already driven to fixpoint and registered with the
// module, so a later arrival at the same header skips invariant search
// and runs the loop normally. It is copy-on-write rather than mutated in
// place, so a Branch's two children can each grow their own copy without
// the other observing it -- a plain persistent-set role filled here
// with a shared backing map and copy-on-grow, not a literal HAMT.
type loopSet struct {
	ids map[LoopID]bool
}

func newLoopSet() *loopSet { return &loopSet{ids: map[LoopID]bool{}} }

// has reports whether id has already reached fixpoint.
func (s *loopSet) has(id LoopID) bool {
	if s == nil {
		return false
	}
	return s.ids[id]
}

// add returns a new loopSet containing everything s did plus id,
// sharing s's backing map with every other clone until this call.
func (s *loopSet) add(id LoopID) *loopSet {
	if s.has(id) {
		return s
	}
	cp := make(map[LoopID]bool, len(s.ids)+1)
	for k := range s.ids {
		cp[k] = true
	}
	cp[id] = true
	return &loopSet{ids: cp}
}
