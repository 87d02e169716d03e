package symexec

import (
	"sync/atomic"
	"time"

	"github.com/fkuehnel/symexec-core/addrspace"
	"github.com/fkuehnel/symexec-core/cfgloop"
	"github.com/fkuehnel/symexec-core/expr"
	"github.com/fkuehnel/symexec-core/solver"

	"context"
)

// diffMaskTimeout bounds each per-byte solver query updateDiffMask runs
// while hunting for loop invariants: short enough that a stuck solver
// never stalls the whole fixpoint search, at the cost of being
// conservative (any timeout counts the byte as possibly-differing).
const diffMaskTimeout = 1 * time.Second

// LoopInProcess tracks one loop header's invariant search across all the
// sibling states currently exploring that loop's body: RestartState is
// the state the next round will resume from, ChangedBytes accumulates
// every byte any sibling has shown may differ from the header snapshot,
// and refCount is how many siblings are still live in the current round
// (population, not a reference count in the GC sense: it reaches zero
// exactly when every sibling has either repeated the header or
// otherwise left the loop).
type LoopInProcess struct {
	Loop          LoopID
	RestartState  *ExecutionState
	ChangedBytes  map[addrspace.ObjectID]*ByteMask
	Outer         *LoopInProcess
	refCount      int32
	newBitsFound  int32 // atomic bool: did any sibling add a bit this round
}

func newLoopInProcess(loop LoopID, outer *LoopInProcess, restart *ExecutionState) *LoopInProcess {
	return &LoopInProcess{
		Loop:         loop,
		RestartState: restart,
		ChangedBytes: make(map[addrspace.ObjectID]*ByteMask),
		Outer:        outer,
		refCount:     1,
	}
}

func (lp *LoopInProcess) onFork() {
	atomic.AddInt32(&lp.refCount, 1)
}

// onBranch grows the innermost active loop's sibling count by one, since
// Branch just turned one live sibling into two. Both children still
// point at the same LoopInProcess until one of them reaches the header
// again or leaves the loop.
func onBranch(parent, a, b *ExecutionState) {
	if parent.LoopInProcess != nil {
		parent.LoopInProcess.onFork()
	}
	_ = a
	_ = b
}

// BlockTransfer is the result of classifying one control-flow edge
// against the loop nest: which loops (if any) the edge enters, which it
// exits, and whether it also repeats a loop header (a back edge).
type BlockTransfer struct {
	Entered      []LoopID
	Exited       []LoopID
	Repetition   bool
	RepeatedLoop LoopID
}

// ClassifyBlockTransfer implements the loop-transfer dispatch table:
// fromChain/toChain are each block's enclosing loops ordered outermost
// to innermost, and toIsHeader says whether the destination block is the
// header of its innermost (toChain's last) loop.
//
//   - same loop header on both sides (fromChain == toChain, toIsHeader):
//     pure repetition, nothing entered or exited.
//   - toChain longer than the shared prefix: nested enter, no
//     repetition, whether or not toIsHeader, since the entered innermost
//     loop is not active on fromChain.
//   - fromChain longer than the shared prefix (we are leaving one or
//     more inner loops) and toIsHeader on a loop already active on
//     fromChain: nested exit plus repetition of that loop.
//   - chains diverge below their shared prefix in both directions:
//     disjoint, both an enter and an exit.
//   - either chain empty past the shared prefix: enter-only or
//     exit-only.
func ClassifyBlockTransfer(fromChain, toChain []LoopID, toIsHeader bool) BlockTransfer {
	common := 0
	for common < len(fromChain) && common < len(toChain) && fromChain[common] == toChain[common] {
		common++
	}
	var exited []LoopID
	for i := len(fromChain) - 1; i >= common; i-- {
		exited = append(exited, fromChain[i])
	}
	entered := append([]LoopID(nil), toChain[common:]...)

	bt := BlockTransfer{Entered: entered, Exited: exited}
	if toIsHeader && len(toChain) > 0 {
		innermost := toChain[len(toChain)-1]
		for _, l := range fromChain {
			if l == innermost {
				bt.Repetition = true
				bt.RepeatedLoop = innermost
				break
			}
		}
	}
	return bt
}

// LoopChain converts one block's position in a computed loop nest into
// the outermost-to-innermost LoopID chain ClassifyBlockTransfer wants,
// using the block's own ID as its loop's LoopID (the block that heads
// a loop is a stable, front-end-assigned identity, so nothing further
// needs minting here). Front ends that track control flow as a
// cfgloop.Graph call this on both the block left and the block entered
// to get ClassifyBlockTransfer's fromChain/toChain/toIsHeader directly,
// instead of tracking loop nesting by hand alongside the graph.
func LoopChain(ln *cfgloop.LoopNest, block cfgloop.BlockID) (chain []LoopID, isHeader bool) {
	blockChain, isHeader := ln.Chain(block)
	chain = make([]LoopID, len(blockChain))
	for i, b := range blockChain {
		chain[i] = LoopID(b)
	}
	return chain, isHeader
}

// UpdateLoopAnalysisForBlockTransfer applies a classified transfer to s:
// entered loops each get a fresh invariant search started (unless
// already in AnalysedLoops, in which case the loop just runs normally);
// exited loops pop s.LoopInProcess back to their Outer; a repetition
// drives one round of the fixpoint search for RepeatedLoop.
func UpdateLoopAnalysisForBlockTransfer(s *ExecutionState, bt BlockTransfer, sv solver.Solver) {
	for _, loop := range bt.Exited {
		if s.LoopInProcess != nil && s.LoopInProcess.Loop == loop {
			s.LoopInProcess = s.LoopInProcess.Outer
		}
	}
	for _, loop := range bt.Entered {
		LoopEnter(s, loop)
	}
	if bt.Repetition {
		LoopRepetition(s, bt.RepeatedLoop, sv)
	}
}

// LoopEnter starts invariant search for loop the first time s reaches
// its header, unless loop has already been driven to fixpoint
// (AnalysedLoops), in which case s just keeps running normally with no
// LoopInProcess pushed.
func LoopEnter(s *ExecutionState, loop LoopID) {
	if s.AnalysedLoops.has(loop) {
		return
	}
	StartInvariantSearch(s, loop)
}

// StartInvariantSearch snapshots s as the loop's header state and pushes
// a new LoopInProcess, nesting under whatever loop (if any) was already
// active.
func StartInvariantSearch(s *ExecutionState, loop LoopID) {
	snapshot := s.cloneShallow()
	s.LoopEntrySnapshot = snapshot
	s.LoopInProcess = newLoopInProcess(loop, s.LoopInProcess, snapshot)
}

// LoopExit pops loop's LoopInProcess (if s is in it) back to its Outer,
// used for transfers that leave a loop without repeating its header.
func LoopExit(s *ExecutionState, loop LoopID) {
	if s.LoopInProcess != nil && s.LoopInProcess.Loop == loop {
		s.LoopInProcess = s.LoopInProcess.Outer
	}
}

// LoopRepetition is called when s takes loop's back edge a second time.
// It folds s's divergence from the header snapshot into the loop's
// shared ChangedBytes mask, decrements the round's sibling count, and
// once the last sibling has reported in, either declares the round's
// fixpoint reached (no new bytes found: register loop and resume
// normal execution from RestartState) or advances to the next round
// (build a fresh RestartState via the forgetting protocol). Either way
// the caller should replace whatever exploration frontier held s's
// siblings with exactly the state this call returns via the loop's
// RestartState field.
func LoopRepetition(s *ExecutionState, loop LoopID, sv solver.Solver) {
	lp := s.LoopInProcess
	if lp == nil || lp.Loop != loop {
		return
	}
	changed := UpdateDiffMask(s, lp.RestartState, sv)
	grewAny := false
	for id, mask := range changed {
		existing, ok := lp.ChangedBytes[id]
		if !ok {
			lp.ChangedBytes[id] = mask
			if mask.Count() > 0 {
				grewAny = true
			}
			continue
		}
		if existing.Union(mask) {
			grewAny = true
		}
	}
	if grewAny {
		atomic.StoreInt32(&lp.newBitsFound, 1)
	}

	if atomic.AddInt32(&lp.refCount, -1) > 0 {
		// Other siblings from this round haven't reported in yet.
		return
	}
	FinishLoopRound(s, lp)
}

// FinishLoopRound runs once the last sibling of a round has reported:
// if no sibling grew ChangedBytes this round, the search has reached a
// fixpoint and loop is registered with s.AnalysedLoops; otherwise a
// fresh restart state is built (makeRestartState) and installed as the
// loop's next round.
func FinishLoopRound(s *ExecutionState, lp *LoopInProcess) {
	if atomic.LoadInt32(&lp.newBitsFound) == 0 {
		s.AnalysedLoops = s.AnalysedLoops.add(lp.Loop)
		InduceInvariantsForThisLoop(lp.RestartState, lp)
		s.LoopInProcess = lp.Outer
		return
	}
	atomic.StoreInt32(&lp.newBitsFound, 0)
	lp.refCount = 1
	lp.RestartState = makeRestartState(lp.RestartState, lp)
}

// InduceInvariantsForThisLoop commits the loop's accumulated
// ChangedBytes as permanent havocs on the restart state once fixpoint
// has been reached, so continuing exploration past the loop treats
// those bytes as symbolic for good rather than re-deriving them.
func InduceInvariantsForThisLoop(restart *ExecutionState, lp *LoopInProcess) {
	for id, mask := range lp.ChangedBytes {
		if mask.Count() == 0 {
			continue
		}
		if _, ok := restart.havocs.Lookup(id); !ok {
			restart.havocs.register(id, &HavocInfo{ArrayName: restart.havocs.freshName("loopinv"), Mask: mask.Clone()})
		}
	}
}

// UpdateDiffMask computes, for every object bound in cur, which bytes cur
// can be shown to possibly differ on from snapshot (an object bound in
// cur but not in snapshot has all its bytes marked): a byte
// is marked whenever its two values are not structurally identical and
// the solver cannot, within diffMaskTimeout, disprove that they could
// differ under cur's path constraints. Any solver error or timeout is
// treated the same as "may differ" -- conservative in the direction
// that keeps the fixpoint search sound (a false positive here costs a
// wider invariant, a false negative would corrupt the search).
func UpdateDiffMask(cur, snapshot *ExecutionState, sv solver.Solver) map[addrspace.ObjectID]*ByteMask {
	out := make(map[addrspace.ObjectID]*ByteMask)
	for _, id := range cur.AddressSpace.IDs() {
		curOS, _ := cur.AddressSpace.FindObject(id)
		snapOS, ok := snapshot.AddressSpace.FindObject(id)
		if !ok {
			// Object didn't exist at header time (allocated inside the
			// loop body): every byte counts as differing.
			mask := NewByteMask(len(curOS.Bytes))
			for i := range curOS.Bytes {
				mask.Set(i)
			}
			out[id] = mask
			continue
		}
		mask := NewByteMask(len(curOS.Bytes))
		for i := range curOS.Bytes {
			if i >= len(snapOS.Bytes) {
				mask.Set(i)
				continue
			}
			cv, sv2 := curOS.Bytes[i], snapOS.Bytes[i]
			if expr.Equal(cv, sv2) {
				continue
			}
			ctx, cancel := solver.WithTimeout(context.Background(), diffMaskTimeout)
			mayDiffer, err := sv.MayBeFalse(ctx, cur.Constraints, expr.Eq(cv, sv2))
			cancel()
			if err != nil || mayDiffer {
				mask.Set(i)
			}
		}
		out[id] = mask
	}
	return out
}

// makeRestartState rebuilds the loop's header state for the next round:
// start from a fresh clone of the original header snapshot, then for
// every object with any bit set in lp.ChangedBytes, replace exactly
// those bytes with cells read from a newly generated symbolic array
// (the "forgetting protocol"). An object must already be declared in
// the havoc registry (or CondoneUndeclaredHavocs must be set) for this
// to proceed; an undeclared object is a fatal configuration error, since
// silently generalizing memory the caller never opted into havocing
// would make the search unsound in a way nothing downstream could
// detect.
func makeRestartState(snapshot *ExecutionState, lp *LoopInProcess) *ExecutionState {
	next := snapshot.cloneShallow()
	for id, mask := range lp.ChangedBytes {
		if mask.Count() == 0 {
			continue
		}
		os, ok := next.AddressSpace.FindObject(id)
		if !ok {
			continue
		}
		if _, declared := next.havocs.Lookup(id); !declared && !next.CondoneUndeclaredHavocs {
			panic(errInaccessible("object %d havoced by loop %d but never declared in the havoc registry", id, lp.Loop))
		}
		wasAccessible := os.Accessible
		next.AddressSpace.AllowAccess(id, true)
		w, _ := next.AddressSpace.GetWriteable(id)
		arrayName := next.havocs.freshName("loopinv")
		for i := 0; i < mask.Len() && i < len(w.Bytes); i++ {
			if !mask.Test(i) {
				continue
			}
			w.Bytes[i] = expr.NewSymbol(arrayName, 8)
		}
		next.havocs.register(id, &HavocInfo{ArrayName: arrayName, Mask: mask.Clone()})
		next.AddressSpace.AllowAccess(id, wasAccessible)
	}
	next.LoopEntrySnapshot = next
	next.LoopInProcess = newLoopInProcess(lp.Loop, lp.Outer, next)
	next.LoopInProcess.ChangedBytes = lp.ChangedBytes
	return next
}
