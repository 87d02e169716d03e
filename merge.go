package symexec

import "github.com/fkuehnel/symexec-core/expr"

// CanMerge reports whether a and b satisfy every precondition Merge
// requires: identical program counter, neither mid loop-fixpoint search,
// the same symbolic bindings, matching stack shapes, the same bound
// address-space objects, and neither mid exception unwinding. Unwinding
// state is treated as an unconditional non-merge condition: even two
// states that are both mid-unwind never merge, since their unwind
// progress (phase, catching frame) is itself state this algorithm has no
// way to multiplex.
func CanMerge(a, b *ExecutionState) bool {
	if a.PC != b.PC {
		return false
	}
	if a.LoopInProcess != nil || b.LoopInProcess != nil {
		return false
	}
	if a.Unwinding != nil || b.Unwinding != nil {
		return false
	}
	if !sameSymbolics(a.Symbolics, b.Symbolics) {
		return false
	}
	if !sameStackShape(a.Stack, b.Stack) {
		return false
	}
	if !addrspaceSameKeySet(a, b) {
		return false
	}
	return true
}

func sameSymbolics(a, b []SymbolicBinding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameStackShape(a, b []*StackFrame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Locals) != len(b[i].Locals) {
			return false
		}
		if a[i].Caller != b[i].Caller {
			return false
		}
	}
	return true
}

func addrspaceSameKeySet(a, b *ExecutionState) bool {
	idsA := a.AddressSpace.IDs()
	for _, id := range idsA {
		if _, ok := b.AddressSpace.FindObject(id); !ok {
			return false
		}
	}
	idsB := b.AddressSpace.IDs()
	if len(idsA) != len(idsB) {
		return false
	}
	return true
}

// Merge folds b into a, returning the merged state and true if
// CanMerge(a, b) held; otherwise it returns (nil, false) and neither
// input is touched.
//
// The algorithm: split each side's path predicate into the true set
// intersection common = a.Constraints ∩ b.Constraints plus each side's
// set difference (a \ common, b \ common); conjoin each difference into
// a single "this side was taken" term (inA, inB); replace every local
// and every address-space byte that differs between the two sides with
// Select(inA, aVal, bVal); and replace the two predicates with
// common ∪ {inA ∨ inB}.
func Merge(a, b *ExecutionState) (*ExecutionState, bool) {
	if !CanMerge(a, b) {
		return nil, false
	}

	common := expr.Intersect(a.Constraints, b.Constraints)
	inA := expr.Difference(a.Constraints, common).Conjunction()
	inB := expr.Difference(b.Constraints, common).Conjunction()

	merged := a.cloneShallow()
	merged.Constraints = common.Clone()
	merged.Constraints.Add(expr.Or(inA, inB))

	for fi := range merged.Stack {
		af, bf := a.Stack[fi], b.Stack[fi]
		mf := merged.Stack[fi]
		for li := range mf.Locals {
			av, _ := af.Locals[li].(expr.Expr)
			bv, _ := bf.Locals[li].(expr.Expr)
			if av == nil || bv == nil || expr.Equal(av, bv) {
				continue
			}
			mf.Locals[li] = expr.NewSelect(inA, av, bv)
		}
	}

	for _, id := range a.AddressSpace.IDs() {
		aos, _ := a.AddressSpace.FindObject(id)
		bos, ok := b.AddressSpace.FindObject(id)
		if !ok {
			continue
		}
		var diverged bool
		for i := range aos.Bytes {
			if i >= len(bos.Bytes) || !expr.Equal(aos.Bytes[i], bos.Bytes[i]) {
				diverged = true
				break
			}
		}
		if !diverged {
			continue
		}
		w, _ := merged.AddressSpace.GetWriteable(id)
		for i := range w.Bytes {
			av, bv := aos.Bytes[i], bos.Bytes[i]
			if expr.Equal(av, bv) {
				continue
			}
			w.Bytes[i] = expr.NewSelect(inA, av, bv)
		}
	}

	return merged, true
}
