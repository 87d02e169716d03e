package symexec

import (
	"testing"

	"github.com/fkuehnel/symexec-core/expr"
)

func TestCanMergeRejectsDifferentPC(t *testing.T) {
	s := New("entry")
	a, b := s.Branch()
	b.PC = "elsewhere"
	if CanMerge(a, b) {
		t.Fatalf("CanMerge should reject states with different PCs")
	}
}

func TestCanMergeRejectsDifferentUnwinding(t *testing.T) {
	s := New("entry")
	a, b := s.Branch()
	a.Unwinding = &SearchPhaseUnwindingInformation{}
	if CanMerge(a, b) {
		t.Fatalf("CanMerge should reject a state mid-unwind")
	}
}

func TestMergeFoldsDivergentLocalsAndConstraints(t *testing.T) {
	s := New("entry")
	s.PushFrame(NewStackFrame("main", 1))
	x := expr.NewSymbol("x", 32)

	a, b := s.Branch()
	a.AddConstraint(expr.Eq(x, expr.NewConstant(1, 32)))
	a.Stack[0].Locals[0] = expr.NewConstant(10, 32)

	b.AddConstraint(expr.Eq(x, expr.NewConstant(0, 32)))
	b.Stack[0].Locals[0] = expr.NewConstant(20, 32)

	merged, ok := Merge(a, b)
	if !ok {
		t.Fatalf("Merge refused two mergeable states")
	}
	if merged.Constraints.Len() != 1 {
		t.Fatalf("merged constraints = %d, want 1 (a single inA||inB disjunction)", merged.Constraints.Len())
	}
	local, ok := merged.Stack[0].Locals[0].(expr.Expr)
	if !ok {
		t.Fatalf("merged local is not an Expr")
	}
	if _, isSelect := local.(*expr.Select); !isSelect {
		t.Fatalf("merged local = %v, want a Select multiplexing the two branch values", local)
	}
}

func TestMergeRecognizesCommonConstraintOutOfPosition(t *testing.T) {
	s := New("entry")
	c2 := expr.Eq(expr.NewSymbol("z", 32), expr.NewConstant(9, 32))

	a, b := s.Branch()
	a.AddConstraint(expr.Eq(expr.NewSymbol("x", 32), expr.NewConstant(1, 32)))
	a.AddConstraint(c2)

	b.AddConstraint(expr.Eq(expr.NewSymbol("x", 32), expr.NewConstant(2, 32)))
	b.AddConstraint(c2)

	merged, ok := Merge(a, b)
	if !ok {
		t.Fatalf("Merge refused two mergeable states")
	}
	// c2 sits after a divergent constraint on each side, so a position-by-
	// position prefix match would miss it; true set intersection must not.
	if merged.Constraints.Len() != 2 {
		t.Fatalf("merged constraints = %d, want 2 (c2 in common + disjunction)", merged.Constraints.Len())
	}
	if !merged.Constraints.Has(c2) {
		t.Fatalf("merged constraints should retain c2, which both sides share: %v", merged.Constraints.All())
	}
}

func TestMergeKeepsCommonPrefixIntact(t *testing.T) {
	s := New("entry")
	shared := expr.Eq(expr.NewSymbol("y", 32), expr.NewConstant(5, 32))
	s.AddConstraint(shared)

	a, b := s.Branch()
	a.AddConstraint(expr.Eq(expr.NewSymbol("x", 32), expr.NewConstant(1, 32)))
	b.AddConstraint(expr.Eq(expr.NewSymbol("x", 32), expr.NewConstant(2, 32)))

	merged, ok := Merge(a, b)
	if !ok {
		t.Fatalf("Merge refused two mergeable states")
	}
	if merged.Constraints.Len() != 2 {
		t.Fatalf("merged constraints = %d, want 2 (shared prefix + disjunction)", merged.Constraints.Len())
	}
	if !expr.Equal(merged.Constraints.At(0), shared) {
		t.Fatalf("merged constraints lost the common prefix: got %v", merged.Constraints.At(0))
	}
}
