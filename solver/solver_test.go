package solver

import (
	"context"
	"testing"

	"github.com/fkuehnel/symexec-core/expr"
)

func TestNaiveFoldsConstantQueries(t *testing.T) {
	n := Naive{}
	cs := expr.NewConstraintSet()

	mayBeFalse, err := n.MayBeFalse(context.Background(), cs, expr.NewConstant(0, 1))
	if err != nil || !mayBeFalse {
		t.Fatalf("a literal false query should report mayBeFalse=true, got %v, %v", mayBeFalse, err)
	}

	mayBeFalse, err = n.MayBeFalse(context.Background(), cs, expr.NewConstant(1, 1))
	if err != nil || mayBeFalse {
		t.Fatalf("a literal true query should report mayBeFalse=false, got %v, %v", mayBeFalse, err)
	}
}

func TestNaiveRecognizesReflexiveEquality(t *testing.T) {
	n := Naive{}
	cs := expr.NewConstraintSet()
	x := expr.NewSymbol("x", 32)

	mayBeFalse, err := n.MayBeFalse(context.Background(), cs, expr.Eq(x, x))
	if err != nil || mayBeFalse {
		t.Fatalf("x == x can never be false, got %v, %v", mayBeFalse, err)
	}
}

func TestNaiveIsConservativeOnUnknowns(t *testing.T) {
	n := Naive{}
	cs := expr.NewConstraintSet()
	x := expr.NewSymbol("x", 32)
	y := expr.NewSymbol("y", 32)

	mayBeFalse, err := n.MayBeFalse(context.Background(), cs, expr.Eq(x, y))
	if err != nil || !mayBeFalse {
		t.Fatalf("an unresolvable query should conservatively report mayBeFalse=true, got %v, %v", mayBeFalse, err)
	}
}

func TestNaiveRespectsCanceledContext(t *testing.T) {
	n := Naive{}
	cs := expr.NewConstraintSet()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mayBeFalse, err := n.MayBeFalse(ctx, cs, expr.NewConstant(1, 1))
	if err == nil {
		t.Fatalf("a canceled context should surface an error")
	}
	if !mayBeFalse {
		t.Fatalf("a canceled context should conservatively report mayBeFalse=true")
	}
}
