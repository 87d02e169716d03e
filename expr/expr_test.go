package expr

import "testing"

func TestConstantEquality(t *testing.T) {
	a := NewConstant(5, 32)
	b := NewConstant(5, 32)
	c := NewConstant(6, 32)
	if !Equal(a, b) {
		t.Fatalf("two constants with the same value and width should be equal")
	}
	if Equal(a, c) {
		t.Fatalf("constants with different values should not be equal")
	}
}

func TestSelectFoldsConstantCondition(t *testing.T) {
	truth := NewConstant(1, 1)
	falsity := NewConstant(0, 1)
	tVal := NewConstant(10, 32)
	fVal := NewConstant(20, 32)

	if got := NewSelect(truth, tVal, fVal); got != tVal {
		t.Fatalf("Select with a true constant condition should fold to the true branch")
	}
	if got := NewSelect(falsity, tVal, fVal); got != fVal {
		t.Fatalf("Select with a false constant condition should fold to the false branch")
	}
}

func TestSelectFoldsEqualBranches(t *testing.T) {
	cond := NewSymbol("cond", 1)
	same := NewConstant(7, 32)
	got := NewSelect(cond, same, NewConstant(7, 32))
	if got != same {
		t.Fatalf("Select with equal branches should fold away regardless of the condition")
	}
}

func TestCompareIsAntisymmetric(t *testing.T) {
	a := NewSymbol("x", 32)
	b := NewConstant(1, 32)
	if a.Compare(b) == b.Compare(a) && a.Compare(b) != 0 {
		t.Fatalf("Compare(a,b) and Compare(b,a) should have opposite signs")
	}
}

func TestNamesCollectsSymbolicArrayNames(t *testing.T) {
	idx := NewSymbol("i", 32)
	r := NewRead("arr", idx, 8)
	e := And(r, Eq(NewSymbol("x", 32), NewConstant(0, 32)))

	names := NewSymbolSet()
	Names(e, names)
	for _, want := range []string{"arr", "i", "x"} {
		if !names.Has(want) {
			t.Fatalf("Names() missing %q, got %v", want, names)
		}
	}
}

func TestConstraintSetIntersectAndDifference(t *testing.T) {
	a := NewConstraintSet()
	b := NewConstraintSet()
	shared := Eq(NewSymbol("y", 32), NewConstant(1, 32))
	xa := Eq(NewSymbol("x", 32), NewConstant(1, 32))
	xb := Eq(NewSymbol("x", 32), NewConstant(2, 32))
	a.Add(shared)
	b.Add(shared)
	a.Add(xa)
	b.Add(xb)

	common := Intersect(a, b)
	if common.Len() != 1 || !Equal(common.At(0), shared) {
		t.Fatalf("Intersect(a,b) = %v, want just the shared constraint", common.All())
	}

	diffA := Difference(a, common)
	if diffA.Len() != 1 || !Equal(diffA.At(0), xa) {
		t.Fatalf("Difference(a,common) = %v, want just a's own constraint", diffA.All())
	}
	if !Equal(diffA.Conjunction(), xa) {
		t.Fatalf("Conjunction() of a single-item difference should equal that item, got %v", diffA.Conjunction())
	}
}

// TestConstraintSetIntersectIsAPositionAgnosticSet exercises the case a
// pure longest-common-prefix scan would miss: a constraint shared by
// both sides but appearing after an earlier constraint that diverges.
func TestConstraintSetIntersectIsAPositionAgnosticSet(t *testing.T) {
	a := NewConstraintSet()
	b := NewConstraintSet()
	c0 := Eq(NewSymbol("w", 32), NewConstant(0, 32))
	c2 := Eq(NewSymbol("z", 32), NewConstant(9, 32))
	a.Add(c0)
	b.Add(c0)
	a.Add(Eq(NewSymbol("x", 32), NewConstant(1, 32)))
	b.Add(Eq(NewSymbol("x", 32), NewConstant(2, 32)))
	a.Add(c2)
	b.Add(c2)

	common := Intersect(a, b)
	if common.Len() != 2 || !common.Has(c0) || !common.Has(c2) {
		t.Fatalf("Intersect(a,b) = %v, want {c0, c2}", common.All())
	}
}
