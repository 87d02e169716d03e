package symexec

import (
	"testing"

	"github.com/fkuehnel/symexec-core/expr"
)

func TestSameInvocationIgnoresExtraPtrsAndOutValues(t *testing.T) {
	a := NewCallInfo("f")
	a.traceArgValue(0, expr.NewConstant(1, 32))
	a.traceExtraPtrField("out", 0, 4, DirOut, expr.NewConstant(111, 32))

	b := NewCallInfo("f")
	b.traceArgValue(0, expr.NewConstant(1, 32))
	b.traceExtraPtrField("out", 0, 4, DirOut, expr.NewConstant(222, 32))

	if !sameInvocation(a, b) {
		t.Fatalf("sameInvocation should ignore ExtraPtrs, but a and b only differ there")
	}
	if eq(a, b) {
		t.Fatalf("eq should not ignore ExtraPtrs, but reported a and b equal")
	}
}

func TestSameInvocationRequiresEqualArgs(t *testing.T) {
	a := NewCallInfo("f")
	a.traceArgValue(0, expr.NewConstant(1, 32))
	b := NewCallInfo("f")
	b.traceArgValue(0, expr.NewConstant(2, 32))
	if sameInvocation(a, b) {
		t.Fatalf("sameInvocation should require equal argument values")
	}
}

func TestNestedFieldDescrEquality(t *testing.T) {
	a := NewCallInfo("f")
	a.traceArgPtrNestedField(0, 0, 8, 4, 4, DirIn, expr.NewConstant(9, 32))
	b := NewCallInfo("f")
	b.traceArgPtrNestedField(0, 0, 8, 4, 4, DirIn, expr.NewConstant(9, 32))

	rootA := a.ArgPtrs[0]
	rootB := b.ArgPtrs[0]
	if !rootA.eq(rootB) {
		t.Fatalf("identically-built nested FieldDescr trees should compare equal")
	}

	b.traceArgPtrNestedField(0, 0, 8, 4, 4, DirIn, expr.NewConstant(10, 32))
	if rootA.eq(rootB) {
		t.Fatalf("FieldDescr trees with different leaf values should not compare equal")
	}
}

func TestFuncPtrCanonicalization(t *testing.T) {
	RegisterFuncPtrClass("test_hash_class", "hash_v1", 1)
	RegisterFuncPtrClass("test_hash_class", "hash_v2_same_semantics", 1)

	a := NewCallInfo("f")
	a.traceExtraFPtr("h", "hash_v1", "test_hash_class")
	b := NewCallInfo("f")
	b.traceExtraFPtr("h", "hash_v2_same_semantics", "test_hash_class")

	if !sameInvocation(a, b) {
		t.Fatalf("two different function names canonicalizing to the same id should compare equal")
	}

	c := NewCallInfo("f")
	c.traceExtraFPtr("h", "totally_unregistered", "test_hash_class")
	if sameInvocation(a, c) {
		t.Fatalf("an unregistered function name should not compare equal to a registered one")
	}
}

func TestRelevantConstraintsClosure(t *testing.T) {
	cs := expr.NewConstraintSet()
	x := expr.NewSymbol("x", 32)
	y := expr.NewSymbol("y", 32)
	z := expr.NewSymbol("z", 32)
	cs.Add(expr.Eq(x, y))                      // relevant: touches seed x
	cs.Add(expr.Eq(z, expr.NewConstant(5, 32))) // irrelevant: touches only z
	cs.Add(expr.Eq(y, expr.NewConstant(1, 32))) // relevant: touches y, pulled in by the first constraint

	seed := expr.NewSymbolSet()
	seed.Add("x")
	got := RelevantConstraints(cs, seed)
	if len(got) != 2 {
		t.Fatalf("RelevantConstraints returned %d constraints, want 2 (the two touching x/y, not the one touching only z)", len(got))
	}
}
