package symexec

import (
	"testing"

	"github.com/fkuehnel/symexec-core/expr"
)

func TestCallPathTracingPushesOnFirstTrace(t *testing.T) {
	s := New("entry")
	s.TraceParamValue("f", 0, expr.NewConstant(1, 32))
	if len(s.CallPath) != 1 || s.CallPath[0].Function != "f" {
		t.Fatalf("first trace on f should push one CallInfo, got %+v", s.CallPath)
	}
	s.TraceParamValue("f", 1, expr.NewConstant(2, 32))
	if len(s.CallPath) != 1 {
		t.Fatalf("a second trace on the same unreturned call should reuse the CallInfo, got %d entries", len(s.CallPath))
	}

	s.TraceRetValue("f", expr.NewConstant(3, 32))
	s.TraceParamValue("f", 0, expr.NewConstant(4, 32))
	if len(s.CallPath) != 2 {
		t.Fatalf("a trace on f after it returned should push a new CallInfo, got %d entries", len(s.CallPath))
	}
}

// TestCallContextCapturesRelevantConstraintsBothSides mirrors scenario 6:
// a pointer argument captured at entry as E_in (mentioning x) and at
// return after a write of the constant 7; both contexts should end up
// holding the constraint touching x, even though 7 itself mentions no
// symbol.
func TestCallContextCapturesRelevantConstraintsBothSides(t *testing.T) {
	s := New("entry")
	x := expr.NewSymbol("x", 32)
	xConstraint := expr.Eq(x, expr.NewConstant(1, 32))
	s.AddConstraint(xConstraint)
	unrelated := expr.Eq(expr.NewSymbol("y", 32), expr.NewConstant(2, 32))
	s.AddConstraint(unrelated)

	s.TraceParamPtr("f", 0)
	eIn := x
	s.TraceParamField("f", 0, 0, 4, DirIn, eIn)

	call := s.CallPath[len(s.CallPath)-1]
	if call.CallContext.Len() != 1 || !call.CallContext.Has(xConstraint) {
		t.Fatalf("CallContext = %v, want just the x constraint", call.CallContext.All())
	}

	seven := expr.NewConstant(7, 32)
	s.TraceParamField("f", 0, 0, 4, DirOut, seven)

	field := call.ArgPtrs[0].Fields[0]
	if !expr.Equal(field.InVal, eIn) || !expr.Equal(field.OutVal, seven) {
		t.Fatalf("field = %+v, want InVal=%v OutVal=%v", field, eIn, seven)
	}
	if field.Dir != DirBoth {
		t.Fatalf("field.Dir = %v, want DirBoth", field.Dir)
	}
	if call.ReturnContext.Len() != 1 || !call.ReturnContext.Has(xConstraint) {
		t.Fatalf("ReturnContext = %v, want just the x constraint (carried from the entry capture's working set)", call.ReturnContext.All())
	}
}

func TestRelevantSymbolsCarryOverToNextCall(t *testing.T) {
	s := New("entry")
	x := expr.NewSymbol("x", 32)
	xConstraint := expr.Eq(x, expr.NewConstant(1, 32))
	s.AddConstraint(xConstraint)

	s.TraceParamValue("f", 0, x)
	s.TraceRetValue("f", x)
	if !s.RelevantSymbols.Has("x") {
		t.Fatalf("RelevantSymbols should carry x forward after f returns, got %v", s.RelevantSymbols)
	}

	// g's own captured value mentions no symbol, but RelevantSymbols
	// still seeds its working set, so the x constraint should still
	// show up in g's call context.
	s.TraceParamValue("g", 0, expr.NewConstant(5, 32))
	call := s.CallPath[len(s.CallPath)-1]
	if call.Function != "g" {
		t.Fatalf("expected a fresh CallInfo for g, got %s", call.Function)
	}
	if !call.CallContext.Has(xConstraint) {
		t.Fatalf("g's CallContext should inherit the x constraint via RelevantSymbols, got %v", call.CallContext.All())
	}
}
