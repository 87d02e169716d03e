package symexec

import "github.com/fkuehnel/symexec-core/expr"

// currentCall returns the active CallInfo for a tracing intrinsic on
// function: the tail of CallPath if it already traces this function and
// hasn't returned yet, otherwise a freshly pushed CallInfo whose working
// symbol set is seeded from s.RelevantSymbols, the carryover from
// previous calls' returns. Per the tracing discipline, the
// pointer-argument/return root must be taken before any field on it is
// traced; that ordering is enforced by the wrapper methods below, not by
// currentCall itself.
func (s *ExecutionState) currentCall(function string) *CallInfo {
	if n := len(s.CallPath); n > 0 {
		tail := s.CallPath[n-1]
		if tail.Function == function && !tail.Returned {
			return tail
		}
	}
	ci := NewCallInfo(function)
	ci.working = expr.NewSymbolSet()
	ci.working.Union(s.RelevantSymbols)
	s.CallPath = append(s.CallPath, ci)
	return ci
}

// recordContext folds RelevantConstraints(s.Constraints, c.working) into
// dst, skipping anything dst already has.
func recordContext(dst *expr.ConstraintSet, s *ExecutionState, c *CallInfo) {
	for _, e := range RelevantConstraints(s.Constraints, c.working) {
		if !dst.Has(e) {
			dst.Add(e)
		}
	}
}

// captureCallEntry grows c's working symbol set with val's symbols, runs
// relevant-constraint closure, and folds the result into c.CallContext --
// the call-entry side of the trace. Because working is shared across
// every capture for this call, a constraint pulled in by an earlier
// inVal still shows up here even if val itself doesn't mention it.
func (s *ExecutionState) captureCallEntry(c *CallInfo, val expr.Expr) {
	if val == nil {
		return
	}
	expr.Names(val, c.working)
	recordContext(c.CallContext, s, c)
}

// captureCallReturn is captureCallEntry's return-time counterpart: the
// closure (over the same growing working set) is folded into
// c.ReturnContext, and once folded in, the working set is folded into
// s.RelevantSymbols so it keeps pruning which constraints the *next*
// call's entry records.
func (s *ExecutionState) captureCallReturn(c *CallInfo, val expr.Expr) {
	if val == nil {
		return
	}
	expr.Names(val, c.working)
	recordContext(c.ReturnContext, s, c)
	s.RelevantSymbols.Union(c.working)
}

// captureFieldContext dispatches a single FieldDescr capture to the
// call-entry or return-time closure (or both) according to dir: a field
// read by the callee (DirIn) feeds CallContext, one written before
// return (DirOut) feeds ReturnContext, consistent with inVal being
// captured at call time and outVal at return.
func (s *ExecutionState) captureFieldContext(c *CallInfo, dir Direction, val expr.Expr) {
	if dir&DirIn != 0 {
		s.captureCallEntry(c, val)
	}
	if dir&DirOut != 0 {
		s.captureCallReturn(c, val)
	}
}

// TraceParamValue records argument i's direct value, captured at call
// entry (arguments are always read going in).
func (s *ExecutionState) TraceParamValue(function string, i int, v expr.Expr) {
	c := s.currentCall(function)
	c.traceArgValue(i, v)
	s.captureCallEntry(c, v)
}

// TraceParamPtr registers argument i as a pointer, ahead of any field
// trace on its pointee.
func (s *ExecutionState) TraceParamPtr(function string, i int) {
	s.currentCall(function).traceArgPtr(i)
}

// TraceParamField records a slice of argument i's pointee.
func (s *ExecutionState) TraceParamField(function string, i, offset, size int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceArgPtrField(i, offset, size, dir, val)
	s.captureFieldContext(c, dir, val)
}

// TraceParamNestedField records a slice one level deeper, within
// argument i's pointee at (offset, size).
func (s *ExecutionState) TraceParamNestedField(function string, i, offset, size, offset2, size2 int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceArgPtrNestedField(i, offset, size, offset2, size2, dir, val)
	s.captureFieldContext(c, dir, val)
}

// TraceParamFunPtr records argument i as a canonicalized function
// pointer. Function-pointer identity isn't itself a symbolic value, so
// it does not feed relevant-constraint closure.
func (s *ExecutionState) TraceParamFunPtr(function string, i int, name, nameClass string) {
	s.currentCall(function).traceArgFunPtr(i, name, nameClass)
}

// TraceRetValue records a direct scalar return value, captured at
// return and marking the call as returned.
func (s *ExecutionState) TraceRetValue(function string, v expr.Expr) {
	c := s.currentCall(function)
	c.traceRet(v)
	s.captureCallReturn(c, v)
}

// TraceRetPtr marks the return value as a pointer, ahead of any field
// trace on its pointee. Unlike TraceRetValue, reaching the return value
// only through its pointee fields never implies traceRet was called, so
// this alone does not mark the call returned.
func (s *ExecutionState) TraceRetPtr(function string) {
	s.currentCall(function).traceRetPtr()
}

// TraceRetField records a slice of the return pointer's pointee and
// marks the call returned: a traced return field is itself evidence the
// callee reached its return point.
func (s *ExecutionState) TraceRetField(function string, offset, size int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceRetPtrField(offset, size, dir, val)
	c.Returned = true
	s.captureFieldContext(c, dir, val)
}

// TraceRetNestedField is TraceRetField one level deeper.
func (s *ExecutionState) TraceRetNestedField(function string, offset, size, offset2, size2 int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceRetPtrNestedField(offset, size, offset2, size2, dir, val)
	c.Returned = true
	s.captureFieldContext(c, dir, val)
}

// TraceExtraValue records a named non-argument value, captured at call
// entry like a direct argument.
func (s *ExecutionState) TraceExtraValue(function, name string, v expr.Expr) {
	c := s.currentCall(function)
	c.traceExtraValue(name, v)
	s.captureCallEntry(c, v)
}

// TraceExtraPtrField records a slice of a named non-argument pointer's
// pointee.
func (s *ExecutionState) TraceExtraPtrField(function, name string, offset, size int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceExtraPtrField(name, offset, size, dir, val)
	s.captureFieldContext(c, dir, val)
}

// TraceExtraPtrNestedField is TraceExtraPtrField one level deeper.
func (s *ExecutionState) TraceExtraPtrNestedField(function, name string, offset, size, offset2, size2 int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceExtraPtrNestedField(name, offset, size, offset2, size2, dir, val)
	s.captureFieldContext(c, dir, val)
}

// TraceExtraPtrNestedNestedField is TraceExtraPtrField two levels
// deeper, the deepest nesting observed in practice.
func (s *ExecutionState) TraceExtraPtrNestedNestedField(function, name string, o1, s1, o2, s2, o3, s3 int, dir Direction, val expr.Expr) {
	c := s.currentCall(function)
	c.traceExtraPtrNestedNestedField(name, o1, s1, o2, s2, o3, s3, dir, val)
	s.captureFieldContext(c, dir, val)
}

// TraceExtraFPtr records a named non-argument function pointer.
func (s *ExecutionState) TraceExtraFPtr(function, name, fnName, nameClass string) {
	s.currentCall(function).traceExtraFPtr(name, fnName, nameClass)
}
