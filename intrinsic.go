package symexec

import (
	"github.com/fkuehnel/symexec-core/addrspace"
	"github.com/fkuehnel/symexec-core/expr"
)

// HandlerFunc implements one intrinsic's runtime behavior: args are the
// call's already-traced argument values, and a non-nil *StateError ends
// the calling state rather than returning into it.
type HandlerFunc func(s *ExecutionState, args []expr.Expr) (ret expr.Expr, err *StateError)

// HandlerInfo is one entry of the static intrinsic table: Name is the
// symbol this handler replaces, NoReturn means the call never returns
// control to its caller (klee_silent_exit, klee_report_error),
// HasReturnValue controls whether the caller's return-value register is
// written, and DoNotOverride means an existing definition of Name in the
// analyzed module is kept rather than replaced by Handler -- used for
// intrinsics the runtime only wants to intercept when the program
// itself doesn't supply one (a weak libc shim, say).
type HandlerInfo struct {
	Name           string
	Handler        HandlerFunc
	NoReturn       bool
	HasReturnValue bool
	DoNotOverride  bool
}

// handlerTable is the static dispatch table: every intrinsic this core
// understands, in the table-driven shape the original special-function
// handler uses (name, handler, three behavior flags).
var handlerTable = []HandlerInfo{
	{Name: "klee_silent_exit", Handler: handleSilentExit, NoReturn: true},
	{Name: "klee_report_error", Handler: handleReportError, NoReturn: true},
	{Name: "klee_abort", Handler: handleAbort, NoReturn: true},
	{Name: "klee_assert_fail", Handler: handleAssertFail, NoReturn: true},
	{Name: "klee_make_symbolic", Handler: handleMakeSymbolic, HasReturnValue: false},
	{Name: "klee_mark_global", Handler: handleMarkGlobal, HasReturnValue: false},
	{Name: "klee_assume", Handler: handleAssume, HasReturnValue: false},
	{Name: "klee_is_symbolic", Handler: handleIsSymbolic, HasReturnValue: true},
	{Name: "klee_prefer_cex", Handler: handlePreferCex, HasReturnValue: false},
	{Name: "klee_print_expr", Handler: handlePrintExpr, HasReturnValue: false},
	{Name: "klee_get_value", Handler: handleGetValue, HasReturnValue: true},
	{Name: "klee_define_fixed_object", Handler: handleDefineFixedObject, HasReturnValue: false},
	{Name: "klee_forbid_access", Handler: handleForbidAccess, HasReturnValue: false},
	{Name: "klee_allow_access", Handler: handleAllowAccess, HasReturnValue: false},
	{Name: "klee_dump_constraints", Handler: handleDumpConstraints, HasReturnValue: false},
	{Name: "klee_possibly_havoc", Handler: handlePossiblyHavoc, HasReturnValue: false},
	{Name: "klee_induce_invariants", Handler: handleInduceInvariants, HasReturnValue: false},
	{Name: "malloc", Handler: handleMalloc, HasReturnValue: true, DoNotOverride: true},
	{Name: "memalign", Handler: handleMemalign, HasReturnValue: true, DoNotOverride: true},
	{Name: "free", Handler: handleFree, HasReturnValue: false, DoNotOverride: true},
	{Name: "__cxa_begin_catch", Handler: handleBeginCatch, HasReturnValue: false},
	{Name: "__cxa_end_catch", Handler: handleEndCatch, HasReturnValue: false},
	{Name: "_Unwind_RaiseException", Handler: handleUnwindRaise, NoReturn: true},
	{Name: "_Unwind_Resume", Handler: handleUnwindResume, NoReturn: true},
	{Name: "klee_alias_function", Handler: handleAliasFunction, HasReturnValue: false},
	{Name: "klee_alias_function_regex", Handler: handleAliasFunctionRegex, HasReturnValue: false},
	{Name: "klee_alias_undo", Handler: handleAliasUndo, HasReturnValue: false},
	{Name: "klee_intercept_reads", Handler: handleInterceptReads, HasReturnValue: false},
	{Name: "klee_intercept_writes", Handler: handleInterceptWrites, HasReturnValue: false},
	{Name: "klee_open_merge", Handler: handleOpenMerge, HasReturnValue: false},
	{Name: "klee_close_merge", Handler: handleCloseMerge, HasReturnValue: false},
	{Name: "klee_trace_param_val", Handler: handleTraceParamValue, HasReturnValue: false},
	{Name: "klee_trace_param_ptr", Handler: handleTraceParamPtr, HasReturnValue: false},
	{Name: "klee_trace_param_field", Handler: handleTraceParamField, HasReturnValue: false},
	{Name: "klee_trace_param_nested_field", Handler: handleTraceParamNestedField, HasReturnValue: false},
	{Name: "klee_trace_param_fptr", Handler: handleTraceParamFunPtr, HasReturnValue: false},
	{Name: "klee_trace_ret_val", Handler: handleTraceRetValue, HasReturnValue: false},
	{Name: "klee_trace_ret_ptr", Handler: handleTraceRetPtr, HasReturnValue: false},
	{Name: "klee_trace_ret_field", Handler: handleTraceRetField, HasReturnValue: false},
	{Name: "klee_trace_ret_nested_field", Handler: handleTraceRetNestedField, HasReturnValue: false},
	{Name: "klee_trace_extra_val", Handler: handleTraceExtraValue, HasReturnValue: false},
	{Name: "klee_trace_extra_ptr_field", Handler: handleTraceExtraPtrField, HasReturnValue: false},
	{Name: "klee_trace_extra_ptr_nested_field", Handler: handleTraceExtraPtrNestedField, HasReturnValue: false},
	{Name: "klee_trace_extra_ptr_nested_nested_field", Handler: handleTraceExtraPtrNestedNestedField, HasReturnValue: false},
	{Name: "klee_trace_extra_fptr", Handler: handleTraceExtraFPtr, HasReturnValue: false},
}

// boundHandler is a HandlerInfo resolved to the function identity it
// will actually run for: the lookup key intrinsic dispatch uses.
type boundHandler struct {
	Info *HandlerInfo
}

// Dispatcher is the bind-time product of Prepare: a name -> handler map
// built once per module, not re-walked on every call.
type Dispatcher struct {
	byName map[string]*boundHandler
}

// Prepare validates the static table (no duplicate names) -- the
// module-prep step that, in a full interpreter, would also delete the
// body of every intrinsic unless DoNotOverride is set and the analyzed
// module already defines it.
func Prepare() error {
	seen := make(map[string]bool, len(handlerTable))
	for _, h := range handlerTable {
		if seen[h.Name] {
			return errExec("duplicate intrinsic handler registered for %q", h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

// Bind builds the name -> handler map. definedInModule reports which
// symbol names the analyzed module itself defines, so a DoNotOverride
// entry whose name is already defined is skipped (the module's own
// definition wins).
func Bind(definedInModule func(name string) bool) *Dispatcher {
	d := &Dispatcher{byName: make(map[string]*boundHandler, len(handlerTable))}
	for i := range handlerTable {
		h := &handlerTable[i]
		if h.DoNotOverride && definedInModule != nil && definedInModule(h.Name) {
			continue
		}
		d.byName[h.Name] = &boundHandler{Info: h}
	}
	return d
}

// Handle dispatches a call to name, or reports KindUnhandled if name has
// no bound handler.
func (d *Dispatcher) Handle(s *ExecutionState, name string, args []expr.Expr) (expr.Expr, *StateError) {
	bh, ok := d.byName[name]
	if !ok {
		return nil, errUnhandled("no intrinsic handler bound for %q", name)
	}
	return bh.Info.Handler(s, args)
}

// readStringAtAddress reads a NUL-terminated byte string starting at
// object id, offset 0, from a single concrete ObjectState. A symbolic
// pointer (the object can't be resolved to exactly one concrete id) is
// a user error: the analyzed program passed klee a string whose address
// itself depends on unconstrained input, which this core can't resolve
// without a solver-backed pointer resolution step out of its scope.
func readStringAtAddress(s *ExecutionState, id addrspace.ObjectID) (string, *StateError) {
	os, ok := s.AddressSpace.FindObject(id)
	if !ok {
		return "", errPtr("klee intrinsic: object %d not bound", id)
	}
	if !os.Accessible {
		return "", errInaccessible("klee intrinsic: object %d is not currently accessible", id)
	}
	var buf []byte
	for _, cell := range os.Bytes {
		c, ok := cell.(*expr.Constant)
		if !ok {
			return "", errUser("klee intrinsic: string argument at object %d is symbolic, not a concrete byte", id)
		}
		if c.Val == 0 {
			return string(buf), nil
		}
		buf = append(buf, byte(c.Val))
	}
	return "", errUser("klee intrinsic: string argument at object %d is not NUL-terminated", id)
}

func argConst(args []expr.Expr, i int) (uint64, bool) {
	if i >= len(args) {
		return 0, false
	}
	c, ok := args[i].(*expr.Constant)
	if !ok {
		return 0, false
	}
	return c.Val, true
}

// argName resolves args[i] to a concrete object id and reads a
// NUL-terminated string starting at it -- the calling convention every
// name/label argument below uses (function names, array names, handler
// names), rather than bothering the caller with a separate string type.
func argName(s *ExecutionState, args []expr.Expr, i int) (string, *StateError) {
	id, ok := argConst(args, i)
	if !ok {
		return "", errUser("expected a concrete name-pointer argument at position %d", i)
	}
	return readStringAtAddress(s, addrspace.ObjectID(id))
}

func argInt(args []expr.Expr, i int) (int, bool) {
	v, ok := argConst(args, i)
	return int(v), ok
}

func argDir(args []expr.Expr, i int) (Direction, bool) {
	v, ok := argConst(args, i)
	if !ok || v > uint64(DirBoth) {
		return DirNone, false
	}
	return Direction(v), true
}

func handleSilentExit(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, errUser("klee_silent_exit")
}

func handleReportError(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, errReport("klee_report_error")
}

func handleAbort(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, errAssert("abort")
}

func handleAssertFail(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, errAssert("assertion failed")
}

func handleMakeSymbolic(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_make_symbolic: expected a concrete object id")
	}
	size, ok := argConst(args, 1)
	if !ok || size == 0 {
		return nil, errUser("klee_make_symbolic: expected a nonzero concrete size")
	}
	name, serr := argName(s, args, 2)
	if serr != nil {
		return nil, serr
	}

	id := addrspace.ObjectID(addr)
	os, ok := s.AddressSpace.FindObject(id)
	if !ok {
		return nil, errPtr("klee_make_symbolic: object %d not bound", addr)
	}
	if uint64(len(os.Bytes)) != size {
		return nil, errUser("klee_make_symbolic: size %d does not match object %d's actual size %d", size, addr, len(os.Bytes))
	}
	if !os.Accessible {
		return nil, errInaccessible("klee_make_symbolic: object %d is not currently accessible", addr)
	}

	s.AddSymbolic(os.Object, s.havocs.freshName(name))
	return nil, nil
}

func handleMarkGlobal(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, nil
}

func handleAssume(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if len(args) < 1 {
		return nil, errUser("klee_assume: missing condition argument")
	}
	s.AddConstraint(args[0])
	return nil, nil
}

func handleIsSymbolic(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if len(args) < 1 {
		return expr.NewConstant(0, 32), nil
	}
	if _, isConst := args[0].(*expr.Constant); isConst {
		return expr.NewConstant(0, 32), nil
	}
	return expr.NewConstant(1, 32), nil
}

func handlePreferCex(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if len(args) < 2 {
		return nil, errUser("klee_prefer_cex: expected (object, condition)")
	}
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_prefer_cex: expected a concrete object id")
	}
	os, ok := s.AddressSpace.GetWriteable(addrspace.ObjectID(addr))
	if !ok {
		return nil, errPtr("klee_prefer_cex: object %d not bound", addr)
	}
	os.CexPreferences = append(os.CexPreferences, args[1])
	return nil, nil
}

func handlePrintExpr(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if len(args) < 2 {
		return nil, errUser("klee_print_expr: expected (label, value)")
	}
	s.log.tracef(DebugVerbose, "klee_print_expr: %s", args[1])
	return nil, nil
}

func handleGetValue(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if len(args) < 1 {
		return nil, errUser("klee_get_value: missing argument")
	}
	if c, ok := args[0].(*expr.Constant); ok {
		return c, nil
	}
	return expr.NewConstant(0, args[0].Width()), nil
}

func handleDefineFixedObject(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, nil
}

func handleForbidAccess(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_forbid_access: expected a concrete object id")
	}
	if !s.ForbidAccess(addrspace.ObjectID(addr)) {
		return nil, errPtr("klee_forbid_access: object %d not bound", addr)
	}
	return nil, nil
}

func handleAllowAccess(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_allow_access: expected a concrete object id")
	}
	if !s.AllowAccess(addrspace.ObjectID(addr)) {
		return nil, errPtr("klee_allow_access: object %d not bound", addr)
	}
	return nil, nil
}

func handleDumpConstraints(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	for i := 0; i < s.Constraints.Len(); i++ {
		s.log.tracef(DebugVerbose, "constraint[%d]: %s", i, s.Constraints.At(i))
	}
	return nil, nil
}

// handlePossiblyHavoc is the "no array yet" declaration step of the
// forgetting protocol: it registers id into the havoc registry under a
// reserved name so the loop fixpoint's makeRestartState is later allowed
// to generalize its bytes, without itself installing any symbolic
// array -- that happens only once a round actually shows the bytes may
// differ.
func handlePossiblyHavoc(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_possibly_havoc: expected a concrete object id")
	}
	size, ok := argConst(args, 1)
	if !ok {
		return nil, errUser("klee_possibly_havoc: expected a concrete size")
	}
	name, serr := argName(s, args, 2)
	if serr != nil {
		return nil, serr
	}

	id := addrspace.ObjectID(addr)
	os, ok := s.AddressSpace.FindObject(id)
	if !ok {
		return nil, errPtr("klee_possibly_havoc: object %d not bound", addr)
	}
	if uint64(len(os.Bytes)) != size {
		return nil, errUser("klee_possibly_havoc: size %d does not match object %d's actual size %d", size, addr, len(os.Bytes))
	}
	if _, already := s.havocs.Lookup(id); already {
		return nil, nil
	}
	s.havocs.register(id, &HavocInfo{ArrayName: s.havocs.freshName(name), Mask: NewByteMask(len(os.Bytes))})
	return nil, nil
}

func handleInduceInvariants(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if s.LoopInProcess == nil {
		return nil, errUser("klee_induce_invariants: no loop invariant search in progress")
	}
	InduceInvariantsForThisLoop(s.LoopInProcess.RestartState, s.LoopInProcess)
	return nil, nil
}

func handleMalloc(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	sz, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("malloc: expected a concrete size")
	}
	_ = sz
	return expr.NewConstant(0, 64), nil
}

func handleMemalign(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return handleMalloc(s, args)
}

func handleFree(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	return nil, nil
}

func handleBeginCatch(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if cp, ok := s.Unwinding.(*CleanupPhaseUnwindingInformation); ok {
		_ = cp
		return nil, nil
	}
	return nil, errExec("__cxa_begin_catch: not currently unwinding")
}

func handleEndCatch(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	s.Unwinding = nil
	return nil, nil
}

func handleUnwindRaise(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	s.Unwinding = &SearchPhaseUnwindingInformation{PhaseStackIndex: len(s.Stack) - 1}
	return nil, errUser("_Unwind_RaiseException")
}

func handleUnwindResume(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	cp, ok := s.Unwinding.(*CleanupPhaseUnwindingInformation)
	if !ok {
		return nil, errExec("_Unwind_Resume: not in cleanup phase")
	}
	_ = cp
	return nil, errUser("_Unwind_Resume")
}

// --- function aliasing ---

func handleAliasFunction(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	from, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	to, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	s.AddFnAlias(from, to)
	return nil, nil
}

func handleAliasFunctionRegex(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	pattern, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	to, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	if err := s.AddFnRegexAlias(pattern, to); err != nil {
		return nil, errUser("klee_alias_function_regex: invalid pattern %q: %v", pattern, err)
	}
	return nil, nil
}

func handleAliasUndo(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	key, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	s.RemoveFnAlias(key)
	return nil, nil
}

// --- hardware-modeling intercepts ---

func handleInterceptReads(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_intercept_reads: expected a concrete address")
	}
	handler, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	s.AddReadsIntercept(addr, handler)
	return nil, nil
}

func handleInterceptWrites(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	addr, ok := argConst(args, 0)
	if !ok {
		return nil, errUser("klee_intercept_writes: expected a concrete address")
	}
	handler, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	s.AddWritesIntercept(addr, handler)
	return nil, nil
}

// --- open/close merge regions ---

func handleOpenMerge(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	s.OpenMerge()
	return nil, nil
}

func handleCloseMerge(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	if _, ok := s.CloseMerge(); !ok {
		s.log.tracef(DebugMerge, "klee_close_merge: no matching klee_open_merge, ignoring")
	}
	return nil, nil
}

// --- call-path tracing ---
//
// Every trace_* intrinsic below takes the traced function's name as a
// name-pointer argument: this core has no other way to recover the
// callee's symbol from inside a handler, since StackFrame does not carry
// it (see CallInfo's calltrace.go wrappers for the capture discipline
// itself). dir arguments are the 2-bit enum (NONE=0, IN=1, OUT=2,
// BOTH=3) encoded as a concrete integer.

func handleTraceParamValue(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	i, ok := argInt(args, 1)
	if !ok {
		return nil, errUser("klee_trace_param_val: expected a concrete argument index")
	}
	if len(args) < 3 {
		return nil, errUser("klee_trace_param_val: missing value argument")
	}
	s.TraceParamValue(fn, i, args[2])
	return nil, nil
}

func handleTraceParamPtr(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	i, ok := argInt(args, 1)
	if !ok {
		return nil, errUser("klee_trace_param_ptr: expected a concrete argument index")
	}
	s.TraceParamPtr(fn, i)
	return nil, nil
}

func handleTraceParamField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	i, ok := argInt(args, 1)
	if !ok {
		return nil, errUser("klee_trace_param_field: expected a concrete argument index")
	}
	offset, ok := argInt(args, 2)
	if !ok {
		return nil, errUser("klee_trace_param_field: expected a concrete offset")
	}
	size, ok := argInt(args, 3)
	if !ok {
		return nil, errUser("klee_trace_param_field: expected a concrete size")
	}
	dir, ok := argDir(args, 4)
	if !ok {
		return nil, errUser("klee_trace_param_field: expected a valid direction enum")
	}
	if len(args) < 6 {
		return nil, errUser("klee_trace_param_field: missing value argument")
	}
	s.TraceParamField(fn, i, offset, size, dir, args[5])
	return nil, nil
}

func handleTraceParamNestedField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	i, ok := argInt(args, 1)
	if !ok {
		return nil, errUser("klee_trace_param_nested_field: expected a concrete argument index")
	}
	offset, ok1 := argInt(args, 2)
	size, ok2 := argInt(args, 3)
	offset2, ok3 := argInt(args, 4)
	size2, ok4 := argInt(args, 5)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errUser("klee_trace_param_nested_field: expected concrete offset/size arguments")
	}
	dir, ok := argDir(args, 6)
	if !ok {
		return nil, errUser("klee_trace_param_nested_field: expected a valid direction enum")
	}
	if len(args) < 8 {
		return nil, errUser("klee_trace_param_nested_field: missing value argument")
	}
	s.TraceParamNestedField(fn, i, offset, size, offset2, size2, dir, args[7])
	return nil, nil
}

func handleTraceParamFunPtr(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	i, ok := argInt(args, 1)
	if !ok {
		return nil, errUser("klee_trace_param_fptr: expected a concrete argument index")
	}
	name, serr := argName(s, args, 2)
	if serr != nil {
		return nil, serr
	}
	nameClass, serr := argName(s, args, 3)
	if serr != nil {
		return nil, serr
	}
	s.TraceParamFunPtr(fn, i, name, nameClass)
	return nil, nil
}

func handleTraceRetValue(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	if len(args) < 2 {
		return nil, errUser("klee_trace_ret_val: missing value argument")
	}
	s.TraceRetValue(fn, args[1])
	return nil, nil
}

func handleTraceRetPtr(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	s.TraceRetPtr(fn)
	return nil, nil
}

func handleTraceRetField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	offset, ok := argInt(args, 1)
	if !ok {
		return nil, errUser("klee_trace_ret_field: expected a concrete offset")
	}
	size, ok := argInt(args, 2)
	if !ok {
		return nil, errUser("klee_trace_ret_field: expected a concrete size")
	}
	dir, ok := argDir(args, 3)
	if !ok {
		return nil, errUser("klee_trace_ret_field: expected a valid direction enum")
	}
	if len(args) < 5 {
		return nil, errUser("klee_trace_ret_field: missing value argument")
	}
	s.TraceRetField(fn, offset, size, dir, args[4])
	return nil, nil
}

func handleTraceRetNestedField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	offset, ok1 := argInt(args, 1)
	size, ok2 := argInt(args, 2)
	offset2, ok3 := argInt(args, 3)
	size2, ok4 := argInt(args, 4)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errUser("klee_trace_ret_nested_field: expected concrete offset/size arguments")
	}
	dir, ok := argDir(args, 5)
	if !ok {
		return nil, errUser("klee_trace_ret_nested_field: expected a valid direction enum")
	}
	if len(args) < 7 {
		return nil, errUser("klee_trace_ret_nested_field: missing value argument")
	}
	s.TraceRetNestedField(fn, offset, size, offset2, size2, dir, args[6])
	return nil, nil
}

func handleTraceExtraValue(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	name, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	if len(args) < 3 {
		return nil, errUser("klee_trace_extra_val: missing value argument")
	}
	s.TraceExtraValue(fn, name, args[2])
	return nil, nil
}

func handleTraceExtraPtrField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	name, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	offset, ok := argInt(args, 2)
	if !ok {
		return nil, errUser("klee_trace_extra_ptr_field: expected a concrete offset")
	}
	size, ok := argInt(args, 3)
	if !ok {
		return nil, errUser("klee_trace_extra_ptr_field: expected a concrete size")
	}
	dir, ok := argDir(args, 4)
	if !ok {
		return nil, errUser("klee_trace_extra_ptr_field: expected a valid direction enum")
	}
	if len(args) < 6 {
		return nil, errUser("klee_trace_extra_ptr_field: missing value argument")
	}
	s.TraceExtraPtrField(fn, name, offset, size, dir, args[5])
	return nil, nil
}

func handleTraceExtraPtrNestedField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	name, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	offset, ok1 := argInt(args, 2)
	size, ok2 := argInt(args, 3)
	offset2, ok3 := argInt(args, 4)
	size2, ok4 := argInt(args, 5)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errUser("klee_trace_extra_ptr_nested_field: expected concrete offset/size arguments")
	}
	dir, ok := argDir(args, 6)
	if !ok {
		return nil, errUser("klee_trace_extra_ptr_nested_field: expected a valid direction enum")
	}
	if len(args) < 8 {
		return nil, errUser("klee_trace_extra_ptr_nested_field: missing value argument")
	}
	s.TraceExtraPtrNestedField(fn, name, offset, size, offset2, size2, dir, args[7])
	return nil, nil
}

func handleTraceExtraPtrNestedNestedField(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	name, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	o1, ok1 := argInt(args, 2)
	s1, ok2 := argInt(args, 3)
	o2, ok3 := argInt(args, 4)
	s2, ok4 := argInt(args, 5)
	o3, ok5 := argInt(args, 6)
	s3, ok6 := argInt(args, 7)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, errUser("klee_trace_extra_ptr_nested_nested_field: expected concrete offset/size arguments")
	}
	dir, ok := argDir(args, 8)
	if !ok {
		return nil, errUser("klee_trace_extra_ptr_nested_nested_field: expected a valid direction enum")
	}
	if len(args) < 10 {
		return nil, errUser("klee_trace_extra_ptr_nested_nested_field: missing value argument")
	}
	s.TraceExtraPtrNestedNestedField(fn, name, o1, s1, o2, s2, o3, s3, dir, args[9])
	return nil, nil
}

func handleTraceExtraFPtr(s *ExecutionState, args []expr.Expr) (expr.Expr, *StateError) {
	fn, serr := argName(s, args, 0)
	if serr != nil {
		return nil, serr
	}
	name, serr := argName(s, args, 1)
	if serr != nil {
		return nil, serr
	}
	fnName, serr := argName(s, args, 2)
	if serr != nil {
		return nil, serr
	}
	nameClass, serr := argName(s, args, 3)
	if serr != nil {
		return nil, serr
	}
	s.TraceExtraFPtr(fn, name, fnName, nameClass)
	return nil, nil
}
