package symexec

import (
	"testing"

	"github.com/fkuehnel/symexec-core/addrspace"
	"github.com/fkuehnel/symexec-core/expr"
)

func TestPrepareAcceptsStaticTable(t *testing.T) {
	if err := Prepare(); err != nil {
		t.Fatalf("Prepare on the static table: %v", err)
	}
}

func TestBindSkipsDoNotOverrideWhenModuleDefinesIt(t *testing.T) {
	d := Bind(func(name string) bool { return name == "malloc" })
	if _, ok := d.byName["malloc"]; ok {
		t.Fatalf("malloc is DoNotOverride and the module defines it; Bind should have skipped it")
	}
	if _, ok := d.byName["free"]; !ok {
		t.Fatalf("free was not claimed by the module and should still be bound")
	}
}

func TestHandleUnhandledIntrinsic(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	_, err := d.Handle(s, "nonexistent_intrinsic", nil)
	if err == nil || err.Kind != KindUnhandled {
		t.Fatalf("Handle on an unbound name should return KindUnhandled, got %v", err)
	}
}

func TestHandleAssumeAddsConstraint(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	cond := expr.Eq(expr.NewSymbol("x", 32), expr.NewConstant(1, 32))
	if _, err := d.Handle(s, "klee_assume", []expr.Expr{cond}); err != nil {
		t.Fatalf("klee_assume: %v", err)
	}
	if s.Constraints.Len() != 1 || !expr.Equal(s.Constraints.At(0), cond) {
		t.Fatalf("klee_assume should append its condition to the constraint set")
	}
}

func TestHandleForbidThenAllowAccess(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 3, Name: "g", Size: 4}
	s.AddressSpace.BindObject(mo)

	if _, err := d.Handle(s, "klee_forbid_access", []expr.Expr{expr.NewConstant(3, 64)}); err != nil {
		t.Fatalf("klee_forbid_access: %v", err)
	}
	os, _ := s.AddressSpace.FindObject(3)
	if os.Accessible {
		t.Fatalf("object should be inaccessible after klee_forbid_access")
	}

	if _, err := d.Handle(s, "klee_allow_access", []expr.Expr{expr.NewConstant(3, 64)}); err != nil {
		t.Fatalf("klee_allow_access: %v", err)
	}
	os, _ = s.AddressSpace.FindObject(3)
	if !os.Accessible {
		t.Fatalf("object should be accessible again after klee_allow_access")
	}
}

func TestReadStringAtAddress(t *testing.T) {
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 9, Name: "str", Size: 4}
	os := s.AddressSpace.BindObject(mo)
	for i, c := range []byte("hi\x00") {
		os.Bytes[i] = expr.NewConstant(uint64(c), 8)
	}

	got, err := readStringAtAddress(s, 9)
	if err != nil {
		t.Fatalf("readStringAtAddress: %v", err)
	}
	if got != "hi" {
		t.Fatalf("readStringAtAddress = %q, want %q", got, "hi")
	}
}

func TestReadStringAtAddressRejectsSymbolicByte(t *testing.T) {
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 10, Name: "str", Size: 2}
	os := s.AddressSpace.BindObject(mo)
	os.Bytes[0] = expr.NewSymbol("unknown_byte", 8)

	_, err := readStringAtAddress(s, 10)
	if err == nil || err.Kind != KindUser {
		t.Fatalf("a symbolic byte in a string argument should be a KindUser error, got %v", err)
	}
}

// bindCString binds a fresh object at id holding s NUL-terminated, the
// calling convention every name-pointer argument below uses.
func bindCString(state *ExecutionState, id addrspace.ObjectID, s string) {
	mo := &addrspace.MemoryObject{ID: id, Name: s, Size: len(s) + 1}
	os := state.AddressSpace.BindObject(mo)
	for i, c := range []byte(s) {
		os.Bytes[i] = expr.NewConstant(uint64(c), 8)
	}
	os.Bytes[len(s)] = expr.NewConstant(0, 8)
}

func TestHandleMakeSymbolicInstallsFreshArray(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 20, Name: "buf", Size: 4}
	os := s.AddressSpace.BindObject(mo)
	os.Bytes[0] = expr.NewConstant(0xAA, 8)
	bindCString(s, 21, "buf_name")

	args := []expr.Expr{expr.NewConstant(20, 64), expr.NewConstant(4, 64), expr.NewConstant(21, 64)}
	if _, err := d.Handle(s, "klee_make_symbolic", args); err != nil {
		t.Fatalf("klee_make_symbolic: %v", err)
	}

	got, _ := s.AddressSpace.FindObject(20)
	for i, cell := range got.Bytes {
		sym, ok := cell.(*expr.Symbol)
		if !ok || sym.Name != "buf_name" {
			t.Fatalf("byte %d = %v, want a Symbol named buf_name", i, cell)
		}
	}
	if len(s.Symbolics) != 1 || s.Symbolics[0].ArrayName != "buf_name" {
		t.Fatalf("Symbolics = %+v, want one binding named buf_name", s.Symbolics)
	}
}

func TestHandleMakeSymbolicRejectsSizeMismatch(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 22, Name: "buf", Size: 4}
	s.AddressSpace.BindObject(mo)
	bindCString(s, 23, "buf_name")

	args := []expr.Expr{expr.NewConstant(22, 64), expr.NewConstant(8, 64), expr.NewConstant(23, 64)}
	_, err := d.Handle(s, "klee_make_symbolic", args)
	if err == nil || err.Kind != KindUser {
		t.Fatalf("size mismatch should be a KindUser error, got %v", err)
	}
}

func TestHandlePossiblyHavocRegistersWithoutAnArrayYet(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 30, Name: "acc", Size: 4}
	os := s.AddressSpace.BindObject(mo)
	os.Bytes[0] = expr.NewConstant(10, 8)
	bindCString(s, 31, "acc_havoc")

	args := []expr.Expr{expr.NewConstant(30, 64), expr.NewConstant(4, 64), expr.NewConstant(31, 64)}
	if _, err := d.Handle(s, "klee_possibly_havoc", args); err != nil {
		t.Fatalf("klee_possibly_havoc: %v", err)
	}

	info, ok := s.havocs.Lookup(30)
	if !ok {
		t.Fatalf("object 30 should now be registered in the havoc registry")
	}
	if info.Mask.Count() != 0 {
		t.Fatalf("a freshly declared havoc should have no bytes marked differing yet, got %d", info.Mask.Count())
	}
	if _, isConst := os.Bytes[0].(*expr.Constant); !isConst {
		t.Fatalf("possibly_havoc alone should not replace any bytes: %v", os.Bytes[0])
	}
}

func TestHandleAliasFunctionRoundTrip(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	bindCString(s, 40, "foo")
	bindCString(s, 41, "bar")

	if _, err := d.Handle(s, "klee_alias_function", []expr.Expr{expr.NewConstant(40, 64), expr.NewConstant(41, 64)}); err != nil {
		t.Fatalf("klee_alias_function: %v", err)
	}
	if target, ok := s.GetFnAlias("foo"); !ok || target != "bar" {
		t.Fatalf("GetFnAlias(foo) = %q,%v, want bar,true", target, ok)
	}

	if _, err := d.Handle(s, "klee_alias_undo", []expr.Expr{expr.NewConstant(40, 64)}); err != nil {
		t.Fatalf("klee_alias_undo: %v", err)
	}
	if _, ok := s.GetFnAlias("foo"); ok {
		t.Fatalf("alias_undo should have removed the foo alias")
	}
}

func TestHandleAliasFunctionRegex(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	bindCString(s, 42, "foo.*")
	bindCString(s, 43, "bar")

	if _, err := d.Handle(s, "klee_alias_function_regex", []expr.Expr{expr.NewConstant(42, 64), expr.NewConstant(43, 64)}); err != nil {
		t.Fatalf("klee_alias_function_regex: %v", err)
	}
	if target, ok := s.GetFnAlias("foobar"); !ok || target != "bar" {
		t.Fatalf("GetFnAlias(foobar) = %q,%v, want bar,true", target, ok)
	}
}

func TestHandleInterceptReadsAndWrites(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	bindCString(s, 50, "mmio_read")
	bindCString(s, 51, "mmio_write")

	if _, err := d.Handle(s, "klee_intercept_reads", []expr.Expr{expr.NewConstant(0x1000, 64), expr.NewConstant(50, 64)}); err != nil {
		t.Fatalf("klee_intercept_reads: %v", err)
	}
	if s.ReadsIntercepts[0x1000] != "mmio_read" {
		t.Fatalf("ReadsIntercepts[0x1000] = %q, want mmio_read", s.ReadsIntercepts[0x1000])
	}

	if _, err := d.Handle(s, "klee_intercept_writes", []expr.Expr{expr.NewConstant(0x1000, 64), expr.NewConstant(51, 64)}); err != nil {
		t.Fatalf("klee_intercept_writes: %v", err)
	}
	if s.WritesIntercepts[0x1000] != "mmio_write" {
		t.Fatalf("WritesIntercepts[0x1000] = %q, want mmio_write", s.WritesIntercepts[0x1000])
	}
}

func TestHandleOpenCloseMerge(t *testing.T) {
	d := Bind(nil)
	s := New("entry")

	if _, err := d.Handle(s, "klee_open_merge", nil); err != nil {
		t.Fatalf("klee_open_merge: %v", err)
	}
	if len(s.OpenMergeStack) != 1 {
		t.Fatalf("OpenMergeStack len = %d, want 1", len(s.OpenMergeStack))
	}
	if _, err := d.Handle(s, "klee_close_merge", nil); err != nil {
		t.Fatalf("klee_close_merge: %v", err)
	}
	if len(s.OpenMergeStack) != 0 {
		t.Fatalf("OpenMergeStack len = %d, want 0", len(s.OpenMergeStack))
	}

	// an unmatched close is a warning, not a state-ending error.
	if _, err := d.Handle(s, "klee_close_merge", nil); err != nil {
		t.Fatalf("klee_close_merge without a matching open should not fail the state: %v", err)
	}
}

func TestHandleTraceParamAndRetDispatch(t *testing.T) {
	d := Bind(nil)
	s := New("entry")
	bindCString(s, 60, "f")

	val := expr.NewConstant(7, 32)
	if _, err := d.Handle(s, "klee_trace_param_val", []expr.Expr{expr.NewConstant(60, 64), expr.NewConstant(0, 64), val}); err != nil {
		t.Fatalf("klee_trace_param_val: %v", err)
	}
	if len(s.CallPath) != 1 || !expr.Equal(s.CallPath[0].Args[0].Value, val) {
		t.Fatalf("expected f's arg 0 traced as %v, got %+v", val, s.CallPath)
	}

	ret := expr.NewConstant(9, 32)
	if _, err := d.Handle(s, "klee_trace_ret_val", []expr.Expr{expr.NewConstant(60, 64), ret}); err != nil {
		t.Fatalf("klee_trace_ret_val: %v", err)
	}
	if !s.CallPath[0].Returned || !expr.Equal(s.CallPath[0].Ret.Value, ret) {
		t.Fatalf("expected f to be marked returned with ret %v, got %+v", ret, s.CallPath[0])
	}
}
