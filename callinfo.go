package symexec

import "github.com/fkuehnel/symexec-core/expr"

// Direction records which side(s) of a call a traced value was observed
// on: an argument field read by the callee is IN, one written before
// return is OUT, one both read and written is BOTH.
type Direction int

const (
	DirNone Direction = 0
	DirIn   Direction = 1 << 0
	DirOut  Direction = 1 << 1
	DirBoth           = DirIn | DirOut
)

func (d Direction) add(other Direction) Direction { return d | other }

// FieldDescr is one (offset, size) slice of a traced pointer argument's
// pointee, holding the value(s) observed there and, if that slice is
// itself a pointer the callee dereferenced, the nested FieldDescr tree
// for its pointee. Observed nesting in practice goes three levels deep
// (a struct field that is a pointer to a struct with a pointer field),
// but the type itself places no limit.
type FieldDescr struct {
	Offset int
	Size   int
	Dir    Direction
	InVal  expr.Expr
	OutVal expr.Expr
	Fields map[int]*FieldDescr
}

func newFieldDescr(offset, size int) *FieldDescr {
	return &FieldDescr{Offset: offset, Size: size, Fields: make(map[int]*FieldDescr)}
}

// fieldAt returns the FieldDescr covering (offset, size) within fd's
// Fields, creating it if this is the first time that slice was traced.
func (fd *FieldDescr) fieldAt(offset, size int) *FieldDescr {
	child, ok := fd.Fields[offset]
	if !ok {
		child = newFieldDescr(offset, size)
		fd.Fields[offset] = child
	}
	return child
}

// eq is full structural equality: every offset, size, direction, value
// and nested field must match.
func (fd *FieldDescr) eq(other *FieldDescr) bool {
	if fd == nil || other == nil {
		return fd == other
	}
	if fd.Offset != other.Offset || fd.Size != other.Size || fd.Dir != other.Dir {
		return false
	}
	if !expr.Equal(fd.InVal, other.InVal) || !expr.Equal(fd.OutVal, other.OutVal) {
		return false
	}
	if len(fd.Fields) != len(other.Fields) {
		return false
	}
	for off, child := range fd.Fields {
		oc, ok := other.Fields[off]
		if !ok || !child.eq(oc) {
			return false
		}
	}
	return true
}

// CallArg is one direct (non-pointer) argument's traced value.
type CallArg struct {
	Value expr.Expr
}

// RetVal is a call's return value: Value for a direct scalar return, or
// Field describing the pointee of a pointer return.
type RetVal struct {
	Value expr.Expr
	Field *FieldDescr
}

// CallExtraVal is a named non-argument value traced at the call (e.g. a
// global read during the callee's execution).
type CallExtraVal struct {
	Name  string
	Value expr.Expr
}

// CallExtraPtr is a named non-argument pointer's traced pointee, as a
// FieldDescr tree the way a pointer argument's pointee is traced.
type CallExtraPtr struct {
	Name  string
	Field *FieldDescr
}

// CallExtraFPtr is a named function pointer, canonicalized to a small
// integer id within its name class so structurally-identical handlers
// with different symbol names still compare equal. FuncName is kept
// alongside CanonID so two unregistered function names -- CanonID -1 on
// both -- fall back to literal name comparison instead of all comparing
// equal to each other.
type CallExtraFPtr struct {
	Name     string
	FuncName string
	CanonID  int
}

func (f *CallExtraFPtr) sameFunc(other *CallExtraFPtr) bool {
	if f.CanonID >= 0 || other.CanonID >= 0 {
		return f.CanonID == other.CanonID
	}
	return f.FuncName == other.FuncName
}

// CallInfo is one entry of ExecutionState.CallPath: everything traced
// about a single call to Function, built incrementally as the callee
// runs (args and in-values as the call is entered, out-values and Ret
// once it returns). CallContext/ReturnContext are the relevant-constraint
// closures over, respectively, every inVal captured at entry and every
// outVal captured at return (see captureCallEntry/captureCallReturn in
// calltrace.go); they are ordered sets, so a constraint already folded
// in by one captured value is never duplicated by another.
type CallInfo struct {
	Function      string
	Args          []*CallArg
	ArgPtrs       map[int]*FieldDescr
	ArgFPtrs      map[int]*CallExtraFPtr
	ExtraVals     []*CallExtraVal
	ExtraPtrs     []*CallExtraPtr
	ExtraFPtrs    []*CallExtraFPtr
	Ret           *RetVal
	Returned      bool
	CallContext   *expr.ConstraintSet
	ReturnContext *expr.ConstraintSet

	// working is the relevant-constraint closure's growing symbol set
	// for this call: seeded from ExecutionState.RelevantSymbols when the
	// call starts, grown by every captured value (inVal or outVal
	// alike), in calltrace.go. It is scratch state for the capture
	// discipline, not part of what a call compares equal on.
	working expr.SymbolSet
}

func NewCallInfo(function string) *CallInfo {
	return &CallInfo{
		Function:      function,
		ArgPtrs:       make(map[int]*FieldDescr),
		ArgFPtrs:      make(map[int]*CallExtraFPtr),
		CallContext:   expr.NewConstraintSet(),
		ReturnContext: expr.NewConstraintSet(),
	}
}

// traceArgValue records arg i's direct value, captured at call time.
func (c *CallInfo) traceArgValue(i int, v expr.Expr) {
	for len(c.Args) <= i {
		c.Args = append(c.Args, nil)
	}
	c.Args[i] = &CallArg{Value: v}
}

// traceArgPtr records that arg i is a pointer and returns the root
// FieldDescr for its pointee, creating it on first use.
func (c *CallInfo) traceArgPtr(i int) *FieldDescr {
	fd, ok := c.ArgPtrs[i]
	if !ok {
		fd = newFieldDescr(0, 0)
		c.ArgPtrs[i] = fd
	}
	return fd
}

// traceArgPtrField records a direct (offset, size) slice read from (dir
// includes DirIn) or written to (dir includes DirOut) arg i's pointee.
func (c *CallInfo) traceArgPtrField(i, offset, size int, dir Direction, val expr.Expr) {
	root := c.traceArgPtr(i)
	f := root.fieldAt(offset, size)
	f.Dir = f.Dir.add(dir)
	if dir&DirIn != 0 {
		f.InVal = val
	}
	if dir&DirOut != 0 {
		f.OutVal = val
	}
}

// traceArgPtrNestedField is traceArgPtrField one level deeper: arg i's
// pointee at (offset, size) is itself a pointer, and (offset2, size2) is
// a slice of that pointee.
func (c *CallInfo) traceArgPtrNestedField(i, offset, size, offset2, size2 int, dir Direction, val expr.Expr) {
	root := c.traceArgPtr(i)
	mid := root.fieldAt(offset, size)
	leaf := mid.fieldAt(offset2, size2)
	leaf.Dir = leaf.Dir.add(dir)
	if dir&DirIn != 0 {
		leaf.InVal = val
	}
	if dir&DirOut != 0 {
		leaf.OutVal = val
	}
}

// traceArgFunPtr records arg i as a canonicalized function pointer.
func (c *CallInfo) traceArgFunPtr(i int, name string, nameClass string) {
	c.ArgFPtrs[i] = &CallExtraFPtr{Name: name, FuncName: name, CanonID: canonicalizeFuncPtr(nameClass, name)}
}

// traceRet records a direct scalar return value.
func (c *CallInfo) traceRet(v expr.Expr) {
	c.Ret = &RetVal{Value: v}
	c.Returned = true
}

// traceRetPtr marks the return value as a pointer and returns its root
// FieldDescr, creating the RetVal if this is the first trace on it.
func (c *CallInfo) traceRetPtr() *FieldDescr {
	if c.Ret == nil {
		c.Ret = &RetVal{}
	}
	if c.Ret.Field == nil {
		c.Ret.Field = newFieldDescr(0, 0)
	}
	return c.Ret.Field
}

func (c *CallInfo) traceRetPtrField(offset, size int, dir Direction, val expr.Expr) {
	root := c.traceRetPtr()
	f := root.fieldAt(offset, size)
	f.Dir = f.Dir.add(dir)
	if dir&DirIn != 0 {
		f.InVal = val
	}
	if dir&DirOut != 0 {
		f.OutVal = val
	}
}

func (c *CallInfo) traceRetPtrNestedField(offset, size, offset2, size2 int, dir Direction, val expr.Expr) {
	root := c.traceRetPtr()
	mid := root.fieldAt(offset, size)
	leaf := mid.fieldAt(offset2, size2)
	leaf.Dir = leaf.Dir.add(dir)
	if dir&DirIn != 0 {
		leaf.InVal = val
	}
	if dir&DirOut != 0 {
		leaf.OutVal = val
	}
}

// traceExtraValue records a named non-argument value.
func (c *CallInfo) traceExtraValue(name string, v expr.Expr) {
	for _, e := range c.ExtraVals {
		if e.Name == name {
			e.Value = v
			return
		}
	}
	c.ExtraVals = append(c.ExtraVals, &CallExtraVal{Name: name, Value: v})
}

func (c *CallInfo) extraPtrRoot(name string) *FieldDescr {
	for _, e := range c.ExtraPtrs {
		if e.Name == name {
			return e.Field
		}
	}
	fd := newFieldDescr(0, 0)
	c.ExtraPtrs = append(c.ExtraPtrs, &CallExtraPtr{Name: name, Field: fd})
	return fd
}

func (c *CallInfo) traceExtraPtrField(name string, offset, size int, dir Direction, val expr.Expr) {
	root := c.extraPtrRoot(name)
	f := root.fieldAt(offset, size)
	f.Dir = f.Dir.add(dir)
	if dir&DirIn != 0 {
		f.InVal = val
	}
	if dir&DirOut != 0 {
		f.OutVal = val
	}
}

func (c *CallInfo) traceExtraPtrNestedField(name string, offset, size, offset2, size2 int, dir Direction, val expr.Expr) {
	root := c.extraPtrRoot(name)
	mid := root.fieldAt(offset, size)
	leaf := mid.fieldAt(offset2, size2)
	leaf.Dir = leaf.Dir.add(dir)
	if dir&DirIn != 0 {
		leaf.InVal = val
	}
	if dir&DirOut != 0 {
		leaf.OutVal = val
	}
}

func (c *CallInfo) traceExtraPtrNestedNestedField(name string, o1, s1, o2, s2, o3, s3 int, dir Direction, val expr.Expr) {
	root := c.extraPtrRoot(name)
	l1 := root.fieldAt(o1, s1)
	l2 := l1.fieldAt(o2, s2)
	leaf := l2.fieldAt(o3, s3)
	leaf.Dir = leaf.Dir.add(dir)
	if dir&DirIn != 0 {
		leaf.InVal = val
	}
	if dir&DirOut != 0 {
		leaf.OutVal = val
	}
}

// traceExtraFPtr records a named non-argument function pointer, applying
// the same name-class canonicalization as traceArgFunPtr.
func (c *CallInfo) traceExtraFPtr(name, fnName, nameClass string) {
	for _, e := range c.ExtraFPtrs {
		if e.Name == name {
			e.FuncName = fnName
			e.CanonID = canonicalizeFuncPtr(nameClass, fnName)
			return
		}
	}
	c.ExtraFPtrs = append(c.ExtraFPtrs, &CallExtraFPtr{Name: name, FuncName: fnName, CanonID: canonicalizeFuncPtr(nameClass, fnName)})
}

// constraintSetsEqual reports whether a and b hold the same constraints
// as sets, ignoring insertion order.
func constraintSetsEqual(a, b *expr.ConstraintSet) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, c := range a.All() {
		if !b.Has(c) {
			return false
		}
	}
	return true
}

// sameInvocation reports whether a and b represent a call to the same
// function with the same direct argument values, function-pointer
// arguments, extra values, extra function pointers and call-context,
// deliberately excluding ExtraPtrs and any out-values: two calls can be
// the "same invocation" even if what they each wrote back out (or what
// some unrelated pointer happened to hold) differs. Pointer arguments'
// pointee trees (ArgPtrs) are not compared here, not even their
// in-values; eq compares them in full.
func sameInvocation(a, b *CallInfo) bool {
	if a.Function != b.Function || len(a.Args) != len(b.Args) {
		return false
	}
	if !constraintSetsEqual(a.CallContext, b.CallContext) {
		return false
	}
	for i := range a.Args {
		if !expr.Equal(argValue(a.Args[i]), argValue(b.Args[i])) {
			return false
		}
	}
	if len(a.ArgFPtrs) != len(b.ArgFPtrs) {
		return false
	}
	for i, af := range a.ArgFPtrs {
		bf, ok := b.ArgFPtrs[i]
		if !ok || !af.sameFunc(bf) {
			return false
		}
	}
	if len(a.ExtraVals) != len(b.ExtraVals) {
		return false
	}
	for _, ev := range a.ExtraVals {
		found := false
		for _, ov := range b.ExtraVals {
			if ov.Name == ev.Name && expr.Equal(ev.Value, ov.Value) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(a.ExtraFPtrs) != len(b.ExtraFPtrs) {
		return false
	}
	for _, ef := range a.ExtraFPtrs {
		found := false
		for _, of := range b.ExtraFPtrs {
			if of.Name == ef.Name && of.sameFunc(ef) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func argValue(a *CallArg) expr.Expr {
	if a == nil {
		return nil
	}
	return a.Value
}

// eq is full equality between two CallInfos: everything sameInvocation
// checks, plus pointer arguments' pointee trees (in- and out-values),
// the return context, ExtraPtrs and the return value.
func eq(a, b *CallInfo) bool {
	if !sameInvocation(a, b) {
		return false
	}
	if len(a.ArgPtrs) != len(b.ArgPtrs) {
		return false
	}
	for i, fd := range a.ArgPtrs {
		if !fd.eq(b.ArgPtrs[i]) {
			return false
		}
	}
	if !constraintSetsEqual(a.ReturnContext, b.ReturnContext) {
		return false
	}
	if a.Returned != b.Returned {
		return false
	}
	if (a.Ret == nil) != (b.Ret == nil) {
		return false
	}
	if a.Ret != nil {
		if !expr.Equal(a.Ret.Value, b.Ret.Value) || !a.Ret.Field.eq(b.Ret.Field) {
			return false
		}
	}
	if len(a.ExtraPtrs) != len(b.ExtraPtrs) {
		return false
	}
	for _, ep := range a.ExtraPtrs {
		found := false
		for _, op := range b.ExtraPtrs {
			if op.Name == ep.Name && ep.Field.eq(op.Field) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RelevantConstraints computes the fixpoint closure of constraints whose
// symbol set overlaps seed: start from seed, repeatedly add any
// constraint mentioning a symbol already in the growing set (and grow
// the set with that constraint's own symbols), until a pass adds
// nothing. This is the closure CallInfo's "what does this call actually
// depend on" query uses (see recordContext in calltrace.go).
func RelevantConstraints(cs *expr.ConstraintSet, seed expr.SymbolSet) []expr.Expr {
	live := expr.NewSymbolSet()
	live.Union(seed)
	included := make([]bool, cs.Len())
	for {
		changed := false
		for i := 0; i < cs.Len(); i++ {
			if included[i] {
				continue
			}
			names := expr.NewSymbolSet()
			expr.Names(cs.At(i), names)
			overlaps := false
			for n := range names {
				if live.Has(n) {
					overlaps = true
					break
				}
			}
			if overlaps {
				included[i] = true
				live.Union(names)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	var out []expr.Expr
	for i := 0; i < cs.Len(); i++ {
		if included[i] {
			out = append(out, cs.At(i))
		}
	}
	return out
}

// fptrCanonClasses maps a name class (e.g. "map_hash") to the small
// integer id assigned to each function name known to implement that
// class, so a caller comparing two CallExtraFPtr entries with different
// symbol names but the same semantic role (e.g. two differently-named
// hash functions over the same key type) can treat them as equal.
// Callers register their own name classes; none are predeclared here.
var fptrCanonClasses = map[string]map[string]int{}

// RegisterFuncPtrClass installs id as the canonical id for fnName within
// nameClass (e.g. RegisterFuncPtrClass("map_hash", "int_hash", 1)).
func RegisterFuncPtrClass(nameClass, fnName string, id int) {
	cls, ok := fptrCanonClasses[nameClass]
	if !ok {
		cls = make(map[string]int)
		fptrCanonClasses[nameClass] = cls
	}
	cls[fnName] = id
}

// canonicalizeFuncPtr returns fnName's registered id within nameClass,
// or -1 if the name was never registered (an unknown function pointer
// never compares equal to a known one, nor to another unknown one with
// a different name).
func canonicalizeFuncPtr(nameClass, fnName string) int {
	cls, ok := fptrCanonClasses[nameClass]
	if !ok {
		return -1
	}
	id, ok := cls[fnName]
	if !ok {
		return -1
	}
	return id
}
