package symexec

import "github.com/fkuehnel/symexec-core/addrspace"

// InstCursor is an opaque reference to a point in the analyzed program's
// instruction stream. The front end that actually parses and steps
// instructions is out of scope for this core; callers supply whatever
// comparable value identifies a location (a function+block+offset
// triple is the usual shape).
type InstCursor interface{}

// Cell is one call-frame local: the value register holds, which may be
// concrete or symbolic.
type Cell = interface{}

// StackFrame is one entry of ExecutionState.Stack: a call's return
// cursor, its local register file, and the objects (allocas, a
// vararg buffer) it owns and must release on pop.
type StackFrame struct {
	Caller                     InstCursor
	Locals                     []Cell
	Allocas                    []addrspace.ObjectID
	Varargs                    addrspace.ObjectID
	MinDistToUncoveredOnReturn uint32
}

// clone returns an independent copy: Locals is copied byte-by-byte (cell
// by cell) since a fork must let each branch mutate its own locals
// without disturbing the other; Allocas is copied because popFrame on
// one branch must not unbind objects the other branch still owns.
func (f *StackFrame) clone() *StackFrame {
	cp := &StackFrame{
		Caller:                     f.Caller,
		Varargs:                    f.Varargs,
		MinDistToUncoveredOnReturn: f.MinDistToUncoveredOnReturn,
	}
	cp.Locals = append(cp.Locals, f.Locals...)
	cp.Allocas = append(cp.Allocas, f.Allocas...)
	return cp
}

// NewStackFrame returns a frame with numLocals zero-valued registers.
func NewStackFrame(caller InstCursor, numLocals int) *StackFrame {
	return &StackFrame{Caller: caller, Locals: make([]Cell, numLocals)}
}
