// Package symexec implements the core of a symbolic-execution engine:
// the per-path ExecutionState, its fork/merge algorithms, the
// loop-invariant fixpoint driver that lets exploration terminate on
// unbounded loops, call-path tracing, intrinsic dispatch, and two-phase
// exception unwinding. Parsing and stepping the analyzed program's
// instructions is out of scope: callers drive ExecutionState through an
// interpreter loop built on top of this package.
package symexec

import (
	"sync/atomic"

	"github.com/fkuehnel/symexec-core/addrspace"
	"github.com/fkuehnel/symexec-core/expr"
)

var nextStateID uint32

func allocStateID() uint32 {
	return atomic.AddUint32(&nextStateID, 1)
}

// ExecutionState is one path through the analyzed program: its register
// file (Stack), its view of memory (AddressSpace), the path predicate
// accumulated so far (Constraints), the symbolic inputs that predicate
// is stated over (Symbolics), and the bookkeeping Branch/Merge/the loop
// fixpoint driver/call tracing/intrinsic dispatch all read and update.
type ExecutionState struct {
	ID    uint32
	Depth int

	PC     InstCursor
	PrevPC InstCursor

	Stack       []*StackFrame
	AddressSpace *addrspace.AddressSpace
	Constraints  *expr.ConstraintSet
	Symbolics    []SymbolicBinding

	havocs     *havocRegistry
	FnAliases  []*FunctionAlias

	ReadsIntercepts  map[uint64]string
	WritesIntercepts map[uint64]string

	LoopInProcess     *LoopInProcess
	AnalysedLoops     *loopSet
	LoopEntrySnapshot *ExecutionState

	OpenMergeStack []*MergeHandler

	CallPath        []*CallInfo
	RelevantSymbols expr.SymbolSet

	Unwinding UnwindingInformation

	SteppedInstructions    uint64
	InstsSinceCovNew       uint32
	BPFCalls               uint64
	CoveredNew             bool
	ForkDisabled           bool
	DoTrace                bool
	CondoneUndeclaredHavocs bool

	log tracer
}

// SymbolicBinding records one klee_make_symbolic declaration: the
// object it applies to and the array name a Read into it should use.
type SymbolicBinding struct {
	Object    addrspace.ObjectID
	ArrayName string
}

// MergeHandler marks where open-merge exploration started, so a later
// merge point knows which states to fold back together. The search
// strategy that actually drives open/close is out of scope; this core
// only needs a stable handle to compare.
type MergeHandler struct {
	ID uint32
}

// New returns a fresh root ExecutionState at pc, with an empty stack,
// address space, and constraint set.
func New(pc InstCursor) *ExecutionState {
	return &ExecutionState{
		ID:               allocStateID(),
		PC:               pc,
		AddressSpace:     addrspace.New(),
		Constraints:      expr.NewConstraintSet(),
		havocs:           newHavocRegistry(),
		ReadsIntercepts:  map[uint64]string{},
		WritesIntercepts: map[uint64]string{},
		AnalysedLoops:    newLoopSet(),
		RelevantSymbols:  expr.NewSymbolSet(),
	}
}

// SetDebugLevel configures this state's (and every future clone's)
// tracing verbosity.
func (s *ExecutionState) SetDebugLevel(level DebugLevel) { s.log.Level = level }

// PushFrame enters a new call, appending frame to Stack.
func (s *ExecutionState) PushFrame(frame *StackFrame) {
	s.Stack = append(s.Stack, frame)
	s.Depth++
}

// PopFrame returns from the innermost call, releasing every object the
// frame's allocas and vararg buffer owned.
func (s *ExecutionState) PopFrame() *StackFrame {
	if len(s.Stack) == 0 {
		return nil
	}
	top := s.Stack[len(s.Stack)-1]
	for _, id := range top.Allocas {
		s.AddressSpace.UnbindObject(id)
	}
	if top.Varargs != 0 {
		s.AddressSpace.UnbindObject(top.Varargs)
	}
	s.Stack = s.Stack[:len(s.Stack)-1]
	s.Depth--
	return top
}

// AddSymbolic implements a klee_make_symbolic declaration: install one
// fresh expr.Symbol cell under arrayName per byte of mo, replacing
// whatever the object currently holds, and remember the name as in use
// so that freshName (used by klee_make_symbolic, klee_possibly_havoc and
// the loop fixpoint's forgetting protocol) never mints a name already
// taken by an explicit symbolic declaration.
func (s *ExecutionState) AddSymbolic(mo *addrspace.MemoryObject, arrayName string) {
	os := s.AddressSpace.BindObject(mo)
	for i := range os.Bytes {
		os.Bytes[i] = expr.NewSymbol(arrayName, 8)
	}
	s.Symbolics = append(s.Symbolics, SymbolicBinding{Object: mo.ID, ArrayName: arrayName})
	s.havocs.names[arrayName] = true
}

// AddConstraint appends c to the path predicate.
func (s *ExecutionState) AddConstraint(c expr.Expr) {
	s.Constraints.Add(c)
}

// AddReadsIntercept / AddWritesIntercept register a handler name for a
// single hardware address, consulted by the front end before a concrete
// memory access at addr is allowed to reach the AddressSpace directly.
func (s *ExecutionState) AddReadsIntercept(addr uint64, handler string) {
	s.ReadsIntercepts[addr] = handler
}

func (s *ExecutionState) AddWritesIntercept(addr uint64, handler string) {
	s.WritesIntercepts[addr] = handler
}

// OpenMerge pushes a fresh MergeHandler marking the start of an
// open_merge/close_merge region.
func (s *ExecutionState) OpenMerge() *MergeHandler {
	h := &MergeHandler{ID: allocStateID()}
	s.OpenMergeStack = append(s.OpenMergeStack, h)
	return h
}

// CloseMerge pops the innermost outstanding MergeHandler, reporting
// false if the stack was already empty -- a close without a matching
// open is a warning for the caller to log, not a state-ending error.
func (s *ExecutionState) CloseMerge() (*MergeHandler, bool) {
	n := len(s.OpenMergeStack)
	if n == 0 {
		return nil, false
	}
	h := s.OpenMergeStack[n-1]
	s.OpenMergeStack = s.OpenMergeStack[:n-1]
	return h, true
}

// ForbidAccess / AllowAccess flip an object's accessibility, used by the
// klee_forbid_access/klee_allow_access intrinsics and by the loop
// fixpoint's forgetting protocol.
func (s *ExecutionState) ForbidAccess(id addrspace.ObjectID) bool {
	return s.AddressSpace.AllowAccess(id, false)
}

func (s *ExecutionState) AllowAccess(id addrspace.ObjectID) bool {
	return s.AddressSpace.AllowAccess(id, true)
}

// Branch produces two independent successors of s, sharing everything
// until one of them writes to it. Each child gets a fresh ID and its
// own frame-locals copies (stack-frame locals are not shared: a store
// to a local in one branch must never be visible in the other), but
// otherwise copy-on-write through AddressSpace.Copy, Constraints.Clone,
// and the havoc registry's clone.
func (s *ExecutionState) Branch() (*ExecutionState, *ExecutionState) {
	a := s.cloneShallow()
	b := s.cloneShallow()
	a.Depth++
	b.Depth++
	onBranch(s, a, b)
	return a, b
}

func (s *ExecutionState) cloneShallow() *ExecutionState {
	cp := &ExecutionState{
		ID:                      allocStateID(),
		Depth:                   s.Depth,
		PC:                      s.PC,
		PrevPC:                  s.PrevPC,
		AddressSpace:            s.AddressSpace.Copy(),
		Constraints:             s.Constraints.Clone(),
		havocs:                  s.havocs.clone(),
		LoopInProcess:           s.LoopInProcess,
		AnalysedLoops:           s.AnalysedLoops,
		LoopEntrySnapshot:       s.LoopEntrySnapshot,
		Unwinding:               s.Unwinding,
		SteppedInstructions:     s.SteppedInstructions,
		InstsSinceCovNew:        s.InstsSinceCovNew,
		BPFCalls:                s.BPFCalls,
		CoveredNew:              s.CoveredNew,
		ForkDisabled:            s.ForkDisabled,
		DoTrace:                 s.DoTrace,
		CondoneUndeclaredHavocs: s.CondoneUndeclaredHavocs,
		log:                     s.log,
	}
	cp.Stack = make([]*StackFrame, len(s.Stack))
	for i, f := range s.Stack {
		cp.Stack[i] = f.clone()
	}
	cp.Symbolics = append(cp.Symbolics, s.Symbolics...)
	cp.FnAliases = append(cp.FnAliases, s.FnAliases...)
	cp.ReadsIntercepts = cloneU64StrMap(s.ReadsIntercepts)
	cp.WritesIntercepts = cloneU64StrMap(s.WritesIntercepts)
	cp.OpenMergeStack = append(cp.OpenMergeStack, s.OpenMergeStack...)
	cp.CallPath = append(cp.CallPath, s.CallPath...)
	cp.RelevantSymbols = expr.NewSymbolSet()
	cp.RelevantSymbols.Union(s.RelevantSymbols)
	return cp
}

func cloneU64StrMap(m map[uint64]string) map[uint64]string {
	cp := make(map[uint64]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// TerminateState ends this path with the given error, tracing it at
// DebugVerbose. Exec-kind errors reflect a broken invariant in this core
// and are the caller's cue to panic rather than continue; every other
// kind is a normal (if unsuccessful) end of a path through the analyzed
// program.
func (s *ExecutionState) TerminateState(err *StateError) {
	s.log.tracef(DebugVerbose, "state %d terminated: %v", s.ID, err)
	if err.Fatal() {
		panic(err)
	}
}
