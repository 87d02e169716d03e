// Package addrspace implements the C2 collaborator ExecutionState relies
// on: a copy-on-write map from object identity to byte-addressable
// symbolic state, with an accessibility flag per object (the "forbid
// access" / "allow access" intrinsics flip this) and stable iteration
// order (merge's address-space key-set comparison and the loop
// fixpoint's per-object diff walk both depend on visiting objects in a
// deterministic order).
package addrspace

import (
	"sort"

	"github.com/fkuehnel/symexec-core/expr"
)

// ObjectID identifies one memory object (a global, an alloca, a heap
// allocation) across clones of an AddressSpace.
type ObjectID uint64

// MemoryObject is an object's identity and static properties: its size
// never changes across the object's lifetime, only its ObjectState's
// byte contents do.
type MemoryObject struct {
	ID   ObjectID
	Name string
	Size int
}

// ObjectState is the mutable, per-clone byte content of a MemoryObject.
// Bytes holds one cell (symbolic or concrete) per byte; CexPreferences
// is the counter-example preference list klee_prefer_cex appends to.
type ObjectState struct {
	Object         *MemoryObject
	Bytes          []expr.Expr
	Accessible     bool
	CexPreferences []expr.Expr
}

func newObjectState(mo *MemoryObject) *ObjectState {
	bytes := make([]expr.Expr, mo.Size)
	for i := range bytes {
		bytes[i] = expr.NewConstant(0, 8)
	}
	return &ObjectState{Object: mo, Bytes: bytes, Accessible: true}
}

func (os *ObjectState) clone() *ObjectState {
	cp := *os
	cp.Bytes = append([]expr.Expr(nil), os.Bytes...)
	cp.CexPreferences = append([]expr.Expr(nil), os.CexPreferences...)
	return &cp
}

// AddressSpace is the object-id -> ObjectState map an ExecutionState
// owns. Copy() is O(objects), not O(bytes): per-object ObjectStates are
// shared until GetWriteable is called on one, at which point only that
// object's bytes are duplicated (copy-on-write).
type AddressSpace struct {
	objects map[ObjectID]*ObjectState
	order   []ObjectID
}

func New() *AddressSpace {
	return &AddressSpace{objects: make(map[ObjectID]*ObjectState)}
}

// Copy returns a new AddressSpace sharing every current ObjectState by
// pointer; callers must go through GetWriteable before mutating one.
func (a *AddressSpace) Copy() *AddressSpace {
	cp := &AddressSpace{
		objects: make(map[ObjectID]*ObjectState, len(a.objects)),
		order:   append([]ObjectID(nil), a.order...),
	}
	for id, os := range a.objects {
		cp.objects[id] = os
	}
	return cp
}

// BindObject introduces a freshly sized, zero-filled object, or replaces
// an existing object's state outright (used when restoring a snapshot).
func (a *AddressSpace) BindObject(mo *MemoryObject) *ObjectState {
	os := newObjectState(mo)
	if _, exists := a.objects[mo.ID]; !exists {
		a.order = append(a.order, mo.ID)
	}
	a.objects[mo.ID] = os
	return os
}

// Bind installs an already-built ObjectState verbatim under id,
// replacing any existing binding.
func (a *AddressSpace) Bind(id ObjectID, os *ObjectState) {
	if _, exists := a.objects[id]; !exists {
		a.order = append(a.order, id)
	}
	a.objects[id] = os
}

// UnbindObject removes id, used when a stack frame's alloca goes out of
// scope.
func (a *AddressSpace) UnbindObject(id ObjectID) {
	if _, exists := a.objects[id]; !exists {
		return
	}
	delete(a.objects, id)
	for i, oid := range a.order {
		if oid == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// FindObject resolves id to its current ObjectState (read-only view).
func (a *AddressSpace) FindObject(id ObjectID) (*ObjectState, bool) {
	os, ok := a.objects[id]
	return os, ok
}

// ResolveOne is FindObject under the name the original collaborator uses
// for single-object pointer resolution (no aliasing/array-of-objects
// support here: a symbolic pointer resolving to more than one object is
// the interpreter's concern, out of scope for this core).
func (a *AddressSpace) ResolveOne(id ObjectID) (*ObjectState, bool) {
	return a.FindObject(id)
}

// GetWriteable returns a mutable ObjectState for id, copying on first
// write so earlier clones sharing the old ObjectState are unaffected.
func (a *AddressSpace) GetWriteable(id ObjectID) (*ObjectState, bool) {
	os, ok := a.objects[id]
	if !ok {
		return nil, false
	}
	w := os.clone()
	a.objects[id] = w
	return w, true
}

// AllowAccess flips an object's accessibility flag; ForbidAccess is the
// inverse call with allow=false. Both are copy-on-write through
// GetWriteable so the flip never mutates a state shared with a sibling
// clone.
func (a *AddressSpace) AllowAccess(id ObjectID, allow bool) bool {
	os, ok := a.GetWriteable(id)
	if !ok {
		return false
	}
	os.Accessible = allow
	return true
}

// IDs returns every bound object id in a stable order (insertion order),
// the iteration merge's address-space key-set comparison and the loop
// fixpoint's per-object walk rely on.
func (a *AddressSpace) IDs() []ObjectID {
	return append([]ObjectID(nil), a.order...)
}

// SameKeySet reports whether a and b bind exactly the same object ids,
// one of merge's preconditions.
func SameKeySet(a, b *AddressSpace) bool {
	if len(a.objects) != len(b.objects) {
		return false
	}
	for id := range a.objects {
		if _, ok := b.objects[id]; !ok {
			return false
		}
	}
	return true
}

// SortedIDs is a deterministic-order helper for diagnostics (dump
// constraints, diff-mask error reporting) where insertion order isn't
// meaningful to a reader.
func SortedIDs(ids []ObjectID) []ObjectID {
	out := append([]ObjectID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
