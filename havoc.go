package symexec

import (
	"strconv"

	"github.com/fkuehnel/symexec-core/addrspace"
)

// HavocInfo is the havoc registry's record for an object: the array
// name its havoced bytes are drawn from, and the mask of which bytes
// have been replaced. klee_possibly_havoc registers an object with an
// empty mask; the loop fixpoint's restart-state construction
// (makeRestartState) re-registers it under the fresh array name its
// replaced bytes are drawn from, with the mask of the bytes replaced.
type HavocInfo struct {
	ArrayName string
	Mask      *ByteMask
}

// havocRegistry is the per-state pair of which objects are registered
// for havocing, and which array names are already in use, whether by
// klee_make_symbolic, by declared havocs or by generated names (so
// freshName never reuses one).
type havocRegistry struct {
	byObject map[addrspace.ObjectID]*HavocInfo
	names    map[string]bool
}

func newHavocRegistry() *havocRegistry {
	return &havocRegistry{
		byObject: make(map[addrspace.ObjectID]*HavocInfo),
		names:    make(map[string]bool),
	}
}

func (h *havocRegistry) clone() *havocRegistry {
	cp := newHavocRegistry()
	for id, info := range h.byObject {
		cp.byObject[id] = &HavocInfo{ArrayName: info.ArrayName, Mask: info.Mask.Clone()}
	}
	for name := range h.names {
		cp.names[name] = true
	}
	return cp
}

// Lookup returns the existing HavocInfo for id, if any.
func (h *havocRegistry) Lookup(id addrspace.ObjectID) (*HavocInfo, bool) {
	info, ok := h.byObject[id]
	return info, ok
}

// register installs or grows info for id, marking its array name in
// use. It is the "record generated array+mask into havocs entry" step
// of the forgetting protocol.
func (h *havocRegistry) register(id addrspace.ObjectID, info *HavocInfo) {
	h.byObject[id] = info
	h.names[info.ArrayName] = true
}

// freshName returns an unused generated-array name derived from base,
// appending a numeric suffix until one is free.
func (h *havocRegistry) freshName(base string) string {
	if !h.names[base] {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !h.names[candidate] {
			return candidate
		}
	}
}
