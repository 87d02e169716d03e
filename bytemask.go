package symexec

import "github.com/willf/bitset"

// ByteMask records, per byte offset within an object, whether the loop
// fixpoint search has determined that byte may differ between rounds.
// It is the "known to differ" bit vector updateDiffMask grows: a set bit
// means the object's corresponding byte must be replaced by a fresh
// symbolic array cell on the next restart round rather than carried
// over from the header snapshot.
type ByteMask struct {
	bits *bitset.BitSet
}

// NewByteMask returns a mask sized for an object of the given byte
// length, all bits clear.
func NewByteMask(size int) *ByteMask {
	return &ByteMask{bits: bitset.New(uint(size))}
}

// Set marks offset as known to differ.
func (m *ByteMask) Set(offset int) {
	m.bits.Set(uint(offset))
}

// Test reports whether offset is currently marked as known to differ.
func (m *ByteMask) Test(offset int) bool {
	return m.bits.Test(uint(offset))
}

// Len returns the mask's byte-offset domain size.
func (m *ByteMask) Len() int {
	return int(m.bits.Len())
}

// Count returns the number of bits set, the population finishLoopRound
// compares against the previous round's count to decide whether the
// round added anything new.
func (m *ByteMask) Count() int {
	return int(m.bits.Count())
}

// Clone returns an independent copy of m.
func (m *ByteMask) Clone() *ByteMask {
	return &ByteMask{bits: m.bits.Clone()}
}

// Union sets every bit other has set, in place, returning whether any
// new bit was set (the "did this round find something new" signal
// finishLoopRound needs).
func (m *ByteMask) Union(other *ByteMask) bool {
	before := m.bits.Count()
	m.bits.InPlaceUnion(other.bits)
	return m.bits.Count() != before
}

// Bytes renders the mask as one 0/1 uint32 per byte offset for serialization into a
// KTestHavocedLocation's Mask field.
func (m *ByteMask) Bytes() []uint32 {
	out := make([]uint32, m.Len())
	for i := 0; i < m.Len(); i++ {
		if m.Test(i) {
			out[i] = 1
		}
	}
	return out
}
