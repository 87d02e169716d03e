package symexec

import "testing"

func TestByteMaskSetTestCount(t *testing.T) {
	m := NewByteMask(8)
	if m.Count() != 0 {
		t.Fatalf("fresh mask should have zero bits set")
	}
	m.Set(2)
	m.Set(5)
	if !m.Test(2) || !m.Test(5) {
		t.Fatalf("Set bits should read back as set")
	}
	if m.Test(0) || m.Test(7) {
		t.Fatalf("untouched bits should read back as clear")
	}
	if m.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.Count())
	}
}

func TestByteMaskUnionReportsGrowth(t *testing.T) {
	a := NewByteMask(4)
	a.Set(0)
	b := NewByteMask(4)
	b.Set(1)

	if grew := a.Union(b); !grew {
		t.Fatalf("Union should report growth when it adds a new bit")
	}
	if !a.Test(0) || !a.Test(1) {
		t.Fatalf("Union should keep a's own bits and add other's")
	}
	if grew := a.Union(b); grew {
		t.Fatalf("Union should report no growth once nothing new is added")
	}
}

func TestByteMaskCloneIsIndependent(t *testing.T) {
	a := NewByteMask(4)
	a.Set(0)
	b := a.Clone()
	b.Set(1)
	if a.Test(1) {
		t.Fatalf("mutating a clone should not affect the original")
	}
}
