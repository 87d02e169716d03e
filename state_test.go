package symexec

import (
	"testing"

	"github.com/fkuehnel/symexec-core/addrspace"
	"github.com/fkuehnel/symexec-core/expr"
)

func TestBranchIsIndependent(t *testing.T) {
	s := New("entry")
	s.PushFrame(NewStackFrame("main", 2))
	s.Stack[0].Locals[0] = expr.NewConstant(1, 32)

	a, b := s.Branch()
	if a.ID == b.ID {
		t.Fatalf("branch children share an ID")
	}
	if a.ID == s.ID || b.ID == s.ID {
		t.Fatalf("branch child reused the parent's ID")
	}

	a.Stack[0].Locals[0] = expr.NewConstant(2, 32)
	if !expr.Equal(s.Stack[0].Locals[0].(expr.Expr), expr.NewConstant(1, 32)) {
		t.Fatalf("mutating a's locals leaked back into the parent")
	}
	if !expr.Equal(b.Stack[0].Locals[0].(expr.Expr), expr.NewConstant(1, 32)) {
		t.Fatalf("mutating a's locals leaked into sibling b")
	}
}

func TestBranchSharesAddressSpaceUntilWrite(t *testing.T) {
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 1, Name: "g", Size: 4}
	s.AddressSpace.BindObject(mo)

	a, b := s.Branch()
	wa, _ := a.AddressSpace.GetWriteable(1)
	wa.Bytes[0] = expr.NewConstant(42, 8)

	bos, _ := b.AddressSpace.FindObject(1)
	if bos.Bytes[0].(*expr.Constant).Val != 0 {
		t.Fatalf("writing through a's writeable copy leaked into sibling b")
	}
}

func TestPushPopFrameReleasesAllocas(t *testing.T) {
	s := New("entry")
	mo := &addrspace.MemoryObject{ID: 7, Name: "local", Size: 8}
	s.AddressSpace.BindObject(mo)
	frame := NewStackFrame("caller", 0)
	frame.Allocas = append(frame.Allocas, 7)
	s.PushFrame(frame)

	if _, ok := s.AddressSpace.FindObject(7); !ok {
		t.Fatalf("alloca object missing while frame is live")
	}
	s.PopFrame()
	if _, ok := s.AddressSpace.FindObject(7); ok {
		t.Fatalf("alloca object still bound after its frame popped")
	}
}
