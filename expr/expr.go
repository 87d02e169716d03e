// Package expr provides the small symbolic-expression tree used by the
// execution core: constants, named symbolic arrays, the handful of
// operators the merge and loop-fixpoint algorithms need (Eq, Ne, And, Or,
// Select, ZExt, Mul), and a structural Compare used both for canonical
// ordering and for the equality checks merge and call tracing depend on.
//
// This is not an SMT term representation; it is deliberately small. A real
// interpreter plugs a richer IR in behind the same Expr interface.
package expr

import "fmt"

// Expr is any node in the expression tree. Width is in bits; 1 means
// boolean-valued.
type Expr interface {
	Width() int
	// Compare returns <0, 0, >0 for a structural ordering over Exprs of
	// any kind, used for canonical sorting and for Equal.
	Compare(other Expr) int
	String() string
}

// Equal reports structural equality, the basis for Symbolics/Constraints
// comparisons during merge preconditions and for sameInvocation/eq in
// call tracing.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Compare(b) == 0
}

func kindRank(e Expr) int {
	switch e.(type) {
	case *Constant:
		return 0
	case *Symbol:
		return 1
	case *Read:
		return 2
	case *Not:
		return 3
	case *ZExt:
		return 4
	case *BinOp:
		return 5
	case *Select:
		return 6
	default:
		return 99
	}
}

func compareKind(a, b Expr) (int, bool) {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Constant is a fixed-width literal value.
type Constant struct {
	Val   uint64
	Bits  int
}

func NewConstant(val uint64, bits int) *Constant { return &Constant{Val: val, Bits: bits} }

func (c *Constant) Width() int { return c.Bits }
func (c *Constant) String() string { return fmt.Sprintf("%d:w%d", c.Val, c.Bits) }
func (c *Constant) Compare(other Expr) int {
	if r, done := compareKind(c, other); done {
		return r
	}
	o := other.(*Constant)
	if r := cmpInt(c.Bits, o.Bits); r != 0 {
		return r
	}
	return cmpUint64(c.Val, o.Val)
}

// Symbol is a named symbolic array cell read from, e.g. a havoc'd byte
// array or a klee_make_symbolic declaration. Two Symbols compare equal
// only when Name and Bits match.
type Symbol struct {
	Name string
	Bits int
}

func NewSymbol(name string, bits int) *Symbol { return &Symbol{Name: name, Bits: bits} }

func (s *Symbol) Width() int { return s.Bits }
func (s *Symbol) String() string { return fmt.Sprintf("%s:w%d", s.Name, s.Bits) }
func (s *Symbol) Compare(other Expr) int {
	if r, done := compareKind(s, other); done {
		return r
	}
	o := other.(*Symbol)
	if r := cmpString(s.Name, o.Name); r != 0 {
		return r
	}
	return cmpInt(s.Bits, o.Bits)
}

// Read selects one byte (or Bits-wide cell) at Index from Array.
type Read struct {
	Array string
	Index Expr
	Bits  int
}

func NewRead(array string, index Expr, bits int) *Read {
	return &Read{Array: array, Index: index, Bits: bits}
}

func (r *Read) Width() int { return r.Bits }
func (r *Read) String() string { return fmt.Sprintf("%s[%s]:w%d", r.Array, r.Index, r.Bits) }
func (r *Read) Compare(other Expr) int {
	if c, done := compareKind(r, other); done {
		return c
	}
	o := other.(*Read)
	if c := cmpString(r.Array, o.Array); c != 0 {
		return c
	}
	if c := cmpInt(r.Bits, o.Bits); c != 0 {
		return c
	}
	return r.Index.Compare(o.Index)
}

// Not is logical/bitwise negation.
type Not struct {
	Src Expr
}

func (n *Not) Width() int { return n.Src.Width() }
func (n *Not) String() string { return fmt.Sprintf("not(%s)", n.Src) }
func (n *Not) Compare(other Expr) int {
	if c, done := compareKind(n, other); done {
		return c
	}
	return n.Src.Compare(other.(*Not).Src)
}

// ZExt zero-extends Src to Bits.
type ZExt struct {
	Src  Expr
	Bits int
}

func NewZExt(src Expr, bits int) *ZExt { return &ZExt{Src: src, Bits: bits} }

func (z *ZExt) Width() int { return z.Bits }
func (z *ZExt) String() string { return fmt.Sprintf("zext(%s,w%d)", z.Src, z.Bits) }
func (z *ZExt) Compare(other Expr) int {
	if c, done := compareKind(z, other); done {
		return c
	}
	o := other.(*ZExt)
	if c := cmpInt(z.Bits, o.Bits); c != 0 {
		return c
	}
	return z.Src.Compare(o.Src)
}

// BinOp covers the small operator set the core needs: Eq, Ne, And, Or, Mul.
type BinOp struct {
	Op   string
	L, R Expr
	Bits int
}

func newBinOp(op string, bits int, l, r Expr) *BinOp {
	return &BinOp{Op: op, L: l, R: r, Bits: bits}
}

func Eq(l, r Expr) Expr { return newBinOp("eq", 1, l, r) }
func Ne(l, r Expr) Expr { return &Not{Src: Eq(l, r)} }
func And(l, r Expr) Expr { return newBinOp("and", 1, l, r) }
func Or(l, r Expr) Expr  { return newBinOp("or", 1, l, r) }
func Mul(l, r Expr) Expr { return newBinOp("mul", maxInt(l.Width(), r.Width()), l, r) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (b *BinOp) Width() int { return b.Bits }
func (b *BinOp) String() string { return fmt.Sprintf("(%s %s %s)", b.L, b.Op, b.R) }
func (b *BinOp) Compare(other Expr) int {
	if c, done := compareKind(b, other); done {
		return c
	}
	o := other.(*BinOp)
	if c := cmpString(b.Op, o.Op); c != 0 {
		return c
	}
	if c := cmpInt(b.Bits, o.Bits); c != 0 {
		return c
	}
	if c := b.L.Compare(o.L); c != 0 {
		return c
	}
	return b.R.Compare(o.R)
}

// Select multiplexes between T and F based on Cond, the primitive merge
// uses to fold two branches' divergent values back into one.
type Select struct {
	Cond Expr
	T, F Expr
}

func NewSelect(cond, t, f Expr) Expr {
	// A condition that is trivially true/false folds away; this keeps
	// merged constants from growing a Select chain that never diverges.
	if c, ok := cond.(*Constant); ok {
		if c.Val != 0 {
			return t
		}
		return f
	}
	if Equal(t, f) {
		return t
	}
	return &Select{Cond: cond, T: t, F: f}
}

func (s *Select) Width() int { return s.T.Width() }
func (s *Select) String() string { return fmt.Sprintf("select(%s,%s,%s)", s.Cond, s.T, s.F) }
func (s *Select) Compare(other Expr) int {
	if c, done := compareKind(s, other); done {
		return c
	}
	o := other.(*Select)
	if c := s.Cond.Compare(o.Cond); c != 0 {
		return c
	}
	if c := s.T.Compare(o.T); c != 0 {
		return c
	}
	return s.F.Compare(o.F)
}

// CreateIsZero builds the canonical "e == 0" boolean test used when a
// constraint needs a truth value out of a wider expression.
func CreateIsZero(e Expr) Expr {
	return Eq(e, NewConstant(0, e.Width()))
}
