package expr

import "fmt"

// SymbolSet is the seed/closure set used by relevant-constraint
// computation, by ExecutionState.RelevantSymbols and by CallInfo's
// working set: the array names an expression touches.
type SymbolSet map[string]struct{}

func NewSymbolSet() SymbolSet { return make(SymbolSet) }

func (s SymbolSet) Add(name string) { s[name] = struct{}{} }

func (s SymbolSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Union adds every name in other to s.
func (s SymbolSet) Union(other SymbolSet) {
	for name := range other {
		s[name] = struct{}{}
	}
}

// Names collects the symbolic array names touched by e, used to grow a
// SymbolSet during relevant-constraint closure.
func Names(e Expr, into SymbolSet) {
	switch v := e.(type) {
	case *Symbol:
		into.Add(v.Name)
	case *Read:
		into.Add(v.Array)
		Names(v.Index, into)
	case *Not:
		Names(v.Src, into)
	case *ZExt:
		Names(v.Src, into)
	case *BinOp:
		Names(v.L, into)
		Names(v.R, into)
	case *Select:
		Names(v.Cond, into)
		Names(v.T, into)
		Names(v.F, into)
	}
}

// structKey identifies e's structural identity: two Exprs compare
// Equal iff their structKey matches. kindRank is folded in ahead of
// String() so that, say, a Symbol named "5" at width 8 can never be
// confused with the Constant 5 at width 8, whose String() happens to
// render the same way.
func structKey(e Expr) string {
	return fmt.Sprintf("%d|%s", kindRank(e), e.String())
}

// ConstraintSet is the path predicate carried by an ExecutionState: a
// conjunction of boolean Exprs. items keeps insertion order for
// deterministic dumping (dumpConstraints); index maps each
// constraint's structural key to its occurrence count, giving
// Has/Intersect/Difference an O(1)-average membership test instead of
// a linear scan per query.
type ConstraintSet struct {
	items []Expr
	index map[string]int
}

func NewConstraintSet() *ConstraintSet {
	return &ConstraintSet{index: make(map[string]int)}
}

func (c *ConstraintSet) Add(e Expr) {
	c.items = append(c.items, e)
	c.index[structKey(e)]++
}

func (c *ConstraintSet) Len() int { return len(c.items) }

func (c *ConstraintSet) At(i int) Expr { return c.items[i] }

// Has reports whether e occurs in c, by structural equality.
func (c *ConstraintSet) Has(e Expr) bool {
	return c.index[structKey(e)] > 0
}

// Clone returns an independent copy sharing no backing storage with c,
// the copy a Branch needs for each of the two resulting states.
func (c *ConstraintSet) Clone() *ConstraintSet {
	cp := &ConstraintSet{
		items: append([]Expr(nil), c.items...),
		index: make(map[string]int, len(c.index)),
	}
	for k, v := range c.index {
		cp.index[k] = v
	}
	return cp
}

// Intersect returns a ∩ b, the constraints present in both sets
// regardless of position, in a's insertion order.
func Intersect(a, b *ConstraintSet) *ConstraintSet {
	out := NewConstraintSet()
	for _, e := range a.items {
		if b.Has(e) {
			out.Add(e)
		}
	}
	return out
}

// Difference returns a \ b: every constraint of a not present in b, in
// a's insertion order.
func Difference(a, b *ConstraintSet) *ConstraintSet {
	out := NewConstraintSet()
	for _, e := range a.items {
		if !b.Has(e) {
			out.Add(e)
		}
	}
	return out
}

// Conjunction conjoins every constraint in c into a single Expr (the
// literal true constant if c is empty), the "inA"/"inB" term merge
// builds from each side's difference set.
func (c *ConstraintSet) Conjunction() Expr {
	if len(c.items) == 0 {
		return NewConstant(1, 1)
	}
	acc := c.items[0]
	for _, e := range c.items[1:] {
		acc = And(acc, e)
	}
	return acc
}

// All returns every constraint, in insertion order.
func (c *ConstraintSet) All() []Expr { return c.items }
