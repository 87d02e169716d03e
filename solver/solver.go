// Package solver defines the constraint-satisfiability collaborator the
// execution core queries during loop-fixpoint byte-mask maintenance. It is intentionally not a real SMT backend: production
// use plugs in STP/Z3/boolector behind this interface. The reference
// implementation here does only the syntactic reasoning needed to make
// the core's own tests deterministic.
package solver

import (
	"context"
	"time"

	"github.com/fkuehnel/symexec-core/expr"
)

// Solver is the query surface UpdateDiffMask needs.
type Solver interface {
	// MayBeFalse reports whether query can be false under constraints,
	// within timeout. A true result (or an error) is conservative: the
	// caller must assume the byte may differ / the branch may be live.
	MayBeFalse(ctx context.Context, constraints *expr.ConstraintSet, query expr.Expr) (bool, error)
}

// ErrTimeout is returned by Naive when the supplied context deadline
// elapses before a decision is reached; callers on the loop-fixpoint path
// treat this the same as a true result (conservative: keep the byte in
// the diff mask).
var ErrTimeout = context.DeadlineExceeded

// Naive is a reference Solver good enough for unit tests and small
// constraint sets: it only recognizes syntactically-obvious
// tautologies/contradictions (constant folding, reflexive equality) and
// otherwise answers conservatively. It never asserts unsatisfiability of
// anything it cannot immediately reduce to a constant or recognize as
// reflexive equality.
type Naive struct{}

func (Naive) MayBeFalse(ctx context.Context, constraints *expr.ConstraintSet, query expr.Expr) (bool, error) {
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	default:
	}
	if reduced, ok := reduceToConst(query); ok {
		return reduced == 0, nil
	}
	// Reflexive equality (same expression compared to itself) can never
	// be false regardless of constraints.
	if b, ok := query.(*expr.BinOp); ok && b.Op == "eq" && expr.Equal(b.L, b.R) {
		return false, nil
	}
	return true, nil
}

func reduceToConst(e expr.Expr) (uint64, bool) {
	switch v := e.(type) {
	case *expr.Constant:
		return v.Val, true
	case *expr.Not:
		if inner, ok := reduceToConst(v.Src); ok {
			if inner == 0 {
				return 1, true
			}
			return 0, true
		}
	case *expr.BinOp:
		lv, lok := reduceToConst(v.L)
		rv, rok := reduceToConst(v.R)
		if !lok || !rok {
			return 0, false
		}
		switch v.Op {
		case "eq":
			if lv == rv {
				return 1, true
			}
			return 0, true
		case "and":
			if lv != 0 && rv != 0 {
				return 1, true
			}
			return 0, true
		case "or":
			if lv != 0 || rv != 0 {
				return 1, true
			}
			return 0, true
		case "mul":
			return lv * rv, true
		}
	}
	return 0, false
}

// WithTimeout is a convenience used by the loop-fixpoint driver, which
// per spec runs every diff-mask solver query under a short, fixed
// timeout rather than the caller's own deadline.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
