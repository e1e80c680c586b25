// Package solver implements the fixed-point engines of spec.md §4.5:
// IFDS, IDE, intra-procedural monotone, and inter-procedural monotone.
// All four share the same worklist shape (spec.md §3's "Solver State");
// they differ only in fact representation and join operator.
package solver

import (
	"sync/atomic"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrCancelled is the error kind for a solve stopped by a CancelToken,
// spec.md §5/§7. The solvers in this package do not return it: a fired
// token stops the worklist and sets the result's Cancelled field, and the
// partial results stay in place.
var ErrCancelled = errors.NewKind("analysis cancelled")

// ErrSolverPrecondition is the error kind for a problem that violates a
// solver precondition (e.g. an IDE lattice that never stabilizes),
// spec.md §4.5/§7. No solver in this package checks a problem's lattice
// height or returns this error; the worklist loops run until they are
// empty or the CancelToken fires.
var ErrSolverPrecondition = errors.NewKind("solver precondition violated: %s")

// CancelToken is the optional cancellation handle spec.md §5 describes:
// checked once per worklist pop, with no per-edge timeout.
type CancelToken struct {
	fired atomic.Bool
}

// NewCancelToken returns a token that has not fired.
func NewCancelToken() *CancelToken { return &CancelToken{} }

// Cancel marks the token fired. Safe to call from any goroutine.
func (c *CancelToken) Cancel() { c.fired.Store(true) }

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool {
	return c != nil && c.fired.Load()
}
