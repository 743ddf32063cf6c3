// Package tracked implements a cell whose borrows are checked at runtime.
//
// A Cell owns one value and a borrow state (see package borrowstate). Borrow
// and BorrowMut hand out guards that enforce single-writer-or-many-readers:
// an incompatible request is refused with an absent result instead of
// blocking, much like a non-blocking TryLock. The borrow state itself lives
// in a rawcell.RawCell, which is what lets the state change through a shared
// *Cell.
//
// Guards must be released exactly once, normally with defer:
//
//	g, ok := c.BorrowMut()
//	if !ok {
//		return errBusy
//	}
//	defer g.Release()
//	g.Set(g.Get() + 1)
//
// A guard that finds the state inconsistent with its own existence on
// release (or is used after release) raises a fatal report.Violation.
//
// A Cell is not safe for concurrent use. Distinct cells may be used from
// distinct goroutines.
package tracked

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/kolkov/cellkit/internal/cell/borrowstate"
	"github.com/kolkov/cellkit/internal/cell/rawcell"
	"github.com/kolkov/cellkit/internal/cell/report"
	"github.com/kolkov/cellkit/internal/cell/stackdepot"
)

// noCopy may be embedded into structs which must not be copied after first use.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Option configures a Cell.
type Option func(*options)

type options struct {
	tracking bool
}

// WithTracking records where the borrow that moved the cell out of unshared
// was acquired. The site is kept until the cell is unshared again, so with
// several readers it may name one that has since been released. It appears
// in BorrowError messages and fatal reports. Each acquisition from Unshared
// costs one stack capture.
func WithTracking() Option {
	return func(o *options) {
		o.tracking = true
	}
}

// Cell is a value with runtime-checked borrows.
type Cell[T any] struct {
	_     noCopy
	value T
	state rawcell.RawCell[borrowstate.State]

	// site is the stackdepot hash of the borrow that moved the cell out of
	// Unshared. Zero when tracking is off or the cell is Unshared.
	site     rawcell.RawCell[uint64]
	tracking bool
}

// New creates an Unshared cell holding v.
func New[T any](v T, opts ...Option) *Cell[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Cell[T]{value: v, tracking: o.tracking}
}

// State returns the current borrow state.
func (c *Cell[T]) State() borrowstate.State {
	return c.state.Get()
}

// Tracking reports whether acquisition sites are recorded.
func (c *Cell[T]) Tracking() bool {
	return c.tracking
}

// Borrow acquires a read-only borrow.
//
// Unshared → Shared(1), Shared(n) → Shared(n+1). While a write borrow is
// outstanding the result is (nil, false). A reader count already at
// borrowstate.MaxReaders is refused the same way.
//
// Returns:
//   - *ReadGuard[T], true: the borrow was granted; call Release exactly once
//   - nil, false: a writer is outstanding or the reader count is saturated
//
// Performance: one state read and one write. On a tracked cell the first
// reader also pays a stack capture.
//
// Thread Safety: NOT thread-safe. The cell and its guards belong to one goroutine.
func (c *Cell[T]) Borrow() (*ReadGuard[T], bool) {
	g, _ := c.borrow(2)
	return g, g != nil
}

// BorrowMut acquires the read-write borrow.
//
// Unshared → Exclusive. Any outstanding borrow makes the result (nil, false).
//
// Thread Safety: NOT thread-safe.
func (c *Cell[T]) BorrowMut() (*WriteGuard[T], bool) {
	g, _ := c.borrowMut(2)
	return g, g != nil
}

// TryBorrow is Borrow with the refusal reported as a *BorrowError.
func (c *Cell[T]) TryBorrow() (*ReadGuard[T], error) {
	g, observed := c.borrow(2)
	if g == nil {
		return nil, c.borrowError(AccessRead, observed)
	}
	return g, nil
}

// TryBorrowMut is BorrowMut with the refusal reported as a *BorrowError.
func (c *Cell[T]) TryBorrowMut() (*WriteGuard[T], error) {
	g, observed := c.borrowMut(2)
	if g == nil {
		return nil, c.borrowError(AccessWrite, observed)
	}
	return g, nil
}

// With calls fn with the value under a read borrow and releases it afterwards,
// even if fn panics. It returns false, without calling fn, if the borrow is refused.
func (c *Cell[T]) With(fn func(T)) bool {
	g, _ := c.borrow(2)
	if g == nil {
		return false
	}
	defer g.Release()

	fn(g.Get())
	return true
}

// WithMut calls fn with a pointer to the value under the write borrow and
// releases it afterwards. fn must not retain the pointer. It returns false,
// without calling fn, if the borrow is refused.
func (c *Cell[T]) WithMut(fn func(*T)) bool {
	g, _ := c.borrowMut(2)
	if g == nil {
		return false
	}
	defer g.Release()

	fn(g.Ptr())
	return true
}

// Replace stores v under a write borrow and returns the previous value.
// ok is false, and nothing changes, if the borrow is refused.
func (c *Cell[T]) Replace(v T) (old T, ok bool) {
	g, _ := c.borrowMut(2)
	if g == nil {
		return old, false
	}
	defer g.Release()

	old = g.Get()
	g.Set(v)
	return old, true
}

// borrow performs the read transition. depth is the stack depth of the
// user's call site relative to stackdepot.Capture inside borrow.
// On refusal it returns nil and the observed state.
func (c *Cell[T]) borrow(depth int) (*ReadGuard[T], borrowstate.State) {
	cur := c.state.Get()
	next, ok := cur.AcquireRead()
	if !ok {
		c.refused(AccessRead, cur)
		return nil, cur
	}

	if c.tracking && cur == borrowstate.None {
		c.site.Set(stackdepot.Capture(depth))
	}
	c.state.Set(next)
	return &ReadGuard[T]{cell: c}, next
}

func (c *Cell[T]) borrowMut(depth int) (*WriteGuard[T], borrowstate.State) {
	cur := c.state.Get()
	next, ok := cur.AcquireWrite()
	if !ok {
		c.refused(AccessWrite, cur)
		return nil, cur
	}

	if c.tracking {
		c.site.Set(stackdepot.Capture(depth))
	}
	c.state.Set(next)
	return &WriteGuard[T]{cell: c}, next
}

func (c *Cell[T]) refused(want Access, cur borrowstate.State) {
	if ce := report.Logger().Check(zap.DebugLevel, "borrow refused"); ce != nil {
		ce.Write(
			zap.Stringer("want", want),
			zap.Stringer("state", cur),
			zap.Uintptr("cell", c.addr()),
		)
	}
}

func (c *Cell[T]) borrowError(want Access, observed borrowstate.State) *BorrowError {
	return &BorrowError{Want: want, State: observed, Site: c.site.Get()}
}

func (c *Cell[T]) addr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// releaseRead performs Shared(n) → Shared(n-1) / Unshared.
func (c *Cell[T]) releaseRead() {
	cur := c.state.Get()
	next, ok := cur.ReleaseRead()
	if !ok {
		report.Raise(report.OpReleaseRead, c.addr(), cur, "shared(n>0)", c.site.Get())
	}

	c.state.Set(next)
	if next == borrowstate.None {
		c.site.Set(0)
	}
}

// releaseWrite performs Exclusive → Unshared.
func (c *Cell[T]) releaseWrite() {
	cur := c.state.Get()
	next, ok := cur.ReleaseWrite()
	if !ok {
		report.Raise(report.OpReleaseWrite, c.addr(), cur, "exclusive", c.site.Get())
	}

	c.state.Set(next)
	c.site.Set(0)
}
