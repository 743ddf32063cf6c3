// Package cellkit provides the public API for the single-goroutine interior-mutability stack.
//
// See doc.go for detailed documentation and examples.
package cellkit

import (
	"go.uber.org/zap"

	"github.com/kolkov/cellkit/internal/cell/borrowstate"
	"github.com/kolkov/cellkit/internal/cell/rawcell"
	"github.com/kolkov/cellkit/internal/cell/report"
	"github.com/kolkov/cellkit/internal/cell/shared"
	"github.com/kolkov/cellkit/internal/cell/tracked"
)

type (
	// RawCell is the unchecked value slot. See NewRawCell.
	RawCell[T any] = rawcell.RawCell[T]

	// TrackedCell is a value with runtime-checked borrows. See NewTrackedCell.
	TrackedCell[T any] = tracked.Cell[T]

	// ReadGuard is one outstanding read borrow of a TrackedCell.
	ReadGuard[T any] = tracked.ReadGuard[T]

	// WriteGuard is the outstanding write borrow of a TrackedCell.
	WriteGuard[T any] = tracked.WriteGuard[T]

	// SharedPtr is a reference-counted owning handle. See NewSharedPtr.
	SharedPtr[T any] = shared.Ptr[T]

	// TrackedOption configures a TrackedCell.
	TrackedOption = tracked.Option

	// SharedOption configures a SharedPtr allocation.
	SharedOption[T any] = shared.Option[T]

	// BorrowState is the packed borrow state of a TrackedCell.
	BorrowState = borrowstate.State

	// BorrowError reports a refused TryBorrow or TryBorrowMut.
	BorrowError = tracked.BorrowError

	// Violation is the panic value raised on corrupted borrow bookkeeping.
	Violation = report.Violation
)

// Borrow refusal causes, for errors.Is on a *BorrowError.
var (
	ErrMutablyBorrowed = tracked.ErrMutablyBorrowed
	ErrBorrowed        = tracked.ErrBorrowed
	ErrTooManyReaders  = tracked.ErrTooManyReaders
)

// ErrDropped is the panic value for use of a dropped SharedPtr.
var ErrDropped = shared.ErrDropped

// NewRawCell creates an unchecked cell holding v.
//
// RawCell trusts its caller completely: Get returns a copy, Set overwrites
// in place, and nothing stops two parts of a program from racing or
// aliasing. Prefer TrackedCell unless the value is a plain scalar.
func NewRawCell[T any](v T) *RawCell[T] {
	return rawcell.New(v)
}

// NewTrackedCell creates an Unshared cell holding v.
//
// Example:
//
//	c := cellkit.NewTrackedCell(5)
//	g, ok := c.Borrow()
//	if ok {
//		defer g.Release()
//		fmt.Println(g.Get())
//	}
func NewTrackedCell[T any](v T, opts ...TrackedOption) *TrackedCell[T] {
	return tracked.New(v, opts...)
}

// WithTracking records borrow acquisition sites for diagnostics.
func WithTracking() TrackedOption {
	return tracked.WithTracking()
}

// NewSharedPtr allocates v with a reference count of 1.
func NewSharedPtr[T any](v T, opts ...SharedOption[T]) *SharedPtr[T] {
	return shared.New(v, opts...)
}

// WithRelease runs fn with the value when the last SharedPtr is dropped.
func WithRelease[T any](fn func(T)) SharedOption[T] {
	return shared.WithRelease(fn)
}

// NewShared returns a SharedPtr to a new TrackedCell holding v: shared
// ownership with runtime-checked mutation.
//
// Example:
//
//	a := cellkit.NewShared(0)
//	b := a.Clone()
//	b.Get().WithMut(func(v *int) { *v++ })
func NewShared[T any](v T, opts ...TrackedOption) *SharedPtr[*TrackedCell[T]] {
	return shared.New(tracked.New(v, opts...))
}

// SamePtr reports whether a and b refer to the same allocation.
func SamePtr[T any](a, b *SharedPtr[T]) bool {
	return shared.Same(a, b)
}

// SetLogger routes cellkit's diagnostics to l.
//
// Refused borrows and last-owner releases are logged at debug level;
// corrupted bookkeeping at error level just before the panic. The default
// is a no-op logger. Call this before using any cell.
func SetLogger(l *zap.Logger) {
	report.SetLogger(l)
}
