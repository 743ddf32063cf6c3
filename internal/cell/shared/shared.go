// Package shared implements a single-goroutine reference-counted owning handle.
//
// Every Ptr cloned from a common origin refers to one allocation holding the
// value and its reference count. The count lives in a rawcell.RawCell so
// that Clone and Drop, which only hold a shared view of the allocation, can
// update it. The allocation is destroyed by whichever Drop observes a count
// of 1: it runs the optional release callback and clears the value.
//
// The count is a plain integer. Ptr is not safe for concurrent use, and
// handles to one allocation must stay on one goroutine.
//
// Ptr grants read access only. For shared mutation, store a *tracked.Cell:
//
//	p := shared.New(tracked.New(0))
//	q := p.Clone()
//	q.Get().WithMut(func(v *int) { *v++ })
package shared

import (
	"errors"

	"go.uber.org/zap"

	"github.com/kolkov/cellkit/internal/cell/rawcell"
	"github.com/kolkov/cellkit/internal/cell/report"
)

// ErrDropped is the panic value for any use of a handle after its Drop.
var ErrDropped = errors.New("cellkit: use of dropped shared handle")

// Option configures a new allocation.
type Option[T any] func(*inner[T])

// WithRelease registers fn to run with the value when the last handle is dropped.
func WithRelease[T any](fn func(T)) Option[T] {
	return func(in *inner[T]) {
		in.release = fn
	}
}

// inner is the shared allocation. Handles copy the pointer, never the struct.
type inner[T any] struct {
	value    T
	refcount rawcell.RawCell[int]
	release  func(T)
}

// Ptr is one owning handle. The zero Ptr is already dropped.
type Ptr[T any] struct {
	// Set to nil on Drop so the handle cannot reach the allocation again.
	inner *inner[T]
}

// New allocates v with a reference count of 1 and returns the first handle.
func New[T any](v T, opts ...Option[T]) *Ptr[T] {
	in := &inner[T]{value: v}
	for _, opt := range opts {
		opt(in)
	}
	in.refcount.Set(1)

	return &Ptr[T]{inner: in}
}

// Clone returns a new handle to the same allocation and increments the count.
func (p *Ptr[T]) Clone() *Ptr[T] {
	in := p.mustBeAlive()

	c := in.refcount.Get()
	in.refcount.Set(c + 1)

	return &Ptr[T]{inner: in}
}

// Get returns the shared value.
func (p *Ptr[T]) Get() T {
	return p.mustBeAlive().value
}

// Count returns the number of live handles to the allocation.
func (p *Ptr[T]) Count() int {
	return p.mustBeAlive().refcount.Get()
}

// Alive reports whether this handle has not been dropped.
func (p *Ptr[T]) Alive() bool {
	return p != nil && p.inner != nil
}

// Drop gives up this handle.
//
// The count is consulted first. If this was the last handle the value is
// released and the allocation freed; otherwise only the count drops.
// The handle is detached either way, so Get, Clone and Drop on it panic
// with ErrDropped afterwards. Other handles are unaffected.
//
// Last owner:
//   - the count goes to 0 and the value slot is cleared
//   - the WithRelease hook, if any, runs with the old value
//
// Performance: O(1). The release hook is the only call out.
//
// Thread Safety: NOT thread-safe. The count is a plain int, so every clone
// of a Ptr must stay on one goroutine.
func (p *Ptr[T]) Drop() {
	in := p.mustBeAlive()
	p.inner = nil

	c := in.refcount.Get()
	if c != 1 {
		in.refcount.Set(c - 1)
		return
	}

	// Last owner: nothing else can reach the allocation after this.
	in.refcount.Set(0)
	value := in.value
	var zero T
	in.value = zero

	if ce := report.Logger().Check(zap.DebugLevel, "shared allocation released"); ce != nil {
		ce.Write(zap.Bool("release_hook", in.release != nil))
	}
	if in.release != nil {
		in.release(value)
	}
}

// Same reports whether a and b refer to the same allocation.
func Same[T any](a, b *Ptr[T]) bool {
	return a.mustBeAlive() == b.mustBeAlive()
}

func (p *Ptr[T]) mustBeAlive() *inner[T] {
	if !p.Alive() {
		panic(ErrDropped)
	}
	return p.inner
}
