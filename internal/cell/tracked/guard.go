package tracked

import "github.com/kolkov/cellkit/internal/cell/report"

// ReadGuard is one outstanding read-only borrow of a Cell.
//
// It must not outlive its cell and must be released exactly once.
type ReadGuard[T any] struct {
	_        noCopy
	cell     *Cell[T]
	released bool
}

// Get returns a copy of the borrowed value.
func (g *ReadGuard[T]) Get() T {
	g.mustBeLive()
	return g.cell.value
}

// Release ends the borrow. Releasing twice is fatal.
func (g *ReadGuard[T]) Release() {
	g.mustBeLive()
	g.released = true
	g.cell.releaseRead()
}

// Released reports whether Release has been called.
func (g *ReadGuard[T]) Released() bool {
	return g.released
}

func (g *ReadGuard[T]) mustBeLive() {
	if g.released {
		c := g.cell
		report.Raise(report.OpUseReleased, c.addr(), c.state.Get(), "a live read guard", c.site.Get())
	}
}

// WriteGuard is the outstanding read-write borrow of a Cell.
//
// It must not outlive its cell and must be released exactly once.
type WriteGuard[T any] struct {
	_        noCopy
	cell     *Cell[T]
	released bool
}

// Get returns a copy of the borrowed value.
func (g *WriteGuard[T]) Get() T {
	g.mustBeLive()
	return g.cell.value
}

// Set replaces the borrowed value.
func (g *WriteGuard[T]) Set(v T) {
	g.mustBeLive()
	g.cell.value = v
}

// Ptr returns a pointer to the borrowed value for in-place mutation.
// The pointer is only valid until Release.
func (g *WriteGuard[T]) Ptr() *T {
	g.mustBeLive()
	return &g.cell.value
}

// Release ends the borrow. Releasing twice is fatal.
func (g *WriteGuard[T]) Release() {
	g.mustBeLive()
	g.released = true
	g.cell.releaseWrite()
}

// Released reports whether Release has been called.
func (g *WriteGuard[T]) Released() bool {
	return g.released
}

func (g *WriteGuard[T]) mustBeLive() {
	if g.released {
		c := g.cell
		report.Raise(report.OpUseReleased, c.addr(), c.state.Get(), "a live write guard", c.site.Get())
	}
}
