// Package rawcell implements the unchecked interior-mutability primitive.
//
// A RawCell is a single value slot that may be mutated through any pointer
// to it. It performs no bookkeeping at all: correctness depends entirely on
// the caller. The checked layers (tracked.Cell, shared.Ptr) are its only
// intended clients.
//
// # Caller Obligations
//
//   - No goroutine other than the owner may touch the cell. There is no
//     synchronization; concurrent use is a data race.
//   - Set/Replace/Swap/Take must not be called while a pointer into the slot
//     (obtained by a higher layer) is still in use.
//   - Get returns a copy. Only store values whose copy is independent of the
//     original (integers, small structs of scalars, packed state words).
//     Storing pointers, slices or maps defeats the purpose, because the copy
//     aliases the slot's referent.
//
// Violating these obligations is not detected.
package rawcell

// noCopy may be embedded into structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// RawCell holds exactly one value of type T.
//
// The zero value is ready to use and holds the zero T, which lets higher
// layers embed a RawCell directly in their own structs.
type RawCell[T any] struct {
	_ noCopy
	v T
}

// New creates a cell holding v.
func New[T any](v T) *RawCell[T] {
	return &RawCell[T]{v: v}
}

// Set replaces the contained value.
func (c *RawCell[T]) Set(v T) {
	c.v = v
}

// Get returns a copy of the contained value.
func (c *RawCell[T]) Get() T {
	return c.v
}

// Replace stores v and returns the previous value.
func (c *RawCell[T]) Replace(v T) T {
	old := c.v
	c.v = v
	return old
}

// Take returns the contained value and leaves the zero T in its place.
func (c *RawCell[T]) Take() T {
	var zero T
	return c.Replace(zero)
}

// Swap exchanges the values of c and other. Swapping a cell with itself is a no-op.
func (c *RawCell[T]) Swap(other *RawCell[T]) {
	if c == other {
		return
	}
	c.v, other.v = other.v, c.v
}

// Update applies fn to the current value, stores the result and returns it.
//
// fn receives a copy; it must not reach back into c.
func (c *RawCell[T]) Update(fn func(T) T) T {
	c.v = fn(c.v)
	return c.v
}
