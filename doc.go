// Package cellkit provides interior-mutability primitives for single-goroutine code.
//
// Three layers, each built on the one below:
//
//   - [RawCell]: an unchecked value slot mutable through any pointer to it.
//   - [TrackedCell]: a value whose borrows are checked at runtime. Many
//     readers or one writer; incompatible requests are refused, never blocked.
//   - [SharedPtr]: a non-atomic reference-counted owning handle. The value is
//     released when the last handle is dropped.
//
// # Quick Start
//
//	counter := cellkit.NewShared(0) // *SharedPtr[*TrackedCell[int]]
//	alias := counter.Clone()
//
//	alias.Get().WithMut(func(v *int) { *v++ })
//
//	g, ok := counter.Get().Borrow()
//	if ok {
//		fmt.Println(g.Get()) // 1
//		g.Release()
//	}
//
//	alias.Drop()
//	counter.Drop() // last owner: value released
//
// # Borrow Rules
//
// A [TrackedCell] is always in one of three states:
//
//	unshared   → Borrow → shared(1), BorrowMut → exclusive
//	shared(n)  → Borrow → shared(n+1), BorrowMut refused
//	exclusive  → Borrow refused, BorrowMut refused
//
// Guards move the cell back when released. Release them with defer, or use
// [TrackedCell.With] / [TrackedCell.WithMut], which do it for you.
//
// # Errors and Panics
//
// A refused borrow is an ordinary outcome: Borrow and BorrowMut return
// (nil, false), TryBorrow and TryBorrowMut return a [*BorrowError] matching
// [ErrMutablyBorrowed], [ErrBorrowed] or [ErrTooManyReaders].
//
// Corrupted bookkeeping is not recoverable. Releasing a guard twice, using
// a released guard, or a guard finding a state that contradicts its own
// existence panics with a [*Violation] after logging it (see [SetLogger]).
// Using a dropped [SharedPtr] panics with [ErrDropped].
//
// [RawCell] checks nothing. Overwriting it while something still points
// into it, or sharing it between goroutines, is the caller's bug.
//
// # Diagnostics
//
// Create cells with [WithTracking] to record where each outstanding borrow
// was taken. Refusal errors then read:
//
//	cellkit: read borrow refused: already mutably borrowed (state exclusive); first borrowed at main.update /src/app/main.go:42
//
// # Thread Safety
//
// None of the types are safe for concurrent use. Borrow states and reference
// counts are plain integers, updated with ordinary loads and stores. Keep
// each cell and every handle to one allocation on a single goroutine.
// Independent cells on different goroutines are fine.
//
// For data shared across goroutines use sync.RWMutex, sync/atomic, or
// channels instead.
package cellkit
