package tracked

import (
	"errors"
	"fmt"

	"github.com/kolkov/cellkit/internal/cell/borrowstate"
	"github.com/kolkov/cellkit/internal/cell/stackdepot"
)

// Access is the kind of borrow requested.
type Access int

const (
	// AccessRead is a Borrow request.
	AccessRead Access = iota
	// AccessWrite is a BorrowMut request.
	AccessWrite
)

// String returns the string representation of an Access.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Sentinel causes of a refused borrow. Match them with errors.Is.
var (
	// ErrMutablyBorrowed means a write borrow is outstanding.
	ErrMutablyBorrowed = errors.New("already mutably borrowed")

	// ErrBorrowed means read borrows are outstanding, so a write was refused.
	ErrBorrowed = errors.New("already borrowed")

	// ErrTooManyReaders means the reader count is saturated.
	ErrTooManyReaders = errors.New("too many read borrows")
)

// BorrowError reports a refused TryBorrow or TryBorrowMut. It is a normal,
// recoverable outcome.
type BorrowError struct {
	// Want is the requested access.
	Want Access

	// State is the borrow state that refused the request.
	State borrowstate.State

	// Site is the stackdepot hash of the outstanding writer or first
	// reader, or 0 when the cell was created without tracking.
	Site uint64
}

// Error implements error.
func (e *BorrowError) Error() string {
	msg := fmt.Sprintf("cellkit: %s borrow refused: %v (state %s)", e.Want, e.Unwrap(), e.State)
	if top := stackdepot.Get(e.Site).Top(); top != "" {
		msg += "; first borrowed at " + top
	}
	return msg
}

// Unwrap returns the sentinel cause.
func (e *BorrowError) Unwrap() error {
	kind, count := e.State.Decode()
	switch {
	case kind == borrowstate.Exclusive:
		return ErrMutablyBorrowed
	case kind == borrowstate.Shared && count >= borrowstate.MaxReaders && e.Want == AccessRead:
		return ErrTooManyReaders
	default:
		return ErrBorrowed
	}
}
