// Package borrowstate implements the packed three-state borrow tracker used by tracked cells.
//
// State represents the borrow state of one cell as a compact 32-bit value:
// - Top 2 bits: Kind (Unshared, Shared, Exclusive)
// - Bottom 30 bits: outstanding reader count (Shared only)
//
// The zero State is Unshared, so a zero-initialized cell starts with no
// outstanding borrows. Transitions are pure functions returning the next
// State; the caller stores the result.
package borrowstate

import "strconv"

// Kind is the tag of a State.
type Kind uint8

const (
	// Unshared means no borrow is outstanding.
	Unshared Kind = iota
	// Shared means one or more read-only borrows are outstanding.
	Shared
	// Exclusive means one read-write borrow is outstanding.
	Exclusive
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Unshared:
		return "unshared"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "invalid"
	}
}

// State is a 32-bit borrow state encoding both kind and reader count.
// Layout: [Kind:2][Count:30]
//
// Example: 0x40000003 represents Shared with 3 outstanding readers.
type State uint32

const (
	// KindBits is the number of bits allocated for the kind tag.
	KindBits = 2

	// CountBits is the number of bits allocated for the reader count.
	CountBits = 30

	// CountMask is the bitmask for extracting the reader count (0x3FFFFFFF).
	CountMask = (1 << CountBits) - 1

	// MaxReaders is the largest number of simultaneous read borrows.
	MaxReaders = CountMask
)

// Well-known states.
const (
	// None is the Unshared state.
	None State = 0

	// Writer is the Exclusive state.
	Writer State = State(Exclusive) << CountBits
)

// Readers returns the Shared state with n outstanding readers.
//
// n must be in [1, MaxReaders]; Readers(0) is Unshared.
func Readers(n uint32) State {
	if n == 0 {
		return None
	}
	return State(uint32(Shared)<<CountBits | (n & CountMask))
}

// Decode extracts the kind and reader count from a state.
//
// Returns:
//   - kind: the top KindBits bits (Unshared, Shared or Exclusive; anything
//     else is reported invalid by Valid)
//   - count: the low CountBits bits, the reader count for Shared
//
// Performance: two bit operations, inlined.
func (s State) Decode() (kind Kind, count uint32) {
	//nolint:gosec // G115: Intentional truncation to extract the top bits as kind.
	kind = Kind(s >> CountBits)
	count = uint32(s) & CountMask
	return
}

// Kind returns the tag of the state.
func (s State) Kind() Kind {
	k, _ := s.Decode()
	return k
}

// Count returns the number of outstanding borrows: the reader count for
// Shared, 1 for Exclusive and 0 for Unshared.
func (s State) Count() uint32 {
	kind, count := s.Decode()
	switch kind {
	case Shared:
		return count
	case Exclusive:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the state is one of the three well-formed shapes.
//
// Unshared and Exclusive carry a zero count; Shared carries a non-zero count.
func (s State) Valid() bool {
	kind, count := s.Decode()
	switch kind {
	case Unshared, Exclusive:
		return count == 0
	case Shared:
		return count != 0
	default:
		return false
	}
}

// AcquireRead returns the state after granting one more read borrow.
//
// Unshared → Shared(1), Shared(n) → Shared(n+1).
// Exclusive, a saturated reader count or a malformed state refuse the borrow.
func (s State) AcquireRead() (State, bool) {
	kind, count := s.Decode()
	switch {
	case kind == Unshared && count == 0:
		return Readers(1), true
	case kind == Shared && count > 0 && count < MaxReaders:
		return Readers(count + 1), true
	default:
		return s, false
	}
}

// AcquireWrite returns the state after granting the write borrow.
//
// Only Unshared → Exclusive succeeds.
func (s State) AcquireWrite() (State, bool) {
	if s != None {
		return s, false
	}
	return Writer, true
}

// ReleaseRead returns the state after one read borrow ends.
//
// Shared(1) → Unshared, Shared(n>1) → Shared(n-1).
// Any other state means the bookkeeping is corrupt; ok is false and the
// caller must treat that as fatal.
func (s State) ReleaseRead() (next State, ok bool) {
	kind, count := s.Decode()
	if kind != Shared || count == 0 {
		return s, false
	}
	return Readers(count - 1), true
}

// ReleaseWrite returns the state after the write borrow ends.
//
// Exclusive → Unshared. Any other state is corrupt bookkeeping.
func (s State) ReleaseWrite() (next State, ok bool) {
	if s != Writer {
		return s, false
	}
	return None, true
}

// String returns a human-readable representation of the state.
//
// Format: "unshared", "shared(3)", "exclusive", or "invalid(0x...)" for a
// malformed word.
func (s State) String() string {
	if !s.Valid() {
		return "invalid(0x" + strconv.FormatUint(uint64(s), 16) + ")"
	}
	kind, count := s.Decode()
	if kind == Shared {
		return "shared(" + strconv.FormatUint(uint64(count), 10) + ")"
	}
	return kind.String()
}
