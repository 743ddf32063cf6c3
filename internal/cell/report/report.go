// Package report formats and raises fatal borrow-bookkeeping violations.
//
// A Violation means a guard observed a borrow state that contradicts its own
// existence: a read guard releasing while the cell claims Exclusive, a
// guard released twice, and so on. Continuing after that would hand out
// aliasing mutable access, so Fatal logs the report and panics.
package report

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/kolkov/cellkit/internal/cell/borrowstate"
	"github.com/kolkov/cellkit/internal/cell/stackdepot"
)

// Op identifies the guard operation that found the corruption.
type Op int

const (
	// OpReleaseRead is a ReadGuard release.
	OpReleaseRead Op = iota
	// OpReleaseWrite is a WriteGuard release.
	OpReleaseWrite
	// OpUseReleased is any access through a guard that was already released.
	OpUseReleased
)

// String returns the string representation of an Op.
func (o Op) String() string {
	switch o {
	case OpReleaseRead:
		return "release of read guard"
	case OpReleaseWrite:
		return "release of write guard"
	case OpUseReleased:
		return "use of released guard"
	default:
		return "unknown operation"
	}
}

// Violation describes one corrupted-bookkeeping event.
type Violation struct {
	// Op is the guard operation that detected the problem.
	Op Op

	// Cell is the address of the tracked cell, for correlating reports.
	Cell uintptr

	// Observed is the borrow state found in the cell.
	Observed borrowstate.State

	// Expected names the states that would have been legal, e.g. "shared(n>0)".
	Expected string

	// Site is the stackdepot hash of where the guard was acquired (0 if
	// tracking was off).
	Site uint64

	// Stack holds the program counters of the detecting call.
	Stack []uintptr
}

// Error implements error so a recovered Violation can be inspected with errors.As.
func (v *Violation) Error() string {
	return fmt.Sprintf("cellkit: %s at cell 0x%x: observed %s, expected %s",
		v.Op, v.Cell, v.Observed, v.Expected)
}

// Format writes the report in banner form:
//
//	==================
//	FATAL: BORROW STATE CORRUPTED
//	release of read guard at cell 0x00c0000180a0
//	  observed: exclusive
//	  expected: shared(n>0)
//	Detected at:
//	  main.worker()
//	      /path/to/file.go:25
//
//	Guard acquired at:
//	  <unknown>
//	==================
//
//nolint:errcheck // Best-effort diagnostic output.
func (v *Violation) Format(w io.Writer) {
	fmt.Fprintf(w, "==================\n")
	fmt.Fprintf(w, "FATAL: BORROW STATE CORRUPTED\n")
	fmt.Fprintf(w, "%s at cell 0x%016x\n", v.Op, v.Cell)
	fmt.Fprintf(w, "  observed: %s\n", v.Observed)
	fmt.Fprintf(w, "  expected: %s\n", v.Expected)

	fmt.Fprintf(w, "Detected at:\n")
	if len(v.Stack) > 0 {
		var trace stackdepot.Trace
		copy(trace.PC[:], v.Stack)
		fmt.Fprint(w, trace.Format())
	} else {
		fmt.Fprintf(w, "  (no stack trace captured)\n")
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Guard acquired at:\n")
	if v.Site != 0 {
		fmt.Fprint(w, stackdepot.Get(v.Site).Format())
	} else {
		fmt.Fprintf(w, "  (enable tracking to record acquisition sites)\n")
	}
	fmt.Fprintf(w, "==================\n")
}

// String returns the formatted report.
func (v *Violation) String() string {
	var buf strings.Builder
	v.Format(&buf)
	return buf.String()
}

// Raise builds a Violation with the caller's stack and passes it to Fatal.
func Raise(op Op, cell uintptr, observed borrowstate.State, expected string, site uint64) {
	pcs := make([]uintptr, stackdepot.MaxFrames)
	// Skip runtime.Callers and Raise.
	n := runtime.Callers(2, pcs)

	Fatal(&Violation{
		Op:       op,
		Cell:     cell,
		Observed: observed,
		Expected: expected,
		Site:     site,
		Stack:    pcs[:n],
	})
}

// Fatal logs v at error level and panics with it. It never returns.
func Fatal(v *Violation) {
	Logger().Error("borrow state corrupted",
		zap.Stringer("op", v.Op),
		zap.Uintptr("cell", v.Cell),
		zap.Stringer("observed", v.Observed),
		zap.String("expected", v.Expected),
		zap.String("report", v.String()),
	)
	panic(v)
}
