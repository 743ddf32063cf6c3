// Package stackdepot stores deduplicated acquisition sites for borrow diagnostics.
//
// When a tracked cell is created with tracking enabled, every successful
// borrow records where it was taken. The depot keeps each distinct call
// stack once and hands out a 64-bit hash; cells store only the hash.
// Contention errors and fatal reports resolve the hash back to frames.
//
// Design:
//   - Fixed-size traces (MaxFrames program counters)
//   - FNV-1a hash of the program counters as the key
//   - Process-wide sync.Map: cells are single-goroutine, but different
//     cells may live on different goroutines and share this depot
//
// Usage:
//
//	site := stackdepot.Capture(1)
//	...
//	fmt.Print(stackdepot.Get(site).Format())
package stackdepot

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

const (
	// MaxFrames is the maximum number of stack frames kept per site.
	MaxFrames = 8
)

// Trace is a captured call stack with fixed size.
type Trace struct {
	PC [MaxFrames]uintptr
}

// depot maps uint64 (hash) → *Trace.
var depot sync.Map

// Capture records the caller's stack and returns its hash.
//
// skip is the number of frames above Capture's caller to omit, so cell
// internals can hide themselves: Capture(0) starts at the caller of Capture,
// Capture(1) at the caller's caller, and so on.
//
// Returns 0 if no stack is available.
func Capture(skip int) uint64 {
	// Skip runtime.Callers and Capture itself.
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return 0
	}

	hash := hashPCs(pcs[:n])
	if _, exists := depot.Load(hash); exists {
		return hash
	}

	depot.Store(hash, &Trace{PC: pcs})
	return hash
}

// Get returns the trace stored under hash, or nil for 0 or an unknown hash.
func Get(hash uint64) *Trace {
	if hash == 0 {
		return nil
	}

	val, ok := depot.Load(hash)
	if !ok {
		return nil
	}
	return val.(*Trace)
}

// hashPCs computes the FNV-1a hash of program counters.
func hashPCs(pcs []uintptr) uint64 {
	h := fnv.New64a()

	for _, pc := range pcs {
		//nolint:gosec // G103: Reading the PC value as bytes for hashing.
		pcBytes := (*[8]byte)(unsafe.Pointer(&pc))[:]
		_, _ = h.Write(pcBytes) // hash.Hash never returns an error.
	}

	return h.Sum64()
}

// Format renders the trace for diagnostics:
//
//	example.com/app.(*Store).Load()
//	    /path/to/store.go:45
//
// Runtime frames are omitted. A nil trace renders as "  <unknown>\n".
func (t *Trace) Format() string {
	if t == nil {
		return "  <unknown>\n"
	}

	frames := runtime.CallersFrames(trimZero(t.PC[:]))

	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}

		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&buf, "  %s()\n", frame.Function)
			fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)
		}

		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

// Top returns "function file:line" for the first non-runtime frame, or "" if none.
func (t *Trace) Top() string {
	if t == nil {
		return ""
	}

	frames := runtime.CallersFrames(trimZero(t.PC[:]))
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			return ""
		}
		if !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line)
		}
		if !more {
			return ""
		}
	}
}

func trimZero(pcs []uintptr) []uintptr {
	for i, pc := range pcs {
		if pc == 0 {
			return pcs[:i]
		}
	}
	return pcs
}

// Reset clears the depot. Test helper; not safe while other goroutines capture.
func Reset() {
	depot = sync.Map{}
}

// Len returns the number of distinct sites stored.
func Len() int {
	n := 0
	depot.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
