package stackdepot

import (
	"strings"
	"sync"
	"testing"
)

// TestCapture tests basic site capture and retrieval.
func TestCapture(t *testing.T) {
	Reset()

	hash := Capture(0)
	if hash == 0 {
		t.Fatal("Capture returned zero hash")
	}

	trace := Get(hash)
	if trace == nil {
		t.Fatal("Get returned nil for a captured hash")
	}
	if trace.PC[0] == 0 {
		t.Error("captured trace has no program counters")
	}
}

// TestCaptureDeduplication tests that the same call site produces one entry.
func TestCaptureDeduplication(t *testing.T) {
	Reset()

	var hashes [2]uint64
	for i := range hashes {
		hashes[i] = Capture(0)
	}

	if hashes[0] != hashes[1] {
		t.Errorf("same site produced different hashes: %x != %x", hashes[0], hashes[1])
	}
	if Get(hashes[0]) != Get(hashes[1]) {
		t.Error("expected the same *Trace for a deduplicated site")
	}
	if n := Len(); n != 1 {
		t.Errorf("Len() = %d after deduplication, want 1", n)
	}
}

func captureFromHelper() uint64 {
	return Capture(1)
}

// TestCaptureSkip tests that skip hides the helper frame.
func TestCaptureSkip(t *testing.T) {
	Reset()

	trace := Get(captureFromHelper())
	top := trace.Top()

	if strings.Contains(top, "captureFromHelper") {
		t.Errorf("Top() = %q, helper frame should be skipped", top)
	}
	if !strings.Contains(top, "TestCaptureSkip") {
		t.Errorf("Top() = %q, want the test function", top)
	}
}

func TestGetUnknown(t *testing.T) {
	Reset()

	if Get(0) != nil {
		t.Error("Get(0) should be nil")
	}
	if Get(0xdeadbeef) != nil {
		t.Error("Get(unknown) should be nil")
	}
}

func TestFormat(t *testing.T) {
	Reset()

	out := Get(Capture(0)).Format()
	if !strings.Contains(out, "TestFormat()") {
		t.Errorf("Format() missing test frame:\n%s", out)
	}
	if !strings.Contains(out, "stackdepot_test.go:") {
		t.Errorf("Format() missing file:line:\n%s", out)
	}
	if strings.Contains(out, "runtime.") {
		t.Errorf("Format() should omit runtime frames:\n%s", out)
	}

	var nilTrace *Trace
	if got := nilTrace.Format(); got != "  <unknown>\n" {
		t.Errorf("nil Format() = %q", got)
	}
	if got := nilTrace.Top(); got != "" {
		t.Errorf("nil Top() = %q, want empty", got)
	}
}

// TestCaptureConcurrent tests that independent goroutines can share the depot.
func TestCaptureConcurrent(t *testing.T) {
	Reset()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if Capture(0) == 0 {
					t.Error("Capture returned zero hash")
					return
				}
			}
		}()
	}
	wg.Wait()

	t.Logf("unique sites after concurrent capture: %d", Len())
}
