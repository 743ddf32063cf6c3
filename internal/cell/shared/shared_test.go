package shared

import (
	"math/rand"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kolkov/cellkit/internal/cell/report"
	"github.com/kolkov/cellkit/internal/cell/tracked"
)

// counter stands in for instrumented allocation counting.
type counter struct {
	allocs, frees int
}

func (c *counter) new(v int) *Ptr[int] {
	c.allocs++
	return New(v, WithRelease(func(int) { c.frees++ }))
}

func (c *counter) live() int {
	return c.allocs - c.frees
}

func mustPanicDropped(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != ErrDropped {
			t.Errorf("panic = %v, want ErrDropped", r)
		}
	}()
	fn()
}

// TestRefcountLifecycle: a and b share 42; dropping a keeps it alive for b.
func TestRefcountLifecycle(t *testing.T) {
	var mem counter

	a := mem.new(42)
	b := a.Clone()

	if a.Get() != 42 || b.Get() != 42 {
		t.Fatalf("a=%d b=%d, want 42 42", a.Get(), b.Get())
	}
	if a.Count() != 2 {
		t.Errorf("Count() = %d after one clone, want 2", a.Count())
	}

	a.Drop()
	if mem.frees != 0 {
		t.Fatal("dropping a released the shared value while b is alive")
	}
	if got := b.Get(); got != 42 {
		t.Errorf("b.Get() after dropping a = %d, want 42", got)
	}
	if b.Count() != 1 {
		t.Errorf("b.Count() = %d, want 1", b.Count())
	}

	b.Drop()
	if mem.frees != 1 || mem.live() != 0 {
		t.Errorf("after last drop: allocs=%d frees=%d, want 1 1", mem.allocs, mem.frees)
	}
}

// TestDropOrderIndependence: N clones plus the original, dropped in any
// order, release exactly once and only on the final drop.
func TestDropOrderIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{0, 1, 2, 5, 32} {
		for round := 0; round < 10; round++ {
			var mem counter
			handles := []*Ptr[int]{mem.new(n)}
			for i := 0; i < n; i++ {
				// Clone from a random live handle, not only the origin.
				handles = append(handles, handles[rng.Intn(len(handles))].Clone())
			}
			rng.Shuffle(len(handles), func(i, j int) { handles[i], handles[j] = handles[j], handles[i] })

			for i, h := range handles {
				if want := len(handles) - i; h.Count() != want {
					t.Fatalf("n=%d: Count() = %d before drop %d, want %d", n, h.Count(), i, want)
				}
				h.Drop()

				last := i == len(handles)-1
				if last && mem.frees != 1 {
					t.Fatalf("n=%d: final drop released %d times, want 1", n, mem.frees)
				}
				if !last && mem.frees != 0 {
					t.Fatalf("n=%d: released early at drop %d of %d", n, i+1, len(handles))
				}
			}
		}
	}
}

func TestReleaseReceivesValue(t *testing.T) {
	var got string
	p := New("payload", WithRelease(func(v string) { got = v }))
	p.Clone().Drop()
	p.Drop()

	if got != "payload" {
		t.Errorf("release received %q, want %q", got, "payload")
	}
}

func TestDropClearsAllocation(t *testing.T) {
	p := New(&struct{ n int }{n: 1})
	in := p.inner
	p.Drop()

	if in.value != nil {
		t.Error("last drop left the value in the allocation")
	}
	if in.refcount.Get() != 0 {
		t.Errorf("refcount after last drop = %d, want 0", in.refcount.Get())
	}
}

func TestUseAfterDropPanics(t *testing.T) {
	p := New(1)
	q := p.Clone()
	p.Drop()

	if p.Alive() {
		t.Error("Alive() = true after Drop")
	}
	mustPanicDropped(t, func() { _ = p.Get() })
	mustPanicDropped(t, func() { _ = p.Clone() })
	mustPanicDropped(t, func() { _ = p.Count() })
	mustPanicDropped(t, p.Drop)

	// The failed operations must not have touched the shared count.
	if q.Count() != 1 {
		t.Errorf("q.Count() = %d, want 1", q.Count())
	}
	q.Drop()

	var zero Ptr[int]
	mustPanicDropped(t, func() { _ = zero.Get() })
}

func TestSame(t *testing.T) {
	a := New(1)
	b := a.Clone()
	c := New(1)

	if !Same(a, b) {
		t.Error("Same(a, a.Clone()) = false")
	}
	if Same(a, c) {
		t.Error("Same() = true for distinct allocations with equal values")
	}
}

// TestSharedTrackedCell: the composition used for shared mutable state.
func TestSharedTrackedCell(t *testing.T) {
	a := New(tracked.New(0))
	b := a.Clone()

	if !b.Get().WithMut(func(v *int) { *v = 99 }) {
		t.Fatal("WithMut through b refused")
	}

	r, ok := a.Get().Borrow()
	if !ok {
		t.Fatal("Borrow through a refused")
	}
	if r.Get() != 99 {
		t.Errorf("a sees %d, want 99", r.Get())
	}

	// The borrow is tracked per cell, not per handle.
	if _, ok := b.Get().BorrowMut(); ok {
		t.Error("BorrowMut through b granted while a holds a reader")
	}
	r.Release()

	a.Drop()
	b.Drop()
}

func TestLastDropLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	report.SetLogger(zap.New(core))
	defer report.SetLogger(nil)

	p := New(1)
	p.Clone().Drop()
	if logs.Len() != 0 {
		t.Fatalf("non-final drop logged %d entries", logs.Len())
	}
	p.Drop()

	if n := logs.FilterMessage("shared allocation released").Len(); n != 1 {
		t.Errorf("final drop logged %d release entries, want 1", n)
	}
}

func BenchmarkCloneDrop(b *testing.B) {
	p := New(0)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Clone().Drop()
	}
}
