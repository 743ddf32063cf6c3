package rawcell

import "testing"

// TestRawCellRoundTrip verifies New(v).Get() == v and Set(v2) then Get() == v2.
func TestRawCellRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		next    int
	}{
		{"zero to positive", 0, 42},
		{"positive to negative", 7, -3},
		{"same value", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.initial)
			if got := c.Get(); got != tt.initial {
				t.Errorf("New(%d).Get() = %d, want %d", tt.initial, got, tt.initial)
			}

			c.Set(tt.next)
			if got := c.Get(); got != tt.next {
				t.Errorf("after Set(%d), Get() = %d, want %d", tt.next, got, tt.next)
			}
		})
	}
}

// TestRawCellZeroValue verifies that an embedded zero cell is usable in place.
func TestRawCellZeroValue(t *testing.T) {
	var holder struct {
		count RawCell[uint32]
	}

	if got := holder.count.Get(); got != 0 {
		t.Fatalf("zero RawCell.Get() = %d, want 0", got)
	}

	holder.count.Set(holder.count.Get() + 1)
	if got := holder.count.Get(); got != 1 {
		t.Errorf("after increment, Get() = %d, want 1", got)
	}
}

// TestRawCellSharedHandle verifies mutation through two pointers to one cell.
func TestRawCellSharedHandle(t *testing.T) {
	c := New("first")
	a, b := c, c

	a.Set("second")
	if got := b.Get(); got != "second" {
		t.Errorf("write through a not visible through b: got %q", got)
	}
}

// TestRawCellGetReturnsCopy verifies that mutating a Get result leaves the cell alone.
func TestRawCellGetReturnsCopy(t *testing.T) {
	type pair struct{ x, y int }
	c := New(pair{1, 2})

	p := c.Get()
	p.x = 100

	if got := c.Get(); got.x != 1 {
		t.Errorf("cell changed through a copy: got %+v", got)
	}
}

func TestRawCellReplaceAndTake(t *testing.T) {
	c := New(10)

	if old := c.Replace(20); old != 10 {
		t.Errorf("Replace() = %d, want 10", old)
	}
	if got := c.Get(); got != 20 {
		t.Errorf("after Replace, Get() = %d, want 20", got)
	}

	if got := c.Take(); got != 20 {
		t.Errorf("Take() = %d, want 20", got)
	}
	if got := c.Get(); got != 0 {
		t.Errorf("after Take, Get() = %d, want 0", got)
	}
}

func TestRawCellSwap(t *testing.T) {
	a, b := New(1), New(2)

	a.Swap(b)
	if a.Get() != 2 || b.Get() != 1 {
		t.Errorf("after Swap: a=%d b=%d, want a=2 b=1", a.Get(), b.Get())
	}

	a.Swap(a)
	if a.Get() != 2 {
		t.Errorf("self Swap changed value: %d", a.Get())
	}
}

func TestRawCellUpdate(t *testing.T) {
	c := New(3)

	got := c.Update(func(v int) int { return v * 2 })
	if got != 6 || c.Get() != 6 {
		t.Errorf("Update() = %d, Get() = %d, want 6, 6", got, c.Get())
	}
}

// BenchmarkRawCellIncrement measures the read-modify-write used by refcounting.
func BenchmarkRawCellIncrement(b *testing.B) {
	var c RawCell[int]
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Set(c.Get() + 1)
	}
}
