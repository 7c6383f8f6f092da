package ringbuf

import "testing"

func TestRingEvictsOldest(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 3; i++ {
		if _, ok := r.Push(i); ok {
			t.Fatalf("unexpected eviction on push %d", i)
		}
	}
	ev, ok := r.Push(4)
	if !ok || ev != 1 {
		t.Fatalf("expected eviction of 1, got %d ok=%v", ev, ok)
	}
	got := r.Values()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values[%d]=%d want %d", i, got[i], want[i])
		}
	}
	if r.Len() != 3 || r.Cap() != 3 {
		t.Fatalf("len=%d cap=%d", r.Len(), r.Cap())
	}
}

func TestRingAt(t *testing.T) {
	r := New[string](2)
	if _, ok := r.At(0); ok {
		t.Fatal("empty ring must not return values")
	}
	r.Push("a")
	r.Push("b")
	r.Push("c")

	if v, _ := r.At(0); v != "b" {
		t.Fatalf("At(0)=%q", v)
	}
	if v, _ := r.At(-1); v != "c" {
		t.Fatalf("At(-1)=%q", v)
	}
	if _, ok := r.At(2); ok {
		t.Fatal("At(2) must be out of range")
	}
}

func TestValuesIsCopy(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	vals := r.Values()
	vals[0] = 42
	if v, _ := r.At(0); v != 1 {
		t.Fatalf("ring mutated through Values copy: %d", v)
	}

	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("len after reset=%d", r.Len())
	}
}
