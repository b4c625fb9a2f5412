package ring

import (
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	b := New[int](10)
	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.Cap() != 10 {
		t.Errorf("expected cap 10, got %d", b.Cap())
	}
	if b.Len() != 0 {
		t.Errorf("expected len 0, got %d", b.Len())
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("New did not panic with non-positive size")
		}
	}()
	New[int](0)
}

func TestBuffer_PushAndValues(t *testing.T) {
	b := New[int](3)

	b.Push(1)
	b.Push(2)
	if got := b.Values(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("partial buffer: expected [1 2], got %v", got)
	}

	b.Push(3) // full: [1 2 3]
	if got := b.Values(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("full buffer: expected [1 2 3], got %v", got)
	}

	b.Push(4) // overwrites 1, chronological: [2 3 4]
	if b.Len() != 3 {
		t.Errorf("expected len 3 after overwrite, got %d", b.Len())
	}
	if got := b.Values(); !reflect.DeepEqual(got, []int{2, 3, 4}) {
		t.Errorf("wrapped buffer: expected [2 3 4], got %v", got)
	}

	b.Push(5) // overwrites 2, chronological: [3 4 5]
	if got := b.Values(); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("wrapped twice: expected [3 4 5], got %v", got)
	}
}

func TestBuffer_ValuesEmpty(t *testing.T) {
	b := New[string](5)
	if got := b.Values(); len(got) != 0 {
		t.Errorf("expected no values from empty buffer, got %v", got)
	}
}

func TestBuffer_Last(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 6; i++ {
		b.Push(i)
	}
	// Buffer now holds [3 4 5 6].
	if got := b.Last(2); !reflect.DeepEqual(got, []int{5, 6}) {
		t.Errorf("Last(2): expected [5 6], got %v", got)
	}
	if got := b.Last(10); !reflect.DeepEqual(got, []int{3, 4, 5, 6}) {
		t.Errorf("Last(10): expected all values, got %v", got)
	}
}

func TestBuffer_ValuesIsACopy(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)

	got := b.Values()
	got[0] = 99

	if again := b.Values(); !reflect.DeepEqual(again, []int{1, 2}) {
		t.Errorf("mutating the returned slice changed the buffer: %v", again)
	}
}
