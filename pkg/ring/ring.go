// Package ring provides a fixed-capacity ring buffer used for bounded
// histories (signals, trade results, adverse excursions).
package ring

// Buffer holds up to cap values in insertion order.
// When full, Push overwrites the oldest value.
type Buffer[T any] struct {
	values []T
	size   int
	head   int // Points to the next available slot for writing
	count  int // Number of elements currently in the buffer
}

// New creates a new Buffer with the given capacity.
func New[T any](size int) *Buffer[T] {
	if size <= 0 {
		panic("ring buffer size must be positive")
	}
	return &Buffer[T]{
		values: make([]T, size),
		size:   size,
	}
}

// Push adds a value to the buffer. If the buffer is full,
// the oldest value is overwritten.
func (b *Buffer[T]) Push(v T) {
	b.values[b.head] = v
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Len returns the number of values currently in the buffer.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return b.size
}

// Values returns a copy of all values in the order they were pushed.
func (b *Buffer[T]) Values() []T {
	if b.count == 0 {
		return []T{}
	}

	result := make([]T, b.count)
	if b.count < b.size {
		// Not yet wrapped, elements are from index 0 to head-1.
		copy(result, b.values[:b.head])
	} else {
		// Full. Oldest element is at head, newest at head-1 (wrapped).
		copied := copy(result, b.values[b.head:])
		copy(result[copied:], b.values[:b.head])
	}
	return result
}

// Last returns a copy of the most recent n values in push order.
// If fewer than n values are present, all of them are returned.
func (b *Buffer[T]) Last(n int) []T {
	all := b.Values()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
