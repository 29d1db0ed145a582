package rrcf

import "fmt"

// BoundedBuffer is a fixed-capacity circular queue of scalars with stable
// logical indices. Every Add assigns the next logical index (monotonically
// increasing over the buffer's lifetime) and, when the buffer is at capacity,
// evicts the oldest scalar. Shingled points hold a buffer handle plus a start
// index and read their coordinates through Get.
//
// A BoundedBuffer is not safe for concurrent use with mutation.
type BoundedBuffer struct {
	data  []float64
	first uint64 // logical index of the oldest retained scalar
	size  int
}

// NewBoundedBuffer creates an empty buffer holding at most capacity scalars.
func NewBoundedBuffer(capacity int) *BoundedBuffer {
	assert(capacity > 0, "buffer capacity must be positive")
	return &BoundedBuffer{data: make([]float64, capacity)}
}

// Capacity returns the fixed capacity.
func (b *BoundedBuffer) Capacity() int { return len(b.data) }

// Size returns the number of scalars currently retained.
func (b *BoundedBuffer) Size() int { return b.size }

// First returns the logical index of the oldest retained scalar.
// Undefined on an empty buffer (returns 0).
func (b *BoundedBuffer) First() uint64 { return b.first }

// Next returns the logical index the next Add will occupy, which equals the
// total number of scalars ever added.
func (b *BoundedBuffer) Next() uint64 { return b.first + uint64(b.size) }

// Add appends v, evicting the oldest scalar if the buffer is full, and
// returns the logical index assigned to v.
func (b *BoundedBuffer) Add(v float64) uint64 {
	index := b.Next()
	b.data[index%uint64(len(b.data))] = v
	if b.size == len(b.data) {
		b.first++
	} else {
		b.size++
	}
	return index
}

// Get returns the scalar at the given logical index. It fails if the index
// has been evicted or not yet written.
func (b *BoundedBuffer) Get(index uint64) (float64, error) {
	if index < b.first || index >= b.Next() {
		return 0, fmt.Errorf("rrcf: buffer index %d out of retained range [%d, %d)", index, b.first, b.Next())
	}
	return b.data[index%uint64(len(b.data))], nil
}
