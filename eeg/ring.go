package eeg

import "log"

// A RingBuffer is a fixed-capacity FIFO of samples. Pushing into a full
// buffer evicts the oldest sample.
type RingBuffer struct {
	data  []float64
	start int
	size  int
}

// NewRingBuffer creates an empty buffer that holds at most capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		log.Panicf("ring buffer capacity must be positive, got %d", capacity)
	}

	return &RingBuffer{data: make([]float64, capacity)}
}

// Capacity returns the maximum number of samples the buffer holds.
func (b *RingBuffer) Capacity() int {
	return len(b.data)
}

// Len returns the number of samples in the buffer.
func (b *RingBuffer) Len() int {
	return b.size
}

// Push appends v, evicting the oldest sample if the buffer is full.
func (b *RingBuffer) Push(v float64) {
	if b.size < len(b.data) {
		b.data[(b.start+b.size)%len(b.data)] = v
		b.size++
		return
	}

	b.data[b.start] = v
	b.start = (b.start + 1) % len(b.data)
}

// Last returns the most recent sample. It panics on an empty buffer.
func (b *RingBuffer) Last() float64 {
	if b.size == 0 {
		log.Panic("ring buffer is empty")
	}

	return b.data[(b.start+b.size-1)%len(b.data)]
}

// At returns the i-th oldest sample.
func (b *RingBuffer) At(i int) float64 {
	if i < 0 || i >= b.size {
		log.Panicf("index %d out of range [0, %d)", i, b.size)
	}

	return b.data[(b.start+i)%len(b.data)]
}

// Values returns a copy of the samples, oldest first.
func (b *RingBuffer) Values() []float64 {
	out := make([]float64, b.size)

	n := copy(out, b.data[b.start:min(b.start+b.size, len(b.data))])
	copy(out[n:], b.data[:b.size-n])

	return out
}

// Fill replaces the content with capacity copies of v.
func (b *RingBuffer) Fill(v float64) {
	for i := range b.data {
		b.data[i] = v
	}

	b.start = 0
	b.size = len(b.data)
}

// Reset empties the buffer and then pushes the given samples.
func (b *RingBuffer) Reset(values ...float64) {
	b.start = 0
	b.size = 0

	for _, v := range values {
		b.Push(v)
	}
}
