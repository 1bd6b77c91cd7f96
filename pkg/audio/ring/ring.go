// ABOUTME: Fixed-capacity PCM byte ring with overwrite-on-full semantics
// ABOUTME: Non-blocking variant shared between the session producer and the real-time mixer
package ring

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidCapacity is returned when a ring is created with capacity <= 0
	ErrInvalidCapacity = errors.New("ring capacity must be positive")

	// ErrReadTooLarge is returned when a blocking read asks for more than the ring can ever hold
	ErrReadTooLarge = errors.New("read length exceeds ring capacity")

	// ErrClosed is returned by blocking reads after Close
	ErrClosed = errors.New("ring closed")
)

// ring holds the storage and indices. Callers provide locking.
type ring struct {
	buf      []byte
	readPos  int
	writePos int
	size     int
}

// write copies p in, overwriting the oldest unread bytes when full.
// Returns how many unread bytes were lost.
func (r *ring) write(p []byte) int {
	n := len(p)
	if n == 0 {
		return 0
	}
	c := len(r.buf)

	// Only the last c bytes of an oversized write survive
	start := r.writePos
	if n > c {
		start = (r.writePos + n - c) % c
		p = p[n-c:]
	}
	k := copy(r.buf[start:], p)
	copy(r.buf, p[k:])

	r.writePos = (r.writePos + n) % c

	if over := r.size + n - c; over > 0 {
		r.size = c
		r.readPos = r.writePos
		return over
	}
	r.size += n
	return 0
}

func (r *ring) read(p []byte) int {
	n := min(len(p), r.size)
	if n == 0 {
		return 0
	}
	k := copy(p[:n], r.buf[r.readPos:])
	if k < n {
		copy(p[k:n], r.buf)
	}
	r.readPos = (r.readPos + n) % len(r.buf)
	r.size -= n
	return n
}

// clear resets indices; stale bytes stay in storage but are unreachable
func (r *ring) clear() {
	r.readPos = 0
	r.writePos = 0
	r.size = 0
}

// Buffer is a non-blocking byte ring. Write never blocks on space and
// never fails; when full, the oldest unread bytes are overwritten.
type Buffer struct {
	mu      sync.Mutex
	r       ring
	dropped atomic.Uint64
}

// New creates a ring with the given capacity in bytes
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{r: ring{buf: make([]byte, capacity)}}, nil
}

// Write appends p and returns the number of unread bytes it overwrote.
func (b *Buffer) Write(p []byte) int {
	b.mu.Lock()
	over := b.r.write(p)
	b.mu.Unlock()

	if over > 0 {
		b.dropped.Add(uint64(over))
	}
	return over
}

// Read copies up to len(p) bytes and returns the count. Returns 0 when empty.
func (b *Buffer) Read(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.read(p)
}

// TryRead is Read for the real-time path. If a writer currently holds the
// ring it returns (0, false) immediately instead of waiting.
func (b *Buffer) TryRead(p []byte) (int, bool) {
	if !b.mu.TryLock() {
		return 0, false
	}
	n := b.r.read(p)
	b.mu.Unlock()
	return n, true
}

// Clear discards all unread bytes
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.r.clear()
	b.mu.Unlock()
}

// Len returns the number of unread bytes
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.size
}

// Cap returns the capacity in bytes
func (b *Buffer) Cap() int {
	return len(b.r.buf)
}

// Free returns the number of bytes that can be written without overwriting
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.r.buf) - b.r.size
}

// Dropped returns the total number of unread bytes lost to overwrites
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}
