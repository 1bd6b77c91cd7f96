// ABOUTME: Blocking PCM byte ring for non-real-time consumers
// ABOUTME: Readers wait on a condition variable until a full frame is available
package ring

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Blocking is a byte ring whose readers can wait for data. Writes keep the
// overwrite-on-full policy of Buffer and never block.
//
// Never read from a Blocking ring inside an audio device callback.
type Blocking struct {
	mu      sync.Mutex
	cond    *sync.Cond
	r       ring
	closed  bool
	dropped atomic.Uint64
}

// NewBlocking creates a blocking ring with the given capacity in bytes
func NewBlocking(capacity int) (*Blocking, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	b := &Blocking{r: ring{buf: make([]byte, capacity)}}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Write appends p, wakes waiting readers and returns the number of unread
// bytes overwritten. Writes after Close are discarded.
func (b *Blocking) Write(p []byte) int {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0
	}
	over := b.r.write(p)
	b.mu.Unlock()
	b.cond.Broadcast()

	if over > 0 {
		b.dropped.Add(uint64(over))
	}
	return over
}

// ReadFull fills p completely, waiting until enough bytes are buffered.
// The bytes are taken in one step so concurrent writers never interleave
// into a frame being read.
func (b *Blocking) ReadFull(p []byte) error {
	if len(p) > len(b.r.buf) {
		return fmt.Errorf("%w: %d > %d", ErrReadTooLarge, len(p), len(b.r.buf))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.r.size < len(p) {
		if b.closed {
			return ErrClosed
		}
		b.cond.Wait()
	}
	if b.closed {
		return ErrClosed
	}

	b.r.read(p)
	return nil
}

// Read copies whatever is available up to len(p) without waiting
func (b *Blocking) Read(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.read(p)
}

// Clear discards all unread bytes
func (b *Blocking) Clear() {
	b.mu.Lock()
	b.r.clear()
	b.mu.Unlock()
}

// Close wakes all waiting readers; they and later readers get ErrClosed
func (b *Blocking) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Len returns the number of unread bytes
func (b *Blocking) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.r.size
}

// Cap returns the capacity in bytes
func (b *Blocking) Cap() int {
	return len(b.r.buf)
}

// Dropped returns the total number of unread bytes lost to overwrites
func (b *Blocking) Dropped() uint64 {
	return b.dropped.Load()
}
