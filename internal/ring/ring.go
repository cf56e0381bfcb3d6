// ABOUTME: Fixed-capacity byte ring buffer for producer/consumer decoupling
// ABOUTME: Non-blocking partial reads and writes plus space signaling for backpressure
package ring

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by WaitSpace after Close.
	ErrClosed = errors.New("ring: closed")

	// ErrStalled is returned by WaitSpace when no space freed up
	// within the given timeout.
	ErrStalled = errors.New("ring: stalled")
)

// Buffer is a fixed-capacity byte queue for one producer and one
// consumer. Write and Read never block; they copy what fits and return
// the count. A producer that needs backpressure blocks in WaitSpace
// and is woken when the consumer frees capacity.
type Buffer struct {
	mu   sync.Mutex
	buf  []byte
	r    int // read position
	w    int // write position
	used int

	space  chan struct{} // signaled when the consumer frees capacity
	closed chan struct{}
	once   sync.Once
}

// New creates a ring buffer with the given capacity in bytes.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring: invalid capacity %d", capacity)
	}
	return &Buffer{
		buf:    make([]byte, capacity),
		space:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}, nil
}

// Write copies as many bytes from p as fit into the free region and
// returns the count. It never blocks.
func (b *Buffer) Write(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	free := len(b.buf) - b.used
	n := len(p)
	if n > free {
		n = free
	}

	for i := 0; i < n; i++ {
		b.buf[b.w] = p[i]
		b.w = (b.w + 1) % len(b.buf)
	}
	b.used += n

	return n
}

// Read copies up to len(p) bytes from the occupied region into p and
// returns the count. Freed capacity wakes a producer blocked in
// WaitSpace.
func (b *Buffer) Read(p []byte) int {
	b.mu.Lock()

	n := len(p)
	if n > b.used {
		n = b.used
	}

	for i := 0; i < n; i++ {
		p[i] = b.buf[b.r]
		b.r = (b.r + 1) % len(b.buf)
	}
	b.used -= n

	b.mu.Unlock()

	if n > 0 {
		b.signalSpace()
	}
	return n
}

// Occupied returns the number of bytes currently queued.
func (b *Buffer) Occupied() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Free returns the number of bytes that can be written without waiting.
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf) - b.used
}

// Capacity returns the fixed capacity in bytes.
func (b *Buffer) Capacity() int {
	return len(b.buf)
}

// Reset discards all occupied bytes. The payload memory is untouched;
// positions collapse to empty.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.r = 0
	b.w = 0
	b.used = 0
	b.mu.Unlock()

	b.signalSpace()
}

// WaitSpace blocks until free capacity is available, the buffer is
// closed, or the timeout elapses. A timeout of zero waits forever.
// Returns nil when there is space to write.
func (b *Buffer) WaitSpace(timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		select {
		case <-b.closed:
			return ErrClosed
		default:
		}

		if b.Free() > 0 {
			return nil
		}

		select {
		case <-b.space:
			// re-check; the signal may be stale
		case <-b.closed:
			return ErrClosed
		case <-deadline:
			return ErrStalled
		}
	}
}

// Close wakes any waiting producer. Read and Write keep working so a
// consumer can still drain what is queued.
func (b *Buffer) Close() {
	b.once.Do(func() { close(b.closed) })
}

func (b *Buffer) signalSpace() {
	select {
	case b.space <- struct{}{}:
	default:
	}
}
