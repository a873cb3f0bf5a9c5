package sim

import (
	"context"
	"sync"

	"github.com/ardnew/usbstream/pkg"
)

// ring is a bounded byte FIFO shared by a producer and a consumer goroutine.
// Blocking operations wait on a broadcast channel that is replaced after
// every state change.
type ring struct {
	mu     sync.Mutex
	buf    []byte
	head   int // index of the oldest byte
	count  int // bytes stored
	signal chan struct{}
	closed bool
}

func newRing(size int) *ring {
	return &ring{
		buf:    make([]byte, size),
		signal: make(chan struct{}),
	}
}

// Cap returns the ring capacity in bytes.
func (r *ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of buffered bytes.
func (r *ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close wakes all waiters; further blocking calls fail with ErrNotRunning.
func (r *ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.notifyLocked()
}

// Write stores as much of p as fits without blocking.
func (r *ring) Write(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.writeLocked(p)
	if n > 0 {
		r.notifyLocked()
	}
	return n
}

// Overwrite stores all of p, discarding the oldest bytes when the ring is
// full. It returns the number of bytes discarded.
func (r *ring) Overwrite(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return len(p)
	}
	dropped := 0
	if len(p) > len(r.buf) {
		dropped = len(p) - len(r.buf)
		p = p[dropped:]
	}
	if over := r.count + len(p) - len(r.buf); over > 0 {
		r.discardLocked(over)
		dropped += over
	}
	r.writeLocked(p)
	r.notifyLocked()
	return dropped
}

// Read copies buffered bytes into p without blocking.
func (r *ring) Read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.readLocked(p)
	if n > 0 {
		r.notifyLocked()
	}
	return n
}

// ReadFull blocks until p is full, the ring is closed or ctx is done.
func (r *ring) ReadFull(ctx context.Context, p []byte) (int, error) {
	n := 0
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return n, pkg.ErrNotRunning
		}
		if m := r.readLocked(p[n:]); m > 0 {
			n += m
			r.notifyLocked()
		}
		if n == len(p) {
			r.mu.Unlock()
			return n, nil
		}
		wait := r.signal
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return n, pkg.ContextError(ctx.Err())
		case <-wait:
		}
	}
}

// WriteAll blocks until all of p is stored, the ring is closed or ctx is done.
func (r *ring) WriteAll(ctx context.Context, p []byte) (int, error) {
	n := 0
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return n, pkg.ErrNotRunning
		}
		if m := r.writeLocked(p[n:]); m > 0 {
			n += m
			r.notifyLocked()
		}
		if n == len(p) {
			r.mu.Unlock()
			return n, nil
		}
		wait := r.signal
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return n, pkg.ContextError(ctx.Err())
		case <-wait:
		}
	}
}

func (r *ring) writeLocked(p []byte) int {
	n := 0
	for n < len(p) && r.count < len(r.buf) {
		tail := (r.head + r.count) % len(r.buf)
		end := len(r.buf)
		if tail < r.head {
			end = r.head
		}
		m := copy(r.buf[tail:end], p[n:])
		n += m
		r.count += m
	}
	return n
}

func (r *ring) readLocked(p []byte) int {
	n := 0
	for n < len(p) && r.count > 0 {
		end := r.head + r.count
		if end > len(r.buf) {
			end = len(r.buf)
		}
		m := copy(p[n:], r.buf[r.head:end])
		n += m
		r.head = (r.head + m) % len(r.buf)
		r.count -= m
	}
	return n
}

func (r *ring) discardLocked(n int) {
	if n > r.count {
		n = r.count
	}
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
}

func (r *ring) notifyLocked() {
	close(r.signal)
	r.signal = make(chan struct{})
}
