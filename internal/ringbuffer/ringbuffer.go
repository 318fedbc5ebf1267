// Package ringbuffer keeps the most recent stretch of a PCM stream for
// on-demand inspection.
package ringbuffer

import (
	"sync"
	"time"
)

// Buffer is a fixed-duration circular buffer of raw PCM bytes. It is safe
// for a single writer and concurrent readers.
type Buffer struct {
	mu             sync.Mutex
	buf            []byte
	writePos       int
	written        int // total bytes ever written
	bytesPerSecond int
}

// New creates a buffer holding d worth of audio at the given byte rate
// (sample rate × channels × bytes per sample).
func New(d time.Duration, bytesPerSecond int) *Buffer {
	capacity := int(d.Seconds() * float64(bytesPerSecond))
	if capacity < bytesPerSecond {
		capacity = bytesPerSecond
	}
	return &Buffer{
		buf:            make([]byte, capacity),
		bytesPerSecond: bytesPerSecond,
	}
}

// Write appends PCM data, overwriting the oldest bytes when full.
func (b *Buffer) Write(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(data) > 0 {
		n := copy(b.buf[b.writePos:], data)
		data = data[n:]
		b.writePos = (b.writePos + n) % len(b.buf)
		b.written += n
	}
}

// Snapshot returns a copy of the last d worth of audio. If less has been
// written than requested, only what is available comes back; an untouched
// buffer yields nil.
func (b *Buffer) Snapshot(d time.Duration) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.buf)
	requested := int(d.Seconds() * float64(b.bytesPerSecond))
	if requested > capacity {
		requested = capacity
	}

	available := b.written
	if available > capacity {
		available = capacity
	}
	if requested > available {
		requested = available
	}
	if requested == 0 {
		return nil
	}

	out := make([]byte, requested)
	start := (b.writePos - requested + capacity) % capacity
	if start+requested <= capacity {
		copy(out, b.buf[start:start+requested])
	} else {
		first := capacity - start
		copy(out[:first], b.buf[start:])
		copy(out[first:], b.buf[:requested-first])
	}
	return out
}

// Buffered returns how much audio is currently stored.
func (b *Buffer) Buffered() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	available := b.written
	if available > len(b.buf) {
		available = len(b.buf)
	}
	return time.Duration(float64(available) / float64(b.bytesPerSecond) * float64(time.Second))
}
