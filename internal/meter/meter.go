// Package meter measures the process's own heap allocation rate.
package meter

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the measurement window.
const DefaultInterval = time.Second

// Meter samples runtime.MemStats.TotalAlloc on a fixed interval and
// publishes the delta as bytes allocated per second. TotalAlloc is
// cumulative and monotonic, so the rate is GC-independent. Rate is
// last-write-wins: readers always see the most recent window, never a
// backlog.
type Meter struct {
	interval time.Duration

	rate atomic.Uint64 // bytes per second, most recent window

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a stopped meter. An interval of 0 means DefaultInterval.
func New(interval time.Duration) *Meter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Meter{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling goroutine.
func (m *Meter) Start() {
	go m.loop()
}

// Stop terminates sampling. Idempotent.
func (m *Meter) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Done is closed once the sampling goroutine has exited.
func (m *Meter) Done() <-chan struct{} { return m.done }

// Rate returns the most recently measured allocation rate in bytes/sec.
func (m *Meter) Rate() float64 {
	return float64(m.rate.Load())
}

func (m *Meter) loop() {
	defer close(m.done)

	// ReadMemStats stops the world briefly; the interval keeps that rare.
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	prev := ms.TotalAlloc
	prevAt := time.Now()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			runtime.ReadMemStats(&ms)
			if elapsed := now.Sub(prevAt).Seconds(); elapsed > 0 {
				m.rate.Store(uint64(float64(ms.TotalAlloc-prev) / elapsed))
			}
			prev, prevAt = ms.TotalAlloc, now
		}
	}
}
