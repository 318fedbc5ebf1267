// Package sampler periodically reads an external scalar measurement and
// retunes an oscillator with it.
package sampler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/alloctone/internal/metrics"
)

// DefaultInterval is the cadence of frequency updates.
const DefaultInterval = 50 * time.Millisecond

// Supplier returns the most recent value of the external measurement.
// Only the latest value matters; the sampler never queues readings.
type Supplier func() float64

// Map converts a raw measurement into an oscillator frequency in Hz.
type Map func(float64) float64

// Tuner is the one capability of the oscillator the sampler may use.
type Tuner interface {
	SetFrequency(f float64) error
}

// Sampler runs a fixed-rate tick loop on its own goroutine. time.Ticker
// drops ticks when the receiver lags, so missed ticks are skipped rather
// than queued.
type Sampler struct {
	tuner    Tuner
	supplier Supplier
	mapFn    Map
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a sampler. An interval of 0 means DefaultInterval.
func New(tuner Tuner, supplier Supplier, mapFn Map, interval time.Duration, logger *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		tuner:    tuner,
		supplier: supplier,
		mapFn:    mapFn,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *Sampler) Start() {
	go s.loop()
}

// Stop terminates the tick loop. It is idempotent and best-effort: an
// in-flight tick is not cancelled, the loop just exits at the next
// select.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the tick loop has exited.
func (s *Sampler) Done() <-chan struct{} { return s.done }

func (s *Sampler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sampler) tick() {
	v := s.supplier()
	f := s.mapFn(v)
	metrics.SamplerTicksTotal.Inc()
	metrics.MeasurementValue.Set(v)

	// A rejected frequency (idle measurement mapping to 0 Hz, or a spike
	// above the sample rate) leaves the previous tuning in place. That is
	// routine, not fatal, so log quietly and keep ticking.
	if err := s.tuner.SetFrequency(f); err != nil {
		metrics.RejectedFrequenciesTotal.Inc()
		s.logger.Debug("frequency rejected",
			zap.Float64("measurement", v),
			zap.Float64("hz", f),
			zap.Error(err),
		)
		return
	}
	metrics.FrequencyHz.Set(f)
}
