// Package player streams fixed-size sample buffers to a blocking audio
// sink on a dedicated goroutine.
package player

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/alloctone/internal/metrics"
)

// Stream format demanded from the sink. The player never negotiates: the
// device takes exactly this or acquisition fails.
const (
	SampleRate = 22050
	Channels   = 1

	// BufferSize is the number of bytes pulled from the source and
	// written to the sink per iteration.
	BufferSize       = 1000
	SamplesPerBuffer = BufferSize / 2
)

// DefaultPrimingBuffers is how many zeroed buffers are written after the
// device opens, before real samples start. Letting the device settle on
// silence first avoids an audible pop.
const DefaultPrimingBuffers = 20

// State constants for the playback lifecycle.
const (
	StateIdle      = "idle"
	StatePriming   = "priming"
	StateStreaming = "streaming"
	StateStopping  = "stopping"
	StateStopped   = "stopped"
)

// ErrIllegalRestart is returned by Start after the player has stopped. A
// player streams once; a new instance is needed to play again.
var ErrIllegalRestart = errors.New("player: illegal restart after stop")

// Source produces audio samples on demand. Fill writes big-endian signed
// 16-bit samples into buf and returns the number of bytes written.
type Source interface {
	Fill(buf []byte) int
}

// Sink is a blocking audio output device. Write must not return until the
// device has accepted all of p; that backpressure is what paces sample
// generation to playback rate.
type Sink interface {
	Write(p []byte) (int, error)
	// Drain blocks until audio already accepted has played out.
	Drain() error
	Close() error
}

// SinkOpener acquires the output device. The player invokes it on its own
// goroutine, so an acquisition failure flows into the same cleanup path
// as a mid-stream error.
type SinkOpener func() (Sink, error)

// zeroSource feeds silence while the freshly opened device stabilizes.
type zeroSource struct{}

func (zeroSource) Fill(buf []byte) int {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf)
}

// Player owns the streaming goroutine. All errors inside the loop are
// contained: logged, counted, and routed to the drain/close cleanup; none
// of them propagate to the caller.
type Player struct {
	openSink SinkOpener
	priming  int
	logger   *zap.Logger

	mu      sync.Mutex
	state   string
	source  Source
	started bool
	lastErr string

	// done is the cooperative stop flag, checked once per iteration.
	// Stopping is single-shot: up to one buffer may still be written
	// after Stop returns.
	done atomic.Bool

	buffersWritten atomic.Int64

	wg sync.WaitGroup
}

// New creates an idle player that will acquire its sink via open.
func New(open SinkOpener, logger *zap.Logger) *Player {
	return &Player{
		openSink: open,
		priming:  DefaultPrimingBuffers,
		logger:   logger,
		state:    StateIdle,
	}
}

// SetSource attaches the real sample source. Without one, Start is a
// no-op. Must be called before Start.
func (p *Player) SetSource(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = src
}

// SetPrimingBuffers overrides DefaultPrimingBuffers. Must be called
// before Start.
func (p *Player) SetPrimingBuffers(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priming = n
}

// Start launches the streaming goroutine. It does nothing if no source is
// attached, and rejects a restart once the player has run.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		p.logger.Error("illegal to restart a player once it has been stopped")
		return ErrIllegalRestart
	}
	if p.source == nil {
		return nil
	}

	p.started = true
	p.state = StatePriming
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run()
	}()
	return nil
}

// Stop requests a cooperative shutdown and returns promptly. The
// goroutine winds down after the in-flight buffer and the final
// drain/close complete; use Wait to block for that.
func (p *Player) Stop() {
	p.done.Store(true)

	p.mu.Lock()
	if p.state == StatePriming || p.state == StateStreaming {
		p.state = StateStopping
	}
	p.mu.Unlock()
}

// Wait blocks until the streaming goroutine has fully wound down,
// including the final sink drain and close.
func (p *Player) Wait() {
	p.wg.Wait()
}

// State returns the current lifecycle state.
func (p *Player) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status describes the player for the debug endpoint.
type Status struct {
	State          string `json:"state"`
	BuffersWritten int64  `json:"buffersWritten"`
	LastError      string `json:"lastError,omitempty"`
}

// Status returns a snapshot of the player's state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:          p.state,
		BuffersWritten: p.buffersWritten.Load(),
		LastError:      p.lastErr,
	}
}

func (p *Player) setState(state string) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// markStreaming transitions Priming to Streaming; a Stopping state set by
// a racing Stop is left alone.
func (p *Player) markStreaming() {
	p.mu.Lock()
	if p.state == StatePriming {
		p.state = StateStreaming
	}
	p.mu.Unlock()
}

func (p *Player) setError(err error) {
	p.mu.Lock()
	p.lastErr = err.Error()
	p.mu.Unlock()
}

func (p *Player) run() {
	defer p.setState(StateStopped)

	sink, err := p.openSink()
	if err != nil {
		// No retry: a failed acquisition ends this playback session.
		p.logger.Error("acquire sink", zap.Error(err))
		p.setError(err)
		metrics.SinkFailuresTotal.Inc()
		return
	}
	defer func() {
		if err := sink.Drain(); err != nil {
			p.logger.Warn("drain sink", zap.Error(err))
		}
		if err := sink.Close(); err != nil {
			p.logger.Warn("close sink", zap.Error(err))
		}
	}()

	buf := make([]byte, BufferSize)
	src := Source(zeroSource{})
	if p.priming <= 0 {
		src = p.source
		p.markStreaming()
	}
	count := 0

	for !p.done.Load() {
		count++
		n := src.Fill(buf)
		if count == p.priming {
			// Device has settled; hand over to the real source for
			// the next request.
			src = p.source
			p.markStreaming()
			metrics.BuffersPrimedTotal.Add(float64(count))
		}
		if n <= 0 {
			break
		}
		if _, err := sink.Write(buf[:n]); err != nil {
			p.logger.Error("write to sink", zap.Error(err))
			p.setError(err)
			metrics.SinkFailuresTotal.Inc()
			return
		}
		p.buffersWritten.Add(1)
		metrics.BuffersWrittenTotal.Inc()
		metrics.BytesWrittenTotal.Add(float64(n))
	}
}
