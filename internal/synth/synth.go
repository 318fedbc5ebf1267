// Package synth wires a measurement supplier, an oscillator, and a
// buffered player into one audible instrument.
package synth

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RenatoCabral2022/alloctone/internal/osc"
	"github.com/RenatoCabral2022/alloctone/internal/player"
	"github.com/RenatoCabral2022/alloctone/internal/ringbuffer"
	"github.com/RenatoCabral2022/alloctone/internal/sampler"
)

// captureWindow is how much recent audio is retained for snapshots.
const captureWindow = 10 * time.Second

// Config carries the explicit wiring for a Synth. There is no package
// state: everything the goroutines need comes in here.
type Config struct {
	// Supplier yields the latest external measurement.
	Supplier sampler.Supplier
	// Map turns a measurement into a frequency in Hz. Nil means the
	// measurement already is a frequency.
	Map sampler.Map
	// Waveshape of the generated tone.
	Waveshape osc.Waveshape
	// Interval between frequency updates; 0 means sampler.DefaultInterval.
	Interval time.Duration
	// OpenSink acquires the audio device; nil means the default device
	// via player.OpenDeviceSink.
	OpenSink player.SinkOpener
}

// Synth owns the oscillator exclusively. The player only ever sees it
// through the Source interface, the sampler through the Tuner interface.
type Synth struct {
	id      string
	osc     *osc.Oscillator
	sampler *sampler.Sampler
	player  *player.Player
	capture *ringbuffer.Buffer
	logger  *zap.Logger
}

// teeSource copies everything the player pulls from the oscillator into
// the capture buffer. Priming silence never reaches it.
type teeSource struct {
	src player.Source
	rb  *ringbuffer.Buffer
}

func (t teeSource) Fill(buf []byte) int {
	n := t.src.Fill(buf)
	t.rb.Write(buf[:n])
	return n
}

// New builds a stopped Synth from cfg.
func New(cfg Config, logger *zap.Logger) *Synth {
	id := uuid.New().String()
	logger = logger.With(zap.String("synth", id))

	if cfg.Map == nil {
		cfg.Map = func(v float64) float64 { return v }
	}
	if cfg.OpenSink == nil {
		cfg.OpenSink = player.OpenDeviceSink
	}

	o := osc.New(player.SampleRate)
	o.SetWaveshape(cfg.Waveshape)

	capture := ringbuffer.New(captureWindow, player.SampleRate*player.Channels*2)

	p := player.New(cfg.OpenSink, logger)
	p.SetSource(teeSource{src: o, rb: capture})

	s := sampler.New(o, cfg.Supplier, cfg.Map, cfg.Interval, logger)

	return &Synth{
		id:      id,
		osc:     o,
		sampler: s,
		player:  p,
		capture: capture,
		logger:  logger,
	}
}

// ID returns the run identifier stamped on this synth's log lines.
func (s *Synth) ID() string { return s.id }

// Start begins frequency updates and playback. A sink acquisition failure
// is handled inside the player; Start only fails on an illegal restart.
func (s *Synth) Start() error {
	s.logger.Info("synth starting",
		zap.String("waveshape", s.osc.Shape().String()),
		zap.Int("sampleRate", player.SampleRate),
	)
	s.sampler.Start()
	if err := s.player.Start(); err != nil {
		s.sampler.Stop()
		return err
	}
	return nil
}

// Stop shuts down the frequency updates (best-effort, an in-flight tick
// finishes), then the player, and returns once the sink has been drained
// and closed. Neither sub-lifecycle is ever restarted.
func (s *Synth) Stop() {
	s.sampler.Stop()
	s.player.Stop()
	s.player.Wait()
	<-s.sampler.Done()
	s.logger.Info("synth stopped")
}

// Status reports the playback state for the debug endpoint.
func (s *Synth) Status() player.Status {
	return s.player.Status()
}

// Snapshot returns up to d of the most recently generated audio as raw
// big-endian s16 PCM.
func (s *Synth) Snapshot(d time.Duration) []byte {
	return s.capture.Snapshot(d)
}
