package player

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/oto"
)

// deviceBufferSize is how many bytes the OS audio layer buffers ahead of
// the hardware. Four iteration buffers keeps write latency low without
// risking underruns at 22050 Hz.
const deviceBufferSize = 4 * BufferSize

// otoSink adapts an oto device player to the Sink interface. The pipeline
// carries big-endian samples; oto consumes little-endian PCM, so Write
// swaps byte pairs into a scratch buffer before handing them off.
type otoSink struct {
	ctx    *oto.Context
	player *oto.Player
	swap   []byte
}

// OpenDeviceSink opens the default audio output at the player's fixed
// stream format: 22050 Hz, 16-bit signed, mono.
func OpenDeviceSink() (Sink, error) {
	ctx, err := oto.NewContext(SampleRate, Channels, 2, deviceBufferSize)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	return &otoSink{
		ctx:    ctx,
		player: ctx.NewPlayer(),
		swap:   make([]byte, BufferSize),
	}, nil
}

func (s *otoSink) Write(p []byte) (int, error) {
	if len(s.swap) < len(p) {
		s.swap = make([]byte, len(p))
	}
	sw := s.swap[:len(p)]
	for i := 0; i+1 < len(p); i += 2 {
		sw[i], sw[i+1] = p[i+1], p[i]
	}
	return s.player.Write(sw)
}

// Drain waits for accepted audio to play out. oto has no drain primitive
// and Close discards whatever is still queued, so wait the playout time
// of a full device buffer.
func (s *otoSink) Drain() error {
	const bytesPerSecond = SampleRate * Channels * 2
	time.Sleep(deviceBufferSize * time.Second / bytesPerSecond)
	return nil
}

func (s *otoSink) Close() error {
	if err := s.player.Close(); err != nil {
		s.ctx.Close()
		return err
	}
	return s.ctx.Close()
}
