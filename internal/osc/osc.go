// Package osc implements a single-voice waveform oscillator.
//
// Phase is kept as an integer sample counter: one full cycle spans
// periodSamples samples and the counter wraps modulo the period. Retuning
// swaps the period under the counter without resetting it, so a frequency
// change lands as a phase discontinuity at the next sample instead of a
// clean cycle restart. The tone stays gapless while the control loop
// retunes it many times per second, at the cost of a momentary glitch.
package osc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Waveshape selects the sample formula.
type Waveshape int

const (
	Sine Waveshape = iota
	Square
	Triangle
)

func (w Waveshape) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("waveshape(%d)", int(w))
}

// ParseWaveshape maps a config string to a Waveshape.
func ParseWaveshape(s string) (Waveshape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin":
		return Sine, nil
	case "square", "squ":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	}
	return Sine, fmt.Errorf("unknown waveshape %q", s)
}

// ErrInvalidFrequency is returned for frequencies that would not yield at
// least one sample per cycle.
var ErrInvalidFrequency = errors.New("frequency must be > 0 and <= sample rate")

// DefaultFrequency is the tuning a new oscillator starts with, in Hz.
const DefaultFrequency = 1000.0

// Oscillator generates one sample per call from a phase counter and a
// waveshape formula.
//
// Concurrency: SetFrequency may be called from a different goroutine than
// NextSample/Fill. The period is a single atomic scalar, exchanged whole
// on retune and loaded once per sample. sampleIndex belongs to the
// sample-generation goroutine alone. SetWaveshape is not synchronized and
// must be called before sample generation starts.
type Oscillator struct {
	sampleRate    int
	waveshape     Waveshape
	periodSamples atomic.Int64
	sampleIndex   int64
}

// New creates an oscillator producing a sine wave at DefaultFrequency.
func New(sampleRate int) *Oscillator {
	o := &Oscillator{sampleRate: sampleRate, waveshape: Sine}
	if err := o.SetFrequency(DefaultFrequency); err != nil {
		// Sample rates below 1 kHz cannot hold the default tuning; fall
		// back to one cycle per second.
		o.periodSamples.Store(int64(sampleRate))
	}
	return o
}

// SetWaveshape selects the sample formula. It does not touch the phase.
func (o *Oscillator) SetWaveshape(w Waveshape) {
	o.waveshape = w
}

// SetFrequency retunes the oscillator to f Hz. The period is truncated to
// whole samples. The phase counter is deliberately left alone; see the
// package comment. A frequency outside (0, sampleRate] is rejected with
// ErrInvalidFrequency before any state changes.
func (o *Oscillator) SetFrequency(f float64) error {
	if f <= 0 || f > float64(o.sampleRate) {
		return fmt.Errorf("%w: %g Hz at %d Hz sample rate", ErrInvalidFrequency, f, o.sampleRate)
	}
	o.periodSamples.Store(int64(float64(o.sampleRate) / f))
	return nil
}

// SampleRate returns the oscillator's fixed sample rate in Hz.
func (o *Oscillator) SampleRate() int { return o.sampleRate }

// Shape returns the current waveshape.
func (o *Oscillator) Shape() Waveshape { return o.waveshape }

// Period returns the current cycle length in samples.
func (o *Oscillator) Period() int64 { return o.periodSamples.Load() }

// NextSample returns the next waveform value in [-1, 1] and advances the
// phase counter by one sample, modulo the period.
func (o *Oscillator) NextSample() float64 {
	period := o.periodSamples.Load()
	x := float64(o.sampleIndex) / float64(period)

	var value float64
	switch o.waveshape {
	case Square:
		if o.sampleIndex < period/2 {
			value = 1.0
		} else {
			value = -1.0
		}
	case Triangle:
		// Centered triangle-like fold, not a ramp.
		value = 2.0 * (x - math.Floor(x+0.5))
	default:
		value = math.Sin(2.0 * math.Pi * x)
	}

	o.sampleIndex = (o.sampleIndex + 1) % period
	return value
}

// Fill generates len(buf)/2 samples scaled to signed 16-bit and written
// big-endian. It returns the number of bytes written.
func (o *Oscillator) Fill(buf []byte) int {
	n := len(buf) / 2
	for i := 0; i < n; i++ {
		s := int16(math.Round(o.NextSample() * 32767))
		binary.BigEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return n * 2
}
