package player

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/alloctone/internal/testutil"
)

// fakeSink records every write and sleeps briefly per write to emulate
// the pacing of a real blocking device. failAfter > 0 makes that write
// fail.
type fakeSink struct {
	mu        sync.Mutex
	writes    [][]byte
	drained   bool
	closed    bool
	failAfter int
}

func (s *fakeSink) Write(p []byte) (int, error) {
	time.Sleep(50 * time.Microsecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.writes)+1 >= s.failAfter {
		return 0, errors.New("device gone")
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	s.writes = append(s.writes, cp)
	return len(p), nil
}

func (s *fakeSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drained = true
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *fakeSink) write(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[i]
}

func (s *fakeSink) released() (drained, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained, s.closed
}

// patternSource fills buffers with a non-zero marker byte.
type patternSource struct{}

func (patternSource) Fill(buf []byte) int {
	for i := range buf {
		buf[i] = 0x7F
	}
	return len(buf)
}

func opener(s Sink, err error) SinkOpener {
	return func() (Sink, error) { return s, err }
}

func allZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestPrimingSwitchover(t *testing.T) {
	sink := &fakeSink{}
	p := New(opener(sink, nil), zap.NewNop())
	p.SetSource(patternSource{})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		return sink.writeCount() >= DefaultPrimingBuffers+5
	}, "player never got past priming")
	p.Stop()
	p.Wait()

	// Requests 1..20 carry silence, request 21 is the first live buffer.
	for i := 0; i < DefaultPrimingBuffers; i++ {
		if !allZero(sink.write(i)) {
			t.Fatalf("write %d contains non-zero bytes during priming", i+1)
		}
	}
	if allZero(sink.write(DefaultPrimingBuffers)) {
		t.Fatalf("write %d is still silence, want live samples", DefaultPrimingBuffers+1)
	}
	if got := len(sink.write(0)); got != BufferSize {
		t.Errorf("buffer size = %d, want %d", got, BufferSize)
	}
}

func TestPrimingOverride(t *testing.T) {
	sink := &fakeSink{}
	p := New(opener(sink, nil), zap.NewNop())
	p.SetSource(patternSource{})
	p.SetPrimingBuffers(3)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		return sink.writeCount() >= 5
	}, "player never got past priming")
	p.Stop()
	p.Wait()

	for i := 0; i < 3; i++ {
		if !allZero(sink.write(i)) {
			t.Fatalf("write %d not silent", i+1)
		}
	}
	if allZero(sink.write(3)) {
		t.Fatal("write 4 is still silence, want live samples")
	}
}

func TestStartWithoutSource(t *testing.T) {
	baseline := runtime.NumGoroutine()

	p := New(opener(&fakeSink{}, nil), zap.NewNop())
	if err := p.Start(); err != nil {
		t.Fatalf("Start without source = %v, want nil no-op", err)
	}
	if got := p.State(); got != StateIdle {
		t.Errorf("state = %q, want %q", got, StateIdle)
	}
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestIllegalRestart(t *testing.T) {
	baseline := runtime.NumGoroutine()

	sink := &fakeSink{}
	p := New(opener(sink, nil), zap.NewNop())
	p.SetSource(patternSource{})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	p.Stop()
	p.Wait()

	if got := p.State(); got != StateStopped {
		t.Fatalf("state after Wait = %q, want %q", got, StateStopped)
	}
	if err := p.Start(); !errors.Is(err, ErrIllegalRestart) {
		t.Fatalf("restart = %v, want ErrIllegalRestart", err)
	}
	if got := p.State(); got != StateStopped {
		t.Errorf("state after rejected restart = %q, want %q", got, StateStopped)
	}
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestStopDrainsAndClosesSink(t *testing.T) {
	sink := &fakeSink{}
	p := New(opener(sink, nil), zap.NewNop())
	p.SetSource(patternSource{})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		return sink.writeCount() >= 1
	}, "no writes before stop")
	p.Stop()
	p.Wait()

	drained, closed := sink.released()
	if !drained || !closed {
		t.Errorf("drained=%v closed=%v, want both true", drained, closed)
	}
}

func TestSinkOpenFailure(t *testing.T) {
	baseline := runtime.NumGoroutine()

	p := New(opener(nil, fmt.Errorf("no such device")), zap.NewNop())
	p.SetSource(patternSource{})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	p.Wait()

	if got := p.State(); got != StateStopped {
		t.Errorf("state = %q, want %q", got, StateStopped)
	}
	if st := p.Status(); st.LastError == "" {
		t.Error("Status.LastError empty after open failure")
	}
	if err := p.Start(); !errors.Is(err, ErrIllegalRestart) {
		t.Errorf("restart after open failure = %v, want ErrIllegalRestart", err)
	}
	testutil.AssertNoGoroutineLeaks(t, baseline, 0)
}

func TestWriteErrorFlowsToCleanup(t *testing.T) {
	sink := &fakeSink{failAfter: 5}
	p := New(opener(sink, nil), zap.NewNop())
	p.SetSource(patternSource{})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	p.Wait()

	drained, closed := sink.released()
	if !drained || !closed {
		t.Errorf("drained=%v closed=%v after write error, want both true", drained, closed)
	}
	if got := p.State(); got != StateStopped {
		t.Errorf("state = %q, want %q", got, StateStopped)
	}
}

func TestStatus(t *testing.T) {
	sink := &fakeSink{}
	p := New(opener(sink, nil), zap.NewNop())
	p.SetSource(patternSource{})

	if got := p.Status().State; got != StateIdle {
		t.Fatalf("initial state = %q, want %q", got, StateIdle)
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		return p.Status().BuffersWritten >= int64(DefaultPrimingBuffers)+1
	}, "buffersWritten never advanced")
	if got := p.Status().State; got != StateStreaming {
		t.Errorf("state = %q, want %q", got, StateStreaming)
	}
	p.Stop()
	p.Wait()
	if got := p.Status().State; got != StateStopped {
		t.Errorf("final state = %q, want %q", got, StateStopped)
	}
}
