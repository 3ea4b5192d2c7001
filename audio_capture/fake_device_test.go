package audio_capture

import (
	"sync"
	"testing"
	"time"
)

type fakeStream struct {
	startErr error

	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startErr != nil {
		return s.startErr
	}

	s.started = true

	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// fakeDevice hands frames to the session the way a driver callback would.
type fakeDevice struct {
	openErr  error
	startErr error

	mu      sync.Mutex
	cfg     StreamConfig
	onFrame func([]float32)
	onError func(error)
	stream  *fakeStream
}

func (d *fakeDevice) OpenStream(cfg StreamConfig, onFrame func(in []float32), onError func(err error)) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = cfg
	d.onFrame = onFrame
	d.onError = onError
	d.stream = &fakeStream{startErr: d.startErr}

	return d.stream, nil
}

func (d *fakeDevice) Close() error {
	return nil
}

func (d *fakeDevice) deliver(in []float32) {
	d.mu.Lock()
	onFrame := d.onFrame
	d.mu.Unlock()

	onFrame(in)
}

func (d *fakeDevice) fail(err error) {
	d.mu.Lock()
	onError := d.onError
	d.mu.Unlock()

	onError(err)
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}

		time.Sleep(time.Millisecond)
	}

	t.Fatalf("session never reached %s, stuck in %s", want, s.State())
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("recording did not end")
		return nil
	}
}
