package audio_capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	. "hello-whisper/logging"
	"hello-whisper/voice_activity_detection"
)

type Config struct {
	Device Device

	// FramesPerBuffer is passed to the driver; zero lets it decide.
	FramesPerBuffer int

	// SilenceTimeout stops the recording once speech was heard and then
	// silence lasted this long. Zero disables it.
	SilenceTimeout time.Duration

	// Signals that request a stop while recording. Defaults to SIGINT and
	// SIGTERM.
	Signals []os.Signal
}

// Session records one utterance from a Device.
type Session struct {
	device   Device
	stream   Stream
	cfg      StreamConfig
	signals  []os.Signal
	detector *voice_activity_detection.Detector

	state atomic.Int32

	// mu guards frames and the Recording -> Stopped transition, so a frame
	// is either appended before the stop or dropped after it.
	mu     sync.Mutex
	frames FrameBuffer

	stopOnce sync.Once
	stopC    chan struct{}
	errC     chan error
}

func New(cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Device == nil {
		return nil, fmt.Errorf("device is nil")
	}

	signals := cfg.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	s := &Session{
		device: cfg.Device,
		cfg: StreamConfig{
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			FramesPerBuffer: cfg.FramesPerBuffer,
		},
		signals: signals,
		stopC:   make(chan struct{}),
		errC:    make(chan error, 1),
	}

	if cfg.SilenceTimeout > 0 {
		blockSize := cfg.FramesPerBuffer
		if blockSize <= 0 {
			blockSize = 1024
		}

		s.detector = voice_activity_detection.NewDetector(blockSize, DefaultSampleRate, cfg.SilenceTimeout)
	}

	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Start opens the input stream and enters Recording. On failure the session
// stays Idle and the error wraps ErrCaptureUnavailable.
func (s *Session) Start() error {
	if s.State() != StateIdle {
		return fmt.Errorf("cannot start a %s session", s.State())
	}

	stream, err := s.device.OpenStream(s.cfg, s.onFrame, s.onError)
	if err != nil {
		return fmt.Errorf("%w: open stream: %w", ErrCaptureUnavailable, err)
	}

	s.mu.Lock()
	s.state.Store(int32(StateRecording))
	s.mu.Unlock()

	if err := stream.Start(); err != nil {
		s.mu.Lock()
		s.state.Store(int32(StateIdle))
		s.frames = nil
		s.mu.Unlock()

		if closeErr := stream.Close(); closeErr != nil {
			L_warn("capture: closing stream after failed start", "error", closeErr)
		}

		return fmt.Errorf("%w: start stream: %w", ErrCaptureUnavailable, err)
	}

	s.stream = stream

	L_debug("capture: recording", "sampleRate", s.cfg.SampleRate, "framesPerBuffer", s.cfg.FramesPerBuffer)

	return nil
}

// Stop asks a recording session to stop. Safe to call more than once and
// from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopC)
	})
}

// Wait blocks until a stop is requested, ctx is done or the stream fails,
// then moves to Stopped and closes the stream. A stream failure still
// keeps the frames captured so far.
func (s *Session) Wait(ctx context.Context) error {
	if s.State() != StateRecording {
		return fmt.Errorf("cannot wait on a %s session", s.State())
	}

	select {
	case <-ctx.Done():
		L_debug("capture: interrupted")
	case <-s.stopC:
		L_debug("capture: stop requested")
	case err := <-s.errC:
		L_warn("capture: stream failed, keeping partial recording", "error", err)
	}

	s.halt()

	return nil
}

// Record registers the stop signals, starts the stream and waits for the
// recording to end. An interrupt ends the recording instead of the process.
func (s *Session) Record(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, s.signals...)
	defer stop()

	if err := s.Start(); err != nil {
		return err
	}

	return s.Wait(ctx)
}

// Finish returns the captured frames once the session has stopped.
func (s *Session) Finish() (FrameBuffer, error) {
	if s.State() != StateStopped {
		return nil, fmt.Errorf("cannot finish a %s session", s.State())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil, ErrNoAudioCaptured
	}

	L_debug("capture: finished", "frames", len(s.frames), "samples", s.frames.NumSamples())

	return s.frames, nil
}

func (s *Session) halt() {
	s.mu.Lock()
	s.state.Store(int32(StateStopped))
	s.mu.Unlock()

	if s.stream == nil {
		return
	}

	if err := s.stream.Stop(); err != nil {
		L_warn("capture: stopping stream", "error", err)
	}

	if err := s.stream.Close(); err != nil {
		L_warn("capture: closing stream", "error", err)
	}

	s.stream = nil
}

func (s *Session) onFrame(in []float32) {
	if len(in) == 0 {
		return
	}

	s.mu.Lock()

	if s.State() != StateRecording {
		s.mu.Unlock()
		return
	}

	// the driver reuses in after we return
	frame := make(AudioFrame, len(in))
	copy(frame, in)
	s.frames = append(s.frames, frame)

	s.mu.Unlock()

	if s.detector != nil && s.detector.Observe(frame) {
		L_info("capture: silence after speech, stopping")
		s.Stop()
	}
}

func (s *Session) onError(err error) {
	if err == nil {
		err = errors.New("unknown stream error")
	}

	select {
	case s.errC <- err:
	default:
	}
}
