package session_controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"hello-whisper/audio_capture"
	"hello-whisper/audio_file"
	"hello-whisper/transcription"
)

type fakeStream struct {
	device  *fakeDevice
	onFrame func([]float32)
}

func (s *fakeStream) Start() error {
	go func() {
		buf := make([]float32, 160)
		for _, frame := range s.device.frames {
			copy(buf, frame)
			s.onFrame(buf[:len(frame)])
		}

		s.device.delivered()
	}()

	return nil
}

func (s *fakeStream) Stop() error  { return nil }
func (s *fakeStream) Close() error { return nil }

// fakeDevice delivers its frames from a driver goroutine, then calls
// delivered, which the tests use to end the recording.
type fakeDevice struct {
	frames    [][]float32
	delivered func()

	mu     sync.Mutex
	closed bool
}

func (d *fakeDevice) OpenStream(_ audio_capture.StreamConfig, onFrame func([]float32), _ func(error)) (audio_capture.Stream, error) {
	return &fakeStream{device: d, onFrame: onFrame}, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

type stubTranscriber struct {
	fs     afero.Fs
	device *fakeDevice
	err    error

	// interrupt, when set, runs inside Transcribe, which then waits for its
	// context to be cancelled.
	interrupt func()
	canceled  bool

	calls         []string
	samples       int
	deviceClosed  bool
	existedAtCall bool
}

func (s *stubTranscriber) Transcribe(ctx context.Context, path string, detect bool) (*transcription.Result, error) {
	s.calls = append(s.calls, path)
	s.existedAtCall, _ = afero.Exists(s.fs, path)

	if s.device != nil {
		s.deviceClosed = s.device.isClosed()
	}

	if samples, err := audio_file.Load(s.fs, path); err == nil {
		s.samples = len(samples)
	}

	if s.interrupt != nil {
		s.interrupt()

		select {
		case <-ctx.Done():
			s.canceled = true
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return nil, errors.New("context was not cancelled")
		}
	}

	if s.err != nil {
		return nil, s.err
	}

	return &transcription.Result{Text: "hello"}, nil
}

var _ Transcriber = (*stubTranscriber)(nil)

type fixture struct {
	fs          afero.Fs
	device      *fakeDevice
	transcriber *stubTranscriber
	controller  *Controller
	out         *bytes.Buffer
	ctx         context.Context
}

func newFixture(t *testing.T, frames [][]float32) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	device := &fakeDevice{frames: frames, delivered: cancel}
	transcriber := &stubTranscriber{fs: fs, device: device}
	out := &bytes.Buffer{}

	controller, err := New(&Config{
		Transcriber: transcriber,
		FileSys:     fs,
		OpenDevice: func() (audio_capture.Device, error) {
			return device, nil
		},
		Out: out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &fixture{fs: fs, device: device, transcriber: transcriber, controller: controller, out: out, ctx: ctx}
}

func tempFiles(t *testing.T, fs afero.Fs) int {
	t.Helper()

	entries, err := afero.ReadDir(fs, os.TempDir())
	if err != nil {
		return 0
	}

	return len(entries)
}

func TestNew(t *testing.T) {
	t.Run("a transcriber and a file system are required", func(t *testing.T) {
		if _, err := New(&Config{FileSys: afero.NewMemMapFs()}); err == nil {
			t.Errorf("expected an error without a transcriber")
		}

		if _, err := New(&Config{Transcriber: &stubTranscriber{}}); err == nil {
			t.Errorf("expected an error without a file system")
		}
	})
}

func TestTranscribeFile(t *testing.T) {
	t.Run("a missing file never reaches the model", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.controller.TranscribeFile(context.Background(), "/nope.wav", false)
		if !errors.Is(err, ErrFileNotFound) {
			t.Fatalf("expected ErrFileNotFound, got %v", err)
		}

		if len(f.transcriber.calls) != 0 {
			t.Errorf("transcriber was called %d times", len(f.transcriber.calls))
		}
	})

	t.Run("an existing file is transcribed and kept", func(t *testing.T) {
		f := newFixture(t, nil)
		afero.WriteFile(f.fs, "/clip.wav", []byte("RIFF"), 0o644)

		result, err := f.controller.TranscribeFile(context.Background(), "/clip.wav", true)
		if err != nil {
			t.Fatalf("TranscribeFile: %v", err)
		}

		if result.Text != "hello" || len(f.transcriber.calls) != 1 || f.transcriber.calls[0] != "/clip.wav" {
			t.Errorf("unexpected result %+v after calls %v", result, f.transcriber.calls)
		}

		if ok, _ := afero.Exists(f.fs, "/clip.wav"); !ok {
			t.Errorf("a user supplied file must not be removed")
		}

		if !strings.Contains(f.out.String(), "Done.") {
			t.Errorf("expected a completion notice, got %q", f.out.String())
		}
	})
}

func TestRecord(t *testing.T) {
	frames := [][]float32{
		make([]float32, 160),
		make([]float32, 160),
		make([]float32, 100),
	}

	t.Run("the recording is saved, transcribed and removed", func(t *testing.T) {
		f := newFixture(t, frames)

		result, err := f.controller.Record(f.ctx, false)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}

		if result.Text != "hello" {
			t.Errorf("unexpected result %+v", result)
		}

		if len(f.transcriber.calls) != 1 || !f.transcriber.existedAtCall {
			t.Fatalf("expected one transcription of an existing file, got %v", f.transcriber.calls)
		}

		if f.transcriber.samples != 420 {
			t.Errorf("expected 420 samples in the saved file, got %d", f.transcriber.samples)
		}

		if !f.transcriber.deviceClosed {
			t.Errorf("the device should be closed before transcription")
		}

		if ok, _ := afero.Exists(f.fs, f.transcriber.calls[0]); ok {
			t.Errorf("temp file %s was not removed", f.transcriber.calls[0])
		}

		out := f.out.String()
		for _, notice := range []string{"Recording...", "Recording stopped.", "Audio saved.", "Done.", "Temporary file removed."} {
			if !strings.Contains(out, notice) {
				t.Errorf("expected %q in %q", notice, out)
			}
		}
	})

	t.Run("no frames aborts before transcription", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.controller.Record(f.ctx, true)
		if !errors.Is(err, audio_capture.ErrNoAudioCaptured) {
			t.Fatalf("expected ErrNoAudioCaptured, got %v", err)
		}

		if len(f.transcriber.calls) != 0 {
			t.Errorf("transcriber was called")
		}

		if n := tempFiles(t, f.fs); n != 0 {
			t.Errorf("expected no temp file, found %d", n)
		}

		if !f.device.isClosed() {
			t.Errorf("the device was not closed")
		}
	})

	t.Run("the temp file is removed when transcription fails", func(t *testing.T) {
		f := newFixture(t, frames)
		f.transcriber.err = fmt.Errorf("%w: boom", transcription.ErrModelFailure)

		_, err := f.controller.Record(f.ctx, false)
		if !errors.Is(err, transcription.ErrModelFailure) {
			t.Fatalf("expected ErrModelFailure, got %v", err)
		}

		if n := tempFiles(t, f.fs); n != 0 {
			t.Errorf("expected the temp file to be removed, found %d files", n)
		}
	})

	t.Run("an interrupt during transcription cancels it and still removes the temp file", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("interrupt signals cannot be sent to a process on windows")
		}

		f := newFixture(t, frames)
		interrupt := func() {
			p, err := os.FindProcess(os.Getpid())
			if err != nil {
				t.Errorf("find process: %v", err)
				return
			}

			if err := p.Signal(os.Interrupt); err != nil {
				t.Errorf("signal: %v", err)
			}
		}

		// the first interrupt ends the recording, the second one arrives
		// while the model runs
		f.device.delivered = interrupt
		f.transcriber.interrupt = interrupt

		_, err := f.controller.Record(context.Background(), false)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		if !f.transcriber.canceled {
			t.Errorf("expected the transcription context to be cancelled")
		}

		if n := tempFiles(t, f.fs); n != 0 {
			t.Errorf("expected the temp file to be removed, found %d files", n)
		}

		if !strings.Contains(f.out.String(), "Temporary file removed.") {
			t.Errorf("expected the removal notice, got %q", f.out.String())
		}
	})

	t.Run("an unavailable device is reported as such", func(t *testing.T) {
		transcriber := &stubTranscriber{fs: afero.NewMemMapFs()}

		controller, err := New(&Config{
			Transcriber: transcriber,
			FileSys:     transcriber.fs,
			OpenDevice: func() (audio_capture.Device, error) {
				return nil, fmt.Errorf("%w: no default input device", audio_capture.ErrCaptureUnavailable)
			},
			Out: &bytes.Buffer{},
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		_, err = controller.Record(context.Background(), false)
		if !errors.Is(err, audio_capture.ErrCaptureUnavailable) {
			t.Errorf("expected ErrCaptureUnavailable, got %v", err)
		}

		if len(transcriber.calls) != 0 {
			t.Errorf("transcriber was called")
		}
	})
}
