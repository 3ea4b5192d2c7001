package session_controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"hello-whisper/audio_capture"
	"hello-whisper/audio_file"
	. "hello-whisper/logging"
	"hello-whisper/transcription"
)

var ErrFileNotFound = errors.New("file not found")

type Config struct {
	Transcriber Transcriber
	FileSys     afero.Fs

	// OpenDevice returns the capture device for a recording. The controller
	// closes it once the recording has stopped.
	OpenDevice func() (audio_capture.Device, error)

	FramesPerBuffer int
	SilenceTimeout  time.Duration

	// Signals that end a recording or cancel a running transcription.
	// Defaults to SIGINT and SIGTERM.
	Signals []os.Signal

	// Out receives progress notices. Defaults to stdout.
	Out io.Writer
}

type Controller struct {
	transcriber     Transcriber
	fs              afero.Fs
	openDevice      func() (audio_capture.Device, error)
	framesPerBuffer int
	silenceTimeout  time.Duration
	signals         []os.Signal
	out             io.Writer
	notice          lipgloss.Style
}

func New(cfg *Config) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("file system is nil")
	}

	openDevice := cfg.OpenDevice
	if openDevice == nil {
		openDevice = audio_capture.NewPortAudioDevice
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	signals := cfg.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	return &Controller{
		transcriber:     cfg.Transcriber,
		fs:              cfg.FileSys,
		openDevice:      openDevice,
		framesPerBuffer: cfg.FramesPerBuffer,
		silenceTimeout:  cfg.SilenceTimeout,
		signals:         signals,
		out:             out,
		notice:          lipgloss.NewRenderer(out).NewStyle().Foreground(lipgloss.Color("245")),
	}, nil
}

// TranscribeFile transcribes a file the user supplied. The file is never
// removed.
func (c *Controller) TranscribeFile(ctx context.Context, path string, detectLanguage bool) (*transcription.Result, error) {
	exists, err := afero.Exists(c.fs, path)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", path, err)
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	L_debug("controller: transcribing file", "path", path, "language", detectLanguage)

	result, err := c.transcribe(ctx, path, detectLanguage)
	if err != nil {
		return nil, err
	}

	c.say("\nDone.")

	return result, nil
}

// Record captures one utterance from the microphone, saves it to a
// temporary WAV file and transcribes it. The device is closed as soon as
// the recording stops and the file is removed after transcription.
func (c *Controller) Record(ctx context.Context, detectLanguage bool) (*transcription.Result, error) {
	path, err := c.capture(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := c.fs.Remove(path); err != nil {
			L_warn("controller: removing recording", "path", path, "error", err)
			return
		}

		c.say("Temporary file removed.")
	}()

	result, err := c.transcribe(ctx, path, detectLanguage)
	if err != nil {
		return nil, err
	}

	c.say("\nDone.")

	return result, nil
}

// capture runs a recording session and returns the path of the saved audio.
func (c *Controller) capture(ctx context.Context) (string, error) {
	device, err := c.openDevice()
	if err != nil {
		return "", err
	}

	release := sync.OnceFunc(func() {
		if err := device.Close(); err != nil {
			L_warn("controller: closing audio device", "error", err)
		}
	})
	defer release()

	session, err := audio_capture.New(&audio_capture.Config{
		Device:          device,
		FramesPerBuffer: c.framesPerBuffer,
		SilenceTimeout:  c.silenceTimeout,
		Signals:         c.signals,
	})
	if err != nil {
		return "", err
	}

	c.say("Recording... (press Ctrl+C to stop)")

	if err := session.Record(ctx); err != nil {
		return "", err
	}

	release()

	c.say("Recording stopped.")

	frames, err := session.Finish()
	if err != nil {
		return "", err
	}

	path, err := audio_file.Persist(c.fs, frames, audio_capture.DefaultSampleRate)
	if err != nil {
		return "", fmt.Errorf("save recording: %w", err)
	}

	c.say("Audio saved.")

	return path, nil
}

// transcribe runs the model with the stop signals bound to ctx, so an
// interrupt cancels the model and the deferred cleanup still runs.
func (c *Controller) transcribe(ctx context.Context, path string, detectLanguage bool) (*transcription.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, c.signals...)
	defer stop()

	result, err := c.transcriber.Transcribe(ctx, path, detectLanguage)
	if err != nil && ctx.Err() != nil {
		L_debug("controller: transcription interrupted", "path", path)
	}

	return result, err
}

func (c *Controller) say(msg string) {
	fmt.Fprintln(c.out, c.notice.Render(msg))
}
