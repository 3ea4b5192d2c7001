//go:build cgo

package audio_capture

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	. "hello-whisper/logging"
)

type portAudioDevice struct {
	mu           sync.Mutex
	audioRunning bool
}

// NewPortAudioDevice initialises PortAudio and checks that a default input
// device exists. Close must be called to terminate PortAudio.
func NewPortAudioDevice() (Device, error) {
	d := &portAudioDevice{}

	if err := d.initAudio(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	input, err := portaudio.DefaultInputDevice()
	if err != nil {
		d.freeAudio()
		return nil, fmt.Errorf("%w: no default input device: %w", ErrCaptureUnavailable, err)
	}

	L_debug("capture: using input device", "name", input.Name, "maxInputChannels", input.MaxInputChannels)

	return d, nil
}

func (d *portAudioDevice) initAudio() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.audioRunning {
		if err := portaudio.Initialize(); err != nil {
			return err
		}

		d.audioRunning = true
	}

	return nil
}

func (d *portAudioDevice) freeAudio() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.audioRunning {
		if err := portaudio.Terminate(); err != nil {
			L_warn("capture: error while freeing audio", "error", err)
		}

		d.audioRunning = false
	}
}

// OpenStream ignores onError: PortAudio reports failures through the
// Start/Stop return values.
func (d *portAudioDevice) OpenStream(cfg StreamConfig, onFrame func(in []float32), _ func(err error)) (Stream, error) {
	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), framesPerBuffer, func(in []float32) {
		onFrame(in)
	})
	if err != nil {
		return nil, err
	}

	return stream, nil
}

func (d *portAudioDevice) Close() error {
	d.freeAudio()
	return nil
}
