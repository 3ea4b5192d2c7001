package audio_capture

import "errors"

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

var (
	// ErrCaptureUnavailable means the capture backend or the input hardware
	// is missing. The user has to install or connect something; retrying
	// will not help.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")

	// ErrNoAudioCaptured means the recording ended before any frame arrived.
	ErrNoAudioCaptured = errors.New("no audio captured")
)

// StreamConfig describes the input stream a session asks for.
// FramesPerBuffer of zero lets the driver choose the block size.
type StreamConfig struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// Stream is an open input stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Device opens input streams. onFrame is called from the audio subsystem's
// goroutine with a slice the driver may reuse once the callback returns.
// onError reports asynchronous stream failures.
type Device interface {
	OpenStream(cfg StreamConfig, onFrame func(in []float32), onError func(err error)) (Stream, error)
	Close() error
}
