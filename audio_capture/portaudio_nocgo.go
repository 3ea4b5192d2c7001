//go:build !cgo

package audio_capture

import "fmt"

// NewPortAudioDevice always fails: PortAudio needs cgo.
func NewPortAudioDevice() (Device, error) {
	return nil, fmt.Errorf("%w: built without cgo, PortAudio support is missing", ErrCaptureUnavailable)
}
