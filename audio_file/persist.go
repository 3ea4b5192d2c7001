package audio_file

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"

	"hello-whisper/audio_capture"
	. "hello-whisper/logging"
)

const tempPattern = "recording-*.wav"

var ErrEmptyBuffer = errors.New("frame buffer is empty")

// Persist writes frames as a mono 16-bit PCM WAV file in the temp directory
// of fs and returns its path. The file is complete and closed when Persist
// returns; on error nothing is left behind.
func Persist(fs afero.Fs, frames audio_capture.FrameBuffer, sampleRate int) (string, error) {
	if frames.NumSamples() == 0 {
		return "", ErrEmptyBuffer
	}

	if sampleRate <= 0 {
		sampleRate = audio_capture.DefaultSampleRate
	}

	waveFile, err := afero.TempFile(fs, "", tempPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	waveFilename := waveFile.Name()

	param := wave.WriterParam{
		Out:           waveFile,
		Channel:       audio_capture.DefaultChannels,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		waveFile.Close()
		discard(fs, waveFilename)

		return "", fmt.Errorf("create wave writer: %w", err)
	}

	for _, frame := range frames {
		if _, err := waveWriter.WriteSample16(quantizeAll(frame)); err != nil {
			waveWriter.Close()
			discard(fs, waveFilename)

			return "", fmt.Errorf("write samples: %w", err)
		}
	}

	// Close writes the header and data, then closes the file.
	if err := waveWriter.Close(); err != nil {
		discard(fs, waveFilename)

		return "", fmt.Errorf("close wave file: %w", err)
	}

	L_debug("audio: recording saved", "path", waveFilename, "samples", frames.NumSamples())

	return waveFilename, nil
}

func discard(fs afero.Fs, path string) {
	if err := fs.Remove(path); err != nil {
		L_warn("audio: removing partial file", "path", path, "error", err)
	}
}
