package audio_file

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/zeozeozeo/gomplerate"

	. "hello-whisper/logging"
)

// TargetSampleRate is the rate speech models expect.
const TargetSampleRate = 16000

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Load decodes an audio file into 16kHz mono float32 samples. WAV files are
// decoded natively; anything else goes through ffmpeg when it is installed.
func Load(fs afero.Fs, path string) ([]float32, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".wav" {
		d := wav.NewDecoder(f)
		if d.IsValidFile() {
			return decodeWav(d)
		}

		L_debug("audio: not a PCM WAV, trying ffmpeg", "path", path)

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind audio file: %w", err)
		}
	}

	if !ffmpegAvailable() {
		return nil, fmt.Errorf("%w: %s (install ffmpeg to decode it)", ErrUnsupportedFormat, path)
	}

	L_debug("audio: decoding with ffmpeg", "path", path, "ext", ext)

	return decodeWithFFmpeg(f)
}

func decodeWav(d *wav.Decoder) ([]float32, error) {
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: wav header has no usable format", ErrUnsupportedFormat)
	}

	samples, err := toInt16(buf, int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	samples = toMono(samples, buf.Format.NumChannels)
	samples = resampleInt16(samples, buf.Format.SampleRate, TargetSampleRate)

	L_debug("audio: wav decoded",
		"channels", buf.Format.NumChannels,
		"sampleRate", buf.Format.SampleRate,
		"bitDepth", d.BitDepth,
		"samples", len(samples))

	return dequantizeAll(samples), nil
}

// toInt16 rescales PCM integers of any supported bit depth to 16 bits.
func toInt16(buf *audio.IntBuffer, bitDepth int) ([]int16, error) {
	out := make([]int16, len(buf.Data))

	for i, v := range buf.Data {
		switch bitDepth {
		case 8:
			// 8-bit WAV is unsigned
			out[i] = int16((v - 128) << 8) // #nosec G115 - range checked by bit depth
		case 16:
			out[i] = int16(v) // #nosec G115
		case 24:
			out[i] = int16(v >> 8) // #nosec G115
		case 32:
			out[i] = int16(v >> 16) // #nosec G115
		default:
			return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, bitDepth)
		}
	}

	return out, nil
}

// toMono averages interleaved channels.
func toMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}

	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(samples[i*channels+ch])
		}

		mono[i] = int16(sum / int32(channels)) // #nosec G115
	}

	return mono
}

func resampleInt16(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate {
		return samples
	}

	resampler, err := gomplerate.NewResampler(1, fromRate, toRate)
	if err != nil {
		L_warn("audio: resampler creation failed, keeping original rate", "from", fromRate, "error", err)
		return samples
	}

	L_debug("audio: resampling", "from", fromRate, "to", toRate)

	return resampler.ResampleInt16(samples)
}

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// decodeWithFFmpeg pipes r through ffmpeg into raw 16kHz mono s16le.
func decodeWithFFmpeg(r io.Reader) ([]float32, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-i", "pipe:0",
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"-ac", "1",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	cmd.Stdin = r
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		L_debug("audio: ffmpeg output", "stderr", stderr.String())
		return nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}

	raw := stdout.Bytes()
	samples := make([]int16, len(raw)/2)

	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:])) // #nosec G115
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no audio", ErrUnsupportedFormat)
	}

	return dequantizeAll(samples), nil
}
