package audio_file

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"hello-whisper/audio_capture"
)

func TestQuantize(t *testing.T) {
	t.Run("maps the float range onto 16-bit PCM with clamping", func(t *testing.T) {
		cases := map[float32]int16{
			0:       0,
			1:       32767,
			-1:      -32767,
			1.5:     32767,
			-3:      -32767,
			0.5:     16384, // 16383.5 rounds away from zero
			-0.5:    -16384,
			0.00001: 0,
		}

		for in, expected := range cases {
			if actual := Quantize(in); actual != expected {
				t.Errorf("Quantize(%f) = %d, expected %d", in, actual, expected)
			}
		}
	})

	t.Run("dequantize stays inside [-1, 1]", func(t *testing.T) {
		if v := Dequantize(-32768); v != -1 {
			t.Errorf("expected -32768 to clamp to -1, got %f", v)
		}

		if v := Dequantize(32767); v != 1 {
			t.Errorf("expected 32767 to map to 1, got %f", v)
		}
	})
}

func TestPersist(t *testing.T) {
	t.Run("persisting then reading back preserves count and bounds the error", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		frames := audio_capture.FrameBuffer{}
		for f := 0; f < 5; f++ {
			frame := make(audio_capture.AudioFrame, 320)
			for i := range frame {
				frame[i] = float32(math.Sin(float64(f*320+i) * 0.05))
			}
			frames = append(frames, frame)
		}

		// out-of-range values are clamped, not wrapped
		frames = append(frames, audio_capture.AudioFrame{1.2, -1.2, 1, -1})

		path, err := Persist(fs, frames, 16000)
		if err != nil {
			t.Fatalf("Persist: %v", err)
		}

		samples, err := Load(fs, path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		original := frames.Samples()

		if len(samples) != len(original) {
			t.Fatalf("expected %d samples, got %d", len(original), len(samples))
		}

		for i, s := range original {
			clamped := math.Max(-1, math.Min(1, float64(s)))
			if diff := math.Abs(clamped - float64(samples[i])); diff > 1.0/32767 {
				t.Errorf("sample %d: error %g exceeds 1/32767", i, diff)
			}
		}
	})

	t.Run("the file is a mono 16-bit 16kHz WAV", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		path, err := Persist(fs, audio_capture.FrameBuffer{{0.1, 0.2, 0.3}}, 16000)
		if err != nil {
			t.Fatalf("Persist: %v", err)
		}

		f, err := fs.Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer f.Close()

		d := wav.NewDecoder(f)
		if !d.IsValidFile() {
			t.Fatalf("persisted file is not a valid WAV")
		}

		if d.NumChans != 1 || d.SampleRate != 16000 || d.BitDepth != 16 {
			t.Errorf("unexpected format: channels=%d rate=%d depth=%d", d.NumChans, d.SampleRate, d.BitDepth)
		}
	})

	t.Run("each call creates a new file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		frames := audio_capture.FrameBuffer{{0.1}}

		first, err := Persist(fs, frames, 16000)
		if err != nil {
			t.Fatalf("Persist: %v", err)
		}

		second, err := Persist(fs, frames, 16000)
		if err != nil {
			t.Fatalf("Persist: %v", err)
		}

		if first == second {
			t.Errorf("expected distinct temp files, got %s twice", first)
		}
	})

	t.Run("an empty buffer is rejected without creating a file", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		_, err := Persist(fs, audio_capture.FrameBuffer{}, 16000)
		if !errors.Is(err, ErrEmptyBuffer) {
			t.Fatalf("expected ErrEmptyBuffer, got %v", err)
		}

		entries, _ := afero.ReadDir(fs, os.TempDir())
		if len(entries) != 0 {
			t.Errorf("expected no files, found %d", len(entries))
		}
	})
}

func writeWav(t *testing.T, fs afero.Fs, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)

	err = enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("stereo input is averaged down to mono", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		writeWav(t, fs, "/stereo.wav", 16000, 2, []int{1000, 3000, -1000, -3000, 0, 32767})

		samples, err := Load(fs, "/stereo.wav")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		expected := []float32{Dequantize(2000), Dequantize(-2000), Dequantize(16383)}

		if len(samples) != len(expected) {
			t.Fatalf("expected %d samples, got %d", len(expected), len(samples))
		}

		for i := range expected {
			if samples[i] != expected[i] {
				t.Errorf("sample %d: expected %f, got %f", i, expected[i], samples[i])
			}
		}
	})

	t.Run("other sample rates are resampled to 16kHz", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		data := make([]int, 8000)
		for i := range data {
			data[i] = int(10000 * math.Sin(float64(i)*0.1))
		}

		writeWav(t, fs, "/narrowband.wav", 8000, 1, data)

		samples, err := Load(fs, "/narrowband.wav")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		// one second of audio either way
		if math.Abs(float64(len(samples))-16000) > 16000*0.05 {
			t.Errorf("expected about 16000 samples, got %d", len(samples))
		}
	})

	t.Run("a missing file is an error", func(t *testing.T) {
		if _, err := Load(afero.NewMemMapFs(), "/missing.wav"); err == nil {
			t.Errorf("expected an error for a missing file")
		}
	})

	t.Run("non-WAV input needs ffmpeg", func(t *testing.T) {
		if ffmpegAvailable() {
			t.Skip("ffmpeg is installed")
		}

		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "/clip.mp3", []byte("ID3"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		if _, err := Load(fs, "/clip.mp3"); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}
