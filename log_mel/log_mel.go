// Package log_mel turns 16kHz audio into the fixed-size log-mel spectrogram
// Whisper-family models take as input: a 400-point STFT with a 160-sample
// hop over exactly 30 seconds, projected onto a Slaney mel filterbank,
// log10-compressed, floored 8 decades below the peak and rescaled.
package log_mel

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	SampleRate  = 16000
	NFFT        = 400
	HopLength   = 160
	ChunkLength = 30
	NSamples    = ChunkLength * SampleRate
	NFrames     = NSamples / HopLength

	DefaultMels = 80
)

// Spectrogram is a row-major [NMels][NFrames] matrix.
type Spectrogram struct {
	Data    []float32
	NMels   int
	NFrames int
}

// At returns the value for mel bin m at frame t.
func (s *Spectrogram) At(m, t int) float32 {
	return s.Data[m*s.NFrames+t]
}

// PadOrTrim returns exactly length samples, zero padded or cut at the end.
func PadOrTrim(samples []float32, length int) []float32 {
	out := make([]float32, length)
	copy(out, samples)

	return out
}

// Compute pads or trims samples to 30 seconds and returns the log-mel
// spectrogram with nMels bins.
func Compute(samples []float32, nMels int) (*Spectrogram, error) {
	return LogMelSpectrogram(PadOrTrim(samples, NSamples), nMels)
}

// LogMelSpectrogram computes the spectrogram of samples as given.
func LogMelSpectrogram(samples []float32, nMels int) (*Spectrogram, error) {
	if nMels <= 0 {
		return nil, fmt.Errorf("mel bin count must be positive, got %d", nMels)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	power := powerSpectrogram(samples)
	nFrames := len(power)
	bins := NFFT/2 + 1
	filters := MelFilters(SampleRate, NFFT, nMels)

	logSpec := make([]float64, nMels*nFrames)
	maxVal := math.Inf(-1)

	for m := 0; m < nMels; m++ {
		filter := filters[m*bins : (m+1)*bins]

		for t := 0; t < nFrames; t++ {
			var sum float64
			for k, w := range filter {
				if w != 0 {
					sum += w * power[t][k]
				}
			}

			v := math.Log10(math.Max(sum, 1e-10))
			logSpec[m*nFrames+t] = v

			if v > maxVal {
				maxVal = v
			}
		}
	}

	floor := maxVal - 8.0
	data := make([]float32, len(logSpec))

	for i, v := range logSpec {
		data[i] = float32((math.Max(v, floor) + 4.0) / 4.0)
	}

	return &Spectrogram{Data: data, NMels: nMels, NFrames: nFrames}, nil
}

// powerSpectrogram returns |STFT|^2 per frame with a periodic Hann window
// and reflect padding of NFFT/2 on both sides. The trailing frame is
// dropped so 30s of audio gives exactly NFrames frames.
func powerSpectrogram(samples []float32) [][]float64 {
	padded := reflectPad(samples, NFFT/2)

	// the first NFFT points of an NFFT+1 symmetric window form a periodic one
	hann := window.Hann(NFFT + 1)[:NFFT]

	// one frame fewer than the STFT produces
	nFrames := (len(padded) - NFFT) / HopLength
	if nFrames < 1 {
		nFrames = 1
	}

	bins := NFFT/2 + 1
	frame := make([]float64, NFFT)
	power := make([][]float64, nFrames)

	for t := 0; t < nFrames; t++ {
		start := t * HopLength
		for i := 0; i < NFFT; i++ {
			frame[i] = padded[start+i] * hann[i]
		}

		spectrum := fft.FFTReal(frame)

		row := make([]float64, bins)
		for k := 0; k < bins; k++ {
			a := cmplx.Abs(spectrum[k])
			row[k] = a * a
		}

		power[t] = row
	}

	return power
}

func reflectPad(samples []float32, pad int) []float64 {
	n := len(samples)
	out := make([]float64, n+2*pad)

	at := func(i int) float64 {
		if n == 1 {
			return float64(samples[0])
		}

		// reflect without repeating the edge sample
		for i < 0 || i >= n {
			if i < 0 {
				i = -i
			}

			if i >= n {
				i = 2*(n-1) - i
			}
		}

		return float64(samples[i])
	}

	for i := range out {
		out[i] = at(i - pad)
	}

	return out
}
