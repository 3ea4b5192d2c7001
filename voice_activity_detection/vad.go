package voice_activity_detection

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// VAD measures spectral flux: how much the magnitude spectrum of a block
// rose compared to the previous block. Speech onsets produce large flux,
// steady background noise produces little.
type VAD struct {
	size int
	prev []float64
	in   []float64
}

// New returns a VAD that analyses blocks of size samples. Shorter blocks are
// zero padded, longer ones truncated.
func New(size int) *VAD {
	if size <= 0 {
		size = 1024
	}

	return &VAD{
		size: size,
		in:   make([]float64, size),
	}
}

// Flux returns the spectral flux of samples against the previous call.
func (v *VAD) Flux(samples []float32) float64 {
	for i := range v.in {
		if i < len(samples) {
			v.in[i] = float64(samples[i])
		} else {
			v.in[i] = 0
		}
	}

	spectrum := fft.FFTReal(v.in)
	bins := len(spectrum)/2 + 1

	magnitudes := make([]float64, bins)
	for i := 0; i < bins; i++ {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	var flux float64

	for i, m := range magnitudes {
		prev := 0.0
		if v.prev != nil {
			prev = v.prev[i]
		}

		if diff := m - prev; diff > 0 {
			flux += diff
		}
	}

	v.prev = magnitudes

	return flux
}
