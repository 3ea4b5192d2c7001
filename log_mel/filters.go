package log_mel

import "math"

// Slaney mel scale: linear below 1kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSp
	}

	return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melMinLogMel {
		return mel * melFSp
	}

	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
}

// MelFilters returns a row-major [nMels][nFFT/2+1] triangular filterbank
// spanning 0Hz to Nyquist with Slaney area normalisation.
func MelFilters(sampleRate, nFFT, nMels int) []float64 {
	bins := nFFT/2 + 1

	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}

	minMel := hzToMel(0)
	maxMel := hzToMel(float64(sampleRate) / 2)

	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = melToHz(minMel + (maxMel-minMel)*float64(i)/float64(nMels+1))
	}

	weights := make([]float64, nMels*bins)

	for m := 0; m < nMels; m++ {
		lowerWidth := melF[m+1] - melF[m]
		upperWidth := melF[m+2] - melF[m+1]
		enorm := 2.0 / (melF[m+2] - melF[m])

		for k, f := range fftFreqs {
			lower := (f - melF[m]) / lowerWidth
			upper := (melF[m+2] - f) / upperWidth

			if w := math.Min(lower, upper); w > 0 {
				weights[m*bins+k] = w * enorm
			}
		}
	}

	return weights
}
