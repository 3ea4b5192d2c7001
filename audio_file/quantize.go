package audio_file

import "math"

const pcm16Scale = 32767

// Quantize maps a float sample to 16-bit PCM:
// round(clamp(sample, -1, 1) * 32767).
func Quantize(sample float32) int16 {
	v := math.Max(-1, math.Min(1, float64(sample)))

	return int16(math.Round(v * pcm16Scale))
}

// Dequantize is the inverse of Quantize. -32768 clamps to -1.
func Dequantize(v int16) float32 {
	f := float64(v) / pcm16Scale
	if f < -1 {
		f = -1
	}

	return float32(f)
}

func quantizeAll(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = Quantize(s)
	}

	return out
}

func dequantizeAll(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = Dequantize(s)
	}

	return out
}
