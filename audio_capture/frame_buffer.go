package audio_capture

// AudioFrame is one block of mono float32 samples in [-1, 1].
type AudioFrame []float32

// FrameBuffer holds frames in delivery order.
type FrameBuffer []AudioFrame

// NumSamples returns the total number of samples across all frames.
func (b FrameBuffer) NumSamples() int {
	n := 0
	for _, f := range b {
		n += len(f)
	}

	return n
}

// Samples concatenates the frames into one contiguous slice.
func (b FrameBuffer) Samples() []float32 {
	samples := make([]float32, 0, b.NumSamples())
	for _, f := range b {
		samples = append(samples, f...)
	}

	return samples
}
