package voice_activity_detection

import "time"

const (
	fluxRatio = 1.75

	// floorWeight is how far the noise floor moves toward each quiet block.
	floorWeight = 0.1
)

// Detector decides when a speaker has finished: it waits for flux well above
// the noise floor (speech), then reports true once flux stays near the floor
// for longer than quietTime. The floor follows quiet blocks only. Time is
// measured in samples so the outcome does not depend on how fast the driver
// delivers blocks.
type Detector struct {
	vad        *VAD
	sampleRate int
	quietTime  time.Duration

	primed         bool
	heardSomething bool
	quiet          bool
	quietSamples   int
	floor          float64
}

func NewDetector(blockSize, sampleRate int, quietTime time.Duration) *Detector {
	return &Detector{
		vad:        New(blockSize),
		sampleRate: sampleRate,
		quietTime:  quietTime,
	}
}

// HeardSomething reports whether speech onset has been seen.
func (d *Detector) HeardSomething() bool {
	return d.heardSomething
}

// Observe feeds one block and reports whether the quiet period after speech
// has exceeded quietTime.
func (d *Detector) Observe(block []float32) bool {
	flux := d.vad.Flux(block)

	if !d.primed {
		d.primed = true
		d.floor = flux

		return false
	}

	loud := flux > d.floor*fluxRatio

	if !d.heardSomething {
		if loud {
			d.heardSomething = true
			return false
		}

		d.track(flux)

		return false
	}

	if loud {
		d.quiet = false
		return false
	}

	d.track(flux)

	if !d.quiet {
		d.quiet = true
		d.quietSamples = 0

		return false
	}

	d.quietSamples += len(block)

	return d.quietDuration() > d.quietTime
}

func (d *Detector) track(flux float64) {
	d.floor += (flux - d.floor) * floorWeight
}

func (d *Detector) quietDuration() time.Duration {
	if d.sampleRate <= 0 {
		return 0
	}

	return time.Duration(d.quietSamples) * time.Second / time.Duration(d.sampleRate)
}
