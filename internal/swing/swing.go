// Package swing computes step timing for the 16-step loop.
package swing

// MaxSwing is the largest offset, in beats, applied to a swung step.
const MaxSwing = 0.08

// Base returns the duration of a straight 16th note in seconds.
func Base(tempo float64) float64 {
	return 0.25 * (60 / tempo)
}

// Delta returns the gap in seconds from step to the next one. step is the
// index before advancing: odd steps are followed by a longer gap, even steps
// by a shorter one, so downbeats stay on the grid.
func Delta(step int, tempo, swing float64) float64 {
	secondsPerBeat := 60 / tempo
	base := Base(tempo)
	offset := MaxSwing * swing * secondsPerBeat
	if step%2 != 0 {
		return base + offset
	}
	return base - offset
}

// LoopDuration returns the length of one full loop of steps.
func LoopDuration(steps int, tempo float64) float64 {
	return float64(steps) * Base(tempo)
}
