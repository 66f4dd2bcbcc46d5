package effects

import (
	"math"
	"sync/atomic"
)

// Lowpass is a stereo RBJ biquad low-pass. The cutoff can be changed from any
// goroutine; the audio thread picks the new value up on its next sample.
type Lowpass struct {
	sampleRate float64
	q          float64
	cutoff     atomic.Uint64 // float64 bits
	applied    float64

	b0, b1, b2, a1, a2 float64
	l, r               biquadState
}

type biquadState struct {
	x1, x2, y1, y2 float64
}

// NewLowpass creates a low-pass at cutoffHz with resonance q.
func NewLowpass(sampleRate int, cutoffHz, q float64) *Lowpass {
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	lp := &Lowpass{sampleRate: float64(sampleRate), q: q}
	lp.SetCutoff(cutoffHz)
	lp.design(lp.Cutoff())
	return lp
}

// SetCutoff clamps hz to (10, 0.49*sampleRate) and publishes it.
func (lp *Lowpass) SetCutoff(hz float64) {
	maxHz := 0.49 * lp.sampleRate
	if math.IsNaN(hz) || hz > maxHz {
		hz = maxHz
	}
	if hz < 10 {
		hz = 10
	}
	lp.cutoff.Store(math.Float64bits(hz))
}

func (lp *Lowpass) Cutoff() float64 {
	return math.Float64frombits(lp.cutoff.Load())
}

func (lp *Lowpass) design(hz float64) {
	w0 := 2 * math.Pi * hz / lp.sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * lp.q)
	a0 := 1 + alpha
	lp.b0 = (1 - cosw) / 2 / a0
	lp.b1 = (1 - cosw) / a0
	lp.b2 = lp.b0
	lp.a1 = -2 * cosw / a0
	lp.a2 = (1 - alpha) / a0
	lp.applied = hz
}

func (lp *Lowpass) Process(l, r float32) (float32, float32) {
	if hz := lp.Cutoff(); hz != lp.applied {
		lp.design(hz)
	}
	return float32(lp.step(&lp.l, float64(l))), float32(lp.step(&lp.r, float64(r)))
}

func (lp *Lowpass) step(s *biquadState, x float64) float64 {
	y := lp.b0*x + lp.b1*s.x1 + lp.b2*s.x2 - lp.a1*s.y1 - lp.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

func (lp *Lowpass) Reset() {
	lp.l = biquadState{}
	lp.r = biquadState{}
}
