package effects

// Reverb is a Schroeder-style reverb: parallel damped comb filters followed by
// series allpass filters, with slightly longer delay lines on the right
// channel for stereo width. It is used as a send effect, so the output is the
// wet signal scaled by wet plus the dry input scaled by 1-wet.
type Reverb struct {
	combsL   [4]combFilter
	combsR   [4]combFilter
	allpassL [2]allpassFilter
	allpassR [2]allpassFilter
	wet      float32
}

type combFilter struct {
	buf   []float32
	pos   int
	fb    float32
	damp  float32
	store float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

const stereoSpread = 23

// NewReverb creates a reverb effect.
// roomSize: 0..1 controls delay lengths
// feedback: 0..1 controls decay time
// damping: 0..1 high-frequency loss inside the tail
// wet: wet/dry mix 0..1 (1 for a pure send)
func NewReverb(sampleRate int, roomSize, feedback, damping, wet float32) *Reverb {
	base := int(float32(sampleRate) * clamp(roomSize, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(feedback, 0, 0.95)
	damp := clamp(damping, 0, 1)
	r := &Reverb{wet: clamp(wet, 0, 1)}
	// prime-ish ratios avoid stacked resonances
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combsL {
		r.combsL[i] = newComb(combLens[i], fb, damp)
		r.combsR[i] = newComb(combLens[i]+stereoSpread, fb, damp)
	}
	apLens := [2]int{maxInt(base*347/1000, 1), maxInt(base*213/1000, 1)}
	for i := range r.allpassL {
		r.allpassL[i] = allpassFilter{buf: make([]float32, apLens[i]), fb: 0.5}
		r.allpassR[i] = allpassFilter{buf: make([]float32, apLens[i]+stereoSpread), fb: 0.5}
	}
	return r
}

func newComb(n int, fb, damp float32) combFilter {
	return combFilter{buf: make([]float32, n), fb: fb, damp: damp}
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	var outL, outR float32
	for i := range r.combsL {
		outL += r.combsL[i].process(mono)
		outR += r.combsR[i].process(mono)
	}
	outL *= 0.25
	outR *= 0.25
	for i := range r.allpassL {
		outL = r.allpassL[i].process(outL)
		outR = r.allpassR[i].process(outR)
	}
	return l*(1-r.wet) + outL*r.wet, r2*(1-r.wet) + outR*r.wet
}

func (r *Reverb) Reset() {
	for _, combs := range []*[4]combFilter{&r.combsL, &r.combsR} {
		for i := range combs {
			clear(combs[i].buf)
			combs[i].pos = 0
			combs[i].store = 0
		}
	}
	for _, aps := range []*[2]allpassFilter{&r.allpassL, &r.allpassR} {
		for i := range aps {
			clear(aps[i].buf)
			aps[i].pos = 0
		}
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-c.damp) + c.store*c.damp
	c.buf[c.pos] = in + c.store*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
