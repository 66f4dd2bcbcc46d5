package effects

import "math"

// Compressor is a stereo-linked feed-forward compressor with a soft knee.
// Both channels share one envelope so transients do not shift the image.
type Compressor struct {
	thresholdDB float64
	kneeDB      float64
	ratio       float64
	attack      float64 // coefficient
	release     float64 // coefficient
	makeup      float64
	env         float64
}

// NewCompressor creates a compressor effect.
// thresholdDB: level where gain reduction starts (e.g. -24)
// kneeDB: width of the soft knee around the threshold (0 = hard knee)
// ratio: compression ratio (e.g. 12 for 12:1)
// attackMs, releaseMs: envelope follower times
// makeupDB: gain applied after reduction
func NewCompressor(sampleRate int, thresholdDB, kneeDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	if kneeDB < 0 {
		kneeDB = 0
	}
	sr := float64(sampleRate)
	return &Compressor{
		thresholdDB: thresholdDB,
		kneeDB:      kneeDB,
		ratio:       ratio,
		attack:      envCoeff(attackMs, sr),
		release:     envCoeff(releaseMs, sr),
		makeup:      dbToGain(makeupDB),
	}
}

// NewMasterCompressor returns the bus compressor used to sweeten the final
// mix: -24 dB threshold, 30 dB knee, 12:1, 3 ms attack, 250 ms release.
func NewMasterCompressor(sampleRate int) *Compressor {
	return NewCompressor(sampleRate, -24, 30, 12, 3, 250, 0)
}

func envCoeff(ms, sr float64) float64 {
	if ms <= 0 {
		return 1
	}
	return 1.0 - math.Exp(-1.0/(ms*sr/1000.0))
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := math.Max(math.Abs(float64(l)), math.Abs(float64(r)))
	if peak > c.env {
		c.env += c.attack * (peak - c.env)
	} else {
		c.env += c.release * (peak - c.env)
	}
	g := float32(c.gain(c.env) * c.makeup)
	return l * g, r * g
}

// gain returns the linear gain for an envelope level.
func (c *Compressor) gain(env float64) float64 {
	if env <= 0 {
		return 1
	}
	in := 20 * math.Log10(env)
	over := in - c.thresholdDB
	var reductionDB float64
	switch {
	case c.kneeDB > 0 && math.Abs(over) <= c.kneeDB/2:
		x := over + c.kneeDB/2
		reductionDB = (1/c.ratio - 1) * x * x / (2 * c.kneeDB)
	case over > 0:
		reductionDB = (1/c.ratio - 1) * over
	default:
		return 1
	}
	return dbToGain(reductionDB)
}

func (c *Compressor) Reset() {
	c.env = 0
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
