package effects

import (
	"math"
	"sync/atomic"
)

const (
	BandLow = iota
	BandMid
	BandHigh
	NumBands
)

// KitEQ is a three-band master EQ split where a drum kit separates: the low
// band carries kick and floor-tom bodies, the high band cymbals and air.
// Gains are float32 bits so any goroutine may change them while the audio
// thread reads.
type KitEQ struct {
	gains [NumBands]atomic.Uint32
	lpA   float32
	hpA   float32
	lp    [2]float32
	hp    [2]float32
}

const (
	kitLowCrossover  = 120.0
	kitHighCrossover = 6000.0
)

func NewKitEQ(sampleRate int) *KitEQ {
	dt := 1.0 / float64(sampleRate)
	alpha := func(freq float64) float32 {
		rc := 1.0 / (2.0 * math.Pi * freq)
		return float32(dt / (rc + dt))
	}
	eq := &KitEQ{lpA: alpha(kitLowCrossover), hpA: alpha(kitHighCrossover)}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1))
	}
	return eq
}

// SetGain sets a band's linear gain. Negative gains are treated as 0.
func (eq *KitEQ) SetGain(band int, gain float32) {
	if band < 0 || band >= NumBands {
		return
	}
	eq.gains[band].Store(math.Float32bits(max(gain, 0)))
}

func (eq *KitEQ) Gain(band int) float32 {
	if band < 0 || band >= NumBands {
		return 1
	}
	return math.Float32frombits(eq.gains[band].Load())
}

func (eq *KitEQ) Process(l, r float32) (float32, float32) {
	return eq.channel(0, l), eq.channel(1, r)
}

func (eq *KitEQ) channel(ch int, x float32) float32 {
	eq.lp[ch] += eq.lpA * (x - eq.lp[ch])
	eq.hp[ch] += eq.hpA * (x - eq.hp[ch])
	low := eq.lp[ch]
	high := x - eq.hp[ch]
	mid := x - low - high
	return low*eq.Gain(BandLow) + mid*eq.Gain(BandMid) + high*eq.Gain(BandHigh)
}

func (eq *KitEQ) Reset() {
	eq.lp = [2]float32{}
	eq.hp = [2]float32{}
}
