package samples

import (
	"math"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

const twoPi = math.Pi * 2

// Synthesize fills bank with a built-in kit rendered at sampleRate. Voices that
// already have a buffer are left alone, so a partially loaded kit keeps its
// files and only gaps are filled.
func Synthesize(bank *Bank, sampleRate int) {
	for _, v := range pattern.Voices() {
		if _, ok := bank.Sample(v); ok {
			continue
		}
		bank.Set(v, SynthVoice(v, sampleRate))
	}
}

// SynthVoice renders the built-in sound for v.
func SynthVoice(v pattern.Voice, sampleRate int) *Buffer {
	var data []float32
	switch v {
	case pattern.Kick:
		data = renderKick(sampleRate)
	case pattern.Snare:
		data = renderSnare(sampleRate)
	case pattern.HiHat:
		data = renderHiHat(sampleRate)
	case pattern.Tom1:
		data = renderTom(sampleRate, 220)
	case pattern.Tom2:
		data = renderTom(sampleRate, 165)
	case pattern.Tom3:
		data = renderTom(sampleRate, 110)
	default:
		return nil
	}
	return &Buffer{Data: data, SampleRate: sampleRate}
}

func frames(sampleRate int, seconds float64) int {
	n := int(float64(sampleRate) * seconds)
	if n < 1 {
		n = 1
	}
	return n
}

// renderKick is a sine with a downward pitch bend and exponential decay.
func renderKick(sampleRate int) []float32 {
	n := frames(sampleRate, 0.45)
	out := make([]float32, n)
	sr := float64(sampleRate)
	var phase float64
	for i := range out {
		t := float64(i) / float64(n)
		freq := 150 - 100*t
		phase += twoPi * freq / sr
		out[i] = float32(math.Sin(phase) * math.Exp(-5*t))
	}
	return out
}

// renderSnare mixes a short body tone with a longer noise burst.
func renderSnare(sampleRate int) []float32 {
	n := frames(sampleRate, 0.25)
	out := make([]float32, n)
	sr := float64(sampleRate)
	lfsr := uint16(0xACE1)
	var phase float64
	for i := range out {
		t := float64(i) / float64(n)
		phase += twoPi * 185 / sr
		body := math.Sin(phase) * math.Exp(-18*t)
		noise := noiseSample(&lfsr) * math.Exp(-7*t)
		out[i] = float32(0.45*body + 0.55*noise)
	}
	return out
}

// renderHiHat is LFSR noise through a one-pole highpass with a fast decay.
func renderHiHat(sampleRate int) []float32 {
	n := frames(sampleRate, 0.09)
	out := make([]float32, n)
	dt := 1 / float64(sampleRate)
	rc := 1 / (twoPi * 7000)
	alpha := rc / (rc + dt)
	lfsr := uint16(0xB1E5)
	var prevIn, prevOut float64
	for i := range out {
		t := float64(i) / float64(n)
		x := noiseSample(&lfsr)
		y := alpha * (prevOut + x - prevIn)
		prevIn, prevOut = x, y
		out[i] = float32(0.5 * y * math.Exp(-6*t))
	}
	return out
}

// renderTom is a pitched sine that falls a little while decaying.
func renderTom(sampleRate int, freq float64) []float32 {
	n := frames(sampleRate, 0.5)
	out := make([]float32, n)
	sr := float64(sampleRate)
	var phase float64
	for i := range out {
		t := float64(i) / float64(n)
		phase += twoPi * freq * (1 - 0.3*t) / sr
		out[i] = float32(math.Sin(phase) * math.Exp(-4*t))
	}
	return out
}

// noiseSample steps a 16-bit LFSR and returns -1 or +1.
func noiseSample(lfsr *uint16) float64 {
	bit := (*lfsr ^ (*lfsr >> 1)) & 1
	*lfsr = (*lfsr >> 1) | (bit << 15)
	if *lfsr&1 == 1 {
		return 1
	}
	return -1
}
