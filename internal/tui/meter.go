package tui

import (
	"math"
	"sync/atomic"
)

// Meter tracks the output peak. Tap runs on the audio thread; Take is called
// from the UI and returns the loudest sample seen since the previous Take.
type Meter struct {
	peak atomic.Uint32 // float32 bits
}

func NewMeter() *Meter {
	return &Meter{}
}

// Tap is installed as the machine's sample tap. It only does a max and a CAS.
func (m *Meter) Tap(buf []float32) {
	var p float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > p {
			p = s
		}
	}
	for {
		old := m.peak.Load()
		if math.Float32frombits(old) >= p {
			return
		}
		if m.peak.CompareAndSwap(old, math.Float32bits(p)) {
			return
		}
	}
}

func (m *Meter) Take() float32 {
	return math.Float32frombits(m.peak.Swap(0))
}
