package graph

import (
	"github.com/viterin/vek/vek32"

	"github.com/cbegin/drumkit-go/internal/pattern"
	"github.com/cbegin/drumkit-go/internal/samples"
)

// Profile is the fixed routing for one voice.
type Profile struct {
	DryMix  float64 // multiplier on the level volume for the dry path
	Send    float64 // wet gain into the reverb bus for sequenced hits
	Spatial bool    // route through a Panner
}

var profiles = [pattern.NumVoices]Profile{
	pattern.Kick:  {DryMix: 1, Send: 0.5},
	pattern.Snare: {DryMix: 1, Send: 1},
	pattern.HiHat: {DryMix: 1, Send: 1, Spatial: true},
	pattern.Tom1:  {DryMix: 1, Send: 1},
	pattern.Tom2:  {DryMix: 1, Send: 1},
	pattern.Tom3:  {DryMix: 1, Send: 1},
}

// ProfileFor returns the routing profile of v.
func ProfileFor(v pattern.Voice) Profile {
	if !v.Valid() {
		return Profile{}
	}
	return profiles[v]
}

// NoteGraph is the short-lived sub-graph for one hit: a sample voice, an
// optional panner, and the dry and wet gains. The audio thread drops it once
// the sample has played out.
type NoteGraph struct {
	Voice  pattern.Voice
	Start  int64 // device frame
	Dry    float32
	Wet    float32
	Panner *Panner

	source  sampleVoice
	started bool
}

// Gains returns the per-bus gains after panning: dry left/right, wet left/right.
func (n *NoteGraph) Gains() (dl, dr, wl, wr float32) {
	pl, pr := float32(1), float32(1)
	if n.Panner != nil {
		pl, pr = n.Panner.Gains()
	}
	return n.Dry * pl, n.Dry * pr, n.Wet * pl, n.Wet * pr
}

// render mixes this note's contribution to the block starting at blockStart
// into the four bus buffers. It returns false once the note has finished.
func (n *NoteGraph) render(blockStart int64, b *buses) bool {
	frames := len(b.dryL)
	off := 0
	if !n.started {
		o := n.Start - blockStart
		if o >= int64(frames) {
			return true
		}
		if o > 0 {
			off = int(o)
		}
		n.started = true
	}
	count := n.source.read(b.src[:frames-off])
	if count > 0 {
		dl, dr, wl, wr := n.Gains()
		src := b.src[:count]
		tmp := b.tmp[:count]
		mixInto(b.dryL[off:off+count], src, tmp, dl)
		mixInto(b.dryR[off:off+count], src, tmp, dr)
		mixInto(b.wetL[off:off+count], src, tmp, wl)
		mixInto(b.wetR[off:off+count], src, tmp, wr)
	}
	return !n.source.done()
}

func mixInto(dst, src, tmp []float32, gain float32) {
	if gain == 0 {
		return
	}
	vek32.MulNumber_Into(tmp, src, gain)
	vek32.Add_Inplace(dst, tmp)
}

// sampleVoice plays a buffer once at a playback-rate multiplier using linear
// interpolation.
type sampleVoice struct {
	data []float32
	pos  float64
	rate float64
}

func newSampleVoice(buf *samples.Buffer, pitch float64, sampleRate int) sampleVoice {
	rate := pitch
	if buf.SampleRate > 0 && sampleRate > 0 {
		rate *= float64(buf.SampleRate) / float64(sampleRate)
	}
	return sampleVoice{data: buf.Data, rate: rate}
}

func (s *sampleVoice) done() bool {
	return s.rate <= 0 || int(s.pos) >= len(s.data)
}

// read fills dst and returns how many frames were produced.
func (s *sampleVoice) read(dst []float32) int {
	n := 0
	last := len(s.data) - 1
	for n < len(dst) && !s.done() {
		i := int(s.pos)
		frac := float32(s.pos - float64(i))
		a := s.data[i]
		var b float32
		if i < last {
			b = s.data[i+1]
		}
		dst[n] = a + (b-a)*frac
		n++
		s.pos += s.rate
	}
	return n
}
