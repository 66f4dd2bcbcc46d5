// Package graph renders scheduled drum hits into a stereo mix.
//
// The static topology is built once:
//
//	notes -> dry bus ------------------------------> master gain -> eq -> tone -> [limiter] -> out
//	notes -> send bus -> reverb -> effect level ---^
//
// Every hit gets its own short-lived NoteGraph that the audio thread mixes
// into the dry and send buses until the sample runs out.
package graph

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/drumkit-go/internal/effects"
	"github.com/cbegin/drumkit-go/internal/pattern"
	"github.com/cbegin/drumkit-go/internal/samples"
)

const (
	DefaultMasterGain  = 0.7
	DefaultEffectLevel = 1.0
	toneQ              = 1.0
)

// Options configures the static topology.
type Options struct {
	ToneCutoff float64 // Hz, 0 selects 0.45 * sampleRate
	Limiter    bool
	Tap        func([]float32)
}

type buses struct {
	dryL, dryR []float32
	wetL, wetR []float32
	src, tmp   []float32
}

func (b *buses) resize(frames int) {
	if cap(b.dryL) < frames {
		b.dryL = make([]float32, frames)
		b.dryR = make([]float32, frames)
		b.wetL = make([]float32, frames)
		b.wetR = make([]float32, frames)
		b.src = make([]float32, frames)
		b.tmp = make([]float32, frames)
	}
	b.dryL = b.dryL[:frames]
	b.dryR = b.dryR[:frames]
	b.wetL = b.wetL[:frames]
	b.wetR = b.wetR[:frames]
	b.src = b.src[:frames]
	b.tmp = b.tmp[:frames]
	clear(b.dryL)
	clear(b.dryR)
	clear(b.wetL)
	clear(b.wetR)
}

// Graph owns the buses and the notes in flight. Schedule and Trigger may be
// called from any goroutine; Process runs on the audio thread.
type Graph struct {
	sampleRate int
	bank       samples.Provider

	frame  atomic.Int64
	master atomic.Uint32 // float32 bits
	built  atomic.Int64

	mu      sync.Mutex
	pending []*NoteGraph

	active      []*NoteGraph
	bus         buses
	reverb      *effects.Reverb
	effectLevel float32
	eq          *effects.KitEQ
	tone        *effects.Lowpass
	out         *effects.Chain
	tap         func([]float32)
}

// New builds the static topology. bank supplies decoded samples by voice.
func New(sampleRate int, bank samples.Provider, opts Options) *Graph {
	cutoff := opts.ToneCutoff
	if cutoff <= 0 {
		cutoff = 0.45 * float64(sampleRate)
	}
	g := &Graph{
		sampleRate:  sampleRate,
		bank:        bank,
		reverb:      effects.NewReverb(sampleRate, 0.6, 0.8, 0.3, 1),
		effectLevel: DefaultEffectLevel,
		eq:          effects.NewKitEQ(sampleRate),
		tone:        effects.NewLowpass(sampleRate, cutoff, toneQ),
		tap:         opts.Tap,
	}
	g.out = effects.NewChain(g.eq, g.tone)
	if opts.Limiter {
		g.out.Add(effects.NewMasterCompressor(sampleRate))
	}
	g.SetMasterGain(DefaultMasterGain)
	return g
}

func (g *Graph) SampleRate() int {
	return g.sampleRate
}

// Now returns the device time in seconds: frames rendered so far over the
// sample rate.
func (g *Graph) Now() float64 {
	return float64(g.frame.Load()) / float64(g.sampleRate)
}

// SetMasterGain sets the master bus gain.
func (g *Graph) SetMasterGain(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	g.master.Store(math.Float32bits(float32(v)))
}

func (g *Graph) MasterGain() float64 {
	return float64(math.Float32frombits(g.master.Load()))
}

// SetToneCutoff moves the master low-pass.
func (g *Graph) SetToneCutoff(hz float64) {
	g.tone.SetCutoff(hz)
}

func (g *Graph) ToneCutoff() float64 {
	return g.tone.Cutoff()
}

// SetEQGain sets one band of the master EQ (effects.BandLow and friends).
func (g *Graph) SetEQGain(band int, gain float32) {
	g.eq.SetGain(band, gain)
}

func (g *Graph) EQGain(band int) float32 {
	return g.eq.Gain(band)
}

// Built reports how many note sub-graphs have been constructed.
func (g *Graph) Built() int64 {
	return g.built.Load()
}

// Build constructs the sub-graph for one hit without queueing it. It returns
// nil when no sample is loaded for v.
func (g *Graph) Build(v pattern.Voice, step int, gain, send, pitch, when float64) *NoteGraph {
	buf, ok := g.bank.Sample(v)
	if !ok {
		return nil
	}
	prof := ProfileFor(v)
	n := &NoteGraph{
		Voice:  v,
		Start:  int64(math.Round(when * float64(g.sampleRate))),
		Dry:    float32(gain * prof.DryMix),
		Wet:    float32(send),
		source: newSampleVoice(buf, pitch, g.sampleRate),
	}
	if prof.Spatial {
		n.Panner = NewPanner(HiHatPosition(step))
	}
	g.built.Add(1)
	return n
}

// Schedule queues a sequenced hit at device time when, using the voice's
// fixed send. It reports whether a sub-graph was built.
func (g *Graph) Schedule(v pattern.Voice, step int, gain, pitch, when float64) bool {
	return g.enqueue(g.Build(v, step, gain, ProfileFor(v).Send, pitch, when))
}

// Trigger plays v immediately at accent volume with effectMix as the send.
func (g *Graph) Trigger(v pattern.Voice, step int, pitch, effectMix float64) bool {
	return g.enqueue(g.Build(v, step, pattern.Accent.Volume(), effectMix, pitch, g.Now()))
}

func (g *Graph) enqueue(n *NoteGraph) bool {
	if n == nil {
		return false
	}
	g.mu.Lock()
	g.pending = append(g.pending, n)
	g.mu.Unlock()
	return true
}

// Process renders one block of interleaved stereo into dst.
func (g *Graph) Process(dst []float32) {
	frames := len(dst) / 2
	start := g.frame.Load()

	g.mu.Lock()
	g.active = append(g.active, g.pending...)
	clear(g.pending)
	g.pending = g.pending[:0]
	g.mu.Unlock()

	b := &g.bus
	b.resize(frames)
	kept := g.active[:0]
	for _, n := range g.active {
		if n.render(start, b) {
			kept = append(kept, n)
		}
	}
	clear(g.active[len(kept):])
	g.active = kept

	for i := 0; i < frames; i++ {
		b.wetL[i], b.wetR[i] = g.reverb.Process(b.wetL[i], b.wetR[i])
	}
	if g.effectLevel != 1 {
		vek32.MulNumber_Inplace(b.wetL, g.effectLevel)
		vek32.MulNumber_Inplace(b.wetR, g.effectLevel)
	}
	vek32.Add_Inplace(b.dryL, b.wetL)
	vek32.Add_Inplace(b.dryR, b.wetR)
	m := math.Float32frombits(g.master.Load())
	vek32.MulNumber_Inplace(b.dryL, m)
	vek32.MulNumber_Inplace(b.dryR, m)

	for i := 0; i < frames; i++ {
		dst[2*i], dst[2*i+1] = b.dryL[i], b.dryR[i]
	}
	g.out.ProcessBuffer(dst[:2*frames])
	if len(dst) > 2*frames {
		dst[len(dst)-1] = 0
	}
	g.frame.Add(int64(frames))
	if g.tap != nil {
		g.tap(dst)
	}
}

// Active returns the number of notes the audio thread is still mixing.
// Only meaningful from the goroutine that calls Process.
func (g *Graph) Active() int {
	return len(g.active)
}
