package drumkit

import (
	"errors"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intsched "github.com/cbegin/drumkit-go/internal/scheduler"
)

type nullOutput struct{}

func (nullOutput) Play()        {}
func (nullOutput) Pause()       {}
func (nullOutput) Close() error { return nil }

func openNull(int, SampleSource) (Output, error) {
	return nullOutput{}, nil
}

// RenderBeat plays a machine for seconds without an audio device and returns
// the interleaved stereo mix. The scheduler runs one pass per tick period of
// rendered audio, so timing matches live playback. Without WithSampleBank the
// synthesized kit is used.
func RenderBeat(sampleRate int, seconds float64, opts ...Option) ([]float32, error) {
	if seconds < 0 || math.IsNaN(seconds) {
		return nil, errors.New("seconds must be non-negative")
	}
	opts = append(opts[:len(opts):len(opts)], WithOutput(openNull), withTicker(intsched.Manual))
	m, err := NewMachine(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	if m.cfg.bank == nil {
		m.UseSynthKit()
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	if err := m.Start(); err != nil {
		return nil, err
	}

	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	block := int(m.loop.Timing().Tick.Seconds() * float64(sampleRate))
	if block < 1 {
		block = 1
	}
	for pos := 0; pos < frames; pos += block {
		n := min(block, frames-pos)
		m.loop.Tick()
		m.graph.Process(out[2*pos : 2*(pos+n)])
	}
	return out, nil
}

// WriteWAV encodes interleaved stereo samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		s = max(-1, min(1, s))
		data[i] = int(math.Round(float64(s) * math.MaxInt16))
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func SaveWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
