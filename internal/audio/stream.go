// Package audio connects a pull-based sample source to an output device.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

// SampleSource fills interleaved stereo float32 frames on demand.
type SampleSource interface {
	Process(dst []float32)
}

// Output is an opened device stream.
type Output interface {
	Play()
	Pause()
	Close() error
}

type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
)

var ErrUnknownBackend = errors.New("audio: unknown backend")

// ParseBackend accepts a backend name from a flag or config file.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(name); b {
	case BackendEbiten, BackendOto:
		return b, nil
	case "":
		return BackendEbiten, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Open starts a paused stream on the named backend.
func Open(b Backend, sampleRate int, source SampleSource) (Output, error) {
	switch b {
	case BackendEbiten, "":
		return newEbitenOutput(sampleRate, source)
	case BackendOto:
		return newOtoOutput(sampleRate, source)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(b))
}

// StreamReader adapts a SampleSource to an io.Reader producing little-endian
// float32 stereo frames, the format both backends consume.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }
