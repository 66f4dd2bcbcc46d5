package samples

import (
	"sync"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

// Buffer is a decoded mono sample at its own sample rate.
type Buffer struct {
	Data       []float32
	SampleRate int
}

// Duration returns the buffer length in seconds at natural pitch.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Data)) / float64(b.SampleRate)
}

// Provider exposes decoded samples by voice. A voice that has not finished
// loading reports ok == false.
type Provider interface {
	Sample(v pattern.Voice) (*Buffer, bool)
}

// Bank is a Provider populated asynchronously by loaders.
type Bank struct {
	mu      sync.RWMutex
	buffers [pattern.NumVoices]*Buffer
}

func NewBank() *Bank {
	return &Bank{}
}

func (b *Bank) Sample(v pattern.Voice) (*Buffer, bool) {
	if !v.Valid() {
		return nil, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf := b.buffers[v]
	return buf, buf != nil && len(buf.Data) > 0
}

// Set installs buf for v. A nil buf unloads the voice.
func (b *Bank) Set(v pattern.Voice, buf *Buffer) {
	if !v.Valid() {
		return
	}
	b.mu.Lock()
	b.buffers[v] = buf
	b.mu.Unlock()
}

// Loaded reports how many voices currently have a buffer.
func (b *Bank) Loaded() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, buf := range b.buffers {
		if buf != nil && len(buf.Data) > 0 {
			n++
		}
	}
	return n
}
