package samples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

var ErrUnsupportedFormat = errors.New("samples: unsupported wav format")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

type LoadOption func(*loadConfig)

type loadConfig struct {
	logger      logrus.FieldLogger
	concurrency int
}

func defaultLoadConfig() loadConfig {
	return loadConfig{logger: logrus.StandardLogger(), concurrency: pattern.NumVoices}
}

func WithLogger(l logrus.FieldLogger) LoadOption {
	return func(cfg *loadConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithConcurrency bounds how many files are decoded at once.
func WithConcurrency(n int) LoadOption {
	return func(cfg *loadConfig) {
		if n > 0 {
			cfg.concurrency = n
		}
	}
}

// FileName is the conventional sample file for v inside a kit directory.
func FileName(v pattern.Voice) string {
	return v.Key() + ".wav"
}

// Decode reads a PCM wav stream and mixes it down to a normalized mono buffer.
func Decode(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("samples: not a wav file")
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("samples: decode pcm: %w", err)
	}
	channels := pcm.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, bitDepth)
	}
	scale := 1 / float64(int64(1)<<(bitDepth-1))
	// 8-bit wav is unsigned
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	frames := len(pcm.Data) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(pcm.Data[f*channels+c] - offset)
		}
		out[f] = float32(sum / float64(channels) * scale)
	}
	return &Buffer{Data: out, SampleRate: pcm.Format.SampleRate}, nil
}

// LoadFile decodes one wav file.
func LoadFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// LoadDir decodes every voice's file from dir into bank concurrently. Voices
// that load are installed as soon as they are decoded, so playback can start
// before the whole kit is ready. The returned error joins every failure.
func LoadDir(ctx context.Context, dir string, bank *Bank, opts ...LoadOption) error {
	cfg := defaultLoadConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, v := range pattern.Voices() {
		path := filepath.Join(dir, FileName(v))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := LoadFile(path)
			if err != nil {
				cfg.logger.WithFields(logrus.Fields{"voice": v, "path": path}).WithError(err).Warn("sample load failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", v, err))
				mu.Unlock()
				return nil
			}
			bank.Set(v, buf)
			cfg.logger.WithFields(logrus.Fields{
				"voice":  v,
				"path":   path,
				"rate":   buf.SampleRate,
				"frames": len(buf.Data),
			}).Debug("sample loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadDirAsync starts LoadDir in the background. The channel receives the
// final result and is then closed.
func LoadDirAsync(ctx context.Context, dir string, bank *Bank, opts ...LoadOption) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- LoadDir(ctx, dir, bank, opts...)
	}()
	return done
}
