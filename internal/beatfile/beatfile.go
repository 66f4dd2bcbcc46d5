// Package beatfile reads and writes beats as YAML documents:
//
//	tempo: 96
//	swing: 0.3
//	effectMix: 0.25
//	pitch:
//	  kick: 0.5
//	pattern:
//	  kick:  "2201 2201 2201 2201"
//	  snare: "0020 0020 0020 0020"
//
// Rows are sixteen digits in {0,1,2}; spaces and '|' are ignored. Keys left
// out of a document keep the value of the base beat.
package beatfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

// Document is the on-disk form of a beat.
type Document struct {
	Tempo     *float64           `yaml:"tempo,omitempty"`
	Swing     *float64           `yaml:"swing,omitempty"`
	EffectMix *float64           `yaml:"effectMix,omitempty"`
	Pitch     map[string]float64 `yaml:"pitch,omitempty"`
	Pattern   map[string]string  `yaml:"pattern,omitempty"`
}

// FromConfig converts a beat to a complete document.
func FromConfig(cfg pattern.BeatConfig) Document {
	tempo, swing, mix := cfg.Tempo, cfg.Swing, cfg.EffectMix
	d := Document{
		Tempo:     &tempo,
		Swing:     &swing,
		EffectMix: &mix,
		Pitch:     make(map[string]float64, pattern.NumVoices),
		Pattern:   make(map[string]string, pattern.NumVoices),
	}
	for _, v := range pattern.Voices() {
		d.Pitch[v.Key()] = cfg.Pitch[v]
		d.Pattern[v.Key()] = FormatRow(cfg.Pattern[v])
	}
	return d
}

// Apply overlays the document on base and validates the result.
func (d Document) Apply(base pattern.BeatConfig) (pattern.BeatConfig, error) {
	cfg := base
	if d.Tempo != nil {
		cfg.Tempo = *d.Tempo
	}
	if d.Swing != nil {
		cfg.Swing = *d.Swing
	}
	if d.EffectMix != nil {
		cfg.EffectMix = *d.EffectMix
	}
	for name, p := range d.Pitch {
		v, ok := pattern.ParseVoice(name)
		if !ok {
			return base, fmt.Errorf("%w: unknown voice %q in pitch", pattern.ErrInvalidParameter, name)
		}
		cfg.Pitch[v] = p
	}
	for name, s := range d.Pattern {
		v, ok := pattern.ParseVoice(name)
		if !ok {
			return base, fmt.Errorf("%w: unknown voice %q in pattern", pattern.ErrInvalidParameter, name)
		}
		row, err := ParseRow(s)
		if err != nil {
			return base, fmt.Errorf("%s: %w", name, err)
		}
		cfg.Pattern[v] = row
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// ParseRow reads sixteen step levels.
func ParseRow(s string) (pattern.Row, error) {
	var row pattern.Row
	n := 0
	for _, c := range s {
		switch {
		case c == ' ' || c == '|' || c == '\t':
			continue
		case c < '0' || c > '2':
			return row, fmt.Errorf("%w: step level %q", pattern.ErrOutOfRange, c)
		}
		if n == pattern.Steps {
			return row, fmt.Errorf("%w: more than %d steps", pattern.ErrOutOfRange, pattern.Steps)
		}
		row[n] = pattern.StepLevel(c - '0')
		n++
	}
	if n != pattern.Steps {
		return row, fmt.Errorf("%w: %d steps, want %d", pattern.ErrOutOfRange, n, pattern.Steps)
	}
	return row, nil
}

// FormatRow writes a row in groups of four.
func FormatRow(r pattern.Row) string {
	var b strings.Builder
	for i, l := range r {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(byte('0' + l))
	}
	return b.String()
}

// Decode reads a document from r and overlays it on base.
func Decode(r io.Reader, base pattern.BeatConfig) (pattern.BeatConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return base, err
	}
	var d Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && err != io.EOF {
		return base, fmt.Errorf("%w: %v", pattern.ErrInvalidParameter, err)
	}
	return d.Apply(base)
}

// Encode writes cfg as a complete document.
func Encode(w io.Writer, cfg pattern.BeatConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromConfig(cfg)); err != nil {
		return err
	}
	return enc.Close()
}

// Load reads a beat file on top of the default beat.
func Load(path string) (pattern.BeatConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return pattern.BeatConfig{}, err
	}
	defer f.Close()
	cfg, err := Decode(f, pattern.Default())
	if err != nil {
		return pattern.BeatConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg pattern.BeatConfig) error {
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
