package pattern

import (
	"fmt"
	"math"
)

// Row is one voice's step sequence.
type Row [Steps]StepLevel

// Pattern holds one row per voice, indexed by Voice.
type Pattern [NumVoices]Row

// Level returns the level at step, wrapping the index modulo Steps.
func (p *Pattern) Level(v Voice, step int) StepLevel {
	if !v.Valid() {
		return Silent
	}
	return p[v][wrap(step)]
}

// BeatConfig is the full mutable performance state.
type BeatConfig struct {
	Pattern   Pattern
	Tempo     float64 // beats per minute
	Swing     float64 // 0 = straight, 1 = maximum swing
	EffectMix float64 // reverb send used by one-shot triggers
	Pitch     [NumVoices]float64
}

// Default returns the reset beat.
func Default() BeatConfig {
	cfg := BeatConfig{
		Tempo:     60,
		Swing:     0.5419847328244275,
		EffectMix: 0.25,
		Pattern: Pattern{
			Kick:  {2, 2, 0, 1, 2, 2, 0, 1, 2, 2, 0, 1, 2, 2, 0, 1},
			Snare: {0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 2, 0},
			HiHat: {2, 1, 1, 1, 2, 1, 1, 1, 2, 1, 1, 1, 2, 1, 1, 1},
			Tom1:  {},
			Tom2:  {0, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0, 0, 0, 1, 0},
			Tom3:  {1, 0, 0, 1, 0, 1, 0, 1, 1, 0, 0, 1, 1, 1, 1, 0},
		},
	}
	for i := range cfg.Pitch {
		cfg.Pitch[i] = 0.5
	}
	return cfg
}

// Validate checks every scalar field and every step level.
func (c BeatConfig) Validate() error {
	if err := validateTempo(c.Tempo); err != nil {
		return err
	}
	if err := validateUnit("swing", c.Swing); err != nil {
		return err
	}
	if err := validateUnit("effect mix", c.EffectMix); err != nil {
		return err
	}
	for v, p := range c.Pitch {
		if err := validatePitch(Voice(v), p); err != nil {
			return err
		}
	}
	for v := range c.Pattern {
		for s, l := range c.Pattern[v] {
			if !l.Valid() {
				return fmt.Errorf("%w: %s step %d level %d", ErrOutOfRange, Voice(v), s, l)
			}
		}
	}
	return nil
}

func validateTempo(t float64) error {
	if !finite(t) || t <= 0 {
		return fmt.Errorf("%w: tempo %v must be > 0", ErrInvalidParameter, t)
	}
	return nil
}

func validateUnit(name string, x float64) error {
	if !finite(x) || x < 0 || x > 1 {
		return fmt.Errorf("%w: %s %v outside [0,1]", ErrInvalidParameter, name, x)
	}
	return nil
}

func validatePitch(v Voice, p float64) error {
	if !finite(p) || p <= 0 {
		return fmt.Errorf("%w: %s pitch %v must be > 0", ErrInvalidParameter, v, p)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func wrap(step int) int {
	step %= Steps
	if step < 0 {
		step += Steps
	}
	return step
}
