package pattern

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrOutOfRange       = errors.New("pattern: value out of range")
	ErrInvalidParameter = errors.New("pattern: invalid parameter")
)

// ConfigUpdate is a partial BeatConfig change. Nil fields are left untouched.
type ConfigUpdate struct {
	Tempo     *float64
	Swing     *float64
	EffectMix *float64
	Pitch     map[Voice]float64
}

// Store owns the current beat. It is shared by the control surface and the
// scheduler; every read and write goes through one lock.
type Store struct {
	mu  sync.RWMutex
	cfg BeatConfig
}

func NewStore() *Store {
	return &Store{cfg: Default()}
}

// NewStoreWith starts from cfg instead of the default beat.
func NewStoreWith(cfg BeatConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) Level(v Voice, step int) (StepLevel, error) {
	if !v.Valid() {
		return Silent, fmt.Errorf("%w: voice %d", ErrOutOfRange, int(v))
	}
	if step < 0 || step >= Steps {
		return Silent, fmt.Errorf("%w: step %d", ErrOutOfRange, step)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Pattern[v][step], nil
}

func (s *Store) SetLevel(v Voice, step int, level StepLevel) error {
	if !v.Valid() {
		return fmt.Errorf("%w: voice %d", ErrOutOfRange, int(v))
	}
	if step < 0 || step >= Steps {
		return fmt.Errorf("%w: step %d", ErrOutOfRange, step)
	}
	if !level.Valid() {
		return fmt.Errorf("%w: level %d", ErrOutOfRange, level)
	}
	s.mu.Lock()
	s.cfg.Pattern[v][step] = level
	s.mu.Unlock()
	return nil
}

// SetPattern replaces the whole grid.
func (s *Store) SetPattern(p Pattern) error {
	for v := range p {
		for step, l := range p[v] {
			if !l.Valid() {
				return fmt.Errorf("%w: %s step %d level %d", ErrOutOfRange, Voice(v), step, l)
			}
		}
	}
	s.mu.Lock()
	s.cfg.Pattern = p
	s.mu.Unlock()
	return nil
}

// Config returns a copy of the current beat.
func (s *Store) Config() BeatConfig {
	return s.Snapshot()
}

// Snapshot copies the whole beat under the read lock. The scheduler takes one
// snapshot per pass so a pass never observes a half-applied edit.
func (s *Store) Snapshot() BeatConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies a partial change. It is all-or-nothing.
func (s *Store) Update(u ConfigUpdate) error {
	if u.Tempo != nil {
		if err := validateTempo(*u.Tempo); err != nil {
			return err
		}
	}
	if u.Swing != nil {
		if err := validateUnit("swing", *u.Swing); err != nil {
			return err
		}
	}
	if u.EffectMix != nil {
		if err := validateUnit("effect mix", *u.EffectMix); err != nil {
			return err
		}
	}
	for v, p := range u.Pitch {
		if !v.Valid() {
			return fmt.Errorf("%w: voice %d", ErrInvalidParameter, int(v))
		}
		if err := validatePitch(v, p); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Tempo != nil {
		s.cfg.Tempo = *u.Tempo
	}
	if u.Swing != nil {
		s.cfg.Swing = *u.Swing
	}
	if u.EffectMix != nil {
		s.cfg.EffectMix = *u.EffectMix
	}
	for v, p := range u.Pitch {
		s.cfg.Pitch[v] = p
	}
	return nil
}

// Replace swaps in a complete, validated beat.
func (s *Store) Replace(cfg BeatConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Reset restores the default beat.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cfg = Default()
	s.mu.Unlock()
}
