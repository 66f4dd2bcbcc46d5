package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

var ErrNoteName = errors.New("midi: invalid note name")

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParseNote converts a name such as "F2", "C#3" or "Bb-1" to a MIDI note
// number, with C4 = 60.
func ParseNote(name string) (uint8, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrNoteName)
	}
	semi, ok := semitones[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoteName, name)
	}
	s = s[1:]
	for len(s) > 0 && (s[0] == '#' || s[0] == 'b') {
		if s[0] == '#' {
			semi++
		} else {
			semi--
		}
		s = s[1:]
	}
	octave, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoteName, name)
	}
	n := (octave+1)*12 + semi
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %q out of range", ErrNoteName, name)
	}
	return uint8(n), nil
}

// NoteName is the inverse of ParseNote, using sharps.
func NoteName(n uint8) string {
	return fmt.Sprintf("%s%d", sharpNames[n%12], int(n)/12-1)
}

// NoteMap routes incoming note numbers to voices.
type NoteMap map[uint8]pattern.Voice

var defaultNotes = map[string]pattern.Voice{
	"F2": pattern.HiHat,
	"G2": pattern.Snare,
	"A2": pattern.Kick,
	"B2": pattern.Tom1,
	"C3": pattern.Tom2,
	"D3": pattern.Tom3,
}

// DefaultNoteMap maps the white keys from F2 to D3 onto the kit.
func DefaultNoteMap() NoteMap {
	m := make(NoteMap, len(defaultNotes))
	for name, v := range defaultNotes {
		n, err := ParseNote(name)
		if err != nil {
			continue
		}
		m[n] = v
	}
	return m
}

// ParseNoteMap builds a map from "name=voice" pairs, e.g. "F2=hihat".
func ParseNoteMap(pairs []string) (NoteMap, error) {
	m := NoteMap{}
	for _, p := range pairs {
		name, voice, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not name=voice", ErrNoteName, p)
		}
		n, err := ParseNote(name)
		if err != nil {
			return nil, err
		}
		v, ok := pattern.ParseVoice(voice)
		if !ok {
			return nil, fmt.Errorf("%w: unknown voice %q", pattern.ErrInvalidParameter, voice)
		}
		m[n] = v
	}
	return m, nil
}
