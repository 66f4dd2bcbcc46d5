package midi

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

type hits struct {
	voices []pattern.Voice
	err    error
}

func (h *hits) PlayDrumNote(v pattern.Voice) error {
	h.voices = append(h.voices, v)
	return h.err
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		name string
		want uint8
	}{
		{"C4", 60},
		{"F2", 41},
		{"G2", 43},
		{"A2", 45},
		{"B2", 47},
		{"C3", 48},
		{"D3", 50},
		{"c#3", 49},
		{"Bb1", 34},
		{"C-1", 0},
		{"G9", 127},
	}
	for _, tt := range tests {
		got, err := ParseNote(tt.name)
		if err != nil {
			t.Fatalf("ParseNote(%q): %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("ParseNote(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestParseNoteRejects(t *testing.T) {
	for _, name := range []string{"", "H2", "C", "G#9", "Cb-1", "F2x"} {
		if _, err := ParseNote(name); !errors.Is(err, ErrNoteName) {
			t.Fatalf("ParseNote(%q) err = %v, want ErrNoteName", name, err)
		}
	}
}

func TestNoteNameRoundTrip(t *testing.T) {
	for n := 0; n < 128; n++ {
		got, err := ParseNote(NoteName(uint8(n)))
		if err != nil || got != uint8(n) {
			t.Fatalf("round trip %d via %q = %d, %v", n, NoteName(uint8(n)), got, err)
		}
	}
}

func TestDefaultNoteMap(t *testing.T) {
	m := DefaultNoteMap()
	want := map[uint8]pattern.Voice{
		41: pattern.HiHat, 43: pattern.Snare, 45: pattern.Kick,
		47: pattern.Tom1, 48: pattern.Tom2, 50: pattern.Tom3,
	}
	if len(m) != len(want) {
		t.Fatalf("map size = %d, want %d", len(m), len(want))
	}
	for n, v := range want {
		if m[n] != v {
			t.Fatalf("note %d -> %s, want %s", n, m[n], v)
		}
	}
}

func TestParseNoteMap(t *testing.T) {
	m, err := ParseNoteMap([]string{"C1=kick", "D1=snare"})
	if err != nil {
		t.Fatalf("ParseNoteMap: %v", err)
	}
	if m[24] != pattern.Kick || m[26] != pattern.Snare {
		t.Fatalf("map = %v", m)
	}
	if _, err := ParseNoteMap([]string{"C1=cowbell"}); !errors.Is(err, pattern.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
	if _, err := ParseNoteMap([]string{"C1"}); !errors.Is(err, ErrNoteName) {
		t.Fatalf("err = %v, want ErrNoteName", err)
	}
}

func TestHandleMessageTriggersMappedNotes(t *testing.T) {
	h := &hits{}
	logger, _ := test.NewNullLogger()
	l := NewListener(h, WithLogger(logger))

	l.HandleMessage(gomidi.NoteOn(0, 41, 100), 0)
	l.HandleMessage(gomidi.NoteOn(9, 45, 1), 0)
	l.HandleMessage(gomidi.NoteOn(0, 45, 0), 0)
	l.HandleMessage(gomidi.NoteOff(0, 41), 0)
	l.HandleMessage(gomidi.NoteOn(0, 60, 100), 0)
	l.HandleMessage(gomidi.ControlChange(0, 7, 100), 0)

	want := []pattern.Voice{pattern.HiHat, pattern.Kick}
	if len(h.voices) != len(want) {
		t.Fatalf("triggered %v, want %v", h.voices, want)
	}
	for i := range want {
		if h.voices[i] != want[i] {
			t.Fatalf("triggered %v, want %v", h.voices, want)
		}
	}
}

func TestHandleMessageLogsTriggerErrors(t *testing.T) {
	h := &hits{err: errors.New("not ready")}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l := NewListener(h, WithLogger(logger))
	l.HandleMessage(gomidi.NoteOn(0, 43, 90), 0)
	if len(h.voices) != 1 || h.voices[0] != pattern.Snare {
		t.Fatalf("triggered %v, want [snare]", h.voices)
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(hook.Entries))
	}
}

func TestCloseWithoutOpen(t *testing.T) {
	l := NewListener(&hits{})
	if err := l.Close(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("err = %v, want ErrNotOpen", err)
	}
}
