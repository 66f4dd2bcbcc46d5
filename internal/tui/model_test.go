package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/drumkit-go/internal/pattern"
	"github.com/cbegin/drumkit-go/internal/scheduler"
)

type fakeMachine struct {
	store   *pattern.Store
	running bool
	starts  int
	resets  int
	hits    []pattern.Voice
	events  chan scheduler.Event
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{store: pattern.NewStore(), events: make(chan scheduler.Event, 4)}
}

func (f *fakeMachine) Start() error { f.running = true; f.starts++; return nil }
func (f *fakeMachine) Stop()        { f.running = false }
func (f *fakeMachine) Reset()       { f.running = false; f.resets++; f.store.Reset() }
func (f *fakeMachine) Running() bool {
	return f.running
}
func (f *fakeMachine) Beat() pattern.BeatConfig { return f.store.Snapshot() }
func (f *fakeMachine) SetLevel(v pattern.Voice, step int, l pattern.StepLevel) error {
	return f.store.SetLevel(v, step, l)
}
func (f *fakeMachine) SetTempo(bpm float64) error {
	return f.store.Update(pattern.ConfigUpdate{Tempo: &bpm})
}
func (f *fakeMachine) SetSwing(s float64) error {
	return f.store.Update(pattern.ConfigUpdate{Swing: &s})
}
func (f *fakeMachine) PlayDrumNote(v pattern.Voice) error {
	f.hits = append(f.hits, v)
	return nil
}
func (f *fakeMachine) Watch() <-chan scheduler.Event { return f.events }

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestCursorWraps(t *testing.T) {
	m := NewModel(newFakeMachine(), nil)
	m = press(t, m, "h", "k")
	v, step := m.Cursor()
	if v != pattern.Tom3 || step != 15 {
		t.Fatalf("cursor = %s/%d, want tom3/15", v, step)
	}
	m = press(t, m, "l", "j", "j")
	v, step = m.Cursor()
	if v != pattern.Snare || step != 0 {
		t.Fatalf("cursor = %s/%d, want snare/0", v, step)
	}
}

func TestEnterCyclesLevel(t *testing.T) {
	fm := newFakeMachine()
	m := NewModel(fm, nil)
	// kick step 2 starts silent in the default beat
	m = press(t, m, "l", "l")
	want := []pattern.StepLevel{pattern.Soft, pattern.Accent, pattern.Silent}
	for _, w := range want {
		m = press(t, m, "enter")
		if got, _ := fm.store.Level(pattern.Kick, 2); got != w {
			t.Fatalf("level = %v, want %v", got, w)
		}
	}
}

func TestSpaceTogglesTransport(t *testing.T) {
	fm := newFakeMachine()
	m := NewModel(fm, nil)
	m = press(t, m, " ")
	if !fm.running {
		t.Fatal("space should start")
	}
	m = press(t, m, " ")
	if fm.running {
		t.Fatal("second space should stop")
	}
	if fm.starts != 1 {
		t.Fatalf("starts = %d, want 1", fm.starts)
	}
}

func TestPadsAndTempo(t *testing.T) {
	fm := newFakeMachine()
	m := NewModel(fm, nil)
	m = press(t, m, "1", "3", "6", "+", "+", "]")
	if len(fm.hits) != 3 || fm.hits[0] != pattern.Kick || fm.hits[1] != pattern.HiHat || fm.hits[2] != pattern.Tom3 {
		t.Fatalf("hits = %v", fm.hits)
	}
	cfg := fm.store.Snapshot()
	if cfg.Tempo != 70 {
		t.Fatalf("tempo = %v, want 70", cfg.Tempo)
	}
	if cfg.Swing <= pattern.Default().Swing {
		t.Fatalf("swing = %v, want above default", cfg.Swing)
	}
}

func TestTempoErrorIsShown(t *testing.T) {
	fm := newFakeMachine()
	bpm := 5.0
	if err := fm.store.Update(pattern.ConfigUpdate{Tempo: &bpm}); err != nil {
		t.Fatal(err)
	}
	m := NewModel(fm, nil)
	m = press(t, m, "-")
	if !errors.Is(fm.SetTempo(0), pattern.ErrInvalidParameter) {
		t.Fatal("fake should reject zero tempo")
	}
	if !strings.Contains(m.View(), "must be > 0") {
		t.Fatalf("status line missing tempo error:\n%s", m.View())
	}
}

func TestPlayheadMessages(t *testing.T) {
	m := NewModel(newFakeMachine(), nil)
	next, cmd := m.Update(PlayheadMsg{Kind: scheduler.EventStep, Step: 7})
	m = next.(Model)
	if m.Playhead() != 7 {
		t.Fatalf("playhead = %d, want 7", m.Playhead())
	}
	if cmd == nil {
		t.Fatal("expected to keep listening")
	}
	next, _ = m.Update(PlayheadMsg{Kind: scheduler.EventClear})
	if got := next.(Model).Playhead(); got != -1 {
		t.Fatalf("playhead = %d, want -1", got)
	}
}

func TestResetKey(t *testing.T) {
	fm := newFakeMachine()
	m := NewModel(fm, nil)
	m = press(t, m, "+", "r")
	if fm.resets != 1 {
		t.Fatalf("resets = %d, want 1", fm.resets)
	}
	if got := fm.store.Snapshot().Tempo; got != 60 {
		t.Fatalf("tempo after reset = %v, want 60", got)
	}
}

func TestViewListsVoices(t *testing.T) {
	m := NewModel(newFakeMachine(), NewMeter())
	view := m.View()
	for _, v := range pattern.Voices() {
		if !strings.Contains(view, v.Key()) {
			t.Fatalf("view missing %s:\n%s", v.Key(), view)
		}
	}
	if !strings.Contains(view, "60.0bpm") {
		t.Fatalf("view missing tempo:\n%s", view)
	}
}

func TestQuitStops(t *testing.T) {
	fm := newFakeMachine()
	fm.running = true
	m := NewModel(fm, nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if fm.running {
		t.Fatal("quit should stop the transport")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if next.(Model).View() != "" {
		t.Fatal("view should be empty after quit")
	}
}

func TestMeterKeepsPeakUntilTaken(t *testing.T) {
	mt := NewMeter()
	mt.Tap([]float32{0.1, -0.6, 0.2})
	mt.Tap([]float32{0.3, 0.3})
	if got := mt.Take(); got != 0.6 {
		t.Fatalf("peak = %f, want 0.6", got)
	}
	if got := mt.Take(); got != 0 {
		t.Fatalf("peak after take = %f, want 0", got)
	}
}
