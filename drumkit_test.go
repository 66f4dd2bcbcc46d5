package drumkit

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	intsched "github.com/cbegin/drumkit-go/internal/scheduler"
)

type fakeOutput struct {
	src     SampleSource
	playing bool
	closed  bool
}

func (o *fakeOutput) Play()        { o.playing = true }
func (o *fakeOutput) Pause()       { o.playing = false }
func (o *fakeOutput) Close() error { o.closed = true; return nil }

// pull renders frames from the output's source the way a device would.
func (o *fakeOutput) pull(frames int) []float32 {
	buf := make([]float32, frames*2)
	o.src.Process(buf)
	return buf
}

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *fakeOutput) {
	t.Helper()
	out := &fakeOutput{}
	logger, _ := test.NewNullLogger()
	base := []Option{
		WithLogger(logger),
		withTicker(intsched.Manual),
		WithOutput(func(sampleRate int, src SampleSource) (Output, error) {
			out.src = src
			return out, nil
		}),
	}
	m, err := NewMachine(22050, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, out
}

func peak(buf []float32) float32 {
	var p float32
	for _, s := range buf {
		p = max(p, s, -s)
	}
	return p
}

func TestMachineMasterVolumeRuntimeAPI(t *testing.T) {
	m, _ := newTestMachine(t)
	if got := m.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	m.SetMasterVolume(0.35)
	if got := m.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	m.SetMasterVolume(-2)
	if got := m.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestNewMachineRejectsBadInput(t *testing.T) {
	if _, err := NewMachine(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	_, err := NewMachine(44100, WithTiming(100*time.Millisecond, 100*time.Millisecond, 0))
	if !errors.Is(err, ErrInvalidTiming) {
		t.Fatalf("err = %v, want ErrInvalidTiming", err)
	}
	bad := DefaultBeat()
	bad.Tempo = -1
	if _, err := NewMachine(44100, WithBeat(bad)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestStartBeforeInit(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start err = %v, want ErrNotInitialized", err)
	}
	if err := m.PlayDrumNote(Kick); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("PlayDrumNote err = %v, want ErrNotInitialized", err)
	}
	if m.Running() {
		t.Fatal("machine running without output")
	}
}

func TestInitOpensOutputOnce(t *testing.T) {
	opened := 0
	out := &fakeOutput{}
	m, err := NewMachine(22050, WithOutput(func(sr int, src SampleSource) (Output, error) {
		opened++
		out.src = src
		return out, nil
	}))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Init(); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	if opened != 1 || !out.playing {
		t.Fatalf("opened=%d playing=%v, want 1/true", opened, out.playing)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !out.closed {
		t.Fatal("output not closed")
	}
}

func TestInitWrapsOpenError(t *testing.T) {
	boom := errors.New("no device")
	m, err := NewMachine(22050, WithOutput(func(int, SampleSource) (Output, error) { return nil, boom }))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	if err := m.Init(); !errors.Is(err, boom) {
		t.Fatalf("Init err = %v, want wrapped %v", err, boom)
	}
}

func TestStartStopReset(t *testing.T) {
	m, _ := newTestMachine(t)
	m.UseSynthKit()
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !m.Running() || m.Step() != 1 {
		t.Fatalf("running=%v step=%d, want true/1", m.Running(), m.Step())
	}
	if err := m.SetTempo(120); err != nil {
		t.Fatalf("SetTempo: %v", err)
	}
	m.Reset()
	if m.Running() {
		t.Fatal("reset should stop the transport")
	}
	if m.Step() != 0 {
		t.Fatalf("step after reset = %d, want 0", m.Step())
	}
	if m.Beat() != DefaultBeat() {
		t.Fatal("reset should restore the default beat")
	}
}

func TestSettersValidate(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.SetSwing(2); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("SetSwing err = %v", err)
	}
	if err := m.SetPitch(Kick, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("SetPitch err = %v", err)
	}
	if err := m.SetLevel(Kick, Steps, Soft); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("SetLevel err = %v", err)
	}
	if err := m.SetEffectMix(0.5); err != nil {
		t.Fatalf("SetEffectMix: %v", err)
	}
	if err := m.SetLevel(Tom1, 3, Accent); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if got, _ := m.Level(Tom1, 3); got != Accent {
		t.Fatalf("level = %v, want accent", got)
	}
	cfg := m.Beat()
	if cfg.EffectMix != 0.5 || cfg.Swing != DefaultBeat().Swing {
		t.Fatalf("beat = %+v", cfg)
	}
	if err := m.PlayDrumNote(Voice(9)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("PlayDrumNote err = %v", err)
	}
}

func TestPlayDrumNoteWithoutSample(t *testing.T) {
	m, out := newTestMachine(t)
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.PlayDrumNote(Snare); err != nil {
		t.Fatalf("PlayDrumNote: %v", err)
	}
	if got := m.graph.Built(); got != 0 {
		t.Fatalf("built = %d, want 0", got)
	}
	if p := peak(out.pull(512)); p != 0 {
		t.Fatalf("peak = %f, want silence", p)
	}
}

func TestPlayDrumNoteIsAudible(t *testing.T) {
	m, out := newTestMachine(t)
	m.UseSynthKit()
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.PlayDrumNote(Kick); err != nil {
		t.Fatalf("PlayDrumNote: %v", err)
	}
	if p := peak(out.pull(2048)); p == 0 {
		t.Fatal("pad hit produced no audio")
	}
}

func TestSequencedNotesReachOutput(t *testing.T) {
	m, out := newTestMachine(t)
	m.UseSynthKit()
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ch := m.Watch()
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e := <-ch
	if e.Kind != EventStep || e.Step != 15 {
		t.Fatalf("first event = %+v, want step 15", e)
	}
	// notes are 5 ms ahead of the device clock, inside the first block
	if p := peak(out.pull(2205)); p == 0 {
		t.Fatal("step 0 produced no audio")
	}
	if got := m.graph.Built(); got != 3 {
		t.Fatalf("built = %d, want 3", got)
	}
	m.Stop()
	for {
		select {
		case e = <-ch:
			if e.Kind == EventClear {
				return
			}
		default:
			t.Fatal("no clear event after stop")
		}
	}
}
