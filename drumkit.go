package drumkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/drumkit-go/internal/audio"
	intgraph "github.com/cbegin/drumkit-go/internal/graph"
	intpat "github.com/cbegin/drumkit-go/internal/pattern"
	intsamples "github.com/cbegin/drumkit-go/internal/samples"
	intsched "github.com/cbegin/drumkit-go/internal/scheduler"
)

type (
	Voice      = intpat.Voice
	StepLevel  = intpat.StepLevel
	Row        = intpat.Row
	Pattern    = intpat.Pattern
	BeatConfig = intpat.BeatConfig

	SampleBank   = intsamples.Bank
	SampleBuffer = intsamples.Buffer

	// Event is a playhead update delivered by Watch.
	Event     = intsched.Event
	EventKind = intsched.EventKind
	Timing    = intsched.Timing

	Backend      = intaudio.Backend
	Output       = intaudio.Output
	SampleSource = intaudio.SampleSource
)

const (
	Kick  = intpat.Kick
	Snare = intpat.Snare
	HiHat = intpat.HiHat
	Tom1  = intpat.Tom1
	Tom2  = intpat.Tom2
	Tom3  = intpat.Tom3

	Silent = intpat.Silent
	Soft   = intpat.Soft
	Accent = intpat.Accent

	Steps     = intpat.Steps
	NumVoices = intpat.NumVoices

	EventStep  = intsched.EventStep
	EventClear = intsched.EventClear

	BackendEbiten = intaudio.BackendEbiten
	BackendOto    = intaudio.BackendOto
)

var (
	ErrNotInitialized   = errors.New("drumkit: audio output not initialized")
	ErrInvalidParameter = intpat.ErrInvalidParameter
	ErrOutOfRange       = intpat.ErrOutOfRange
	ErrInvalidTiming    = intsched.ErrInvalidTiming
)

// DefaultBeat returns the beat a Reset restores.
func DefaultBeat() BeatConfig {
	return intpat.Default()
}

func NewSampleBank() *SampleBank {
	return intsamples.NewBank()
}

func ParseVoice(name string) (Voice, bool) {
	return intpat.ParseVoice(name)
}

func DefaultTiming() Timing {
	return intsched.DefaultTiming()
}

// OutputOpener opens a device stream that pulls from src.
type OutputOpener func(sampleRate int, src SampleSource) (Output, error)

type Option func(*machineConfig)

type machineConfig struct {
	backend    Backend
	open       OutputOpener
	timing     Timing
	bank       *SampleBank
	limiter    bool
	toneCutoff float64
	sampleTap  func([]float32)
	logger     logrus.FieldLogger
	beat       *BeatConfig
	newTicker  intsched.TickerFactory
}

func defaultMachineConfig() machineConfig {
	return machineConfig{
		backend:   BackendEbiten,
		timing:    intsched.DefaultTiming(),
		logger:    logrus.StandardLogger(),
		newTicker: intsched.NewTicker,
	}
}

// WithBackend picks the audio library used by Init.
func WithBackend(b Backend) Option {
	return func(cfg *machineConfig) {
		cfg.backend = b
	}
}

// WithOutput replaces the device backend entirely.
func WithOutput(open OutputOpener) Option {
	return func(cfg *machineConfig) {
		cfg.open = open
	}
}

// WithTiming sets the scheduler tick period, lookahead window and start
// latency. NewMachine rejects lookahead <= tick with ErrInvalidTiming.
func WithTiming(tick, lookahead, latency time.Duration) Option {
	return func(cfg *machineConfig) {
		cfg.timing = Timing{Tick: tick, Lookahead: lookahead, Latency: latency}
	}
}

func WithSampleBank(b *SampleBank) Option {
	return func(cfg *machineConfig) {
		cfg.bank = b
	}
}

// WithLimiter inserts the master compressor after the tone filter.
func WithLimiter(enabled bool) Option {
	return func(cfg *machineConfig) {
		cfg.limiter = enabled
	}
}

// WithToneCutoff sets the master low-pass cutoff in Hz.
func WithToneCutoff(hz float64) Option {
	return func(cfg *machineConfig) {
		cfg.toneCutoff = hz
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *machineConfig) {
		cfg.sampleTap = tap
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *machineConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithBeat starts from cfg instead of the default beat.
func WithBeat(b BeatConfig) Option {
	return func(cfg *machineConfig) {
		cfg.beat = &b
	}
}

func withTicker(f intsched.TickerFactory) Option {
	return func(cfg *machineConfig) {
		cfg.newTicker = f
	}
}

// Machine is the transport: it owns the beat, the scheduler and the signal
// graph, and connects the graph to an audio device on Init.
type Machine struct {
	mu         sync.Mutex
	sampleRate int
	cfg        machineConfig
	log        logrus.FieldLogger
	store      *intpat.Store
	bank       *SampleBank
	graph      *intgraph.Graph
	loop       *intsched.Loop
	out        Output
	volume     float64
}

func NewMachine(sampleRate int, opts ...Option) (*Machine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultMachineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	store := intpat.NewStore()
	if cfg.beat != nil {
		s, err := intpat.NewStoreWith(*cfg.beat)
		if err != nil {
			return nil, err
		}
		store = s
	}
	bank := cfg.bank
	if bank == nil {
		bank = intsamples.NewBank()
	}
	g := intgraph.New(sampleRate, bank, intgraph.Options{
		ToneCutoff: cfg.toneCutoff,
		Limiter:    cfg.limiter,
		Tap:        cfg.sampleTap,
	})
	dispatch := intsched.DispatchFunc(func(n intsched.Note) {
		g.Schedule(n.Voice, n.Step, n.Gain, n.Pitch, n.When)
	})
	loop, err := intsched.New(store, bank, g, dispatch,
		intsched.WithTiming(cfg.timing),
		intsched.WithTicker(cfg.newTicker),
		intsched.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}
	return &Machine{
		sampleRate: sampleRate,
		cfg:        cfg,
		log:        cfg.logger,
		store:      store,
		bank:       bank,
		graph:      g,
		loop:       loop,
		volume:     1,
	}, nil
}

func (m *Machine) SampleRate() int {
	return m.sampleRate
}

// Samples returns the bank the machine plays from.
func (m *Machine) Samples() *SampleBank {
	return m.bank
}

// LoadSamples decodes <voice>.wav files from dir into the bank. Voices that
// fail to load stay silent; their errors are joined into the result.
func (m *Machine) LoadSamples(ctx context.Context, dir string) error {
	return intsamples.LoadDir(ctx, dir, m.bank, intsamples.WithLogger(m.log))
}

// UseSynthKit fills every voice without a sample with a synthesized one.
func (m *Machine) UseSynthKit() {
	intsamples.Synthesize(m.bank, m.sampleRate)
}

// Init opens the audio output. Calling it again is a no-op.
func (m *Machine) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.out != nil {
		return nil
	}
	open := m.cfg.open
	if open == nil {
		backend := m.cfg.backend
		open = func(sampleRate int, src SampleSource) (Output, error) {
			return intaudio.Open(backend, sampleRate, src)
		}
	}
	out, err := open(m.sampleRate, m.graph)
	if err != nil {
		return fmt.Errorf("open %s output: %w", m.cfg.backend, err)
	}
	out.Play()
	m.out = out
	m.log.WithFields(logrus.Fields{"backend": m.cfg.backend, "sampleRate": m.sampleRate}).Info("audio output ready")
	return nil
}

func (m *Machine) initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out != nil
}

// Start begins playback from step 0. Starting a running machine does nothing.
func (m *Machine) Start() error {
	if !m.initialized() {
		return ErrNotInitialized
	}
	if m.loop.Running() {
		return nil
	}
	m.loop.Start()
	m.log.WithField("tempo", m.store.Snapshot().Tempo).Info("transport started")
	return nil
}

// Stop halts the scheduler and rewinds to step 0. Hits already handed to the
// graph ring out.
func (m *Machine) Stop() {
	wasRunning := m.loop.Running()
	m.loop.Stop()
	if wasRunning {
		m.log.Info("transport stopped")
	}
}

// Reset stops the transport and restores the default beat.
func (m *Machine) Reset() {
	m.loop.Stop()
	m.store.Reset()
	m.log.Info("beat reset")
}

func (m *Machine) Running() bool {
	return m.loop.Running()
}

// Step returns the next step the scheduler will play.
func (m *Machine) Step() int {
	return m.loop.Step()
}

// PlayDrumNote plays v now at accent volume with the beat's effect mix as the
// reverb send. A voice without a sample is silently skipped.
func (m *Machine) PlayDrumNote(v Voice) error {
	if !v.Valid() {
		return fmt.Errorf("%w: voice %d", ErrInvalidParameter, int(v))
	}
	if !m.initialized() {
		return ErrNotInitialized
	}
	cfg := m.store.Snapshot()
	if !m.graph.Trigger(v, m.loop.Step(), cfg.Pitch[v], cfg.EffectMix) {
		m.log.WithField("voice", v).Debug("no sample loaded")
	}
	return nil
}

// Watch returns the playhead channel. Every call returns the same channel;
// events are dropped while it is full.
func (m *Machine) Watch() <-chan Event {
	return m.loop.Events()
}

// Beat returns a copy of the current beat.
func (m *Machine) Beat() BeatConfig {
	return m.store.Snapshot()
}

// SetBeat replaces the whole beat. It is all-or-nothing.
func (m *Machine) SetBeat(cfg BeatConfig) error {
	return m.store.Replace(cfg)
}

func (m *Machine) Level(v Voice, step int) (StepLevel, error) {
	return m.store.Level(v, step)
}

// SetLevel edits one cell; the next scheduler pass sees it.
func (m *Machine) SetLevel(v Voice, step int, level StepLevel) error {
	return m.store.SetLevel(v, step, level)
}

func (m *Machine) SetTempo(bpm float64) error {
	return m.store.Update(intpat.ConfigUpdate{Tempo: &bpm})
}

func (m *Machine) SetSwing(s float64) error {
	return m.store.Update(intpat.ConfigUpdate{Swing: &s})
}

func (m *Machine) SetEffectMix(mix float64) error {
	return m.store.Update(intpat.ConfigUpdate{EffectMix: &mix})
}

func (m *Machine) SetPitch(v Voice, pitch float64) error {
	return m.store.Update(intpat.ConfigUpdate{Pitch: map[Voice]float64{v: pitch}})
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (m *Machine) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	m.graph.SetMasterGain(intgraph.DefaultMasterGain * volume)
}

func (m *Machine) MasterVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetToneCutoff moves the master low-pass. It takes effect on the next sample.
func (m *Machine) SetToneCutoff(hz float64) {
	m.graph.SetToneCutoff(hz)
}

func (m *Machine) ToneCutoff() float64 {
	return m.graph.ToneCutoff()
}

// SetEQBand sets the gain for a master EQ band. 1.0 = unity.
// Bands: 0 = below 120 Hz, 1 = 120 Hz to 6 kHz, 2 = above 6 kHz.
// This takes effect immediately on the audio thread (lock-free).
func (m *Machine) SetEQBand(band int, gain float32) {
	m.graph.SetEQGain(band, gain)
}

// EQBand returns the current gain for a master EQ band.
func (m *Machine) EQBand(band int) float32 {
	return m.graph.EQGain(band)
}

// Now returns the audio device time in seconds.
func (m *Machine) Now() float64 {
	return m.graph.Now()
}

// Close stops the transport and releases the audio output.
func (m *Machine) Close() error {
	m.loop.Stop()
	m.mu.Lock()
	out := m.out
	m.out = nil
	m.mu.Unlock()
	if out == nil {
		return nil
	}
	return out.Close()
}
