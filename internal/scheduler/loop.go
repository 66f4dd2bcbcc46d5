// Package scheduler drives the step sequencer. A coarse ticker wakes the loop
// every tick period; each pass schedules every step whose start time falls
// inside the lookahead window, so notes carry sample-accurate device times
// even though the ticker itself jitters.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/drumkit-go/internal/pattern"
	"github.com/cbegin/drumkit-go/internal/samples"
	"github.com/cbegin/drumkit-go/internal/swing"
)

var ErrInvalidTiming = errors.New("scheduler: invalid timing")

// maxStepsPerPass bounds the work of one pass. A loop that falls further
// behind than this catches up over the following passes.
const maxStepsPerPass = pattern.Steps

// Clock reports the audio device time in seconds.
type Clock interface {
	Now() float64
}

// Source supplies the beat; one snapshot is taken per pass.
type Source interface {
	Snapshot() pattern.BeatConfig
}

// Note is one hit handed to the renderer.
type Note struct {
	Voice pattern.Voice
	Step  int
	Level pattern.StepLevel
	Gain  float64
	Pitch float64
	When  float64 // device time in seconds
}

type Dispatcher interface {
	Dispatch(Note)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(Note)

func (f DispatchFunc) Dispatch(n Note) { f(n) }

type EventKind int

const (
	EventStep EventKind = iota
	EventClear
)

// Event is a playhead update for displays.
type Event struct {
	Kind EventKind
	Step int
}

// Timing holds the loop's periods.
type Timing struct {
	Tick      time.Duration
	Lookahead time.Duration
	Latency   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Tick:      100 * time.Millisecond,
		Lookahead: 120 * time.Millisecond,
		Latency:   5 * time.Millisecond,
	}
}

// Validate requires lookahead > tick > 0 and a non-negative latency.
func (t Timing) Validate() error {
	if t.Tick <= 0 {
		return fmt.Errorf("%w: tick %v must be > 0", ErrInvalidTiming, t.Tick)
	}
	if t.Lookahead <= t.Tick {
		return fmt.Errorf("%w: lookahead %v must exceed tick %v", ErrInvalidTiming, t.Lookahead, t.Tick)
	}
	if t.Latency < 0 {
		return fmt.Errorf("%w: latency %v must be >= 0", ErrInvalidTiming, t.Latency)
	}
	return nil
}

// Ticker is the subset of time.Ticker the loop uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

type manualTicker struct{}

func (manualTicker) C() <-chan time.Time { return nil }
func (manualTicker) Stop()               {}

// Manual returns a ticker that never fires; passes then only happen through
// Loop.Tick. Offline rendering uses this.
func Manual(time.Duration) Ticker {
	return manualTicker{}
}

// Option configures a Loop.
type Option func(*loopConfig)

type loopConfig struct {
	timing    Timing
	newTicker TickerFactory
	logger    logrus.FieldLogger
	eventBuf  int
}

func WithTiming(t Timing) Option {
	return func(c *loopConfig) {
		c.timing = t
	}
}

func WithTicker(f TickerFactory) Option {
	return func(c *loopConfig) {
		if f != nil {
			c.newTicker = f
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *loopConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEventBuffer sets the capacity of the playhead channel.
func WithEventBuffer(n int) Option {
	return func(c *loopConfig) {
		if n > 0 {
			c.eventBuf = n
		}
	}
}

// Loop is the lookahead scheduler. Start and Stop are safe to call from any
// goroutine; a Start is an exclusive lease, so at most one ticker goroutine
// dispatches at a time.
type Loop struct {
	src      Source
	samples  samples.Provider
	clock    Clock
	dispatch Dispatcher
	cfg      loopConfig
	log      logrus.FieldLogger
	events   chan Event

	mu            sync.Mutex
	running       bool
	stop          chan struct{}
	done          chan struct{}
	sequenceStart float64
	noteTime      float64
	lastDraw      float64
	step          int
}

func New(src Source, bank samples.Provider, clock Clock, d Dispatcher, opts ...Option) (*Loop, error) {
	cfg := loopConfig{
		timing:    DefaultTiming(),
		newTicker: NewTicker,
		logger:    logrus.StandardLogger(),
		eventBuf:  64,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.timing.Validate(); err != nil {
		return nil, err
	}
	return &Loop{
		src:      src,
		samples:  bank,
		clock:    clock,
		dispatch: d,
		cfg:      cfg,
		log:      cfg.logger,
		events:   make(chan Event, cfg.eventBuf),
		lastDraw: -1,
	}, nil
}

// Events returns the playhead channel. Events are dropped when it is full.
func (l *Loop) Events() <-chan Event {
	return l.events
}

func (l *Loop) Timing() Timing {
	return l.cfg.timing
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Step returns the index of the next step to be scheduled.
func (l *Loop) Step() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.step
}

// Start arms the loop from step 0. It is a no-op while running.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	start := l.clock.Now() + l.cfg.timing.Latency.Seconds()
	l.sequenceStart = start
	l.noteTime = 0
	l.step = 0
	l.lastDraw = -1
	stop := make(chan struct{})
	done := make(chan struct{})
	l.stop, l.done = stop, done
	l.passLocked()
	t := l.cfg.newTicker(l.cfg.timing.Tick)
	l.mu.Unlock()

	l.log.WithField("start", start).Debug("sequencer started")
	go l.run(t, stop, done)
}

// Stop cancels the ticker and rewinds to step 0. Once Stop returns no further
// notes are dispatched; notes already dispatched still play.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.step = 0
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stop)
	done := l.done
	l.emit(Event{Kind: EventClear})
	l.mu.Unlock()

	<-done
	l.log.Debug("sequencer stopped")
}

// Tick runs one scheduling pass if the loop is running.
func (l *Loop) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.passLocked()
	}
}

func (l *Loop) run(t Ticker, stop chan struct{}, done chan struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			l.mu.Lock()
			if !l.running || l.stop != stop {
				l.mu.Unlock()
				return
			}
			l.passLocked()
			l.mu.Unlock()
		}
	}
}

func (l *Loop) passLocked() {
	cfg := l.src.Snapshot()
	current := l.clock.Now() - l.sequenceStart
	horizon := current + l.cfg.timing.Lookahead.Seconds()
	for n := 0; n < maxStepsPerPass && l.noteTime < horizon; n++ {
		when := l.noteTime + l.sequenceStart
		for _, v := range pattern.Voices() {
			lvl := cfg.Pattern.Level(v, l.step)
			if lvl == pattern.Silent {
				continue
			}
			if _, ok := l.samples.Sample(v); !ok {
				continue
			}
			l.dispatch.Dispatch(Note{
				Voice: v,
				Step:  l.step,
				Level: lvl,
				Gain:  lvl.Volume(),
				Pitch: cfg.Pitch[v],
				When:  when,
			})
		}
		if l.noteTime != l.lastDraw {
			l.lastDraw = l.noteTime
			l.emit(Event{Kind: EventStep, Step: (l.step + pattern.Steps - 1) % pattern.Steps})
		}
		l.noteTime += swing.Delta(l.step, cfg.Tempo, cfg.Swing)
		l.step = (l.step + 1) % pattern.Steps
	}
}

func (l *Loop) emit(e Event) {
	select {
	case l.events <- e:
	default:
	}
}
