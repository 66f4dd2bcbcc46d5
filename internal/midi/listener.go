// Package midi turns note-on messages from a MIDI input port into drum hits.
package midi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the rtmidi driver

	"github.com/cbegin/drumkit-go/internal/pattern"
)

var ErrNotOpen = errors.New("midi: listener not open")

// Trigger plays a voice immediately.
type Trigger interface {
	PlayDrumNote(v pattern.Voice) error
}

type Option func(*Listener)

func WithLogger(l logrus.FieldLogger) Option {
	return func(li *Listener) {
		if l != nil {
			li.log = l
		}
	}
}

func WithNoteMap(m NoteMap) Option {
	return func(li *Listener) {
		if m != nil {
			li.notes = m
		}
	}
}

// Listener forwards mapped note-ons to a Trigger.
type Listener struct {
	trig  Trigger
	notes NoteMap
	log   logrus.FieldLogger

	mu   sync.Mutex
	port string
	stop func()
}

func NewListener(trig Trigger, opts ...Option) *Listener {
	l := &Listener{
		trig:  trig,
		notes: DefaultNoteMap(),
		log:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// InPorts lists the names of the available input ports.
func InPorts() []string {
	var names []string
	for _, in := range gomidi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// Open starts listening on the first input port whose name contains port.
func (l *Listener) Open(port string) error {
	in, err := gomidi.FindInPort(port)
	if err != nil {
		return fmt.Errorf("find midi port %q: %w", port, err)
	}
	stop, err := gomidi.ListenTo(in, l.HandleMessage)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", in.String(), err)
	}
	l.mu.Lock()
	prev := l.stop
	l.stop = stop
	l.port = in.String()
	l.mu.Unlock()
	if prev != nil {
		prev()
	}
	l.log.WithField("port", in.String()).Info("midi input connected")
	return nil
}

// HandleMessage processes one message; it is the ListenTo callback.
func (l *Listener) HandleMessage(msg gomidi.Message, timestampms int32) {
	var ch, key, vel uint8
	if !msg.GetNoteOn(&ch, &key, &vel) || vel == 0 {
		return
	}
	v, ok := l.notes[key]
	if !ok {
		return
	}
	if err := l.trig.PlayDrumNote(v); err != nil {
		l.log.WithFields(logrus.Fields{"voice": v, "note": NoteName(key)}).WithError(err).Debug("midi trigger dropped")
	}
}

func (l *Listener) Port() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

func (l *Listener) Close() error {
	l.mu.Lock()
	stop, port := l.stop, l.port
	l.stop, l.port = nil, ""
	l.mu.Unlock()
	if stop == nil {
		return ErrNotOpen
	}
	stop()
	l.log.WithField("port", port).Info("midi input disconnected")
	return nil
}
