package main

import (
	"context"
	"flag"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/drumkit-go"
	"github.com/cbegin/drumkit-go/internal/audio"
	"github.com/cbegin/drumkit-go/internal/beatfile"
	"github.com/cbegin/drumkit-go/internal/midi"
	"github.com/cbegin/drumkit-go/internal/tui"
)

type options struct {
	sampleRate  int
	backendName string
	beatPath    string
	sampleDir   string
	midiPort    string
	savePath    string
	logPath     string
	logLevel    string
}

func main() {
	var o options
	flag.IntVar(&o.sampleRate, "sample-rate", 48000, "output sample rate")
	flag.StringVar(&o.backendName, "backend", "ebiten", "audio backend: ebiten|oto")
	flag.StringVar(&o.beatPath, "beat", "", "path to a YAML beat file")
	flag.StringVar(&o.sampleDir, "samples", "", "directory with <voice>.wav files")
	flag.StringVar(&o.midiPort, "midi", "", "MIDI input port name")
	flag.StringVar(&o.savePath, "save", "", "write the beat here on quit")
	flag.StringVar(&o.logPath, "log", "", "log file (the terminal is taken by the grid)")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Parse()

	if err := run(o); err != nil {
		logrus.Fatal(err)
	}
}

func run(o options) error {
	log := logrus.New()
	log.SetOutput(io.Discard)
	if o.logPath != "" {
		f, err := os.OpenFile(o.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	}
	lvl, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	backend, err := audio.ParseBackend(o.backendName)
	if err != nil {
		return err
	}
	beat := drumkit.DefaultBeat()
	if o.beatPath != "" {
		if beat, err = beatfile.Load(o.beatPath); err != nil {
			return err
		}
	}

	meter := tui.NewMeter()
	m, err := drumkit.NewMachine(o.sampleRate,
		drumkit.WithBeat(beat),
		drumkit.WithBackend(backend),
		drumkit.WithLogger(log),
		drumkit.WithSampleTap(meter.Tap),
	)
	if err != nil {
		return err
	}
	defer m.Close()
	if o.sampleDir != "" {
		if err := m.LoadSamples(context.Background(), o.sampleDir); err != nil {
			log.WithError(err).Warn("some samples failed to load")
		}
	}
	m.UseSynthKit()
	if err := m.Init(); err != nil {
		return err
	}

	if o.midiPort != "" {
		l := midi.NewListener(m, midi.WithLogger(log))
		if err := l.Open(o.midiPort); err != nil {
			log.WithError(err).Error("midi input unavailable")
		} else {
			defer l.Close()
		}
	}

	p := tea.NewProgram(tui.NewModel(m, meter), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	if o.savePath != "" {
		return beatfile.Save(o.savePath, m.Beat())
	}
	return nil
}
