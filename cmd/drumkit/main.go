package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/drumkit-go"
	"github.com/cbegin/drumkit-go/internal/audio"
	"github.com/cbegin/drumkit-go/internal/beatfile"
	"github.com/cbegin/drumkit-go/internal/midi"
	"github.com/cbegin/drumkit-go/internal/samples"
)

type options struct {
	sampleRate  int
	backendName string
	beatPath    string
	sampleDir   string
	midiPort    string
	midiMap     string
	listMIDI    bool
	renderPath  string
	seconds     float64
	tempo       float64
	swing       float64
	volume      float64
	limiter     bool
	logLevel    string
}

func main() {
	var o options
	flag.IntVar(&o.sampleRate, "sample-rate", 48000, "output sample rate")
	flag.StringVar(&o.backendName, "backend", "ebiten", "audio backend: ebiten|oto")
	flag.StringVar(&o.beatPath, "beat", "", "path to a YAML beat file")
	flag.StringVar(&o.sampleDir, "samples", "", "directory with kick.wav, snare.wav, ... (missing voices are synthesized)")
	flag.StringVar(&o.midiPort, "midi", "", "MIDI input port name to play pads from")
	flag.StringVar(&o.midiMap, "midi-map", "", "comma separated NOTE=voice pairs, e.g. C2=kick,D2=snare (default F2..D3)")
	flag.BoolVar(&o.listMIDI, "list-midi", false, "list MIDI input ports and exit")
	flag.StringVar(&o.renderPath, "render", "", "render to this WAV file instead of playing")
	flag.Float64Var(&o.seconds, "seconds", 8, "length of -render output")
	flag.Float64Var(&o.tempo, "tempo", 0, "override tempo in bpm (0 keeps the beat's)")
	flag.Float64Var(&o.swing, "swing", -1, "override swing 0..1 (-1 keeps the beat's)")
	flag.Float64Var(&o.volume, "volume", 1.0, "master volume scalar")
	flag.BoolVar(&o.limiter, "limiter", false, "enable the master compressor")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Parse()

	if err := run(o); err != nil {
		logrus.Fatal(err)
	}
}

func run(o options) error {
	lvl, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	log := logrus.StandardLogger()

	if o.listMIDI {
		for _, name := range midi.InPorts() {
			fmt.Println(name)
		}
		return nil
	}

	beat, err := resolveBeat(o.beatPath, o.tempo, o.swing)
	if err != nil {
		return err
	}
	backend, err := audio.ParseBackend(strings.ToLower(strings.TrimSpace(o.backendName)))
	if err != nil {
		return err
	}
	var lopts []midi.Option
	if o.midiMap != "" {
		notes, err := midi.ParseNoteMap(strings.Split(o.midiMap, ","))
		if err != nil {
			return err
		}
		lopts = append(lopts, midi.WithNoteMap(notes))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bank := drumkit.NewSampleBank()
	if o.sampleDir != "" {
		if err := samples.LoadDir(ctx, o.sampleDir, bank, samples.WithLogger(log)); err != nil {
			log.WithError(err).Warn("some samples failed to load; using the synthesized kit for them")
		}
	}
	samples.Synthesize(bank, o.sampleRate)

	opts := []drumkit.Option{
		drumkit.WithBeat(beat),
		drumkit.WithSampleBank(bank),
		drumkit.WithBackend(backend),
		drumkit.WithLimiter(o.limiter),
		drumkit.WithLogger(log),
	}

	if o.renderPath != "" {
		out, err := drumkit.RenderBeat(o.sampleRate, o.seconds, opts...)
		if err != nil {
			return err
		}
		if err := drumkit.SaveWAV(o.renderPath, out, o.sampleRate); err != nil {
			return err
		}
		log.WithField("path", o.renderPath).Infof("rendered %.1fs", o.seconds)
		return nil
	}

	m, err := drumkit.NewMachine(o.sampleRate, opts...)
	if err != nil {
		return err
	}
	defer m.Close()
	m.SetMasterVolume(o.volume)
	if err := m.Init(); err != nil {
		return err
	}

	if o.midiPort != "" {
		l := midi.NewListener(m, append(lopts, midi.WithLogger(log))...)
		if err := l.Open(o.midiPort); err != nil {
			log.WithError(err).Error("midi input unavailable")
		} else {
			defer l.Close()
		}
	}

	events := m.Watch()
	if err := m.Start(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return nil
		case e := <-events:
			if e.Kind == drumkit.EventStep {
				log.WithField("step", e.Step).Debug("playhead")
			}
		}
	}
}

func resolveBeat(path string, tempo, swing float64) (drumkit.BeatConfig, error) {
	beat := drumkit.DefaultBeat()
	if strings.TrimSpace(path) != "" {
		b, err := beatfile.Load(path)
		if err != nil {
			return beat, err
		}
		beat = b
	}
	if tempo > 0 {
		beat.Tempo = tempo
	}
	if swing >= 0 {
		beat.Swing = swing
	}
	return beat, beat.Validate()
}
