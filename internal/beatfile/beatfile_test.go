package beatfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cbegin/drumkit-go/internal/pattern"
)

const doc = `
tempo: 96
swing: 0
pitch:
  snare: 0.75
pattern:
  kick:  "2000 2000 2000 2000"
  Tom1:  "0000|0000|0000|0001"
`

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(doc), pattern.Default())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	def := pattern.Default()
	if cfg.Tempo != 96 || cfg.Swing != 0 {
		t.Fatalf("tempo/swing = %v/%v, want 96/0", cfg.Tempo, cfg.Swing)
	}
	if cfg.EffectMix != def.EffectMix {
		t.Fatalf("effect mix = %v, want default %v", cfg.EffectMix, def.EffectMix)
	}
	if cfg.Pitch[pattern.Snare] != 0.75 || cfg.Pitch[pattern.Kick] != 0.5 {
		t.Fatalf("pitch = %v", cfg.Pitch)
	}
	if got := cfg.Pattern.Level(pattern.Kick, 4); got != pattern.Accent {
		t.Fatalf("kick step 4 = %v, want accent", got)
	}
	if got := cfg.Pattern.Level(pattern.Kick, 1); got != pattern.Silent {
		t.Fatalf("kick step 1 = %v, want silent", got)
	}
	if got := cfg.Pattern.Level(pattern.Tom1, 15); got != pattern.Soft {
		t.Fatalf("tom1 step 15 = %v, want soft", got)
	}
	if cfg.Pattern[pattern.HiHat] != def.Pattern[pattern.HiHat] {
		t.Fatal("hi-hat row should keep the default")
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"bad digit", "pattern:\n  kick: \"3000000000000000\"\n", pattern.ErrOutOfRange},
		{"short row", "pattern:\n  kick: \"2000\"\n", pattern.ErrOutOfRange},
		{"long row", "pattern:\n  kick: \"20000000000000000\"\n", pattern.ErrOutOfRange},
		{"unknown voice", "pattern:\n  cowbell: \"0000000000000000\"\n", pattern.ErrInvalidParameter},
		{"zero tempo", "tempo: 0\n", pattern.ErrInvalidParameter},
		{"swing above one", "swing: 1.5\n", pattern.ErrInvalidParameter},
		{"unknown field", "bpm: 120\n", pattern.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := pattern.Default()
			cfg, err := Decode(strings.NewReader(tt.doc), base)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if cfg != base {
				t.Fatal("failed decode should return the base beat unchanged")
			}
		})
	}
}

func TestEmptyDocumentKeepsBase(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""), pattern.Default())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg != pattern.Default() {
		t.Fatal("empty document changed the beat")
	}
}

func TestSaveLoad(t *testing.T) {
	cfg := pattern.Default()
	cfg.Tempo = 128
	cfg.Pattern[pattern.Tom1][7] = pattern.Accent
	path := filepath.Join(t.TempDir(), "beat.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Fatalf("loaded %+v, want %+v", got, cfg)
	}
}

func TestEncodeUsesVoiceKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, pattern.Default()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"effectMix: 0.25", "hihat: 2111 2111 2111 2111", "kick: 0.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("encoded document missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRow(t *testing.T) {
	row, err := ParseRow("2201220122012201")
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	if got, want := FormatRow(row), "2201 2201 2201 2201"; got != want {
		t.Fatalf("FormatRow = %q, want %q", got, want)
	}
}
