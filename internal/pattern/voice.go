package pattern

import "strings"

// Voice identifies one of the fixed drum instruments.
type Voice int

const (
	Kick Voice = iota
	Snare
	HiHat
	Tom1
	Tom2
	Tom3
)

// NumVoices is the size of the closed Voice set.
const NumVoices = 6

// Steps is the length of one pattern loop.
const Steps = 16

var voiceNames = [NumVoices]string{"Kick", "Snare", "HiHat", "Tom1", "Tom2", "Tom3"}

// Voices returns every voice in pattern row order.
func Voices() [NumVoices]Voice {
	return [NumVoices]Voice{Kick, Snare, HiHat, Tom1, Tom2, Tom3}
}

func (v Voice) Valid() bool {
	return v >= 0 && v < NumVoices
}

func (v Voice) String() string {
	if !v.Valid() {
		return "Voice(?)"
	}
	return voiceNames[v]
}

// Key is the lower-case name used for file names and document keys.
func (v Voice) Key() string {
	return strings.ToLower(v.String())
}

// ParseVoice resolves a voice by name, ignoring case.
func ParseVoice(name string) (Voice, bool) {
	name = strings.TrimSpace(name)
	for i, n := range voiceNames {
		if strings.EqualFold(n, name) {
			return Voice(i), true
		}
	}
	return 0, false
}

// StepLevel is the hit intensity stored per voice and step.
type StepLevel uint8

const (
	Silent StepLevel = iota
	Soft
	Accent
)

var levelVolumes = [...]float64{0, 0.3, 1.0}

func (l StepLevel) Valid() bool {
	return l <= Accent
}

// Volume maps the level to its gain scalar. Invalid levels are silent.
func (l StepLevel) Volume() float64 {
	if !l.Valid() {
		return 0
	}
	return levelVolumes[l]
}
