// Package tui is a terminal step grid for the drum machine.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/drumkit-go/internal/pattern"
	"github.com/cbegin/drumkit-go/internal/scheduler"
)

var (
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	softStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#aaa"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	playheadStyle = lipgloss.NewStyle().Reverse(true)
	ledOnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f33"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	meterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3c3"))
)

const (
	tempoStep  = 5.0
	swingStep  = 0.05
	meterWidth = 24
	meterRate  = 50 * time.Millisecond
)

// Controller is the machine surface the grid drives.
type Controller interface {
	Start() error
	Stop()
	Reset()
	Running() bool
	Beat() pattern.BeatConfig
	SetLevel(v pattern.Voice, step int, level pattern.StepLevel) error
	SetTempo(bpm float64) error
	SetSwing(s float64) error
	PlayDrumNote(v pattern.Voice) error
	Watch() <-chan scheduler.Event
}

type Model struct {
	ctl      Controller
	meter    *Meter
	voice    int
	step     int
	playhead int // -1 when cleared
	level    float32
	status   string
	quitting bool
}

type PlayheadMsg scheduler.Event

type meterMsg time.Time

func NewModel(ctl Controller, meter *Meter) Model {
	return Model{ctl: ctl, meter: meter, playhead: -1}
}

func ListenForPlayhead(ctl Controller) tea.Cmd {
	ch := ctl.Watch()
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return PlayheadMsg(e)
	}
}

func pollMeter() tea.Cmd {
	return tea.Tick(meterRate, func(t time.Time) tea.Msg {
		return meterMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForPlayhead(m.ctl)}
	if m.meter != nil {
		cmds = append(cmds, pollMeter())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case PlayheadMsg:
		if msg.Kind == scheduler.EventClear {
			m.playhead = -1
		} else {
			m.playhead = msg.Step
		}
		return m, ListenForPlayhead(m.ctl)

	case meterMsg:
		// falls back slowly so short hits stay visible
		m.level = max(m.meter.Take(), m.level*0.8)
		return m, pollMeter()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.quitting = true
		m.ctl.Stop()
		return m, tea.Quit

	case " ", "p":
		if m.ctl.Running() {
			m.ctl.Stop()
		} else if err := m.ctl.Start(); err != nil {
			m.status = err.Error()
		}

	case "h", "left":
		m.step = (m.step + pattern.Steps - 1) % pattern.Steps

	case "l", "right":
		m.step = (m.step + 1) % pattern.Steps

	case "k", "up":
		m.voice = (m.voice + pattern.NumVoices - 1) % pattern.NumVoices

	case "j", "down":
		m.voice = (m.voice + 1) % pattern.NumVoices

	case "enter", "x":
		v := pattern.Voice(m.voice)
		cfg := m.ctl.Beat()
		next := (cfg.Pattern.Level(v, m.step) + 1) % (pattern.Accent + 1)
		m.report(m.ctl.SetLevel(v, m.step, next))

	case "1", "2", "3", "4", "5", "6":
		m.report(m.ctl.PlayDrumNote(pattern.Voice(key[0] - '1')))

	case "+", "=":
		m.report(m.ctl.SetTempo(m.ctl.Beat().Tempo + tempoStep))

	case "-", "_":
		m.report(m.ctl.SetTempo(m.ctl.Beat().Tempo - tempoStep))

	case "]":
		m.report(m.ctl.SetSwing(min(m.ctl.Beat().Swing+swingStep, 1)))

	case "[":
		m.report(m.ctl.SetSwing(max(m.ctl.Beat().Swing-swingStep, 0)))

	case "r":
		m.ctl.Reset()
		m.playhead = -1
	}
	return m, nil
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = err.Error()
	}
}

// Cursor returns the selected voice and step.
func (m Model) Cursor() (pattern.Voice, int) {
	return pattern.Voice(m.voice), m.step
}

func (m Model) Playhead() int {
	return m.playhead
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	cfg := m.ctl.Beat()
	var out strings.Builder
	out.WriteString("\n")
	for _, v := range pattern.Voices() {
		out.WriteString(statusStyle.Render(fmt.Sprintf("%-6s", v.Key())))
		for s := 0; s < pattern.Steps; s++ {
			if s > 0 && s%4 == 0 {
				out.WriteString(" ")
			}
			out.WriteString(m.cell(cfg.Pattern.Level(v, s), int(v) == m.voice && s == m.step, s == m.playhead))
		}
		out.WriteString("\n")
	}

	out.WriteString(strings.Repeat(" ", 6))
	for s := 0; s < pattern.Steps; s++ {
		if s > 0 && s%4 == 0 {
			out.WriteString(" ")
		}
		if s == m.playhead {
			out.WriteString(ledOnStyle.Render("●"))
		} else {
			out.WriteString(dimStyle.Render("○"))
		}
	}
	out.WriteString("\n\n")

	state := "stop"
	if m.ctl.Running() {
		state = "play"
	}
	out.WriteString(statusStyle.Render(fmt.Sprintf("%s %5.1fbpm  swing %.2f  fx %.2f  %s%d",
		state, cfg.Tempo, cfg.Swing, cfg.EffectMix, pattern.Voice(m.voice).Key(), m.step+1)))
	out.WriteString("\n")
	if m.meter != nil {
		n := int(min(m.level, 1) * meterWidth)
		out.WriteString(meterStyle.Render(strings.Repeat("█", n)) + dimStyle.Render(strings.Repeat("░", meterWidth-n)))
		out.WriteString("\n")
	}
	if m.status != "" {
		out.WriteString(ledOnStyle.Render(m.status))
		out.WriteString("\n")
	}
	out.WriteString(dimStyle.Render("space:play  hjkl:move  enter:level  1-6:pads  +/-:tempo  [/]:swing  r:reset  q:quit"))
	out.WriteString("\n")
	return out.String()
}

func (m Model) cell(level pattern.StepLevel, cursor, playhead bool) string {
	var char string
	var style lipgloss.Style
	switch level {
	case pattern.Accent:
		char, style = "●", accentStyle
	case pattern.Soft:
		char, style = "○", softStyle
	default:
		char, style = "·", dimStyle
	}
	if cursor {
		style = style.Inherit(cursorStyle)
	}
	if playhead {
		style = playheadStyle
	}
	return style.Render(char)
}
