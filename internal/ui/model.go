// ABOUTME: Bubbletea model for the karaoke TUI
// ABOUTME: Renders session, mixer and latency status and turns keys into control actions
package ui

import (
	"fmt"
	"strings"

	"github.com/dipak140/oboe-music-player/pkg/latency"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	volumeStep = 0.05

	// Tracks beyond the digit keys are not listed
	maxTrackKeys = 9
)

// Model represents the TUI state
type Model struct {
	controls *Controls

	// Session
	state      string
	track      string
	positionMs int64
	durationMs int64
	looping    bool
	tracks     []string
	trackIndex int

	// Mixer
	musicVolume    float64
	originalVolume float64
	underruns      uint64
	passthrough    uint64

	// Latency
	latencyMs float64
	quality   latency.Quality

	// Recording
	recording bool
	recPaused bool
	recFrames int64

	remoteClients int
	lastError     string

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case ErrorMsg:
		m.lastError = msg.Err.Error()
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTrack())
	b.WriteString(m.renderTracks())
	b.WriteString(m.renderMixer())
	b.WriteString(m.renderStatus())
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	icon := "■"
	switch m.state {
	case "playing":
		icon = "▶"
	case "paused":
		icon = "❚❚"
	case "buffering":
		icon = "…"
	}
	loop := ""
	if m.looping {
		loop = " (loop)"
	}

	return fmt.Sprintf(`┌─ Oboe Karaoke ───────────────────────────────────────┐
│ %-2s %-49s │
├──────────────────────────────────────────────────────┤
`, icon, truncate(m.state+loop, 49))
}

func (m Model) renderTrack() string {
	if m.track == "" {
		return "│ No track                                             │\n"
	}

	return fmt.Sprintf("│ Track:  %-44s │\n│ %s %s / %s%-13s │\n",
		truncate(m.track, 44),
		renderBar(int(m.positionMs), int(m.durationMs), 20),
		formatMs(m.positionMs), formatMs(m.durationMs), "")
}

// renderTracks lists the selectable tracks under their number keys
func (m Model) renderTracks() string {
	var b strings.Builder
	for i, name := range m.tracks {
		if i >= maxTrackKeys {
			break
		}
		marker := " "
		if i == m.trackIndex {
			marker = "▸"
		}
		fmt.Fprintf(&b, "│ %s %d %-48s │\n", marker, i+1, truncate(name, 48))
	}
	return b.String()
}

func (m Model) renderMixer() string {
	return fmt.Sprintf("│                                                      │\n"+
		"│ Music:  [%s] %3d%%%-26s │\n"+
		"│ Voice:  [%s] %3d%%%-26s │\n",
		renderBar(percent(m.musicVolume), 100, 10), percent(m.musicVolume), "",
		renderBar(percent(m.originalVolume), 100, 10), percent(m.originalVolume), "")
}

func (m Model) renderStatus() string {
	rec := "off"
	switch {
	case m.recording && m.recPaused:
		rec = "paused"
	case m.recording:
		rec = fmt.Sprintf("on (%d frames)", m.recFrames)
	}

	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Latency: %-43s │
│ Underruns: %-8d Passthrough: %-16d │
│ Recording: %-18s Remotes: %-12d │
`, fmt.Sprintf("%.1fms (%s)", m.latencyMs, m.quality), m.underruns, m.passthrough, rec, m.remoteClients)

	if m.lastError != "" {
		s += fmt.Sprintf("│ Error: %-45s │\n", truncate(m.lastError, 45))
	}
	return s
}

func (m Model) renderHelp() string {
	return `│ space:Play/Pause s:Stop ↑/↓:Music ←/→:Voice         │
│ r:Rec pause  l:Loop  1-9:Track  q:Quit               │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case " ":
		switch m.state {
		case "playing":
			m.controls.send(Action{Kind: ActionPause})
		case "paused":
			m.controls.send(Action{Kind: ActionResume})
		default:
			m.controls.send(Action{Kind: ActionPlay})
		}
	case "s":
		m.controls.send(Action{Kind: ActionStop})
	case "up":
		m.musicVolume = step(m.musicVolume, volumeStep)
		m.controls.send(Action{Kind: ActionMusicVolume, Value: m.musicVolume})
	case "down":
		m.musicVolume = step(m.musicVolume, -volumeStep)
		m.controls.send(Action{Kind: ActionMusicVolume, Value: m.musicVolume})
	case "right":
		m.originalVolume = step(m.originalVolume, volumeStep)
		m.controls.send(Action{Kind: ActionOriginalVolume, Value: m.originalVolume})
	case "left":
		m.originalVolume = step(m.originalVolume, -volumeStep)
		m.controls.send(Action{Kind: ActionOriginalVolume, Value: m.originalVolume})
	case "r":
		m.controls.send(Action{Kind: ActionToggleRecording})
	case "l":
		m.looping = !m.looping
		m.controls.send(Action{Kind: ActionLoop, Value: boolValue(m.looping)})
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if i := int(msg.String()[0] - '1'); i < len(m.tracks) {
			m.controls.send(Action{Kind: ActionSelectTrack, Value: float64(i)})
		}
	}

	return m, nil
}

// applyStatus replaces the displayed state with a fresh snapshot
func (m *Model) applyStatus(msg StatusMsg) {
	m.state = msg.State
	m.track = msg.Track
	m.tracks = msg.Tracks
	m.trackIndex = msg.TrackIndex
	m.positionMs = msg.PositionMs
	m.durationMs = msg.DurationMs
	m.looping = msg.Looping
	m.musicVolume = msg.MusicVolume
	m.originalVolume = msg.OriginalVolume
	m.underruns = msg.Underruns
	m.passthrough = msg.Passthrough
	m.latencyMs = msg.LatencyMs
	m.quality = msg.Quality
	m.recording = msg.Recording
	m.recPaused = msg.RecordingPaused
	m.recFrames = msg.RecordedFrames
	m.remoteClients = msg.RemoteClients
}

// StatusMsg is a periodic snapshot pushed by the application
type StatusMsg struct {
	State           string
	Track           string
	Tracks          []string
	TrackIndex      int
	PositionMs      int64
	DurationMs      int64
	Looping         bool
	MusicVolume     float64
	OriginalVolume  float64
	Underruns       uint64
	Passthrough     uint64
	LatencyMs       float64
	Quality         latency.Quality
	Recording       bool
	RecordingPaused bool
	RecordedFrames  int64
	RemoteClients   int
}

// ErrorMsg shows the last failed action
type ErrorMsg struct {
	Err error
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		return strings.Repeat("░", width)
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatMs(ms int64) string {
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func percent(v float64) int {
	return int(v*100 + 0.5)
}

func step(v, delta float64) float64 {
	v += delta
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// Keep steps on a 5% grid despite float drift
	return float64(int(v*100+0.5)) / 100
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
