// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program and carries key actions back to the application
package ui

import (
	"github.com/dipak140/oboe-music-player/pkg/latency"
	tea "github.com/charmbracelet/bubbletea"
)

// ActionKind identifies a user request from the TUI
type ActionKind int

const (
	ActionPlay ActionKind = iota
	ActionPause
	ActionResume
	ActionStop
	ActionMusicVolume
	ActionOriginalVolume
	ActionToggleRecording
	ActionLoop
	ActionSelectTrack
)

// Action is one key press translated for the application. Value carries
// the new volume, 1/0 for ActionLoop, or the track index for ActionSelectTrack.
type Action struct {
	Kind  ActionKind
	Value float64
}

// Controls holds channels for control communication
type Controls struct {
	Actions chan Action
	Quit    chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Actions: make(chan Action, 16),
		Quit:    make(chan struct{}, 1),
	}
}

// send drops the action when the application is not keeping up
func (c *Controls) send(a Action) {
	if c == nil {
		return
	}
	select {
	case c.Actions <- a:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		controls:       controls,
		state:          "idle",
		musicVolume:    0.5,
		originalVolume: 0.5,
		trackIndex:     -1,
		quality:        latency.QualityLost,
	}
}

// New builds the TUI program without starting it
func New(controls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(controls), tea.WithAltScreen())
}
