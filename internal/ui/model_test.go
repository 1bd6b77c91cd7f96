// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and rendering
package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/dipak140/oboe-music-player/pkg/latency"
	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, s string) Model {
	next, _ := m.Update(key(s))
	return next.(Model)
}

func nextAction(t *testing.T, c *Controls) Action {
	t.Helper()
	select {
	case a := <-c.Actions:
		return a
	default:
		t.Fatal("expected an action")
		return Action{}
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Controls are optional for testing

	if model.state != "idle" {
		t.Errorf("expected state idle, got %s", model.state)
	}

	if model.musicVolume != 0.5 || model.originalVolume != 0.5 {
		t.Errorf("expected 0.5/0.5 volumes, got %v/%v", model.musicVolume, model.originalVolume)
	}

	if model.quality != latency.QualityLost {
		t.Errorf("expected lost latency quality, got %v", model.quality)
	}
}

func TestStatusMsgReplacesState(t *testing.T) {
	model := NewModel(nil)

	next, _ := model.Update(StatusMsg{
		State:          "playing",
		Track:          "song.wav",
		PositionMs:     61000,
		DurationMs:     180000,
		MusicVolume:    0.8,
		OriginalVolume: 0.3,
		Underruns:      2,
		LatencyMs:      12.5,
		Quality:        latency.QualityGood,
		Recording:      true,
		RecordedFrames: 4800,
		RemoteClients:  1,
	})
	model = next.(Model)

	if model.state != "playing" || model.track != "song.wav" {
		t.Errorf("unexpected state %q track %q", model.state, model.track)
	}
	if model.positionMs != 61000 || model.durationMs != 180000 {
		t.Errorf("unexpected position %d/%d", model.positionMs, model.durationMs)
	}
	if model.musicVolume != 0.8 || model.originalVolume != 0.3 {
		t.Errorf("unexpected volumes %v/%v", model.musicVolume, model.originalVolume)
	}
	if !model.recording || model.recFrames != 4800 {
		t.Error("expected recording status to be applied")
	}

	// A later snapshot clears fields it does not set
	model.applyStatus(StatusMsg{State: "idle"})
	if model.track != "" || model.recording {
		t.Error("expected snapshot to replace previous status")
	}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	tests := []struct {
		state string
		want  ActionKind
	}{
		{"idle", ActionPlay},
		{"ended", ActionPlay},
		{"playing", ActionPause},
		{"paused", ActionResume},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			c := NewControls()
			model := NewModel(c)
			model.state = tt.state

			press(model, " ")

			if got := nextAction(t, c); got.Kind != tt.want {
				t.Errorf("expected action %d, got %d", tt.want, got.Kind)
			}
		})
	}
}

func TestVolumeKeys(t *testing.T) {
	c := NewControls()
	model := NewModel(c)

	model = press(model, "up")
	if a := nextAction(t, c); a.Kind != ActionMusicVolume || a.Value != 0.55 {
		t.Errorf("unexpected action %+v", a)
	}

	model = press(model, "left")
	if a := nextAction(t, c); a.Kind != ActionOriginalVolume || a.Value != 0.45 {
		t.Errorf("unexpected action %+v", a)
	}

	for i := 0; i < 30; i++ {
		model = press(model, "up")
		nextAction(t, c)
	}
	if model.musicVolume != 1 {
		t.Errorf("expected music volume clamped at 1, got %v", model.musicVolume)
	}

	for i := 0; i < 30; i++ {
		model = press(model, "left")
		nextAction(t, c)
	}
	if model.originalVolume != 0 {
		t.Errorf("expected original volume clamped at 0, got %v", model.originalVolume)
	}
}

func TestOtherKeys(t *testing.T) {
	c := NewControls()
	model := NewModel(c)

	press(model, "s")
	if a := nextAction(t, c); a.Kind != ActionStop {
		t.Errorf("expected stop, got %+v", a)
	}

	press(model, "r")
	if a := nextAction(t, c); a.Kind != ActionToggleRecording {
		t.Errorf("expected recording toggle, got %+v", a)
	}

	model = press(model, "l")
	if a := nextAction(t, c); a.Kind != ActionLoop || a.Value != 1 {
		t.Errorf("expected loop on, got %+v", a)
	}
	press(model, "l")
	if a := nextAction(t, c); a.Kind != ActionLoop || a.Value != 0 {
		t.Errorf("expected loop off, got %+v", a)
	}
}

func TestTrackKeys(t *testing.T) {
	c := NewControls()
	model := NewModel(c)

	press(model, "1")
	if len(c.Actions) != 0 {
		t.Fatalf("expected no action without tracks, got %d", len(c.Actions))
	}

	model.applyStatus(StatusMsg{State: "idle", Tracks: []string{"intro.wav", "verse.flac"}, TrackIndex: 0})

	press(model, "2")
	if a := nextAction(t, c); a.Kind != ActionSelectTrack || a.Value != 1 {
		t.Errorf("expected select of track 1, got %+v", a)
	}

	press(model, "3")
	if len(c.Actions) != 0 {
		t.Errorf("expected no action past the last track, got %d", len(c.Actions))
	}

	next, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := next.(Model).View()
	for _, want := range []string{"▸ 1 intro.wav", "  2 verse.flac", "1-9:Track"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestQuitKey(t *testing.T) {
	c := NewControls()
	model := NewModel(c)

	_, cmd := model.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-c.Quit:
	default:
		t.Error("expected quit signal")
	}
}

func TestActionsDropWhenFull(t *testing.T) {
	c := NewControls()
	model := NewModel(c)

	for i := 0; i < cap(c.Actions)+5; i++ {
		press(model, "s")
	}
	if len(c.Actions) != cap(c.Actions) {
		t.Errorf("expected full channel, got %d", len(c.Actions))
	}
}

func TestErrorMsg(t *testing.T) {
	model := NewModel(nil)
	next, _ := model.Update(ErrorMsg{Err: errors.New("pause not allowed while idle")})
	model = next.(Model)

	if model.lastError != "pause not allowed while idle" {
		t.Errorf("unexpected error %q", model.lastError)
	}
}

func TestView(t *testing.T) {
	model := NewModel(nil)
	if model.View() != "Loading..." {
		t.Error("expected loading view before window size")
	}

	next, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model = next.(Model)
	model.applyStatus(StatusMsg{State: "paused", Track: "song.wav", PositionMs: 5000, DurationMs: 10000, MusicVolume: 0.5})

	view := model.View()
	for _, want := range []string{"Oboe Karaoke", "song.wav", "0:05 / 0:10", " 50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(5, 10, 4); got != "██░░" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := renderBar(1, 0, 3); got != "░░░" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := renderBar(20, 10, 2); got != "██" {
		t.Errorf("unexpected bar %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("a long track name", 10); got != "a long ..." {
		t.Errorf("unexpected %q", got)
	}
}
