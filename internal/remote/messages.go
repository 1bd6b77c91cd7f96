// ABOUTME: Remote control message definitions
// ABOUTME: JSON commands from clients and state/error replies from the server
package remote

import "github.com/dipak140/oboe-music-player/pkg/session"

// Command types accepted on /control
const (
	CmdPlay   = "play"
	CmdPause  = "pause"
	CmdResume = "resume"
	CmdStop   = "stop"
	CmdVolume = "volume"
	CmdSeek   = "seek"
	CmdState  = "state"
	CmdSelect = "select"
)

// Volume targets
const (
	TargetMusic    = "music"
	TargetOriginal = "original"
)

// Command is a control message from a client. Target is "music" or
// "original" for volume commands and Track indexes State.Tracks for select.
type Command struct {
	Type       string  `json:"type"`
	Target     string  `json:"target,omitempty"`
	Value      float64 `json:"value,omitempty"`
	PositionMs int64   `json:"position_ms,omitempty"`
	Track      *int    `json:"track,omitempty"`
}

// SelectCommand builds a command loading the track at index
func SelectCommand(index int) Command {
	return Command{Type: CmdSelect, Track: &index}
}

// Hello is sent once when a client connects
type Hello struct {
	Type     string      `json:"type"`
	ClientID string      `json:"client_id"`
	Server   string      `json:"server"`
	Version  string      `json:"version"`
	Monitor  *StreamInfo `json:"monitor,omitempty"`
}

// StreamInfo describes the binary monitor stream
type StreamInfo struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	FrameMs    int    `json:"frame_ms"`
}

// State reports the session to clients. Tracks lists the selectable backing
// tracks and TrackIndex is -1 while none is loaded.
type State struct {
	Type           string   `json:"type"`
	State          string   `json:"state"`
	Track          string   `json:"track,omitempty"`
	Tracks         []string `json:"tracks,omitempty"`
	TrackIndex     int      `json:"track_index"`
	PositionMs     int64    `json:"position_ms"`
	DurationMs     int64    `json:"duration_ms"`
	Looping        bool     `json:"looping"`
	MusicVolume    float64  `json:"music_volume"`
	OriginalVolume float64  `json:"original_volume"`
}

// Error reports a rejected command
type Error struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error"`
}

func stateMessage(s session.Snapshot, tracks []string, current int) State {
	return State{
		Type:           "state",
		State:          s.State.String(),
		Track:          s.TrackName,
		Tracks:         tracks,
		TrackIndex:     current,
		PositionMs:     s.PositionMs,
		DurationMs:     s.DurationMs,
		Looping:        s.Looping,
		MusicVolume:    s.MusicVolume,
		OriginalVolume: s.OriginalVolume,
	}
}
