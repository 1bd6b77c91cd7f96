// ABOUTME: Playback state machine definitions
// ABOUTME: States, transition errors and the table of legal operations
package session

import (
	"errors"
	"fmt"
)

// State is the playback state of a session
type State int

const (
	Idle State = iota
	Buffering
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Buffering:
		return "buffering"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition is wrapped by every TransitionError
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownTrack is returned for handles that were never loaded
	ErrUnknownTrack = errors.New("unknown track handle")

	// ErrNoTrack is returned by Play when no track has been initialised
	ErrNoTrack = errors.New("no track initialised")

	// ErrTrackInUse is returned when unloading the current track
	ErrTrackInUse = errors.New("track is current")
)

// TransitionError reports an operation attempted from a state that does not allow it
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// allowed lists the states each operation may start from
var allowed = map[string][]State{
	"init":   {Idle, Ended},
	"play":   {Idle, Paused},
	"pause":  {Playing},
	"resume": {Paused},
	"stop":   {Idle, Buffering, Playing, Paused, Ended},
	"seek":   {Buffering, Playing, Paused},
}

func checkTransition(op string, from State) error {
	for _, s := range allowed[op] {
		if s == from {
			return nil
		}
	}
	return &TransitionError{Op: op, From: from}
}

// transition is a state change waiting to be delivered to observers
type transition struct {
	from, to State
}
