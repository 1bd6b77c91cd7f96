// ABOUTME: Selectable backing track list in front of the playback session
// ABOUTME: Loads tracks through the library cache and switches the session between them
package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dipak140/oboe-music-player/internal/library"
	"github.com/dipak140/oboe-music-player/pkg/session"
	"go.uber.org/zap"
)

// ErrNoSuchTrack is returned when selecting an index outside the track list
var ErrNoSuchTrack = errors.New("no such track")

// Deck drives the session for the remote and the TUI. It keeps the list of
// selectable tracks and holds at most one of them in the session at a time.
type Deck struct {
	*session.Session

	library *library.Library
	logger  *zap.Logger

	// Serialises track switches. Never held by Tracks, which runs inside
	// session observers.
	loadMu sync.Mutex

	mu      sync.Mutex
	paths   []string
	current int
	handle  session.TrackHandle
}

// NewDeck creates a deck over paths. Nothing is loaded until a track is selected.
func NewDeck(s *session.Session, lib *library.Library, paths []string, logger *zap.Logger) *Deck {
	return &Deck{
		Session: s,
		library: lib,
		logger:  logger.Named("deck"),
		paths:   append([]string(nil), paths...),
		current: -1,
		handle:  session.NoTrack,
	}
}

// Tracks returns the track names and the index of the loaded one, or -1
func (d *Deck) Tracks() ([]string, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, len(d.paths))
	for i, p := range d.paths {
		names[i] = filepath.Base(p)
	}
	return names, d.current
}

// SelectTrack stops playback and loads the track at index, leaving the
// session Idle and ready to play
func (d *Deck) SelectTrack(index int) error {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.Lock()
	n := len(d.paths)
	d.mu.Unlock()
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchTrack, index, n)
	}
	return d.load(index)
}

// LoadPath selects path, appending it to the track list when it is new
func (d *Deck) LoadPath(path string) error {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.Lock()
	index := -1
	for i, p := range d.paths {
		if filepath.Clean(p) == filepath.Clean(path) {
			index = i
			break
		}
	}
	added := index < 0
	if added {
		d.paths = append(d.paths, path)
		index = len(d.paths) - 1
	}
	d.mu.Unlock()

	err := d.load(index)
	if err != nil && added {
		d.mu.Lock()
		d.paths = d.paths[:index]
		d.mu.Unlock()
	}
	return err
}

// load must be called with loadMu held
func (d *Deck) load(index int) error {
	d.mu.Lock()
	path := d.paths[index]
	prev := d.handle
	d.mu.Unlock()

	track, err := d.library.Get(path)
	if err != nil {
		return err
	}

	if err := d.Session.Stop(); err != nil {
		return err
	}
	h, err := d.Session.Load(track)
	if err != nil {
		return err
	}
	if err := d.Session.Init(h); err != nil {
		return err
	}

	if prev != session.NoTrack && prev != h {
		if err := d.Session.Unload(prev); err != nil {
			d.logger.Warn("failed to release previous track", zap.Int("handle", int(prev)), zap.Error(err))
		}
	}

	d.mu.Lock()
	d.current = index
	d.handle = h
	d.mu.Unlock()

	d.logger.Info("track selected", zap.Int("index", index), zap.String("path", path))
	return nil
}

// Play restarts an ended track instead of rejecting the request
func (d *Deck) Play() error {
	if d.State() == session.Ended {
		if err := d.Init(d.Snapshot().Track); err != nil {
			return err
		}
	}
	return d.Session.Play()
}
