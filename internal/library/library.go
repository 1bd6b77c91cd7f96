// ABOUTME: Decoded track cache
// ABOUTME: Keeps recently used backing tracks in memory so replays skip decoding
package library

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/decode"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// LoadFunc decodes a track from disk
type LoadFunc func(path string) (*audio.Track, error)

// Library is an LRU cache of decoded tracks keyed by absolute path
type Library struct {
	cache  *lru.Cache[string, *audio.Track]
	load   LoadFunc
	logger *zap.Logger

	// Serialises loads so concurrent misses for one path decode once
	loadMu sync.Mutex

	hits   uint64
	misses uint64
	statMu sync.Mutex
}

// New creates a library holding up to size tracks
func New(size int, logger *zap.Logger) (*Library, error) {
	return NewWithLoader(size, decode.Load, logger)
}

// NewWithLoader creates a library with a custom decoder
func NewWithLoader(size int, load LoadFunc, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("library")

	cache, err := lru.NewWithEvict[string, *audio.Track](size, func(path string, t *audio.Track) {
		logger.Debug("track evicted", zap.String("path", path), zap.Int("bytes", len(t.PCM)))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create track cache: %w", err)
	}

	return &Library{
		cache:  cache,
		load:   load,
		logger: logger,
	}, nil
}

// Get returns the decoded track, loading it on a miss
func (l *Library) Get(path string) (*audio.Track, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if t, ok := l.cache.Get(key); ok {
		l.count(true)
		return t, nil
	}

	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	if t, ok := l.cache.Get(key); ok {
		l.count(true)
		return t, nil
	}
	l.count(false)

	t, err := l.load(key)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, t)
	l.logger.Info("track cached",
		zap.String("path", key),
		zap.Stringer("format", t.Format),
		zap.Int64("duration_ms", t.DurationMs()))
	return t, nil
}

// Forget drops a cached track
func (l *Library) Forget(path string) {
	if key, err := filepath.Abs(path); err == nil {
		l.cache.Remove(key)
	}
}

// Len returns the number of cached tracks
func (l *Library) Len() int {
	return l.cache.Len()
}

// Stats returns cache hits and misses
func (l *Library) Stats() (hits, misses uint64) {
	l.statMu.Lock()
	defer l.statMu.Unlock()
	return l.hits, l.misses
}

func (l *Library) count(hit bool) {
	l.statMu.Lock()
	if hit {
		l.hits++
	} else {
		l.misses++
	}
	l.statMu.Unlock()
}
