// ABOUTME: Background producer feeding prepared track audio into the music ring
// ABOUTME: Tops the ring up in fixed chunks, handles looping, end of track and progress ticks
package session

import (
	"context"
	"time"

	"github.com/dipak140/oboe-music-player/pkg/audio/downmix"
	"github.com/dipak140/oboe-music-player/pkg/audio/mixer"
	"go.uber.org/zap"
)

// startProducer must be called with mu held
func (s *Session) startProducer() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.produce(ctx, done)
}

// haltProducer cancels the producer and returns its done channel so the
// caller can wait after releasing mu. Must be called with mu held.
func (s *Session) haltProducer() <-chan struct{} {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	done := s.done
	s.cancel = nil
	s.done = nil
	return done
}

func (s *Session) produce(ctx context.Context, done chan struct{}) {
	var events []transition
	// Deferred in this order so done is closed before observers run;
	// an observer calling Stop must not wait on its own goroutine.
	defer func() { s.notify(events) }()
	defer close(done)

	fill := time.NewTicker(s.cfg.ProducerInterval)
	defer fill.Stop()
	progress := time.NewTicker(s.cfg.ProgressInterval)
	defer progress.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fill.C:
			var finished bool
			events, finished = s.tick(ctx)
			if finished {
				return
			}
		case <-progress.C:
			s.reportProgress()
		}
	}
}

// tick tops up the ring and detects the end of the track
func (s *Session) tick(ctx context.Context) ([]transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return nil, true
	}
	if s.state != Playing {
		return nil, false
	}

	s.fill(s.ring.Cap())

	if s.offset >= len(s.pcm) && !s.looping && s.ring.Len() == 0 {
		s.mixer.SetGate(false)
		s.cancel()
		s.cancel = nil
		s.done = nil
		s.logger.Info("track finished", zap.Int64("duration_ms", s.durationMsLocked()))
		return []transition{s.setState(Ended)}, true
	}
	return nil, false
}

// fill writes whole chunks until limit bytes are buffered, the ring has
// no room for another chunk, or the track is exhausted. Must be called
// with mu held.
func (s *Session) fill(limit int) {
	for s.ring.Len() < limit && s.ring.Free() >= s.chunkBytes {
		n := s.nextChunk(s.scratch)
		if n == 0 {
			return
		}
		chunk := s.scratch[:n]

		if s.pan != 0 && s.cfg.Format.Channels == 2 {
			_ = downmix.Pan(chunk, s.pan)
		}
		if s.mixer.GainOrder() == mixer.GainAtDownmix {
			_ = downmix.Gain(chunk, s.mixer.MusicVolume())
		}

		if over := s.ring.Write(chunk); over > 0 {
			s.logger.Warn("music ring overwrote unread audio", zap.Int("bytes", over))
		}
		s.produced += int64(n)
	}
}

// nextChunk copies the next bytes of the prepared track into dst,
// wrapping to the start when looping
func (s *Session) nextChunk(dst []byte) int {
	n := 0
	for n < len(dst) {
		if s.offset >= len(s.pcm) {
			if !s.looping || len(s.pcm) == 0 {
				break
			}
			s.offset = 0
			s.loops++
		}
		c := copy(dst[n:], s.pcm[s.offset:])
		s.offset += c
		n += c
	}
	return n
}

func (s *Session) reportProgress() {
	s.mu.Lock()
	if s.state != Playing {
		s.mu.Unlock()
		return
	}
	pos := s.positionMsLocked()
	dur := s.durationMsLocked()
	s.mu.Unlock()

	s.obsMu.RLock()
	observers := append([]func(int64, int64){}, s.onProgress...)
	s.obsMu.RUnlock()

	for _, fn := range observers {
		fn(pos, dur)
	}
}
