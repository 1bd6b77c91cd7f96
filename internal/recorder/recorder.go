// ABOUTME: WAV recording sink for the mixed karaoke stream
// ABOUTME: Audio-thread Offer hands frames to a writer goroutine using the go-audio encoder
package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrRecording    = errors.New("already recording")
	ErrNotRecording = errors.New("not recording")
)

// queueDepth is the number of device periods buffered between the audio
// thread and the file writer
const queueDepth = 512

type take struct {
	id    string
	path  string
	file  *os.File
	enc   *wav.Encoder
	queue chan []byte
	stop  chan struct{}
	done  chan error
}

// Recorder writes the mixed stream to one WAV file per take
type Recorder struct {
	format audio.Format
	logger *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[take]
	paused  atomic.Bool

	frames  atomic.Int64
	firstNs atomic.Int64
	dropped atomic.Uint64
}

// New creates a recorder for the given stream format
func New(format audio.Format, logger *zap.Logger) (*Recorder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		format: format,
		logger: logger.Named("recorder"),
	}, nil
}

// Start opens a new take in dir and returns its ID
func (r *Recorder) Start(dir string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current.Load() != nil {
		return "", ErrRecording
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording dir: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(dir, "take-"+id+".wav")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create take: %w", err)
	}

	t := &take{
		id:    id,
		path:  path,
		file:  f,
		enc:   wav.NewEncoder(f, r.format.SampleRate, 16, r.format.Channels, 1),
		queue: make(chan []byte, queueDepth),
		stop:  make(chan struct{}),
		done:  make(chan error, 1),
	}

	r.frames.Store(0)
	r.firstNs.Store(0)
	r.dropped.Store(0)
	r.paused.Store(false)

	go r.write(t)
	r.current.Store(t)

	r.logger.Info("recording started", zap.String("take", id), zap.String("path", path))
	return id, nil
}

// Offer queues one period of audio. It never blocks; frames are dropped
// when not recording, while paused, or when the writer falls behind.
func (r *Recorder) Offer(pcm []byte) {
	t := r.current.Load()
	if t == nil || r.paused.Load() || len(pcm) == 0 {
		return
	}

	r.firstNs.CompareAndSwap(0, time.Now().UnixNano())

	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	select {
	case t.queue <- buf:
	default:
		r.dropped.Add(1)
	}
}

// Pause stops frames reaching the file until Resume
func (r *Recorder) Pause() error {
	if r.current.Load() == nil {
		return ErrNotRecording
	}
	r.paused.Store(true)
	r.logger.Info("recording paused")
	return nil
}

// Resume continues a paused take
func (r *Recorder) Resume() error {
	if r.current.Load() == nil {
		return ErrNotRecording
	}
	r.paused.Store(false)
	r.logger.Info("recording resumed")
	return nil
}

// Stop flushes queued audio, finalises the WAV header and returns the path
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.current.Swap(nil)
	if t == nil {
		return "", ErrNotRecording
	}
	close(t.stop)
	err := <-t.done

	r.logger.Info("recording stopped",
		zap.String("take", t.id),
		zap.Int64("frames", r.frames.Load()),
		zap.Uint64("dropped_periods", r.dropped.Load()),
		zap.Error(err))
	return t.path, err
}

// Recording reports whether a take is open
func (r *Recorder) Recording() bool {
	return r.current.Load() != nil
}

// Paused reports whether the open take is paused
func (r *Recorder) Paused() bool {
	return r.Recording() && r.paused.Load()
}

// Frames returns the number of frames written to the current or last take
func (r *Recorder) Frames() int64 {
	return r.frames.Load()
}

// FirstFrameAt returns when the first frame of the take was offered
func (r *Recorder) FirstFrameAt() (time.Time, bool) {
	ns := r.firstNs.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// Dropped returns periods lost because the writer fell behind
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) write(t *take) {
	var werr error
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: r.format.Channels, SampleRate: r.format.SampleRate},
		SourceBitDepth: 16,
	}

	flush := func(pcm []byte) {
		if werr != nil {
			return
		}
		n := len(pcm) / r.format.FrameSize() * r.format.FrameSize() / 2
		if cap(buf.Data) < n {
			buf.Data = make([]int, n)
		}
		buf.Data = buf.Data[:n]
		for i := range buf.Data {
			buf.Data[i] = int(audio.Int16At(pcm, i))
		}
		if err := t.enc.Write(buf); err != nil {
			werr = fmt.Errorf("failed to write take: %w", err)
			r.logger.Error("write failed, discarding rest of take", zap.Error(err))
			return
		}
		r.frames.Add(int64(n / r.format.Channels))
	}

	for {
		select {
		case pcm := <-t.queue:
			flush(pcm)
		case <-t.stop:
			for {
				select {
				case pcm := <-t.queue:
					flush(pcm)
				default:
					t.done <- finish(t, werr)
					return
				}
			}
		}
	}
}

func finish(t *take, werr error) error {
	err := t.enc.Close()
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	if werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("failed to finalise take: %w", err)
	}
	return nil
}
