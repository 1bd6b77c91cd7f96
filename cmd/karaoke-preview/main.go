// ABOUTME: Plays a backing track or a recorded take through the default output
// ABOUTME: Quick listening check without opening the duplex device
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dipak140/oboe-music-player/internal/logging"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/decode"
	"github.com/dipak140/oboe-music-player/pkg/audio/output"
	"github.com/dipak140/oboe-music-player/pkg/audio/resample"
	"go.uber.org/zap"
)

var (
	rate     = flag.Int("rate", 0, "Resample to this rate before playback (default: file rate)")
	volume   = flag.Int("volume", 100, "Playback volume 0-100")
	startMs  = flag.Int64("start-ms", 0, "Start offset in milliseconds")
	logLevel = flag.String("log-level", "info", "Log level")
)

const writeChunk = 100 * time.Millisecond

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Level: *logLevel, Console: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), logger); err != nil {
		logger.Error("preview failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, logger *zap.Logger) error {
	track, err := decode.Load(path)
	if err != nil {
		return err
	}

	pcm, format, err := prepare(track, *rate)
	if err != nil {
		return err
	}

	offset := int(format.MsToFrames(*startMs)) * format.FrameSize()
	if offset > len(pcm) {
		offset = len(pcm)
	}

	out := output.NewOto(logger)
	if err := out.Open(format.SampleRate, format.Channels); err != nil {
		return err
	}
	defer out.Close()
	out.SetVolume(*volume)

	logger.Info("playing",
		zap.String("track", track.Name),
		zap.Stringer("format", format),
		zap.Int64("duration_ms", track.DurationMs()))

	chunk := format.BytesFor(writeChunk)
	for pos := offset; pos < len(pcm); pos += chunk {
		if ctx.Err() != nil {
			logger.Info("interrupted")
			return nil
		}
		end := min(pos+chunk, len(pcm))
		if err := out.Write(pcm[pos:end]); err != nil {
			return err
		}
	}
	return nil
}

func prepare(track *audio.Track, target int) ([]byte, audio.Format, error) {
	if target == 0 || target == track.Format.SampleRate {
		return track.PCM, track.Format, nil
	}

	r := resample.New(track.Format.SampleRate, target, track.Format.Channels)
	pcm, err := r.Bytes(track.PCM)
	if err != nil {
		return nil, audio.Format{}, err
	}
	return pcm, audio.PCM16(target, track.Format.Channels), nil
}
