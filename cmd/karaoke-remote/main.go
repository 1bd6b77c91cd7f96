// ABOUTME: Command line remote for a running karaoke engine
// ABOUTME: Sends transport commands, follows state, or listens to the Opus monitor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dipak140/oboe-music-player/internal/client"
	"github.com/dipak140/oboe-music-player/internal/discovery"
	"github.com/dipak140/oboe-music-player/internal/logging"
	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/decode"
	"github.com/dipak140/oboe-music-player/pkg/audio/output"
	"go.uber.org/zap"
)

var (
	serverAddr  = flag.String("server", "", "Server address (skip mDNS)")
	browseFor   = flag.Duration("browse", 3*time.Second, "How long to browse for servers over mDNS")
	listVolume  = flag.Int("volume", 100, "Monitor playback volume 0-100")
	logLevel    = flag.String("log-level", "warn", "Log level")
	replyWithin = flag.Duration("timeout", 5*time.Second, "How long to wait for a reply")
)

const usage = `usage: %s [flags] <command>

commands:
  list                        browse for servers and print them
  state                       print the current state
  play | pause | resume | stop
  seek <ms>
  volume <music|original> <0..1>
  tracks                      list the backing tracks, * marks the loaded one
  select <n>                  load track n (1-based) and stop playback
  watch                       print every state change until interrupted
  monitor                     play the mixed output through this machine
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
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

	if err := run(ctx, flag.Args(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logger *zap.Logger) error {
	if args[0] == "list" {
		servers, err := discovery.Browse(ctx, *browseFor)
		if err != nil {
			return err
		}
		for _, s := range servers {
			fmt.Printf("%-24s %-21s %s\n", s.Name, s.Addr(), s.Version)
		}
		return nil
	}

	addr, err := resolve(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "monitor":
		return monitor(ctx, addr, logger)
	case "watch":
		c, err := dial(ctx, addr, false, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		for {
			select {
			case st := <-c.States:
				printState(st)
			case <-c.Done():
				return errors.New("server closed the connection")
			case <-ctx.Done():
				return nil
			}
		}
	}

	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}

	c, err := dial(ctx, addr, false, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// The initial state arrives right after hello
	select {
	case <-c.States:
	case <-time.After(*replyWithin):
	}

	if err := c.Send(cmd); err != nil {
		return err
	}

	select {
	case st := <-c.States:
		if args[0] == "tracks" {
			printTracks(st)
		} else {
			printState(st)
		}
		return nil
	case e := <-c.Errors:
		return fmt.Errorf("%s rejected: %s", e.Command, e.Error)
	case <-time.After(*replyWithin):
		return errors.New("no reply from server")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseCommand(args []string) (remote.Command, error) {
	switch args[0] {
	case remote.CmdPlay, remote.CmdPause, remote.CmdResume, remote.CmdStop, remote.CmdState:
		return remote.Command{Type: args[0]}, nil
	case "tracks":
		return remote.Command{Type: remote.CmdState}, nil
	case remote.CmdSelect:
		if len(args) != 2 {
			return remote.Command{}, errors.New("select needs a track number")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return remote.Command{}, fmt.Errorf("bad track number %q", args[1])
		}
		return remote.SelectCommand(n - 1), nil
	case remote.CmdSeek:
		if len(args) != 2 {
			return remote.Command{}, errors.New("seek needs a position in milliseconds")
		}
		ms, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return remote.Command{}, fmt.Errorf("bad position: %w", err)
		}
		return remote.Command{Type: remote.CmdSeek, PositionMs: ms}, nil
	case remote.CmdVolume:
		if len(args) != 3 {
			return remote.Command{}, errors.New("volume needs a target and a value")
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return remote.Command{}, fmt.Errorf("bad volume: %w", err)
		}
		return remote.Command{Type: remote.CmdVolume, Target: args[1], Value: v}, nil
	default:
		return remote.Command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

func resolve(ctx context.Context) (string, error) {
	if *serverAddr != "" {
		return *serverAddr, nil
	}

	servers, err := discovery.Browse(ctx, *browseFor)
	if err != nil {
		return "", err
	}
	if len(servers) == 0 {
		return "", fmt.Errorf("no server found after %s", *browseFor)
	}
	return servers[0].Addr(), nil
}

func dial(ctx context.Context, addr string, monitor bool, logger *zap.Logger) (*client.Client, error) {
	c := client.New(client.Config{ServerAddr: addr, Monitor: monitor}, logger)

	dialCtx, cancel := context.WithTimeout(ctx, *replyWithin)
	defer cancel()
	if err := c.Connect(dialCtx); err != nil {
		return nil, err
	}
	return c, nil
}

func monitor(ctx context.Context, addr string, logger *zap.Logger) error {
	c, err := dial(ctx, addr, true, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	info := c.Hello().Monitor
	if info == nil {
		return errors.New("server has no monitor stream")
	}
	format := audio.PCM16(info.SampleRate, info.Channels)

	dec, err := decode.NewOpus(format)
	if err != nil {
		return err
	}

	out := output.NewOto(logger)
	if err := out.Open(format.SampleRate, format.Channels); err != nil {
		return err
	}
	defer out.Close()
	out.SetVolume(*listVolume)

	fmt.Printf("Listening to %s (%s, %s)\n", c.Hello().Server, info.Codec, format)
	for {
		select {
		case pkt := <-c.Packets:
			pcm, err := dec.Decode(pkt)
			if err != nil {
				logger.Warn("bad monitor packet", zap.Error(err))
				continue
			}
			if err := out.Write(pcm); err != nil {
				return err
			}
		case <-c.Done():
			return errors.New("server closed the connection")
		case <-ctx.Done():
			return nil
		}
	}
}

func printTracks(st remote.State) {
	if len(st.Tracks) == 0 {
		fmt.Println("no tracks")
		return
	}
	for i, name := range st.Tracks {
		mark := " "
		if i == st.TrackIndex {
			mark = "*"
		}
		fmt.Printf("%s %2d %s\n", mark, i+1, name)
	}
}

func printState(st remote.State) {
	track := st.Track
	if track == "" {
		track = "-"
	}
	fmt.Printf("%-9s %s %d/%dms music=%.2f original=%.2f loop=%t\n",
		st.State, track, st.PositionMs, st.DurationMs, st.MusicVolume, st.OriginalVolume, st.Looping)
}
