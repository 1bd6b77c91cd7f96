// ABOUTME: Entry point for the Oboe karaoke engine
// ABOUTME: Parses CLI flags, starts the fx application and waits for shutdown
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dipak140/oboe-music-player/internal/app"
	"github.com/dipak140/oboe-music-player/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config (default: built-in settings)")
	track       = flag.String("track", "", "Backing track to load and play on start")
	record      = flag.Bool("record", false, "Record the mixed output to a WAV take")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, log to stderr as well as the log file")
	logFile     = flag.String("log-file", "", "Log file path (overrides config)")
	loop        = flag.Bool("loop", false, "Loop the backing track")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	application := app.New(app.Options{
		ConfigPath: *configPath,
		Track:      *track,
		LogFile:    *logFile,
		Record:     *record,
		NoTUI:      *noTUI,
		Loop:       *loop,
	})
	if err := application.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build application: %v\n", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err := application.Start(startCtx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	// Blocks on SIGINT, SIGTERM or a quit from the TUI
	sig := <-application.Done()
	if *noTUI && sig.Signal != nil {
		fmt.Printf("Received %s, shutting down\n", sig.Signal)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = application.Stop(stopCtx)
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		os.Exit(1)
	}
}
