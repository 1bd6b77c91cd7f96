// ABOUTME: YAML configuration for the karaoke engine
// ABOUTME: Defaults, loading, validation and conversion to component configs
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dipak140/oboe-music-player/internal/device"
	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/mixer"
	"github.com/dipak140/oboe-music-player/pkg/session"
	"gopkg.in/yaml.v3"
)

// AudioConfig describes the duplex device and the music buffering
type AudioConfig struct {
	SampleRate         int  `yaml:"sample_rate"`
	Channels           int  `yaml:"channels"`
	PeriodMs           int  `yaml:"period_ms"`
	RingBufferMs       int  `yaml:"ring_buffer_ms"`
	PrebufferMs        int  `yaml:"prebuffer_ms"`
	ChunkMs            int  `yaml:"chunk_ms"`
	ProducerIntervalMs int  `yaml:"producer_interval_ms"`
	Monitor            bool `yaml:"monitor"`
}

// MixerConfig holds the initial gains
type MixerConfig struct {
	MusicVolume    float64 `yaml:"music_volume"`
	OriginalVolume float64 `yaml:"original_volume"`
	// GainOrder is "mix" or "downmix"
	GainOrder string `yaml:"gain_order"`
}

// RecordingConfig controls capture of the mixed output to WAV takes
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// RemoteConfig controls the WebSocket control server
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	MDNS    bool   `yaml:"mdns"`
	Name    string `yaml:"name"`
	Monitor bool   `yaml:"monitor"`
	Bitrate int    `yaml:"bitrate"`
}

// LibraryConfig sizes the decoded track cache and lists the backing
// tracks that can be selected at runtime
type LibraryConfig struct {
	CacheSize int      `yaml:"cache_size"`
	Tracks    []string `yaml:"tracks"`
}

// Config stores the application configuration.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Mixer     MixerConfig     `yaml:"mixer"`
	Recording RecordingConfig `yaml:"recording"`
	Remote    RemoteConfig    `yaml:"remote"`
	Library   LibraryConfig   `yaml:"library"`
	LogLevel  string          `yaml:"log_level"`
	LogFile   string          `yaml:"log_file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:         48000,
			Channels:           1,
			PeriodMs:           10,
			RingBufferMs:       2000,
			PrebufferMs:        200,
			ChunkMs:            20,
			ProducerIntervalMs: 10,
			Monitor:            true,
		},
		Mixer: MixerConfig{
			MusicVolume:    mixer.DefaultMusicVolume,
			OriginalVolume: mixer.DefaultOriginalVolume,
			GainOrder:      "mix",
		},
		Recording: RecordingConfig{
			Dir: "recordings",
		},
		Remote: RemoteConfig{
			Enabled: true,
			Addr:    ":8930",
			MDNS:    true,
			Name:    "Oboe Karaoke",
			Monitor: true,
			Bitrate: 64000,
		},
		Library: LibraryConfig{
			CacheSize: 8,
		},
		LogLevel: "info",
		LogFile:  "oboe-karaoke.log",
	}
}

// Load reads the configuration at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	if err := c.Format().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if c.Audio.PeriodMs <= 0 {
		errs = append(errs, errors.New("audio.period_ms must be positive"))
	}
	if c.Audio.ProducerIntervalMs <= 0 {
		errs = append(errs, errors.New("audio.producer_interval_ms must be positive"))
	}
	if v := c.Mixer.MusicVolume; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("mixer.music_volume %v outside [0, 1]", v))
	}
	if v := c.Mixer.OriginalVolume; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("mixer.original_volume %v outside [0, 1]", v))
	}
	if _, ok := mixer.ParseGainOrder(c.Mixer.GainOrder); !ok {
		errs = append(errs, fmt.Errorf("mixer.gain_order %q must be mix or downmix", c.Mixer.GainOrder))
	}
	if c.Recording.Enabled && c.Recording.Dir == "" {
		errs = append(errs, errors.New("recording.dir is required when recording is enabled"))
	}
	if c.Remote.Enabled && c.Remote.Addr == "" {
		errs = append(errs, errors.New("remote.addr is required when remote is enabled"))
	}
	if c.Library.CacheSize <= 0 {
		errs = append(errs, errors.New("library.cache_size must be positive"))
	}
	for i, path := range c.Library.Tracks {
		if path == "" {
			errs = append(errs, fmt.Errorf("library.tracks[%d] is empty", i))
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q unknown", c.LogLevel))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// Cross-field ring sizing is checked by the session itself
	if err := c.Session().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Format is the device sample format
func (c *Config) Format() audio.Format {
	return audio.PCM16(c.Audio.SampleRate, c.Audio.Channels)
}

// Session converts to a session configuration
func (c *Config) Session() session.Config {
	order, _ := mixer.ParseGainOrder(c.Mixer.GainOrder)

	sc := session.DefaultConfig()
	sc.Format = c.Format()
	sc.RingBufferMs = c.Audio.RingBufferMs
	sc.PrebufferMs = c.Audio.PrebufferMs
	sc.ChunkMs = c.Audio.ChunkMs
	sc.ProducerInterval = time.Duration(c.Audio.ProducerIntervalMs) * time.Millisecond
	sc.Mixer = mixer.Config{
		SampleWidth:    sc.Format.Encoding.Width(),
		Channels:       sc.Format.Channels,
		GainOrder:      order,
		MusicVolume:    c.Mixer.MusicVolume,
		OriginalVolume: c.Mixer.OriginalVolume,
	}
	return sc
}

// Device converts to a duplex device configuration
func (c *Config) Device() device.Config {
	return device.Config{
		Format:   c.Format(),
		PeriodMs: c.Audio.PeriodMs,
		Monitor:  c.Audio.Monitor,
	}
}

// RemoteServer converts to a remote server configuration
func (c *Config) RemoteServer() remote.Config {
	return remote.Config{
		Addr:    c.Remote.Addr,
		Name:    c.Remote.Name,
		Monitor: c.Remote.Monitor,
		Format:  c.Format(),
		Bitrate: c.Remote.Bitrate,
	}
}
