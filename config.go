package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"

	"github.com/mrdg/waltz/audio"
)

const (
	defaultConfigDir  = "waltz"
	defaultConfigFile = "config.yaml"
)

// Config holds the settings read from the config file and command line.
type Config struct {
	// Tempo is the playback tempo in beats per minute.
	Tempo float64 `yaml:"tempo"`

	// Corpus is the note file with one "pitch onset duration" record per line.
	Corpus string `yaml:"corpus"`

	// Samples is a directory of <pitch>.wav files.
	Samples string `yaml:"samples"`

	// Backend selects the sound: auto, samples, synth or midi.
	Backend string `yaml:"backend"`

	// MIDIPort is matched against output port names for the midi backend.
	MIDIPort string `yaml:"midi_port,omitempty"`

	PollIntervalMS int     `yaml:"poll_interval_ms"`
	ReleaseMS      int     `yaml:"release_ms"`
	LevelDB        float64 `yaml:"level_db"`

	// HistoryDir stores generated waltzes. Empty disables history.
	HistoryDir string `yaml:"history_dir,omitempty"`

	LogLevel string `yaml:"log_level"`

	// Seed makes dice rolls reproducible. Zero rolls randomly.
	Seed uint64 `yaml:"seed,omitempty"`
}

func defaultConfig() Config {
	return Config{
		Tempo:          120,
		Corpus:         "original.txt",
		Samples:        "notes_audio",
		Backend:        backendAuto,
		PollIntervalMS: int(audio.DefaultPollInterval / time.Millisecond),
		ReleaseMS:      60,
		LogLevel:       "info",
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// loadConfig reads the config file at path on top of the defaults. A missing
// file is only an error when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	strs := map[string]*string{
		"corpus":    &cfg.Corpus,
		"samples":   &cfg.Samples,
		"backend":   &cfg.Backend,
		"midi-port": &cfg.MIDIPort,
		"history":   &cfg.HistoryDir,
		"log-level": &cfg.LogLevel,
	}
	for name, dest := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dest = v
	}
	if flags.Changed("tempo") {
		tempo, err := flags.GetFloat64("tempo")
		if err != nil {
			return err
		}
		cfg.Tempo = tempo
	}
	if flags.Changed("seed") {
		seed, err := flags.GetUint64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = seed
	}
	return nil
}

const (
	backendAuto    = "auto"
	backendSamples = "samples"
	backendSynth   = "synth"
	backendMIDI    = "midi"
)

func (c Config) Validate() error {
	if err := audio.ValidateTempo(c.Tempo); err != nil {
		return err
	}
	switch c.Backend {
	case backendAuto, backendSamples, backendSynth, backendMIDI:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if d := c.pollInterval(); d < audio.MinPollInterval || d > audio.MaxPollInterval {
		return fmt.Errorf("poll_interval_ms must be between %d and %d",
			audio.MinPollInterval/time.Millisecond, audio.MaxPollInterval/time.Millisecond)
	}
	if c.ReleaseMS < 1 || c.ReleaseMS > 15_000 {
		return fmt.Errorf("release_ms must be between 1 and 15000")
	}
	if math.IsNaN(c.LevelDB) || c.LevelDB < -40 || c.LevelDB > 10 {
		return fmt.Errorf("level_db must be between -40 and 10")
	}
	if _, err := c.logLevel(); err != nil {
		return err
	}
	if c.Corpus == "" {
		return fmt.Errorf("corpus path is empty")
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c Config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
