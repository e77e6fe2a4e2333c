// Package pipeline turns the player/recorder settings into process specs
// for the supervisor and the retention policy for the archive cleaner.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/smazurov/qaspar/internal/archive"
	"github.com/smazurov/qaspar/internal/ffmpeg"
	"github.com/smazurov/qaspar/internal/process"
)

// Process names as they appear in logs, metrics and events.
const (
	PlayerName = "Player"
	StoreName  = "Store"
)

// Stall tolerances in polls. Shoutcast relays can go silent for several
// seconds while the recorder is still healthy.
const (
	PlayerMaxEmptyPolls = 2
	StoreMaxEmptyPolls  = 20
)

var (
	// ErrNothingToDo is returned when both playing and storing are disabled.
	ErrNothingToDo = errors.New("called without anything to do")
	// ErrInvalidConfig wraps every other validation failure.
	ErrInvalidConfig = errors.New("invalid pipeline config")
)

// Config describes what to do with the stream.
type Config struct {
	URL          string
	Executable   string
	LogLevel     string
	InputOptions []string

	Play     bool
	PlaySink string

	Store         bool
	SplitTime     int // seconds per archive file
	StorePath     string
	StoreFilename string // strftime template

	Cleanup  bool
	KeepDays float64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Executable:    "ffmpeg",
		Play:          true,
		PlaySink:      "pulse",
		Store:         true,
		SplitTime:     3600,
		StorePath:     "./archived_files",
		StoreFilename: "archive-%Y_%m_%d-%H_%M_%S.mp3",
		Cleanup:       true,
		KeepDays:      30,
	}
}

// Validate checks the settings that Build depends on.
func (c Config) Validate() error {
	if !c.Play && !c.Store {
		return ErrNothingToDo
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: missing stream URL", ErrInvalidConfig)
	}
	if c.Play && c.PlaySink == "" {
		return fmt.Errorf("%w: missing play sink", ErrInvalidConfig)
	}
	if c.Store {
		if c.SplitTime <= 0 {
			return fmt.Errorf("%w: split time must be positive, got %d", ErrInvalidConfig, c.SplitTime)
		}
		if c.StorePath == "" {
			return fmt.Errorf("%w: missing store path", ErrInvalidConfig)
		}
		if !strings.Contains(c.StoreFilename, "%") {
			return fmt.Errorf("%w: store filename %q has no strftime sequence, every segment would overwrite the last", ErrInvalidConfig, c.StoreFilename)
		}
		if strings.ContainsRune(c.StoreFilename, filepath.Separator) {
			return fmt.Errorf("%w: store filename %q must not contain a path separator", ErrInvalidConfig, c.StoreFilename)
		}
	}
	if c.Store && c.Cleanup && c.KeepDays <= 0 {
		return fmt.Errorf("%w: keep days must be positive, got %v", ErrInvalidConfig, c.KeepDays)
	}
	return nil
}

// Build returns the process specs, player first.
func Build(c Config) ([]process.Spec, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	options, err := ffmpeg.ParseOptions(c.InputOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	params := &ffmpeg.Params{
		Executable:    c.Executable,
		InputURL:      c.URL,
		Options:       options,
		LogLevel:      c.LogLevel,
		Sink:          c.PlaySink,
		SegmentTime:   c.SplitTime,
		OutputPattern: filepath.Join(c.StorePath, c.StoreFilename),
	}

	var specs []process.Spec
	if c.Play {
		specs = append(specs, process.Spec{
			Command:       ffmpeg.PlayerArgs(params),
			Name:          PlayerName,
			MaxEmptyPolls: PlayerMaxEmptyPolls,
		})
	}
	if c.Store {
		specs = append(specs, process.Spec{
			Command:       ffmpeg.RecorderArgs(params),
			Name:          StoreName,
			MaxEmptyPolls: StoreMaxEmptyPolls,
		})
	}
	return specs, nil
}

// CleanupEnabled reports whether the archive should be pruned while running.
func (c Config) CleanupEnabled() bool {
	return c.Store && c.Cleanup
}

// CleanupConfig returns the retention policy of the archive directory.
func (c Config) CleanupConfig() archive.Config {
	return archive.Config{
		Dir:           c.StorePath,
		RetentionDays: c.KeepDays,
		ChunkDuration: time.Duration(c.SplitTime) * time.Second,
	}
}

// RestartFields lists the settings that differ between c and next and only
// take effect when the session is restarted.
func (c Config) RestartFields(next Config) []string {
	var fields []string
	add := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}
	add("url", c.URL != next.URL)
	add("executable", c.Executable != next.Executable)
	add("log_level", c.LogLevel != next.LogLevel)
	add("input_options", !slices.Equal(c.InputOptions, next.InputOptions))
	add("play", c.Play != next.Play)
	add("play_sink", c.PlaySink != next.PlaySink)
	add("store", c.Store != next.Store)
	add("split_time", c.SplitTime != next.SplitTime)
	add("store_path", c.StorePath != next.StorePath)
	add("store_filename", c.StoreFilename != next.StoreFilename)
	return fields
}

// RetentionChanged reports whether next prunes the archive differently.
func (c Config) RetentionChanged(next Config) bool {
	return c.Cleanup != next.Cleanup || c.KeepDays != next.KeepDays
}

// WithRetention returns c with the retention settings of next applied.
// The settings are rejected when cleanup would be enabled with a
// non-positive retention.
func (c Config) WithRetention(next Config) (Config, error) {
	c.Cleanup = next.Cleanup
	c.KeepDays = next.KeepDays
	if c.CleanupEnabled() && c.KeepDays <= 0 {
		return c, fmt.Errorf("%w: keep days must be positive, got %v", ErrInvalidConfig, c.KeepDays)
	}
	return c, nil
}
