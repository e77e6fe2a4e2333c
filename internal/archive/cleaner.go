package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/metrics"
)

const secondsPerDay = 86400

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid cleanup config")

// Config is the retention policy of an archive directory.
type Config struct {
	// Dir is scanned non-recursively.
	Dir string
	// RetentionDays is how long files are kept. Fractions are allowed.
	RetentionDays float64
	// ChunkDuration is the length of one archive file. Files are kept one
	// chunk longer so the file being written is never removed.
	ChunkDuration time.Duration
}

// Validate checks the policy before it is used.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: missing directory", ErrInvalidConfig)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("%w: retention must be positive, got %v days", ErrInvalidConfig, c.RetentionDays)
	}
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("%w: chunk duration must be positive, got %v", ErrInvalidConfig, c.ChunkDuration)
	}
	return nil
}

// Retention returns RetentionDays as a duration.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays * secondsPerDay * float64(time.Second))
}

// MtimeLimit returns the cutoff: files modified strictly before it are removed.
func (c Config) MtimeLimit(now time.Time) time.Time {
	return now.Add(-c.Retention()).Add(c.ChunkDuration)
}

// Result summarizes one cleanup run.
type Result struct {
	Scanned int
	Removed []string
	Kept    int
	Failed  int
	Limit   time.Time
}

// Cleaner removes aged files from an archive directory.
type Cleaner struct {
	logger logging.Logger
	now    func() time.Time
	remove func(name string) error
	dryRun bool
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithClock sets the time source used to compute the cutoff.
func WithClock(now func() time.Time) CleanerOption {
	return func(c *Cleaner) {
		c.now = now
	}
}

// WithRemoveFunc replaces os.Remove.
func WithRemoveFunc(remove func(name string) error) CleanerOption {
	return func(c *Cleaner) {
		c.remove = remove
	}
}

// WithDryRun reports the files that would be removed without removing them.
func WithDryRun(dryRun bool) CleanerOption {
	return func(c *Cleaner) {
		c.dryRun = dryRun
	}
}

// NewCleaner creates a cleaner. If logger is nil, uses slog.Default().
func NewCleaner(logger logging.Logger, opts ...CleanerOption) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cleaner{
		logger: logger,
		now:    time.Now,
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prune removes every regular file in cfg.Dir whose modification time is
// before cfg.MtimeLimit. Symlinks and directories are ignored. A failure on
// one file is logged and counted; only failing to read the directory is an
// error.
func (c *Cleaner) Prune(cfg Config) (*Result, error) {
	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		metrics.IncCleanupRuns("error")
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	result := &Result{Limit: cfg.MtimeLimit(c.now())}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		result.Scanned++
		path := filepath.Join(cfg.Dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			c.logger.Warn("Failed to stat archive file, keeping it", "file", path, "error", err)
			result.Kept++
			continue
		}
		if !info.ModTime().Before(result.Limit) {
			result.Kept++
			continue
		}

		if c.dryRun {
			c.logger.Info("Would remove archive file", "file", path, "mtime", info.ModTime())
			result.Removed = append(result.Removed, path)
			continue
		}

		if err := c.remove(path); err != nil {
			c.logger.Error("Failed to remove archive file", "file", path, "error", err)
			result.Failed++
			continue
		}
		c.logger.Debug("Removed archive file", "file", path)
		result.Removed = append(result.Removed, path)
	}

	if !c.dryRun {
		metrics.IncCleanupRuns("ok")
		metrics.AddCleanupRemoved(len(result.Removed))
		metrics.AddCleanupFailures(result.Failed)
	}

	c.logger.Info("Archive cleanup finished",
		"dir", cfg.Dir,
		"limit", result.Limit.Format(time.RFC3339),
		"scanned", result.Scanned,
		"removed", len(result.Removed),
		"kept", result.Kept,
		"failed", result.Failed,
		"dry_run", c.dryRun)

	return result, nil
}
