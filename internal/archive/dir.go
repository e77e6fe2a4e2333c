package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/smazurov/qaspar/internal/logging"
)

// ErrLocked is returned by Lock when another recorder owns the directory.
var ErrLocked = errors.New("archive directory is locked by another recorder")

// EnsureDir creates dir if it does not exist.
func EnsureDir(dir string, logger logging.Logger) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("archive path %s is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat archive directory: %w", err)
	}

	logger.Info("Creating missing archive directory", "dir", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	return nil
}

// LockPath returns the lock file guarding dir. It sits next to the directory
// so cleanup never sees it.
func LockPath(dir string) string {
	return filepath.Clean(dir) + ".lock"
}

// Lock takes the single-recorder lock of dir without blocking.
// The returned func releases it.
func Lock(dir string) (func(), error) {
	fileLock := flock.New(LockPath(dir))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring archive lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	return func() {
		_ = fileLock.Unlock()
	}, nil
}
