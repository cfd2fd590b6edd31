// Package lock serialises herd invocations that share a roster.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

// ErrLocked is returned when another herd process holds the lock.
var ErrLocked = errors.New("another herd command is running against this roster")

// Lock is an exclusive, process-wide execution lock.
type Lock struct {
	fl *flock.Flock
}

// PathFor returns the lock file guarding rosterPath.
func PathFor(rosterPath string) string {
	return rosterPath + ".lock"
}

// Acquire takes the lock for rosterPath without blocking. The caller must
// Release it on every exit path.
func Acquire(rosterPath string) (*Lock, error) {
	path := PathFor(rosterPath)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create lock directory: %w", err)
		}
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}

	log.Debug().Str("path", path).Msg("Execution lock acquired")
	return &Lock{fl: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock and removes the lock file. It is safe to call more
// than once.
func (l *Lock) Release() error {
	if l == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.fl.Path(), err)
	}
	if err := os.Remove(l.fl.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Debug().Err(err).Str("path", l.fl.Path()).Msg("Could not remove lock file")
	}
	log.Debug().Str("path", l.fl.Path()).Msg("Execution lock released")
	return nil
}
