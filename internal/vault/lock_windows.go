//go:build windows

package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoteBusy is returned when another process holds a note's render lock
// after all acquisition retries are exhausted. The caller skips the note for
// this cycle and moves on.
var ErrNoteBusy = errors.New("note locked by another render")

// noteLock guards one note file while it is read, merged, and written back.
// On Windows the lock is the atomic creation of the lock file itself.
type noteLock struct {
	file *os.File
	path string
}

// lockPath returns the lock file path for a note.
func lockPath(notePath string) string {
	return notePath + ".lock"
}

// acquireNoteLock tries to take the exclusive lock for a note, retrying with
// a fixed backoff. Returns ErrNoteBusy when the lock stays held throughout.
func acquireNoteLock(notePath string, retries int, backoff time.Duration) (*noteLock, error) {
	path := lockPath(notePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err == nil {
			return &noteLock{file: f, path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("open lock file: %w", err)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w: %s", ErrNoteBusy, notePath)
		}
		time.Sleep(backoff)
	}
}

// release removes the lock file. Safe to call once per acquire.
func (l *noteLock) release() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
