//go:build !windows

package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrNoteBusy is returned when another process holds a note's render lock
// after all acquisition retries are exhausted. The caller skips the note for
// this cycle and moves on.
var ErrNoteBusy = errors.New("note locked by another render")

// noteLock is an exclusive flock(2)-based lock guarding one note file while
// it is read, merged, and written back.
type noteLock struct {
	file *os.File
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
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &noteLock{file: f}, nil
		}
		f.Close()

		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EAGAIN) {
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w: %s", ErrNoteBusy, notePath)
		}
		time.Sleep(backoff)
	}
}

// release drops the lock. The lock file itself stays on disk: removing it
// here would let a waiter flock the unlinked inode while a third process
// locks a fresh file at the same path, giving two holders at once.
func (l *noteLock) release() error {
	if l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	l.file = nil
	return nil
}
