package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNoteLockAcquireRelease(t *testing.T) {
	t.Parallel()

	note := filepath.Join(t.TempDir(), "2026-02-03.md")
	lock, err := acquireNoteLock(note, 0, 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(lockPath(note)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
	if err := lock.release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Reacquirable after release.
	lock, err = acquireNoteLock(note, 0, 0)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := lock.release(); err != nil {
		t.Fatal(err)
	}
}

func TestNoteLockExcludesAfterReacquire(t *testing.T) {
	t.Parallel()

	note := filepath.Join(t.TempDir(), "cycle.md")
	first, err := acquireNoteLock(note, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.release(); err != nil {
		t.Fatal(err)
	}

	// A lock taken after a release must still exclude later comers: the
	// release must not leave a window where two acquirers both succeed.
	second, err := acquireNoteLock(note, 0, 0)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	defer second.release()

	if _, err := acquireNoteLock(note, 0, 0); !errors.Is(err, ErrNoteBusy) {
		t.Fatalf("expected ErrNoteBusy while lock held, got %v", err)
	}
}

func TestNoteLockBusy(t *testing.T) {
	t.Parallel()

	note := filepath.Join(t.TempDir(), "busy.md")
	held, err := acquireNoteLock(note, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer held.release()

	start := time.Now()
	_, err = acquireNoteLock(note, 2, 5*time.Millisecond)
	if !errors.Is(err, ErrNoteBusy) {
		t.Fatalf("expected ErrNoteBusy, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("expected two backoff sleeps, returned after %v", elapsed)
	}
}

func TestNoteLockReleaseTwice(t *testing.T) {
	t.Parallel()

	note := filepath.Join(t.TempDir(), "twice.md")
	lock, err := acquireNoteLock(note, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := lock.release(); err != nil {
		t.Fatal(err)
	}
	if err := lock.release(); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}
