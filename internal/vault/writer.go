package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/runger/worklog/internal/config"
)

// Writer renders notes into the vault directory tree. Each kind lives in its
// own subdirectory; project notes are named after the project, periodic
// notes after their period label.
type Writer struct {
	root        string
	dailyDir    string
	weeklyDir   string
	monthlyDir  string
	projectsDir string
	lockRetries int
	lockBackoff time.Duration
	logger      *slog.Logger
}

// WriteResult reports what one render did to a note on disk.
type WriteResult struct {
	Path    string
	Created bool
	Changed bool
}

// NewWriter builds a Writer from configuration. The vault root is created
// lazily on first write.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		root:        cfg.VaultRoot(),
		dailyDir:    cfg.Vault.DailyDir,
		weeklyDir:   cfg.Vault.WeeklyDir,
		monthlyDir:  cfg.Vault.MonthlyDir,
		projectsDir: cfg.Vault.ProjectsDir,
		lockRetries: cfg.Vault.LockRetries,
		lockBackoff: time.Duration(cfg.Vault.LockBackoffMs) * time.Millisecond,
		logger:      logger,
	}
}

// NotePath returns the on-disk path for a note identified by kind and label.
// For periodic kinds the label is the period label; for project notes it is
// the project name; briefings use the day label.
func (w *Writer) NotePath(kind Kind, label string) string {
	name := safeFileName(label) + ".md"
	switch kind {
	case KindDaily:
		return filepath.Join(w.root, w.dailyDir, name)
	case KindWeekly:
		return filepath.Join(w.root, w.weeklyDir, name)
	case KindMonthly:
		return filepath.Join(w.root, w.monthlyDir, name)
	case KindProject:
		return filepath.Join(w.root, w.projectsDir, name)
	case KindBriefing:
		return filepath.Join(w.root, w.dailyDir, safeFileName(label)+"-briefing.md")
	default:
		return filepath.Join(w.root, name)
	}
}

// Write renders the note for kind and merges it into the file at its path,
// creating the file when absent. The note is held under an exclusive lock
// for the whole read-merge-write span; a note that stays locked is skipped
// with ErrNoteBusy. The file is rewritten only when its content changed.
func (w *Writer) Write(ctx context.Context, kind Kind, data *NoteData) (*WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := w.NotePath(kind, data.Label)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create note directory: %w", err)
	}

	lock, err := acquireNoteLock(path, w.lockRetries, w.lockBackoff)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.release(); rerr != nil {
			w.logger.Warn("release note lock", "path", path, "error", rerr)
		}
	}()

	existing, created, err := readNote(path)
	if err != nil {
		return nil, err
	}

	rendered := RenderNote(kind, data, existing)
	if !created && rendered == existing {
		w.logger.Debug("note unchanged", "kind", kind.String(), "path", path)
		return &WriteResult{Path: path, Created: false, Changed: false}, nil
	}

	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return nil, fmt.Errorf("write note %s: %w", path, err)
	}
	w.logger.Info("note written", "kind", kind.String(), "path", path, "created", created)
	return &WriteResult{Path: path, Created: created, Changed: true}, nil
}

// Render produces the note text without touching the filesystem, for
// dry-run output.
func (w *Writer) Render(kind Kind, data *NoteData) (string, error) {
	path := w.NotePath(kind, data.Label)
	existing, _, err := readNote(path)
	if err != nil {
		return "", err
	}
	return RenderNote(kind, data, existing), nil
}

func readNote(path string) (content string, created bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", true, nil
		}
		return "", false, fmt.Errorf("read note %s: %w", path, err)
	}
	return string(raw), false, nil
}

// safeFileName strips path separators from a label so a project name cannot
// escape the vault directory.
func safeFileName(label string) string {
	out := make([]rune, 0, len(label))
	for _, r := range label {
		switch r {
		case '/', '\\', ':', 0:
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "untitled"
	}
	return string(out)
}
