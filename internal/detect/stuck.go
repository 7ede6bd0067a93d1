// Package detect implements pattern detectors over the event store: the
// stuck-file detector and the focus analyzer.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/runger/worklog/internal/storage"
)

const (
	// DefaultStuckThreshold is the trailing window scanned for edit
	// clusters.
	DefaultStuckThreshold = 60 * time.Minute

	// DefaultStuckMinEdits is the minimum number of created/modified
	// events for a file to count as a cluster.
	DefaultStuckMinEdits = 3

	relatedSessionLimit = 3
	previewLen          = 100
)

// RelatedSession is a past AI exchange that mentioned a stuck file.
type RelatedSession struct {
	TsMs            int64
	Tool            string
	Project         string
	PromptPreview   string
	ResponsePreview string
}

// StuckHint flags one file with repeated edits and no commit in the span.
type StuckHint struct {
	FilePath       string
	EditCount      int
	ElapsedMinutes int
	FirstSeenMs    int64
	LastSeenMs     int64
	Related        []RelatedSession
}

// StuckDetector finds files the user keeps editing without committing and
// digs up past AI sessions about similar files.
type StuckDetector struct {
	store  storage.Store
	logger *slog.Logger
}

// NewStuckDetector returns a detector over the given store.
func NewStuckDetector(store storage.Store, logger *slog.Logger) *StuckDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &StuckDetector{store: store, logger: logger}
}

// Detect scans the trailing threshold window ending at now. A file is stuck
// when it accumulated at least minEdits created/modified events and no
// commit mentioning the file landed between the first and last edit. A
// commit resets the cluster.
func (d *StuckDetector) Detect(ctx context.Context, now time.Time, threshold time.Duration, minEdits int) ([]StuckHint, error) {
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}
	if minEdits <= 0 {
		minEdits = DefaultStuckMinEdits
	}

	sinceMs := now.Add(-threshold).UnixMilli()
	clusters, err := d.store.EditClusters(ctx, sinceMs, minEdits)
	if err != nil {
		return nil, fmt.Errorf("edit clusters: %w", err)
	}

	var hints []StuckHint
	for _, c := range clusters {
		committed, err := d.store.HasCommitInRange(ctx, c.FirstSeenMs, c.LastSeenMs, fileToken(c.FilePath))
		if err != nil {
			return nil, fmt.Errorf("commit check for %s: %w", c.FilePath, err)
		}
		if committed {
			d.logger.Debug("cluster resolved by commit", "file", c.FilePath)
			continue
		}

		related, err := d.similarSessions(ctx, c.FilePath)
		if err != nil {
			// Hints are best effort; a failed lookup must not hide
			// the stuck file itself.
			d.logger.Warn("similar session lookup failed", "file", c.FilePath, "error", err)
			related = nil
		}

		hints = append(hints, StuckHint{
			FilePath:       c.FilePath,
			EditCount:      c.EditCount,
			ElapsedMinutes: int((c.LastSeenMs - c.FirstSeenMs) / 60_000),
			FirstSeenMs:    c.FirstSeenMs,
			LastSeenMs:     c.LastSeenMs,
			Related:        related,
		})
	}
	return hints, nil
}

// similarSessions searches past AI prompts for the file's name, stem, and
// parent directory, in that order, deduplicated across keywords.
func (d *StuckDetector) similarSessions(ctx context.Context, filePath string) ([]RelatedSession, error) {
	keywords := fileKeywords(filePath)
	if len(keywords) == 0 {
		return nil, nil
	}

	var out []RelatedSession
	seen := make(map[int64]bool)
	for _, kw := range keywords {
		if len(out) >= relatedSessionLimit {
			break
		}
		prompts, err := d.store.SearchPrompts(ctx, kw, relatedSessionLimit*2)
		if err != nil {
			return nil, err
		}
		for _, p := range prompts {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, RelatedSession{
				TsMs:            p.TsUnixMs,
				Tool:            p.Tool,
				Project:         d.projectName(ctx, p.ProjectID),
				PromptPreview:   preview(p.PromptText, previewLen),
				ResponsePreview: preview(p.ResponseText, previewLen),
			})
			if len(out) >= relatedSessionLimit {
				break
			}
		}
	}
	return out, nil
}

func (d *StuckDetector) projectName(ctx context.Context, projectID *int64) string {
	if projectID == nil {
		return storage.UnassignedProject
	}
	p, err := d.store.GetProjectByID(ctx, *projectID)
	if err != nil {
		return storage.UnassignedProject
	}
	return p.Name
}

// fileKeywords returns the search keywords for a path: file name, stem, and
// parent directory name, deduplicated in order.
func fileKeywords(filePath string) []string {
	slashed := filepath.ToSlash(filePath)
	name := path.Base(slashed)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	parent := path.Base(path.Dir(slashed))

	var out []string
	seen := make(map[string]bool)
	for _, kw := range []string{name, stem, parent} {
		if kw == "" || kw == "." || kw == "/" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// fileToken is the substring a commit row must mention to clear a cluster.
func fileToken(filePath string) string {
	slashed := filepath.ToSlash(filePath)
	name := path.Base(slashed)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// preview flattens and truncates text for display.
func preview(text string, max int) string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}
