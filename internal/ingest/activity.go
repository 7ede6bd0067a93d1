package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/runger/worklog/internal/sanitize"
	"github.com/runger/worklog/internal/storage"
)

// RawActivity is one event handed in by an external collector: a window
// focus sample, a git commit, a manual entry. Path is the working
// directory or repo root the event happened in.
type RawActivity struct {
	Ts        time.Time
	EventType string
	Path      string
	App       string
	Summary   string
	Data      string
	DurationS int64
	Files     []RawFileChange
}

// RawFileChange is one file touched by an activity event. ChangeType
// defaults to modified.
type RawFileChange struct {
	Path       string
	ChangeType string
}

// ActivityRecorder validates, masks and project-resolves raw collector
// events before they reach the store. Git commits also record one
// FileEvent per changed file, attributed to the activity row.
type ActivityRecorder struct {
	store    storage.Store
	filter   *sanitize.Filter
	resolver *Resolver
	window   time.Duration
	logger   *slog.Logger
}

// NewActivityRecorder builds a recorder. A nil filter disables masking;
// window is the file-event coalescing window.
func NewActivityRecorder(store storage.Store, filter *sanitize.Filter, resolver *Resolver, window time.Duration, logger *slog.Logger) *ActivityRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityRecorder{store: store, filter: filter, resolver: resolver, window: window, logger: logger}
}

// Record appends one activity event and its file events. The returned
// event carries the assigned row id and resolved project.
func (r *ActivityRecorder) Record(ctx context.Context, raw RawActivity) (*storage.ActivityEvent, error) {
	if raw.EventType == "" {
		return nil, fmt.Errorf("%w: event_type is required", storage.ErrMalformedEvent)
	}
	if raw.Ts.IsZero() {
		return nil, fmt.Errorf("%w: timestamp is required", storage.ErrMalformedEvent)
	}

	projectID := resolveProjectID(ctx, r.store, r.resolver, raw.Path, r.logger)

	ev := &storage.ActivityEvent{
		TsUnixMs:  raw.Ts.UnixMilli(),
		EventType: raw.EventType,
		ProjectID: projectID,
	}
	if raw.DurationS > 0 {
		ev.DurationS = &raw.DurationS
	}
	if raw.App != "" {
		ev.AppName = &raw.App
	}
	if s := r.mask(raw.Summary); s != "" {
		ev.Summary = &s
	}
	if d := r.mask(raw.Data); d != "" {
		ev.Data = &d
	}

	if err := r.store.InsertActivity(ctx, ev); err != nil {
		return nil, err
	}

	for _, f := range raw.Files {
		if f.Path == "" {
			continue
		}
		changeType := f.ChangeType
		if changeType == "" {
			changeType = storage.FileEventModified
		}
		fe := &storage.FileEvent{
			ActivityID: &ev.ID,
			TsUnixMs:   ev.TsUnixMs,
			FilePath:   f.Path,
			EventType:  changeType,
			ProjectID:  projectID,
		}
		if _, err := r.store.UpsertFileEvent(ctx, fe, r.window); err != nil {
			return nil, fmt.Errorf("file event for %s: %w", f.Path, err)
		}
	}

	return ev, nil
}

func (r *ActivityRecorder) mask(text string) string {
	if r.filter == nil || text == "" {
		return text
	}
	masked, _ := r.filter.Mask(text)
	return masked
}
