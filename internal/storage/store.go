// Package storage provides SQLite-based persistent storage for worklog.
// It holds projects, activity events, AI prompt turns, and file-change
// events, and implements the dedup/upsert policies collectors rely on.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/runger/worklog/internal/period"
)

// Sentinel errors shared across storage operations.
var (
	// ErrMalformedEvent marks a candidate row missing a required field.
	// Ingestion drops and logs such events; it never aborts a batch.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrProjectNotFound is returned when a project lookup misses.
	ErrProjectNotFound = errors.New("project not found")
)

// Outcome is the dedup/upsert engine's decision for one candidate row.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Store defines the interface for all storage operations.
// Collectors are the writers; the scheduled render pass only reads.
type Store interface {
	// Projects
	EnsureProject(ctx context.Context, name, path string) (*Project, Outcome, error)
	SetProjectStatus(ctx context.Context, name, status string) error
	GetProjectByName(ctx context.Context, name string) (*Project, error)
	GetProjectByID(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)

	// Activity events
	InsertActivity(ctx context.Context, ev *ActivityEvent) error
	ActivityBetween(ctx context.Context, startMs, endMs int64, projectID *int64) ([]ActivityEvent, error)
	HasCommitInRange(ctx context.Context, startMs, endMs int64, pathToken string) (bool, error)

	// AI prompts
	UpsertAIPrompt(ctx context.Context, p *AIPrompt) (Outcome, error)
	AIPromptsBetween(ctx context.Context, startMs, endMs int64, projectID *int64) ([]AIPrompt, error)
	SearchPrompts(ctx context.Context, keyword string, limit int) ([]AIPrompt, error)
	AllPrompts(ctx context.Context) ([]AIPrompt, error)
	UpdatePromptTexts(ctx context.Context, id int64, promptText, responseText string) error

	// File events
	UpsertFileEvent(ctx context.Context, ev *FileEvent, window time.Duration) (Outcome, error)
	FileEventsBetween(ctx context.Context, startMs, endMs int64, projectID *int64) ([]FileEvent, error)
	EditClusters(ctx context.Context, sinceMs int64, minEdits int) ([]EditCluster, error)

	// Aggregation
	Aggregate(ctx context.Context, p period.Period, projectName string) (*Summary, error)

	// Lifecycle
	Close() error
}

// Project is one tracked project folder. Rows are insert-only except
// the status field.
type Project struct {
	ID              int64
	Name            string
	Path            *string
	Status          string // "active", "paused", "completed"
	CreatedAtUnixMs int64
}

// ActivityEvent is a high-level event (window focus, git commit, app
// usage). Append-only; commits are recorded with EventType "git_commit".
type ActivityEvent struct {
	ID        int64
	TsUnixMs  int64
	DurationS *int64
	EventType string
	ProjectID *int64
	AppName   *string
	Summary   *string
	Data      *string
}

// AIPrompt is one prompt/response turn with an AI tool. SessionID is the
// natural key when the tool provides one; otherwise a digest of the text
// serves as the key.
type AIPrompt struct {
	ID           int64
	ActivityID   *int64
	TsUnixMs     int64
	Tool         string
	ProjectID    *int64
	PromptText   string
	ResponseText string
	InputTokens  *int64
	OutputTokens *int64
	SessionID    string
}

// File event types. Rapid repeated saves of the same path coalesce into
// one row when they land inside the configured window.
const (
	FileEventCreated  = "created"
	FileEventModified = "modified"
	FileEventDeleted  = "deleted"
)

// FileEvent is one file create/modify/delete observation.
type FileEvent struct {
	ID         int64
	ActivityID *int64
	TsUnixMs   int64
	FilePath   string
	EventType  string
	ProjectID  *int64
	FileSize   *int64
}

// EditCluster groups repeated created/modified events for one path,
// used by the stuck-file detector.
type EditCluster struct {
	FilePath    string
	EditCount   int
	FirstSeenMs int64
	LastSeenMs  int64
}

// ProjectCount is the per-project slice of a Summary.
type ProjectCount struct {
	AICount   int
	FileCount int
}

// Summary is the result of one aggregation call. Timestamps are nil when
// the period holds no events; counts are then zero.
type Summary struct {
	ProjectCounts map[string]ProjectCount
	TotalAI       int
	TotalFiles    int
	FirstActivity *int64 // unix ms
	LastActivity  *int64 // unix ms
	ActiveDays    int
}
