package detect

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/worklog/internal/storage"
)

func newDetectStore(t *testing.T) storage.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "detect.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedEdits(t *testing.T, store storage.Store, path string, times ...time.Time) {
	t.Helper()
	ctx := context.Background()
	for _, ts := range times {
		_, err := store.UpsertFileEvent(ctx, &storage.FileEvent{
			TsUnixMs:  ts.UnixMilli(),
			FilePath:  path,
			EventType: storage.FileEventModified,
		}, time.Millisecond)
		require.NoError(t, err)
	}
}

func seedCommit(t *testing.T, store storage.Store, ts time.Time, summary string) {
	t.Helper()
	require.NoError(t, store.InsertActivity(context.Background(), &storage.ActivityEvent{
		TsUnixMs:  ts.UnixMilli(),
		EventType: "git_commit",
		Summary:   &summary,
	}))
}

func TestStuckDetectorFlagsRepeatedEdits(t *testing.T) {
	store := newDetectStore(t)
	now := time.Now()

	seedEdits(t, store, "internal/storage/db.go",
		now.Add(-40*time.Minute), now.Add(-25*time.Minute), now.Add(-10*time.Minute))

	d := NewStuckDetector(store, nil)
	hints, err := d.Detect(context.Background(), now, time.Hour, 3)
	require.NoError(t, err)
	require.Len(t, hints, 1)

	h := hints[0]
	assert.Equal(t, "internal/storage/db.go", h.FilePath)
	assert.Equal(t, 3, h.EditCount)
	assert.Equal(t, 30, h.ElapsedMinutes)
}

func TestStuckDetectorBelowThreshold(t *testing.T) {
	store := newDetectStore(t)
	now := time.Now()

	seedEdits(t, store, "main.go", now.Add(-20*time.Minute), now.Add(-5*time.Minute))

	d := NewStuckDetector(store, nil)
	hints, err := d.Detect(context.Background(), now, time.Hour, 3)
	require.NoError(t, err)
	assert.Empty(t, hints)
}

func TestStuckDetectorCommitClearsCluster(t *testing.T) {
	store := newDetectStore(t)
	now := time.Now()

	seedEdits(t, store, "internal/storage/db.go",
		now.Add(-40*time.Minute), now.Add(-25*time.Minute), now.Add(-10*time.Minute))
	seedCommit(t, store, now.Add(-20*time.Minute), "fix checkpoint in db.go")

	d := NewStuckDetector(store, nil)
	hints, err := d.Detect(context.Background(), now, time.Hour, 3)
	require.NoError(t, err)
	assert.Empty(t, hints)
}

func TestStuckDetectorUnrelatedCommitDoesNotClear(t *testing.T) {
	store := newDetectStore(t)
	now := time.Now()

	seedEdits(t, store, "internal/storage/db.go",
		now.Add(-40*time.Minute), now.Add(-25*time.Minute), now.Add(-10*time.Minute))
	seedCommit(t, store, now.Add(-20*time.Minute), "update readme")

	d := NewStuckDetector(store, nil)
	hints, err := d.Detect(context.Background(), now, time.Hour, 3)
	require.NoError(t, err)
	assert.Len(t, hints, 1)
}

func TestStuckDetectorCommitWithLinkedFilesClears(t *testing.T) {
	store := newDetectStore(t)
	ctx := context.Background()
	now := time.Now()

	seedEdits(t, store, "scripts/foo.py",
		now.Add(-45*time.Minute), now.Add(-35*time.Minute),
		now.Add(-20*time.Minute), now.Add(-10*time.Minute))

	// The commit summary never names the file; the link to the file
	// event carries the touched path, the way recorded commits do.
	summary := "wip checkpoint"
	commit := &storage.ActivityEvent{
		TsUnixMs:  now.Add(-28 * time.Minute).UnixMilli(),
		EventType: "git_commit",
		Summary:   &summary,
	}
	require.NoError(t, store.InsertActivity(ctx, commit))
	_, err := store.UpsertFileEvent(ctx, &storage.FileEvent{
		ActivityID: &commit.ID,
		TsUnixMs:   commit.TsUnixMs,
		FilePath:   "scripts/foo.py",
		EventType:  storage.FileEventModified,
	}, time.Millisecond)
	require.NoError(t, err)

	d := NewStuckDetector(store, nil)
	hints, err := d.Detect(context.Background(), now, time.Hour, 3)
	require.NoError(t, err)
	assert.Empty(t, hints)
}

func TestStuckDetectorFindsRelatedSessions(t *testing.T) {
	store := newDetectStore(t)
	ctx := context.Background()
	now := time.Now()

	longResponse := "use a done channel and close it from the watcher " + strings.Repeat("x", 120)
	_, err := store.UpsertAIPrompt(ctx, &storage.AIPrompt{
		TsUnixMs:     now.Add(-48 * time.Hour).UnixMilli(),
		Tool:         "claude",
		PromptText:   "why does watcher.go leak goroutines on shutdown",
		ResponseText: longResponse,
		SessionID:    "sess-1",
	})
	require.NoError(t, err)

	seedEdits(t, store, "internal/ingest/watcher.go",
		now.Add(-40*time.Minute), now.Add(-25*time.Minute), now.Add(-10*time.Minute))

	d := NewStuckDetector(store, nil)
	hints, err := d.Detect(ctx, now, time.Hour, 3)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	require.Len(t, hints[0].Related, 1)

	rel := hints[0].Related[0]
	assert.Equal(t, "claude", rel.Tool)
	assert.Equal(t, storage.UnassignedProject, rel.Project)
	assert.Contains(t, rel.PromptPreview, "watcher.go")
	assert.True(t, strings.HasSuffix(rel.ResponsePreview, "..."))
	assert.LessOrEqual(t, len([]rune(rel.ResponsePreview)), 103)
}

func TestFileKeywords(t *testing.T) {
	kws := fileKeywords("internal/ingest/watcher.go")
	assert.Equal(t, []string{"watcher.go", "watcher", "ingest"}, kws)

	kws = fileKeywords("Makefile")
	assert.Equal(t, []string{"Makefile"}, kws)

	assert.Empty(t, fileKeywords(""))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "a b", preview("a\nb", 10))
	assert.Equal(t, "abcde...", preview("abcdefgh", 5))
}
