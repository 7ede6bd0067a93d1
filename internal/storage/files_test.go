package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUpsertFileEventCoalesces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)

	first := &FileEvent{TsUnixMs: base, FilePath: "/p/main.go", EventType: FileEventModified}
	outcome, err := store.UpsertFileEvent(ctx, first, 2*time.Second)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Errorf("first outcome = %v, want inserted", outcome)
	}

	// 500ms later: inside the window, collapses into the same row with
	// the later timestamp.
	second := &FileEvent{TsUnixMs: base + 500, FilePath: "/p/main.go", EventType: FileEventModified}
	outcome, err = store.UpsertFileEvent(ctx, second, 2*time.Second)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("second outcome = %v, want updated", outcome)
	}
	if second.ID != first.ID {
		t.Errorf("coalesced into id %d, want %d", second.ID, first.ID)
	}

	events, err := store.FileEventsBetween(ctx, 0, base+10000, nil)
	if err != nil {
		t.Fatalf("FileEventsBetween: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d rows, want 1", len(events))
	}
	if events[0].TsUnixMs != base+500 {
		t.Errorf("ts = %d, want %d", events[0].TsUnixMs, base+500)
	}

	// 5s after the stored timestamp: outside the window, a new row.
	third := &FileEvent{TsUnixMs: base + 5500, FilePath: "/p/main.go", EventType: FileEventModified}
	outcome, err = store.UpsertFileEvent(ctx, third, 2*time.Second)
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Errorf("third outcome = %v, want inserted", outcome)
	}

	events, err = store.FileEventsBetween(ctx, 0, base+10000, nil)
	if err != nil {
		t.Fatalf("FileEventsBetween: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d rows, want 2", len(events))
	}
}

func TestUpsertFileEventDistinctTypes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)
	created := &FileEvent{TsUnixMs: base, FilePath: "/p/a.go", EventType: FileEventCreated}
	modified := &FileEvent{TsUnixMs: base + 100, FilePath: "/p/a.go", EventType: FileEventModified}

	if outcome, err := store.UpsertFileEvent(ctx, created, 0); err != nil || outcome != OutcomeInserted {
		t.Fatalf("created: %v %v", outcome, err)
	}
	// Same path, different type, inside the window: still a new row.
	if outcome, err := store.UpsertFileEvent(ctx, modified, 0); err != nil || outcome != OutcomeInserted {
		t.Fatalf("modified: %v %v", outcome, err)
	}
}

func TestUpsertFileEventEarlierInWindowSkipped(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)
	first := &FileEvent{TsUnixMs: base, FilePath: "/p/b.go", EventType: FileEventModified}
	if _, err := store.UpsertFileEvent(ctx, first, 2*time.Second); err != nil {
		t.Fatalf("first: %v", err)
	}

	// An out-of-order duplicate inside the window carries nothing new.
	earlier := &FileEvent{TsUnixMs: base - 300, FilePath: "/p/b.go", EventType: FileEventModified}
	outcome, err := store.UpsertFileEvent(ctx, earlier, 2*time.Second)
	if err != nil {
		t.Fatalf("earlier: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}

	// But it can fill in a size that was unknown.
	withSize := &FileEvent{TsUnixMs: base - 300, FilePath: "/p/b.go", EventType: FileEventModified, FileSize: int64Ptr(2048)}
	outcome, err = store.UpsertFileEvent(ctx, withSize, 2*time.Second)
	if err != nil {
		t.Fatalf("with size: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("outcome = %v, want updated", outcome)
	}

	events, err := store.FileEventsBetween(ctx, 0, base+1000, nil)
	if err != nil {
		t.Fatalf("FileEventsBetween: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d rows, want 1", len(events))
	}
	if events[0].TsUnixMs != base {
		t.Errorf("ts = %d, want %d (later timestamp kept)", events[0].TsUnixMs, base)
	}
	if events[0].FileSize == nil || *events[0].FileSize != 2048 {
		t.Errorf("size = %v, want 2048", events[0].FileSize)
	}
}

func TestUpsertFileEventValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		event *FileEvent
	}{
		{name: "nil", event: nil},
		{name: "no timestamp", event: &FileEvent{FilePath: "/p", EventType: FileEventCreated}},
		{name: "no path", event: &FileEvent{TsUnixMs: 1, EventType: FileEventCreated}},
		{name: "bad type", event: &FileEvent{TsUnixMs: 1, FilePath: "/p", EventType: "renamed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.UpsertFileEvent(ctx, tt.event, 0); !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("err = %v, want ErrMalformedEvent", err)
			}
		})
	}
}

func TestEditClusters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)
	// foo.py edited 4 times, spaced outside the coalescing window.
	for i := 0; i < 4; i++ {
		ev := &FileEvent{TsUnixMs: base + int64(i)*300000, FilePath: "/p/foo.py", EventType: FileEventModified}
		if _, err := store.UpsertFileEvent(ctx, ev, 2*time.Second); err != nil {
			t.Fatalf("foo.py edit %d: %v", i, err)
		}
	}
	// bar.py edited once.
	if _, err := store.UpsertFileEvent(ctx, &FileEvent{
		TsUnixMs: base, FilePath: "/p/bar.py", EventType: FileEventModified,
	}, 2*time.Second); err != nil {
		t.Fatalf("bar.py: %v", err)
	}
	// A deletion does not count as an edit.
	if _, err := store.UpsertFileEvent(ctx, &FileEvent{
		TsUnixMs: base, FilePath: "/p/foo.py", EventType: FileEventDeleted,
	}, 2*time.Second); err != nil {
		t.Fatalf("delete: %v", err)
	}

	clusters, err := store.EditClusters(ctx, base-1, 3)
	if err != nil {
		t.Fatalf("EditClusters: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	c := clusters[0]
	if c.FilePath != "/p/foo.py" || c.EditCount != 4 {
		t.Errorf("cluster = %+v", c)
	}
	if c.FirstSeenMs != base || c.LastSeenMs != base+900000 {
		t.Errorf("span = [%d, %d]", c.FirstSeenMs, c.LastSeenMs)
	}
}

func TestEditClustersSkipCommitAttributed(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)
	for i := 0; i < 3; i++ {
		ev := &FileEvent{TsUnixMs: base + int64(i)*300000, FilePath: "/p/foo.py", EventType: FileEventModified}
		if _, err := store.UpsertFileEvent(ctx, ev, time.Millisecond); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}

	// A commit records its own modified event for the same file. That
	// event describes the commit content, not an editing session.
	summaryText := "wip checkpoint"
	commit := &ActivityEvent{TsUnixMs: base + 150000, EventType: "git_commit", Summary: &summaryText}
	if err := store.InsertActivity(ctx, commit); err != nil {
		t.Fatalf("InsertActivity: %v", err)
	}
	if _, err := store.UpsertFileEvent(ctx, &FileEvent{
		ActivityID: &commit.ID, TsUnixMs: base + 150000, FilePath: "/p/foo.py", EventType: FileEventModified,
	}, time.Millisecond); err != nil {
		t.Fatalf("commit file event: %v", err)
	}

	clusters, err := store.EditClusters(ctx, base-1, 3)
	if err != nil {
		t.Fatalf("EditClusters: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if clusters[0].EditCount != 3 {
		t.Errorf("EditCount = %d, want 3", clusters[0].EditCount)
	}
}
