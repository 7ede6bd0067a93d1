package storage

import (
	"context"
	"testing"
	"time"

	"github.com/runger/worklog/internal/period"
)

func TestAggregateEmptyPeriod(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	p := period.Day(time.Date(2026, time.February, 21, 0, 0, 0, 0, time.UTC))
	summary, err := store.Aggregate(context.Background(), p, "")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.TotalAI != 0 || summary.TotalFiles != 0 || summary.ActiveDays != 0 {
		t.Errorf("summary = %+v, want zeros", summary)
	}
	if summary.FirstActivity != nil || summary.LastActivity != nil {
		t.Errorf("timestamps not nil: %v %v", summary.FirstActivity, summary.LastActivity)
	}
	if len(summary.ProjectCounts) != 0 {
		t.Errorf("project counts = %v", summary.ProjectCounts)
	}
}

func TestAggregateDay(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	proj, _, err := store.EnsureProject(ctx, "worklog", "")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	day := time.Date(2026, time.February, 21, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) int64 {
		return time.Date(2026, time.February, 21, h, m, 0, 0, time.UTC).UnixMilli()
	}

	// Two prompts and one file event for the project, one unassigned
	// file event, plus noise on the next day.
	for i, ts := range []int64{at(9, 0), at(14, 30)} {
		p := &AIPrompt{TsUnixMs: ts, Tool: "claude-code", SessionID: string(rune('a' + i)), ProjectID: &proj.ID}
		if _, err := store.UpsertAIPrompt(ctx, p); err != nil {
			t.Fatalf("prompt: %v", err)
		}
	}
	if _, err := store.UpsertFileEvent(ctx, &FileEvent{
		TsUnixMs: at(10, 0), FilePath: "/p/a.go", EventType: FileEventModified, ProjectID: &proj.ID,
	}, 0); err != nil {
		t.Fatalf("file event: %v", err)
	}
	if _, err := store.UpsertFileEvent(ctx, &FileEvent{
		TsUnixMs: at(11, 0), FilePath: "/tmp/scratch.txt", EventType: FileEventCreated,
	}, 0); err != nil {
		t.Fatalf("unassigned file event: %v", err)
	}
	if _, err := store.UpsertAIPrompt(ctx, &AIPrompt{
		TsUnixMs: day.AddDate(0, 0, 1).UnixMilli() + 1000, Tool: "claude-code", SessionID: "next-day",
	}); err != nil {
		t.Fatalf("next-day prompt: %v", err)
	}

	summary, err := store.Aggregate(ctx, period.Day(day), "")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.TotalAI != 2 || summary.TotalFiles != 2 {
		t.Errorf("totals = %d ai, %d files", summary.TotalAI, summary.TotalFiles)
	}
	pc := summary.ProjectCounts["worklog"]
	if pc.AICount != 2 || pc.FileCount != 1 {
		t.Errorf("worklog counts = %+v", pc)
	}
	if summary.ProjectCounts[UnassignedProject].FileCount != 1 {
		t.Errorf("unassigned counts = %+v", summary.ProjectCounts[UnassignedProject])
	}
	if summary.FirstActivity == nil || *summary.FirstActivity != at(9, 0) {
		t.Errorf("first = %v", summary.FirstActivity)
	}
	if summary.LastActivity == nil || *summary.LastActivity != at(14, 30) {
		t.Errorf("last = %v", summary.LastActivity)
	}
	if summary.ActiveDays != 1 {
		t.Errorf("active days = %d", summary.ActiveDays)
	}
}

func TestAggregateProjectFilter(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	a, _, err := store.EnsureProject(ctx, "alpha", "")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	b, _, err := store.EnsureProject(ctx, "beta", "")
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	ts := day.Add(9 * time.Hour).UnixMilli()
	for _, tc := range []struct {
		session string
		project *int64
	}{
		{"a1", &a.ID}, {"a2", &a.ID}, {"b1", &b.ID},
	} {
		if _, err := store.UpsertAIPrompt(ctx, &AIPrompt{
			TsUnixMs: ts, Tool: "claude-code", SessionID: tc.session, ProjectID: tc.project,
		}); err != nil {
			t.Fatalf("prompt %s: %v", tc.session, err)
		}
	}

	summary, err := store.Aggregate(ctx, period.Day(day), "alpha")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.TotalAI != 2 {
		t.Errorf("total ai = %d, want 2", summary.TotalAI)
	}
	if _, ok := summary.ProjectCounts["beta"]; ok {
		t.Error("beta leaked into filtered summary")
	}

	// Unknown project: zero summary, not an error.
	summary, err = store.Aggregate(ctx, period.Day(day), "ghost")
	if err != nil {
		t.Fatalf("Aggregate ghost: %v", err)
	}
	if summary.TotalAI != 0 {
		t.Errorf("ghost total = %d", summary.TotalAI)
	}
}

func TestAggregateWeekActiveDays(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	week, err := period.Week(2026, 8, time.UTC)
	if err != nil {
		t.Fatalf("Week: %v", err)
	}

	// Events on Monday, Wednesday, and Wednesday again.
	for i, offset := range []time.Duration{9 * time.Hour, 57 * time.Hour, 58 * time.Hour} {
		if _, err := store.UpsertAIPrompt(ctx, &AIPrompt{
			TsUnixMs:  week.Start.Add(offset).UnixMilli(),
			Tool:      "claude-code",
			SessionID: string(rune('a' + i)),
		}); err != nil {
			t.Fatalf("prompt %d: %v", i, err)
		}
	}

	summary, err := store.Aggregate(ctx, week, "")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.TotalAI != 3 {
		t.Errorf("total ai = %d", summary.TotalAI)
	}
	if summary.ActiveDays != 2 {
		t.Errorf("active days = %d, want 2", summary.ActiveDays)
	}
}

func TestActivityEventsAndCommits(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)
	summaryText := "commit: fix watcher deadlock"
	data := `{"files": ["scripts/foo.py"]}`
	ev := &ActivityEvent{
		TsUnixMs:  base,
		EventType: "git_commit",
		Summary:   &summaryText,
		Data:      &data,
	}
	if err := store.InsertActivity(ctx, ev); err != nil {
		t.Fatalf("InsertActivity: %v", err)
	}
	if ev.ID == 0 {
		t.Error("id not set")
	}

	got, err := store.ActivityBetween(ctx, base-1, base+1, nil)
	if err != nil {
		t.Fatalf("ActivityBetween: %v", err)
	}
	if len(got) != 1 || got[0].EventType != "git_commit" {
		t.Fatalf("events = %+v", got)
	}

	ok, err := store.HasCommitInRange(ctx, base-1000, base+1000, "foo.py")
	if err != nil {
		t.Fatalf("HasCommitInRange: %v", err)
	}
	if !ok {
		t.Error("commit mentioning foo.py not found")
	}

	ok, err = store.HasCommitInRange(ctx, base-1000, base+1000, "bar.py")
	if err != nil {
		t.Fatalf("HasCommitInRange: %v", err)
	}
	if ok {
		t.Error("commit matched wrong path token")
	}

	ok, err = store.HasCommitInRange(ctx, base+1, base+1000, "foo.py")
	if err != nil {
		t.Fatalf("HasCommitInRange: %v", err)
	}
	if ok {
		t.Error("commit matched outside range")
	}
}

func TestHasCommitInRangeLinkedFileEvents(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := int64(1700000000000)
	summaryText := "wip checkpoint"
	ev := &ActivityEvent{
		TsUnixMs:  base,
		EventType: "git_commit",
		Summary:   &summaryText,
	}
	if err := store.InsertActivity(ctx, ev); err != nil {
		t.Fatalf("InsertActivity: %v", err)
	}
	fe := &FileEvent{
		ActivityID: &ev.ID,
		TsUnixMs:   base,
		FilePath:   "scripts/foo.py",
		EventType:  FileEventModified,
	}
	if _, err := store.UpsertFileEvent(ctx, fe, time.Millisecond); err != nil {
		t.Fatalf("UpsertFileEvent: %v", err)
	}

	// Summary never mentions the file; the linked file event does.
	ok, err := store.HasCommitInRange(ctx, base-1000, base+1000, "foo.py")
	if err != nil {
		t.Fatalf("HasCommitInRange: %v", err)
	}
	if !ok {
		t.Error("commit touching foo.py not found via linked file event")
	}

	ok, err = store.HasCommitInRange(ctx, base-1000, base+1000, "bar.py")
	if err != nil {
		t.Fatalf("HasCommitInRange: %v", err)
	}
	if ok {
		t.Error("commit matched a path it never touched")
	}
}

func TestInsertActivityValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertActivity(ctx, &ActivityEvent{EventType: "x"}); err == nil {
		t.Error("missing timestamp accepted")
	}
	if err := store.InsertActivity(ctx, &ActivityEvent{TsUnixMs: 1}); err == nil {
		t.Error("missing event type accepted")
	}
}
