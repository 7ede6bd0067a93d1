package vault

import (
	"strings"
	"testing"
	"time"

	"github.com/runger/worklog/internal/period"
	"github.com/runger/worklog/internal/storage"
)

func dailyTestData(t *testing.T) *NoteData {
	t.Helper()
	loc := time.UTC
	day := period.Day(time.Date(2026, 2, 3, 0, 0, 0, 0, loc))

	first := time.Date(2026, 2, 3, 9, 15, 0, 0, loc).UnixMilli()
	last := time.Date(2026, 2, 3, 17, 40, 0, 0, loc).UnixMilli()
	return &NoteData{
		Label:  day.Label,
		Period: day,
		Summary: &storage.Summary{
			ProjectCounts: map[string]storage.ProjectCount{
				"worklog": {AICount: 2, FileCount: 3},
			},
			TotalAI:       2,
			TotalFiles:    3,
			FirstActivity: &first,
			LastActivity:  &last,
			ActiveDays:    1,
		},
		ToolCounts: map[string]int{"claude": 2},
		Timeline: []TimelineEntry{
			{TsMs: first, Project: "worklog", Detail: "claude: fix the flaky test"},
			{TsMs: last, Project: "worklog", Detail: "internal/storage/db.go (modified)"},
		},
		Projects: []ProjectActivity{
			{
				Name:    "worklog",
				StartMs: first,
				EndMs:   last,
				Files: []FileChange{
					{Path: "internal/storage/db.go", Type: "modified"},
				},
				Sessions: []SessionRef{
					{Tool: "claude", Preview: "fix the flaky test"},
				},
			},
		},
	}
}

func TestRenderNoteFreshDaily(t *testing.T) {
	t.Parallel()

	out := RenderNote(KindDaily, dailyTestData(t), "")

	for _, want := range []string{
		"---\n",
		`date: "2026-02-03"`,
		`work_start: "09:15"`,
		`work_end: "17:40"`,
		"tags: [daily]",
		"# 2026-02-03 Worklog",
		"## Summary",
		"AI interactions: **2** (claude: 2)",
		"## Timeline",
		"| 09:15 |",
		"## Per-Project Breakdown",
		"### [[Projects/worklog\\|worklog]]",
		"- `internal/storage/db.go` (modified)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered note missing %q:\n%s", want, out)
		}
	}
}

func TestRenderNoteIdempotent(t *testing.T) {
	t.Parallel()

	data := dailyTestData(t)
	first := RenderNote(KindDaily, data, "")
	second := RenderNote(KindDaily, data, first)
	if first != second {
		t.Errorf("re-render with unchanged inputs changed bytes:\nfirst:  %q\nsecond: %q", first, second)
	}
	third := RenderNote(KindDaily, data, second)
	if second != third {
		t.Errorf("third render changed bytes")
	}
}

func TestRenderNotePreservesUserContent(t *testing.T) {
	t.Parallel()

	data := dailyTestData(t)
	base := RenderNote(KindDaily, data, "")

	edited := base + "\n## My Retro\n\nI felt productive today.\n"

	data.Summary.TotalAI = 9
	data.ToolCounts["claude"] = 9
	out := RenderNote(KindDaily, data, edited)

	if !strings.Contains(out, "## My Retro\n\nI felt productive today.") {
		t.Errorf("user section lost:\n%s", out)
	}
	if !strings.Contains(out, "AI interactions: **9**") {
		t.Errorf("owned section not refreshed:\n%s", out)
	}
	if strings.Contains(out, "AI interactions: **2**") {
		t.Errorf("stale owned content survived:\n%s", out)
	}
}

func TestRenderNotePreservesUnownedFrontmatter(t *testing.T) {
	t.Parallel()

	data := dailyTestData(t)
	base := RenderNote(KindDaily, data, "")
	edited := strings.Replace(base, "tags: [daily]", "tags: [daily]\nmood: great", 1)

	out := RenderNote(KindDaily, data, edited)
	if !strings.Contains(out, "mood: great") {
		t.Errorf("unowned frontmatter field lost:\n%s", out)
	}
}

func TestRenderNoteMalformedFallsBackToAppend(t *testing.T) {
	t.Parallel()

	existing := "---\ndate: 2026-02-03\n\n# fence never closed\nprecious user text\n"
	out := RenderNote(KindDaily, dailyTestData(t), existing)

	if !strings.HasPrefix(out, existing[:len(existing)-1]) {
		t.Errorf("original text not preserved as prefix:\n%s", out)
	}
	if !strings.Contains(out, "precious user text") {
		t.Errorf("user text lost:\n%s", out)
	}
	if !strings.Contains(out, "## Summary") {
		t.Errorf("sections not appended:\n%s", out)
	}
}

func TestRenderNoteWeeklyTable(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	week, err := period.Week(2026, 6, loc)
	if err != nil {
		t.Fatal(err)
	}
	data := &NoteData{
		Label:  week.Label,
		Period: week,
		Summary: &storage.Summary{
			ProjectCounts: map[string]storage.ProjectCount{
				"beta":                    {AICount: 1, FileCount: 0},
				"alpha":                   {AICount: 4, FileCount: 2},
				storage.UnassignedProject: {AICount: 0, FileCount: 1},
			},
			TotalAI:    5,
			TotalFiles: 3,
			ActiveDays: 2,
		},
	}

	out := RenderNote(KindWeekly, data, "")
	if !strings.Contains(out, `week: "2026-W06"`) {
		t.Errorf("week field missing:\n%s", out)
	}
	alpha := strings.Index(out, "[[Projects/alpha\\|alpha]] | 4 | 2")
	beta := strings.Index(out, "[[Projects/beta\\|beta]] | 1 | 0")
	unassigned := strings.Index(out, "[[Projects/unassigned\\|unassigned]] | 0 | 1")
	if alpha == -1 || beta == -1 || unassigned == -1 {
		t.Fatalf("table rows missing:\n%s", out)
	}
	if !(alpha < beta && beta < unassigned) {
		t.Errorf("rows not sorted with unassigned last:\n%s", out)
	}
	if !strings.Contains(out, "active_days: 2") {
		t.Errorf("active_days missing:\n%s", out)
	}
}

func TestRenderNoteBriefing(t *testing.T) {
	t.Parallel()

	data := &NoteData{
		Label:   "2026-02-03",
		Summary: &storage.Summary{ProjectCounts: map[string]storage.ProjectCount{}},
		Items: []BriefingItem{
			{
				FilePath:       "internal/storage/db.go",
				EditCount:      4,
				ElapsedMinutes: 38,
				Related:        []string{"claude: how do I checkpoint WAL..."},
			},
		},
	}

	out := RenderNote(KindBriefing, data, "")
	if !strings.Contains(out, "## Stuck Files") {
		t.Errorf("stuck section missing:\n%s", out)
	}
	if !strings.Contains(out, "4 edits over 38 minutes without a commit") {
		t.Errorf("hint line missing:\n%s", out)
	}
	if !strings.Contains(out, "Similar past session: claude: how do I checkpoint WAL...") {
		t.Errorf("related session missing:\n%s", out)
	}
}

func TestRenderNoteEmptySummary(t *testing.T) {
	t.Parallel()

	data := &NoteData{
		Label:   "2026-02-04",
		Period:  period.Day(time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)),
		Summary: &storage.Summary{ProjectCounts: map[string]storage.ProjectCount{}},
	}

	out := RenderNote(KindDaily, data, "")
	if !strings.Contains(out, `work_start: ""`) {
		t.Errorf("empty work_start expected:\n%s", out)
	}
	if !strings.Contains(out, "| - | - | no activity |") {
		t.Errorf("empty timeline placeholder expected:\n%s", out)
	}
	if !strings.Contains(out, "No project activity recorded.") {
		t.Errorf("empty breakdown placeholder expected:\n%s", out)
	}
}
