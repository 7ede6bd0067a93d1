package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/worklog/internal/storage"
)

func seedProjectEdit(t *testing.T, store storage.Store, ts time.Time, path string, projectID *int64) {
	t.Helper()
	_, err := store.UpsertFileEvent(context.Background(), &storage.FileEvent{
		TsUnixMs:  ts.UnixMilli(),
		FilePath:  path,
		EventType: storage.FileEventModified,
		ProjectID: projectID,
	}, time.Millisecond)
	require.NoError(t, err)
}

func TestFocusAnalyzerEmptyWindow(t *testing.T) {
	store := newDetectStore(t)

	a := NewFocusAnalyzer(store, nil)
	report, err := a.Analyze(context.Background(), time.Now(), 14)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalEvents)
	assert.False(t, report.HasPeak)
	assert.Equal(t, -1, report.BestWeekday)
	assert.Empty(t, report.DaySwitches)
}

func TestFocusAnalyzerPeakHours(t *testing.T) {
	store := newDetectStore(t)
	loc := time.UTC
	now := time.Date(2026, 2, 6, 23, 0, 0, 0, loc) // Friday

	// Three events at 21h, one at 22h, one at 09h, all on the same day.
	day := time.Date(2026, 2, 5, 0, 0, 0, 0, loc) // Thursday
	for i, hour := range []int{21, 21, 21, 22, 9} {
		seedProjectEdit(t, store, day.Add(time.Duration(hour)*time.Hour+time.Duration(i)*time.Minute),
			"file.go", nil)
	}

	a := NewFocusAnalyzer(store, nil)
	report, err := a.Analyze(context.Background(), now, 7)
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalEvents)
	assert.True(t, report.HasPeak)
	assert.Equal(t, 21, report.PeakBlockStart)
	assert.Equal(t, "21:00-23:00", report.PeakBlock)
	assert.InDelta(t, 80.0, report.PeakShare, 0.01)
	assert.InDelta(t, 9.0, report.AvgStartHour, 0.01)

	// Thursday is Monday-based index 3.
	assert.Equal(t, 3, report.BestWeekday)
	assert.InDelta(t, 100.0, report.WeekdayShares[3], 0.01)
}

func TestFocusAnalyzerContextSwitches(t *testing.T) {
	store := newDetectStore(t)
	ctx := context.Background()
	loc := time.UTC
	now := time.Date(2026, 2, 6, 12, 0, 0, 0, loc)

	alpha, _, err := store.EnsureProject(ctx, "alpha", "/work/alpha")
	require.NoError(t, err)
	beta, _, err := store.EnsureProject(ctx, "beta", "/work/beta")
	require.NoError(t, err)

	day := time.Date(2026, 2, 5, 10, 0, 0, 0, loc)
	// alpha -> beta -> alpha: two switches; the nil-project event adds one.
	seedProjectEdit(t, store, day, "a1.go", &alpha.ID)
	seedProjectEdit(t, store, day.Add(10*time.Minute), "b1.go", &beta.ID)
	seedProjectEdit(t, store, day.Add(20*time.Minute), "a2.go", &alpha.ID)
	seedProjectEdit(t, store, day.Add(30*time.Minute), "loose.txt", nil)

	// Separate day with no switches.
	other := time.Date(2026, 2, 4, 9, 0, 0, 0, loc)
	seedProjectEdit(t, store, other, "solo.go", &alpha.ID)
	seedProjectEdit(t, store, other.Add(5*time.Minute), "solo2.go", &alpha.ID)

	a := NewFocusAnalyzer(store, nil)
	report, err := a.Analyze(ctx, now, 7)
	require.NoError(t, err)

	assert.Equal(t, 3, report.DaySwitches["2026-02-05"])
	assert.Equal(t, 0, report.DaySwitches["2026-02-04"])
	assert.Equal(t, "2026-02-05", report.MaxSwitchDay)
	assert.Equal(t, 3, report.MaxSwitchCount)
	assert.InDelta(t, 1.5, report.AvgSwitches, 0.01)
}

func TestMondayIndex(t *testing.T) {
	assert.Equal(t, 0, mondayIndex(time.Monday))
	assert.Equal(t, 5, mondayIndex(time.Saturday))
	assert.Equal(t, 6, mondayIndex(time.Sunday))
}
