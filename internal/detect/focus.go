package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/runger/worklog/internal/storage"
)

// DefaultFocusDays is the trailing window for focus analysis.
const DefaultFocusDays = 14

// FocusReport summarizes work rhythm over a trailing window. Weekday
// indexes are Monday-based (0 = Monday).
type FocusReport struct {
	Days        int
	TotalEvents int

	HourCounts     [24]int
	PeakBlockStart int
	PeakBlock      string
	PeakShare      float64
	AvgStartHour   float64
	HasPeak        bool

	WeekdayCounts [7]int
	WeekdayShares [7]float64
	BestWeekday   int

	DaySwitches    map[string]int
	AvgSwitches    float64
	MaxSwitchDay   string
	MaxSwitchCount int
}

// FocusAnalyzer computes peak hours, weekday shares, and context switches
// from file and activity events.
type FocusAnalyzer struct {
	store  storage.Store
	logger *slog.Logger
}

// NewFocusAnalyzer returns an analyzer over the given store.
func NewFocusAnalyzer(store storage.Store, logger *slog.Logger) *FocusAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FocusAnalyzer{store: store, logger: logger}
}

// Analyze builds a report for the trailing days window ending at now.
// Timestamps are bucketed in now's location.
func (a *FocusAnalyzer) Analyze(ctx context.Context, now time.Time, days int) (*FocusReport, error) {
	if days <= 0 {
		days = DefaultFocusDays
	}
	loc := now.Location()
	endMs := now.UnixMilli()
	startMs := now.AddDate(0, 0, -days).UnixMilli()

	files, err := a.store.FileEventsBetween(ctx, startMs, endMs, nil)
	if err != nil {
		return nil, fmt.Errorf("file events: %w", err)
	}
	activity, err := a.store.ActivityBetween(ctx, startMs, endMs, nil)
	if err != nil {
		return nil, fmt.Errorf("activity events: %w", err)
	}

	report := &FocusReport{Days: days, BestWeekday: -1, DaySwitches: map[string]int{}}

	timestamps := make([]int64, 0, len(files)+len(activity))
	for _, f := range files {
		timestamps = append(timestamps, f.TsUnixMs)
	}
	for _, ev := range activity {
		timestamps = append(timestamps, ev.TsUnixMs)
	}
	a.fillHourAndWeekday(report, timestamps, loc)
	a.fillSwitches(report, files, loc)
	return report, nil
}

func (a *FocusAnalyzer) fillHourAndWeekday(r *FocusReport, timestamps []int64, loc *time.Location) {
	startHourPerDay := make(map[string]int)
	for _, ts := range timestamps {
		t := time.UnixMilli(ts).In(loc)
		r.HourCounts[t.Hour()]++
		r.WeekdayCounts[mondayIndex(t.Weekday())]++
		r.TotalEvents++

		day := t.Format("2006-01-02")
		if h, ok := startHourPerDay[day]; !ok || t.Hour() < h {
			startHourPerDay[day] = t.Hour()
		}
	}
	if r.TotalEvents == 0 {
		return
	}

	// Best contiguous 2-hour block, wrapping past midnight.
	bestStart, bestCount := 0, -1
	for h := 0; h < 24; h++ {
		count := r.HourCounts[h] + r.HourCounts[(h+1)%24]
		if count > bestCount {
			bestStart, bestCount = h, count
		}
	}
	r.HasPeak = true
	r.PeakBlockStart = bestStart
	r.PeakBlock = fmt.Sprintf("%02d:00-%02d:00", bestStart, (bestStart+2)%24)
	r.PeakShare = float64(bestCount) / float64(r.TotalEvents) * 100

	var startSum int
	for _, h := range startHourPerDay {
		startSum += h
	}
	r.AvgStartHour = float64(startSum) / float64(len(startHourPerDay))

	best := -1
	for i, c := range r.WeekdayCounts {
		r.WeekdayShares[i] = float64(c) / float64(r.TotalEvents) * 100
		if best == -1 || c > r.WeekdayCounts[best] {
			best = i
		}
	}
	r.BestWeekday = best
}

// fillSwitches counts, per local day, adjacent file-event pairs whose
// project differs from the previous event's.
func (a *FocusAnalyzer) fillSwitches(r *FocusReport, files []storage.FileEvent, loc *time.Location) {
	sort.SliceStable(files, func(i, j int) bool { return files[i].TsUnixMs < files[j].TsUnixMs })

	type dayState struct {
		prev     int64
		prevSet  bool
		switches int
	}
	states := make(map[string]*dayState)
	for _, f := range files {
		day := time.UnixMilli(f.TsUnixMs).In(loc).Format("2006-01-02")
		st, ok := states[day]
		if !ok {
			st = &dayState{}
			states[day] = st
		}
		cur := projectKey(f.ProjectID)
		if st.prevSet && cur != st.prev {
			st.switches++
		}
		st.prev, st.prevSet = cur, true
	}

	var total int
	for day, st := range states {
		r.DaySwitches[day] = st.switches
		total += st.switches
		if st.switches > r.MaxSwitchCount || (st.switches == r.MaxSwitchCount && (r.MaxSwitchDay == "" || day < r.MaxSwitchDay)) {
			r.MaxSwitchCount = st.switches
			r.MaxSwitchDay = day
		}
	}
	if len(states) > 0 {
		r.AvgSwitches = float64(total) / float64(len(states))
	}
}

// projectKey folds the nullable project id into a comparable value; events
// without a project share one bucket.
func projectKey(id *int64) int64 {
	if id == nil {
		return -1
	}
	return *id
}

// mondayIndex converts Go's Sunday-based weekday to a Monday-based index.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
