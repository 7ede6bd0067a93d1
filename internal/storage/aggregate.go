package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runger/worklog/internal/period"
)

// UnassignedProject is the Summary key for events with no resolved project.
const UnassignedProject = "unassigned"

// Aggregate computes the roll-up for one reporting period, optionally
// restricted to a single project by name. It is read-only; an empty
// period (or an unknown project name) yields a zero Summary with nil
// timestamps, never an error.
func (s *SQLiteStore) Aggregate(ctx context.Context, p period.Period, projectName string) (*Summary, error) {
	summary := &Summary{ProjectCounts: make(map[string]ProjectCount)}

	var projectID *int64
	if projectName != "" {
		proj, err := s.GetProjectByName(ctx, projectName)
		if errors.Is(err, ErrProjectNotFound) {
			return summary, nil
		}
		if err != nil {
			return nil, err
		}
		projectID = &proj.ID
	}

	startMs, endMs := p.StartUnixMs(), p.EndUnixMs()

	if err := s.countByProject(ctx, "ai_prompts", startMs, endMs, projectID, func(name string, n int) {
		pc := summary.ProjectCounts[name]
		pc.AICount = n
		summary.ProjectCounts[name] = pc
		summary.TotalAI += n
	}); err != nil {
		return nil, err
	}

	if err := s.countByProject(ctx, "file_events", startMs, endMs, projectID, func(name string, n int) {
		pc := summary.ProjectCounts[name]
		pc.FileCount = n
		summary.ProjectCounts[name] = pc
		summary.TotalFiles += n
	}); err != nil {
		return nil, err
	}

	if err := s.fillActivitySpan(ctx, summary, startMs, endMs, projectID, p.Start.Location()); err != nil {
		return nil, err
	}

	return summary, nil
}

// countByProject runs a grouped count over one event table and feeds each
// (project name, count) pair to emit. Events without a project land under
// UnassignedProject.
func (s *SQLiteStore) countByProject(ctx context.Context, table string, startMs, endMs int64, projectID *int64, emit func(name string, n int)) error {
	query := fmt.Sprintf(`
		SELECT COALESCE(pr.name, '%s') AS project_name, COUNT(*)
		FROM %s ev
		LEFT JOIN projects pr ON ev.project_id = pr.id
		WHERE ev.ts_unix_ms >= ? AND ev.ts_unix_ms < ?
	`, UnassignedProject, table)
	args := []any{startMs, endMs}
	if projectID != nil {
		query += " AND ev.project_id = ?"
		args = append(args, *projectID)
	}
	query += " GROUP BY project_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return fmt.Errorf("failed to scan %s aggregate: %w", table, err)
		}
		emit(name, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s aggregate: %w", table, err)
	}
	return nil
}

// fillActivitySpan sets first/last activity timestamps and the count of
// distinct local days with any event, across all three event tables.
func (s *SQLiteStore) fillActivitySpan(ctx context.Context, summary *Summary, startMs, endMs int64, projectID *int64, loc *time.Location) error {
	query := `
		SELECT ts_unix_ms FROM ai_prompts WHERE ts_unix_ms >= ? AND ts_unix_ms < ?
	`
	args := []any{startMs, endMs}
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	query += `
		UNION ALL
		SELECT ts_unix_ms FROM file_events WHERE ts_unix_ms >= ? AND ts_unix_ms < ?
	`
	args = append(args, startMs, endMs)
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	query += `
		UNION ALL
		SELECT ts_unix_ms FROM activity_log WHERE ts_unix_ms >= ? AND ts_unix_ms < ?
	`
	args = append(args, startMs, endMs)
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query activity span: %w", err)
	}
	defer rows.Close()

	days := make(map[string]struct{})
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return fmt.Errorf("failed to scan activity span: %w", err)
		}
		if summary.FirstActivity == nil || ts < *summary.FirstActivity {
			v := ts
			summary.FirstActivity = &v
		}
		if summary.LastActivity == nil || ts > *summary.LastActivity {
			v := ts
			summary.LastActivity = &v
		}
		days[time.UnixMilli(ts).In(loc).Format("2006-01-02")] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating activity span: %w", err)
	}
	summary.ActiveDays = len(days)
	return nil
}
