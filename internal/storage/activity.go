package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertActivity appends a high-level activity event. Activity rows are
// append-only; there is no natural key to dedup on.
func (s *SQLiteStore) InsertActivity(ctx context.Context, ev *ActivityEvent) error {
	if ev == nil {
		return fmt.Errorf("%w: activity event cannot be nil", ErrMalformedEvent)
	}
	if ev.TsUnixMs == 0 {
		return fmt.Errorf("%w: timestamp is required", ErrMalformedEvent)
	}
	if ev.EventType == "" {
		return fmt.Errorf("%w: event_type is required", ErrMalformedEvent)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (
			ts_unix_ms, duration_s, event_type, project_id, app_name, summary, data
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ev.TsUnixMs,
		ev.DurationS,
		ev.EventType,
		ev.ProjectID,
		nullablePtr(ev.AppName),
		nullablePtr(ev.Summary),
		nullablePtr(ev.Data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// ActivityBetween returns activity events with startMs <= ts < endMs,
// ordered by timestamp. A non-nil projectID restricts to that project.
func (s *SQLiteStore) ActivityBetween(ctx context.Context, startMs, endMs int64, projectID *int64) ([]ActivityEvent, error) {
	query := `
		SELECT id, ts_unix_ms, duration_s, event_type, project_id, app_name, summary, data
		FROM activity_log
		WHERE ts_unix_ms >= ? AND ts_unix_ms < ?
	`
	args := []any{startMs, endMs}
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	query += " ORDER BY ts_unix_ms"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var events []ActivityEvent
	for rows.Next() {
		var ev ActivityEvent
		var durationS, projectID sql.NullInt64
		var appName, summary, data sql.NullString
		err := rows.Scan(
			&ev.ID,
			&ev.TsUnixMs,
			&durationS,
			&ev.EventType,
			&projectID,
			&appName,
			&summary,
			&data,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		if durationS.Valid {
			ev.DurationS = &durationS.Int64
		}
		if projectID.Valid {
			ev.ProjectID = &projectID.Int64
		}
		if appName.Valid {
			ev.AppName = &appName.String
		}
		if summary.Valid {
			ev.Summary = &summary.String
		}
		if data.Valid {
			ev.Data = &data.String
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return events, nil
}

// HasCommitInRange reports whether a git_commit activity event touching
// pathToken was recorded in [startMs, endMs]. A commit touches a path when
// one of its linked file_events matches, or when its summary/data text
// mentions the token. An empty token matches any commit in the range.
func (s *SQLiteStore) HasCommitInRange(ctx context.Context, startMs, endMs int64, pathToken string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM activity_log
		WHERE event_type = 'git_commit'
		  AND ts_unix_ms >= ? AND ts_unix_ms <= ?
	`
	args := []any{startMs, endMs}
	if pathToken != "" {
		query += `
		  AND (summary LIKE ? OR data LIKE ?
		       OR EXISTS (
		           SELECT 1 FROM file_events
		           WHERE file_events.activity_id = activity_log.id
		             AND file_events.file_path LIKE ?
		       ))`
		pattern := "%" + pathToken + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count commits: %w", err)
	}
	return count > 0, nil
}

func nullablePtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
