package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultCoalesceWindow is how close together two save events for the
// same path must be to collapse into a single row.
const DefaultCoalesceWindow = 2 * time.Second

// UpsertFileEvent records a file-change observation. If the most recent
// stored event for the same (path, type) lies within the coalescing
// window, the candidate collapses into it: the stored row keeps the later
// timestamp and any newly known file size. Outside the window a new row
// is created. The id of the stored row is written back to ev.
func (s *SQLiteStore) UpsertFileEvent(ctx context.Context, ev *FileEvent, window time.Duration) (Outcome, error) {
	if ev == nil {
		return OutcomeSkipped, fmt.Errorf("%w: file event cannot be nil", ErrMalformedEvent)
	}
	if ev.TsUnixMs == 0 {
		return OutcomeSkipped, fmt.Errorf("%w: timestamp is required", ErrMalformedEvent)
	}
	if ev.FilePath == "" {
		return OutcomeSkipped, fmt.Errorf("%w: file_path is required", ErrMalformedEvent)
	}
	switch ev.EventType {
	case FileEventCreated, FileEventModified, FileEventDeleted:
	default:
		return OutcomeSkipped, fmt.Errorf("%w: unknown event_type %q", ErrMalformedEvent, ev.EventType)
	}
	if window <= 0 {
		window = DefaultCoalesceWindow
	}

	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	var (
		existingID   int64
		existingTs   int64
		existingSize sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ts_unix_ms, file_size
		FROM file_events
		WHERE file_path = ? AND event_type = ?
		ORDER BY ts_unix_ms DESC
		LIMIT 1
	`, ev.FilePath, ev.EventType)
	err := row.Scan(&existingID, &existingTs, &existingSize)
	if err != nil && err != sql.ErrNoRows {
		return OutcomeSkipped, fmt.Errorf("failed to look up file event: %w", err)
	}

	windowMs := window.Milliseconds()
	inWindow := err == nil && absInt64(ev.TsUnixMs-existingTs) <= windowMs

	if !inWindow {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO file_events (
				activity_id, ts_unix_ms, file_path, event_type, project_id, file_size
			) VALUES (?, ?, ?, ?, ?, ?)
		`, ev.ActivityID, ev.TsUnixMs, ev.FilePath, ev.EventType, ev.ProjectID, ev.FileSize)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("failed to insert file event: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			ev.ID = id
		}
		return OutcomeInserted, nil
	}

	ev.ID = existingID

	// Collapse into the stored row: advance its timestamp when the
	// candidate is later, fill a size that was unknown before.
	advanceTs := ev.TsUnixMs > existingTs
	fillSize := !existingSize.Valid && ev.FileSize != nil
	if !advanceTs && !fillSize {
		return OutcomeSkipped, nil
	}

	newTs := existingTs
	if advanceTs {
		newTs = ev.TsUnixMs
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE file_events
		SET ts_unix_ms = ?, file_size = COALESCE(?, file_size)
		WHERE id = ?
	`, newTs, ev.FileSize, existingID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to coalesce file event: %w", err)
	}
	return OutcomeUpdated, nil
}

// FileEventsBetween returns file events with startMs <= ts < endMs,
// ordered by timestamp. A non-nil projectID restricts to that project.
func (s *SQLiteStore) FileEventsBetween(ctx context.Context, startMs, endMs int64, projectID *int64) ([]FileEvent, error) {
	query := `
		SELECT id, activity_id, ts_unix_ms, file_path, event_type, project_id, file_size
		FROM file_events
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
		return nil, fmt.Errorf("failed to query file events: %w", err)
	}
	defer rows.Close()

	var events []FileEvent
	for rows.Next() {
		var ev FileEvent
		var activityID, projectID, fileSize sql.NullInt64
		err := rows.Scan(
			&ev.ID,
			&activityID,
			&ev.TsUnixMs,
			&ev.FilePath,
			&ev.EventType,
			&projectID,
			&fileSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file event: %w", err)
		}
		if activityID.Valid {
			ev.ActivityID = &activityID.Int64
		}
		if projectID.Valid {
			ev.ProjectID = &projectID.Int64
		}
		if fileSize.Valid {
			ev.FileSize = &fileSize.Int64
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file events: %w", err)
	}
	return events, nil
}

// EditClusters groups created/modified events since sinceMs by path and
// returns clusters with at least minEdits events, busiest first. File
// events attributed to a git_commit activity record the commit's content,
// not an editing session, so they do not count as edits.
func (s *SQLiteStore) EditClusters(ctx context.Context, sinceMs int64, minEdits int) ([]EditCluster, error) {
	if minEdits <= 0 {
		minEdits = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, COUNT(*) AS edit_count,
		       MIN(ts_unix_ms) AS first_seen, MAX(ts_unix_ms) AS last_seen
		FROM file_events
		WHERE event_type IN (?, ?) AND ts_unix_ms >= ?
		  AND (activity_id IS NULL OR activity_id NOT IN (
		       SELECT id FROM activity_log WHERE event_type = 'git_commit'))
		GROUP BY file_path
		HAVING COUNT(*) >= ?
		ORDER BY COUNT(*) DESC
	`, FileEventCreated, FileEventModified, sinceMs, minEdits)
	if err != nil {
		return nil, fmt.Errorf("failed to query edit clusters: %w", err)
	}
	defer rows.Close()

	var clusters []EditCluster
	for rows.Next() {
		var c EditCluster
		if err := rows.Scan(&c.FilePath, &c.EditCount, &c.FirstSeenMs, &c.LastSeenMs); err != nil {
			return nil, fmt.Errorf("failed to scan edit cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edit clusters: %w", err)
	}
	return clusters, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
