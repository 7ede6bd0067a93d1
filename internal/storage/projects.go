package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureProject registers a project by name, returning the stored row.
// Projects are insert-only: a second call with the same name returns the
// existing row untouched (OutcomeSkipped). Path may be empty.
func (s *SQLiteStore) EnsureProject(ctx context.Context, name, path string) (*Project, Outcome, error) {
	if name == "" {
		return nil, OutcomeSkipped, fmt.Errorf("%w: project name is required", ErrMalformedEvent)
	}

	s.projectsMu.Lock()
	defer s.projectsMu.Unlock()

	existing, err := s.getProjectByName(ctx, name)
	if err == nil {
		return existing, OutcomeSkipped, nil
	}
	if !errors.Is(err, ErrProjectNotFound) {
		return nil, OutcomeSkipped, err
	}

	var pathVal any
	if path != "" {
		pathVal = path
	}
	now := time.Now().UnixMilli()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, path, status, created_at_unix_ms)
		VALUES (?, ?, 'active', ?)
	`, name, pathVal, now)
	if err != nil {
		// Lost a race with another process writing the same name.
		if isDuplicateKeyError(err) {
			p, gerr := s.getProjectByName(ctx, name)
			if gerr != nil {
				return nil, OutcomeSkipped, gerr
			}
			return p, OutcomeSkipped, nil
		}
		return nil, OutcomeSkipped, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, OutcomeSkipped, fmt.Errorf("failed to get project id: %w", err)
	}

	p := &Project{ID: id, Name: name, Status: "active", CreatedAtUnixMs: now}
	if path != "" {
		p.Path = &path
	}
	return p, OutcomeInserted, nil
}

// SetProjectStatus mutates a project's status, the only mutable field.
func (s *SQLiteStore) SetProjectStatus(ctx context.Context, name, status string) error {
	if name == "" {
		return errors.New("project name is required")
	}
	if status == "" {
		return errors.New("status is required")
	}

	s.projectsMu.Lock()
	defer s.projectsMu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET status = ? WHERE name = ?
	`, status, name)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// GetProjectByName looks up a project by its unique name.
func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	return s.getProjectByName(ctx, name)
}

func (s *SQLiteStore) getProjectByName(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, status, created_at_unix_ms
		FROM projects WHERE name = ?
	`, name)
	return scanProject(row)
}

// GetProjectByID looks up a project by row id.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, status, created_at_unix_ms
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects returns all projects ordered by name.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, path, status, created_at_unix_ms
		FROM projects ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var path sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &path, &p.Status, &p.CreatedAtUnixMs); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if path.Valid {
			p.Path = &path.String
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var path sql.NullString
	err := row.Scan(&p.ID, &p.Name, &path, &p.Status, &p.CreatedAtUnixMs)
	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	if path.Valid {
		p.Path = &path.String
	}
	return &p, nil
}
