package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// promptKeyPrefixLen bounds how much prompt/response text feeds the
// derived dedup key, so re-ingested records with identical leading text
// collapse even when a tool re-emits them with trailing differences.
const promptKeyPrefixLen = 256

// PromptDedupKey computes the natural key for an AI prompt row:
// the session id when the tool provides one, otherwise a digest of
// (tool, prompt prefix, response prefix).
func PromptDedupKey(p *AIPrompt) string {
	if p.SessionID != "" {
		return "session:" + p.SessionID
	}
	h := sha256.New()
	h.Write([]byte(p.Tool))
	h.Write([]byte{0})
	h.Write([]byte(truncate(p.PromptText, promptKeyPrefixLen)))
	h.Write([]byte{0})
	h.Write([]byte(truncate(p.ResponseText, promptKeyPrefixLen)))
	return "digest:" + hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// UpsertAIPrompt inserts a prompt row or, when the natural key already
// exists, fills in token counts that were unknown at first ingestion.
// An identical re-ingestion is skipped. The id of the stored row is
// written back to p.
func (s *SQLiteStore) UpsertAIPrompt(ctx context.Context, p *AIPrompt) (Outcome, error) {
	if p == nil {
		return OutcomeSkipped, fmt.Errorf("%w: prompt cannot be nil", ErrMalformedEvent)
	}
	if p.TsUnixMs == 0 {
		return OutcomeSkipped, fmt.Errorf("%w: timestamp is required", ErrMalformedEvent)
	}
	if p.Tool == "" {
		return OutcomeSkipped, fmt.Errorf("%w: tool is required", ErrMalformedEvent)
	}

	key := PromptDedupKey(p)

	s.promptsMu.Lock()
	defer s.promptsMu.Unlock()

	var (
		existingID  int64
		existingIn  sql.NullInt64
		existingOut sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, input_tokens, output_tokens FROM ai_prompts WHERE dedup_key = ?
	`, key)
	err := row.Scan(&existingID, &existingIn, &existingOut)
	switch {
	case err == sql.ErrNoRows:
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO ai_prompts (
				activity_id, ts_unix_ms, tool, project_id,
				prompt_text, response_text, input_tokens, output_tokens,
				session_id, dedup_key
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.ActivityID,
			p.TsUnixMs,
			p.Tool,
			p.ProjectID,
			p.PromptText,
			p.ResponseText,
			p.InputTokens,
			p.OutputTokens,
			nullableString(p.SessionID),
			key,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				// Another process inserted the same key between our read
				// and write; treat as an ordinary duplicate.
				return OutcomeSkipped, nil
			}
			return OutcomeSkipped, fmt.Errorf("failed to insert prompt: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			p.ID = id
		}
		return OutcomeInserted, nil

	case err != nil:
		return OutcomeSkipped, fmt.Errorf("failed to look up prompt: %w", err)
	}

	p.ID = existingID

	// The only permitted update is filling token counts once known.
	fillIn := !existingIn.Valid && p.InputTokens != nil
	fillOut := !existingOut.Valid && p.OutputTokens != nil
	if !fillIn && !fillOut {
		return OutcomeSkipped, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE ai_prompts
		SET input_tokens = COALESCE(input_tokens, ?),
		    output_tokens = COALESCE(output_tokens, ?)
		WHERE id = ?
	`, p.InputTokens, p.OutputTokens, existingID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to update prompt tokens: %w", err)
	}
	return OutcomeUpdated, nil
}

// AIPromptsBetween returns prompts with startMs <= ts < endMs, ordered by
// timestamp. A non-nil projectID restricts to that project.
func (s *SQLiteStore) AIPromptsBetween(ctx context.Context, startMs, endMs int64, projectID *int64) ([]AIPrompt, error) {
	query := `
		SELECT id, activity_id, ts_unix_ms, tool, project_id,
		       prompt_text, response_text, input_tokens, output_tokens, session_id
		FROM ai_prompts
		WHERE ts_unix_ms >= ? AND ts_unix_ms < ?
	`
	args := []any{startMs, endMs}
	if projectID != nil {
		query += " AND project_id = ?"
		args = append(args, *projectID)
	}
	query += " ORDER BY ts_unix_ms"

	return s.queryPrompts(ctx, query, args...)
}

// SearchPrompts returns the most recent prompts whose prompt or response
// text contains keyword, for the "similar past problem" lookup.
func (s *SQLiteStore) SearchPrompts(ctx context.Context, keyword string, limit int) ([]AIPrompt, error) {
	if keyword == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + keyword + "%"
	return s.queryPrompts(ctx, `
		SELECT id, activity_id, ts_unix_ms, tool, project_id,
		       prompt_text, response_text, input_tokens, output_tokens, session_id
		FROM ai_prompts
		WHERE prompt_text LIKE ? OR response_text LIKE ?
		ORDER BY ts_unix_ms DESC
		LIMIT ?
	`, pattern, pattern, limit)
}

// AllPrompts returns every prompt row, ordered by id. Used by the
// sensitive-content scan and clean passes.
func (s *SQLiteStore) AllPrompts(ctx context.Context) ([]AIPrompt, error) {
	return s.queryPrompts(ctx, `
		SELECT id, activity_id, ts_unix_ms, tool, project_id,
		       prompt_text, response_text, input_tokens, output_tokens, session_id
		FROM ai_prompts
		ORDER BY id
	`)
}

// UpdatePromptTexts overwrites the text columns of one prompt row,
// used when masking secrets already persisted.
func (s *SQLiteStore) UpdatePromptTexts(ctx context.Context, id int64, promptText, responseText string) error {
	s.promptsMu.Lock()
	defer s.promptsMu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE ai_prompts SET prompt_text = ?, response_text = ? WHERE id = ?
	`, promptText, responseText, id)
	if err != nil {
		return fmt.Errorf("failed to update prompt texts: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("prompt %d not found", id)
	}
	return nil
}

func (s *SQLiteStore) queryPrompts(ctx context.Context, query string, args ...any) ([]AIPrompt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []AIPrompt
	for rows.Next() {
		var p AIPrompt
		var activityID, projectID, inTokens, outTokens sql.NullInt64
		var sessionID sql.NullString
		err := rows.Scan(
			&p.ID,
			&activityID,
			&p.TsUnixMs,
			&p.Tool,
			&projectID,
			&p.PromptText,
			&p.ResponseText,
			&inTokens,
			&outTokens,
			&sessionID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		if activityID.Valid {
			p.ActivityID = &activityID.Int64
		}
		if projectID.Valid {
			p.ProjectID = &projectID.Int64
		}
		if inTokens.Valid {
			p.InputTokens = &inTokens.Int64
		}
		if outTokens.Valid {
			p.OutputTokens = &outTokens.Int64
		}
		if sessionID.Valid {
			p.SessionID = sessionID.String
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}
	return prompts, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
