package store

import (
	"context"
	"database/sql"
	"fmt"
)

// progressRepo implements ProgressRepo over raw SQL.
type progressRepo struct {
	db *sql.DB
}

func (r *progressRepo) ForUser(ctx context.Context, userID string) ([]ProgressRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.user_id, p.app_id, a.name, p.content_id, c.payload,
		       c.skill_level, p.success_count, p.failure_count, p.last_attempt_at
		FROM question_progress p
		JOIN apps a ON a.id = p.app_id
		JOIN content_items c ON c.id = p.content_id
		WHERE p.user_id = ?
		ORDER BY p.failure_count DESC, p.success_count ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []ProgressRow
	for rows.Next() {
		var p ProgressRow
		var payload string
		if err := rows.Scan(&p.UserID, &p.AppID, &p.AppName, &p.ContentID, &payload,
			&p.SkillLevel, &p.SuccessCount, &p.FailureCount, &p.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.Payload = []byte(payload)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *progressRepo) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM question_progress WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	return n, nil
}

func (r *progressRepo) Record(ctx context.Context, row ProgressRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO question_progress
			(user_id, app_id, content_id, success_count, failure_count, last_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, app_id, content_id) DO UPDATE SET
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			last_attempt_at = excluded.last_attempt_at`,
		row.UserID, row.AppID, row.ContentID,
		row.SuccessCount, row.FailureCount, row.LastAttemptAt)
	if err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}
