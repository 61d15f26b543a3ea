package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sessionRepo implements SessionRepo over raw SQL.
type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) Active(ctx context.Context, userID string) ([]SessionTask, error) {
	// Most recent session that still has at least one pristine task.
	var sessionID string
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id FROM session_tasks
		WHERE user_id = ? AND pristine = 1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, topic, text, theory, app_id, content,
		       order_index, pristine, created_at
		FROM session_tasks
		WHERE user_id = ? AND session_id = ?
		ORDER BY order_index`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session tasks: %w", err)
	}
	defer rows.Close()

	var out []SessionTask
	for rows.Next() {
		var t SessionTask
		var theory, content string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.Topic, &t.Text,
			&theory, &t.AppID, &content, &t.OrderIndex, &t.Pristine, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session task: %w", err)
		}
		t.Theory = []byte(theory)
		t.Content = []byte(content)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *sessionRepo) CreateTasks(ctx context.Context, tasks []SessionTask) ([]int64, error) {
	stmts := make([]BatchStmt, len(tasks))
	for i, t := range tasks {
		stmts[i] = BatchStmt{
			SQL: `INSERT INTO session_tasks
				(session_id, user_id, topic, text, theory, app_id, content,
				 order_index, pristine, created_at)
			      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{t.SessionID, t.UserID, t.Topic, t.Text, string(t.Theory),
				t.AppID, string(t.Content), t.OrderIndex, t.Pristine, t.CreatedAt},
		}
	}
	ids, err := execBatch(ctx, r.db, stmts)
	if err != nil {
		return nil, fmt.Errorf("create session tasks: %w", err)
	}
	return ids, nil
}

func (r *sessionRepo) MarkDone(ctx context.Context, userID string, taskIDs []int64) error {
	if len(taskIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(taskIDs)-1) + "?"
	args := []any{userID}
	for _, id := range taskIDs {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE session_tasks SET pristine = 0
		 WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark session tasks done: %w", err)
	}
	return nil
}
