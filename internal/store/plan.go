package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// planRepo implements PlanRepo over raw SQL.
type planRepo struct {
	db *sql.DB
}

func (r *planRepo) Active(ctx context.Context, userID string) (*LearningPlan, []PlanTask, error) {
	var p LearningPlan
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, status, total_days, created_at, completed_at
		FROM learning_plans
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1`, userID, PlanActive).
		Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Status,
			&p.TotalDays, &p.CreatedAt, &p.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find active plan: %w", err)
	}

	tasks, err := r.tasksForPlan(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return &p, tasks, nil
}

func (r *planRepo) tasksForPlan(ctx context.Context, planID string) ([]PlanTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, plan_id, day_number, order_index, app_id, content_id, completed, completed_at
		FROM plan_tasks
		WHERE plan_id = ?
		ORDER BY day_number, order_index`, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan tasks: %w", err)
	}
	defer rows.Close()

	var out []PlanTask
	for rows.Next() {
		var t PlanTask
		if err := rows.Scan(&t.ID, &t.PlanID, &t.DayNumber, &t.OrderIndex,
			&t.AppID, &t.ContentID, &t.Completed, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan plan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *planRepo) Create(ctx context.Context, plan LearningPlan, tasks []PlanTask) error {
	stmts := make([]BatchStmt, 0, len(tasks)+2)

	// Abandoning the previous active plan inside the same transaction is
	// what enforces the at-most-one-active invariant.
	stmts = append(stmts, BatchStmt{
		SQL:  `UPDATE learning_plans SET status = ? WHERE user_id = ? AND status = ?`,
		Args: []any{PlanAbandoned, plan.UserID, PlanActive},
	})
	stmts = append(stmts, BatchStmt{
		SQL: `INSERT INTO learning_plans
			(id, user_id, title, description, status, total_days, created_at, completed_at)
		      VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		Args: []any{plan.ID, plan.UserID, plan.Title, plan.Description,
			plan.Status, plan.TotalDays, plan.CreatedAt, plan.CompletedAt},
	})
	for _, t := range tasks {
		stmts = append(stmts, BatchStmt{
			SQL: `INSERT INTO plan_tasks
				(plan_id, day_number, order_index, app_id, content_id, completed, completed_at)
			      VALUES (?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{plan.ID, t.DayNumber, t.OrderIndex, t.AppID,
				t.ContentID, t.Completed, t.CompletedAt},
		})
	}

	if _, err := execBatch(ctx, r.db, stmts); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *planRepo) AbandonActive(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE learning_plans SET status = ? WHERE user_id = ? AND status = ?`,
		PlanAbandoned, userID, PlanActive)
	if err != nil {
		return fmt.Errorf("abandon plan: %w", err)
	}
	return nil
}

func (r *planRepo) CompleteTasks(ctx context.Context, userID string, taskIDs []int64, now time.Time) (bool, error) {
	if len(taskIDs) == 0 {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete tasks: %w", err)
	}
	defer tx.Rollback()

	var planID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM learning_plans WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`, userID, PlanActive).Scan(&planID)
	if err == sql.ErrNoRows {
		// No active plan: nothing to complete, and terminal plans stay
		// untouched.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find active plan: %w", err)
	}

	placeholders := strings.Repeat("?,", len(taskIDs)-1) + "?"
	args := []any{now, planID}
	for _, id := range taskIDs {
		args = append(args, id)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE plan_tasks SET completed = 1, completed_at = ?
		 WHERE plan_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("complete plan tasks: %w", err)
	}

	// Auto-close: re-checked on every completion call.
	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plan_tasks WHERE plan_id = ? AND completed = 0`,
		planID).Scan(&remaining)
	if err != nil {
		return false, fmt.Errorf("count remaining tasks: %w", err)
	}

	completed := false
	if remaining == 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE learning_plans SET status = ?, completed_at = ? WHERE id = ?`,
			PlanCompleted, now, planID)
		if err != nil {
			return false, fmt.Errorf("complete plan: %w", err)
		}
		completed = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit complete tasks: %w", err)
	}
	return completed, nil
}
