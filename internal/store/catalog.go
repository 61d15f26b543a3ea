package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// catalogRepo implements CatalogRepo over raw SQL.
type catalogRepo struct {
	db *sql.DB
}

func (r *catalogRepo) Apps(ctx context.Context) ([]App, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, task_schema FROM apps ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query apps: %w", err)
	}
	defer rows.Close()
	return scanApps(rows)
}

func (r *catalogRepo) RandomApps(ctx context.Context, n int) ([]App, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, task_schema FROM apps ORDER BY RANDOM() LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query random apps: %w", err)
	}
	defer rows.Close()
	return scanApps(rows)
}

func scanApps(rows *sql.Rows) ([]App, error) {
	var out []App
	for rows.Next() {
		var a App
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.TaskSchema); err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *catalogRepo) ContentByIDs(ctx context.Context, ids []int64) (map[int64]ContentItem, error) {
	out := make(map[int64]ContentItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, app_id, payload, skill_level FROM content_items
		 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query content by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out[item.ID] = item
	}
	return out, rows.Err()
}

func (r *catalogRepo) UnseenContent(ctx context.Context, userID string, limit int) ([]ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.app_id, c.payload, c.skill_level
		FROM content_items c
		WHERE c.id NOT IN (
			SELECT content_id FROM question_progress WHERE user_id = ?
		)
		ORDER BY RANDOM() LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query unseen content: %w", err)
	}
	defer rows.Close()

	var out []ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanContent(rows *sql.Rows) (ContentItem, error) {
	var item ContentItem
	var payload string
	if err := rows.Scan(&item.ID, &item.AppID, &payload, &item.SkillLevel); err != nil {
		return ContentItem{}, fmt.Errorf("scan content item: %w", err)
	}
	item.Payload = []byte(payload)
	return item, nil
}

func (r *catalogRepo) InsertApp(ctx context.Context, app App) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO apps (name, description, task_schema) VALUES (?, ?, ?)`,
		app.Name, app.Description, app.TaskSchema)
	if err != nil {
		return 0, fmt.Errorf("insert app: %w", err)
	}
	return res.LastInsertId()
}

func (r *catalogRepo) InsertContent(ctx context.Context, item ContentItem) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO content_items (app_id, payload, skill_level) VALUES (?, ?, ?)`,
		item.AppID, string(item.Payload), item.SkillLevel)
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}
	return res.LastInsertId()
}
