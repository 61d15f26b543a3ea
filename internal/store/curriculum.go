package store

import (
	"context"
	"database/sql"
	"fmt"
)

// curriculumRepo implements CurriculumRepo over raw SQL.
type curriculumRepo struct {
	db *sql.DB
}

func (r *curriculumRepo) Nodes(ctx context.Context, maxZyklus *int, fachbereich string) ([]CurriculumNode, error) {
	query := `SELECT code, fachbereich, level, parent_code, zyklus, title, description
		  FROM curriculum_nodes WHERE 1=1`
	var args []any
	if maxZyklus != nil {
		query += ` AND (zyklus IS NULL OR zyklus <= ?)`
		args = append(args, *maxZyklus)
	}
	if fachbereich != "" {
		query += ` AND fachbereich = ?`
		args = append(args, fachbereich)
	}
	query += ` ORDER BY code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query curriculum nodes: %w", err)
	}
	defer rows.Close()

	var out []CurriculumNode
	for rows.Next() {
		var n CurriculumNode
		if err := rows.Scan(&n.Code, &n.Fachbereich, &n.Level, &n.ParentCode,
			&n.Zyklus, &n.Title, &n.Description); err != nil {
			return nil, fmt.Errorf("scan curriculum node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *curriculumRepo) ProgressForUser(ctx context.Context, userID string) (map[string]CurriculumProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, node_code, mastery_level, status
		 FROM curriculum_progress WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query curriculum progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]CurriculumProgress)
	for rows.Next() {
		var p CurriculumProgress
		if err := rows.Scan(&p.UserID, &p.NodeCode, &p.MasteryLevel, &p.Status); err != nil {
			return nil, fmt.Errorf("scan curriculum progress: %w", err)
		}
		out[p.NodeCode] = p
	}
	return out, rows.Err()
}

func (r *curriculumRepo) InsertNode(ctx context.Context, node CurriculumNode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO curriculum_nodes
			(code, fachbereich, level, parent_code, zyklus, title, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			fachbereich = excluded.fachbereich,
			level = excluded.level,
			parent_code = excluded.parent_code,
			zyklus = excluded.zyklus,
			title = excluded.title,
			description = excluded.description`,
		node.Code, node.Fachbereich, node.Level, node.ParentCode,
		node.Zyklus, node.Title, node.Description)
	if err != nil {
		return fmt.Errorf("insert curriculum node: %w", err)
	}
	return nil
}

func (r *curriculumRepo) UpsertProgress(ctx context.Context, p CurriculumProgress) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO curriculum_progress (user_id, node_code, mastery_level, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, node_code) DO UPDATE SET
			mastery_level = excluded.mastery_level,
			status = excluded.status`,
		p.UserID, p.NodeCode, p.MasteryLevel, p.Status)
	if err != nil {
		return fmt.Errorf("upsert curriculum progress: %w", err)
	}
	return nil
}
