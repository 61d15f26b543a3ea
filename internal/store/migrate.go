package store

import (
	"database/sql"
	"fmt"
)

// migrate creates all tables that don't exist yet. The schema is additive
// only; there is no versioned migration history.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS apps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			task_schema TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS content_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			app_id INTEGER NOT NULL REFERENCES apps(id),
			payload TEXT NOT NULL,
			skill_level TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_content_app ON content_items(app_id)`,
		`CREATE TABLE IF NOT EXISTS question_progress (
			user_id TEXT NOT NULL,
			app_id INTEGER NOT NULL,
			content_id INTEGER NOT NULL,
			success_count INTEGER NOT NULL DEFAULT 0 CHECK (success_count >= 0),
			failure_count INTEGER NOT NULL DEFAULT 0 CHECK (failure_count >= 0),
			last_attempt_at TIMESTAMP,
			PRIMARY KEY (user_id, app_id, content_id)
		)`,
		`CREATE TABLE IF NOT EXISTS session_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			theory TEXT NOT NULL DEFAULT '[]',
			app_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			pristine INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_tasks_user ON session_tasks(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS learning_plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active'
				CHECK (status IN ('active', 'completed', 'abandoned')),
			total_days INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_user ON learning_plans(user_id, status)`,
		`CREATE TABLE IF NOT EXISTS plan_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plan_id TEXT NOT NULL REFERENCES learning_plans(id),
			day_number INTEGER NOT NULL,
			order_index INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			content_id INTEGER NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plan_tasks_plan ON plan_tasks(plan_id, day_number, order_index)`,
		`CREATE TABLE IF NOT EXISTS curriculum_nodes (
			code TEXT PRIMARY KEY,
			fachbereich TEXT NOT NULL,
			level TEXT NOT NULL,
			parent_code TEXT,
			zyklus INTEGER,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS curriculum_progress (
			user_id TEXT NOT NULL,
			node_code TEXT NOT NULL,
			mastery_level INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'not_started'
				CHECK (status IN ('not_started', 'started', 'completed')),
			PRIMARY KEY (user_id, node_code)
		)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id TEXT PRIMARY KEY,
			spelling_variant TEXT NOT NULL DEFAULT 'de'
		)`,
		`CREATE TABLE IF NOT EXISTS llm_request_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL DEFAULT '',
			purpose TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL DEFAULT '',
			response TEXT NOT NULL DEFAULT '',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			success INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
