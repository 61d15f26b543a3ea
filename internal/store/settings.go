package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Spelling variants. "ch" rewrites standard German orthography to the
// Swiss convention on outbound content.
const (
	SpellingGerman = "de"
	SpellingSwiss  = "ch"
)

// settingsRepo implements SettingsRepo over raw SQL.
type settingsRepo struct {
	db *sql.DB
}

func (r *settingsRepo) SpellingVariant(ctx context.Context, userID string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx,
		`SELECT spelling_variant FROM user_settings WHERE user_id = ?`, userID).Scan(&v)
	if err == sql.ErrNoRows {
		return SpellingGerman, nil
	}
	if err != nil {
		return "", fmt.Errorf("query spelling variant: %w", err)
	}
	return v, nil
}

func (r *settingsRepo) SetSpellingVariant(ctx context.Context, userID, variant string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, spelling_variant) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET spelling_variant = excluded.spelling_variant`,
		userID, variant)
	if err != nil {
		return fmt.Errorf("set spelling variant: %w", err)
	}
	return nil
}
