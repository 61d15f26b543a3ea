package store

import (
	"context"
	"database/sql"
	"fmt"
)

// BatchStmt is one parameterized write inside an atomic batch.
type BatchStmt struct {
	SQL  string
	Args []any
}

// execBatch runs all statements inside one transaction and returns the
// last-insert id of each statement in submission order. Either every
// statement is applied or none is.
func execBatch(ctx context.Context, db *sql.DB, stmts []BatchStmt) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(stmts))
	for _, st := range stmts {
		res, err := tx.ExecContext(ctx, st.SQL, st.Args...)
		if err != nil {
			return nil, fmt.Errorf("batch statement: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			id = 0
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return ids, nil
}
