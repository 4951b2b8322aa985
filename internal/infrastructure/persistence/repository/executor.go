package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/garyjia/referral-workflow/internal/infrastructure/persistence/sqlite"
)

// getExecutor returns the transaction in ctx, or db when there is none
func getExecutor(ctx context.Context, db *sql.DB) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, db)
}

// nullableTime converts an optional timestamp for storage in UTC
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// nullableInt64 converts an optional foreign key for storage
func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
