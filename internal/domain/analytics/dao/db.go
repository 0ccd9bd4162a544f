package dao

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DB is the part of *pgxpool.Pool the repositories read through
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
