package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

// UserPostgres implements widget user reads for PostgreSQL
type UserPostgres struct {
	db DB
}

// NewUserPostgres creates a new PostgreSQL widget user repository
func NewUserPostgres(db DB) *UserPostgres {
	return &UserPostgres{db: db}
}

func userRangeClause(filter entity.UserFilter) string {
	if filter.ToInclusive {
		return "workspace_id = $1 AND created_at >= $2 AND created_at <= $3"
	}
	return "workspace_id = $1 AND created_at >= $2 AND created_at < $3"
}

// Count returns the number of widget users created in the filter's range
func (r *UserPostgres) Count(ctx context.Context, filter entity.UserFilter) (int, error) {
	query := "SELECT COUNT(*) FROM widget_users WHERE " + userRangeClause(filter)

	var count int
	err := r.db.QueryRow(ctx, query, filter.WorkspaceID, filter.From, filter.To).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting widget users: %w", err)
	}
	return count, nil
}

// ListCreatedAt returns the creation time of every widget user in the filter's range
func (r *UserPostgres) ListCreatedAt(ctx context.Context, filter entity.UserFilter) ([]time.Time, error) {
	query := "SELECT created_at FROM widget_users WHERE " + userRangeClause(filter) + " ORDER BY created_at"

	rows, err := r.db.Query(ctx, query, filter.WorkspaceID, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("querying widget users: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning widget user row: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating widget user rows: %w", err)
	}

	return times, nil
}
