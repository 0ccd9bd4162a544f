package dao

import (
	"context"
	"fmt"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

// WidgetPostgres implements widget lookups for PostgreSQL
type WidgetPostgres struct {
	db DB
}

// NewWidgetPostgres creates a new PostgreSQL widget repository
func NewWidgetPostgres(db DB) *WidgetPostgres {
	return &WidgetPostgres{db: db}
}

// GetByWorkspaceID retrieves all widgets owned by a workspace
func (r *WidgetPostgres) GetByWorkspaceID(ctx context.Context, workspaceID string) ([]entity.Widget, error) {
	query := `
		SELECT id::text, workspace_id::text, COALESCE(name, '')
		FROM widgets
		WHERE workspace_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying widgets: %w", err)
	}
	defer rows.Close()

	var widgets []entity.Widget
	for rows.Next() {
		var w entity.Widget
		if err := rows.Scan(&w.ID, &w.WorkspaceID, &w.Name); err != nil {
			return nil, fmt.Errorf("scanning widget row: %w", err)
		}
		widgets = append(widgets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating widget rows: %w", err)
	}

	return widgets, nil
}

// ListWorkspaceIDs returns workspaces that own at least one widget, paginated
func (r *WidgetPostgres) ListWorkspaceIDs(ctx context.Context, limit, offset int) ([]string, error) {
	query := `
		SELECT DISTINCT workspace_id::text
		FROM widgets
		ORDER BY 1
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying workspaces: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning workspace row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspace rows: %w", err)
	}

	return ids, nil
}
