package dao

import (
	"context"
	"fmt"
)

// MemberPostgres checks workspace membership in PostgreSQL
type MemberPostgres struct {
	db DB
}

// NewMemberPostgres creates a new PostgreSQL membership repository
func NewMemberPostgres(db DB) *MemberPostgres {
	return &MemberPostgres{db: db}
}

// IsMember reports whether the user belongs to the workspace
func (r *MemberPostgres) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM workspace_members
			WHERE workspace_id = $1 AND user_id = $2
		)
	`

	var ok bool
	if err := r.db.QueryRow(ctx, query, workspaceID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking workspace membership: %w", err)
	}
	return ok, nil
}
