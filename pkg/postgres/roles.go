package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// InsertRole inserts a role and sets its ID
func (d *queries) InsertRole(ctx context.Context, role *model.Role) error {
	err := d.q.QueryRow(ctx, `
		INSERT INTO roles (title, code, glyph, priority, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, role.Title, role.Code, role.Glyph, role.Priority, role.Active).Scan(&role.ID)
	return translate(err, "insert role %q", role.Code)
}

// GetRole retrieves a role by id
func (d *queries) GetRole(ctx context.Context, id int64) (*model.Role, error) {
	var r model.Role
	err := d.q.QueryRow(ctx, `
		SELECT id, title, code, glyph, priority, active
		FROM roles
		WHERE id = $1
	`, id).Scan(&r.ID, &r.Title, &r.Code, &r.Glyph, &r.Priority, &r.Active)
	if err != nil {
		return nil, translate(err, "role %d", id)
	}
	return &r, nil
}

// ListRoles retrieves all roles, most critical first
func (d *queries) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, title, code, glyph, priority, active
		FROM roles
		ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := []model.Role{}
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Title, &r.Code, &r.Glyph, &r.Priority, &r.Active); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// SetRoleActive activates or deactivates a role
func (d *queries) SetRoleActive(ctx context.Context, id int64, active bool) error {
	tag, err := d.q.Exec(ctx, `UPDATE roles SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return translate(err, "set role %d active", id)
	}
	return requireRow(tag, "role %d", id)
}
