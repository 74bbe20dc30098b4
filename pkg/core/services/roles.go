package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
)

// CreateRole adds an active role to the catalog
func (s *Service) CreateRole(ctx context.Context, title, code, glyph string, priority int) (*model.Role, error) {
	title = strings.TrimSpace(title)
	code = strings.TrimSpace(code)
	if title == "" || code == "" {
		return nil, fmt.Errorf("role title and code are required: %w", model.ErrInvalidInput)
	}
	if priority < model.MinRolePriority || priority > model.MaxRolePriority {
		return nil, fmt.Errorf("priority %d outside %d-%d: %w",
			priority, model.MinRolePriority, model.MaxRolePriority, model.ErrInvalidPriority)
	}

	role := &model.Role{
		Title:    title,
		Code:     code,
		Glyph:    strings.TrimSpace(glyph),
		Priority: priority,
		Active:   true,
	}

	err := s.store.InTx(ctx, func(q db.Queries) error {
		return q.InsertRole(ctx, role)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create role %q: %w", code, err)
	}

	s.logger.Info("Role created",
		zap.Int64("role_id", role.ID),
		zap.String("code", role.Code),
		zap.Int("priority", role.Priority))

	return role, nil
}

// DeactivateRole hides a role from new trainings. Deactivating twice is a no-op.
func (s *Service) DeactivateRole(ctx context.Context, roleID int64) error {
	err := s.store.InTx(ctx, func(q db.Queries) error {
		role, err := q.GetRole(ctx, roleID)
		if err != nil {
			return err
		}
		if !role.Active {
			return nil
		}
		return q.SetRoleActive(ctx, roleID, false)
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate role %d: %w", roleID, err)
	}

	s.logger.Info("Role deactivated", zap.Int64("role_id", roleID))
	return nil
}

// GetRole retrieves a role by id
func (s *Service) GetRole(ctx context.Context, roleID int64) (*model.Role, error) {
	return s.store.GetRole(ctx, roleID)
}

// ListActiveRoles returns the active roles, most critical first
func (s *Service) ListActiveRoles(ctx context.Context) ([]model.Role, error) {
	return s.ListRoles(ctx, false)
}

// ListRoles returns roles ordered by priority then id
func (s *Service) ListRoles(ctx context.Context, includeInactive bool) ([]model.Role, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	if includeInactive {
		return roles, nil
	}

	active := make([]model.Role, 0, len(roles))
	for _, role := range roles {
		if role.Active {
			active = append(active, role)
		}
	}
	return active, nil
}

// findActiveRoleByCode returns the single active role with the code
func findActiveRoleByCode(roles []model.Role, code string) (*model.Role, error) {
	var found *model.Role
	for i := range roles {
		if !roles[i].Active || !strings.EqualFold(roles[i].Code, code) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("role code %q is ambiguous: %w", code, model.ErrConflict)
		}
		found = &roles[i]
	}
	if found == nil {
		return nil, fmt.Errorf("no active role with code %q: %w", code, model.ErrInvalidReference)
	}
	return found, nil
}
