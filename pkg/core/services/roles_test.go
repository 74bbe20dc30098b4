package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

func TestCreateRole(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		code     string
		priority int
		wantErr  error
	}{
		{"valid", "Tank", "tank", 0, nil},
		{"lowest priority", "Damage", "dps", 4, nil},
		{"priority too high", "Bard", "bard", 5, model.ErrInvalidPriority},
		{"negative priority", "Bard", "bard", -1, model.ErrInvalidPriority},
		{"blank title", " ", "bard", 2, model.ErrInvalidInput},
		{"blank code", "Bard", "", 2, model.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			role, err := f.svc.CreateRole(f.ctx, tt.title, tt.code, ":x:", tt.priority)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, role.Active)
			assert.NotZero(t, role.ID)
		})
	}
}

func TestCreateRole_DuplicateActive(t *testing.T) {
	f := newFixture(t)
	role, err := f.svc.CreateRole(f.ctx, "Tank", "tank", ":shield:", 0)
	require.NoError(t, err)

	_, err = f.svc.CreateRole(f.ctx, "Tank again", "tank", ":shield:", 1)
	assert.ErrorIs(t, err, model.ErrConflict)

	// Deactivated roles free their code and glyph
	require.NoError(t, f.svc.DeactivateRole(f.ctx, role.ID))
	_, err = f.svc.CreateRole(f.ctx, "Tank again", "tank", ":shield:", 1)
	assert.NoError(t, err)
}

func TestDeactivateRole(t *testing.T) {
	f := newFixture(t)
	tank := f.role(t, "tank", 0)
	dps := f.role(t, "dps", 4)

	require.NoError(t, f.svc.DeactivateRole(f.ctx, tank.ID))
	require.NoError(t, f.svc.DeactivateRole(f.ctx, tank.ID))
	assert.ErrorIs(t, f.svc.DeactivateRole(f.ctx, 999), model.ErrNotFound)

	active, err := f.svc.ListActiveRoles(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, dps.ID, active[0].ID)

	all, err := f.svc.ListRoles(f.ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := f.svc.GetRole(f.ctx, tank.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestListRoles_PriorityOrder(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	tank := f.role(t, "tank", 0)
	heal := f.role(t, "heal", 1)

	roles, err := f.svc.ListActiveRoles(f.ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, []int64{tank.ID, heal.ID, dps.ID}, []int64{roles[0].ID, roles[1].ID, roles[2].ID})
}

func TestFindActiveRoleByCode(t *testing.T) {
	roles := []model.Role{
		{ID: 1, Code: "tank", Active: false},
		{ID: 2, Code: "tank", Active: true},
		{ID: 3, Code: "dps", Glyph: ":a:", Active: true},
		{ID: 4, Code: "dps", Glyph: ":b:", Active: true},
	}

	role, err := findActiveRoleByCode(roles, "TANK")
	require.NoError(t, err)
	assert.Equal(t, int64(2), role.ID)

	_, err = findActiveRoleByCode(roles, "dps")
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = findActiveRoleByCode(roles, "heal")
	assert.ErrorIs(t, err, model.ErrInvalidReference)
}
