package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

func TestCreateBoss(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBoss(f.ctx, "vg", "Vale Guardian", 1, 1)
	require.NoError(t, err)

	_, err = f.svc.CreateBoss(f.ctx, "vg", "Another", 1, 2)
	assert.ErrorIs(t, err, model.ErrConflict)
	_, err = f.svc.CreateBoss(f.ctx, "", "Nameless", 1, 2)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = f.svc.CreateBoss(f.ctx, "sab", "Sabetha", 0, 3)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	bosses, err := f.svc.ListBosses(f.ctx)
	require.NoError(t, err)
	assert.Len(t, bosses, 1)
}

func TestAttachBoss(t *testing.T) {
	f := newFixture(t)
	vg := f.boss(t, "vg", 1, 1)
	gorse := f.boss(t, "gorse", 1, 2)
	clone := f.boss(t, "vg-cm", 1, 1)
	training := f.training(t, nil)

	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, gorse.ID))
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, vg.ID))

	assert.ErrorIs(t, f.svc.AttachBoss(f.ctx, training.ID, vg.ID), model.ErrConflict)
	assert.ErrorIs(t, f.svc.AttachBoss(f.ctx, training.ID, clone.ID), model.ErrConflict)
	assert.ErrorIs(t, f.svc.AttachBoss(f.ctx, training.ID, 999), model.ErrNotFound)

	bosses, err := f.svc.ListTrainingBosses(f.ctx, training.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Boss{*vg, *gorse}, bosses)

	f.advanceTo(t, training.ID, model.StateClosed)
	assert.ErrorIs(t, f.svc.AttachBoss(f.ctx, training.ID, clone.ID), model.ErrIllegalState)
}

func TestDetachBoss_PrunesPreferences(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	vg := f.boss(t, "vg", 1, 1)
	gorse := f.boss(t, "gorse", 1, 2)
	other := f.boss(t, "sab", 1, 3)
	training := f.training(t, map[int64]int{dps.ID: 2})
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, vg.ID))
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, gorse.ID))
	f.advanceTo(t, training.ID, model.StatePublished)
	f.register(t, training.ID, "alice", dps.ID)
	f.register(t, training.ID, "bob", dps.ID)
	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", []int64{vg.ID, gorse.ID}))
	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "bob", []int64{gorse.ID}))

	require.NoError(t, f.svc.DetachBoss(f.ctx, training.ID, vg.ID))

	alice, err := f.svc.GetSignup(f.ctx, training.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int64{gorse.ID}, alice.Bosses)
	bob, err := f.svc.GetSignup(f.ctx, training.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []int64{gorse.ID}, bob.Bosses)

	assert.ErrorIs(t, f.svc.DetachBoss(f.ctx, training.ID, vg.ID), model.ErrInvalidReference)
	assert.ErrorIs(t, f.svc.DetachBoss(f.ctx, training.ID, other.ID), model.ErrInvalidReference)
	assert.ErrorIs(t, f.svc.DetachBoss(f.ctx, training.ID, 999), model.ErrNotFound)
}

func TestSetPreferences(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	vg := f.boss(t, "vg", 1, 1)
	unattached := f.boss(t, "gorse", 1, 2)
	training := f.training(t, map[int64]int{dps.ID: 1})
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, vg.ID))
	f.advanceTo(t, training.ID, model.StatePublished)

	assert.ErrorIs(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", []int64{vg.ID}), model.ErrNotFound)

	f.register(t, training.ID, "alice", dps.ID)
	assert.ErrorIs(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", []int64{unattached.ID}), model.ErrInvalidReference)

	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", []int64{vg.ID}))
	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", nil))
	signup, err := f.svc.GetSignup(f.ctx, training.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, signup.Bosses)

	f.advanceTo(t, training.ID, model.StateClosed)
	assert.ErrorIs(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", []int64{vg.ID}), model.ErrIllegalState)
}
