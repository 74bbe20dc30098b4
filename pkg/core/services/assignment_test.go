package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// raidFixture is a closed training needing one tank, one healer and two dps.
// p1 to p4 accept dps only, p5 registers last and accepts tank or dps.
type raidFixture struct {
	*fixture
	raid              *model.Training
	tank, healer, dps *model.Role
	signups           map[string]*model.Signup
}

func newRaidFixture(t *testing.T) *raidFixture {
	t.Helper()

	f := &raidFixture{fixture: newFixture(t), signups: map[string]*model.Signup{}}
	f.tank = f.role(t, "tank", 0)
	f.healer = f.role(t, "heal", 1)
	f.dps = f.role(t, "dps", 4)
	f.raid = f.training(t, map[int64]int{f.tank.ID: 1, f.healer.ID: 1, f.dps.ID: 2})
	f.advanceTo(t, f.raid.ID, model.StatePublished)

	for _, p := range []string{"p1", "p2", "p3", "p4"} {
		f.signups[p] = f.register(t, f.raid.ID, p, f.dps.ID)
	}
	f.signups["p5"] = f.register(t, f.raid.ID, "p5", f.tank.ID, f.dps.ID)

	f.advanceTo(t, f.raid.ID, model.StateClosed)
	return f
}

func TestResolveAssignment_FillsByPriority(t *testing.T) {
	f := newRaidFixture(t)

	assignment, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, false)
	require.NoError(t, err)

	assert.Equal(t, []model.Placement{
		{SignupID: f.signups["p5"].ID, RoleID: f.tank.ID},
		{SignupID: f.signups["p1"].ID, RoleID: f.dps.ID},
		{SignupID: f.signups["p2"].ID, RoleID: f.dps.ID},
	}, assignment.Placements)
	assert.Equal(t, []model.SlotDemand{{RoleID: f.healer.ID, Count: 1}}, assignment.Unfilled)
	assert.Equal(t, []int64{f.signups["p3"].ID, f.signups["p4"].ID}, assignment.Benched)
}

func TestResolveAssignment_PreviewWritesNothing(t *testing.T) {
	f := newRaidFixture(t)
	before := len(f.notifier.events)

	_, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, false)
	require.NoError(t, err)

	_, err = f.svc.GetAssignment(f.ctx, f.raid.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Len(t, f.notifier.events, before)
}

func TestResolveAssignment_CommitStoresAndNotifies(t *testing.T) {
	f := newRaidFixture(t)

	committed, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, true)
	require.NoError(t, err)

	stored, err := f.svc.GetAssignment(f.ctx, f.raid.ID)
	require.NoError(t, err)
	assert.Equal(t, committed.Placements, stored.Placements)
	assert.Equal(t, committed.Benched, stored.Benched)

	last := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, model.EventAssignmentCommitted, last.Kind)
	require.NotNil(t, last.Assignment)
	assert.Equal(t, committed.Placements, last.Assignment.Placements)
}

func TestResolveAssignment_Idempotent(t *testing.T) {
	f := newRaidFixture(t)

	first, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, true)
	require.NoError(t, err)
	second, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, true)
	require.NoError(t, err)

	assert.Equal(t, first.Placements, second.Placements)
	assert.Equal(t, first.Unfilled, second.Unfilled)
	assert.Equal(t, first.Benched, second.Benched)
	assert.Equal(t, first.BossRosters, second.BossRosters)
}

func TestResolveAssignment_BossRosters(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	vg := f.boss(t, "vg", 1, 1)
	gorse := f.boss(t, "gorse", 1, 2)
	training := f.training(t, map[int64]int{dps.ID: 2})
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, vg.ID))
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, gorse.ID))
	f.advanceTo(t, training.ID, model.StatePublished)

	a := f.register(t, training.ID, "a", dps.ID)
	b := f.register(t, training.ID, "b", dps.ID)
	f.register(t, training.ID, "c", dps.ID)
	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "a", []int64{gorse.ID}))
	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "c", []int64{vg.ID}))
	f.advanceTo(t, training.ID, model.StateClosed)

	assignment, err := f.svc.ResolveAssignment(f.ctx, training.ID, false)
	require.NoError(t, err)

	// c is benched so never appears; b has no preference so joins every boss
	assert.Equal(t, []model.BossRoster{
		{BossID: vg.ID, SignupIDs: []int64{b.ID}},
		{BossID: gorse.ID, SignupIDs: []int64{a.ID, b.ID}},
	}, assignment.BossRosters)
}

func TestResolveAssignment_OnlyWhenClosed(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	training := f.training(t, map[int64]int{dps.ID: 1})
	f.advanceTo(t, training.ID, model.StatePublished)

	_, err := f.svc.ResolveAssignment(f.ctx, training.ID, false)
	assert.ErrorIs(t, err, model.ErrIllegalState)

	f.advanceTo(t, training.ID, model.StateStarted)
	_, err = f.svc.ResolveAssignment(f.ctx, training.ID, true)
	assert.ErrorIs(t, err, model.ErrIllegalState)

	_, err = f.svc.ResolveAssignment(f.ctx, 999, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestResolveAssignment_NoSlots(t *testing.T) {
	f := newFixture(t)
	training := f.training(t, nil)
	f.advanceTo(t, training.ID, model.StateClosed)

	_, err := f.svc.ResolveAssignment(f.ctx, training.ID, false)
	assert.ErrorIs(t, err, model.ErrEmptyInput)
}

func TestResolveAssignment_NoSignups(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	training := f.training(t, map[int64]int{dps.ID: 2})
	f.advanceTo(t, training.ID, model.StateClosed)

	assignment, err := f.svc.ResolveAssignment(f.ctx, training.ID, false)
	require.NoError(t, err)
	assert.Empty(t, assignment.Placements)
	assert.Empty(t, assignment.Benched)
	assert.Equal(t, []model.SlotDemand{{RoleID: dps.ID, Count: 2}}, assignment.Unfilled)
}
