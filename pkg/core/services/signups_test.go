package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

func TestRegister_ReplacesAcceptedRoles(t *testing.T) {
	f := newFixture(t)
	tank := f.role(t, "tank", 0)
	dps := f.role(t, "dps", 4)
	training := f.training(t, map[int64]int{tank.ID: 1, dps.ID: 2})
	f.advanceTo(t, training.ID, model.StatePublished)

	first := f.register(t, training.ID, "alice", dps.ID)
	second := f.register(t, training.ID, "alice", tank.ID, dps.ID, tank.ID)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RegisteredAt, second.RegisteredAt)
	assert.Equal(t, []int64{tank.ID, dps.ID}, second.Roles)

	signups, err := f.svc.ListSignups(f.ctx, training.ID)
	require.NoError(t, err)
	require.Len(t, signups, 1)
	assert.Equal(t, []int64{tank.ID, dps.ID}, signups[0].Roles)
}

func TestRegister_KeepsPreferencesOnReplace(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	vg := f.boss(t, "vg", 1, 1)
	training := f.training(t, map[int64]int{dps.ID: 1})
	require.NoError(t, f.svc.AttachBoss(f.ctx, training.ID, vg.ID))
	f.advanceTo(t, training.ID, model.StatePublished)

	f.register(t, training.ID, "alice", dps.ID)
	require.NoError(t, f.svc.SetPreferences(f.ctx, training.ID, "alice", []int64{vg.ID}))
	signup := f.register(t, training.ID, "alice", dps.ID)

	assert.Equal(t, []int64{vg.ID}, signup.Bosses)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	tank := f.role(t, "tank", 0)
	dps := f.role(t, "dps", 4)
	training := f.training(t, map[int64]int{dps.ID: 1})

	tests := []struct {
		name        string
		trainingID  int64
		participant string
		roles       []int64
		wantErr     error
	}{
		{"training not published", training.ID, "alice", []int64{dps.ID}, model.ErrIllegalState},
		{"unknown training", 999, "alice", []int64{dps.ID}, model.ErrNotFound},
		{"blank participant", training.ID, " ", []int64{dps.ID}, model.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(f.ctx, tt.trainingID, tt.participant, tt.roles)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	f.advanceTo(t, training.ID, model.StatePublished)

	_, err := f.svc.Register(f.ctx, training.ID, "alice", nil)
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = f.svc.Register(f.ctx, training.ID, "alice", []int64{tank.ID})
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = f.svc.GetSignup(f.ctx, training.ID, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegister_TierGate(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	member, err := f.svc.CreateTier(f.ctx, "member", 1)
	require.NoError(t, err)
	veteran, err := f.svc.CreateTier(f.ctx, "veteran", 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.MapTier(f.ctx, "group-member", member.ID))
	require.NoError(t, f.svc.MapTier(f.ctx, "group-veteran", veteran.ID))

	f.oracle.groups["vet"] = []string{"group-member", "group-veteran"}
	f.oracle.groups["newbie"] = []string{"group-member"}

	training := f.training(t, map[int64]int{dps.ID: 2})
	require.NoError(t, f.svc.SetTrainingTier(f.ctx, training.ID, &member.ID))
	f.advanceTo(t, training.ID, model.StatePublished)

	f.register(t, training.ID, "vet", dps.ID)
	f.register(t, training.ID, "newbie", dps.ID)

	_, err = f.svc.Register(f.ctx, training.ID, "stranger", []int64{dps.ID})
	assert.ErrorIs(t, err, model.ErrForbidden)

	require.NoError(t, f.svc.SetTrainingTier(f.ctx, training.ID, &veteran.ID))
	_, err = f.svc.Register(f.ctx, training.ID, "newbie", []int64{dps.ID})
	assert.ErrorIs(t, err, model.ErrForbidden)
	f.register(t, training.ID, "vet", dps.ID)
}

func TestRegister_OracleFailureIsUnrestricted(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	tier, err := f.svc.CreateTier(f.ctx, "member", 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.MapTier(f.ctx, "group-member", tier.ID))
	f.oracle.groups["alice"] = []string{"group-member"}
	f.oracle.err = errors.New("gateway unavailable")

	restricted := f.training(t, map[int64]int{dps.ID: 1})
	require.NoError(t, f.svc.SetTrainingTier(f.ctx, restricted.ID, &tier.ID))
	f.advanceTo(t, restricted.ID, model.StatePublished)
	open := f.training(t, map[int64]int{dps.ID: 1})
	f.advanceTo(t, open.ID, model.StatePublished)

	_, err = f.svc.Register(f.ctx, restricted.ID, "alice", []int64{dps.ID})
	assert.ErrorIs(t, err, model.ErrForbidden)
	f.register(t, open.ID, "alice", dps.ID)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	training := f.training(t, map[int64]int{dps.ID: 1})
	f.advanceTo(t, training.ID, model.StatePublished)
	f.register(t, training.ID, "alice", dps.ID)

	require.NoError(t, f.svc.Withdraw(f.ctx, training.ID, "alice"))
	_, err := f.svc.GetSignup(f.ctx, training.ID, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, f.svc.Withdraw(f.ctx, training.ID, "alice"), model.ErrNotFound)

	// The role has no acceptances left, so its last opening can go
	require.NoError(t, f.svc.RemoveSlot(f.ctx, training.ID, dps.ID))
}

func TestWithdraw_ClosedDiscardsAssignment(t *testing.T) {
	f := newRaidFixture(t)
	_, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, true)
	require.NoError(t, err)

	require.NoError(t, f.svc.Withdraw(f.ctx, f.raid.ID, "p1"))

	_, err = f.svc.GetAssignment(f.ctx, f.raid.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assignment, err := f.svc.ResolveAssignment(f.ctx, f.raid.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []model.Placement{
		{SignupID: f.signups["p5"].ID, RoleID: f.tank.ID},
		{SignupID: f.signups["p2"].ID, RoleID: f.dps.ID},
		{SignupID: f.signups["p3"].ID, RoleID: f.dps.ID},
	}, assignment.Placements)
}

func TestWithdraw_AfterStartLeavesAssignment(t *testing.T) {
	f := newRaidFixture(t)
	f.advanceTo(t, f.raid.ID, model.StateStarted)
	before, err := f.svc.GetAssignment(f.ctx, f.raid.ID)
	require.NoError(t, err)

	err = f.svc.Withdraw(f.ctx, f.raid.ID, "p1")
	assert.ErrorIs(t, err, model.ErrIllegalState)

	after, err := f.svc.GetAssignment(f.ctx, f.raid.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = f.svc.GetSignup(f.ctx, f.raid.ID, "p1")
	assert.NoError(t, err)
}

func TestSetComment(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)
	training := f.training(t, map[int64]int{dps.ID: 1})
	f.advanceTo(t, training.ID, model.StatePublished)
	f.register(t, training.ID, "alice", dps.ID)

	require.NoError(t, f.svc.SetComment(f.ctx, training.ID, "alice", "  late by 10 minutes "))
	signup, err := f.svc.GetSignup(f.ctx, training.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "late by 10 minutes", signup.Comment)

	assert.ErrorIs(t, f.svc.SetComment(f.ctx, training.ID, "bob", "hi"), model.ErrNotFound)

	f.advanceTo(t, training.ID, model.StateClosed)
	assert.ErrorIs(t, f.svc.SetComment(f.ctx, training.ID, "alice", "too late"), model.ErrIllegalState)
}

func TestParticipantSignups(t *testing.T) {
	f := newFixture(t)
	dps := f.role(t, "dps", 4)

	later, err := f.svc.CreateTraining(f.ctx, "Later", time.Date(2025, 4, 1, 19, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	sooner, err := f.svc.CreateTraining(f.ctx, "Sooner", time.Date(2025, 3, 20, 19, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	done, err := f.svc.CreateTraining(f.ctx, "Done", time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	for _, training := range []*model.Training{later, sooner, done} {
		require.NoError(t, f.svc.AddSlots(f.ctx, training.ID, dps.ID, 1))
		f.advanceTo(t, training.ID, model.StatePublished)
		f.register(t, training.ID, "alice", dps.ID)
	}
	f.advanceTo(t, done.ID, model.StateFinished)

	signups, err := f.svc.ParticipantSignups(f.ctx, "alice")
	require.NoError(t, err)
	require.Len(t, signups, 2)
	assert.Equal(t, "Sooner", signups[0].Training.Title)
	assert.Equal(t, "Later", signups[1].Training.Title)
	assert.Equal(t, "alice", signups[0].Signup.Participant)

	none, err := f.svc.ParticipantSignups(f.ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProfiles(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SaveProfile(f.ctx, "alice", " ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = f.svc.SaveProfile(f.ctx, "alice", "Alice.1234")
	require.NoError(t, err)
	_, err = f.svc.SaveProfile(f.ctx, "alice", "Alice.5678")
	require.NoError(t, err)

	profile, err := f.svc.GetProfile(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice.5678", profile.AccountName)

	_, err = f.svc.GetProfile(f.ctx, "bob")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
