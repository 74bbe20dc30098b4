package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
)

// openTestDB connects to TRAININGS_TEST_DATABASE_URL, migrates it and empties
// every table. Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TRAININGS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TRAININGS_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, database.RunMigrations(ctx))
	_, err = database.pool.Exec(ctx, `
		TRUNCATE roles, tiers, tier_mappings, trainings, training_state_changes, training_roles,
			training_bosses, training_boss_mappings, signups, signup_roles, signup_bosses,
			assignments, profiles
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	return database
}

func TestIntegration_RunMigrationsIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	assert.NoError(t, database.RunMigrations(context.Background()))
}

func TestIntegration_RoleUniqueness(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	first := &model.Role{Title: "DPS", Code: "dps", Glyph: "⚔️", Priority: 4, Active: true}
	require.NoError(t, database.InsertRole(ctx, first))

	err := database.InsertRole(ctx, &model.Role{Title: "Other", Code: "dps", Glyph: "⚔️", Priority: 4, Active: true})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = database.GetRole(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestIntegration_TrainingLifecycleRows(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	training := &model.Training{
		Title: "Wing 1",
		Date:  time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC),
		State: model.StateCreated,
	}
	require.NoError(t, database.InsertTraining(ctx, training))

	role := &model.Role{Title: "Tank", Code: "tank", Glyph: "🛡️", Priority: 0, Active: true}
	require.NoError(t, database.InsertRole(ctx, role))
	require.NoError(t, database.AddTrainingSlot(ctx, training.ID, role.ID))
	require.NoError(t, database.AddTrainingSlot(ctx, training.ID, role.ID))

	slots, err := database.ListTrainingSlots(ctx, training.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.SlotDemand{{RoleID: role.ID, Count: 2}}, slots)

	err = database.InTx(ctx, func(q db.Queries) error {
		locked, err := q.LockTraining(ctx, training.ID)
		if err != nil {
			return err
		}
		return q.UpdateTrainingState(ctx, model.StateChange{
			TrainingID: locked.ID, From: locked.State, To: model.StatePublished, At: time.Now(),
		})
	})
	require.NoError(t, err)

	published, err := database.ListTrainings(ctx, []model.TrainingState{model.StatePublished})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, training.ID, published[0].ID)

	history, err := database.ListStateChanges(ctx, training.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatePublished, history[0].To)
}

func TestIntegration_InTxRollsBack(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := database.InTx(ctx, func(q db.Queries) error {
		if err := q.InsertTier(ctx, &model.Tier{Name: "veteran", Rank: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	tiers, err := database.ListTiers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tiers)
}

func TestIntegration_InTxRetriesSerializationFailures(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	attempts := 0
	err := database.InTx(ctx, func(q db.Queries) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return q.InsertTier(ctx, &model.Tier{Name: "veteran", Rank: 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	tiers, err := database.ListTiers(ctx)
	require.NoError(t, err)
	assert.Len(t, tiers, 1)

	attempts = 0
	err = database.InTx(ctx, func(q db.Queries) error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	assert.True(t, isSerializationFailure(err))
	assert.Equal(t, maxTxAttempts, attempts)
}

func TestIntegration_ReadTxIsReadOnlySnapshot(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, database.InsertTier(ctx, &model.Tier{Name: "veteran", Rank: 1}))

	err := database.ReadTx(ctx, func(q db.Queries) error {
		before, err := q.ListTiers(ctx)
		require.NoError(t, err)

		// Committed outside the snapshot, so invisible inside it
		require.NoError(t, database.InTx(ctx, func(w db.Queries) error {
			return w.InsertTier(ctx, &model.Tier{Name: "raid lead", Rank: 2})
		}))

		after, err := q.ListTiers(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		return nil
	})
	require.NoError(t, err)

	err = database.ReadTx(ctx, func(q db.Queries) error {
		return q.InsertTier(ctx, &model.Tier{Name: "commander", Rank: 3})
	})
	assert.Error(t, err)

	tiers, err := database.ListTiers(ctx)
	require.NoError(t, err)
	assert.Len(t, tiers, 2)
}

func TestIntegration_SignupsAndAssignment(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	training := &model.Training{Title: "Wing 2", Date: time.Now().UTC(), State: model.StatePublished}
	require.NoError(t, database.InsertTraining(ctx, training))
	role := &model.Role{Title: "Healer", Code: "heal", Glyph: "💚", Priority: 1, Active: true}
	require.NoError(t, database.InsertRole(ctx, role))
	boss := &model.Boss{Code: "vg", Name: "Vale Guardian", Wing: 1, Position: 1}
	require.NoError(t, database.InsertBoss(ctx, boss))
	require.NoError(t, database.AttachBoss(ctx, training.ID, boss.ID))
	assert.ErrorIs(t, database.AttachBoss(ctx, training.ID, boss.ID), model.ErrConflict)

	signup := &model.Signup{
		TrainingID:   training.ID,
		Participant:  "1234",
		RegisteredAt: time.Now().UTC(),
		Roles:        []int64{role.ID},
		Bosses:       []int64{boss.ID},
	}
	require.NoError(t, database.InsertSignup(ctx, signup))

	got, err := database.GetSignup(ctx, training.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, []int64{role.ID}, got.Roles)
	assert.Equal(t, []int64{boss.ID}, got.Bosses)

	// Relations must be cleared before the row goes
	assert.ErrorIs(t, database.DeleteSignup(ctx, signup.ID), model.ErrInUse)

	count, err := database.CountRoleAcceptances(ctx, training.ID, role.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assignment := &model.Assignment{
		TrainingID:  training.ID,
		Placements:  []model.Placement{{SignupID: signup.ID, RoleID: role.ID}},
		Unfilled:    []model.SlotDemand{{RoleID: role.ID, Count: 1}},
		Benched:     []int64{},
		BossRosters: []model.BossRoster{{BossID: boss.ID, SignupIDs: []int64{signup.ID}}},
		ResolvedAt:  time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	require.NoError(t, database.SaveAssignment(ctx, assignment))
	require.NoError(t, database.SaveAssignment(ctx, assignment))

	loaded, err := database.GetAssignment(ctx, training.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment, loaded)

	require.NoError(t, database.DeleteAssignment(ctx, training.ID))
	_, err = database.GetAssignment(ctx, training.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
