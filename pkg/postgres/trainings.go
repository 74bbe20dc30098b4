package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

const trainingColumns = `id, title, date, state, tier_id`

func scanTraining(row pgx.Row) (*model.Training, error) {
	var t model.Training
	var state string
	if err := row.Scan(&t.ID, &t.Title, &t.Date, &state, &t.TierID); err != nil {
		return nil, err
	}
	t.State = model.TrainingState(state)
	t.Date = t.Date.UTC()
	return &t, nil
}

// InsertTraining inserts a training and sets its ID
func (d *queries) InsertTraining(ctx context.Context, training *model.Training) error {
	err := d.q.QueryRow(ctx, `
		INSERT INTO trainings (title, date, state, tier_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, training.Title, training.Date.UTC(), string(training.State), training.TierID).Scan(&training.ID)
	return translate(err, "insert training %q", training.Title)
}

// GetTraining retrieves a training by id
func (d *queries) GetTraining(ctx context.Context, id int64) (*model.Training, error) {
	t, err := scanTraining(d.q.QueryRow(ctx, `SELECT `+trainingColumns+` FROM trainings WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "training %d", id)
	}
	return t, nil
}

// LockTraining retrieves a training and, inside a transaction, locks its row
// until the transaction ends
func (d *queries) LockTraining(ctx context.Context, id int64) (*model.Training, error) {
	query := `SELECT ` + trainingColumns + ` FROM trainings WHERE id = $1`
	if d.inTx {
		query += ` FOR UPDATE`
	}
	t, err := scanTraining(d.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "training %d", id)
	}
	return t, nil
}

// ListTrainings retrieves trainings in any of the given states (all when empty)
func (d *queries) ListTrainings(ctx context.Context, states []model.TrainingState) ([]model.Training, error) {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}

	rows, err := d.q.Query(ctx, `
		SELECT `+trainingColumns+`
		FROM trainings
		WHERE cardinality($1::text[]) = 0 OR state = ANY($1::text[])
		ORDER BY date, id
	`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query trainings: %w", err)
	}
	defer rows.Close()

	trainings := []model.Training{}
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training: %w", err)
		}
		trainings = append(trainings, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trainings: %w", err)
	}

	return trainings, nil
}

// UpdateTrainingState sets the state and appends to the training's history
func (d *queries) UpdateTrainingState(ctx context.Context, change model.StateChange) error {
	tag, err := d.q.Exec(ctx, `UPDATE trainings SET state = $2 WHERE id = $1`, change.TrainingID, string(change.To))
	if err != nil {
		return translate(err, "update state of training %d", change.TrainingID)
	}
	if err := requireRow(tag, "training %d", change.TrainingID); err != nil {
		return err
	}

	_, err = d.q.Exec(ctx, `
		INSERT INTO training_state_changes (training_id, from_state, to_state, changed_at)
		VALUES ($1, $2, $3, $4)
	`, change.TrainingID, string(change.From), string(change.To), change.At.UTC())
	return translate(err, "record state change of training %d", change.TrainingID)
}

// SetTrainingTier sets or clears the tier requirement
func (d *queries) SetTrainingTier(ctx context.Context, id int64, tierID *int64) error {
	tag, err := d.q.Exec(ctx, `UPDATE trainings SET tier_id = $2 WHERE id = $1`, id, tierID)
	if err != nil {
		return translate(err, "set tier of training %d", id)
	}
	return requireRow(tag, "training %d", id)
}

// DeleteTraining deletes a training and its history
func (d *queries) DeleteTraining(ctx context.Context, id int64) error {
	tag, err := d.q.Exec(ctx, `DELETE FROM trainings WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete training %d", id)
	}
	return requireRow(tag, "training %d", id)
}

// ListStateChanges retrieves a training's transitions, oldest first
func (d *queries) ListStateChanges(ctx context.Context, trainingID int64) ([]model.StateChange, error) {
	rows, err := d.q.Query(ctx, `
		SELECT from_state, to_state, changed_at
		FROM training_state_changes
		WHERE training_id = $1
		ORDER BY changed_at, id
	`, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query state changes: %w", err)
	}
	defer rows.Close()

	changes := []model.StateChange{}
	for rows.Next() {
		c := model.StateChange{TrainingID: trainingID}
		var from, to string
		if err := rows.Scan(&from, &to, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan state change: %w", err)
		}
		c.From = model.TrainingState(from)
		c.To = model.TrainingState(to)
		c.At = c.At.UTC()
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating state changes: %w", err)
	}

	return changes, nil
}

// AddTrainingSlot adds one opening of a role
func (d *queries) AddTrainingSlot(ctx context.Context, trainingID, roleID int64) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO training_roles (training_id, role_id) VALUES ($1, $2)
	`, trainingID, roleID)
	return translate(err, "add role %d to training %d", roleID, trainingID)
}

// RemoveTrainingSlot removes one opening of a role
func (d *queries) RemoveTrainingSlot(ctx context.Context, trainingID, roleID int64) error {
	tag, err := d.q.Exec(ctx, `
		DELETE FROM training_roles
		WHERE id = (
			SELECT id FROM training_roles
			WHERE training_id = $1 AND role_id = $2
			ORDER BY id DESC
			LIMIT 1
		)
	`, trainingID, roleID)
	if err != nil {
		return translate(err, "remove role %d from training %d", roleID, trainingID)
	}
	return requireRow(tag, "slot for role %d in training %d", roleID, trainingID)
}

// ListTrainingSlots counts the openings per role
func (d *queries) ListTrainingSlots(ctx context.Context, trainingID int64) ([]model.SlotDemand, error) {
	rows, err := d.q.Query(ctx, `
		SELECT role_id, COUNT(*)
		FROM training_roles
		WHERE training_id = $1
		GROUP BY role_id
		ORDER BY role_id
	`, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query training slots: %w", err)
	}
	defer rows.Close()

	slots := []model.SlotDemand{}
	for rows.Next() {
		var s model.SlotDemand
		if err := rows.Scan(&s.RoleID, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan training slot: %w", err)
		}
		slots = append(slots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training slots: %w", err)
	}

	return slots, nil
}

// DeleteTrainingSlots removes every opening of a training
func (d *queries) DeleteTrainingSlots(ctx context.Context, trainingID int64) error {
	_, err := d.q.Exec(ctx, `DELETE FROM training_roles WHERE training_id = $1`, trainingID)
	return translate(err, "delete slots of training %d", trainingID)
}
