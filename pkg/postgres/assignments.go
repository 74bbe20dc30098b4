package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// SaveAssignment replaces the committed assignment of a training
func (d *queries) SaveAssignment(ctx context.Context, a *model.Assignment) error {
	if err := d.DeleteAssignment(ctx, a.TrainingID); err != nil {
		return err
	}

	_, err := d.q.Exec(ctx, `
		INSERT INTO assignments (training_id, resolved_at) VALUES ($1, $2)
	`, a.TrainingID, a.ResolvedAt.UTC())
	if err != nil {
		return translate(err, "insert assignment for training %d", a.TrainingID)
	}

	for i, p := range a.Placements {
		_, err := d.q.Exec(ctx, `
			INSERT INTO assignment_placements (training_id, seq, signup_id, role_id)
			VALUES ($1, $2, $3, $4)
		`, a.TrainingID, i, p.SignupID, p.RoleID)
		if err != nil {
			return translate(err, "insert placement for training %d", a.TrainingID)
		}
	}

	for i, u := range a.Unfilled {
		_, err := d.q.Exec(ctx, `
			INSERT INTO assignment_unfilled (training_id, seq, role_id, open_count)
			VALUES ($1, $2, $3, $4)
		`, a.TrainingID, i, u.RoleID, u.Count)
		if err != nil {
			return translate(err, "insert unfilled slot for training %d", a.TrainingID)
		}
	}

	for i, signupID := range a.Benched {
		_, err := d.q.Exec(ctx, `
			INSERT INTO assignment_benched (training_id, seq, signup_id) VALUES ($1, $2, $3)
		`, a.TrainingID, i, signupID)
		if err != nil {
			return translate(err, "insert benched signup for training %d", a.TrainingID)
		}
	}

	for i, roster := range a.BossRosters {
		_, err := d.q.Exec(ctx, `
			INSERT INTO assignment_bosses (training_id, seq, boss_id) VALUES ($1, $2, $3)
		`, a.TrainingID, i, roster.BossID)
		if err != nil {
			return translate(err, "insert boss roster for training %d", a.TrainingID)
		}
		for j, signupID := range roster.SignupIDs {
			_, err := d.q.Exec(ctx, `
				INSERT INTO assignment_boss_members (training_id, boss_id, seq, signup_id)
				VALUES ($1, $2, $3, $4)
			`, a.TrainingID, roster.BossID, j, signupID)
			if err != nil {
				return translate(err, "insert boss roster member for training %d", a.TrainingID)
			}
		}
	}

	return nil
}

// GetAssignment retrieves the committed assignment of a training
func (d *queries) GetAssignment(ctx context.Context, trainingID int64) (*model.Assignment, error) {
	a := &model.Assignment{
		TrainingID:  trainingID,
		Placements:  []model.Placement{},
		Unfilled:    []model.SlotDemand{},
		Benched:     []int64{},
		BossRosters: []model.BossRoster{},
	}

	err := d.q.QueryRow(ctx, `
		SELECT resolved_at FROM assignments WHERE training_id = $1
	`, trainingID).Scan(&a.ResolvedAt)
	if err != nil {
		return nil, translate(err, "assignment for training %d", trainingID)
	}
	a.ResolvedAt = a.ResolvedAt.UTC()

	// Each result set is drained before the next query; a transaction has a single connection
	if err := d.loadPlacements(ctx, a); err != nil {
		return nil, err
	}
	if err := d.loadUnfilled(ctx, a); err != nil {
		return nil, err
	}
	if err := d.loadBenched(ctx, a); err != nil {
		return nil, err
	}
	if err := d.loadBossRosters(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

// DeleteAssignment removes the assignment of a training, if any
func (d *queries) DeleteAssignment(ctx context.Context, trainingID int64) error {
	_, err := d.q.Exec(ctx, `DELETE FROM assignments WHERE training_id = $1`, trainingID)
	return translate(err, "delete assignment for training %d", trainingID)
}

func (d *queries) loadPlacements(ctx context.Context, a *model.Assignment) error {
	rows, err := d.q.Query(ctx, `
		SELECT signup_id, role_id FROM assignment_placements WHERE training_id = $1 ORDER BY seq
	`, a.TrainingID)
	if err != nil {
		return fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Placement
		if err := rows.Scan(&p.SignupID, &p.RoleID); err != nil {
			return fmt.Errorf("failed to scan placement: %w", err)
		}
		a.Placements = append(a.Placements, p)
	}
	return rows.Err()
}

func (d *queries) loadUnfilled(ctx context.Context, a *model.Assignment) error {
	rows, err := d.q.Query(ctx, `
		SELECT role_id, open_count FROM assignment_unfilled WHERE training_id = $1 ORDER BY seq
	`, a.TrainingID)
	if err != nil {
		return fmt.Errorf("failed to query unfilled slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u model.SlotDemand
		if err := rows.Scan(&u.RoleID, &u.Count); err != nil {
			return fmt.Errorf("failed to scan unfilled slot: %w", err)
		}
		a.Unfilled = append(a.Unfilled, u)
	}
	return rows.Err()
}

func (d *queries) loadBenched(ctx context.Context, a *model.Assignment) error {
	rows, err := d.q.Query(ctx, `
		SELECT signup_id FROM assignment_benched WHERE training_id = $1 ORDER BY seq
	`, a.TrainingID)
	if err != nil {
		return fmt.Errorf("failed to query benched signups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan benched signup: %w", err)
		}
		a.Benched = append(a.Benched, id)
	}
	return rows.Err()
}

func (d *queries) loadBossRosters(ctx context.Context, a *model.Assignment) error {
	rows, err := d.q.Query(ctx, `
		SELECT b.boss_id,
			COALESCE((
				SELECT array_agg(m.signup_id ORDER BY m.seq)
				FROM assignment_boss_members m
				WHERE m.training_id = b.training_id AND m.boss_id = b.boss_id
			), '{}'::bigint[])
		FROM assignment_bosses b
		WHERE b.training_id = $1
		ORDER BY b.seq
	`, a.TrainingID)
	if err != nil {
		return fmt.Errorf("failed to query boss rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.BossRoster
		if err := rows.Scan(&r.BossID, &r.SignupIDs); err != nil {
			return fmt.Errorf("failed to scan boss roster: %w", err)
		}
		a.BossRosters = append(a.BossRosters, r)
	}
	return rows.Err()
}
