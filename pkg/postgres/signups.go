package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

const signupSelect = `
	SELECT s.id, s.training_id, s.participant, s.registered_at, s.comment,
		COALESCE((SELECT array_agg(role_id ORDER BY role_id) FROM signup_roles WHERE signup_id = s.id), '{}'::bigint[]),
		COALESCE((SELECT array_agg(training_boss_id ORDER BY training_boss_id) FROM signup_bosses WHERE signup_id = s.id), '{}'::bigint[])
	FROM signups s
`

func scanSignup(row pgx.Row) (*model.Signup, error) {
	var s model.Signup
	if err := row.Scan(&s.ID, &s.TrainingID, &s.Participant, &s.RegisteredAt, &s.Comment, &s.Roles, &s.Bosses); err != nil {
		return nil, err
	}
	s.RegisteredAt = s.RegisteredAt.UTC()
	return &s, nil
}

// InsertSignup inserts a signup with its roles and bosses and sets its ID
func (d *queries) InsertSignup(ctx context.Context, signup *model.Signup) error {
	err := d.q.QueryRow(ctx, `
		INSERT INTO signups (training_id, participant, registered_at, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, signup.TrainingID, signup.Participant, signup.RegisteredAt.UTC(), signup.Comment).Scan(&signup.ID)
	if err != nil {
		return translate(err, "insert signup for %s on training %d", signup.Participant, signup.TrainingID)
	}

	if err := d.insertSignupRoles(ctx, signup.ID, signup.Roles); err != nil {
		return err
	}
	return d.insertSignupBosses(ctx, signup.ID, signup.Bosses)
}

// GetSignup retrieves a participant's signup for a training
func (d *queries) GetSignup(ctx context.Context, trainingID int64, participant string) (*model.Signup, error) {
	s, err := scanSignup(d.q.QueryRow(ctx, signupSelect+`
		WHERE s.training_id = $1 AND s.participant = $2
	`, trainingID, participant))
	if err != nil {
		return nil, translate(err, "signup for %s on training %d", participant, trainingID)
	}
	return s, nil
}

// ListSignups retrieves a training's signups in registration order
func (d *queries) ListSignups(ctx context.Context, trainingID int64) ([]model.Signup, error) {
	rows, err := d.q.Query(ctx, signupSelect+`
		WHERE s.training_id = $1
		ORDER BY s.registered_at, s.id
	`, trainingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signups: %w", err)
	}
	return collectSignups(rows)
}

// ListParticipantSignups retrieves every signup of a participant
func (d *queries) ListParticipantSignups(ctx context.Context, participant string) ([]model.Signup, error) {
	rows, err := d.q.Query(ctx, signupSelect+`
		WHERE s.participant = $1
		ORDER BY s.registered_at, s.id
	`, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to query participant signups: %w", err)
	}
	return collectSignups(rows)
}

// SetSignupRoles replaces the roles a signup accepts
func (d *queries) SetSignupRoles(ctx context.Context, signupID int64, roleIDs []int64) error {
	if err := d.requireSignup(ctx, signupID); err != nil {
		return err
	}
	if _, err := d.q.Exec(ctx, `DELETE FROM signup_roles WHERE signup_id = $1`, signupID); err != nil {
		return translate(err, "clear roles of signup %d", signupID)
	}
	return d.insertSignupRoles(ctx, signupID, roleIDs)
}

// SetSignupBosses replaces a signup's boss preferences
func (d *queries) SetSignupBosses(ctx context.Context, signupID int64, bossIDs []int64) error {
	if err := d.requireSignup(ctx, signupID); err != nil {
		return err
	}
	if _, err := d.q.Exec(ctx, `DELETE FROM signup_bosses WHERE signup_id = $1`, signupID); err != nil {
		return translate(err, "clear bosses of signup %d", signupID)
	}
	return d.insertSignupBosses(ctx, signupID, bossIDs)
}

// SetSignupComment sets the free-text comment of a signup
func (d *queries) SetSignupComment(ctx context.Context, signupID int64, comment string) error {
	tag, err := d.q.Exec(ctx, `UPDATE signups SET comment = $2 WHERE id = $1`, signupID, comment)
	if err != nil {
		return translate(err, "set comment of signup %d", signupID)
	}
	return requireRow(tag, "signup %d", signupID)
}

// DeleteSignup deletes a signup whose roles and bosses were already cleared
func (d *queries) DeleteSignup(ctx context.Context, signupID int64) error {
	tag, err := d.q.Exec(ctx, `DELETE FROM signups WHERE id = $1`, signupID)
	if err != nil {
		return translate(err, "delete signup %d", signupID)
	}
	return requireRow(tag, "signup %d", signupID)
}

// CountRoleAcceptances counts the signups of a training accepting a role
func (d *queries) CountRoleAcceptances(ctx context.Context, trainingID, roleID int64) (int, error) {
	var count int
	err := d.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM signup_roles sr
		JOIN signups s ON s.id = sr.signup_id
		WHERE s.training_id = $1 AND sr.role_id = $2
	`, trainingID, roleID).Scan(&count)
	if err != nil {
		return 0, translate(err, "count acceptances of role %d on training %d", roleID, trainingID)
	}
	return count, nil
}

func (d *queries) requireSignup(ctx context.Context, signupID int64) error {
	var id int64
	err := d.q.QueryRow(ctx, `SELECT id FROM signups WHERE id = $1`, signupID).Scan(&id)
	return translate(err, "signup %d", signupID)
}

func (d *queries) insertSignupRoles(ctx context.Context, signupID int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		_, err := d.q.Exec(ctx, `
			INSERT INTO signup_roles (signup_id, role_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, signupID, roleID)
		if err != nil {
			return translate(err, "add role %d to signup %d", roleID, signupID)
		}
	}
	return nil
}

func (d *queries) insertSignupBosses(ctx context.Context, signupID int64, bossIDs []int64) error {
	for _, bossID := range bossIDs {
		_, err := d.q.Exec(ctx, `
			INSERT INTO signup_bosses (signup_id, training_boss_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, signupID, bossID)
		if err != nil {
			return translate(err, "add boss %d to signup %d", bossID, signupID)
		}
	}
	return nil
}

func collectSignups(rows pgx.Rows) ([]model.Signup, error) {
	defer rows.Close()

	signups := []model.Signup{}
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signups: %w", err)
	}

	return signups, nil
}
