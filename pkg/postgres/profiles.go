package postgres

import (
	"context"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// UpsertProfile creates or replaces a participant's profile
func (d *queries) UpsertProfile(ctx context.Context, profile model.Profile) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO profiles (participant, account_name, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant) DO UPDATE
		SET account_name = EXCLUDED.account_name, updated_at = EXCLUDED.updated_at
	`, profile.Participant, profile.AccountName, profile.UpdatedAt.UTC())
	return translate(err, "upsert profile for %s", profile.Participant)
}

// GetProfile retrieves a participant's profile
func (d *queries) GetProfile(ctx context.Context, participant string) (*model.Profile, error) {
	p := model.Profile{Participant: participant}
	err := d.q.QueryRow(ctx, `
		SELECT account_name, updated_at FROM profiles WHERE participant = $1
	`, participant).Scan(&p.AccountName, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err, "profile for %s", participant)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
