package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// InsertTier inserts a tier and sets its ID
func (d *queries) InsertTier(ctx context.Context, tier *model.Tier) error {
	err := d.q.QueryRow(ctx, `
		INSERT INTO tiers (name, rank) VALUES ($1, $2) RETURNING id
	`, tier.Name, tier.Rank).Scan(&tier.ID)
	return translate(err, "insert tier %q", tier.Name)
}

// GetTier retrieves a tier by id
func (d *queries) GetTier(ctx context.Context, id int64) (*model.Tier, error) {
	var t model.Tier
	err := d.q.QueryRow(ctx, `SELECT id, name, rank FROM tiers WHERE id = $1`, id).Scan(&t.ID, &t.Name, &t.Rank)
	if err != nil {
		return nil, translate(err, "tier %d", id)
	}
	return &t, nil
}

// ListTiers retrieves all tiers ordered by rank
func (d *queries) ListTiers(ctx context.Context) ([]model.Tier, error) {
	rows, err := d.q.Query(ctx, `SELECT id, name, rank FROM tiers ORDER BY rank`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiers: %w", err)
	}
	defer rows.Close()

	tiers := []model.Tier{}
	for rows.Next() {
		var t model.Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tiers: %w", err)
	}

	return tiers, nil
}

// DeleteTier deletes a tier; its mappings go with it
func (d *queries) DeleteTier(ctx context.Context, id int64) error {
	tag, err := d.q.Exec(ctx, `DELETE FROM tiers WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete tier %d", id)
	}
	return requireRow(tag, "tier %d", id)
}

// UpsertTierMapping maps an external group to a tier, replacing any previous mapping
func (d *queries) UpsertTierMapping(ctx context.Context, mapping model.TierMapping) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO tier_mappings (external_group_id, tier_id)
		VALUES ($1, $2)
		ON CONFLICT (external_group_id) DO UPDATE SET tier_id = EXCLUDED.tier_id
	`, mapping.ExternalGroupID, mapping.TierID)
	return translate(err, "map %q to tier %d", mapping.ExternalGroupID, mapping.TierID)
}

// DeleteTierMapping removes the mapping of an external group
func (d *queries) DeleteTierMapping(ctx context.Context, externalGroupID string) error {
	tag, err := d.q.Exec(ctx, `DELETE FROM tier_mappings WHERE external_group_id = $1`, externalGroupID)
	if err != nil {
		return translate(err, "delete tier mapping %q", externalGroupID)
	}
	return requireRow(tag, "tier mapping for %q", externalGroupID)
}

// ListTierMappings retrieves all tier mappings
func (d *queries) ListTierMappings(ctx context.Context) ([]model.TierMapping, error) {
	rows, err := d.q.Query(ctx, `
		SELECT external_group_id, tier_id FROM tier_mappings ORDER BY external_group_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier mappings: %w", err)
	}
	defer rows.Close()

	mappings := []model.TierMapping{}
	for rows.Next() {
		var m model.TierMapping
		if err := rows.Scan(&m.ExternalGroupID, &m.TierID); err != nil {
			return nil, fmt.Errorf("failed to scan tier mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tier mappings: %w", err)
	}

	return mappings, nil
}
