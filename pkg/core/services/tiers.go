package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/core/tiergate"
	"github.com/jakechorley/training-signups/pkg/db"
)

// CreateTier adds an eligibility tier. Ranks start at 1; rank 0 belongs to model.Unrestricted.
func (s *Service) CreateTier(ctx context.Context, name string, rank int) (*model.Tier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tier name is required: %w", model.ErrInvalidInput)
	}
	if rank < 1 {
		return nil, fmt.Errorf("tier rank must be at least 1, got %d: %w", rank, model.ErrInvalidInput)
	}

	tier := &model.Tier{Name: name, Rank: rank}
	err := s.store.InTx(ctx, func(q db.Queries) error {
		return q.InsertTier(ctx, tier)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tier %q: %w", name, err)
	}

	s.logger.Info("Tier created", zap.Int64("tier_id", tier.ID), zap.String("name", name), zap.Int("rank", rank))
	return tier, nil
}

// DeleteTier removes a tier and its mappings. Fails with ErrInUse while a training requires it.
func (s *Service) DeleteTier(ctx context.Context, tierID int64) error {
	err := s.store.InTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTier(ctx, tierID); err != nil {
			return err
		}

		trainings, err := q.ListTrainings(ctx, nil)
		if err != nil {
			return err
		}
		for _, training := range trainings {
			if training.TierID != nil && *training.TierID == tierID {
				return fmt.Errorf("tier %d is required by training %d: %w", tierID, training.ID, model.ErrInUse)
			}
		}

		return q.DeleteTier(ctx, tierID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete tier %d: %w", tierID, err)
	}

	s.logger.Info("Tier deleted", zap.Int64("tier_id", tierID))
	return nil
}

// MapTier maps an external group to a tier, replacing any previous mapping of the group
func (s *Service) MapTier(ctx context.Context, externalGroupID string, tierID int64) error {
	externalGroupID = strings.TrimSpace(externalGroupID)
	if externalGroupID == "" {
		return fmt.Errorf("external group id is required: %w", model.ErrInvalidInput)
	}

	err := s.store.InTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTier(ctx, tierID); err != nil {
			return err
		}
		return q.UpsertTierMapping(ctx, model.TierMapping{ExternalGroupID: externalGroupID, TierID: tierID})
	})
	if err != nil {
		return fmt.Errorf("failed to map %q to tier %d: %w", externalGroupID, tierID, err)
	}

	s.logger.Info("Tier mapped", zap.String("external_group_id", externalGroupID), zap.Int64("tier_id", tierID))
	return nil
}

// UnmapTier removes the mapping of an external group
func (s *Service) UnmapTier(ctx context.Context, externalGroupID string) error {
	err := s.store.InTx(ctx, func(q db.Queries) error {
		return q.DeleteTierMapping(ctx, externalGroupID)
	})
	if err != nil {
		return fmt.Errorf("failed to unmap %q: %w", externalGroupID, err)
	}

	s.logger.Info("Tier unmapped", zap.String("external_group_id", externalGroupID))
	return nil
}

// ListTiers returns the tiers ordered by rank
func (s *Service) ListTiers(ctx context.Context) ([]model.Tier, error) {
	return s.store.ListTiers(ctx)
}

// ListTierMappings returns every external group mapping
func (s *Service) ListTierMappings(ctx context.Context) ([]model.TierMapping, error) {
	return s.store.ListTierMappings(ctx)
}

// ResolveParticipantTier asks the membership oracle for the participant's
// groups and returns the highest tier they map to
func (s *Service) ResolveParticipantTier(ctx context.Context, participant string) (model.Tier, error) {
	groupIDs := s.memberGroups(ctx, participant)

	var tier model.Tier
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		var err error
		tier, err = resolveTier(ctx, q, groupIDs)
		return err
	})
	if err != nil {
		return model.Tier{}, err
	}

	s.logger.Debug("Resolved participant tier",
		zap.String("participant", participant),
		zap.String("tier", tier.Name))
	return tier, nil
}

// memberGroups looks up a participant's external groups. Lookups are best
// effort: when the oracle fails the participant belongs to no group.
func (s *Service) memberGroups(ctx context.Context, participant string) []string {
	groupIDs, err := s.oracle.ExternalGroupIDs(ctx, participant)
	if err != nil {
		s.logger.Warn("Membership lookup failed, resolving as unrestricted",
			zap.String("participant", participant),
			zap.Error(err))
		return nil
	}
	return groupIDs
}

func resolveTier(ctx context.Context, q db.TierStore, groupIDs []string) (model.Tier, error) {
	mappings, err := q.ListTierMappings(ctx)
	if err != nil {
		return model.Tier{}, fmt.Errorf("failed to list tier mappings: %w", err)
	}
	tiers, err := q.ListTiers(ctx)
	if err != nil {
		return model.Tier{}, fmt.Errorf("failed to list tiers: %w", err)
	}
	return tiergate.ResolveTier(groupIDs, mappings, tiers), nil
}

// findTierByName returns the tier with the name
func findTierByName(tiers []model.Tier, name string) (*model.Tier, error) {
	for i := range tiers {
		if strings.EqualFold(tiers[i].Name, name) {
			return &tiers[i], nil
		}
	}
	return nil, fmt.Errorf("tier %q: %w", name, model.ErrNotFound)
}
