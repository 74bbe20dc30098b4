package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/lifecycle"
	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
)

// CreateBoss adds a boss to the global catalog
func (s *Service) CreateBoss(ctx context.Context, code, name string, wing, position int) (*model.Boss, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("boss code and name are required: %w", model.ErrInvalidInput)
	}
	if wing < 1 || position < 1 {
		return nil, fmt.Errorf("boss wing and position start at 1: %w", model.ErrInvalidInput)
	}

	boss := &model.Boss{Code: code, Name: name, Wing: wing, Position: position}
	err := s.store.InTx(ctx, func(q db.Queries) error {
		return q.InsertBoss(ctx, boss)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create boss %q: %w", code, err)
	}

	s.logger.Info("Boss created",
		zap.Int64("boss_id", boss.ID),
		zap.String("code", code),
		zap.Int("wing", wing),
		zap.Int("position", position))
	return boss, nil
}

// ListBosses returns the catalog ordered by wing and position
func (s *Service) ListBosses(ctx context.Context) ([]model.Boss, error) {
	return s.store.ListBosses(ctx)
}

// AttachBoss schedules a boss for a training
func (s *Service) AttachBoss(ctx context.Context, trainingID, bossID int64) error {
	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpEditBosses); err != nil {
			return nil, err
		}
		boss, err := q.GetBoss(ctx, bossID)
		if err != nil {
			return nil, err
		}
		return nil, attachBoss(ctx, q, trainingID, *boss)
	})
	if err != nil {
		return fmt.Errorf("failed to attach boss %d to training %d: %w", bossID, trainingID, err)
	}

	s.logger.Info("Boss attached", zap.Int64("training_id", trainingID), zap.Int64("boss_id", bossID))
	return nil
}

// attachBoss attaches a boss unless it, or another boss at the same wing and
// position, is already attached
func attachBoss(ctx context.Context, q db.Queries, trainingID int64, boss model.Boss) error {
	attached, err := q.ListTrainingBosses(ctx, trainingID)
	if err != nil {
		return err
	}
	for _, other := range attached {
		if other.ID == boss.ID {
			return fmt.Errorf("boss %q already attached: %w", boss.Code, model.ErrConflict)
		}
		if other.Wing == boss.Wing && other.Position == boss.Position {
			return fmt.Errorf("boss %q collides with %q at wing %d position %d: %w",
				boss.Code, other.Code, boss.Wing, boss.Position, model.ErrConflict)
		}
	}
	return q.AttachBoss(ctx, trainingID, boss.ID)
}

// DetachBoss unschedules a boss and drops it from every signup's preferences
func (s *Service) DetachBoss(ctx context.Context, trainingID, bossID int64) error {
	pruned := 0

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		pruned = 0
		if err := lifecycle.Require(training.State, lifecycle.OpEditBosses); err != nil {
			return nil, err
		}
		if _, err := q.GetBoss(ctx, bossID); err != nil {
			return nil, err
		}

		attached, err := q.ListTrainingBosses(ctx, trainingID)
		if err != nil {
			return nil, err
		}
		if !slices.ContainsFunc(attached, func(b model.Boss) bool { return b.ID == bossID }) {
			return nil, fmt.Errorf("boss %d is not attached to training %d: %w", bossID, trainingID, model.ErrInvalidReference)
		}

		signups, err := q.ListSignups(ctx, trainingID)
		if err != nil {
			return nil, err
		}
		for _, signup := range signups {
			if !slices.Contains(signup.Bosses, bossID) {
				continue
			}
			remaining := slices.DeleteFunc(slices.Clone(signup.Bosses), func(id int64) bool { return id == bossID })
			if err := q.SetSignupBosses(ctx, signup.ID, remaining); err != nil {
				return nil, err
			}
			pruned++
		}

		return nil, q.DetachBoss(ctx, trainingID, bossID)
	})
	if err != nil {
		return fmt.Errorf("failed to detach boss %d from training %d: %w", bossID, trainingID, err)
	}

	s.logger.Info("Boss detached",
		zap.Int64("training_id", trainingID),
		zap.Int64("boss_id", bossID),
		zap.Int("pruned_preferences", pruned))
	return nil
}

// ListTrainingBosses returns a training's bosses ordered by wing and position
func (s *Service) ListTrainingBosses(ctx context.Context, trainingID int64) ([]model.Boss, error) {
	var bosses []model.Boss
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTraining(ctx, trainingID); err != nil {
			return err
		}
		var err error
		bosses, err = q.ListTrainingBosses(ctx, trainingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bosses, nil
}

// SetPreferences replaces the bosses a participant prefers. An empty set means
// no preference.
func (s *Service) SetPreferences(ctx context.Context, trainingID int64, participant string, bossIDs []int64) error {
	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpSetPreferences); err != nil {
			return nil, err
		}
		signup, err := q.GetSignup(ctx, trainingID, participant)
		if err != nil {
			return nil, err
		}

		attached, err := q.ListTrainingBosses(ctx, trainingID)
		if err != nil {
			return nil, err
		}
		for _, bossID := range bossIDs {
			if !slices.ContainsFunc(attached, func(b model.Boss) bool { return b.ID == bossID }) {
				return nil, fmt.Errorf("boss %d is not attached to training %d: %w", bossID, trainingID, model.ErrInvalidReference)
			}
		}

		return nil, q.SetSignupBosses(ctx, signup.ID, bossIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to set preferences of %s on training %d: %w", participant, trainingID, err)
	}

	s.logger.Info("Preferences set",
		zap.Int64("training_id", trainingID),
		zap.String("participant", participant),
		zap.Int("bosses", len(bossIDs)))
	return nil
}

// findBossByCode returns the catalog boss with the code
func findBossByCode(bosses []model.Boss, code string) (*model.Boss, error) {
	for i := range bosses {
		if strings.EqualFold(bosses[i].Code, code) {
			return &bosses[i], nil
		}
	}
	return nil, fmt.Errorf("no boss with code %q: %w", code, model.ErrInvalidReference)
}
