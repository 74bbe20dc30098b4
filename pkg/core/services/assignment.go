package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/lifecycle"
	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/core/resolver"
	"github.com/jakechorley/training-signups/pkg/db"
)

// ResolveAssignment matches the signups of a closed training to its slots.
// With commit the result replaces the stored assignment; without it the run
// is a preview and nothing is written. Runs over unchanged signups produce the
// same placements.
func (s *Service) ResolveAssignment(ctx context.Context, trainingID int64, commit bool) (*model.Assignment, error) {
	var result *model.Assignment

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpResolve); err != nil {
			return nil, err
		}

		assignment, err := s.resolveSnapshot(ctx, q, trainingID)
		if err != nil {
			return nil, err
		}
		result = assignment

		if !commit {
			return nil, nil
		}
		if err := q.SaveAssignment(ctx, assignment); err != nil {
			return nil, err
		}
		return []model.Event{model.NewAssignmentEvent(*training, assignment)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignment of training %d: %w", trainingID, err)
	}

	s.logger.Info("Assignment resolved",
		zap.Int64("training_id", trainingID),
		zap.Bool("committed", commit),
		zap.Int("placements", len(result.Placements)),
		zap.Int("unfilled_roles", len(result.Unfilled)),
		zap.Int("benched", len(result.Benched)))

	return result, nil
}

// resolveSnapshot reads the training's slots, signups and bosses through q and
// runs the resolver over them
func (s *Service) resolveSnapshot(ctx context.Context, q db.Queries, trainingID int64) (*model.Assignment, error) {
	// Inactive roles keep their priority for trainings that still use them
	roles, err := q.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	slots, err := q.ListTrainingSlots(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	signups, err := q.ListSignups(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	bosses, err := q.ListTrainingBosses(ctx, trainingID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Running resolver",
		zap.Int64("training_id", trainingID),
		zap.Int("slot_roles", len(slots)),
		zap.Int("signups", len(signups)),
		zap.Int("bosses", len(bosses)))

	outcome, err := resolver.Resolve(resolver.Input{
		Roles:   roles,
		Slots:   slots,
		Signups: signups,
		Bosses:  bosses,
	})
	if err != nil {
		return nil, err
	}

	return &model.Assignment{
		TrainingID:  trainingID,
		Placements:  outcome.Placements,
		Unfilled:    outcome.Unfilled,
		Benched:     outcome.Benched,
		BossRosters: outcome.BossRosters,
		ResolvedAt:  s.now(),
	}, nil
}

// GetAssignment returns the committed assignment of a training
func (s *Service) GetAssignment(ctx context.Context, trainingID int64) (*model.Assignment, error) {
	var assignment *model.Assignment
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTraining(ctx, trainingID); err != nil {
			return err
		}
		var err error
		assignment, err = q.GetAssignment(ctx, trainingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}
