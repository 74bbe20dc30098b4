package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/lifecycle"
	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/core/tiergate"
	"github.com/jakechorley/training-signups/pkg/db"
)

// ParticipantSignup pairs a signup with its training
type ParticipantSignup struct {
	Training model.Training
	Signup   model.Signup
}

// errMembershipNeeded stops a registration that found a tier requirement
// after membership was last checked. The oracle is never called while the
// training is locked.
var errMembershipNeeded = errors.New("membership lookup needed")

// Register signs a participant up for a published training with the roles
// they accept. Registering again replaces the accepted roles and keeps the
// original registration time and boss preferences.
func (s *Service) Register(ctx context.Context, trainingID int64, participant string, roleIDs []int64) (*model.Signup, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return nil, fmt.Errorf("participant is required: %w", model.ErrInvalidInput)
	}

	// Membership is looked up before entering the training's critical section
	var groupIDs []string
	lookedUp := false
	if training, err := s.store.GetTraining(ctx, trainingID); err == nil && training.TierID != nil {
		groupIDs = s.memberGroups(ctx, participant)
		lookedUp = true
	}

	result, replaced, err := s.register(ctx, trainingID, participant, roleIDs, groupIDs, lookedUp)
	if errors.Is(err, errMembershipNeeded) {
		s.logger.Debug("Training became restricted during registration",
			zap.Int64("training_id", trainingID),
			zap.String("participant", participant))
		groupIDs = s.memberGroups(ctx, participant)
		result, replaced, err = s.register(ctx, trainingID, participant, roleIDs, groupIDs, true)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register %s for training %d: %w", participant, trainingID, err)
	}

	s.logger.Info("Participant registered",
		zap.Int64("training_id", trainingID),
		zap.String("participant", participant),
		zap.Int64s("roles", result.Roles),
		zap.Bool("replaced", replaced))

	return result, nil
}

// register stores the signup under the training's lock. Without lookedUp a
// tier-restricted training fails with errMembershipNeeded.
func (s *Service) register(
	ctx context.Context,
	trainingID int64,
	participant string,
	roleIDs []int64,
	groupIDs []string,
	lookedUp bool,
) (*model.Signup, bool, error) {
	var result model.Signup
	replaced := false

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		replaced = false
		if err := lifecycle.Require(training.State, lifecycle.OpRegister); err != nil {
			return nil, err
		}

		if training.TierID != nil {
			if !lookedUp {
				return nil, errMembershipNeeded
			}
			required, err := q.GetTier(ctx, *training.TierID)
			if err != nil {
				return nil, err
			}
			resolved, err := resolveTier(ctx, q, groupIDs)
			if err != nil {
				return nil, err
			}
			if !tiergate.CheckAdmission(required, resolved) {
				return nil, fmt.Errorf("training requires tier %q, participant is %q: %w",
					required.Name, resolved.Name, model.ErrForbidden)
			}
		}

		accepted, err := validateAcceptedRoles(ctx, q, trainingID, roleIDs)
		if err != nil {
			return nil, err
		}

		existing, err := q.GetSignup(ctx, trainingID, participant)
		switch {
		case err == nil:
			replaced = true
			if err := q.SetSignupRoles(ctx, existing.ID, accepted); err != nil {
				return nil, err
			}
		case errors.Is(err, model.ErrNotFound):
			if err := q.InsertSignup(ctx, &model.Signup{
				TrainingID:   trainingID,
				Participant:  participant,
				RegisteredAt: s.now(),
				Roles:        accepted,
			}); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}

		signup, err := q.GetSignup(ctx, trainingID, participant)
		if err != nil {
			return nil, err
		}
		result = *signup
		return nil, nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, replaced, nil
}

// validateAcceptedRoles checks that roleIDs is a non-empty subset of the
// training's slot roles and returns it sorted without duplicates
func validateAcceptedRoles(ctx context.Context, q db.Queries, trainingID int64, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, fmt.Errorf("at least one role must be accepted: %w", model.ErrInvalidReference)
	}

	slots, err := q.ListTrainingSlots(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	required := make(map[int64]bool, len(slots))
	for _, slot := range slots {
		required[slot.RoleID] = true
	}

	accepted := slices.Clone(roleIDs)
	slices.Sort(accepted)
	accepted = slices.Compact(accepted)
	for _, roleID := range accepted {
		if !required[roleID] {
			return nil, fmt.Errorf("role %d is not required by training %d: %w", roleID, trainingID, model.ErrInvalidReference)
		}
	}
	return accepted, nil
}

// Withdraw removes a participant's signup with its accepted roles and
// preferences. Withdrawing from a closed training discards the committed
// assignment, which has to be resolved again.
func (s *Service) Withdraw(ctx context.Context, trainingID int64, participant string) error {
	discarded := false

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		discarded = false
		if err := lifecycle.Require(training.State, lifecycle.OpWithdraw); err != nil {
			return nil, err
		}
		signup, err := q.GetSignup(ctx, trainingID, participant)
		if err != nil {
			return nil, err
		}

		if training.State == model.StateClosed {
			if _, err := q.GetAssignment(ctx, trainingID); err == nil {
				discarded = true
			}
			if err := q.DeleteAssignment(ctx, trainingID); err != nil {
				return nil, err
			}
		}

		return nil, removeSignup(ctx, q, signup.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to withdraw %s from training %d: %w", participant, trainingID, err)
	}

	s.logger.Info("Participant withdrew",
		zap.Int64("training_id", trainingID),
		zap.String("participant", participant),
		zap.Bool("assignment_discarded", discarded))
	return nil
}

// removeSignup deletes a signup after its preferences and accepted roles
func removeSignup(ctx context.Context, q db.Queries, signupID int64) error {
	if err := q.SetSignupBosses(ctx, signupID, nil); err != nil {
		return err
	}
	if err := q.SetSignupRoles(ctx, signupID, nil); err != nil {
		return err
	}
	return q.DeleteSignup(ctx, signupID)
}

// SetComment sets the free-text note on a participant's signup
func (s *Service) SetComment(ctx context.Context, trainingID int64, participant, comment string) error {
	comment = strings.TrimSpace(comment)

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpComment); err != nil {
			return nil, err
		}
		signup, err := q.GetSignup(ctx, trainingID, participant)
		if err != nil {
			return nil, err
		}
		return nil, q.SetSignupComment(ctx, signup.ID, comment)
	})
	if err != nil {
		return fmt.Errorf("failed to comment on signup of %s for training %d: %w", participant, trainingID, err)
	}

	s.logger.Info("Signup comment set",
		zap.Int64("training_id", trainingID),
		zap.String("participant", participant))
	return nil
}

// GetSignup retrieves a participant's signup for a training
func (s *Service) GetSignup(ctx context.Context, trainingID int64, participant string) (*model.Signup, error) {
	return s.store.GetSignup(ctx, trainingID, participant)
}

// ListSignups returns a training's signups in registration order
func (s *Service) ListSignups(ctx context.Context, trainingID int64) ([]model.Signup, error) {
	var signups []model.Signup
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTraining(ctx, trainingID); err != nil {
			return err
		}
		var err error
		signups, err = q.ListSignups(ctx, trainingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return signups, nil
}

// ParticipantSignups returns a participant's signups for trainings that have
// not finished, ordered by training date
func (s *Service) ParticipantSignups(ctx context.Context, participant string) ([]ParticipantSignup, error) {
	var result []ParticipantSignup
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		signups, err := q.ListParticipantSignups(ctx, participant)
		if err != nil {
			return fmt.Errorf("failed to list signups of %s: %w", participant, err)
		}

		result = make([]ParticipantSignup, 0, len(signups))
		for _, signup := range signups {
			training, err := q.GetTraining(ctx, signup.TrainingID)
			if err != nil {
				return fmt.Errorf("failed to load training %d: %w", signup.TrainingID, err)
			}
			if training.State == model.StateFinished {
				continue
			}
			result = append(result, ParticipantSignup{Training: *training, Signup: signup})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(result, func(a, b ParticipantSignup) int {
		if c := a.Training.Date.Compare(b.Training.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Training.ID, b.Training.ID)
	})
	return result, nil
}

// SaveProfile records the game account a participant plays under
func (s *Service) SaveProfile(ctx context.Context, participant, accountName string) (*model.Profile, error) {
	participant = strings.TrimSpace(participant)
	accountName = strings.TrimSpace(accountName)
	if participant == "" || accountName == "" {
		return nil, fmt.Errorf("participant and account name are required: %w", model.ErrInvalidInput)
	}

	profile := model.Profile{Participant: participant, AccountName: accountName, UpdatedAt: s.now()}
	err := s.store.InTx(ctx, func(q db.Queries) error {
		return q.UpsertProfile(ctx, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save profile of %s: %w", participant, err)
	}

	s.logger.Info("Profile saved", zap.String("participant", participant))
	return &profile, nil
}

// GetProfile retrieves a participant's profile
func (s *Service) GetProfile(ctx context.Context, participant string) (*model.Profile, error) {
	return s.store.GetProfile(ctx, participant)
}
