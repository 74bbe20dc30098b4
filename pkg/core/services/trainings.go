package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/internal/config"
	"github.com/jakechorley/training-signups/pkg/core/lifecycle"
	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
)

// CreateTraining creates a training in the created state
func (s *Service) CreateTraining(ctx context.Context, title string, date time.Time, tierID *int64) (*model.Training, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("training title is required: %w", model.ErrInvalidInput)
	}

	training := &model.Training{
		Title:  title,
		Date:   date.UTC(),
		State:  model.StateCreated,
		TierID: tierID,
	}

	err := s.store.InTx(ctx, func(q db.Queries) error {
		if tierID != nil {
			if _, err := q.GetTier(ctx, *tierID); err != nil {
				return err
			}
		}
		return q.InsertTraining(ctx, training)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create training: %w", err)
	}

	s.logger.Info("Training created",
		zap.Int64("training_id", training.ID),
		zap.String("title", training.Title),
		zap.Time("date", training.Date))

	return training, nil
}

// GetTraining retrieves a training by id
func (s *Service) GetTraining(ctx context.Context, trainingID int64) (*model.Training, error) {
	return s.store.GetTraining(ctx, trainingID)
}

// ListTrainings returns trainings in any of the states, or all trainings when
// no state is given, ordered by date
func (s *Service) ListTrainings(ctx context.Context, states ...model.TrainingState) ([]model.Training, error) {
	trainings, err := s.store.ListTrainings(ctx, states)
	if err != nil {
		return nil, fmt.Errorf("failed to list trainings: %w", err)
	}
	return trainings, nil
}

// CountTrainings counts the trainings in a state
func (s *Service) CountTrainings(ctx context.Context, state model.TrainingState) (int, error) {
	trainings, err := s.ListTrainings(ctx, state)
	if err != nil {
		return 0, err
	}
	return len(trainings), nil
}

// TrainingHistory returns the recorded transitions of a training, oldest first
func (s *Service) TrainingHistory(ctx context.Context, trainingID int64) ([]model.StateChange, error) {
	var history []model.StateChange
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTraining(ctx, trainingID); err != nil {
			return err
		}
		var err error
		history, err = q.ListStateChanges(ctx, trainingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// Advance moves a training to target, which must be the immediate successor
// of its current state.
//
// Starting a training freezes its assignment. When none was committed while
// the training was closed the resolver runs now and its result is committed
// with the transition. A training without slots starts without an assignment.
func (s *Service) Advance(ctx context.Context, trainingID int64, target model.TrainingState) (*model.Training, error) {
	var result model.Training

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.CheckTransition(training.State, target); err != nil {
			return nil, err
		}

		var events []model.Event
		if target == model.StateStarted {
			frozen, err := s.freezeAssignment(ctx, q, training)
			if err != nil {
				return nil, err
			}
			if frozen != nil {
				events = append(events, model.NewAssignmentEvent(*training, frozen))
			}
		}

		from := training.State
		at := s.now()
		if err := q.UpdateTrainingState(ctx, model.StateChange{
			TrainingID: training.ID,
			From:       from,
			To:         target,
			At:         at,
		}); err != nil {
			return nil, err
		}

		training.State = target
		result = *training
		events = append([]model.Event{model.NewStateChangedEvent(*training, from, at)}, events...)
		return events, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance training %d to %s: %w", trainingID, target, err)
	}

	s.logger.Info("Training advanced",
		zap.Int64("training_id", trainingID),
		zap.String("state", string(result.State)))

	return &result, nil
}

// freezeAssignment commits an assignment for a training about to start if
// none exists. It returns the newly committed assignment, or nil.
func (s *Service) freezeAssignment(ctx context.Context, q db.Queries, training *model.Training) (*model.Assignment, error) {
	_, err := q.GetAssignment(ctx, training.ID)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	assignment, err := s.resolveSnapshot(ctx, q, training.ID)
	if errors.Is(err, model.ErrEmptyInput) {
		s.logger.Debug("Starting training without slots", zap.Int64("training_id", training.ID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := q.SaveAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// SetTrainingTier sets or clears the tier a training requires
func (s *Service) SetTrainingTier(ctx context.Context, trainingID int64, tierID *int64) error {
	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpSetTier); err != nil {
			return nil, err
		}
		if tierID != nil {
			if _, err := q.GetTier(ctx, *tierID); err != nil {
				return nil, err
			}
		}
		return nil, q.SetTrainingTier(ctx, trainingID, tierID)
	})
	if err != nil {
		return fmt.Errorf("failed to set tier of training %d: %w", trainingID, err)
	}

	s.logger.Info("Training tier set", zap.Int64("training_id", trainingID), zap.Bool("restricted", tierID != nil))
	return nil
}

// DeleteTraining removes a training with its assignment, signups, boss
// schedule, slots and history. Finished trainings are kept.
func (s *Service) DeleteTraining(ctx context.Context, trainingID int64) error {
	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpDelete); err != nil {
			return nil, err
		}

		if err := q.DeleteAssignment(ctx, trainingID); err != nil {
			return nil, err
		}

		signups, err := q.ListSignups(ctx, trainingID)
		if err != nil {
			return nil, err
		}
		for _, signup := range signups {
			if err := removeSignup(ctx, q, signup.ID); err != nil {
				return nil, err
			}
		}

		if err := q.DeleteTrainingBosses(ctx, trainingID); err != nil {
			return nil, err
		}
		if err := q.DeleteTrainingSlots(ctx, trainingID); err != nil {
			return nil, err
		}
		return nil, q.DeleteTraining(ctx, trainingID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete training %d: %w", trainingID, err)
	}

	s.logger.Info("Training deleted", zap.Int64("training_id", trainingID))
	return nil
}

// AddSlots adds count openings of an active role to a training
func (s *Service) AddSlots(ctx context.Context, trainingID, roleID int64, count int) error {
	if count < 1 {
		return fmt.Errorf("slot count must be positive, got %d: %w", count, model.ErrInvalidInput)
	}

	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpEditSlots); err != nil {
			return nil, err
		}
		role, err := q.GetRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
		if !role.Active {
			return nil, fmt.Errorf("role %q is inactive: %w", role.Code, model.ErrInvalidReference)
		}
		for i := 0; i < count; i++ {
			if err := q.AddTrainingSlot(ctx, trainingID, roleID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to add role %d to training %d: %w", roleID, trainingID, err)
	}

	s.logger.Info("Slots added",
		zap.Int64("training_id", trainingID),
		zap.Int64("role_id", roleID),
		zap.Int("count", count))
	return nil
}

// RemoveSlot removes one opening of a role. Removing the last opening of a
// role that signups accept fails with ErrInUse.
func (s *Service) RemoveSlot(ctx context.Context, trainingID, roleID int64) error {
	err := s.mutateTraining(ctx, trainingID, func(q db.Queries, training *model.Training) ([]model.Event, error) {
		if err := lifecycle.Require(training.State, lifecycle.OpEditSlots); err != nil {
			return nil, err
		}

		slots, err := q.ListTrainingSlots(ctx, trainingID)
		if err != nil {
			return nil, err
		}
		openings := 0
		for _, slot := range slots {
			if slot.RoleID == roleID {
				openings = slot.Count
			}
		}
		if openings == 0 {
			return nil, fmt.Errorf("role %d is not required by training %d: %w", roleID, trainingID, model.ErrInvalidReference)
		}

		if openings == 1 {
			accepted, err := q.CountRoleAcceptances(ctx, trainingID, roleID)
			if err != nil {
				return nil, err
			}
			if accepted > 0 {
				return nil, fmt.Errorf("%d signups accept role %d: %w", accepted, roleID, model.ErrInUse)
			}
		}

		return nil, q.RemoveTrainingSlot(ctx, trainingID, roleID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove role %d from training %d: %w", roleID, trainingID, err)
	}

	s.logger.Info("Slot removed", zap.Int64("training_id", trainingID), zap.Int64("role_id", roleID))
	return nil
}

// ListSlots returns the openings per role of a training
func (s *Service) ListSlots(ctx context.Context, trainingID int64) ([]model.SlotDemand, error) {
	var slots []model.SlotDemand
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		if _, err := q.GetTraining(ctx, trainingID); err != nil {
			return err
		}
		var err error
		slots, err = q.ListTrainingSlots(ctx, trainingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ScheduleTrainings creates count trainings from a template, one per
// occurrence of its recurrence rule on or after from. Every training gets the
// template's slots, bosses and tier. Either all trainings are created or none.
func (s *Service) ScheduleTrainings(ctx context.Context, tmpl config.TrainingTemplate, count int, from time.Time) ([]model.Training, error) {
	if count <= 0 {
		return nil, fmt.Errorf("training count must be positive, got %d: %w", count, model.ErrInvalidInput)
	}

	dates, err := occurrences(tmpl.RRule, from, count)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Scheduling trainings",
		zap.String("template", tmpl.Name),
		zap.Int("count", count),
		zap.Time("from", from))

	created := make([]model.Training, 0, count)
	err = s.store.InTx(ctx, func(q db.Queries) error {
		created = created[:0]
		var tierID *int64
		if tmpl.Tier != "" {
			tiers, err := q.ListTiers(ctx)
			if err != nil {
				return err
			}
			tier, err := findTierByName(tiers, tmpl.Tier)
			if err != nil {
				return err
			}
			tierID = &tier.ID
		}

		slots, err := templateSlots(ctx, q, tmpl)
		if err != nil {
			return err
		}
		bosses, err := templateBosses(ctx, q, tmpl)
		if err != nil {
			return err
		}

		for _, date := range dates {
			training := &model.Training{
				Title:  tmpl.Title,
				Date:   date.UTC(),
				State:  model.StateCreated,
				TierID: tierID,
			}
			if err := q.InsertTraining(ctx, training); err != nil {
				return err
			}
			for _, slot := range slots {
				for i := 0; i < slot.Count; i++ {
					if err := q.AddTrainingSlot(ctx, training.ID, slot.RoleID); err != nil {
						return err
					}
				}
			}
			for _, boss := range bosses {
				if err := attachBoss(ctx, q, training.ID, boss); err != nil {
					return err
				}
			}
			created = append(created, *training)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule trainings from template %q: %w", tmpl.Name, err)
	}

	s.logger.Info("Trainings scheduled", zap.String("template", tmpl.Name), zap.Int("count", len(created)))
	return created, nil
}

// occurrences expands a recurrence rule into its first count dates on or after from
func occurrences(rule string, from time.Time, count int) ([]time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rrule %q: %v: %w", rule, err, model.ErrInvalidInput)
	}
	r.DTStart(from.UTC())

	dates := make([]time.Time, 0, count)
	next := r.Iterator()
	for len(dates) < count {
		date, ok := next()
		if !ok {
			break
		}
		dates = append(dates, date)
	}
	if len(dates) < count {
		return nil, fmt.Errorf("rrule %q yields only %d of %d occurrences: %w", rule, len(dates), count, model.ErrInvalidInput)
	}
	return dates, nil
}

// templateSlots maps the template's role codes onto active roles, ordered by role id
func templateSlots(ctx context.Context, q db.Queries, tmpl config.TrainingTemplate) ([]model.SlotDemand, error) {
	roles, err := q.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]model.SlotDemand, 0, len(tmpl.Slots))
	for code, count := range tmpl.Slots {
		role, err := findActiveRoleByCode(roles, code)
		if err != nil {
			return nil, err
		}
		slots = append(slots, model.SlotDemand{RoleID: role.ID, Count: count})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].RoleID < slots[j].RoleID })
	return slots, nil
}

// templateBosses maps the template's boss codes onto the catalog
func templateBosses(ctx context.Context, q db.Queries, tmpl config.TrainingTemplate) ([]model.Boss, error) {
	if len(tmpl.Bosses) == 0 {
		return nil, nil
	}

	catalog, err := q.ListBosses(ctx)
	if err != nil {
		return nil, err
	}

	bosses := make([]model.Boss, 0, len(tmpl.Bosses))
	for _, code := range tmpl.Bosses {
		boss, err := findBossByCode(catalog, code)
		if err != nil {
			return nil, err
		}
		bosses = append(bosses, *boss)
	}
	return bosses, nil
}
