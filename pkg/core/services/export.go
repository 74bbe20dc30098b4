package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
	"github.com/jakechorley/training-signups/pkg/export"
)

// ExportAssignment renders the committed assignment of a training as a table.
// Everything in the table is read from the same committed state.
func (s *Service) ExportAssignment(ctx context.Context, trainingID int64) (export.Table, error) {
	var src export.Source
	err := s.store.ReadTx(ctx, func(q db.Queries) error {
		var err error
		src, err = exportSource(ctx, q, trainingID)
		return err
	})
	if err != nil {
		return export.Table{}, fmt.Errorf("failed to export training %d: %w", trainingID, err)
	}

	table := export.BuildTable(src)

	s.logger.Debug("Assignment exported",
		zap.Int64("training_id", trainingID),
		zap.Int("rows", len(table.Rows)))
	return table, nil
}

func exportSource(ctx context.Context, q db.Queries, trainingID int64) (export.Source, error) {
	training, err := q.GetTraining(ctx, trainingID)
	if err != nil {
		return export.Source{}, err
	}
	assignment, err := q.GetAssignment(ctx, trainingID)
	if err != nil {
		return export.Source{}, err
	}

	roles, err := q.ListRoles(ctx)
	if err != nil {
		return export.Source{}, fmt.Errorf("failed to list roles: %w", err)
	}
	signups, err := q.ListSignups(ctx, trainingID)
	if err != nil {
		return export.Source{}, fmt.Errorf("failed to list signups: %w", err)
	}
	bosses, err := q.ListTrainingBosses(ctx, trainingID)
	if err != nil {
		return export.Source{}, fmt.Errorf("failed to list bosses: %w", err)
	}

	profiles := make(map[string]model.Profile, len(signups))
	for _, signup := range signups {
		profile, err := q.GetProfile(ctx, signup.Participant)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return export.Source{}, fmt.Errorf("failed to load profile of %s: %w", signup.Participant, err)
		}
		profiles[signup.Participant] = *profile
	}

	return export.Source{
		Training:   *training,
		Assignment: *assignment,
		Roles:      roles,
		Signups:    signups,
		Bosses:     bosses,
		Profiles:   profiles,
	}, nil
}
