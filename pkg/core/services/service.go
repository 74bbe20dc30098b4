package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
)

// MembershipOracle reports the external groups (e.g. Discord role ids) a participant belongs to
type MembershipOracle interface {
	ExternalGroupIDs(ctx context.Context, participant string) ([]string, error)
}

// Notifier receives events once the change behind them has been committed
type Notifier interface {
	Notify(ctx context.Context, event model.Event)
}

// NoMembership is an oracle for hosts without group memberships. Everybody
// resolves to model.Unrestricted.
type NoMembership struct{}

func (NoMembership) ExternalGroupIDs(ctx context.Context, participant string) ([]string, error) {
	return nil, nil
}

// LogNotifier writes events to a logger
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(ctx context.Context, event model.Event) {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.Int64("training_id", event.TrainingID),
		zap.String("title", event.Title),
	}
	switch event.Kind {
	case model.EventStateChanged:
		fields = append(fields, zap.String("from", string(event.From)), zap.String("to", string(event.To)))
	case model.EventAssignmentCommitted:
		fields = append(fields,
			zap.Int("placements", len(event.Assignment.Placements)),
			zap.Int("benched", len(event.Assignment.Benched)))
	}
	n.Logger.Info("Training event", fields...)
}

// Service exposes the training operations. Mutations on the same training are
// serialized; different trainings proceed independently.
type Service struct {
	store    db.Store
	oracle   MembershipOracle
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	locks    *trainingLocks
}

// Option customizes a Service
type Option func(*Service)

// WithOracle sets the membership oracle used by tier checks
func WithOracle(oracle MembershipOracle) Option {
	return func(s *Service) { s.oracle = oracle }
}

// WithNotifier sets where committed events are sent
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. Without options nobody belongs to any external group
// and events are logged.
func New(store db.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		oracle:   NoMembership{},
		notifier: LogNotifier{Logger: logger},
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    newTrainingLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutateTraining runs fn under the training's lock inside one transaction,
// with the training row loaded and locked. Events returned by fn are sent
// after the commit; none are sent when fn or the commit fails.
func (s *Service) mutateTraining(
	ctx context.Context,
	trainingID int64,
	fn func(q db.Queries, training *model.Training) ([]model.Event, error),
) error {
	unlock := s.locks.lock(trainingID)
	defer unlock()

	var events []model.Event
	err := s.store.InTx(ctx, func(q db.Queries) error {
		training, err := q.LockTraining(ctx, trainingID)
		if err != nil {
			return err
		}
		events, err = fn(q, training)
		return err
	})
	if err != nil {
		return err
	}

	for _, event := range events {
		s.notifier.Notify(ctx, event)
	}
	return nil
}
