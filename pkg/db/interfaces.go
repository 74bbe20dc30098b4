package db

import (
	"context"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// RoleStore defines the interface for role catalog operations
type RoleStore interface {
	InsertRole(ctx context.Context, role *model.Role) error
	GetRole(ctx context.Context, id int64) (*model.Role, error)
	// ListRoles returns every role, ordered by priority then id
	ListRoles(ctx context.Context) ([]model.Role, error)
	SetRoleActive(ctx context.Context, id int64, active bool) error
}

// TierStore defines the interface for tier and tier mapping operations
type TierStore interface {
	InsertTier(ctx context.Context, tier *model.Tier) error
	GetTier(ctx context.Context, id int64) (*model.Tier, error)
	// ListTiers returns every tier, ordered by rank
	ListTiers(ctx context.Context) ([]model.Tier, error)
	DeleteTier(ctx context.Context, id int64) error
	// UpsertTierMapping replaces any existing mapping for the external group
	UpsertTierMapping(ctx context.Context, mapping model.TierMapping) error
	DeleteTierMapping(ctx context.Context, externalGroupID string) error
	ListTierMappings(ctx context.Context) ([]model.TierMapping, error)
}

// TrainingStore defines the interface for trainings, their slots and history
type TrainingStore interface {
	InsertTraining(ctx context.Context, training *model.Training) error
	GetTraining(ctx context.Context, id int64) (*model.Training, error)
	// LockTraining loads a training and holds it for the rest of the transaction
	LockTraining(ctx context.Context, id int64) (*model.Training, error)
	// ListTrainings returns trainings in the given states (all when empty), ordered by date then id
	ListTrainings(ctx context.Context, states []model.TrainingState) ([]model.Training, error)
	// UpdateTrainingState sets the state and records the change in the history
	UpdateTrainingState(ctx context.Context, change model.StateChange) error
	SetTrainingTier(ctx context.Context, id int64, tierID *int64) error
	// DeleteTraining removes the training row and its history. Dependents must be removed first.
	DeleteTraining(ctx context.Context, id int64) error
	ListStateChanges(ctx context.Context, trainingID int64) ([]model.StateChange, error)

	AddTrainingSlot(ctx context.Context, trainingID, roleID int64) error
	// RemoveTrainingSlot removes a single opening of the role
	RemoveTrainingSlot(ctx context.Context, trainingID, roleID int64) error
	// ListTrainingSlots returns the openings per role, ordered by role id
	ListTrainingSlots(ctx context.Context, trainingID int64) ([]model.SlotDemand, error)
	DeleteTrainingSlots(ctx context.Context, trainingID int64) error
}

// BossStore defines the interface for the boss catalog and training schedules
type BossStore interface {
	InsertBoss(ctx context.Context, boss *model.Boss) error
	GetBoss(ctx context.Context, id int64) (*model.Boss, error)
	ListBosses(ctx context.Context) ([]model.Boss, error)
	AttachBoss(ctx context.Context, trainingID, bossID int64) error
	DetachBoss(ctx context.Context, trainingID, bossID int64) error
	// ListTrainingBosses returns attached bosses ordered by wing then position
	ListTrainingBosses(ctx context.Context, trainingID int64) ([]model.Boss, error)
	DeleteTrainingBosses(ctx context.Context, trainingID int64) error
}

// SignupStore defines the interface for signup operations. Signups are
// returned with their accepted roles and boss preferences loaded.
type SignupStore interface {
	InsertSignup(ctx context.Context, signup *model.Signup) error
	GetSignup(ctx context.Context, trainingID int64, participant string) (*model.Signup, error)
	// ListSignups returns a training's signups ordered by registration time then id
	ListSignups(ctx context.Context, trainingID int64) ([]model.Signup, error)
	ListParticipantSignups(ctx context.Context, participant string) ([]model.Signup, error)
	SetSignupRoles(ctx context.Context, signupID int64, roleIDs []int64) error
	SetSignupBosses(ctx context.Context, signupID int64, bossIDs []int64) error
	SetSignupComment(ctx context.Context, signupID int64, comment string) error
	// DeleteSignup removes the signup row. Roles and bosses must be cleared first.
	DeleteSignup(ctx context.Context, signupID int64) error
	CountRoleAcceptances(ctx context.Context, trainingID, roleID int64) (int, error)
}

// AssignmentStore defines the interface for committed assignments
type AssignmentStore interface {
	// SaveAssignment replaces the training's assignment
	SaveAssignment(ctx context.Context, assignment *model.Assignment) error
	GetAssignment(ctx context.Context, trainingID int64) (*model.Assignment, error)
	// DeleteAssignment is a no-op when there is none
	DeleteAssignment(ctx context.Context, trainingID int64) error
}

// ProfileStore defines the interface for participant profiles
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile model.Profile) error
	GetProfile(ctx context.Context, participant string) (*model.Profile, error)
}

// Queries is every store operation
type Queries interface {
	RoleStore
	TierStore
	TrainingStore
	BossStore
	SignupStore
	AssignmentStore
	ProfileStore
}

// Store is implemented by both the in-memory and the PostgreSQL backends.
// Missing rows are reported as model.ErrNotFound and uniqueness violations as
// model.ErrConflict.
type Store interface {
	Queries

	// InTx runs fn inside a transaction. Nothing fn wrote is visible to other
	// readers unless fn returns nil. fn may run more than once when the
	// backend retries a conflicting transaction.
	InTx(ctx context.Context, fn func(q Queries) error) error

	// ReadTx runs fn against one committed snapshot, so several reads never
	// mix the states before and after a concurrent commit. fn must not write.
	ReadTx(ctx context.Context, fn func(q Queries) error) error
}
