package memory

import (
	"context"
	"sync"

	"github.com/jakechorley/training-signups/pkg/core/model"
	"github.com/jakechorley/training-signups/pkg/db"
)

// Store is an in-process db.Store. Transactions work on a copy of the data
// that replaces the live copy on commit, so readers never see partial writes.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

var _ db.Store = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// InTx runs fn against a working copy and commits it if fn succeeds.
// Transactions are serialized with each other and with single writes.
func (s *Store) InTx(ctx context.Context, fn func(q db.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(working); err != nil {
		return err
	}
	s.data = working
	return nil
}

// ReadTx runs fn against the live data while holding off every writer
func (s *Store) ReadTx(ctx context.Context, fn func(q db.Queries) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) InsertRole(ctx context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InsertRole(ctx, role)
}

func (s *Store) GetRole(ctx context.Context, id int64) (*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetRole(ctx, id)
}

func (s *Store) ListRoles(ctx context.Context) ([]model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListRoles(ctx)
}

func (s *Store) SetRoleActive(ctx context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetRoleActive(ctx, id, active)
}

func (s *Store) InsertTier(ctx context.Context, tier *model.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InsertTier(ctx, tier)
}

func (s *Store) GetTier(ctx context.Context, id int64) (*model.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetTier(ctx, id)
}

func (s *Store) ListTiers(ctx context.Context) ([]model.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListTiers(ctx)
}

func (s *Store) DeleteTier(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteTier(ctx, id)
}

func (s *Store) UpsertTierMapping(ctx context.Context, mapping model.TierMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpsertTierMapping(ctx, mapping)
}

func (s *Store) DeleteTierMapping(ctx context.Context, externalGroupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteTierMapping(ctx, externalGroupID)
}

func (s *Store) ListTierMappings(ctx context.Context) ([]model.TierMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListTierMappings(ctx)
}

func (s *Store) InsertTraining(ctx context.Context, training *model.Training) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InsertTraining(ctx, training)
}

func (s *Store) GetTraining(ctx context.Context, id int64) (*model.Training, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetTraining(ctx, id)
}

func (s *Store) LockTraining(ctx context.Context, id int64) (*model.Training, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.LockTraining(ctx, id)
}

func (s *Store) ListTrainings(ctx context.Context, states []model.TrainingState) ([]model.Training, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListTrainings(ctx, states)
}

func (s *Store) UpdateTrainingState(ctx context.Context, change model.StateChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateTrainingState(ctx, change)
}

func (s *Store) SetTrainingTier(ctx context.Context, id int64, tierID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetTrainingTier(ctx, id, tierID)
}

func (s *Store) DeleteTraining(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteTraining(ctx, id)
}

func (s *Store) ListStateChanges(ctx context.Context, trainingID int64) ([]model.StateChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListStateChanges(ctx, trainingID)
}

func (s *Store) AddTrainingSlot(ctx context.Context, trainingID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.AddTrainingSlot(ctx, trainingID, roleID)
}

func (s *Store) RemoveTrainingSlot(ctx context.Context, trainingID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.RemoveTrainingSlot(ctx, trainingID, roleID)
}

func (s *Store) ListTrainingSlots(ctx context.Context, trainingID int64) ([]model.SlotDemand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListTrainingSlots(ctx, trainingID)
}

func (s *Store) DeleteTrainingSlots(ctx context.Context, trainingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteTrainingSlots(ctx, trainingID)
}

func (s *Store) InsertBoss(ctx context.Context, boss *model.Boss) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InsertBoss(ctx, boss)
}

func (s *Store) GetBoss(ctx context.Context, id int64) (*model.Boss, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetBoss(ctx, id)
}

func (s *Store) ListBosses(ctx context.Context) ([]model.Boss, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListBosses(ctx)
}

func (s *Store) AttachBoss(ctx context.Context, trainingID, bossID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.AttachBoss(ctx, trainingID, bossID)
}

func (s *Store) DetachBoss(ctx context.Context, trainingID, bossID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DetachBoss(ctx, trainingID, bossID)
}

func (s *Store) ListTrainingBosses(ctx context.Context, trainingID int64) ([]model.Boss, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListTrainingBosses(ctx, trainingID)
}

func (s *Store) DeleteTrainingBosses(ctx context.Context, trainingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteTrainingBosses(ctx, trainingID)
}

func (s *Store) InsertSignup(ctx context.Context, signup *model.Signup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InsertSignup(ctx, signup)
}

func (s *Store) GetSignup(ctx context.Context, trainingID int64, participant string) (*model.Signup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetSignup(ctx, trainingID, participant)
}

func (s *Store) ListSignups(ctx context.Context, trainingID int64) ([]model.Signup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListSignups(ctx, trainingID)
}

func (s *Store) ListParticipantSignups(ctx context.Context, participant string) ([]model.Signup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListParticipantSignups(ctx, participant)
}

func (s *Store) SetSignupRoles(ctx context.Context, signupID int64, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetSignupRoles(ctx, signupID, roleIDs)
}

func (s *Store) SetSignupBosses(ctx context.Context, signupID int64, bossIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetSignupBosses(ctx, signupID, bossIDs)
}

func (s *Store) SetSignupComment(ctx context.Context, signupID int64, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetSignupComment(ctx, signupID, comment)
}

func (s *Store) DeleteSignup(ctx context.Context, signupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteSignup(ctx, signupID)
}

func (s *Store) CountRoleAcceptances(ctx context.Context, trainingID, roleID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.CountRoleAcceptances(ctx, trainingID, roleID)
}

func (s *Store) SaveAssignment(ctx context.Context, assignment *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SaveAssignment(ctx, assignment)
}

func (s *Store) GetAssignment(ctx context.Context, trainingID int64) (*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetAssignment(ctx, trainingID)
}

func (s *Store) DeleteAssignment(ctx context.Context, trainingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteAssignment(ctx, trainingID)
}

func (s *Store) UpsertProfile(ctx context.Context, profile model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpsertProfile(ctx, profile)
}

func (s *Store) GetProfile(ctx context.Context, participant string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetProfile(ctx, participant)
}
