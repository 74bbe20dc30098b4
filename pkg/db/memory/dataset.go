package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// dataset holds every table. Its methods implement db.Queries without any
// locking; Store takes care of that.
type dataset struct {
	seq map[string]int64

	roles          map[int64]model.Role
	tiers          map[int64]model.Tier
	tierMappings   map[string]int64
	trainings      map[int64]model.Training
	history        map[int64][]model.StateChange
	slots          map[int64]map[int64]int
	bosses         map[int64]model.Boss
	trainingBosses map[int64]map[int64]bool
	signups        map[int64]model.Signup
	assignments    map[int64]model.Assignment
	profiles       map[string]model.Profile
}

func newDataset() *dataset {
	return &dataset{
		seq:            make(map[string]int64),
		roles:          make(map[int64]model.Role),
		tiers:          make(map[int64]model.Tier),
		tierMappings:   make(map[string]int64),
		trainings:      make(map[int64]model.Training),
		history:        make(map[int64][]model.StateChange),
		slots:          make(map[int64]map[int64]int),
		bosses:         make(map[int64]model.Boss),
		trainingBosses: make(map[int64]map[int64]bool),
		signups:        make(map[int64]model.Signup),
		assignments:    make(map[int64]model.Assignment),
		profiles:       make(map[string]model.Profile),
	}
}

func (d *dataset) nextID(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

// clone returns a deep copy, used as the working copy of a transaction
func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.seq {
		c.seq[k] = v
	}
	for k, v := range d.roles {
		c.roles[k] = v
	}
	for k, v := range d.tiers {
		c.tiers[k] = v
	}
	for k, v := range d.tierMappings {
		c.tierMappings[k] = v
	}
	for k, v := range d.trainings {
		c.trainings[k] = copyTraining(v)
	}
	for k, v := range d.history {
		c.history[k] = slices.Clone(v)
	}
	for k, v := range d.slots {
		m := make(map[int64]int, len(v))
		for role, count := range v {
			m[role] = count
		}
		c.slots[k] = m
	}
	for k, v := range d.bosses {
		c.bosses[k] = v
	}
	for k, v := range d.trainingBosses {
		m := make(map[int64]bool, len(v))
		for boss := range v {
			m[boss] = true
		}
		c.trainingBosses[k] = m
	}
	for k, v := range d.signups {
		c.signups[k] = copySignup(v)
	}
	for k, v := range d.assignments {
		c.assignments[k] = copyAssignment(v)
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	return c
}

func copyTraining(t model.Training) model.Training {
	if t.TierID != nil {
		id := *t.TierID
		t.TierID = &id
	}
	return t
}

func copySignup(s model.Signup) model.Signup {
	s.Roles = slices.Clone(s.Roles)
	s.Bosses = slices.Clone(s.Bosses)
	if s.Roles == nil {
		s.Roles = []int64{}
	}
	if s.Bosses == nil {
		s.Bosses = []int64{}
	}
	return s
}

func copyAssignment(a model.Assignment) model.Assignment {
	a.Placements = slices.Clone(a.Placements)
	a.Unfilled = slices.Clone(a.Unfilled)
	a.Benched = slices.Clone(a.Benched)
	rosters := make([]model.BossRoster, len(a.BossRosters))
	for i, r := range a.BossRosters {
		rosters[i] = model.BossRoster{BossID: r.BossID, SignupIDs: slices.Clone(r.SignupIDs)}
	}
	a.BossRosters = rosters
	return a
}

func sortedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// --- Roles ---

func (d *dataset) InsertRole(ctx context.Context, role *model.Role) error {
	if role.Active {
		if err := d.checkActiveRoleUnique(0, role.Code, role.Glyph); err != nil {
			return err
		}
	}
	role.ID = d.nextID("roles")
	d.roles[role.ID] = *role
	return nil
}

func (d *dataset) checkActiveRoleUnique(exceptID int64, code, glyph string) error {
	for _, existing := range d.roles {
		if existing.ID != exceptID && existing.Active && existing.Code == code && existing.Glyph == glyph {
			return fmt.Errorf("active role with code %q and glyph %q exists: %w", code, glyph, model.ErrConflict)
		}
	}
	return nil
}

func (d *dataset) GetRole(ctx context.Context, id int64) (*model.Role, error) {
	role, ok := d.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %d: %w", id, model.ErrNotFound)
	}
	return &role, nil
}

func (d *dataset) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles := make([]model.Role, 0, len(d.roles))
	for _, role := range d.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Priority != roles[j].Priority {
			return roles[i].Priority < roles[j].Priority
		}
		return roles[i].ID < roles[j].ID
	})
	return roles, nil
}

func (d *dataset) SetRoleActive(ctx context.Context, id int64, active bool) error {
	role, ok := d.roles[id]
	if !ok {
		return fmt.Errorf("role %d: %w", id, model.ErrNotFound)
	}
	if active && !role.Active {
		if err := d.checkActiveRoleUnique(id, role.Code, role.Glyph); err != nil {
			return err
		}
	}
	role.Active = active
	d.roles[id] = role
	return nil
}

// --- Tiers ---

func (d *dataset) InsertTier(ctx context.Context, tier *model.Tier) error {
	for _, existing := range d.tiers {
		if existing.Name == tier.Name || existing.Rank == tier.Rank {
			return fmt.Errorf("tier %q (rank %d) clashes with %q: %w", tier.Name, tier.Rank, existing.Name, model.ErrConflict)
		}
	}
	tier.ID = d.nextID("tiers")
	d.tiers[tier.ID] = *tier
	return nil
}

func (d *dataset) GetTier(ctx context.Context, id int64) (*model.Tier, error) {
	tier, ok := d.tiers[id]
	if !ok {
		return nil, fmt.Errorf("tier %d: %w", id, model.ErrNotFound)
	}
	return &tier, nil
}

func (d *dataset) ListTiers(ctx context.Context) ([]model.Tier, error) {
	tiers := make([]model.Tier, 0, len(d.tiers))
	for _, tier := range d.tiers {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Rank < tiers[j].Rank })
	return tiers, nil
}

func (d *dataset) DeleteTier(ctx context.Context, id int64) error {
	if _, ok := d.tiers[id]; !ok {
		return fmt.Errorf("tier %d: %w", id, model.ErrNotFound)
	}
	for group, tierID := range d.tierMappings {
		if tierID == id {
			delete(d.tierMappings, group)
		}
	}
	delete(d.tiers, id)
	return nil
}

func (d *dataset) UpsertTierMapping(ctx context.Context, mapping model.TierMapping) error {
	if _, ok := d.tiers[mapping.TierID]; !ok {
		return fmt.Errorf("tier %d: %w", mapping.TierID, model.ErrNotFound)
	}
	d.tierMappings[mapping.ExternalGroupID] = mapping.TierID
	return nil
}

func (d *dataset) DeleteTierMapping(ctx context.Context, externalGroupID string) error {
	if _, ok := d.tierMappings[externalGroupID]; !ok {
		return fmt.Errorf("tier mapping for %q: %w", externalGroupID, model.ErrNotFound)
	}
	delete(d.tierMappings, externalGroupID)
	return nil
}

func (d *dataset) ListTierMappings(ctx context.Context) ([]model.TierMapping, error) {
	mappings := make([]model.TierMapping, 0, len(d.tierMappings))
	for group, tierID := range d.tierMappings {
		mappings = append(mappings, model.TierMapping{ExternalGroupID: group, TierID: tierID})
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].ExternalGroupID < mappings[j].ExternalGroupID })
	return mappings, nil
}

// --- Trainings ---

func (d *dataset) InsertTraining(ctx context.Context, training *model.Training) error {
	training.ID = d.nextID("trainings")
	d.trainings[training.ID] = copyTraining(*training)
	return nil
}

func (d *dataset) GetTraining(ctx context.Context, id int64) (*model.Training, error) {
	training, ok := d.trainings[id]
	if !ok {
		return nil, fmt.Errorf("training %d: %w", id, model.ErrNotFound)
	}
	training = copyTraining(training)
	return &training, nil
}

func (d *dataset) LockTraining(ctx context.Context, id int64) (*model.Training, error) {
	return d.GetTraining(ctx, id)
}

func (d *dataset) ListTrainings(ctx context.Context, states []model.TrainingState) ([]model.Training, error) {
	trainings := make([]model.Training, 0)
	for _, training := range d.trainings {
		if len(states) > 0 && !slices.Contains(states, training.State) {
			continue
		}
		trainings = append(trainings, copyTraining(training))
	}
	sort.Slice(trainings, func(i, j int) bool {
		if !trainings[i].Date.Equal(trainings[j].Date) {
			return trainings[i].Date.Before(trainings[j].Date)
		}
		return trainings[i].ID < trainings[j].ID
	})
	return trainings, nil
}

func (d *dataset) UpdateTrainingState(ctx context.Context, change model.StateChange) error {
	training, ok := d.trainings[change.TrainingID]
	if !ok {
		return fmt.Errorf("training %d: %w", change.TrainingID, model.ErrNotFound)
	}
	training.State = change.To
	d.trainings[training.ID] = training
	d.history[training.ID] = append(d.history[training.ID], change)
	return nil
}

func (d *dataset) SetTrainingTier(ctx context.Context, id int64, tierID *int64) error {
	training, ok := d.trainings[id]
	if !ok {
		return fmt.Errorf("training %d: %w", id, model.ErrNotFound)
	}
	if tierID != nil {
		if _, ok := d.tiers[*tierID]; !ok {
			return fmt.Errorf("tier %d: %w", *tierID, model.ErrNotFound)
		}
	}
	training.TierID = tierID
	d.trainings[id] = copyTraining(training)
	return nil
}

func (d *dataset) DeleteTraining(ctx context.Context, id int64) error {
	if _, ok := d.trainings[id]; !ok {
		return fmt.Errorf("training %d: %w", id, model.ErrNotFound)
	}
	delete(d.trainings, id)
	delete(d.history, id)
	return nil
}

func (d *dataset) ListStateChanges(ctx context.Context, trainingID int64) ([]model.StateChange, error) {
	changes := slices.Clone(d.history[trainingID])
	if changes == nil {
		changes = []model.StateChange{}
	}
	return changes, nil
}

func (d *dataset) AddTrainingSlot(ctx context.Context, trainingID, roleID int64) error {
	if _, ok := d.trainings[trainingID]; !ok {
		return fmt.Errorf("training %d: %w", trainingID, model.ErrNotFound)
	}
	if _, ok := d.roles[roleID]; !ok {
		return fmt.Errorf("role %d: %w", roleID, model.ErrNotFound)
	}
	if d.slots[trainingID] == nil {
		d.slots[trainingID] = make(map[int64]int)
	}
	d.slots[trainingID][roleID]++
	return nil
}

func (d *dataset) RemoveTrainingSlot(ctx context.Context, trainingID, roleID int64) error {
	if d.slots[trainingID][roleID] == 0 {
		return fmt.Errorf("slot for role %d in training %d: %w", roleID, trainingID, model.ErrNotFound)
	}
	d.slots[trainingID][roleID]--
	if d.slots[trainingID][roleID] == 0 {
		delete(d.slots[trainingID], roleID)
	}
	return nil
}

func (d *dataset) ListTrainingSlots(ctx context.Context, trainingID int64) ([]model.SlotDemand, error) {
	slots := make([]model.SlotDemand, 0, len(d.slots[trainingID]))
	for roleID, count := range d.slots[trainingID] {
		slots = append(slots, model.SlotDemand{RoleID: roleID, Count: count})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].RoleID < slots[j].RoleID })
	return slots, nil
}

func (d *dataset) DeleteTrainingSlots(ctx context.Context, trainingID int64) error {
	delete(d.slots, trainingID)
	return nil
}

// --- Bosses ---

func (d *dataset) InsertBoss(ctx context.Context, boss *model.Boss) error {
	for _, existing := range d.bosses {
		if existing.Code == boss.Code {
			return fmt.Errorf("boss code %q: %w", boss.Code, model.ErrConflict)
		}
	}
	boss.ID = d.nextID("bosses")
	d.bosses[boss.ID] = *boss
	return nil
}

func (d *dataset) GetBoss(ctx context.Context, id int64) (*model.Boss, error) {
	boss, ok := d.bosses[id]
	if !ok {
		return nil, fmt.Errorf("boss %d: %w", id, model.ErrNotFound)
	}
	return &boss, nil
}

func (d *dataset) ListBosses(ctx context.Context) ([]model.Boss, error) {
	bosses := make([]model.Boss, 0, len(d.bosses))
	for _, boss := range d.bosses {
		bosses = append(bosses, boss)
	}
	sortBosses(bosses)
	return bosses, nil
}

func (d *dataset) AttachBoss(ctx context.Context, trainingID, bossID int64) error {
	if _, ok := d.trainings[trainingID]; !ok {
		return fmt.Errorf("training %d: %w", trainingID, model.ErrNotFound)
	}
	if _, ok := d.bosses[bossID]; !ok {
		return fmt.Errorf("boss %d: %w", bossID, model.ErrNotFound)
	}
	if d.trainingBosses[trainingID][bossID] {
		return fmt.Errorf("boss %d already attached to training %d: %w", bossID, trainingID, model.ErrConflict)
	}
	if d.trainingBosses[trainingID] == nil {
		d.trainingBosses[trainingID] = make(map[int64]bool)
	}
	d.trainingBosses[trainingID][bossID] = true
	return nil
}

func (d *dataset) DetachBoss(ctx context.Context, trainingID, bossID int64) error {
	if !d.trainingBosses[trainingID][bossID] {
		return fmt.Errorf("boss %d on training %d: %w", bossID, trainingID, model.ErrNotFound)
	}
	delete(d.trainingBosses[trainingID], bossID)
	return nil
}

func (d *dataset) ListTrainingBosses(ctx context.Context, trainingID int64) ([]model.Boss, error) {
	bosses := make([]model.Boss, 0, len(d.trainingBosses[trainingID]))
	for bossID := range d.trainingBosses[trainingID] {
		bosses = append(bosses, d.bosses[bossID])
	}
	sortBosses(bosses)
	return bosses, nil
}

func (d *dataset) DeleteTrainingBosses(ctx context.Context, trainingID int64) error {
	delete(d.trainingBosses, trainingID)
	return nil
}

func sortBosses(bosses []model.Boss) {
	sort.Slice(bosses, func(i, j int) bool {
		if bosses[i].Wing != bosses[j].Wing {
			return bosses[i].Wing < bosses[j].Wing
		}
		if bosses[i].Position != bosses[j].Position {
			return bosses[i].Position < bosses[j].Position
		}
		return bosses[i].ID < bosses[j].ID
	})
}

// --- Signups ---

func (d *dataset) InsertSignup(ctx context.Context, signup *model.Signup) error {
	if _, ok := d.trainings[signup.TrainingID]; !ok {
		return fmt.Errorf("training %d: %w", signup.TrainingID, model.ErrNotFound)
	}
	for _, existing := range d.signups {
		if existing.TrainingID == signup.TrainingID && existing.Participant == signup.Participant {
			return fmt.Errorf("signup for %s on training %d: %w", signup.Participant, signup.TrainingID, model.ErrConflict)
		}
	}
	signup.ID = d.nextID("signups")
	signup.Roles = sortedIDs(signup.Roles)
	signup.Bosses = sortedIDs(signup.Bosses)
	d.signups[signup.ID] = copySignup(*signup)
	return nil
}

func (d *dataset) GetSignup(ctx context.Context, trainingID int64, participant string) (*model.Signup, error) {
	for _, signup := range d.signups {
		if signup.TrainingID == trainingID && signup.Participant == participant {
			s := copySignup(signup)
			return &s, nil
		}
	}
	return nil, fmt.Errorf("signup for %s on training %d: %w", participant, trainingID, model.ErrNotFound)
}

func (d *dataset) ListSignups(ctx context.Context, trainingID int64) ([]model.Signup, error) {
	return d.filterSignups(func(s model.Signup) bool { return s.TrainingID == trainingID }), nil
}

func (d *dataset) ListParticipantSignups(ctx context.Context, participant string) ([]model.Signup, error) {
	return d.filterSignups(func(s model.Signup) bool { return s.Participant == participant }), nil
}

func (d *dataset) filterSignups(keep func(model.Signup) bool) []model.Signup {
	signups := make([]model.Signup, 0)
	for _, signup := range d.signups {
		if keep(signup) {
			signups = append(signups, copySignup(signup))
		}
	}
	sort.Slice(signups, func(i, j int) bool {
		if !signups[i].RegisteredAt.Equal(signups[j].RegisteredAt) {
			return signups[i].RegisteredAt.Before(signups[j].RegisteredAt)
		}
		return signups[i].ID < signups[j].ID
	})
	return signups
}

func (d *dataset) updateSignup(signupID int64, update func(*model.Signup)) error {
	signup, ok := d.signups[signupID]
	if !ok {
		return fmt.Errorf("signup %d: %w", signupID, model.ErrNotFound)
	}
	update(&signup)
	d.signups[signupID] = copySignup(signup)
	return nil
}

func (d *dataset) SetSignupRoles(ctx context.Context, signupID int64, roleIDs []int64) error {
	for _, id := range roleIDs {
		if _, ok := d.roles[id]; !ok {
			return fmt.Errorf("role %d: %w", id, model.ErrNotFound)
		}
	}
	return d.updateSignup(signupID, func(s *model.Signup) { s.Roles = sortedIDs(roleIDs) })
}

func (d *dataset) SetSignupBosses(ctx context.Context, signupID int64, bossIDs []int64) error {
	for _, id := range bossIDs {
		if _, ok := d.bosses[id]; !ok {
			return fmt.Errorf("boss %d: %w", id, model.ErrNotFound)
		}
	}
	return d.updateSignup(signupID, func(s *model.Signup) { s.Bosses = sortedIDs(bossIDs) })
}

func (d *dataset) SetSignupComment(ctx context.Context, signupID int64, comment string) error {
	return d.updateSignup(signupID, func(s *model.Signup) { s.Comment = comment })
}

func (d *dataset) DeleteSignup(ctx context.Context, signupID int64) error {
	signup, ok := d.signups[signupID]
	if !ok {
		return fmt.Errorf("signup %d: %w", signupID, model.ErrNotFound)
	}
	if len(signup.Roles) > 0 || len(signup.Bosses) > 0 {
		return fmt.Errorf("signup %d still has roles or bosses: %w", signupID, model.ErrInUse)
	}
	delete(d.signups, signupID)
	return nil
}

func (d *dataset) CountRoleAcceptances(ctx context.Context, trainingID, roleID int64) (int, error) {
	count := 0
	for _, signup := range d.signups {
		if signup.TrainingID == trainingID && signup.AcceptsRole(roleID) {
			count++
		}
	}
	return count, nil
}

// --- Assignments ---

func (d *dataset) SaveAssignment(ctx context.Context, assignment *model.Assignment) error {
	if _, ok := d.trainings[assignment.TrainingID]; !ok {
		return fmt.Errorf("training %d: %w", assignment.TrainingID, model.ErrNotFound)
	}
	d.assignments[assignment.TrainingID] = copyAssignment(*assignment)
	return nil
}

func (d *dataset) GetAssignment(ctx context.Context, trainingID int64) (*model.Assignment, error) {
	assignment, ok := d.assignments[trainingID]
	if !ok {
		return nil, fmt.Errorf("assignment for training %d: %w", trainingID, model.ErrNotFound)
	}
	assignment = copyAssignment(assignment)
	return &assignment, nil
}

func (d *dataset) DeleteAssignment(ctx context.Context, trainingID int64) error {
	delete(d.assignments, trainingID)
	return nil
}

// --- Profiles ---

func (d *dataset) UpsertProfile(ctx context.Context, profile model.Profile) error {
	d.profiles[profile.Participant] = profile
	return nil
}

func (d *dataset) GetProfile(ctx context.Context, participant string) (*model.Profile, error) {
	profile, ok := d.profiles[participant]
	if !ok {
		return nil, fmt.Errorf("profile for %s: %w", participant, model.ErrNotFound)
	}
	return &profile, nil
}
