package resolver

import (
	"fmt"
	"sort"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// Input is a snapshot of a training taken at the start of a run
type Input struct {
	// Roles must contain every role referenced by Slots (for priorities)
	Roles []model.Role

	// Slots is the number of openings per role
	Slots []model.SlotDemand

	// Signups with their accepted roles and boss preferences
	Signups []model.Signup

	// Bosses attached to the training, in any order
	Bosses []model.Boss
}

// Outcome is the result of a run
type Outcome struct {
	// Placements in fill order: role priority, then pool order
	Placements []model.Placement

	// Unfilled lists roles with openings left, in role priority order
	Unfilled []model.SlotDemand

	// Benched lists unassigned signup ids in registration order
	Benched []int64

	// BossRosters has one entry per boss, ordered by wing and position
	BossRosters []model.BossRoster
}

// Success reports whether every opening was filled and nobody was benched
func (o *Outcome) Success() bool {
	return len(o.Unfilled) == 0 && len(o.Benched) == 0
}

// Resolve matches signups to role slots.
//
// Roles are filled in ascending priority ordinal. For each role the pool of
// still unassigned signups accepting it is ordered by registration time, then
// by how few roles they accept, then by signup id, and the front of the pool
// takes the openings. Whoever is left after the last role is benched.
//
// The result depends only on the input, so repeated runs over the same
// snapshot produce identical outcomes.
func Resolve(input Input) (*Outcome, error) {
	demand := make(map[int64]int)
	for _, slot := range input.Slots {
		if slot.Count > 0 {
			demand[slot.RoleID] += slot.Count
		}
	}
	if len(demand) == 0 {
		return nil, fmt.Errorf("training has no required slots: %w", model.ErrEmptyInput)
	}

	roles, err := rolesByPriority(input.Roles, demand)
	if err != nil {
		return nil, err
	}

	signups := orderedSignups(input.Signups)
	assigned := make(map[int64]bool, len(signups))

	outcome := &Outcome{
		Placements:  []model.Placement{},
		Unfilled:    []model.SlotDemand{},
		Benched:     []int64{},
		BossRosters: []model.BossRoster{},
	}

	for _, role := range roles {
		open := demand[role.ID]

		for _, signup := range signups {
			if open == 0 {
				break
			}
			if assigned[signup.ID] || !signup.AcceptsRole(role.ID) {
				continue
			}
			outcome.Placements = append(outcome.Placements, model.Placement{SignupID: signup.ID, RoleID: role.ID})
			assigned[signup.ID] = true
			open--
		}

		if open > 0 {
			outcome.Unfilled = append(outcome.Unfilled, model.SlotDemand{RoleID: role.ID, Count: open})
		}
	}

	benched := make([]model.Signup, 0)
	for _, signup := range signups {
		if !assigned[signup.ID] {
			benched = append(benched, signup)
		}
	}
	sortByRegistration(benched)
	for _, signup := range benched {
		outcome.Benched = append(outcome.Benched, signup.ID)
	}

	outcome.BossRosters = bossRosters(input.Bosses, input.Signups, outcome.Placements)

	return outcome, nil
}

// rolesByPriority returns the roles with open slots, most critical first
func rolesByPriority(catalog []model.Role, demand map[int64]int) ([]model.Role, error) {
	known := make(map[int64]model.Role, len(catalog))
	for _, role := range catalog {
		known[role.ID] = role
	}

	roles := make([]model.Role, 0, len(demand))
	for roleID := range demand {
		role, ok := known[roleID]
		if !ok {
			return nil, fmt.Errorf("slot references unknown role %d: %w", roleID, model.ErrInvalidReference)
		}
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

// orderedSignups returns a copy of signups in pool order
func orderedSignups(signups []model.Signup) []model.Signup {
	ordered := make([]model.Signup, len(signups))
	copy(ordered, signups)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		if len(a.Roles) != len(b.Roles) {
			return len(a.Roles) < len(b.Roles)
		}
		return a.ID < b.ID
	})

	return ordered
}

func sortByRegistration(signups []model.Signup) {
	sort.SliceStable(signups, func(i, j int) bool {
		if !signups[i].RegisteredAt.Equal(signups[j].RegisteredAt) {
			return signups[i].RegisteredAt.Before(signups[j].RegisteredAt)
		}
		return signups[i].ID < signups[j].ID
	})
}

// bossRosters projects the placements onto each boss. Signups without
// preferences attend every boss.
func bossRosters(bosses []model.Boss, signups []model.Signup, placements []model.Placement) []model.BossRoster {
	ordered := make([]model.Boss, len(bosses))
	copy(ordered, bosses)
	SortBosses(ordered)

	prefs := make(map[int64][]int64, len(signups))
	for _, signup := range signups {
		prefs[signup.ID] = signup.Bosses
	}

	rosters := make([]model.BossRoster, 0, len(ordered))
	for _, boss := range ordered {
		roster := model.BossRoster{BossID: boss.ID, SignupIDs: []int64{}}
		for _, placement := range placements {
			if wantsBoss(prefs[placement.SignupID], boss.ID) {
				roster.SignupIDs = append(roster.SignupIDs, placement.SignupID)
			}
		}
		rosters = append(rosters, roster)
	}

	return rosters
}

func wantsBoss(preferred []int64, bossID int64) bool {
	if len(preferred) == 0 {
		return true
	}
	for _, id := range preferred {
		if id == bossID {
			return true
		}
	}
	return false
}

// SortBosses orders bosses by wing, then position, then id
func SortBosses(bosses []model.Boss) {
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
