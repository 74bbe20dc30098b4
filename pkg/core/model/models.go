package model

import (
	"fmt"
	"strings"
	"time"
)

// Role priority bounds. Lower is more critical.
const (
	MinRolePriority = 0
	MaxRolePriority = 4
)

// Role is an assignable role definition
type Role struct {
	ID       int64
	Title    string
	Code     string // short code, e.g. "dps"
	Glyph    string // display emoji
	Priority int
	Active   bool
}

// TrainingState is the lifecycle state of a training
type TrainingState string

const (
	StateCreated   TrainingState = "created"
	StatePublished TrainingState = "published"
	StateClosed    TrainingState = "closed"
	StateStarted   TrainingState = "started"
	StateFinished  TrainingState = "finished"
)

// AllStates lists the lifecycle states in order
var AllStates = []TrainingState{
	StateCreated,
	StatePublished,
	StateClosed,
	StateStarted,
	StateFinished,
}

func (s TrainingState) IsValid() bool {
	return s.Ordinal() >= 0
}

// Ordinal returns the position of the state in the lifecycle, or -1 if unknown
func (s TrainingState) Ordinal() int {
	for i, state := range AllStates {
		if state == s {
			return i
		}
	}
	return -1
}

// ParseTrainingState parses a state name. "open" is accepted for published.
func ParseTrainingState(input string) (TrainingState, error) {
	s := TrainingState(strings.ToLower(strings.TrimSpace(input)))
	if s == "open" {
		return StatePublished, nil
	}
	if !s.IsValid() {
		return "", fmt.Errorf("unknown training state: %q", input)
	}
	return s, nil
}

// Training is a scheduled group activity
type Training struct {
	ID     int64
	Title  string
	Date   time.Time
	State  TrainingState
	TierID *int64 // nil when the training is open to everyone
}

// SlotDemand is the number of openings for one role in a training
type SlotDemand struct {
	RoleID int64
	Count  int
}

// Boss is a sub-encounter in the global catalog
type Boss struct {
	ID       int64
	Code     string
	Name     string
	Wing     int
	Position int
}

// Signup is a participant's registration for a training
type Signup struct {
	ID           int64
	TrainingID   int64
	Participant  string
	RegisteredAt time.Time
	Comment      string
	// Roles are the accepted role ids, sorted ascending
	Roles []int64
	// Bosses are the preferred boss ids, sorted ascending. Empty means no preference.
	Bosses []int64
}

// AcceptsRole reports whether the signup accepts the role
func (s *Signup) AcceptsRole(roleID int64) bool {
	for _, id := range s.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// Tier is an internal eligibility level. Higher ranks are more privileged.
type Tier struct {
	ID   int64
	Name string
	Rank int
}

// Unrestricted is the tier of participants that match no mapping
var Unrestricted = Tier{ID: 0, Name: "unrestricted", Rank: 0}

// TierMapping links an external group (e.g. a Discord role id) to a tier
type TierMapping struct {
	ExternalGroupID string
	TierID          int64
}

// Profile holds the game account a participant plays under
type Profile struct {
	Participant string
	AccountName string
	UpdatedAt   time.Time
}

// StateChange is an audit record of a lifecycle transition
type StateChange struct {
	TrainingID int64
	From       TrainingState
	To         TrainingState
	At         time.Time
}

// Placement is one filled slot
type Placement struct {
	SignupID int64
	RoleID   int64
}

// BossRoster lists the assigned signups recommended for one boss
type BossRoster struct {
	BossID    int64
	SignupIDs []int64
}

// Assignment is the committed resolver output for a training
type Assignment struct {
	TrainingID  int64
	Placements  []Placement
	Unfilled    []SlotDemand
	Benched     []int64
	BossRosters []BossRoster
	ResolvedAt  time.Time
}

// RoleOf returns the role a signup was placed in
func (a *Assignment) RoleOf(signupID int64) (int64, bool) {
	for _, p := range a.Placements {
		if p.SignupID == signupID {
			return p.RoleID, true
		}
	}
	return 0, false
}
