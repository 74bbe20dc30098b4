package lifecycle

import (
	"fmt"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// Operation is an action gated by the training state
type Operation string

const (
	OpEditSlots      Operation = "edit slots"
	OpEditBosses     Operation = "edit bosses"
	OpSetTier        Operation = "set tier"
	OpRegister       Operation = "register"
	OpWithdraw       Operation = "withdraw"
	OpSetPreferences Operation = "set preferences"
	OpComment        Operation = "comment"
	OpResolve        Operation = "resolve"
	OpDelete         Operation = "delete"
)

var permitted = map[model.TrainingState][]Operation{
	model.StateCreated: {
		OpEditSlots, OpEditBosses, OpSetTier, OpDelete,
	},
	model.StatePublished: {
		OpRegister, OpWithdraw, OpSetPreferences, OpComment,
		OpEditSlots, OpEditBosses, OpSetTier, OpDelete,
	},
	model.StateClosed: {
		OpWithdraw, OpResolve, OpDelete,
	},
	model.StateStarted: {
		OpDelete,
	},
	model.StateFinished: {},
}

// Permits reports whether op may run while a training is in state
func Permits(state model.TrainingState, op Operation) bool {
	for _, allowed := range permitted[state] {
		if allowed == op {
			return true
		}
	}
	return false
}

// Require returns ErrIllegalState if op is not permitted in state
func Require(state model.TrainingState, op Operation) error {
	if !Permits(state, op) {
		return fmt.Errorf("cannot %s while training is %s: %w", op, state, model.ErrIllegalState)
	}
	return nil
}

// Next returns the successor of state. ok is false for finished or unknown states.
func Next(state model.TrainingState) (next model.TrainingState, ok bool) {
	i := state.Ordinal()
	if i < 0 || i+1 >= len(model.AllStates) {
		return "", false
	}
	return model.AllStates[i+1], true
}

// CheckTransition validates a single forward step from current to target
func CheckTransition(current, target model.TrainingState) error {
	next, ok := Next(current)
	if !ok || next != target {
		return fmt.Errorf("cannot move training from %s to %s: %w", current, target, model.ErrIllegalTransition)
	}
	return nil
}
