package discordclient

import (
	"fmt"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

var stateMessages = map[model.TrainingState]string{
	model.StatePublished: "is open for signups",
	model.StateClosed:    "is closed for signups",
	model.StateStarted:   "has started",
	model.StateFinished:  "has finished",
}

// FormatEvent renders an event as a channel message
func FormatEvent(event model.Event) string {
	switch event.Kind {
	case model.EventStateChanged:
		msg, ok := stateMessages[event.To]
		if !ok {
			msg = fmt.Sprintf("moved to %s", event.To)
		}
		return fmt.Sprintf("**%s** (#%d) %s", event.Title, event.TrainingID, msg)

	case model.EventAssignmentCommitted:
		a := event.Assignment
		if a == nil {
			return fmt.Sprintf("**%s** (#%d) assignment committed", event.Title, event.TrainingID)
		}
		open := 0
		for _, u := range a.Unfilled {
			open += u.Count
		}
		return fmt.Sprintf("**%s** (#%d) assignment committed: %d placed, %d benched, %d open",
			event.Title, event.TrainingID, len(a.Placements), len(a.Benched), open)
	}

	return fmt.Sprintf("**%s** (#%d) %s", event.Title, event.TrainingID, event.Kind)
}
