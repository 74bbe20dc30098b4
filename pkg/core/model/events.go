package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what happened to a training
type EventKind string

const (
	EventStateChanged        EventKind = "state_changed"
	EventAssignmentCommitted EventKind = "assignment_committed"
)

// Event is emitted after a change has been committed. It carries data only;
// rendering is up to the consumer.
type Event struct {
	ID         string
	Kind       EventKind
	TrainingID int64
	Title      string
	At         time.Time

	// Set for EventStateChanged
	From TrainingState
	To   TrainingState

	// Set for EventAssignmentCommitted
	Assignment *Assignment
}

// NewStateChangedEvent builds the event for a lifecycle transition
func NewStateChangedEvent(training Training, from TrainingState, at time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Kind:       EventStateChanged,
		TrainingID: training.ID,
		Title:      training.Title,
		At:         at,
		From:       from,
		To:         training.State,
	}
}

// NewAssignmentEvent builds the event for a committed assignment
func NewAssignmentEvent(training Training, assignment *Assignment) Event {
	return Event{
		ID:         uuid.New().String(),
		Kind:       EventAssignmentCommitted,
		TrainingID: training.ID,
		Title:      training.Title,
		At:         assignment.ResolvedAt,
		Assignment: assignment,
	}
}
