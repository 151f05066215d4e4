package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScheduledStatus is the lifecycle state of a scheduled workout.
type ScheduledStatus string

const (
	ScheduledPlanned   ScheduledStatus = "planned"
	ScheduledCompleted ScheduledStatus = "completed"
)

// ParseScheduledStatus converts a free-form status string into the closed
// enum. Matching is case-insensitive; anything unrecognized maps to planned,
// so boundary input can never put a scheduled workout into an unknown state.
func ParseScheduledStatus(s string) ScheduledStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(ScheduledCompleted)) {
		return ScheduledCompleted
	}
	return ScheduledPlanned
}

// ScheduledWorkout is a plan instantiated onto a calendar date. It references
// its plan by id only; the exercise tree is an independent copy, so later plan
// edits never alter what was scheduled.
type ScheduledWorkout struct {
	ID                uuid.UUID           `json:"id"`
	UserID            int                 `json:"-"`
	PlanID            uuid.UUID           `json:"plan_id"`
	Date              time.Time           `json:"date"`
	TimeOfDay         *string             `json:"time_of_day,omitempty"`
	PlanName          string              `json:"plan_name"`
	PlanNotes         string              `json:"plan_notes,omitempty"`
	Status            ScheduledStatus     `json:"status"`
	SharedWithFriends bool                `json:"shared_with_friends"`
	CreatedAt         time.Time           `json:"created_at"`
	Exercises         []ScheduledExercise `json:"exercises"`
}

// ScheduledExercise mirrors PlanExercise but is independently owned by the
// scheduled workout.
type ScheduledExercise struct {
	ID                 uuid.UUID      `json:"id"`
	ScheduledWorkoutID uuid.UUID      `json:"-"`
	Position           int            `json:"position"`
	Name               string         `json:"name"`
	RestSeconds        int            `json:"rest_seconds"`
	Sets               []ScheduledSet `json:"sets"`
}

// ScheduledSet mirrors PlanSet, independently owned.
type ScheduledSet struct {
	ID         uuid.UUID `json:"id"`
	ExerciseID uuid.UUID `json:"-"`
	SetNumber  int       `json:"set_number"`
	Reps       int       `json:"reps"`
	Weight     float64   `json:"weight"`
}
