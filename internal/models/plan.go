package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a reusable workout template authored by a user. Plans carry no
// execution state; scheduling and logging always work on independent copies.
type Plan struct {
	ID        uuid.UUID      `json:"id"`
	UserID    int            `json:"-"`
	Name      string         `json:"name"`
	PlanType  string         `json:"plan_type,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Exercises []PlanExercise `json:"exercises"`
}

// PlanExercise is one exercise slot within a plan, ordered by Position.
type PlanExercise struct {
	ID          uuid.UUID `json:"id"`
	PlanID      uuid.UUID `json:"-"`
	Position    int       `json:"position"`
	Name        string    `json:"name"`
	RestSeconds int       `json:"rest_seconds"`
	Sets        []PlanSet `json:"sets"`
}

// PlanSet is one prescribed set. SetNumber is dense 1..N per exercise,
// assigned at write time and never taken from caller input.
type PlanSet struct {
	ID         uuid.UUID `json:"id"`
	ExerciseID uuid.UUID `json:"-"`
	SetNumber  int       `json:"set_number"`
	Reps       int       `json:"reps"`
	Weight     float64   `json:"weight"`
}
