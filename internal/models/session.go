package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the state-machine state of a workout session.
// Transitions are one-directional: in_progress -> completed | aborted.
// The only way back is the destructive Reopen operation, which deletes the
// session outright.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAborted    SessionStatus = "aborted"
)

// WorkoutSession is the executed attempt record for a scheduled workout.
// Its exercise tree is a deep copy taken at start time; actuals are logged
// set by set while the session is in progress.
type WorkoutSession struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             int               `json:"-"`
	ScheduledWorkoutID uuid.UUID         `json:"scheduled_workout_id"`
	StartedAt          time.Time         `json:"started_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	DurationSec        *int              `json:"duration_sec,omitempty"`
	Status             SessionStatus     `json:"status"`
	Notes              string            `json:"notes,omitempty"`
	QuickComplete      bool              `json:"quick_complete"`
	Exercises          []SessionExercise `json:"exercises"`
}

// SessionExercise is one exercise within a session. AdHoc marks exercises
// added during the session that were not part of the scheduled workout.
// ScheduledExerciseID is a non-owning back-reference for traceability only;
// mutation never travels backward through it.
type SessionExercise struct {
	ID                  uuid.UUID    `json:"id"`
	SessionID           uuid.UUID    `json:"-"`
	Position            int          `json:"position"`
	Name                string       `json:"name"`
	RestSecondsPlanned  int          `json:"rest_seconds_planned"`
	RestSecondsActual   *int         `json:"rest_seconds_actual,omitempty"`
	AdHoc               bool         `json:"ad_hoc"`
	ScheduledExerciseID *uuid.UUID   `json:"scheduled_exercise_id,omitempty"`
	Sets                []SessionSet `json:"sets"`
}

// SessionSet carries the planned prescription alongside the logged actuals.
// The four actual fields stay nil until logged via a set patch.
type SessionSet struct {
	ID            uuid.UUID `json:"id"`
	ExerciseID    uuid.UUID `json:"-"`
	SetNumber     int       `json:"set_number"`
	RepsPlanned   int       `json:"reps_planned"`
	WeightPlanned float64   `json:"weight_planned"`
	RepsDone      *int      `json:"reps_done,omitempty"`
	WeightDone    *float64  `json:"weight_done,omitempty"`
	RPE           *float64  `json:"rpe,omitempty"`
	IsFailure     *bool     `json:"is_failure,omitempty"`
}

// Friendship is a canonical unordered pair: UserAID is always the smaller id.
// The core only ever consumes accepted rows via friend-id queries.
type Friendship struct {
	UserAID     int       `json:"user_a_id"`
	UserBID     int       `json:"user_b_id"`
	Status      string    `json:"status"`
	RequestedBy int       `json:"requested_by"`
	CreatedAt   time.Time `json:"created_at"`
}
