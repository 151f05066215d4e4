// Package session executes scheduled workouts. A session deep-copies the
// scheduled exercise tree as its attempt record, accepts set-by-set logging
// while in progress, and moves one-directionally to completed or aborted.
// The only way back is Reopen, which deletes the session outright.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// Store is the persistence contract the session engine needs. Multi-entity
// mutations (insert session + mark parent completed, delete session + reset
// parent) happen inside one transaction in the implementation, so an
// operation either fully applies or fully fails.
type Store interface {
	GetScheduled(ctx context.Context, userID int, id uuid.UUID) (*models.ScheduledWorkout, error)
	// InsertSession persists a new session with its full tree. The partial
	// unique index on non-aborted sessions makes a lost race surface as
	// models.ErrConflict.
	InsertSession(ctx context.Context, sess *models.WorkoutSession, markScheduledCompleted bool) error
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error)
	ListSessionsForScheduled(ctx context.Context, userID int, scheduledID uuid.UUID) ([]models.WorkoutSession, error)
	ActiveSession(ctx context.Context, userID int) (*models.WorkoutSession, error)
	UpdateSessionHeader(ctx context.Context, sess *models.WorkoutSession, markScheduledCompleted bool) error
	UpdateSessionSet(ctx context.Context, userID int, set *models.SessionSet) error
	InsertSessionExercise(ctx context.Context, ex *models.SessionExercise) error
	DeleteSessionResetScheduled(ctx context.Context, sessionID, scheduledID uuid.UUID) error
}

// QuickCompleteRequest carries the retroactive-log inputs. Timestamps default
// to now; a completed time earlier than the start is clamped to the start.
type QuickCompleteRequest struct {
	StartedAt            *time.Time `json:"started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CopyPlannedToActuals bool       `json:"copy_planned_to_actuals"`
}

// PatchSetRequest carries a partial set update. Each non-nil field overwrites
// independently; nil fields are untouched.
type PatchSetRequest struct {
	RepsDone   *int     `json:"reps_done,omitempty"`
	WeightDone *float64 `json:"weight_done,omitempty"`
	RPE        *float64 `json:"rpe,omitempty"`
	IsFailure  *bool    `json:"is_failure,omitempty"`
}

// CompleteRequest finishes a session. CompletedAt defaults to now and is
// normalized to UTC whatever location the caller supplied.
type CompleteRequest struct {
	Notes       *string    `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Engine implements the session state machine.
type Engine struct {
	store Store
	now   func() time.Time
}

// New creates a session engine.
func New(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Start opens a new in-progress session for a scheduled workout, deep-copying
// its current exercise tree. Fails with conflict while an in-progress or
// completed session exists for the same scheduled workout; an aborted session
// does not block.
func (e *Engine) Start(ctx context.Context, userID int, scheduledID uuid.UUID) (*models.WorkoutSession, error) {
	sw, err := e.store.GetScheduled(ctx, userID, scheduledID)
	if err != nil {
		return nil, err
	}
	if err := e.checkNoActiveSession(ctx, userID, scheduledID); err != nil {
		return nil, err
	}

	sess := &models.WorkoutSession{
		ID:                 uuid.New(),
		UserID:             userID,
		ScheduledWorkoutID: sw.ID,
		StartedAt:          e.now().UTC(),
		Status:             models.SessionInProgress,
	}
	sess.Exercises = copyScheduledTree(sess.ID, sw)

	if err := e.store.InsertSession(ctx, sess, false); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

// QuickComplete logs a workout retroactively: the session is created directly
// in the completed state, bypassing in-progress, and the parent scheduled
// workout is marked completed in the same transaction.
func (e *Engine) QuickComplete(ctx context.Context, userID int, scheduledID uuid.UUID, req QuickCompleteRequest) (*models.WorkoutSession, error) {
	sw, err := e.store.GetScheduled(ctx, userID, scheduledID)
	if err != nil {
		return nil, err
	}
	if sw.Status == models.ScheduledCompleted {
		return nil, fmt.Errorf("%w: scheduled workout already completed", models.ErrConflict)
	}
	if err := e.checkNoActiveSession(ctx, userID, scheduledID); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	started := now
	if req.StartedAt != nil {
		started = req.StartedAt.UTC()
	}
	completed := now
	if req.CompletedAt != nil {
		completed = req.CompletedAt.UTC()
	}
	if completed.Before(started) {
		completed = started
	}
	duration := int(completed.Sub(started).Seconds())

	sess := &models.WorkoutSession{
		ID:                 uuid.New(),
		UserID:             userID,
		ScheduledWorkoutID: sw.ID,
		StartedAt:          started,
		CompletedAt:        &completed,
		DurationSec:        &duration,
		Status:             models.SessionCompleted,
		Notes:              req.Notes,
		QuickComplete:      true,
	}
	sess.Exercises = copyScheduledTree(sess.ID, sw)
	if req.CopyPlannedToActuals {
		for i := range sess.Exercises {
			for j := range sess.Exercises[i].Sets {
				set := &sess.Exercises[i].Sets[j]
				reps, weight := set.RepsPlanned, set.WeightPlanned
				set.RepsDone = &reps
				set.WeightDone = &weight
			}
		}
	}

	if err := e.store.InsertSession(ctx, sess, true); err != nil {
		return nil, fmt.Errorf("inserting quick-complete session: %w", err)
	}
	return sess, nil
}

// Get returns a session with its full exercise tree.
func (e *Engine) Get(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error) {
	return e.store.GetSession(ctx, userID, id)
}

// Active returns the caller's current in-progress session.
func (e *Engine) Active(ctx context.Context, userID int) (*models.WorkoutSession, error) {
	return e.store.ActiveSession(ctx, userID)
}

// ListForScheduled returns every session recorded for a scheduled workout,
// oldest first.
func (e *Engine) ListForScheduled(ctx context.Context, userID int, scheduledID uuid.UUID) ([]models.WorkoutSession, error) {
	if _, err := e.store.GetScheduled(ctx, userID, scheduledID); err != nil {
		return nil, err
	}
	return e.store.ListSessionsForScheduled(ctx, userID, scheduledID)
}

// PatchSet applies a partial update to one logged set. Only legal while the
// session is in progress.
func (e *Engine) PatchSet(ctx context.Context, userID int, sessionID, setID uuid.UUID, req PatchSetRequest) (*models.SessionSet, error) {
	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidState, sess.Status)
	}

	set := findSet(sess, setID)
	if set == nil {
		return nil, fmt.Errorf("%w: set %s", models.ErrNotFound, setID)
	}
	if req.RepsDone != nil {
		set.RepsDone = req.RepsDone
	}
	if req.WeightDone != nil {
		set.WeightDone = req.WeightDone
	}
	if req.RPE != nil {
		set.RPE = req.RPE
	}
	if req.IsFailure != nil {
		set.IsFailure = req.IsFailure
	}

	if err := e.store.UpdateSessionSet(ctx, userID, set); err != nil {
		return nil, fmt.Errorf("updating set: %w", err)
	}
	return set, nil
}

// AddExercise appends an ad-hoc exercise to an in-progress session. Its
// position is one past the current maximum; set numbers run from 1.
func (e *Engine) AddExercise(ctx context.Context, userID int, sessionID uuid.UUID, in models.ExerciseInput) (*models.SessionExercise, error) {
	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidState, sess.Status)
	}

	maxPos := 0
	for _, ex := range sess.Exercises {
		if ex.Position > maxPos {
			maxPos = ex.Position
		}
	}

	ex := &models.SessionExercise{
		ID:                 uuid.New(),
		SessionID:          sess.ID,
		Position:           maxPos + 1,
		Name:               in.Name,
		RestSecondsPlanned: in.RestSeconds,
		AdHoc:              true,
	}
	for j, set := range in.Sets {
		ex.Sets = append(ex.Sets, models.SessionSet{
			ID:            uuid.New(),
			ExerciseID:    ex.ID,
			SetNumber:     j + 1,
			RepsPlanned:   set.Reps,
			WeightPlanned: set.Weight,
		})
	}

	if err := e.store.InsertSessionExercise(ctx, ex); err != nil {
		return nil, fmt.Errorf("inserting ad-hoc exercise: %w", err)
	}
	return ex, nil
}

// Complete finishes an in-progress session and flips the parent scheduled
// workout to completed if it was still planned.
func (e *Engine) Complete(ctx context.Context, userID int, sessionID uuid.UUID, req CompleteRequest) (*models.WorkoutSession, error) {
	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidState, sess.Status)
	}

	completed := e.now().UTC()
	if req.CompletedAt != nil {
		completed = req.CompletedAt.UTC()
	}
	duration := durationSec(sess.StartedAt, completed)

	sess.Status = models.SessionCompleted
	sess.CompletedAt = &completed
	sess.DurationSec = &duration
	if req.Notes != nil {
		sess.Notes = *req.Notes
	}

	sw, err := e.store.GetScheduled(ctx, userID, sess.ScheduledWorkoutID)
	if err != nil {
		return nil, err
	}
	markCompleted := sw.Status == models.ScheduledPlanned

	if err := e.store.UpdateSessionHeader(ctx, sess, markCompleted); err != nil {
		return nil, fmt.Errorf("completing session: %w", err)
	}
	return sess, nil
}

// Abort cancels an in-progress session. A non-blank reason is appended to the
// session notes on its own line; existing notes are preserved.
func (e *Engine) Abort(ctx context.Context, userID int, sessionID uuid.UUID, reason string) (*models.WorkoutSession, error) {
	sess, err := e.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidState, sess.Status)
	}

	completed := e.now().UTC()
	duration := durationSec(sess.StartedAt, completed)

	sess.Status = models.SessionAborted
	sess.CompletedAt = &completed
	sess.DurationSec = &duration
	if reason != "" {
		line := "Aborted: " + reason
		if sess.Notes == "" {
			sess.Notes = line
		} else {
			sess.Notes += "\n" + line
		}
	}

	if err := e.store.UpdateSessionHeader(ctx, sess, false); err != nil {
		return nil, fmt.Errorf("aborting session: %w", err)
	}
	return sess, nil
}

// Reopen deletes the most recent session for a scheduled workout and resets
// the workout to planned. Only an aborted or quick-completed session
// qualifies: a properly completed session is never destroyed this way.
func (e *Engine) Reopen(ctx context.Context, userID int, scheduledID uuid.UUID) error {
	sw, err := e.store.GetScheduled(ctx, userID, scheduledID)
	if err != nil {
		return err
	}

	sessions, err := e.store.ListSessionsForScheduled(ctx, userID, scheduledID)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("%w: no session to reopen", models.ErrInvalidState)
	}

	latest := sessions[0]
	for _, s := range sessions[1:] {
		if s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	for _, s := range sessions {
		if s.Status == models.SessionInProgress {
			return fmt.Errorf("%w: a session is in progress", models.ErrInvalidState)
		}
	}

	reopenable := latest.Status == models.SessionAborted ||
		(latest.Status == models.SessionCompleted && latest.QuickComplete)
	if !reopenable {
		return fmt.Errorf("%w: completed session cannot be reopened", models.ErrInvalidState)
	}

	if err := e.store.DeleteSessionResetScheduled(ctx, latest.ID, sw.ID); err != nil {
		return fmt.Errorf("reopening scheduled workout: %w", err)
	}
	return nil
}

// checkNoActiveSession enforces the one-non-aborted-session rule before an
// insert. The schema's partial unique index closes the remaining race.
func (e *Engine) checkNoActiveSession(ctx context.Context, userID int, scheduledID uuid.UUID) error {
	sessions, err := e.store.ListSessionsForScheduled(ctx, userID, scheduledID)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Status != models.SessionAborted {
			return fmt.Errorf("%w: session %s is %s", models.ErrConflict, s.ID, s.Status)
		}
	}
	return nil
}

// copyScheduledTree deep-copies a scheduled workout's exercises into session
// exercises: planned values come from the scheduled sets, actuals start nil,
// and each exercise keeps a non-owning back-reference to its origin.
func copyScheduledTree(sessionID uuid.UUID, sw *models.ScheduledWorkout) []models.SessionExercise {
	exercises := make([]models.SessionExercise, 0, len(sw.Exercises))
	for _, se := range sw.Exercises {
		origin := se.ID
		ex := models.SessionExercise{
			ID:                  uuid.New(),
			SessionID:           sessionID,
			Position:            se.Position,
			Name:                se.Name,
			RestSecondsPlanned:  se.RestSeconds,
			ScheduledExerciseID: &origin,
		}
		for _, ss := range se.Sets {
			ex.Sets = append(ex.Sets, models.SessionSet{
				ID:            uuid.New(),
				ExerciseID:    ex.ID,
				SetNumber:     ss.SetNumber,
				RepsPlanned:   ss.Reps,
				WeightPlanned: ss.Weight,
			})
		}
		exercises = append(exercises, ex)
	}
	return exercises
}

func findSet(sess *models.WorkoutSession, setID uuid.UUID) *models.SessionSet {
	for i := range sess.Exercises {
		for j := range sess.Exercises[i].Sets {
			if sess.Exercises[i].Sets[j].ID == setID {
				return &sess.Exercises[i].Sets[j]
			}
		}
	}
	return nil
}

// durationSec returns completed-started in whole seconds, never negative.
func durationSec(started, completed time.Time) int {
	d := int(completed.Sub(started).Seconds())
	if d < 0 {
		return 0
	}
	return d
}
