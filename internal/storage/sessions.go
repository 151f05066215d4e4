package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/liftlog/internal/models"
)

const sessionColumns = `id, user_id, scheduled_workout_id, started_at, completed_at, duration_sec, status, notes, quick_complete`

// InsertSession inserts a session with its full tree. The partial unique
// index on non-aborted sessions per scheduled workout turns a lost race into
// a conflict. When markScheduledCompleted is set the parent scheduled workout
// flips to completed in the same transaction.
func (db *DB) InsertSession(ctx context.Context, sess *models.WorkoutSession, markScheduledCompleted bool) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_sessions (`+sessionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sess.ID, sess.UserID, sess.ScheduledWorkoutID, sess.StartedAt, sess.CompletedAt,
		sess.DurationSec, string(sess.Status), sess.Notes, sess.QuickComplete)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	for i := range sess.Exercises {
		if err := insertSessionExercise(ctx, tx, &sess.Exercises[i]); err != nil {
			return err
		}
	}

	if markScheduledCompleted {
		if _, err := tx.Exec(ctx,
			`UPDATE scheduled_workouts SET status = 'completed' WHERE id = $1`,
			sess.ScheduledWorkoutID); err != nil {
			return fmt.Errorf("marking scheduled workout completed: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetSession retrieves a session with its ordered exercise tree, scoped to
// the owner.
func (db *DB) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE id = $1 AND user_id = $2`,
		id, userID)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if err := db.loadSessionTrees(ctx, map[uuid.UUID]*models.WorkoutSession{sess.ID: sess},
		`WHERE e.session_id = $1`, id); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessionsForScheduled retrieves every session for a scheduled workout,
// oldest first, with trees.
func (db *DB) ListSessionsForScheduled(ctx context.Context, userID int, scheduledID uuid.UUID) ([]models.WorkoutSession, error) {
	return db.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE user_id = $1 AND scheduled_workout_id = $2 ORDER BY started_at`,
		userID, scheduledID)
}

// ActiveSession retrieves the user's current in-progress session.
func (db *DB) ActiveSession(ctx context.Context, userID int) (*models.WorkoutSession, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE user_id = $1 AND status = 'in_progress' ORDER BY started_at DESC LIMIT 1`,
		userID)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}

	if err := db.loadSessionTrees(ctx, map[uuid.UUID]*models.WorkoutSession{sess.ID: sess},
		`WHERE e.session_id = $1`, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompletedSessionsBetween is the analytics read: completed sessions with
// trees, started in [from, to).
func (db *DB) CompletedSessionsBetween(ctx context.Context, userID int, from, to time.Time) ([]models.WorkoutSession, error) {
	return db.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE user_id = $1 AND status = 'completed' AND started_at >= $2 AND started_at < $3
		 ORDER BY started_at`,
		userID, from, to)
}

// UpdateSessionHeader persists a status transition (status, notes, completion
// timestamps); the exercise tree is untouched. When markScheduledCompleted is
// set the parent flips to completed in the same transaction.
func (db *DB) UpdateSessionHeader(ctx context.Context, sess *models.WorkoutSession, markScheduledCompleted bool) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE workout_sessions
		 SET status = $1, notes = $2, completed_at = $3, duration_sec = $4
		 WHERE id = $5 AND user_id = $6`,
		string(sess.Status), sess.Notes, sess.CompletedAt, sess.DurationSec, sess.ID, sess.UserID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if markScheduledCompleted {
		if _, err := tx.Exec(ctx,
			`UPDATE scheduled_workouts SET status = 'completed' WHERE id = $1`,
			sess.ScheduledWorkoutID); err != nil {
			return fmt.Errorf("marking scheduled workout completed: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// UpdateSessionSet overwrites one set's logged actuals, scoped to the owner
// through the session join.
func (db *DB) UpdateSessionSet(ctx context.Context, userID int, set *models.SessionSet) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE session_sets ss
		 SET reps_done = $1, weight_done = $2, rpe = $3, is_failure = $4
		 FROM session_exercises e JOIN workout_sessions s ON e.session_id = s.id
		 WHERE ss.exercise_id = e.id AND ss.id = $5 AND s.user_id = $6`,
		set.RepsDone, set.WeightDone, set.RPE, set.IsFailure, set.ID, userID)
	if err != nil {
		return fmt.Errorf("updating session set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// InsertSessionExercise appends one exercise (with sets) to a session.
func (db *DB) InsertSessionExercise(ctx context.Context, ex *models.SessionExercise) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertSessionExercise(ctx, tx, ex); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteSessionResetScheduled removes a session and resets its scheduled
// workout to planned, atomically. This backs the destructive reopen.
func (db *DB) DeleteSessionResetScheduled(ctx context.Context, sessionID, scheduledID uuid.UUID) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	if _, err := tx.Exec(ctx,
		`UPDATE scheduled_workouts SET status = 'planned' WHERE id = $1`, scheduledID); err != nil {
		return fmt.Errorf("resetting scheduled workout: %w", err)
	}
	return tx.Commit(ctx)
}

func (db *DB) listSessions(ctx context.Context, query string, args ...any) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.WorkoutSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	byID := make(map[uuid.UUID]*models.WorkoutSession, len(sessions))
	ids := make([]uuid.UUID, 0, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID] = &sessions[i]
		ids = append(ids, sessions[i].ID)
	}
	if err := db.loadSessionTrees(ctx, byID, `WHERE e.session_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	return sessions, nil
}

func insertSessionExercise(ctx context.Context, tx pgx.Tx, ex *models.SessionExercise) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO session_exercises (id, session_id, position, name, rest_seconds_planned, rest_seconds_actual, ad_hoc, scheduled_exercise_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ex.ID, ex.SessionID, ex.Position, ex.Name, ex.RestSecondsPlanned,
		ex.RestSecondsActual, ex.AdHoc, ex.ScheduledExerciseID)
	if err != nil {
		return fmt.Errorf("inserting session exercise: %w", err)
	}
	for _, set := range ex.Sets {
		_, err := tx.Exec(ctx,
			`INSERT INTO session_sets (id, exercise_id, set_number, reps_planned, weight_planned, reps_done, weight_done, rpe, is_failure)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			set.ID, set.ExerciseID, set.SetNumber, set.RepsPlanned, set.WeightPlanned,
			set.RepsDone, set.WeightDone, set.RPE, set.IsFailure)
		if err != nil {
			return fmt.Errorf("inserting session set: %w", err)
		}
	}
	return nil
}

// loadSessionTrees populates the Exercises of each session in byID. filter is
// a SQL tail selecting the wanted exercises (aliased e), with one bind
// argument.
func (db *DB) loadSessionTrees(ctx context.Context, byID map[uuid.UUID]*models.WorkoutSession, filter string, arg any) error {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.id, e.session_id, e.position, e.name, e.rest_seconds_planned, e.rest_seconds_actual, e.ad_hoc, e.scheduled_exercise_id
		 FROM session_exercises e `+filter+` ORDER BY e.session_id, e.position`, arg)
	if err != nil {
		return fmt.Errorf("querying session exercises: %w", err)
	}
	defer rows.Close()

	exByID := make(map[uuid.UUID]*models.SessionExercise)
	var order []uuid.UUID
	for rows.Next() {
		var ex models.SessionExercise
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.Position, &ex.Name,
			&ex.RestSecondsPlanned, &ex.RestSecondsActual, &ex.AdHoc, &ex.ScheduledExerciseID); err != nil {
			return fmt.Errorf("scanning session exercise: %w", err)
		}
		exByID[ex.ID] = &ex
		order = append(order, ex.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.exercise_id, s.set_number, s.reps_planned, s.weight_planned, s.reps_done, s.weight_done, s.rpe, s.is_failure
		 FROM session_sets s JOIN session_exercises e ON s.exercise_id = e.id `+filter+`
		 ORDER BY s.exercise_id, s.set_number`, arg)
	if err != nil {
		return fmt.Errorf("querying session sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var set models.SessionSet
		if err := setRows.Scan(&set.ID, &set.ExerciseID, &set.SetNumber,
			&set.RepsPlanned, &set.WeightPlanned, &set.RepsDone, &set.WeightDone,
			&set.RPE, &set.IsFailure); err != nil {
			return fmt.Errorf("scanning session set: %w", err)
		}
		if ex, ok := exByID[set.ExerciseID]; ok {
			ex.Sets = append(ex.Sets, set)
		}
	}
	if err := setRows.Err(); err != nil {
		return err
	}

	for _, id := range order {
		ex := exByID[id]
		if sess, ok := byID[ex.SessionID]; ok {
			sess.Exercises = append(sess.Exercises, *ex)
		}
	}
	return nil
}

func scanSession(row pgx.Row) (*models.WorkoutSession, error) {
	var sess models.WorkoutSession
	var status string
	err := row.Scan(&sess.ID, &sess.UserID, &sess.ScheduledWorkoutID, &sess.StartedAt,
		&sess.CompletedAt, &sess.DurationSec, &status, &sess.Notes, &sess.QuickComplete)
	if err != nil {
		return nil, err
	}
	sess.Status = models.SessionStatus(status)
	return &sess, nil
}
