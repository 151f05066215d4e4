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

const scheduledColumns = `id, user_id, plan_id, date, time_of_day, plan_name, plan_notes, status, shared_with_friends, created_at`

// InsertScheduled inserts a scheduled workout with its full exercise/set tree
// in one transaction.
func (db *DB) InsertScheduled(ctx context.Context, sw *models.ScheduledWorkout) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO scheduled_workouts (`+scheduledColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		sw.ID, sw.UserID, sw.PlanID, sw.Date, sw.TimeOfDay, sw.PlanName, sw.PlanNotes,
		string(sw.Status), sw.SharedWithFriends, sw.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting scheduled workout: %w", err)
	}
	if err := insertScheduledTree(ctx, tx, sw.Exercises); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetScheduled retrieves a scheduled workout with its ordered exercise tree,
// scoped to the owner.
func (db *DB) GetScheduled(ctx context.Context, userID int, id uuid.UUID) (*models.ScheduledWorkout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_workouts WHERE id = $1 AND user_id = $2`,
		id, userID)

	sw, err := scanScheduled(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying scheduled workout: %w", err)
	}

	if err := db.loadScheduledTrees(ctx, map[uuid.UUID]*models.ScheduledWorkout{sw.ID: sw},
		`WHERE e.scheduled_workout_id = $1`, id); err != nil {
		return nil, err
	}
	return sw, nil
}

// ListScheduledRange retrieves a user's scheduled workouts with dates in
// [from, to] inclusive, with trees, ordered by date.
func (db *DB) ListScheduledRange(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	return db.listScheduled(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_workouts
		 WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date, created_at`,
		userID, from, to)
}

// ListSharedScheduledRange retrieves the shared scheduled workouts of another
// user, for the friend-visibility surface.
func (db *DB) ListSharedScheduledRange(ctx context.Context, ownerID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	return db.listScheduled(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_workouts
		 WHERE user_id = $1 AND shared_with_friends AND date >= $2 AND date <= $3
		 ORDER BY date, created_at`,
		ownerID, from, to)
}

// ScheduledBetween is the analytics read: headers only, no trees.
func (db *DB) ScheduledBetween(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_workouts
		 WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled workouts: %w", err)
	}
	defer rows.Close()
	return scanScheduledRows(rows)
}

// UpdateScheduled persists header changes; when rebuildExercises is set the
// whole subtree is deleted and re-inserted in the same transaction.
func (db *DB) UpdateScheduled(ctx context.Context, sw *models.ScheduledWorkout, rebuildExercises bool) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE scheduled_workouts
		 SET plan_id = $1, date = $2, time_of_day = $3, plan_name = $4, plan_notes = $5,
		     status = $6, shared_with_friends = $7
		 WHERE id = $8 AND user_id = $9`,
		sw.PlanID, sw.Date, sw.TimeOfDay, sw.PlanName, sw.PlanNotes,
		string(sw.Status), sw.SharedWithFriends, sw.ID, sw.UserID)
	if err != nil {
		return fmt.Errorf("updating scheduled workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if rebuildExercises {
		if _, err := tx.Exec(ctx,
			`DELETE FROM scheduled_exercises WHERE scheduled_workout_id = $1`, sw.ID); err != nil {
			return fmt.Errorf("clearing scheduled exercises: %w", err)
		}
		if err := insertScheduledTree(ctx, tx, sw.Exercises); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// DeleteScheduled removes a scheduled workout; exercises, sets and sessions
// go with it via FK cascade.
func (db *DB) DeleteScheduled(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM scheduled_workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting scheduled workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *DB) listScheduled(ctx context.Context, query string, args ...any) ([]models.ScheduledWorkout, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled workouts: %w", err)
	}
	defer rows.Close()

	workouts, err := scanScheduledRows(rows)
	if err != nil {
		return nil, err
	}
	if len(workouts) == 0 {
		return workouts, nil
	}

	byID := make(map[uuid.UUID]*models.ScheduledWorkout, len(workouts))
	ids := make([]uuid.UUID, 0, len(workouts))
	for i := range workouts {
		byID[workouts[i].ID] = &workouts[i]
		ids = append(ids, workouts[i].ID)
	}
	if err := db.loadScheduledTrees(ctx, byID,
		`WHERE e.scheduled_workout_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	return workouts, nil
}

func insertScheduledTree(ctx context.Context, tx pgx.Tx, exercises []models.ScheduledExercise) error {
	for _, ex := range exercises {
		_, err := tx.Exec(ctx,
			`INSERT INTO scheduled_exercises (id, scheduled_workout_id, position, name, rest_seconds)
			 VALUES ($1,$2,$3,$4,$5)`,
			ex.ID, ex.ScheduledWorkoutID, ex.Position, ex.Name, ex.RestSeconds)
		if err != nil {
			return fmt.Errorf("inserting scheduled exercise: %w", err)
		}
		for _, set := range ex.Sets {
			_, err := tx.Exec(ctx,
				`INSERT INTO scheduled_sets (id, exercise_id, set_number, reps, weight)
				 VALUES ($1,$2,$3,$4,$5)`,
				set.ID, set.ExerciseID, set.SetNumber, set.Reps, set.Weight)
			if err != nil {
				return fmt.Errorf("inserting scheduled set: %w", err)
			}
		}
	}
	return nil
}

// loadScheduledTrees populates the Exercises of each workout in byID. filter
// is a SQL tail selecting the wanted exercises (aliased e), with one bind
// argument.
func (db *DB) loadScheduledTrees(ctx context.Context, byID map[uuid.UUID]*models.ScheduledWorkout, filter string, arg any) error {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.id, e.scheduled_workout_id, e.position, e.name, e.rest_seconds
		 FROM scheduled_exercises e `+filter+` ORDER BY e.scheduled_workout_id, e.position`, arg)
	if err != nil {
		return fmt.Errorf("querying scheduled exercises: %w", err)
	}
	defer rows.Close()

	exByID := make(map[uuid.UUID]*models.ScheduledExercise)
	var order []uuid.UUID
	for rows.Next() {
		var ex models.ScheduledExercise
		if err := rows.Scan(&ex.ID, &ex.ScheduledWorkoutID, &ex.Position, &ex.Name, &ex.RestSeconds); err != nil {
			return fmt.Errorf("scanning scheduled exercise: %w", err)
		}
		exByID[ex.ID] = &ex
		order = append(order, ex.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.exercise_id, s.set_number, s.reps, s.weight
		 FROM scheduled_sets s JOIN scheduled_exercises e ON s.exercise_id = e.id `+filter+`
		 ORDER BY s.exercise_id, s.set_number`, arg)
	if err != nil {
		return fmt.Errorf("querying scheduled sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var set models.ScheduledSet
		if err := setRows.Scan(&set.ID, &set.ExerciseID, &set.SetNumber, &set.Reps, &set.Weight); err != nil {
			return fmt.Errorf("scanning scheduled set: %w", err)
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
		if sw, ok := byID[ex.ScheduledWorkoutID]; ok {
			sw.Exercises = append(sw.Exercises, *ex)
		}
	}
	return nil
}

func scanScheduled(row pgx.Row) (*models.ScheduledWorkout, error) {
	var sw models.ScheduledWorkout
	var status string
	err := row.Scan(&sw.ID, &sw.UserID, &sw.PlanID, &sw.Date, &sw.TimeOfDay,
		&sw.PlanName, &sw.PlanNotes, &status, &sw.SharedWithFriends, &sw.CreatedAt)
	if err != nil {
		return nil, err
	}
	sw.Status = models.ScheduledStatus(status)
	return &sw, nil
}

func scanScheduledRows(rows pgx.Rows) ([]models.ScheduledWorkout, error) {
	var out []models.ScheduledWorkout
	for rows.Next() {
		sw, err := scanScheduled(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scheduled workout: %w", err)
		}
		out = append(out, *sw)
	}
	return out, rows.Err()
}
