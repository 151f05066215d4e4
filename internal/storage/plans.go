package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/liftlog/internal/models"
)

// InsertPlan inserts a plan with its full exercise/set tree in one transaction.
func (db *DB) InsertPlan(ctx context.Context, p *models.Plan) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO plans (id, user_id, name, plan_type, notes, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.UserID, p.Name, p.PlanType, p.Notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	if err := insertPlanTree(ctx, tx, p.Exercises); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetPlan retrieves a plan with its ordered exercise tree, scoped to the
// owner. An absent or foreign plan is not found.
func (db *DB) GetPlan(ctx context.Context, userID int, id uuid.UUID) (*models.Plan, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, plan_type, notes, created_at, updated_at
		 FROM plans WHERE id = $1 AND user_id = $2`,
		id, userID)

	var p models.Plan
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.PlanType, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}

	if err := db.loadPlanTrees(ctx, map[uuid.UUID]*models.Plan{p.ID: &p},
		`WHERE e.plan_id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans retrieves all of a user's plans with their exercise trees,
// oldest first.
func (db *DB) ListPlans(ctx context.Context, userID int) ([]models.Plan, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, plan_type, notes, created_at, updated_at
		 FROM plans WHERE user_id = $1 ORDER BY created_at, name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	byID := make(map[uuid.UUID]*models.Plan)
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.PlanType, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range plans {
		byID[plans[i].ID] = &plans[i]
	}

	if len(plans) > 0 {
		if err := db.loadPlanTrees(ctx, byID,
			`JOIN plans p ON e.plan_id = p.id WHERE p.user_id = $1`, userID); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// UpdatePlan replaces the plan header and rebuilds the exercise subtree.
// Deleting the exercises cascades to their sets.
func (db *DB) UpdatePlan(ctx context.Context, p *models.Plan) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE plans SET name = $1, plan_type = $2, notes = $3, updated_at = $4
		 WHERE id = $5 AND user_id = $6`,
		p.Name, p.PlanType, p.Notes, p.UpdatedAt, p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM plan_exercises WHERE plan_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clearing plan exercises: %w", err)
	}
	if err := insertPlanTree(ctx, tx, p.Exercises); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeletePlan removes a plan; exercises and sets go with it via FK cascade.
func (db *DB) DeletePlan(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func insertPlanTree(ctx context.Context, tx pgx.Tx, exercises []models.PlanExercise) error {
	for _, ex := range exercises {
		_, err := tx.Exec(ctx,
			`INSERT INTO plan_exercises (id, plan_id, position, name, rest_seconds)
			 VALUES ($1,$2,$3,$4,$5)`,
			ex.ID, ex.PlanID, ex.Position, ex.Name, ex.RestSeconds)
		if err != nil {
			return fmt.Errorf("inserting plan exercise: %w", err)
		}
		for _, set := range ex.Sets {
			_, err := tx.Exec(ctx,
				`INSERT INTO plan_sets (id, exercise_id, set_number, reps, weight)
				 VALUES ($1,$2,$3,$4,$5)`,
				set.ID, set.ExerciseID, set.SetNumber, set.Reps, set.Weight)
			if err != nil {
				return fmt.Errorf("inserting plan set: %w", err)
			}
		}
	}
	return nil
}

// loadPlanTrees populates the Exercises of each plan in byID. filter is a SQL
// tail selecting the wanted exercises (aliased e), with one bind argument.
func (db *DB) loadPlanTrees(ctx context.Context, byID map[uuid.UUID]*models.Plan, filter string, arg any) error {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.id, e.plan_id, e.position, e.name, e.rest_seconds
		 FROM plan_exercises e `+filter+` ORDER BY e.plan_id, e.position`, arg)
	if err != nil {
		return fmt.Errorf("querying plan exercises: %w", err)
	}
	defer rows.Close()

	exByID := make(map[uuid.UUID]*models.PlanExercise)
	var order []uuid.UUID
	for rows.Next() {
		var ex models.PlanExercise
		if err := rows.Scan(&ex.ID, &ex.PlanID, &ex.Position, &ex.Name, &ex.RestSeconds); err != nil {
			return fmt.Errorf("scanning plan exercise: %w", err)
		}
		exByID[ex.ID] = &ex
		order = append(order, ex.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.exercise_id, s.set_number, s.reps, s.weight
		 FROM plan_sets s JOIN plan_exercises e ON s.exercise_id = e.id `+filter+`
		 ORDER BY s.exercise_id, s.set_number`, arg)
	if err != nil {
		return fmt.Errorf("querying plan sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var set models.PlanSet
		if err := setRows.Scan(&set.ID, &set.ExerciseID, &set.SetNumber, &set.Reps, &set.Weight); err != nil {
			return fmt.Errorf("scanning plan set: %w", err)
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
		if p, ok := byID[ex.PlanID]; ok {
			p.Exercises = append(p.Exercises, *ex)
		}
	}
	return nil
}
