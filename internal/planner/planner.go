// Package planner owns the plan catalog: reusable workout templates that the
// scheduler later instantiates onto calendar dates. Plans carry no execution
// state and are only ever read through deep copies by the downstream tiers.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// Store is the persistence contract the planner needs. Both *storage.DB and
// the in-memory dev store satisfy it. Reads are owner-scoped: a plan that is
// absent or owned by another user yields models.ErrNotFound.
type Store interface {
	InsertPlan(ctx context.Context, p *models.Plan) error
	GetPlan(ctx context.Context, userID int, id uuid.UUID) (*models.Plan, error)
	ListPlans(ctx context.Context, userID int) ([]models.Plan, error)
	UpdatePlan(ctx context.Context, p *models.Plan) error
	DeletePlan(ctx context.Context, userID int, id uuid.UUID) error
}

// PlanRequest is the caller-supplied shape for creating or updating a plan.
type PlanRequest struct {
	Name      string                 `json:"name"`
	PlanType  string                 `json:"plan_type"`
	Notes     string                 `json:"notes"`
	Exercises []models.ExerciseInput `json:"exercises"`
}

// Service implements the plan catalog operations.
type Service struct {
	store Store
	now   func() time.Time
}

// New creates a plan catalog service.
func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create builds a new plan with a freshly numbered exercise/set tree.
// Positions and set numbers are assigned sequentially from 1 in input order;
// any caller-supplied numbering is ignored.
func (s *Service) Create(ctx context.Context, userID int, req PlanRequest) (*models.Plan, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: plan name is required", models.ErrInvalidState)
	}

	now := s.now().UTC()
	p := &models.Plan{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		PlanType:  req.PlanType,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Exercises = buildExercises(p.ID, req.Exercises)

	if err := s.store.InsertPlan(ctx, p); err != nil {
		return nil, fmt.Errorf("inserting plan: %w", err)
	}
	return p, nil
}

// Get returns a plan with its full exercise tree.
func (s *Service) Get(ctx context.Context, userID int, id uuid.UUID) (*models.Plan, error) {
	return s.store.GetPlan(ctx, userID, id)
}

// List returns all plans owned by the user.
func (s *Service) List(ctx context.Context, userID int) ([]models.Plan, error) {
	return s.store.ListPlans(ctx, userID)
}

// Update replaces the plan header and rebuilds its exercise subtree from the
// request. There is no in-place diffing: the old tree is dropped wholesale.
func (s *Service) Update(ctx context.Context, userID int, id uuid.UUID, req PlanRequest) (*models.Plan, error) {
	existing, err := s.store.GetPlan(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	existing.Name = req.Name
	existing.PlanType = req.PlanType
	existing.Notes = req.Notes
	existing.UpdatedAt = s.now().UTC()
	existing.Exercises = buildExercises(existing.ID, req.Exercises)

	if err := s.store.UpdatePlan(ctx, existing); err != nil {
		return nil, fmt.Errorf("updating plan: %w", err)
	}
	return existing, nil
}

// Duplicate creates a full independent copy of a plan with new ids throughout
// and a " (Copy)" name suffix.
func (s *Service) Duplicate(ctx context.Context, userID int, id uuid.UUID) (*models.Plan, error) {
	src, err := s.store.GetPlan(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dup := &models.Plan{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      src.Name + " (Copy)",
		PlanType:  src.PlanType,
		Notes:     src.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, ex := range src.Exercises {
		ne := models.PlanExercise{
			ID:          uuid.New(),
			PlanID:      dup.ID,
			Position:    ex.Position,
			Name:        ex.Name,
			RestSeconds: ex.RestSeconds,
		}
		for _, set := range ex.Sets {
			ne.Sets = append(ne.Sets, models.PlanSet{
				ID:         uuid.New(),
				ExerciseID: ne.ID,
				SetNumber:  set.SetNumber,
				Reps:       set.Reps,
				Weight:     set.Weight,
			})
		}
		dup.Exercises = append(dup.Exercises, ne)
	}

	if err := s.store.InsertPlan(ctx, dup); err != nil {
		return nil, fmt.Errorf("duplicating plan: %w", err)
	}
	return dup, nil
}

// Delete removes a plan and cascades to its exercises and sets.
func (s *Service) Delete(ctx context.Context, userID int, id uuid.UUID) error {
	return s.store.DeletePlan(ctx, userID, id)
}

// buildExercises materializes caller input into a plan exercise tree with
// fresh ids, dense positions, and dense set numbers.
func buildExercises(planID uuid.UUID, inputs []models.ExerciseInput) []models.PlanExercise {
	exercises := make([]models.PlanExercise, 0, len(inputs))
	for i, in := range inputs {
		ex := models.PlanExercise{
			ID:          uuid.New(),
			PlanID:      planID,
			Position:    i + 1,
			Name:        in.Name,
			RestSeconds: in.RestSeconds,
		}
		for j, set := range in.Sets {
			ex.Sets = append(ex.Sets, models.PlanSet{
				ID:         uuid.New(),
				ExerciseID: ex.ID,
				SetNumber:  j + 1,
				Reps:       set.Reps,
				Weight:     set.Weight,
			})
		}
		exercises = append(exercises, ex)
	}
	return exercises
}
