// Package scheduler instantiates plans onto calendar dates. A scheduled
// workout owns an independent copy of the plan's exercise tree (or a
// caller-supplied custom tree); the plan id is kept as a non-owning reference
// so later plan edits never alter what was scheduled.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// Store is the persistence contract the scheduler needs.
type Store interface {
	GetPlan(ctx context.Context, userID int, id uuid.UUID) (*models.Plan, error)
	InsertScheduled(ctx context.Context, sw *models.ScheduledWorkout) error
	GetScheduled(ctx context.Context, userID int, id uuid.UUID) (*models.ScheduledWorkout, error)
	ListScheduledRange(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error)
	// UpdateScheduled persists header changes; when rebuildExercises is true
	// the whole exercise subtree is deleted and re-inserted from sw.Exercises
	// within the same transaction.
	UpdateScheduled(ctx context.Context, sw *models.ScheduledWorkout, rebuildExercises bool) error
	DeleteScheduled(ctx context.Context, userID int, id uuid.UUID) error
	AreFriends(ctx context.Context, userA, userB int) (bool, error)
	ListSharedScheduledRange(ctx context.Context, ownerID int, from, to time.Time) ([]models.ScheduledWorkout, error)
}

// ScheduledRequest is the caller-supplied shape for creating or updating a
// scheduled workout. Name and Notes override the denormalized plan values
// when present. Exercises, when non-empty, win over the plan copy outright;
// the two sources are never merged.
type ScheduledRequest struct {
	Date              time.Time              `json:"date"`
	TimeOfDay         *string                `json:"time_of_day,omitempty"`
	PlanID            uuid.UUID              `json:"plan_id"`
	Exercises         []models.ExerciseInput `json:"exercises,omitempty"`
	Name              *string                `json:"name,omitempty"`
	Notes             *string                `json:"notes,omitempty"`
	Status            string                 `json:"status,omitempty"`
	SharedWithFriends bool                   `json:"shared_with_friends"`
}

// Service implements the scheduler operations.
type Service struct {
	store Store
	now   func() time.Time
}

// New creates a scheduler service.
func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create instantiates a plan onto a date. The referenced plan must resolve
// under the caller's ownership; otherwise the operation fails with not-found
// regardless of whether the plan exists for someone else.
func (s *Service) Create(ctx context.Context, userID int, req ScheduledRequest) (*models.ScheduledWorkout, error) {
	plan, err := s.store.GetPlan(ctx, userID, req.PlanID)
	if err != nil {
		return nil, err
	}

	sw := &models.ScheduledWorkout{
		ID:                uuid.New(),
		UserID:            userID,
		PlanID:            plan.ID,
		Date:              dateOnly(req.Date),
		TimeOfDay:         req.TimeOfDay,
		PlanName:          plan.Name,
		PlanNotes:         plan.Notes,
		Status:            models.ParseScheduledStatus(req.Status),
		SharedWithFriends: req.SharedWithFriends,
		CreatedAt:         s.now().UTC(),
	}
	if req.Name != nil {
		sw.PlanName = *req.Name
	}
	if req.Notes != nil {
		sw.PlanNotes = *req.Notes
	}
	sw.Exercises = buildTree(sw.ID, plan, req.Exercises)

	if err := s.store.InsertScheduled(ctx, sw); err != nil {
		return nil, fmt.Errorf("inserting scheduled workout: %w", err)
	}
	return sw, nil
}

// Get returns a scheduled workout with its exercise tree.
func (s *Service) Get(ctx context.Context, userID int, id uuid.UUID) (*models.ScheduledWorkout, error) {
	return s.store.GetScheduled(ctx, userID, id)
}

// ListRange returns the caller's scheduled workouts with dates in
// [from, to], date-only inclusive.
func (s *Service) ListRange(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		from, to = to, from
	}
	return s.store.ListScheduledRange(ctx, userID, from, to)
}

// Update edits a scheduled workout. The exercise subtree is deleted and
// rebuilt only when the plan reference changed or new exercises were
// supplied; date/time/status/notes-only edits leave the tree untouched.
func (s *Service) Update(ctx context.Context, userID int, id uuid.UUID, req ScheduledRequest) (*models.ScheduledWorkout, error) {
	sw, err := s.store.GetScheduled(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	plan, err := s.store.GetPlan(ctx, userID, req.PlanID)
	if err != nil {
		return nil, err
	}

	planChanged := plan.ID != sw.PlanID
	rebuild := planChanged || len(req.Exercises) > 0

	sw.PlanID = plan.ID
	sw.Date = dateOnly(req.Date)
	sw.TimeOfDay = req.TimeOfDay
	sw.Status = models.ParseScheduledStatus(req.Status)
	sw.SharedWithFriends = req.SharedWithFriends
	if planChanged {
		sw.PlanName = plan.Name
		sw.PlanNotes = plan.Notes
	}
	if req.Name != nil {
		sw.PlanName = *req.Name
	}
	if req.Notes != nil {
		sw.PlanNotes = *req.Notes
	}
	if rebuild {
		sw.Exercises = buildTree(sw.ID, plan, req.Exercises)
	}

	if err := s.store.UpdateScheduled(ctx, sw, rebuild); err != nil {
		return nil, fmt.Errorf("updating scheduled workout: %w", err)
	}
	return sw, nil
}

// Duplicate creates a full independent copy with new ids throughout,
// preserving date, time, status and visibility.
func (s *Service) Duplicate(ctx context.Context, userID int, id uuid.UUID) (*models.ScheduledWorkout, error) {
	src, err := s.store.GetScheduled(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	dup := &models.ScheduledWorkout{
		ID:                uuid.New(),
		UserID:            userID,
		PlanID:            src.PlanID,
		Date:              src.Date,
		TimeOfDay:         src.TimeOfDay,
		PlanName:          src.PlanName,
		PlanNotes:         src.PlanNotes,
		Status:            src.Status,
		SharedWithFriends: src.SharedWithFriends,
		CreatedAt:         s.now().UTC(),
	}
	for _, ex := range src.Exercises {
		ne := models.ScheduledExercise{
			ID:                 uuid.New(),
			ScheduledWorkoutID: dup.ID,
			Position:           ex.Position,
			Name:               ex.Name,
			RestSeconds:        ex.RestSeconds,
		}
		for _, set := range ex.Sets {
			ne.Sets = append(ne.Sets, models.ScheduledSet{
				ID:         uuid.New(),
				ExerciseID: ne.ID,
				SetNumber:  set.SetNumber,
				Reps:       set.Reps,
				Weight:     set.Weight,
			})
		}
		dup.Exercises = append(dup.Exercises, ne)
	}

	if err := s.store.InsertScheduled(ctx, dup); err != nil {
		return nil, fmt.Errorf("duplicating scheduled workout: %w", err)
	}
	return dup, nil
}

// Delete removes a scheduled workout and cascades to its exercises and sets.
func (s *Service) Delete(ctx context.Context, userID int, id uuid.UUID) error {
	return s.store.DeleteScheduled(ctx, userID, id)
}

// ListForFriend returns a friend's shared scheduled workouts in the date
// range. A missing or non-accepted friendship yields not-found, keeping the
// existence of the other user's data opaque.
func (s *Service) ListForFriend(ctx context.Context, userID, friendID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	ok, err := s.store.AreFriends(ctx, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("checking friendship: %w", err)
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		from, to = to, from
	}
	return s.store.ListSharedScheduledRange(ctx, friendID, from, to)
}

// buildTree produces the scheduled exercise tree: from custom inputs when
// supplied, otherwise a deep copy of the plan's current exercises preserving
// the plan's own ordering.
func buildTree(scheduledID uuid.UUID, plan *models.Plan, custom []models.ExerciseInput) []models.ScheduledExercise {
	if len(custom) > 0 {
		exercises := make([]models.ScheduledExercise, 0, len(custom))
		for i, in := range custom {
			ex := models.ScheduledExercise{
				ID:                 uuid.New(),
				ScheduledWorkoutID: scheduledID,
				Position:           i + 1,
				Name:               in.Name,
				RestSeconds:        in.RestSeconds,
			}
			for j, set := range in.Sets {
				ex.Sets = append(ex.Sets, models.ScheduledSet{
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

	exercises := make([]models.ScheduledExercise, 0, len(plan.Exercises))
	for _, pe := range plan.Exercises {
		ex := models.ScheduledExercise{
			ID:                 uuid.New(),
			ScheduledWorkoutID: scheduledID,
			Position:           pe.Position,
			Name:               pe.Name,
			RestSeconds:        pe.RestSeconds,
		}
		for _, ps := range pe.Sets {
			ex.Sets = append(ex.Sets, models.ScheduledSet{
				ID:         uuid.New(),
				ExerciseID: ex.ID,
				SetNumber:  ps.SetNumber,
				Reps:       ps.Reps,
				Weight:     ps.Weight,
			})
		}
		exercises = append(exercises, ex)
	}
	return exercises
}

// dateOnly strips the time component, keeping the calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
