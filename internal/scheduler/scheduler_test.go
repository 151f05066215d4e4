package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/planner"
	"github.com/meltforce/liftlog/internal/storage/memstore"
)

func testSetup(t *testing.T) (*Service, *planner.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	s := New(store)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, planner.New(store), store
}

func makePlan(t *testing.T, plans *planner.Service, userID int) *models.Plan {
	t.Helper()
	p, err := plans.Create(context.Background(), userID, planner.PlanRequest{
		Name:  "Leg Day",
		Notes: "go heavy",
		Exercises: []models.ExerciseInput{
			{Name: "Squat", RestSeconds: 180, Sets: []models.SetInput{
				{Reps: 5, Weight: 140},
				{Reps: 5, Weight: 140},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateCopiesPlanTree(t *testing.T) {
	s, plans, _ := testSetup(t)
	ctx := context.Background()
	p := makePlan(t, plans, 1)

	sw, err := s.Create(ctx, 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC),
		PlanID: p.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sw.PlanName != "Leg Day" || sw.PlanNotes != "go heavy" {
		t.Errorf("denormalized header = %q/%q", sw.PlanName, sw.PlanNotes)
	}
	if !sw.Date.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want time stripped", sw.Date)
	}
	if len(sw.Exercises) != 1 || len(sw.Exercises[0].Sets) != 2 {
		t.Fatalf("tree = %+v, want plan copy", sw.Exercises)
	}
	if sw.Exercises[0].ID == p.Exercises[0].ID {
		t.Error("scheduled exercise shares the plan exercise id")
	}

	// Editing the plan afterwards never touches the scheduled copy.
	if _, err := plans.Update(ctx, 1, p.ID, planner.PlanRequest{Name: "Renamed"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, 1, sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PlanName != "Leg Day" || len(got.Exercises) != 1 {
		t.Errorf("scheduled copy changed with its plan: %q", got.PlanName)
	}
}

func TestCreateCustomExercisesWin(t *testing.T) {
	s, plans, _ := testSetup(t)
	p := makePlan(t, plans, 1)

	sw, err := s.Create(context.Background(), 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: p.ID,
		Exercises: []models.ExerciseInput{
			{Name: "Front Squat", Sets: []models.SetInput{{Reps: 8, Weight: 90}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	// The custom tree replaces the plan copy outright; nothing is merged.
	if len(sw.Exercises) != 1 || sw.Exercises[0].Name != "Front Squat" {
		t.Fatalf("tree = %+v, want custom exercises only", sw.Exercises)
	}
	// The plan header is still the denormalization source.
	if sw.PlanName != "Leg Day" {
		t.Errorf("plan name = %q, want %q", sw.PlanName, "Leg Day")
	}
}

func TestCreateNameNotesOverride(t *testing.T) {
	s, plans, _ := testSetup(t)
	p := makePlan(t, plans, 1)

	name, notes := "Evening Legs", "deload"
	sw, err := s.Create(context.Background(), 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: p.ID,
		Name:   &name,
		Notes:  &notes,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sw.PlanName != "Evening Legs" || sw.PlanNotes != "deload" {
		t.Errorf("overrides not applied: %q/%q", sw.PlanName, sw.PlanNotes)
	}
}

func TestCreateMissingPlan(t *testing.T) {
	s, _, _ := testSetup(t)
	_, err := s.Create(context.Background(), 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: uuid.New(),
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateOtherUsersPlanStaysOpaque(t *testing.T) {
	s, plans, _ := testSetup(t)
	p := makePlan(t, plans, 2)

	_, err := s.Create(context.Background(), 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: p.ID,
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateHeaderOnlyKeepsTree(t *testing.T) {
	s, plans, _ := testSetup(t)
	ctx := context.Background()
	p := makePlan(t, plans, 1)
	sw, err := s.Create(ctx, 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: p.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	origExID := sw.Exercises[0].ID

	moved, err := s.Update(ctx, 1, sw.ID, ScheduledRequest{
		Date:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		PlanID: p.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, 1, moved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Date.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want moved", got.Date)
	}
	if len(got.Exercises) != 1 || got.Exercises[0].ID != origExID {
		t.Error("date-only edit rebuilt the exercise tree")
	}
}

func TestUpdatePlanChangeRebuildsAndRedenormalizes(t *testing.T) {
	s, plans, _ := testSetup(t)
	ctx := context.Background()
	p1 := makePlan(t, plans, 1)
	p2, err := plans.Create(ctx, 1, planner.PlanRequest{
		Name: "Pull Day",
		Exercises: []models.ExerciseInput{
			{Name: "Deadlift", Sets: []models.SetInput{{Reps: 3, Weight: 180}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	sw, err := s.Create(ctx, 1, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: p1.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Update(ctx, 1, sw.ID, ScheduledRequest{
		Date:   sw.Date,
		PlanID: p2.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.PlanName != "Pull Day" {
		t.Errorf("plan name = %q, want re-denormalized %q", got.PlanName, "Pull Day")
	}
	if len(got.Exercises) != 1 || got.Exercises[0].Name != "Deadlift" {
		t.Errorf("tree = %+v, want rebuilt from new plan", got.Exercises)
	}
}

func TestDuplicatePreservesEverythingButIDs(t *testing.T) {
	s, plans, _ := testSetup(t)
	ctx := context.Background()
	p := makePlan(t, plans, 1)
	tod := "18:00"
	sw, err := s.Create(ctx, 1, ScheduledRequest{
		Date:              time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		TimeOfDay:         &tod,
		PlanID:            p.ID,
		SharedWithFriends: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	dup, err := s.Duplicate(ctx, 1, sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID == sw.ID {
		t.Fatal("duplicate shares the source id")
	}
	if !dup.Date.Equal(sw.Date) || dup.TimeOfDay == nil || *dup.TimeOfDay != "18:00" || !dup.SharedWithFriends {
		t.Errorf("duplicate lost header fields: %+v", dup)
	}
	if dup.Exercises[0].ID == sw.Exercises[0].ID {
		t.Error("duplicate shares an exercise id")
	}
}

func TestListRangeInclusiveAndSwapped(t *testing.T) {
	s, plans, _ := testSetup(t)
	ctx := context.Background()
	p := makePlan(t, plans, 1)
	for _, d := range []int{1, 2, 3} {
		if _, err := s.Create(ctx, 1, ScheduledRequest{
			Date:   time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC),
			PlanID: p.ID,
		}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListRange(ctx, 1,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("inclusive range returned %d, want 2", len(list))
	}

	// Inverted bounds are swapped, not rejected.
	swapped, err := s.ListRange(ctx, 1,
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(swapped) != 3 {
		t.Errorf("swapped range returned %d, want 3", len(swapped))
	}
}

func TestListForFriend(t *testing.T) {
	s, plans, store := testSetup(t)
	ctx := context.Background()
	p := makePlan(t, plans, 2)
	if _, err := s.Create(ctx, 2, ScheduledRequest{
		Date:              time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID:            p.ID,
		SharedWithFriends: true,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, 2, ScheduledRequest{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		PlanID: p.ID,
	}); err != nil {
		t.Fatal(err)
	}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	// No friendship: opaque not-found, even though the data exists.
	if _, err := s.ListForFriend(ctx, 1, 2, from, to); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("non-friend err = %v, want ErrNotFound", err)
	}

	if err := store.CreateFriendRequest(ctx, 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := store.AcceptFriendRequest(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListForFriend(ctx, 1, 2, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !list[0].SharedWithFriends {
		t.Errorf("friend list = %d entries, want only the shared one", len(list))
	}
}
