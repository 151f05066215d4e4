package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/planner"
	"github.com/meltforce/liftlog/internal/scheduler"
	"github.com/meltforce/liftlog/internal/storage/memstore"
)

var baseTime = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

type fixture struct {
	engine *Engine
	store  *memstore.Store
	sw     *models.ScheduledWorkout
}

// newFixture seeds one user with a plan scheduled for today and returns an
// engine whose clock is pinned to baseTime.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	p, err := planner.New(store).Create(ctx, 1, planner.PlanRequest{
		Name: "Push Day",
		Exercises: []models.ExerciseInput{
			{Name: "Bench Press", RestSeconds: 120, Sets: []models.SetInput{
				{Reps: 5, Weight: 100},
				{Reps: 5, Weight: 100},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	sw, err := scheduler.New(store).Create(ctx, 1, scheduler.ScheduledRequest{
		Date:   baseTime,
		PlanID: p.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	e := New(store)
	e.now = func() time.Time { return baseTime }
	return &fixture{engine: e, store: store, sw: sw}
}

func TestStartCopiesTree(t *testing.T) {
	f := newFixture(t)
	sess, err := f.engine.Start(context.Background(), 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}

	if sess.Status != models.SessionInProgress {
		t.Fatalf("status = %q, want in_progress", sess.Status)
	}
	if len(sess.Exercises) != 1 || len(sess.Exercises[0].Sets) != 2 {
		t.Fatalf("tree = %+v, want scheduled copy", sess.Exercises)
	}
	ex := sess.Exercises[0]
	if ex.ScheduledExerciseID == nil || *ex.ScheduledExerciseID != f.sw.Exercises[0].ID {
		t.Error("back-reference to scheduled exercise missing")
	}
	set := ex.Sets[0]
	if set.RepsPlanned != 5 || set.WeightPlanned != 100 {
		t.Errorf("planned = %d/%v, want copied from schedule", set.RepsPlanned, set.WeightPlanned)
	}
	if set.RepsDone != nil || set.WeightDone != nil {
		t.Error("actuals should start empty")
	}
}

func TestStartConflictsWithLiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.engine.Start(ctx, 1, f.sw.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Start(ctx, 1, f.sw.ID); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second start err = %v, want ErrConflict", err)
	}
}

func TestStartAfterAbort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Abort(ctx, 1, sess.ID, "felt off"); err != nil {
		t.Fatal(err)
	}
	// An aborted session does not block a retry.
	if _, err := f.engine.Start(ctx, 1, f.sw.ID); err != nil {
		t.Fatalf("restart after abort: %v", err)
	}
}

func TestQuickComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started := baseTime.Add(-2 * time.Hour)
	completed := baseTime.Add(-1 * time.Hour)
	sess, err := f.engine.QuickComplete(ctx, 1, f.sw.ID, QuickCompleteRequest{
		StartedAt:            &started,
		CompletedAt:          &completed,
		Notes:                "logged later",
		CopyPlannedToActuals: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != models.SessionCompleted || !sess.QuickComplete {
		t.Fatalf("session = %q quick=%v", sess.Status, sess.QuickComplete)
	}
	if sess.DurationSec == nil || *sess.DurationSec != 3600 {
		t.Errorf("duration = %v, want 3600", sess.DurationSec)
	}
	set := sess.Exercises[0].Sets[0]
	if set.RepsDone == nil || *set.RepsDone != 5 || set.WeightDone == nil || *set.WeightDone != 100 {
		t.Errorf("actuals = %v/%v, want planned values copied", set.RepsDone, set.WeightDone)
	}

	// The parent flips in the same operation.
	sw, err := f.store.GetScheduled(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sw.Status != models.ScheduledCompleted {
		t.Errorf("scheduled status = %q, want completed", sw.Status)
	}

	// A second quick-complete conflicts.
	if _, err := f.engine.QuickComplete(ctx, 1, f.sw.ID, QuickCompleteRequest{}); !errors.Is(err, models.ErrConflict) {
		t.Errorf("second quick-complete err = %v, want ErrConflict", err)
	}
}

func TestQuickCompleteClampsCompletedAt(t *testing.T) {
	f := newFixture(t)
	started := baseTime
	completed := baseTime.Add(-time.Hour) // earlier than start
	sess, err := f.engine.QuickComplete(context.Background(), 1, f.sw.ID, QuickCompleteRequest{
		StartedAt:   &started,
		CompletedAt: &completed,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !sess.CompletedAt.Equal(started) {
		t.Errorf("completed_at = %v, want clamped to start", sess.CompletedAt)
	}
	if *sess.DurationSec != 0 {
		t.Errorf("duration = %d, want 0", *sess.DurationSec)
	}
}

func TestPatchSetPartialUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	setID := sess.Exercises[0].Sets[0].ID

	reps := 5
	set, err := f.engine.PatchSet(ctx, 1, sess.ID, setID, PatchSetRequest{RepsDone: &reps})
	if err != nil {
		t.Fatal(err)
	}
	if set.RepsDone == nil || *set.RepsDone != 5 {
		t.Errorf("reps_done = %v, want 5", set.RepsDone)
	}
	if set.WeightDone != nil || set.RPE != nil {
		t.Error("untouched fields changed")
	}

	// Second patch leaves the first field alone.
	weight := 102.5
	set, err = f.engine.PatchSet(ctx, 1, sess.ID, setID, PatchSetRequest{WeightDone: &weight})
	if err != nil {
		t.Fatal(err)
	}
	if set.RepsDone == nil || *set.RepsDone != 5 {
		t.Error("earlier patch was lost")
	}
	if set.WeightDone == nil || *set.WeightDone != 102.5 {
		t.Errorf("weight_done = %v, want 102.5", set.WeightDone)
	}
}

func TestPatchSetGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	setID := sess.Exercises[0].Sets[0].ID
	if _, err := f.engine.Complete(ctx, 1, sess.ID, CompleteRequest{}); err != nil {
		t.Fatal(err)
	}

	reps := 5
	if _, err := f.engine.PatchSet(ctx, 1, sess.ID, setID, PatchSetRequest{RepsDone: &reps}); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("patch on completed session err = %v, want ErrInvalidState", err)
	}
}

func TestAddExerciseAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}

	ex, err := f.engine.AddExercise(ctx, 1, sess.ID, models.ExerciseInput{
		Name: "Dips",
		Sets: []models.SetInput{{Reps: 10}, {Reps: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ex.AdHoc {
		t.Error("added exercise not marked ad-hoc")
	}
	if ex.Position != 2 {
		t.Errorf("position = %d, want 2", ex.Position)
	}
	if ex.ScheduledExerciseID != nil {
		t.Error("ad-hoc exercise should have no scheduled back-reference")
	}
	if len(ex.Sets) != 2 || ex.Sets[1].SetNumber != 2 {
		t.Errorf("sets = %+v, want numbered from 1", ex.Sets)
	}
}

func TestCompleteFlipsParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}

	completedAt := baseTime.Add(45 * time.Minute)
	notes := "good session"
	got, err := f.engine.Complete(ctx, 1, sess.ID, CompleteRequest{
		Notes:       &notes,
		CompletedAt: &completedAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SessionCompleted || got.Notes != "good session" {
		t.Errorf("session = %q/%q", got.Status, got.Notes)
	}
	if got.DurationSec == nil || *got.DurationSec != 2700 {
		t.Errorf("duration = %v, want 2700", got.DurationSec)
	}

	sw, err := f.store.GetScheduled(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sw.Status != models.ScheduledCompleted {
		t.Errorf("scheduled status = %q, want completed", sw.Status)
	}

	// Completing twice is a state error.
	if _, err := f.engine.Complete(ctx, 1, sess.ID, CompleteRequest{}); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("double complete err = %v, want ErrInvalidState", err)
	}
}

func TestCompleteClampsNegativeDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	completedAt := baseTime.Add(-time.Hour)
	got, err := f.engine.Complete(ctx, 1, sess.ID, CompleteRequest{CompletedAt: &completedAt})
	if err != nil {
		t.Fatal(err)
	}
	if *got.DurationSec != 0 {
		t.Errorf("duration = %d, want clamped to 0", *got.DurationSec)
	}
}

func TestAbortAppendsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.engine.Abort(ctx, 1, sess.ID, "shoulder pain")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SessionAborted {
		t.Fatalf("status = %q, want aborted", got.Status)
	}
	if got.Notes != "Aborted: shoulder pain" {
		t.Errorf("notes = %q", got.Notes)
	}

	// The parent stays planned on abort.
	sw, err := f.store.GetScheduled(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sw.Status != models.ScheduledPlanned {
		t.Errorf("scheduled status = %q, want planned", sw.Status)
	}
}

func TestAbortBlankReasonKeepsNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.engine.Abort(ctx, 1, sess.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Notes != "" {
		t.Errorf("notes = %q, want empty", got.Notes)
	}
}

func TestReopen(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.Reopen(context.Background(), 1, f.sw.ID)
		if !errors.Is(err, models.ErrInvalidState) {
			t.Fatalf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("quick-completed session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		sess, err := f.engine.QuickComplete(ctx, 1, f.sw.ID, QuickCompleteRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if err := f.engine.Reopen(ctx, 1, f.sw.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := f.store.GetSession(ctx, 1, sess.ID); !errors.Is(err, models.ErrNotFound) {
			t.Error("reopened session still exists")
		}
		sw, err := f.store.GetScheduled(ctx, 1, f.sw.ID)
		if err != nil {
			t.Fatal(err)
		}
		if sw.Status != models.ScheduledPlanned {
			t.Errorf("scheduled status = %q, want planned", sw.Status)
		}
	})

	t.Run("aborted session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		sess, err := f.engine.Start(ctx, 1, f.sw.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.engine.Abort(ctx, 1, sess.ID, ""); err != nil {
			t.Fatal(err)
		}
		if err := f.engine.Reopen(ctx, 1, f.sw.ID); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("properly completed session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		sess, err := f.engine.Start(ctx, 1, f.sw.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.engine.Complete(ctx, 1, sess.ID, CompleteRequest{}); err != nil {
			t.Fatal(err)
		}
		if err := f.engine.Reopen(ctx, 1, f.sw.ID); !errors.Is(err, models.ErrInvalidState) {
			t.Fatalf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("in-progress session", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		if _, err := f.engine.Start(ctx, 1, f.sw.ID); err != nil {
			t.Fatal(err)
		}
		if err := f.engine.Reopen(ctx, 1, f.sw.ID); !errors.Is(err, models.ErrInvalidState) {
			t.Fatalf("err = %v, want ErrInvalidState", err)
		}
	})
}

func TestActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Active(ctx, 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("active with none err = %v, want ErrNotFound", err)
	}

	sess, err := f.engine.Start(ctx, 1, f.sw.ID)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.engine.Active(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sess.ID {
		t.Errorf("active = %s, want %s", got.ID, sess.ID)
	}
}
