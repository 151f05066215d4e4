package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/planner"
	"github.com/meltforce/liftlog/internal/scheduler"
	"github.com/meltforce/liftlog/internal/session"
	"github.com/meltforce/liftlog/internal/storage/memstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memstore.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(
		planner.New(store),
		scheduler.New(store),
		session.New(store),
		analytics.New(store),
		store,
		DevIdentity,
		nil,
		log,
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func createPlan(t *testing.T, ts *httptest.Server) models.Plan {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/v1/plans", map[string]any{
		"name": "Push Day",
		"exercises": []map[string]any{
			{"name": "Bench Press", "rest_seconds": 120, "sets": []map[string]any{
				{"reps": 5, "weight": 100},
				{"reps": 5, "weight": 100},
			}},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create plan: status %d: %s", resp.StatusCode, data)
	}
	var p models.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func schedulePlan(t *testing.T, ts *httptest.Server, p models.Plan, date string) models.ScheduledWorkout {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/v1/scheduled", map[string]any{
		"date":    date,
		"plan_id": p.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("schedule: status %d: %s", resp.StatusCode, data)
	}
	var sw models.ScheduledWorkout
	if err := json.Unmarshal(data, &sw); err != nil {
		t.Fatal(err)
	}
	return sw
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	resp, data := doJSON(t, http.MethodGet, ts.URL+"/api/v1/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var me struct {
		UserID int    `json:"user_id"`
		Login  string `json:"login"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatal(err)
	}
	if me.UserID != 1 || me.Login != "local" {
		t.Errorf("me = %+v, want user 1 / local", me)
	}
}

func TestPlanLifecycle(t *testing.T) {
	ts := newTestServer(t)
	p := createPlan(t, ts)

	if len(p.Exercises) != 1 || len(p.Exercises[0].Sets) != 2 {
		t.Fatalf("plan tree = %d exercises, want 1 with 2 sets", len(p.Exercises))
	}
	if p.Exercises[0].Position != 1 || p.Exercises[0].Sets[1].SetNumber != 2 {
		t.Errorf("numbering: position=%d setNumber=%d, want 1 and 2",
			p.Exercises[0].Position, p.Exercises[0].Sets[1].SetNumber)
	}

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/v1/plans/"+p.ID.String()+"/duplicate", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("duplicate: status %d: %s", resp.StatusCode, data)
	}
	var dup models.Plan
	if err := json.Unmarshal(data, &dup); err != nil {
		t.Fatal(err)
	}
	if dup.Name != "Push Day (Copy)" {
		t.Errorf("duplicate name = %q, want %q", dup.Name, "Push Day (Copy)")
	}
	if dup.ID == p.ID {
		t.Error("duplicate kept the source id")
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/plans/"+p.ID.String(), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/plans/"+p.ID.String(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted: status %d, want 404", resp.StatusCode)
	}
}

func TestCreatePlanWithoutName(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/plans", map[string]any{"name": ""})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	p := createPlan(t, ts)
	sw := schedulePlan(t, ts, p, "2026-03-02")

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/v1/scheduled/"+sw.ID.String()+"/start", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start: status %d: %s", resp.StatusCode, data)
	}
	var sess models.WorkoutSession
	if err := json.Unmarshal(data, &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Status != models.SessionInProgress {
		t.Fatalf("status = %q, want in_progress", sess.Status)
	}

	// A second start conflicts while the first is live.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/scheduled/"+sw.ID.String()+"/start", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second start: status %d, want 409", resp.StatusCode)
	}

	setID := sess.Exercises[0].Sets[0].ID
	resp, data = doJSON(t, http.MethodPatch,
		fmt.Sprintf("%s/api/v1/sessions/%s/sets/%s", ts.URL, sess.ID, setID),
		map[string]any{"reps_done": 5, "weight_done": 102.5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch set: status %d: %s", resp.StatusCode, data)
	}
	var set models.SessionSet
	if err := json.Unmarshal(data, &set); err != nil {
		t.Fatal(err)
	}
	if set.RepsDone == nil || *set.RepsDone != 5 {
		t.Errorf("reps_done = %v, want 5", set.RepsDone)
	}

	resp, data = doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions/"+sess.ID.String()+"/complete",
		map[string]any{"notes": "solid"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: status %d: %s", resp.StatusCode, data)
	}

	// Patching after completion is a state error.
	resp, _ = doJSON(t, http.MethodPatch,
		fmt.Sprintf("%s/api/v1/sessions/%s/sets/%s", ts.URL, sess.ID, setID),
		map[string]any{"reps_done": 6})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("patch completed: status %d, want 422", resp.StatusCode)
	}

	// The parent flipped to completed.
	resp, data = doJSON(t, http.MethodGet, ts.URL+"/api/v1/scheduled/"+sw.ID.String(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get scheduled: status %d", resp.StatusCode)
	}
	var got models.ScheduledWorkout
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != models.ScheduledCompleted {
		t.Errorf("scheduled status = %q, want completed", got.Status)
	}
}

func TestQuickCompleteAndReopen(t *testing.T) {
	ts := newTestServer(t)
	p := createPlan(t, ts)
	sw := schedulePlan(t, ts, p, "2026-03-03")

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/api/v1/scheduled/"+sw.ID.String()+"/quick-complete",
		map[string]any{"copy_planned_to_actuals": true})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("quick-complete: status %d: %s", resp.StatusCode, data)
	}
	var sess models.WorkoutSession
	if err := json.Unmarshal(data, &sess); err != nil {
		t.Fatal(err)
	}
	if !sess.QuickComplete || sess.Status != models.SessionCompleted {
		t.Fatalf("session = %q quick=%v, want completed quick session", sess.Status, sess.QuickComplete)
	}
	if got := sess.Exercises[0].Sets[0].RepsDone; got == nil || *got != 5 {
		t.Errorf("actuals not copied: reps_done = %v, want 5", got)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/scheduled/"+sw.ID.String()+"/reopen", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reopen: status %d, want 204", resp.StatusCode)
	}

	resp, data = doJSON(t, http.MethodGet, ts.URL+"/api/v1/scheduled/"+sw.ID.String(), nil)
	var got models.ScheduledWorkout
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != models.ScheduledPlanned {
		t.Errorf("scheduled status after reopen = %q, want planned", got.Status)
	}
}

func TestActiveSessionNone(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/sessions/active", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAnalyticsOverview(t *testing.T) {
	ts := newTestServer(t)
	p := createPlan(t, ts)
	sw := schedulePlan(t, ts, p, "2026-03-02")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/scheduled/"+sw.ID.String()+"/quick-complete",
		map[string]any{"copy_planned_to_actuals": true})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("quick-complete: status %d", resp.StatusCode)
	}

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/api/v1/analytics/overview", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("overview: status %d: %s", resp.StatusCode, data)
	}
	var ov analytics.Overview
	if err := json.Unmarshal(data, &ov); err != nil {
		t.Fatal(err)
	}
	if ov.SessionCount != 1 {
		t.Errorf("session_count = %d, want 1", ov.SessionCount)
	}
	// 2 sets x 5 reps x 100 kg.
	if ov.TotalVolume != 1000 {
		t.Errorf("total_volume = %v, want 1000", ov.TotalVolume)
	}
}

func TestE1RMRequiresExercise(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/analytics/e1rm", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMalformedIDReadsAsNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/plans/not-a-uuid", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFriendEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/friends", map[string]any{"user_id": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self-friend: status %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/friends", map[string]any{"user_id": 2})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("request: status %d, want 201", resp.StatusCode)
	}

	// Requester cannot accept their own request.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/friends/2/accept", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("self-accept: status %d, want 404", resp.StatusCode)
	}

	// Peeking at a non-friend's schedule stays opaque.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/friends/2/scheduled", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("non-friend schedule: status %d, want 404", resp.StatusCode)
	}
}
