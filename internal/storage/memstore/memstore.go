// Package memstore is an in-memory implementation of the service store
// interfaces. It backs the -dev server mode (run without Postgres) and the
// service tests. Rows are deep-copied on the way in and out, so callers see
// the same copy-independence semantics a real database gives them.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// Store holds all entities behind one mutex. Operations are short and
// request-scoped; there is no need for finer locking.
type Store struct {
	mu          sync.Mutex
	plans       map[uuid.UUID]*models.Plan
	scheduled   map[uuid.UUID]*models.ScheduledWorkout
	sessions    map[uuid.UUID]*models.WorkoutSession
	friendships []models.Friendship
	userIDs     map[string]int
	userLogins  map[int]string
	nextUserID  int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		plans:      make(map[uuid.UUID]*models.Plan),
		scheduled:  make(map[uuid.UUID]*models.ScheduledWorkout),
		sessions:   make(map[uuid.UUID]*models.WorkoutSession),
		userIDs:    make(map[string]int),
		userLogins: make(map[int]string),
		nextUserID: 1,
	}
}

// --- plans ---

func (s *Store) InsertPlan(ctx context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = clonePlan(p)
	return nil
}

func (s *Store) GetPlan(ctx context.Context, userID int, id uuid.UUID) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return nil, models.ErrNotFound
	}
	return clonePlan(p), nil
}

func (s *Store) ListPlans(ctx context.Context, userID int) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Plan
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, *clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.plans[p.ID]
	if !ok || existing.UserID != p.UserID {
		return models.ErrNotFound
	}
	s.plans[p.ID] = clonePlan(p)
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, userID int, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

// --- scheduled workouts ---

func (s *Store) InsertScheduled(ctx context.Context, sw *models.ScheduledWorkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[sw.ID] = cloneScheduled(sw)
	return nil
}

func (s *Store) GetScheduled(ctx context.Context, userID int, id uuid.UUID) (*models.ScheduledWorkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.scheduled[id]
	if !ok || sw.UserID != userID {
		return nil, models.ErrNotFound
	}
	return cloneScheduled(sw), nil
}

func (s *Store) ListScheduledRange(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	return s.listScheduled(userID, from, to, false), nil
}

func (s *Store) ListSharedScheduledRange(ctx context.Context, ownerID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	return s.listScheduled(ownerID, from, to, true), nil
}

func (s *Store) listScheduled(userID int, from, to time.Time, sharedOnly bool) []models.ScheduledWorkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduledWorkout
	for _, sw := range s.scheduled {
		if sw.UserID != userID {
			continue
		}
		if sharedOnly && !sw.SharedWithFriends {
			continue
		}
		if sw.Date.Before(from) || sw.Date.After(to) {
			continue
		}
		out = append(out, *cloneScheduled(sw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) UpdateScheduled(ctx context.Context, sw *models.ScheduledWorkout, rebuildExercises bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.scheduled[sw.ID]
	if !ok || existing.UserID != sw.UserID {
		return models.ErrNotFound
	}
	next := cloneScheduled(sw)
	if !rebuildExercises {
		next.Exercises = existing.Exercises
	}
	s.scheduled[sw.ID] = next
	return nil
}

func (s *Store) DeleteScheduled(ctx context.Context, userID int, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.scheduled[id]
	if !ok || sw.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.scheduled, id)
	for sid, sess := range s.sessions {
		if sess.ScheduledWorkoutID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// --- sessions ---

func (s *Store) InsertSession(ctx context.Context, sess *models.WorkoutSession, markScheduledCompleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same rule as the partial unique index in Postgres.
	for _, other := range s.sessions {
		if other.ScheduledWorkoutID == sess.ScheduledWorkoutID && other.Status != models.SessionAborted {
			return models.ErrConflict
		}
	}
	s.sessions[sess.ID] = cloneSession(sess)
	if markScheduledCompleted {
		if sw, ok := s.scheduled[sess.ScheduledWorkoutID]; ok {
			sw.Status = models.ScheduledCompleted
		}
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID {
		return nil, models.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *Store) ListSessionsForScheduled(ctx context.Context, userID int, scheduledID uuid.UUID) ([]models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WorkoutSession
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.ScheduledWorkoutID == scheduledID {
			out = append(out, *cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *Store) ActiveSession(ctx context.Context, userID int) (*models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == models.SessionInProgress {
			return cloneSession(sess), nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) UpdateSessionHeader(ctx context.Context, sess *models.WorkoutSession, markScheduledCompleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[sess.ID]
	if !ok || existing.UserID != sess.UserID {
		return models.ErrNotFound
	}
	existing.Status = sess.Status
	existing.Notes = sess.Notes
	existing.CompletedAt = cloneTimePtr(sess.CompletedAt)
	existing.DurationSec = cloneIntPtr(sess.DurationSec)
	if markScheduledCompleted {
		if sw, ok := s.scheduled[existing.ScheduledWorkoutID]; ok {
			sw.Status = models.ScheduledCompleted
		}
	}
	return nil
}

func (s *Store) UpdateSessionSet(ctx context.Context, userID int, set *models.SessionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		for i := range sess.Exercises {
			if sess.Exercises[i].ID != set.ExerciseID {
				continue
			}
			for j := range sess.Exercises[i].Sets {
				if sess.Exercises[i].Sets[j].ID == set.ID {
					sess.Exercises[i].Sets[j] = *cloneSet(set)
					return nil
				}
			}
		}
	}
	return models.ErrNotFound
}

func (s *Store) InsertSessionExercise(ctx context.Context, ex *models.SessionExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ex.SessionID]
	if !ok {
		return models.ErrNotFound
	}
	sess.Exercises = append(sess.Exercises, *cloneExercise(ex))
	return nil
}

func (s *Store) DeleteSessionResetScheduled(ctx context.Context, sessionID, scheduledID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return models.ErrNotFound
	}
	delete(s.sessions, sessionID)
	if sw, ok := s.scheduled[scheduledID]; ok {
		sw.Status = models.ScheduledPlanned
	}
	return nil
}

// --- analytics reads ---

func (s *Store) CompletedSessionsBetween(ctx context.Context, userID int, from, to time.Time) ([]models.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WorkoutSession
	for _, sess := range s.sessions {
		if sess.UserID != userID || sess.Status != models.SessionCompleted {
			continue
		}
		if sess.StartedAt.Before(from) || !sess.StartedAt.Before(to) {
			continue
		}
		out = append(out, *cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *Store) ScheduledBetween(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error) {
	return s.listScheduled(userID, from, to, false), nil
}

// --- users and friendships ---

func (s *Store) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.userIDs[login]; ok {
		return id, nil
	}
	id := s.nextUserID
	s.nextUserID++
	s.userIDs[login] = id
	s.userLogins[id] = login
	return id, nil
}

func (s *Store) CreateFriendRequest(ctx context.Context, fromUser, toUser int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b := orderPair(fromUser, toUser)
	for _, f := range s.friendships {
		if f.UserAID == a && f.UserBID == b {
			return models.ErrConflict
		}
	}
	s.friendships = append(s.friendships, models.Friendship{
		UserAID: a, UserBID: b, Status: "pending", RequestedBy: fromUser, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *Store) AcceptFriendRequest(ctx context.Context, userID, otherID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b := orderPair(userID, otherID)
	for i := range s.friendships {
		f := &s.friendships[i]
		if f.UserAID == a && f.UserBID == b && f.Status == "pending" && f.RequestedBy != userID {
			f.Status = "accepted"
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *Store) AreFriends(ctx context.Context, userA, userB int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b := orderPair(userA, userB)
	for _, f := range s.friendships {
		if f.UserAID == a && f.UserBID == b && f.Status == "accepted" {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) FriendIDs(ctx context.Context, userID int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, f := range s.friendships {
		if f.Status != "accepted" {
			continue
		}
		switch userID {
		case f.UserAID:
			out = append(out, f.UserBID)
		case f.UserBID:
			out = append(out, f.UserAID)
		}
	}
	sort.Ints(out)
	return out, nil
}

func orderPair(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// --- deep copies ---

func clonePlan(p *models.Plan) *models.Plan {
	cp := *p
	cp.Exercises = make([]models.PlanExercise, len(p.Exercises))
	for i, ex := range p.Exercises {
		cp.Exercises[i] = ex
		cp.Exercises[i].Sets = append([]models.PlanSet(nil), ex.Sets...)
	}
	return &cp
}

func cloneScheduled(sw *models.ScheduledWorkout) *models.ScheduledWorkout {
	cp := *sw
	if sw.TimeOfDay != nil {
		v := *sw.TimeOfDay
		cp.TimeOfDay = &v
	}
	cp.Exercises = make([]models.ScheduledExercise, len(sw.Exercises))
	for i, ex := range sw.Exercises {
		cp.Exercises[i] = ex
		cp.Exercises[i].Sets = append([]models.ScheduledSet(nil), ex.Sets...)
	}
	return &cp
}

func cloneSession(sess *models.WorkoutSession) *models.WorkoutSession {
	cp := *sess
	cp.CompletedAt = cloneTimePtr(sess.CompletedAt)
	cp.DurationSec = cloneIntPtr(sess.DurationSec)
	cp.Exercises = make([]models.SessionExercise, len(sess.Exercises))
	for i := range sess.Exercises {
		cp.Exercises[i] = *cloneExercise(&sess.Exercises[i])
	}
	return &cp
}

func cloneExercise(ex *models.SessionExercise) *models.SessionExercise {
	cp := *ex
	cp.RestSecondsActual = cloneIntPtr(ex.RestSecondsActual)
	if ex.ScheduledExerciseID != nil {
		v := *ex.ScheduledExerciseID
		cp.ScheduledExerciseID = &v
	}
	cp.Sets = make([]models.SessionSet, len(ex.Sets))
	for i := range ex.Sets {
		cp.Sets[i] = *cloneSet(&ex.Sets[i])
	}
	return &cp
}

func cloneSet(set *models.SessionSet) *models.SessionSet {
	cp := *set
	cp.RepsDone = cloneIntPtr(set.RepsDone)
	if set.WeightDone != nil {
		v := *set.WeightDone
		cp.WeightDone = &v
	}
	if set.RPE != nil {
		v := *set.RPE
		cp.RPE = &v
	}
	if set.IsFailure != nil {
		v := *set.IsFailure
		cp.IsFailure = &v
	}
	return &cp
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
