// Package analytics computes read-only aggregates over completed sessions
// and scheduled workouts: volume, intensity, adherence, e1RM trends, and
// plan-vs-actual deltas. Everything is scoped to the calling user.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// Store is the persistence contract the aggregator needs.
type Store interface {
	// CompletedSessionsBetween returns completed sessions, with full exercise
	// trees, started in the half-open range [from, to).
	CompletedSessionsBetween(ctx context.Context, userID int, from, to time.Time) ([]models.WorkoutSession, error)
	// ScheduledBetween returns scheduled workouts with dates in [from, to],
	// date-only inclusive. Exercise trees are not needed.
	ScheduledBetween(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error)
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.WorkoutSession, error)
}

// Overview summarizes a time range: total tonnage, average working weight,
// session count, and schedule adherence.
type Overview struct {
	TotalVolume  float64 `json:"total_volume"`
	AvgIntensity float64 `json:"avg_intensity"`
	SessionCount int     `json:"session_count"`
	AdherencePct float64 `json:"adherence_pct"`
}

// TimePoint is one bucketed value in a trend series.
type TimePoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// ExerciseVolume is the total volume for one exercise over a range.
type ExerciseVolume struct {
	Exercise string  `json:"exercise"`
	Volume   float64 `json:"volume"`
}

// VolumeResult carries either a time series (day/week grouping) or a
// per-exercise breakdown, depending on the requested grouping.
type VolumeResult struct {
	GroupBy   string           `json:"group_by"`
	Points    []TimePoint      `json:"points,omitempty"`
	Exercises []ExerciseVolume `json:"exercises,omitempty"`
}

// Adherence reports planned vs completed scheduled workouts in a date range.
type Adherence struct {
	Planned      int     `json:"planned"`
	Completed    int     `json:"completed"`
	Missed       int     `json:"missed"`
	AdherencePct float64 `json:"adherence_pct"`
}

// PlanVsActualItem joins one logged set with its planned prescription.
// Missing actuals count as 0 for the diffs.
type PlanVsActualItem struct {
	Exercise      string   `json:"exercise"`
	SetNumber     int      `json:"set_number"`
	RepsPlanned   int      `json:"reps_planned"`
	WeightPlanned float64  `json:"weight_planned"`
	RepsDone      *int     `json:"reps_done,omitempty"`
	WeightDone    *float64 `json:"weight_done,omitempty"`
	RepsDiff      int      `json:"reps_diff"`
	WeightDiff    float64  `json:"weight_diff"`
	IsExtra       bool     `json:"is_extra"`
}

// Service implements the analytics aggregator.
type Service struct {
	store Store
}

// New creates an analytics service.
func New(store Store) *Service {
	return &Service{store: store}
}

// GetOverview aggregates completed sessions started in [from, to) and
// schedule adherence over the same calendar dates. Inverted bounds are
// swapped rather than rejected.
func (s *Service) GetOverview(ctx context.Context, userID int, from, to time.Time) (*Overview, error) {
	from, to = orderRange(from, to)

	sessions, err := s.store.CompletedSessionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	var totalVolume, weightSum float64
	var weightCount int
	for _, sess := range sessions {
		for _, ex := range sess.Exercises {
			for _, set := range ex.Sets {
				if set.RepsDone == nil || set.WeightDone == nil {
					continue
				}
				totalVolume += float64(*set.RepsDone) * *set.WeightDone
				if *set.WeightDone > 0 && *set.RepsDone > 0 {
					weightSum += *set.WeightDone
					weightCount++
				}
			}
		}
	}

	ov := &Overview{
		TotalVolume:  round2(totalVolume),
		SessionCount: len(sessions),
	}
	if weightCount > 0 {
		ov.AvgIntensity = round2(weightSum / float64(weightCount))
	}

	adh, err := s.GetAdherence(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	ov.AdherencePct = adh.AdherencePct

	return ov, nil
}

// GetVolume flattens every set of every completed session in [from, to) into
// (date, exercise, volume) tuples and groups them by day, ISO week, or
// exercise. exerciseFilter, when non-empty, keeps exact name matches only.
func (s *Service) GetVolume(ctx context.Context, userID int, from, to time.Time, groupBy, exerciseFilter string) (*VolumeResult, error) {
	from, to = orderRange(from, to)

	sessions, err := s.store.CompletedSessionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	type tuple struct {
		day      time.Time
		exercise string
		volume   float64
	}
	var tuples []tuple
	for _, sess := range sessions {
		day := dateOnly(sess.StartedAt)
		for _, ex := range sess.Exercises {
			if exerciseFilter != "" && ex.Name != exerciseFilter {
				continue
			}
			for _, set := range ex.Sets {
				var vol float64
				if set.RepsDone != nil && set.WeightDone != nil {
					vol = float64(*set.RepsDone) * *set.WeightDone
				}
				tuples = append(tuples, tuple{day: day, exercise: ex.Name, volume: vol})
			}
		}
	}

	result := &VolumeResult{GroupBy: groupBy}
	switch groupBy {
	case "exercise":
		byName := make(map[string]float64)
		for _, t := range tuples {
			byName[t.exercise] += t.volume
		}
		for name, vol := range byName {
			result.Exercises = append(result.Exercises, ExerciseVolume{Exercise: name, Volume: round2(vol)})
		}
		sort.Slice(result.Exercises, func(i, j int) bool {
			if result.Exercises[i].Volume != result.Exercises[j].Volume {
				return result.Exercises[i].Volume > result.Exercises[j].Volume
			}
			return result.Exercises[i].Exercise < result.Exercises[j].Exercise
		})

	case "week":
		// Daily sums first, then folded into ISO week buckets.
		byDay := make(map[time.Time]float64)
		for _, t := range tuples {
			byDay[t.day] += t.volume
		}
		byWeek := make(map[string]float64)
		for day, vol := range byDay {
			y, w := day.ISOWeek()
			byWeek[fmt.Sprintf("%04d-W%02d", y, w)] += vol
		}
		for period, vol := range byWeek {
			result.Points = append(result.Points, TimePoint{Period: period, Value: round2(vol)})
		}
		sort.Slice(result.Points, func(i, j int) bool { return result.Points[i].Period < result.Points[j].Period })

	default: // day
		result.GroupBy = "day"
		byDay := make(map[string]float64)
		for _, t := range tuples {
			byDay[t.day.Format("2006-01-02")] += t.volume
		}
		for period, vol := range byDay {
			result.Points = append(result.Points, TimePoint{Period: period, Value: round2(vol)})
		}
		sort.Slice(result.Points, func(i, j int) bool { return result.Points[i].Period < result.Points[j].Period })
	}

	return result, nil
}

// GetE1RMTrend returns, per calendar day, the best estimated one-rep-max for
// the named exercise among qualifying sets, using the Epley-style
// weight x (1 + reps/30) estimate, ordered by day ascending.
func (s *Service) GetE1RMTrend(ctx context.Context, userID int, exercise string, from, to time.Time) ([]TimePoint, error) {
	from, to = orderRange(from, to)

	sessions, err := s.store.CompletedSessionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	best := make(map[string]float64)
	for _, sess := range sessions {
		day := dateOnly(sess.StartedAt).Format("2006-01-02")
		for _, ex := range sess.Exercises {
			if ex.Name != exercise {
				continue
			}
			for _, set := range ex.Sets {
				if set.RepsDone == nil || set.WeightDone == nil || *set.RepsDone <= 0 {
					continue
				}
				e1 := *set.WeightDone * (1 + float64(*set.RepsDone)/30)
				if e1 > best[day] {
					best[day] = e1
				}
			}
		}
	}

	points := make([]TimePoint, 0, len(best))
	for day, e1 := range best {
		points = append(points, TimePoint{Period: day, Value: round2(e1)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period < points[j].Period })
	return points, nil
}

// GetAdherence counts scheduled workouts in the date-only inclusive range and
// reports how many were completed. AdherencePct is rounded to one decimal and
// 0 when nothing was planned.
func (s *Service) GetAdherence(ctx context.Context, userID int, from, to time.Time) (*Adherence, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		from, to = to, from
	}

	scheduled, err := s.store.ScheduledBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading scheduled workouts: %w", err)
	}

	adh := &Adherence{Planned: len(scheduled)}
	for _, sw := range scheduled {
		if sw.Status == models.ScheduledCompleted {
			adh.Completed++
		}
	}
	if adh.Planned > adh.Completed {
		adh.Missed = adh.Planned - adh.Completed
	}
	if adh.Planned > 0 {
		adh.AdherencePct = round1(float64(adh.Completed) / float64(adh.Planned) * 100)
	}
	return adh, nil
}

// GetPlanVsActual joins every set of a session with its planned prescription.
// A session that does not resolve under the caller yields an empty list, not
// an error: this is a read-only query and absence is a valid answer.
func (s *Service) GetPlanVsActual(ctx context.Context, userID int, sessionID uuid.UUID) ([]PlanVsActualItem, error) {
	sess, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []PlanVsActualItem{}, nil
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	items := make([]PlanVsActualItem, 0)
	for _, ex := range sess.Exercises {
		for _, set := range ex.Sets {
			item := PlanVsActualItem{
				Exercise:      ex.Name,
				SetNumber:     set.SetNumber,
				RepsPlanned:   set.RepsPlanned,
				WeightPlanned: set.WeightPlanned,
				RepsDone:      set.RepsDone,
				WeightDone:    set.WeightDone,
				IsExtra:       ex.AdHoc,
			}
			var repsDone int
			if set.RepsDone != nil {
				repsDone = *set.RepsDone
			}
			var weightDone float64
			if set.WeightDone != nil {
				weightDone = *set.WeightDone
			}
			item.RepsDiff = repsDone - set.RepsPlanned
			item.WeightDiff = round2(weightDone - set.WeightPlanned)
			items = append(items, item)
		}
	}
	return items, nil
}

// orderRange swaps inverted bounds so [from, to) is always well-formed.
func orderRange(from, to time.Time) (time.Time, time.Time) {
	if to.Before(from) {
		return to, from
	}
	return from, to
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
