// Package export writes a portable SQLite snapshot of one user's training
// data: plans, the schedule, and logged sessions. The snapshot is a plain
// single-file database so it can be opened anywhere without a server.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meltforce/liftlog/internal/models"
)

// Source is the read surface the exporter needs. Both *storage.DB and the
// in-memory dev store satisfy it.
type Source interface {
	ListPlans(ctx context.Context, userID int) ([]models.Plan, error)
	ListScheduledRange(ctx context.Context, userID int, from, to time.Time) ([]models.ScheduledWorkout, error)
	ListSessionsForScheduled(ctx context.Context, userID int, scheduledID uuid.UUID) ([]models.WorkoutSession, error)
}

// Stats counts what a snapshot run wrote.
type Stats struct {
	Plans     int
	Scheduled int
	Sessions  int
	Sets      int
}

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	plan_type  TEXT NOT NULL,
	notes      TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS plan_sets (
	plan_id      TEXT NOT NULL,
	exercise     TEXT NOT NULL,
	position     INTEGER NOT NULL,
	set_number   INTEGER NOT NULL,
	reps         INTEGER NOT NULL,
	weight       REAL NOT NULL,
	rest_seconds INTEGER NOT NULL,
	PRIMARY KEY (plan_id, position, set_number)
);
CREATE TABLE IF NOT EXISTS scheduled_workouts (
	id        TEXT PRIMARY KEY,
	plan_id   TEXT NOT NULL,
	date      TEXT NOT NULL,
	name      TEXT NOT NULL,
	status    TEXT NOT NULL,
	shared    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id                   TEXT PRIMARY KEY,
	scheduled_workout_id TEXT NOT NULL,
	started_at           TEXT NOT NULL,
	completed_at         TEXT,
	duration_sec         INTEGER,
	status               TEXT NOT NULL,
	quick_complete       INTEGER NOT NULL,
	notes                TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_sets (
	session_id     TEXT NOT NULL,
	exercise       TEXT NOT NULL,
	position       INTEGER NOT NULL,
	set_number     INTEGER NOT NULL,
	ad_hoc         INTEGER NOT NULL,
	reps_planned   INTEGER NOT NULL,
	weight_planned REAL NOT NULL,
	reps_done      INTEGER,
	weight_done    REAL,
	rpe            REAL,
	is_failure     INTEGER,
	PRIMARY KEY (session_id, position, set_number)
);`

// Snapshot writes every plan, scheduled workout in [from, to], and attached
// session owned by userID into the SQLite database at path. Re-running
// against the same file replaces rows in place.
func Snapshot(ctx context.Context, src Source, userID int, from, to time.Time, path string) (*Stats, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}

	stats := &Stats{}
	if err := exportPlans(ctx, db, src, userID, stats); err != nil {
		return stats, err
	}
	if err := exportSchedule(ctx, db, src, userID, from, to, stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func exportPlans(ctx context.Context, db *sql.DB, src Source, userID int, stats *Stats) error {
	plans, err := src.ListPlans(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing plans: %w", err)
	}
	for _, p := range plans {
		_, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO plans (id, name, plan_type, notes, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.ID.String(), p.Name, p.PlanType, p.Notes, p.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("writing plan %s: %w", p.ID, err)
		}
		stats.Plans++
		for _, ex := range p.Exercises {
			for _, set := range ex.Sets {
				_, err := db.ExecContext(ctx,
					`INSERT OR REPLACE INTO plan_sets (plan_id, exercise, position, set_number, reps, weight, rest_seconds)
					 VALUES (?, ?, ?, ?, ?, ?, ?)`,
					p.ID.String(), ex.Name, ex.Position, set.SetNumber, set.Reps, set.Weight, ex.RestSeconds)
				if err != nil {
					return fmt.Errorf("writing plan set: %w", err)
				}
			}
		}
	}
	return nil
}

func exportSchedule(ctx context.Context, db *sql.DB, src Source, userID int, from, to time.Time, stats *Stats) error {
	scheduled, err := src.ListScheduledRange(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("listing scheduled workouts: %w", err)
	}
	for _, sw := range scheduled {
		shared := 0
		if sw.SharedWithFriends {
			shared = 1
		}
		_, err := db.ExecContext(ctx,
			`INSERT OR REPLACE INTO scheduled_workouts (id, plan_id, date, name, status, shared)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sw.ID.String(), sw.PlanID.String(), sw.Date.Format("2006-01-02"), sw.PlanName, string(sw.Status), shared)
		if err != nil {
			return fmt.Errorf("writing scheduled workout %s: %w", sw.ID, err)
		}
		stats.Scheduled++

		sessions, err := src.ListSessionsForScheduled(ctx, userID, sw.ID)
		if err != nil {
			return fmt.Errorf("listing sessions for %s: %w", sw.ID, err)
		}
		for _, sess := range sessions {
			if err := exportSession(ctx, db, &sess, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func exportSession(ctx context.Context, db *sql.DB, sess *models.WorkoutSession, stats *Stats) error {
	var completedAt any
	if sess.CompletedAt != nil {
		completedAt = sess.CompletedAt.Format(time.RFC3339)
	}
	quick := 0
	if sess.QuickComplete {
		quick = 1
	}
	var duration any
	if sess.DurationSec != nil {
		duration = *sess.DurationSec
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, scheduled_workout_id, started_at, completed_at, duration_sec, status, quick_complete, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.ScheduledWorkoutID.String(), sess.StartedAt.Format(time.RFC3339),
		completedAt, duration, string(sess.Status), quick, sess.Notes)
	if err != nil {
		return fmt.Errorf("writing session %s: %w", sess.ID, err)
	}
	stats.Sessions++

	for _, ex := range sess.Exercises {
		adHoc := 0
		if ex.AdHoc {
			adHoc = 1
		}
		for _, set := range ex.Sets {
			var isFailure any
			if set.IsFailure != nil {
				if *set.IsFailure {
					isFailure = 1
				} else {
					isFailure = 0
				}
			}
			_, err := db.ExecContext(ctx,
				`INSERT OR REPLACE INTO session_sets
				 (session_id, exercise, position, set_number, ad_hoc, reps_planned, weight_planned, reps_done, weight_done, rpe, is_failure)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sess.ID.String(), ex.Name, ex.Position, set.SetNumber, adHoc,
				set.RepsPlanned, set.WeightPlanned, nilable(set.RepsDone), nilable(set.WeightDone),
				nilable(set.RPE), isFailure)
			if err != nil {
				return fmt.Errorf("writing session set: %w", err)
			}
			stats.Sets++
		}
	}
	return nil
}

// nilable converts a typed nil pointer into an untyped nil for database/sql.
func nilable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
