package models

// ExerciseInput is the caller-supplied shape for authoring an exercise, used
// by plan creation, custom scheduled workouts, and ad-hoc session exercises.
type ExerciseInput struct {
	Name        string     `json:"name"`
	RestSeconds int        `json:"rest_seconds"`
	Sets        []SetInput `json:"sets"`
}

// SetInput is the caller-supplied shape for one set. SetNumber is accepted
// for wire compatibility but ignored: numbering is always reassigned densely
// 1..N in input order.
type SetInput struct {
	SetNumber int     `json:"set_number,omitempty"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
}
