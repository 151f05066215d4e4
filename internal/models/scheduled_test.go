package models

import "testing"

// TestParseScheduledStatus verifies case-insensitive parsing and the
// planned fallback for unrecognized input.
func TestParseScheduledStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ScheduledStatus
	}{
		{"completed", ScheduledCompleted},
		{"Completed", ScheduledCompleted},
		{"COMPLETED", ScheduledCompleted},
		{" completed ", ScheduledCompleted},
		{"planned", ScheduledPlanned},
		{"Planned", ScheduledPlanned},
		{"", ScheduledPlanned},
		{"done", ScheduledPlanned},
		{"in_progress", ScheduledPlanned},
	}

	for _, tt := range tests {
		if got := ParseScheduledStatus(tt.in); got != tt.want {
			t.Errorf("ParseScheduledStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
