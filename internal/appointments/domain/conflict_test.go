package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func appt(start, end time.Time, status Status) Appointment {
	return Appointment{ID: uuid.New(), Start: start, End: end, Status: status}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		aStart, aEnd   time.Time
		bStart, bEnd   time.Time
		want           bool
	}{
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"partial overlap", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"back to back", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"back to back reversed", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(13, 0), at(14, 0), false},
		{"one minute overlap", at(9, 0), at(10, 1), at(10, 0), at(11, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("Overlaps(%v-%v, %v-%v) = %v, want %v",
					tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	overlapping := appt(at(9, 30), at(10, 30), StatusScheduled)
	adjacent := appt(at(10, 0), at(11, 0), StatusScheduled)
	cancelled := appt(at(9, 0), at(10, 0), StatusCancelled)
	completed := appt(at(9, 15), at(9, 45), StatusCompleted)

	existing := []Appointment{overlapping, adjacent, cancelled, completed}
	conflicts := FindConflicts(existing, at(9, 0), at(10, 0), uuid.Nil)

	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1 (only the active overlap)", len(conflicts))
	}
	if conflicts[0].AppointmentID != overlapping.ID {
		t.Errorf("conflict id = %v, want %v", conflicts[0].AppointmentID, overlapping.ID)
	}
}

func TestFindConflictsEmpty(t *testing.T) {
	if got := FindConflicts(nil, at(9, 0), at(10, 0), uuid.Nil); got != nil {
		t.Errorf("conflicts on empty calendar = %v, want none", got)
	}
}

func TestFindConflictsExcludesEditedAppointment(t *testing.T) {
	edited := appt(at(9, 0), at(10, 0), StatusScheduled)
	inProgress := appt(at(9, 30), at(10, 30), StatusInProgress)

	existing := []Appointment{edited, inProgress}
	conflicts := FindConflicts(existing, at(9, 0), at(10, 0), edited.ID)

	if len(conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1 (the edited slot must not conflict with itself)", len(conflicts))
	}
	if conflicts[0].AppointmentID != inProgress.ID {
		t.Errorf("conflict id = %v, want the in-progress appointment %v", conflicts[0].AppointmentID, inProgress.ID)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusNoShow, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusNoShow, StatusInProgress, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestGapWarnings(t *testing.T) {
	tests := []struct {
		name     string
		existing Appointment
		wantWarn bool
		wantGap  time.Duration
	}{
		{"back to back before", appt(at(8, 0), at(9, 0), StatusScheduled), true, 0},
		{"back to back after", appt(at(10, 0), at(11, 0), StatusScheduled), true, 0},
		{"fifteen minute gap", appt(at(7, 45), at(8, 45), StatusScheduled), true, 15 * time.Minute},
		{"exactly minimum gap", appt(at(7, 30), at(8, 30), StatusScheduled), false, 0},
		{"comfortable gap", appt(at(6, 0), at(7, 0), StatusScheduled), false, 0},
		{"cancelled neighbor ignored", appt(at(8, 30), at(8, 50), StatusCancelled), false, 0},
		{"overlap is a conflict, not a gap", appt(at(9, 30), at(10, 30), StatusScheduled), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := GapWarnings([]Appointment{tt.existing}, at(9, 0), at(10, 0), uuid.Nil)
			if tt.wantWarn {
				if len(warnings) != 1 {
					t.Fatalf("warnings = %d, want 1", len(warnings))
				}
				if warnings[0].Gap != tt.wantGap {
					t.Errorf("gap = %v, want %v", warnings[0].Gap, tt.wantGap)
				}
				return
			}
			if len(warnings) != 0 {
				t.Errorf("warnings = %v, want none", warnings)
			}
		})
	}
}
