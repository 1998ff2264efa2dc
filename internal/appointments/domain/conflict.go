package domain

import (
	"time"

	"github.com/google/uuid"
)

// MinimumGap is the shortest comfortable travel buffer between two visits of
// the same inspector. Tighter gaps are allowed but flagged.
const MinimumGap = 30 * time.Minute

// Conflict reports an existing appointment overlapping a candidate slot.
// Conflicts are informational: scheduling proceeds, the planner decides.
type Conflict struct {
	AppointmentID uuid.UUID
	Start         time.Time
	End           time.Time
}

// GapWarning reports a neighboring appointment closer than MinimumGap.
type GapWarning struct {
	AppointmentID uuid.UUID
	Gap           time.Duration
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FindConflicts returns every active appointment in existing that overlaps
// the candidate slot [start, end). Inactive appointments never conflict.
// excludeID skips one appointment, so an edited booking is not reported as
// conflicting with itself; pass uuid.Nil when creating.
func FindConflicts(existing []Appointment, start, end time.Time, excludeID uuid.UUID) []Conflict {
	var conflicts []Conflict
	for _, appt := range existing {
		if appt.ID == excludeID || !appt.Status.Active() {
			continue
		}
		if Overlaps(appt.Start, appt.End, start, end) {
			conflicts = append(conflicts, Conflict{
				AppointmentID: appt.ID,
				Start:         appt.Start,
				End:           appt.End,
			})
		}
	}
	return conflicts
}

// GapWarnings returns a warning for every active non-overlapping neighbor
// whose distance to the candidate slot is shorter than MinimumGap.
// Back-to-back appointments (gap zero) are legal but still flagged.
func GapWarnings(existing []Appointment, start, end time.Time, excludeID uuid.UUID) []GapWarning {
	var warnings []GapWarning
	for _, appt := range existing {
		if appt.ID == excludeID || !appt.Status.Active() {
			continue
		}
		if Overlaps(appt.Start, appt.End, start, end) {
			continue
		}

		var gap time.Duration
		switch {
		case !appt.End.After(start):
			gap = start.Sub(appt.End)
		case !end.After(appt.Start):
			gap = appt.Start.Sub(end)
		default:
			continue
		}

		if gap < MinimumGap {
			warnings = append(warnings, GapWarning{AppointmentID: appt.ID, Gap: gap})
		}
	}
	return warnings
}
