package attendance

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
)

// MissingCheckoutNote annotates sessions flagged by the Reconciler.
const MissingCheckoutNote = "Auto-marked: Missing checkout from previous day"

// Reconciler flags sessions left open past their civil day.
// It never writes a check-out, so durations and aggregates stay untouched.
type Reconciler struct {
	repo     attendance.AttendanceRepository
	calendar civilday.Calendar
}

func NewReconciler(repo attendance.AttendanceRepository, calendar civilday.Calendar) *Reconciler {
	return &Reconciler{repo: repo, calendar: calendar}
}

// NeedsFlag reports whether rec is an unflagged carry-over session as of today.
func (r *Reconciler) NeedsFlag(rec attendance.Attendance, today string) bool {
	if !rec.IsOpen() {
		return false
	}
	if rec.Status == attendance.StatusMissingCheckout || rec.Status == attendance.StatusAbsent {
		return false
	}
	return civilday.Before(r.calendar.Key(rec.CheckIn), today)
}

// Reconcile marks rec missing-checkout when it is a carry-over session.
// Reconciling a flagged or current-day record is a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, rec attendance.Attendance, today string) (bool, error) {
	if !r.NeedsFlag(rec, today) {
		return false, nil
	}

	note := MissingCheckoutNote
	if rec.Notes != nil && *rec.Notes != "" {
		note = *rec.Notes + "\n" + MissingCheckoutNote
	}

	if err := r.repo.UpdateStatus(ctx, rec.ID, attendance.StatusMissingCheckout, &note); err != nil {
		return false, fmt.Errorf("failed to flag missing checkout for %s: %w", rec.ID, err)
	}
	return true, nil
}
