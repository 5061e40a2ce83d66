package attendance

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an attendance record.
type Status string

const (
	StatusOnTime          Status = "on-time"
	StatusLate            Status = "late"
	StatusCheckedIn       Status = "checked-in"
	StatusCheckedOut      Status = "checked-out"
	StatusMissingCheckout Status = "missing-checkout"
	StatusAbsent          Status = "absent"
)

// AllStatuses returns every valid attendance status
func AllStatuses() []Status {
	return []Status{
		StatusOnTime,
		StatusLate,
		StatusCheckedIn,
		StatusCheckedOut,
		StatusMissingCheckout,
		StatusAbsent,
	}
}

// ParseStatus validates a stored or requested status value.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Attendance struct {
	ID       string
	WorkerID string
	// WorkDate is the civil-day key of the check-in, e.g. "2024-01-10".
	WorkDate      string
	CheckIn       time.Time
	CheckOut      *time.Time
	DurationHours *float64
	IsLate        bool
	Status        Status
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether the session has no check-out yet.
func (a Attendance) IsOpen() bool {
	return a.CheckOut == nil
}

// IsComplete reports whether both instants are recorded.
func (a Attendance) IsComplete() bool {
	return !a.CheckIn.IsZero() && a.CheckOut != nil
}
