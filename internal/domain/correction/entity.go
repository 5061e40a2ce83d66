package correction

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a stored or requested correction status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// MissingField names the attendance instant a request backfills.
type MissingField string

const (
	FieldCheckIn  MissingField = "check_in"
	FieldCheckOut MissingField = "check_out"
)

func ParseMissingField(s string) (MissingField, error) {
	switch MissingField(s) {
	case FieldCheckIn, FieldCheckOut:
		return MissingField(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMissingField, s)
}

// Request is a worker's proposal to backfill one attendance instant.
type Request struct {
	ID           string
	WorkerID     string
	AttendanceID *string
	// TargetDay is the civil-day key being corrected.
	TargetDay    string
	MissingField MissingField
	// RequestedTime is the local wall-clock time, "HH:MM" or "HH:MM:SS".
	RequestedTime string
	// OriginalTime is the local wall-clock value of the field at submission.
	OriginalTime *string
	Reason       string
	Status       Status
	ApproverID   *string
	ApprovedAt   *time.Time
	Remarks      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
