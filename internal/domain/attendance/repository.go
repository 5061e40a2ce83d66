package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
// Ranges are half-open UTC intervals produced by the civil-day calendar.
type AttendanceRepository interface {
	// Create inserts a new record. A second record for the same worker and
	// work date returns ErrAlreadyCheckedIn.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// GetByID returns ErrAttendanceNotFound when the record does not exist.
	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetLatestInRange returns the newest record whose check-in falls in
	// [start, end), or nil when there is none.
	GetLatestInRange(ctx context.Context, workerID string, start, end time.Time) (*Attendance, error)

	// GetOpenInRange returns the newest record without a check-out whose
	// check-in falls in [start, end), or nil.
	GetOpenInRange(ctx context.Context, workerID string, start, end time.Time) (*Attendance, error)

	// ListOpenBefore returns open records checked in before the given instant
	// that are not yet flagged missing-checkout or absent.
	ListOpenBefore(ctx context.Context, workerID string, before time.Time) ([]Attendance, error)

	// ListInRange returns records with check-in in [start, end), oldest first.
	ListInRange(ctx context.Context, workerID string, start, end time.Time) ([]Attendance, error)

	// ListPage returns one page of records matching the query, ordered by
	// check-in then ID, plus the total number of matches.
	ListPage(ctx context.Context, query PageQuery) ([]Attendance, int64, error)

	// CloseSession writes check-out, duration and status only if the record is
	// still open. Returns ErrNoActiveSession otherwise.
	CloseSession(ctx context.Context, attendance Attendance) error

	// Update overwrites the mutable fields of an existing record.
	Update(ctx context.Context, attendance Attendance) error

	// UpdateStatus changes the status and notes of a record.
	UpdateStatus(ctx context.Context, id string, status Status, notes *string) error
}

// PageQuery selects check-ins in [Start, End). An empty WorkerID matches
// every worker.
type PageQuery struct {
	WorkerID string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// TodayCache memoizes the current civil day's record per worker.
type TodayCache interface {
	Get(workerID, day string) (*Attendance, bool)
	Set(workerID, day string, attendance *Attendance)
	Invalidate(workerID string)
}
