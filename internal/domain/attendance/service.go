package attendance

import (
	"context"
)

// AttendanceService defines the session lifecycle for one worker
type AttendanceService interface {
	// CheckIn opens today's session, flagging stale sessions from earlier days first
	CheckIn(ctx context.Context, workerID string) (AttendanceResponse, error)

	// CheckOut closes today's open session
	CheckOut(ctx context.Context, workerID string) (AttendanceResponse, error)

	// GetTodayAttendance returns today's record or nil
	GetTodayAttendance(ctx context.Context, workerID string) (*AttendanceResponse, error)

	// GetStatus reports what the worker can do right now
	GetStatus(ctx context.Context, workerID string) (AttendanceStatusResponse, error)

	// GetAttendanceRange lists one worker's records between two civil days inclusive
	GetAttendanceRange(ctx context.Context, filter RangeFilter) (ListAttendanceResponse, error)

	// GetAllAttendance lists every worker's records between two civil days inclusive
	GetAllAttendance(ctx context.Context, filter RangeFilter) (ListAttendanceResponse, error)
}
