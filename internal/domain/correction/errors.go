package correction

import "errors"

var (
	ErrDuplicateRequest     = errors.New("a correction request already exists for this date")
	ErrCorrectionNotFound   = errors.New("correction request not found or already processed")
	ErrAttendanceUnresolved = errors.New("no attendance record exists for this date to apply a check-out to")
	ErrInvalidStatus        = errors.New("invalid correction status")
	ErrInvalidMissingField  = errors.New("invalid missing field")
)
