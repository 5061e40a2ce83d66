package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

const (
	hintRefreshStatus      = "Re-fetch GET /api/v1/attendance/status before retrying"
	hintRefreshCorrections = "Re-fetch your correction requests before retrying"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Token errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid token")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, "ALREADY_CHECKED_IN", "Already checked in today", hintRefreshStatus)
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, "ALREADY_CHECKED_OUT", "Already checked out today", hintRefreshStatus)
	case errors.Is(err, attendance.ErrNoActiveSession):
		Conflict(w, "NO_ACTIVE_SESSION", "No active session to check out today", hintRefreshStatus)
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// Correction domain errors
	case errors.Is(err, correction.ErrDuplicateRequest):
		Conflict(w, "DUPLICATE_REQUEST", "A correction request already exists for this date", hintRefreshCorrections)
	case errors.Is(err, correction.ErrAttendanceUnresolved):
		Conflict(w, "ATTENDANCE_UNRESOLVED", "No attendance record exists for this date to apply a check-out to", "")
	case errors.Is(err, correction.ErrCorrectionNotFound):
		NotFound(w, "Correction request not found or already processed")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
