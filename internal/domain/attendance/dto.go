package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type AttendanceResponse struct {
	ID            string   `json:"id"`
	WorkerID      string   `json:"worker_id"`
	WorkDate      string   `json:"work_date"`
	CheckInTime   string   `json:"check_in_time"`
	CheckInLocal  string   `json:"check_in_local"`
	CheckOutTime  *string  `json:"check_out_time,omitempty"`
	CheckOutLocal *string  `json:"check_out_local,omitempty"`
	DurationHours *float64 `json:"duration_hours,omitempty"`
	Status        string   `json:"status"`
	IsLate        bool     `json:"is_late"`
	Notes         *string  `json:"notes,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// NewAttendanceResponse renders instants as RFC3339 UTC plus local wall clock.
func NewAttendanceResponse(att Attendance, cal civilday.Calendar) AttendanceResponse {
	resp := AttendanceResponse{
		ID:            att.ID,
		WorkerID:      att.WorkerID,
		WorkDate:      att.WorkDate,
		CheckInTime:   att.CheckIn.UTC().Format(time.RFC3339),
		CheckInLocal:  cal.Clock(att.CheckIn),
		DurationHours: att.DurationHours,
		Status:        string(att.Status),
		IsLate:        att.IsLate,
		Notes:         att.Notes,
		CreatedAt:     att.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     att.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if att.CheckOut != nil {
		out := att.CheckOut.UTC().Format(time.RFC3339)
		local := cal.Clock(*att.CheckOut)
		resp.CheckOutTime = &out
		resp.CheckOutLocal = &local
	}
	return resp
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	Attendances []AttendanceResponse `json:"attendances"`
}

// RangeFilter selects records between two civil days inclusive, one page at a
// time. An empty WorkerID selects every worker.
type RangeFilter struct {
	WorkerID  string `json:"worker_id"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
}

// Validate checks a single worker's filter.
func (f *RangeFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
		})
	}

	errs = append(errs, f.windowErrors()...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ValidateWindow checks the day range and paging, defaulting page and limit.
func (f *RangeFilter) ValidateWindow() error {
	if errs := f.windowErrors(); len(errs) > 0 {
		return errs
	}
	return nil
}

func (f *RangeFilter) windowErrors() validator.ValidationErrors {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(f.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(f.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK {
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		} else if !validator.IsWithinSpan(start, end, validator.MaxRangeDays) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: fmt.Sprintf("range must not exceed %d days", validator.MaxRangeDays),
			})
		}
	}

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	return errs
}

// ========================================
// ATTENDANCE STATUS DTOs
// ========================================

type AttendanceStatusResponse struct {
	Date            string              `json:"date"`
	HasCheckedIn    bool                `json:"has_checked_in"`
	HasCheckedOut   bool                `json:"has_checked_out"`
	TodayAttendance *AttendanceResponse `json:"today_attendance,omitempty"`
	HasOpenSession  bool                `json:"has_open_session"`
	OpenSessionDate string              `json:"open_session_date,omitempty"`
	OpenSessionID   string              `json:"open_session_id,omitempty"`
	CanCheckIn      bool                `json:"can_check_in"`
	CanCheckOut     bool                `json:"can_check_out"`
	Message         string              `json:"message"`
}
