package report

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE AGGREGATES
// ========================================

type AggregateRequest struct {
	WorkerID  string `json:"worker_id"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

func (r *AggregateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
		})
	}

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(r.EndDate)
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

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Aggregates summarizes one worker's attendance between two days inclusive.
type Aggregates struct {
	WorkerID  string `json:"worker_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	TotalHours float64 `json:"total_hours"`

	OpenSessions int     `json:"open_sessions"`
	AverageHours float64 `json:"average_hours"`
	WorkingDays  int     `json:"working_days"`
}
