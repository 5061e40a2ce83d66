package correction

import (
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// ========================================
// CORRECTION DTOs
// ========================================

type SubmitRequest struct {
	WorkerID      string `json:"-"`
	TargetDay     string `json:"target_day"`     // YYYY-MM-DD
	MissingField  string `json:"missing_field"`  // check_in | check_out
	RequestedTime string `json:"requested_time"` // HH:MM or HH:MM:SS, local
	Reason        string `json:"reason"`
}

func (r *SubmitRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
		})
	}

	if _, ok := validator.IsValidDate(r.TargetDay); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "target_day",
			Message: "target_day must be in YYYY-MM-DD format",
		})
	}

	if !validator.IsInSlice(r.MissingField, []string{string(FieldCheckIn), string(FieldCheckOut)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "missing_field",
			Message: "missing_field must be one of: check_in, check_out",
		})
	}

	if !validator.IsValidClock(r.RequestedTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "requested_time",
			Message: "requested_time must be in HH:MM or HH:MM:SS format",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	} else if len(r.Reason) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ApproveRequest struct {
	ID         string  `json:"-"`
	ApproverID string  `json:"-"`
	Remarks    *string `json:"remarks,omitempty"`
}

func (r *ApproveRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if validator.IsEmpty(r.ApproverID) {
		errs = append(errs, validator.ValidationError{Field: "approver_id", Message: "approver_id is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RejectRequest struct {
	ID         string `json:"-"`
	ApproverID string `json:"-"`
	Remarks    string `json:"remarks"`
}

func (r *RejectRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if validator.IsEmpty(r.ApproverID) {
		errs = append(errs, validator.ValidationError{Field: "approver_id", Message: "approver_id is required"})
	}
	if validator.IsEmpty(r.Remarks) {
		errs = append(errs, validator.ValidationError{Field: "remarks", Message: "remarks is required when rejecting"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CorrectionFilter narrows correction listings.
type CorrectionFilter struct {
	WorkerID *string `json:"worker_id,omitempty"`
	Status   *string `json:"status,omitempty"`
	Page     int     `json:"page"`
	Limit    int     `json:"limit"`
}

func (f *CorrectionFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && *f.Status != "" {
		if _, err := ParseStatus(*f.Status); err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: pending, approved, rejected",
			})
		}
	}

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Page < 1 {
		errs = append(errs, validator.ValidationError{Field: "page", Message: "page must be at least 1"})
	}
	if f.Limit < 1 || f.Limit > 100 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "limit must be between 1 and 100"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CorrectionResponse struct {
	ID            string  `json:"id"`
	WorkerID      string  `json:"worker_id"`
	AttendanceID  *string `json:"attendance_id,omitempty"`
	TargetDay     string  `json:"target_day"`
	MissingField  string  `json:"missing_field"`
	RequestedTime string  `json:"requested_time"`
	OriginalTime  *string `json:"original_time,omitempty"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	ApproverID    *string `json:"approver_id,omitempty"`
	ApprovedAt    *string `json:"approved_at,omitempty"`
	Remarks       *string `json:"remarks,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func NewCorrectionResponse(r Request) CorrectionResponse {
	resp := CorrectionResponse{
		ID:            r.ID,
		WorkerID:      r.WorkerID,
		AttendanceID:  r.AttendanceID,
		TargetDay:     r.TargetDay,
		MissingField:  string(r.MissingField),
		RequestedTime: r.RequestedTime,
		OriginalTime:  r.OriginalTime,
		Reason:        r.Reason,
		Status:        string(r.Status),
		ApproverID:    r.ApproverID,
		Remarks:       r.Remarks,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.ApprovedAt != nil {
		at := r.ApprovedAt.UTC().Format(time.RFC3339)
		resp.ApprovedAt = &at
	}
	return resp
}

type ListCorrectionResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Corrections []CorrectionResponse `json:"corrections"`
}

// ApprovalResponse pairs the decided request with the patched record.
type ApprovalResponse struct {
	Request    CorrectionResponse            `json:"request"`
	Attendance attendance.AttendanceResponse `json:"attendance"`
}
