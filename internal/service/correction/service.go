package correction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workhours"
)

const (
	skeletonNote = "Created from approved correction"
	absentNote   = "Marked absent: correction request rejected"
)

type CorrectionServiceImpl struct {
	correction.CorrectionRepository
	attendances attendance.AttendanceRepository
	tx          database.TxManager
	cache       attendance.TodayCache
	publisher   notification.Publisher
	clock       clock.Clock
	calendar    civilday.Calendar
	policy      workhours.Policy
}

// Submit implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Submit(ctx context.Context, req correction.SubmitRequest) (correction.CorrectionResponse, error) {
	if err := req.Validate(); err != nil {
		return correction.CorrectionResponse{}, err
	}

	today := s.calendar.Key(s.clock.Now())
	if !civilday.Before(req.TargetDay, today) {
		return correction.CorrectionResponse{}, validator.Single("target_day", "target_day must be before today")
	}

	existing, err := s.CorrectionRepository.GetActiveByWorkerAndDay(ctx, req.WorkerID, req.TargetDay)
	if err != nil {
		return correction.CorrectionResponse{}, fmt.Errorf("failed to check existing corrections: %w", err)
	}
	if existing != nil {
		return correction.CorrectionResponse{}, correction.ErrDuplicateRequest
	}

	field, err := correction.ParseMissingField(req.MissingField)
	if err != nil {
		return correction.CorrectionResponse{}, validator.Single("missing_field", err.Error())
	}

	newRequest := correction.Request{
		WorkerID:      req.WorkerID,
		TargetDay:     req.TargetDay,
		MissingField:  field,
		RequestedTime: req.RequestedTime,
		Reason:        req.Reason,
		Status:        correction.StatusPending,
	}

	att, err := s.findByDay(ctx, req.WorkerID, req.TargetDay)
	if err != nil {
		return correction.CorrectionResponse{}, err
	}
	if att != nil {
		newRequest.AttendanceID = &att.ID
		newRequest.OriginalTime = s.originalTime(*att, field)
	}

	created, err := s.CorrectionRepository.Create(ctx, newRequest)
	if err != nil {
		if errors.Is(err, correction.ErrDuplicateRequest) {
			return correction.CorrectionResponse{}, correction.ErrDuplicateRequest
		}
		return correction.CorrectionResponse{}, fmt.Errorf("failed to create correction request: %w", err)
	}

	s.publish(ctx, notification.Event{
		Type:     notification.TypeCorrectionSubmitted,
		WorkerID: created.WorkerID,
		Topics:   []string{created.WorkerID, notification.TopicApprovers},
		Message:  fmt.Sprintf("Correction requested for %s %s", created.TargetDay, created.MissingField),
		Data:     map[string]interface{}{"correction_id": created.ID, "target_day": created.TargetDay},
	})

	return correction.NewCorrectionResponse(created), nil
}

// Approve implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Approve(ctx context.Context, req correction.ApproveRequest) (correction.ApprovalResponse, error) {
	if err := req.Validate(); err != nil {
		return correction.ApprovalResponse{}, err
	}

	var (
		decided correction.Request
		patched attendance.Attendance
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cr, err := s.loadPending(ctx, req.ID)
		if err != nil {
			return err
		}

		att, err := s.resolveAttendance(ctx, cr)
		if err != nil {
			return err
		}

		instant, err := s.calendar.Compose(cr.TargetDay, cr.RequestedTime)
		if err != nil {
			return validator.Single("requested_time", err.Error())
		}

		switch cr.MissingField {
		case correction.FieldCheckIn:
			patched, err = s.applyCheckIn(ctx, cr, att, instant)
		case correction.FieldCheckOut:
			patched, err = s.applyCheckOut(ctx, att, instant)
		default:
			err = fmt.Errorf("%w: %q", correction.ErrInvalidMissingField, cr.MissingField)
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		approver := req.ApproverID
		cr.Status = correction.StatusApproved
		cr.AttendanceID = &patched.ID
		cr.ApproverID = &approver
		cr.ApprovedAt = &now
		cr.Remarks = req.Remarks
		if err := s.CorrectionRepository.Decide(ctx, cr); err != nil {
			return err
		}
		cr.UpdatedAt = now
		decided = cr
		return nil
	})
	if err != nil {
		return correction.ApprovalResponse{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(decided.WorkerID)
	}
	s.publish(ctx, notification.Event{
		Type:     notification.TypeCorrectionApproved,
		WorkerID: decided.WorkerID,
		Topics:   []string{decided.WorkerID, notification.TopicApprovers},
		Message:  fmt.Sprintf("Correction for %s approved", decided.TargetDay),
		Data:     map[string]interface{}{"correction_id": decided.ID, "attendance_id": patched.ID},
	})

	return correction.ApprovalResponse{
		Request:    correction.NewCorrectionResponse(decided),
		Attendance: attendance.NewAttendanceResponse(patched, s.calendar),
	}, nil
}

// applyCheckIn sets the check-in instant, synthesizing a record when the day
// has none.
func (s *CorrectionServiceImpl) applyCheckIn(ctx context.Context, cr correction.Request, att *attendance.Attendance, instant time.Time) (attendance.Attendance, error) {
	isLate := s.policy.IsLate(s.calendar, instant)

	if att == nil {
		note := skeletonNote
		created, err := s.attendances.Create(ctx, attendance.Attendance{
			WorkerID: cr.WorkerID,
			WorkDate: cr.TargetDay,
			CheckIn:  instant,
			IsLate:   isLate,
			Status:   attendance.StatusCheckedIn,
			Notes:    &note,
		})
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to create attendance from correction: %w", err)
		}
		return created, nil
	}

	patched := *att
	patched.CheckIn = instant
	patched.IsLate = isLate
	if patched.CheckOut == nil {
		patched.Status = attendance.StatusCheckedIn
		patched.DurationHours = nil
	} else {
		if patched.CheckOut.Before(instant) {
			return attendance.Attendance{}, validator.Single("requested_time", "check-in must not be after the recorded check-out")
		}
		hours := workhours.Duration(instant, *patched.CheckOut)
		patched.DurationHours = &hours
		patched.Status = attendance.StatusCheckedOut
	}

	if err := s.attendances.Update(ctx, patched); err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to apply check-in correction: %w", err)
	}
	return patched, nil
}

// applyCheckOut sets the check-out instant and recomputes the duration from
// the stored check-in.
func (s *CorrectionServiceImpl) applyCheckOut(ctx context.Context, att *attendance.Attendance, instant time.Time) (attendance.Attendance, error) {
	if att == nil {
		return attendance.Attendance{}, correction.ErrAttendanceUnresolved
	}
	if instant.Before(att.CheckIn) {
		return attendance.Attendance{}, validator.Single("requested_time", "check-out must not be before the recorded check-in")
	}

	patched := *att
	hours := workhours.Duration(patched.CheckIn, instant)
	patched.CheckOut = &instant
	patched.DurationHours = &hours
	patched.Status = attendance.StatusCheckedOut

	if err := s.attendances.Update(ctx, patched); err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to apply check-out correction: %w", err)
	}
	return patched, nil
}

// Reject implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Reject(ctx context.Context, req correction.RejectRequest) (correction.CorrectionResponse, error) {
	if err := req.Validate(); err != nil {
		return correction.CorrectionResponse{}, err
	}

	var decided correction.Request
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cr, err := s.loadPending(ctx, req.ID)
		if err != nil {
			return err
		}

		att, err := s.resolveAttendance(ctx, cr)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		approver := req.ApproverID
		remarks := req.Remarks
		cr.Status = correction.StatusRejected
		cr.ApproverID = &approver
		cr.ApprovedAt = &now
		cr.Remarks = &remarks
		if att != nil {
			cr.AttendanceID = &att.ID
		}
		if err := s.CorrectionRepository.Decide(ctx, cr); err != nil {
			return err
		}

		// An incomplete day would otherwise linger in aggregates.
		if att != nil && att.CheckOut == nil {
			note := absentNote
			if err := s.attendances.UpdateStatus(ctx, att.ID, attendance.StatusAbsent, &note); err != nil {
				return fmt.Errorf("failed to mark attendance absent: %w", err)
			}
		}

		cr.UpdatedAt = now
		decided = cr
		return nil
	})
	if err != nil {
		return correction.CorrectionResponse{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(decided.WorkerID)
	}
	s.publish(ctx, notification.Event{
		Type:     notification.TypeCorrectionRejected,
		WorkerID: decided.WorkerID,
		Topics:   []string{decided.WorkerID, notification.TopicApprovers},
		Message:  fmt.Sprintf("Correction for %s rejected", decided.TargetDay),
		Data:     map[string]interface{}{"correction_id": decided.ID},
	})

	return correction.NewCorrectionResponse(decided), nil
}

// Get implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Get(ctx context.Context, id string) (correction.CorrectionResponse, error) {
	if validator.IsEmpty(id) {
		return correction.CorrectionResponse{}, validator.Single("id", "id is required")
	}
	cr, err := s.CorrectionRepository.GetByID(ctx, id)
	if err != nil {
		return correction.CorrectionResponse{}, err
	}
	return correction.NewCorrectionResponse(cr), nil
}

// ListMine implements correction.CorrectionService.
func (s *CorrectionServiceImpl) ListMine(ctx context.Context, workerID string, filter correction.CorrectionFilter) (correction.ListCorrectionResponse, error) {
	if validator.IsEmpty(workerID) {
		return correction.ListCorrectionResponse{}, validator.Single("worker_id", "worker_id is required")
	}
	filter.WorkerID = &workerID
	return s.List(ctx, filter)
}

// List implements correction.CorrectionService.
func (s *CorrectionServiceImpl) List(ctx context.Context, filter correction.CorrectionFilter) (correction.ListCorrectionResponse, error) {
	if err := filter.Validate(); err != nil {
		return correction.ListCorrectionResponse{}, err
	}

	requests, total, err := s.CorrectionRepository.List(ctx, filter)
	if err != nil {
		return correction.ListCorrectionResponse{}, fmt.Errorf("failed to list correction requests: %w", err)
	}

	resp := correction.ListCorrectionResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		Corrections: make([]correction.CorrectionResponse, 0, len(requests)),
	}
	for _, r := range requests {
		resp.Corrections = append(resp.Corrections, correction.NewCorrectionResponse(r))
	}
	return resp, nil
}

// loadPending locks the request. Decided requests read as not found so an
// approval is never applied twice.
func (s *CorrectionServiceImpl) loadPending(ctx context.Context, id string) (correction.Request, error) {
	cr, err := s.CorrectionRepository.GetByIDForUpdate(ctx, id)
	if err != nil {
		return correction.Request{}, err
	}
	if cr.Status.IsTerminal() {
		return correction.Request{}, correction.ErrCorrectionNotFound
	}
	return cr, nil
}

// resolveAttendance follows the stored reference, else looks the day up.
// A nil result is the unresolved branch.
func (s *CorrectionServiceImpl) resolveAttendance(ctx context.Context, cr correction.Request) (*attendance.Attendance, error) {
	if cr.AttendanceID != nil {
		att, err := s.attendances.GetByID(ctx, *cr.AttendanceID)
		switch {
		case err == nil:
			return &att, nil
		case !errors.Is(err, attendance.ErrAttendanceNotFound):
			return nil, fmt.Errorf("failed to resolve attendance: %w", err)
		}
	}
	return s.findByDay(ctx, cr.WorkerID, cr.TargetDay)
}

func (s *CorrectionServiceImpl) findByDay(ctx context.Context, workerID, day string) (*attendance.Attendance, error) {
	r, err := s.calendar.Range(day)
	if err != nil {
		return nil, validator.Single("target_day", err.Error())
	}
	att, err := s.attendances.GetLatestInRange(ctx, workerID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attendance for %s: %w", day, err)
	}
	return att, nil
}

func (s *CorrectionServiceImpl) originalTime(att attendance.Attendance, field correction.MissingField) *string {
	switch field {
	case correction.FieldCheckIn:
		v := s.calendar.Clock(att.CheckIn)
		return &v
	case correction.FieldCheckOut:
		if att.CheckOut != nil {
			v := s.calendar.Clock(*att.CheckOut)
			return &v
		}
	}
	return nil
}

// publish sends an auxiliary event. Failures are logged, never returned.
func (s *CorrectionServiceImpl) publish(ctx context.Context, event notification.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish correction event",
			"type", event.Type,
			"worker_id", event.WorkerID,
			"error", err,
		)
	}
}

func NewCorrectionService(
	correctionRepo correction.CorrectionRepository,
	attendanceRepo attendance.AttendanceRepository,
	tx database.TxManager,
	cache attendance.TodayCache,
	publisher notification.Publisher,
	clk clock.Clock,
	calendar civilday.Calendar,
	policy workhours.Policy,
) correction.CorrectionService {
	return &CorrectionServiceImpl{
		CorrectionRepository: correctionRepo,
		attendances:          attendanceRepo,
		tx:                   tx,
		cache:                cache,
		publisher:            publisher,
		clock:                clk,
		calendar:             calendar,
		policy:               policy,
	}
}
