package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workhours"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	cache      attendance.TodayCache
	reconciler *Reconciler
	publisher  notification.Publisher
	clock      clock.Clock
	calendar   civilday.Calendar
	policy     workhours.Policy
}

func requireWorker(workerID string) error {
	if validator.IsEmpty(workerID) {
		return validator.Single("worker_id", "worker_id is required")
	}
	return nil
}

// CheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, workerID string) (attendance.AttendanceResponse, error) {
	if err := requireWorker(workerID); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now := s.clock.Now()
	today := s.calendar.RangeOf(now)

	existing, err := s.AttendanceRepository.GetLatestInRange(ctx, workerID, today.Start, today.End)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to look up today's attendance: %w", err)
	}
	if existing != nil {
		s.cache.Set(workerID, today.Key, existing)
		if existing.CheckOut != nil {
			return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedOut
		}
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedIn
	}

	// Carry-over sessions are flagged before the new record exists so the
	// worker is never open on two civil days at once.
	stale, err := s.AttendanceRepository.ListOpenBefore(ctx, workerID, today.Start)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to list open sessions: %w", err)
	}
	for _, rec := range stale {
		flagged, err := s.reconciler.Reconcile(ctx, rec, today.Key)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		if flagged {
			slog.Info("flagged missing checkout", "worker_id", workerID, "attendance_id", rec.ID, "work_date", rec.WorkDate)
			s.publish(ctx, notification.Event{
				Type:     notification.TypeMissingCheckout,
				WorkerID: workerID,
				Topics:   []string{workerID, notification.TopicApprovers},
				Message:  fmt.Sprintf("Session on %s was never checked out", rec.WorkDate),
				Data:     map[string]interface{}{"attendance_id": rec.ID, "work_date": rec.WorkDate},
			})
		}
	}

	isLate := s.policy.IsLate(s.calendar, now)
	status := attendance.StatusOnTime
	if isLate {
		status = attendance.StatusLate
	}

	created, err := s.AttendanceRepository.Create(ctx, attendance.Attendance{
		WorkerID: workerID,
		WorkDate: today.Key,
		CheckIn:  now,
		IsLate:   isLate,
		Status:   status,
	})
	s.cache.Invalidate(workerID)
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	s.publish(ctx, notification.Event{
		Type:     notification.TypeCheckIn,
		WorkerID: workerID,
		Topics:   []string{workerID},
		Message:  fmt.Sprintf("Checked in at %s (%s)", s.calendar.Clock(now), status),
		Data:     map[string]interface{}{"attendance_id": created.ID, "status": string(status)},
	})

	return attendance.NewAttendanceResponse(created, s.calendar), nil
}

// CheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, workerID string) (attendance.AttendanceResponse, error) {
	if err := requireWorker(workerID); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now := s.clock.Now()
	today := s.calendar.RangeOf(now)

	// Only today's session; carry-overs are closed through corrections.
	open, err := s.AttendanceRepository.GetOpenInRange(ctx, workerID, today.Start, today.End)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to look up open session: %w", err)
	}
	if open == nil {
		return attendance.AttendanceResponse{}, attendance.ErrNoActiveSession
	}

	hours := workhours.Duration(open.CheckIn, now)
	open.CheckOut = &now
	open.DurationHours = &hours
	open.Status = attendance.StatusCheckedOut

	err = s.AttendanceRepository.CloseSession(ctx, *open)
	s.cache.Invalidate(workerID)
	if err != nil {
		if errors.Is(err, attendance.ErrNoActiveSession) {
			return attendance.AttendanceResponse{}, attendance.ErrNoActiveSession
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to close session: %w", err)
	}
	open.UpdatedAt = now

	s.publish(ctx, notification.Event{
		Type:     notification.TypeCheckOut,
		WorkerID: workerID,
		Topics:   []string{workerID},
		Message:  fmt.Sprintf("Checked out at %s, %.2f hours", s.calendar.Clock(now), hours),
		Data:     map[string]interface{}{"attendance_id": open.ID, "duration_hours": hours},
	})

	return attendance.NewAttendanceResponse(*open, s.calendar), nil
}

// today returns the worker's record for the current civil day, cache first.
func (s *AttendanceServiceImpl) today(ctx context.Context, workerID string, day civilday.Range) (*attendance.Attendance, error) {
	if att, ok := s.cache.Get(workerID, day.Key); ok {
		return att, nil
	}

	att, err := s.AttendanceRepository.GetLatestInRange(ctx, workerID, day.Start, day.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get today's attendance: %w", err)
	}
	s.cache.Set(workerID, day.Key, att)
	return att, nil
}

// GetTodayAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetTodayAttendance(ctx context.Context, workerID string) (*attendance.AttendanceResponse, error) {
	if err := requireWorker(workerID); err != nil {
		return nil, err
	}

	att, err := s.today(ctx, workerID, s.calendar.RangeOf(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, nil
	}
	resp := attendance.NewAttendanceResponse(*att, s.calendar)
	return &resp, nil
}

// GetStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetStatus(ctx context.Context, workerID string) (attendance.AttendanceStatusResponse, error) {
	if err := requireWorker(workerID); err != nil {
		return attendance.AttendanceStatusResponse{}, err
	}

	day := s.calendar.RangeOf(s.clock.Now())
	status := attendance.AttendanceStatusResponse{Date: day.Key}

	att, err := s.today(ctx, workerID, day)
	if err != nil {
		return attendance.AttendanceStatusResponse{}, err
	}

	stale, err := s.AttendanceRepository.ListOpenBefore(ctx, workerID, day.Start)
	if err != nil {
		return attendance.AttendanceStatusResponse{}, fmt.Errorf("failed to list open sessions: %w", err)
	}
	if len(stale) > 0 {
		latest := stale[len(stale)-1]
		status.HasOpenSession = true
		status.OpenSessionDate = latest.WorkDate
		status.OpenSessionID = latest.ID
	}

	switch {
	case att == nil:
		status.CanCheckIn = true
		status.Message = "You have not checked in today"
		if status.HasOpenSession {
			status.Message = fmt.Sprintf("Session on %s was not checked out; it will be flagged at your next check-in", status.OpenSessionDate)
		}
	case att.CheckOut == nil:
		status.HasCheckedIn = true
		status.CanCheckOut = true
		status.Message = "You are checked in"
	default:
		status.HasCheckedIn = true
		status.HasCheckedOut = true
		status.Message = "You have completed attendance for today"
	}

	if att != nil {
		resp := attendance.NewAttendanceResponse(*att, s.calendar)
		status.TodayAttendance = &resp
	}

	return status, nil
}

// GetAttendanceRange implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendanceRange(ctx context.Context, filter attendance.RangeFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	return s.listPage(ctx, filter)
}

// GetAllAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAllAttendance(ctx context.Context, filter attendance.RangeFilter) (attendance.ListAttendanceResponse, error) {
	filter.WorkerID = ""
	if err := filter.ValidateWindow(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	return s.listPage(ctx, filter)
}

// listPage expects a validated filter.
func (s *AttendanceServiceImpl) listPage(ctx context.Context, filter attendance.RangeFilter) (attendance.ListAttendanceResponse, error) {
	start, end, err := s.calendar.Span(filter.StartDate, filter.EndDate)
	if err != nil {
		return attendance.ListAttendanceResponse{}, validator.Single("start_date", err.Error())
	}

	records, total, err := s.AttendanceRepository.ListPage(ctx, attendance.PageQuery{
		WorkerID: filter.WorkerID,
		Start:    start,
		End:      end,
		Limit:    filter.Limit,
		Offset:   (filter.Page - 1) * filter.Limit,
	})
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	resp := attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		StartDate:   filter.StartDate,
		EndDate:     filter.EndDate,
		Attendances: make([]attendance.AttendanceResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.Attendances = append(resp.Attendances, attendance.NewAttendanceResponse(rec, s.calendar))
	}

	return resp, nil
}

// publish sends an auxiliary event. Failures are logged, never returned.
func (s *AttendanceServiceImpl) publish(ctx context.Context, event notification.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish attendance event",
			"type", event.Type,
			"worker_id", event.WorkerID,
			"error", err,
		)
	}
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	cache attendance.TodayCache,
	publisher notification.Publisher,
	clk clock.Clock,
	calendar civilday.Calendar,
	policy workhours.Policy,
) attendance.AttendanceService {
	if cache == nil {
		cache = NewTodayCache()
	}
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		cache:                cache,
		reconciler:           NewReconciler(attendanceRepo, calendar),
		publisher:            publisher,
		clock:                clk,
		calendar:             calendar,
		policy:               policy,
	}
}
