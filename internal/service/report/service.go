package report

import (
	"context"
	"fmt"
	"math"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

type ReportServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	holidays       report.HolidayCalendar
	clock          clock.Clock
	calendar       civilday.Calendar
}

func NewReportService(
	attendanceRepo attendance.AttendanceRepository,
	holidays report.HolidayCalendar,
	clk clock.Clock,
	calendar civilday.Calendar,
) report.ReportService {
	if holidays == nil {
		holidays = report.NewHolidaySet()
	}
	return &ReportServiceImpl{
		attendanceRepo: attendanceRepo,
		holidays:       holidays,
		clock:          clk,
		calendar:       calendar,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// ComputeAggregates implements report.ReportService.
func (s *ReportServiceImpl) ComputeAggregates(ctx context.Context, req report.AggregateRequest) (report.Aggregates, error) {
	if err := req.Validate(); err != nil {
		return report.Aggregates{}, err
	}

	start, end, err := s.calendar.Span(req.StartDate, req.EndDate)
	if err != nil {
		return report.Aggregates{}, validator.Single("start_date", err.Error())
	}

	records, err := s.attendanceRepo.ListInRange(ctx, req.WorkerID, start, end)
	if err != nil {
		return report.Aggregates{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	today := s.calendar.Key(s.clock.Now())
	yesterday, err := civilday.AddDays(today, -1)
	if err != nil {
		return report.Aggregates{}, err
	}

	agg := report.Aggregates{
		WorkerID:  req.WorkerID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}

	presentDays := make(map[string]bool)
	for _, rec := range records {
		day := s.calendar.Key(rec.CheckIn)
		elapsed := !civilday.Before(today, day)

		if rec.IsComplete() && elapsed {
			agg.Present++
			presentDays[day] = true
		}
		if rec.IsLate && elapsed && rec.Status != attendance.StatusAbsent {
			agg.Late++
		}
		if rec.CheckOut == nil && rec.Status != attendance.StatusAbsent {
			agg.OpenSessions++
		}
		if rec.DurationHours != nil {
			agg.TotalHours += *rec.DurationHours
		}
	}
	agg.TotalHours = round4(agg.TotalHours)

	// Today and future days are never absent.
	days, err := civilday.Days(req.StartDate, civilday.Min(req.EndDate, yesterday))
	if err != nil {
		return report.Aggregates{}, err
	}
	for _, day := range days {
		if !civilday.IsWeekday(day) || s.holidays.IsHoliday(day) {
			continue
		}
		agg.WorkingDays++
		if !presentDays[day] {
			agg.Absent++
		}
	}

	present := agg.Present
	if present < 1 {
		present = 1
	}
	agg.AverageHours = round4(agg.TotalHours / float64(present))

	return agg, nil
}
