package report

import "context"

// ReportService rolls attendance records up over a day range.
type ReportService interface {
	ComputeAggregates(ctx context.Context, req AggregateRequest) (Aggregates, error)
}

// HolidayCalendar reports non-working civil days.
type HolidayCalendar interface {
	IsHoliday(day string) bool
}

// HolidaySet is a fixed list of holiday keys.
type HolidaySet map[string]struct{}

func NewHolidaySet(days ...string) HolidaySet {
	set := make(HolidaySet, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}

func (h HolidaySet) IsHoliday(day string) bool {
	_, ok := h[day]
	return ok
}
