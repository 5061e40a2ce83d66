package workhours

import (
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
)

const (
	// BreakThresholdHours is the raw duration from which a break is deducted.
	BreakThresholdHours = 4.0
	// BreakHours is the unpaid break deducted from long sessions.
	BreakHours = 1.0
)

// Policy holds the lateness rule in local wall-clock minutes.
type Policy struct {
	StartMinute  int
	GraceMinutes int
}

// NewPolicy builds a Policy from a work start time ("09:00") and a grace window.
func NewPolicy(workStart string, graceMinutes int) (Policy, error) {
	h, m, _, err := civilday.ParseClock(workStart)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid work start time: %w", err)
	}
	if graceMinutes < 0 {
		return Policy{}, fmt.Errorf("grace minutes must not be negative")
	}
	return Policy{StartMinute: h*60 + m, GraceMinutes: graceMinutes}, nil
}

// LateAfterMinute is the last local minute-of-day still counted as on time.
func (p Policy) LateAfterMinute() int {
	return p.StartMinute + p.GraceMinutes
}

// IsLate reports whether checkIn is strictly after start + grace, compared in
// the calendar's local minute-of-day.
func (p Policy) IsLate(cal civilday.Calendar, checkIn time.Time) bool {
	return cal.MinuteOfDay(checkIn) > p.LateAfterMinute()
}

// Duration returns worked hours between two instants with the break deducted.
// Rounded to 4 decimal places so repeated computation is stable.
func Duration(checkIn, checkOut time.Time) float64 {
	raw := checkOut.Sub(checkIn).Hours()
	worked := raw
	if raw >= BreakThresholdHours {
		worked = raw - BreakHours
	}
	if worked < 0 {
		worked = 0
	}
	return math.Round(worked*10000) / 10000
}
