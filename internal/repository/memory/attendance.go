package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
)

type attendanceRepository struct {
	store *Store
}

func cloneAttendance(a attendance.Attendance) attendance.Attendance {
	if a.CheckOut != nil {
		out := *a.CheckOut
		a.CheckOut = &out
	}
	if a.DurationHours != nil {
		d := *a.DurationHours
		a.DurationHours = &d
	}
	if a.Notes != nil {
		n := *a.Notes
		a.Notes = &n
	}
	return a
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// filter returns matching records ordered by check-in, oldest first.
// Must be called with the store lock held.
func (r *attendanceRepository) filter(match func(attendance.Attendance) bool) []attendance.Attendance {
	var out []attendance.Attendance
	for _, a := range r.store.attendances {
		if match(a) {
			out = append(out, cloneAttendance(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].CheckIn.Before(out[j].CheckIn)
	})
	return out
}

func (r *attendanceRepository) Create(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.attendances {
		if existing.WorkerID == att.WorkerID && existing.WorkDate == att.WorkDate {
			return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
		}
	}

	if att.ID == "" {
		id, err := newID()
		if err != nil {
			return attendance.Attendance{}, err
		}
		att.ID = id
	}
	now := s.clock.Now()
	att.CreatedAt = now
	att.UpdatedAt = now
	att.CheckIn = att.CheckIn.UTC()

	s.putAttendance(ctx, cloneAttendance(att))
	return cloneAttendance(att), nil
}

func (r *attendanceRepository) GetByID(_ context.Context, id string) (attendance.Attendance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	att, ok := s.attendances[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return cloneAttendance(att), nil
}

func (r *attendanceRepository) GetLatestInRange(_ context.Context, workerID string, start, end time.Time) (*attendance.Attendance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	found := r.filter(func(a attendance.Attendance) bool {
		return a.WorkerID == workerID && inRange(a.CheckIn, start, end)
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[len(found)-1], nil
}

func (r *attendanceRepository) GetOpenInRange(_ context.Context, workerID string, start, end time.Time) (*attendance.Attendance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	found := r.filter(func(a attendance.Attendance) bool {
		return a.WorkerID == workerID && a.CheckOut == nil && inRange(a.CheckIn, start, end)
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[len(found)-1], nil
}

func (r *attendanceRepository) ListOpenBefore(_ context.Context, workerID string, before time.Time) ([]attendance.Attendance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.filter(func(a attendance.Attendance) bool {
		return a.WorkerID == workerID &&
			a.CheckOut == nil &&
			a.CheckIn.Before(before) &&
			a.Status != attendance.StatusMissingCheckout &&
			a.Status != attendance.StatusAbsent
	}), nil
}

func (r *attendanceRepository) ListInRange(_ context.Context, workerID string, start, end time.Time) ([]attendance.Attendance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.filter(func(a attendance.Attendance) bool {
		return a.WorkerID == workerID && inRange(a.CheckIn, start, end)
	}), nil
}

func (r *attendanceRepository) ListPage(_ context.Context, query attendance.PageQuery) ([]attendance.Attendance, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	found := r.filter(func(a attendance.Attendance) bool {
		return (query.WorkerID == "" || a.WorkerID == query.WorkerID) && inRange(a.CheckIn, query.Start, query.End)
	})
	total := int64(len(found))

	if query.Offset >= len(found) {
		return []attendance.Attendance{}, total, nil
	}
	end := len(found)
	if query.Limit > 0 && query.Offset+query.Limit < end {
		end = query.Offset + query.Limit
	}
	return found[query.Offset:end], total, nil
}

func (r *attendanceRepository) CloseSession(ctx context.Context, att attendance.Attendance) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.attendances[att.ID]
	if !ok || current.CheckOut != nil {
		return attendance.ErrNoActiveSession
	}

	current.CheckOut = att.CheckOut
	current.DurationHours = att.DurationHours
	current.Status = att.Status
	current.UpdatedAt = s.clock.Now()
	s.putAttendance(ctx, cloneAttendance(current))
	return nil
}

func (r *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.attendances[att.ID]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}

	current.CheckIn = att.CheckIn.UTC()
	current.CheckOut = att.CheckOut
	current.DurationHours = att.DurationHours
	current.IsLate = att.IsLate
	current.Status = att.Status
	current.Notes = att.Notes
	current.UpdatedAt = s.clock.Now()
	s.putAttendance(ctx, cloneAttendance(current))
	return nil
}

func (r *attendanceRepository) UpdateStatus(ctx context.Context, id string, status attendance.Status, notes *string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.attendances[id]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}

	current.Status = status
	if notes != nil {
		current.Notes = notes
	}
	current.UpdatedAt = s.clock.Now()
	s.putAttendance(ctx, cloneAttendance(current))
	return nil
}
