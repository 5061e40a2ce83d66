package attendance

import (
	"sync"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
)

type todayEntry struct {
	day        string
	attendance *attendance.Attendance
}

// todayCache holds at most one civil day per worker. An entry for an older
// day is treated as a miss, so entries expire at the day boundary.
type todayCache struct {
	mu      sync.RWMutex
	entries map[string]todayEntry
}

func NewTodayCache() attendance.TodayCache {
	return &todayCache{entries: make(map[string]todayEntry)}
}

func copyAttendance(att *attendance.Attendance) *attendance.Attendance {
	if att == nil {
		return nil
	}
	c := *att
	if att.CheckOut != nil {
		out := *att.CheckOut
		c.CheckOut = &out
	}
	if att.DurationHours != nil {
		d := *att.DurationHours
		c.DurationHours = &d
	}
	if att.Notes != nil {
		n := *att.Notes
		c.Notes = &n
	}
	return &c
}

// Get returns the cached record. A hit may carry a nil record, meaning the
// worker has none today.
func (c *todayCache) Get(workerID, day string) (*attendance.Attendance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[workerID]
	if !ok || entry.day != day {
		return nil, false
	}
	return copyAttendance(entry.attendance), true
}

func (c *todayCache) Set(workerID, day string, att *attendance.Attendance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[workerID] = todayEntry{day: day, attendance: copyAttendance(att)}
}

func (c *todayCache) Invalidate(workerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, workerID)
}
