package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_Reconcile(t *testing.T) {
	ctx := context.Background()
	loc, err := civilday.ParseOffset("+08:00")
	require.NoError(t, err)
	cal := civilday.NewCalendar(loc)
	repo := memory.NewStore(clock.NewFixed(time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC))).AttendanceRepository()
	r := NewReconciler(repo, cal)

	checkIn, err := cal.Compose("2024-01-09", "09:00")
	require.NoError(t, err)
	stale, err := repo.Create(ctx, attendance.Attendance{WorkerID: "w-1", WorkDate: "2024-01-09", CheckIn: checkIn, Status: attendance.StatusOnTime})
	require.NoError(t, err)

	t.Run("same day is untouched", func(t *testing.T) {
		flagged, err := r.Reconcile(ctx, stale, "2024-01-09")
		require.NoError(t, err)
		assert.False(t, flagged)
	})

	t.Run("previous day is flagged", func(t *testing.T) {
		flagged, err := r.Reconcile(ctx, stale, "2024-01-10")
		require.NoError(t, err)
		assert.True(t, flagged)
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		current, err := repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		flagged, err := r.Reconcile(ctx, current, "2024-01-10")
		require.NoError(t, err)
		assert.False(t, flagged)
		assert.Equal(t, attendance.StatusMissingCheckout, current.Status)
	})

	t.Run("closed sessions are never flagged", func(t *testing.T) {
		out := checkIn.Add(8 * time.Hour)
		closed := stale
		closed.CheckOut = &out
		closed.Status = attendance.StatusCheckedOut
		assert.False(t, r.NeedsFlag(closed, "2024-01-10"))
	})
}
