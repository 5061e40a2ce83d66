package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(clock.NewFixed(testNow))
}

func TestAttendanceRepository_CreateEnforcesOnePerDay(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().AttendanceRepository()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, attendance.Attendance{
				WorkerID: "w-1",
				WorkDate: "2024-01-10",
				CheckIn:  testNow,
				Status:   attendance.StatusOnTime,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, attendance.ErrAlreadyCheckedIn):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	// Another worker on the same day is unaffected.
	_, err := repo.Create(ctx, attendance.Attendance{WorkerID: "w-2", WorkDate: "2024-01-10", CheckIn: testNow, Status: attendance.StatusOnTime})
	assert.NoError(t, err)
}

func TestAttendanceRepository_RangeQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().AttendanceRepository()

	day1 := time.Date(2024, 1, 9, 1, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)
	first, err := repo.Create(ctx, attendance.Attendance{WorkerID: "w-1", WorkDate: "2024-01-09", CheckIn: day1, Status: attendance.StatusOnTime})
	require.NoError(t, err)
	second, err := repo.Create(ctx, attendance.Attendance{WorkerID: "w-1", WorkDate: "2024-01-10", CheckIn: day2, Status: attendance.StatusLate})
	require.NoError(t, err)

	start := time.Date(2024, 1, 9, 16, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	latest, err := repo.GetLatestInRange(ctx, "w-1", start, end)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	none, err := repo.GetLatestInRange(ctx, "w-1", end, end.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, none)

	open, err := repo.ListOpenBefore(ctx, "w-1", start)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, first.ID, open[0].ID)

	all, err := repo.ListInRange(ctx, "w-1", day1.Add(-time.Hour), end)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, attendance.StatusMissingCheckout, nil))
	open, err = repo.ListOpenBefore(ctx, "w-1", start)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestAttendanceRepository_ListPage(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().AttendanceRepository()

	for i, worker := range []string{"w-1", "w-2", "w-1"} {
		checkIn := testNow.Add(time.Duration(i) * 24 * time.Hour)
		_, err := repo.Create(ctx, attendance.Attendance{
			WorkerID: worker,
			WorkDate: checkIn.Format(time.DateOnly),
			CheckIn:  checkIn,
			Status:   attendance.StatusOnTime,
		})
		require.NoError(t, err)
	}

	window := attendance.PageQuery{Start: testNow, End: testNow.Add(72 * time.Hour), Limit: 2}

	page, total, err := repo.ListPage(ctx, window)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "w-1", page[0].WorkerID)
	assert.Equal(t, "w-2", page[1].WorkerID)

	window.Offset = 2
	page, _, err = repo.ListPage(ctx, window)
	require.NoError(t, err)
	require.Len(t, page, 1)

	window.Offset = 10
	page, total, err = repo.ListPage(ctx, window)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.EqualValues(t, 3, total)

	window = attendance.PageQuery{WorkerID: "w-1", Start: testNow, End: testNow.Add(72 * time.Hour), Limit: 20}
	page, total, err = repo.ListPage(ctx, window)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, page, 2)
}

func TestAttendanceRepository_CloseSessionIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().AttendanceRepository()

	att, err := repo.Create(ctx, attendance.Attendance{WorkerID: "w-1", WorkDate: "2024-01-10", CheckIn: testNow, Status: attendance.StatusOnTime})
	require.NoError(t, err)

	out := testNow.Add(5 * time.Hour)
	hours := 4.0
	att.CheckOut = &out
	att.DurationHours = &hours
	att.Status = attendance.StatusCheckedOut

	require.NoError(t, repo.CloseSession(ctx, att))
	assert.ErrorIs(t, repo.CloseSession(ctx, att), attendance.ErrNoActiveSession)

	stored, err := repo.GetByID(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckedOut, stored.Status)
	assert.True(t, stored.CheckOut.Equal(out))
}

func TestCorrectionRepository_ActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore().CorrectionRepository()

	req := correction.Request{
		WorkerID:      "w-1",
		TargetDay:     "2024-01-09",
		MissingField:  correction.FieldCheckOut,
		RequestedTime: "18:00",
		Reason:        "forgot",
	}
	created, err := repo.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, correction.StatusPending, created.Status)

	_, err = repo.Create(ctx, req)
	assert.ErrorIs(t, err, correction.ErrDuplicateRequest)

	remarks := "no"
	created.Status = correction.StatusRejected
	created.Remarks = &remarks
	require.NoError(t, repo.Decide(ctx, created))

	// Deciding twice never applies.
	assert.ErrorIs(t, repo.Decide(ctx, created), correction.ErrCorrectionNotFound)

	// A rejected request frees the day.
	_, err = repo.Create(ctx, req)
	assert.NoError(t, err)

	items, total, err := repo.List(ctx, correction.CorrectionFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	attendances := store.AttendanceRepository()
	corrections := store.CorrectionRepository()

	att, err := attendances.Create(ctx, attendance.Attendance{WorkerID: "w-1", WorkDate: "2024-01-09", CheckIn: testNow.Add(-24 * time.Hour), Status: attendance.StatusOnTime})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		if err := attendances.UpdateStatus(ctx, att.ID, attendance.StatusAbsent, nil); err != nil {
			return err
		}
		if _, err := corrections.Create(ctx, correction.Request{WorkerID: "w-1", TargetDay: "2024-01-09", MissingField: correction.FieldCheckIn, RequestedTime: "09:00", Reason: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := attendances.GetByID(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnTime, stored.Status)

	active, err := corrections.GetActiveByWorkerAndDay(ctx, "w-1", "2024-01-09")
	require.NoError(t, err)
	assert.Nil(t, active)
}
