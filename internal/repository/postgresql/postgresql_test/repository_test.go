package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	ctx := context.Background()

	setup, err := NewTestDatabase(ctx)
	if errors.Is(err, ErrNoTestDatabase) {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}
	require.NoError(t, err)

	require.NoError(t, setup.TruncateAllTables(ctx))
	t.Cleanup(func() {
		_ = setup.TruncateAllTables(context.Background())
		setup.Close()
	})
	return setup
}

func openRecord(workerID, day string, checkIn time.Time) attendance.Attendance {
	return attendance.Attendance{
		WorkerID: workerID,
		WorkDate: day,
		CheckIn:  checkIn,
		Status:   attendance.StatusOnTime,
	}
}

func TestAttendanceRepository_CreateEnforcesOnePerDay(t *testing.T) {
	setup := setupTestDB(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ctx := context.Background()

	checkIn := time.Date(2024, 1, 12, 1, 0, 0, 0, time.UTC) // 09:00 +08:00

	var (
		wg      sync.WaitGroup
		created atomic.Int32
		dupes   atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, openRecord("w-1", "2024-01-12", checkIn))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, attendance.ErrAlreadyCheckedIn):
				dupes.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(9), dupes.Load())
}

func TestAttendanceRepository_RangeQueries(t *testing.T) {
	setup := setupTestDB(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ctx := context.Background()

	dayStart := time.Date(2024, 1, 11, 16, 0, 0, 0, time.UTC) // 2024-01-12 00:00 +08:00
	dayEnd := dayStart.Add(24 * time.Hour)

	prev, err := repo.Create(ctx, openRecord("w-1", "2024-01-11", dayStart.Add(-15*time.Hour)))
	require.NoError(t, err)
	today, err := repo.Create(ctx, openRecord("w-1", "2024-01-12", dayStart.Add(9*time.Hour)))
	require.NoError(t, err)

	got, err := repo.GetLatestInRange(ctx, "w-1", dayStart, dayEnd)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, today.ID, got.ID)
	assert.Equal(t, "2024-01-12", got.WorkDate)

	none, err := repo.GetLatestInRange(ctx, "w-2", dayStart, dayEnd)
	require.NoError(t, err)
	assert.Nil(t, none)

	stale, err := repo.ListOpenBefore(ctx, "w-1", dayStart)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, prev.ID, stale[0].ID)

	all, err := repo.ListInRange(ctx, "w-1", dayStart.Add(-24*time.Hour), dayEnd)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, prev.ID, all[0].ID)

	_, err = repo.GetByID(ctx, "018d0000-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestAttendanceRepository_ListPage(t *testing.T) {
	setup := setupTestDB(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ctx := context.Background()

	dayStart := time.Date(2024, 1, 11, 16, 0, 0, 0, time.UTC) // 2024-01-12 00:00 +08:00
	for i, worker := range []string{"w-1", "w-2", "w-3"} {
		_, err := repo.Create(ctx, openRecord(worker, "2024-01-12", dayStart.Add(time.Duration(9+i)*time.Hour)))
		require.NoError(t, err)
	}

	query := attendance.PageQuery{Start: dayStart, End: dayStart.Add(24 * time.Hour), Limit: 2}
	page, total, err := repo.ListPage(ctx, query)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "w-1", page[0].WorkerID)

	query.Offset = 2
	page, _, err = repo.ListPage(ctx, query)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "w-3", page[0].WorkerID)

	query = attendance.PageQuery{WorkerID: "w-2", Start: dayStart, End: dayStart.Add(24 * time.Hour), Limit: 20}
	page, total, err = repo.ListPage(ctx, query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, page, 1)
}

func TestAttendanceRepository_CloseSessionOnlyOnce(t *testing.T) {
	setup := setupTestDB(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	ctx := context.Background()

	checkIn := time.Date(2024, 1, 12, 1, 0, 0, 0, time.UTC)
	rec, err := repo.Create(ctx, openRecord("w-1", "2024-01-12", checkIn))
	require.NoError(t, err)

	checkOut := checkIn.Add(9 * time.Hour)
	hours := 8.0
	rec.CheckOut = &checkOut
	rec.DurationHours = &hours
	rec.Status = attendance.StatusCheckedOut

	require.NoError(t, repo.CloseSession(ctx, rec))
	assert.ErrorIs(t, repo.CloseSession(ctx, rec), attendance.ErrNoActiveSession)

	stored, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DurationHours)
	assert.InDelta(t, 8.0, *stored.DurationHours, 1e-9)
	assert.Equal(t, attendance.StatusCheckedOut, stored.Status)
	assert.True(t, stored.CheckOut.Equal(checkOut))
}

func TestCorrectionRepository_Lifecycle(t *testing.T) {
	setup := setupTestDB(t)
	repo := postgresql.NewCorrectionRepository(setup.DB)
	tx := postgresql.NewTxManager(setup.DB)
	ctx := context.Background()

	req := correction.Request{
		WorkerID:      "w-1",
		TargetDay:     "2024-01-11",
		MissingField:  correction.FieldCheckOut,
		RequestedTime: "17:00",
		Reason:        "Forgot to check out",
	}
	created, err := repo.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, correction.StatusPending, created.Status)

	_, err = repo.Create(ctx, req)
	assert.ErrorIs(t, err, correction.ErrDuplicateRequest)

	active, err := repo.GetActiveByWorkerAndDay(ctx, "w-1", "2024-01-11")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)

	approver := "u-mgr"
	now := time.Now().UTC()
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := repo.GetByIDForUpdate(ctx, created.ID)
		if err != nil {
			return err
		}
		locked.Status = correction.StatusRejected
		locked.ApproverID = &approver
		locked.ApprovedAt = &now
		return repo.Decide(ctx, locked)
	})
	require.NoError(t, err)

	decided, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, correction.StatusRejected, decided.Status)
	assert.ErrorIs(t, repo.Decide(ctx, decided), correction.ErrCorrectionNotFound)

	// A rejected request frees the day for a new one
	_, err = repo.Create(ctx, req)
	require.NoError(t, err)

	status := string(correction.StatusPending)
	workerID := "w-1"
	list, total, err := repo.List(ctx, correction.CorrectionFilter{WorkerID: &workerID, Status: &status, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}

func TestTxManager_RollsBack(t *testing.T) {
	setup := setupTestDB(t)
	repo := postgresql.NewAttendanceRepository(setup.DB)
	tx := postgresql.NewTxManager(setup.DB)
	ctx := context.Background()

	boom := errors.New("boom")
	checkIn := time.Date(2024, 1, 12, 1, 0, 0, 0, time.UTC)
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, openRecord("w-1", "2024-01-12", checkIn)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetLatestInRange(ctx, "w-1", checkIn.Add(-time.Hour), checkIn.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)
}
