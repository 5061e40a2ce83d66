package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	id, worker_id, to_char(work_date, 'YYYY-MM-DD'), check_in, check_out,
	duration_hours, is_late, status, notes, created_at, updated_at`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var (
		att    attendance.Attendance
		status string
	)
	err := row.Scan(
		&att.ID, &att.WorkerID, &att.WorkDate, &att.CheckIn, &att.CheckOut,
		&att.DurationHours, &att.IsLate, &status, &att.Notes, &att.CreatedAt, &att.UpdatedAt,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}
	att.Status, err = attendance.ParseStatus(status)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("attendance %s: %w", att.ID, err)
	}
	att.CheckIn = att.CheckIn.UTC()
	if att.CheckOut != nil {
		out := att.CheckOut.UTC()
		att.CheckOut = &out
	}
	return att, nil
}

func (a *attendanceRepository) queryList(ctx context.Context, query string, args ...interface{}) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, nil
}

func (a *attendanceRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	att, err := scanAttendance(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	if newAttendance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to generate attendance id: %w", err)
		}
		newAttendance.ID = id.String()
	}

	query := `
		INSERT INTO attendances (
			id, worker_id, work_date, check_in, check_out,
			duration_hours, is_late, status, notes
		) VALUES (
			$1, $2, $3::date, $4, $5, $6, $7, $8, $9
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newAttendance.ID,
		newAttendance.WorkerID,
		newAttendance.WorkDate,
		newAttendance.CheckIn,
		newAttendance.CheckOut,
		newAttendance.DurationHours,
		newAttendance.IsLate,
		string(newAttendance.Status),
		newAttendance.Notes,
	).Scan(&newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Attendance{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	att, err := a.queryOne(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE id = $1`, id)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}
	if att == nil {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return *att, nil
}

// GetLatestInRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetLatestInRange(ctx context.Context, workerID string, start, end time.Time) (*attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE worker_id = $1
		  AND check_in >= $2
		  AND check_in < $3
		ORDER BY check_in DESC
		LIMIT 1
	`
	att, err := a.queryOne(ctx, query, workerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attendance: %w", err)
	}
	return att, nil
}

// GetOpenInRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetOpenInRange(ctx context.Context, workerID string, start, end time.Time) (*attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE worker_id = $1
		  AND check_in >= $2
		  AND check_in < $3
		  AND check_out IS NULL
		ORDER BY check_in DESC
		LIMIT 1
	`
	att, err := a.queryOne(ctx, query, workerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	return att, nil
}

// ListOpenBefore implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListOpenBefore(ctx context.Context, workerID string, before time.Time) ([]attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE worker_id = $1
		  AND check_in < $2
		  AND check_out IS NULL
		  AND status NOT IN ($3, $4)
		ORDER BY check_in ASC
	`
	return a.queryList(ctx, query, workerID, before,
		string(attendance.StatusMissingCheckout), string(attendance.StatusAbsent))
}

// ListInRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListInRange(ctx context.Context, workerID string, start, end time.Time) ([]attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE worker_id = $1
		  AND check_in >= $2
		  AND check_in < $3
		ORDER BY check_in ASC
	`
	return a.queryList(ctx, query, workerID, start, end)
}

// ListPage implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListPage(ctx context.Context, query attendance.PageQuery) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	where := `
		WHERE ($1 = '' OR worker_id = $1)
		  AND check_in >= $2
		  AND check_in < $3
	`

	var total int64
	countQuery := `SELECT COUNT(*) FROM attendances ` + where
	if err := q.QueryRow(ctx, countQuery, query.WorkerID, query.Start, query.End).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	listQuery := `
		SELECT ` + attendanceColumns + `
		FROM attendances
	` + where + `
		ORDER BY check_in ASC, id ASC
		LIMIT $4 OFFSET $5
	`
	records, err := a.queryList(ctx, listQuery, query.WorkerID, query.Start, query.End, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []attendance.Attendance{}
	}

	return records, total, nil
}

// CloseSession implements attendance.AttendanceRepository.
func (a *attendanceRepository) CloseSession(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET check_out = $1,
			duration_hours = $2,
			status = $3,
			updated_at = NOW()
		WHERE id = $4
		  AND check_out IS NULL
	`

	tag, err := q.Exec(ctx, query, att.CheckOut, att.DurationHours, string(att.Status), att.ID)
	if err != nil {
		return fmt.Errorf("failed to close attendance session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrNoActiveSession
	}

	return nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET check_in = $1,
			check_out = $2,
			duration_hours = $3,
			is_late = $4,
			status = $5,
			notes = $6,
			updated_at = NOW()
		WHERE id = $7
	`

	tag, err := q.Exec(ctx, query,
		att.CheckIn, att.CheckOut, att.DurationHours, att.IsLate,
		string(att.Status), att.Notes, att.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// UpdateStatus implements attendance.AttendanceRepository.
func (a *attendanceRepository) UpdateStatus(ctx context.Context, id string, status attendance.Status, notes *string) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendances
		SET status = $1,
			notes = COALESCE($2, notes),
			updated_at = NOW()
		WHERE id = $3
	`

	tag, err := q.Exec(ctx, query, string(status), notes, id)
	if err != nil {
		return fmt.Errorf("failed to update attendance status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
