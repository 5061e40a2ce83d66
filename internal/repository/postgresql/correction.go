package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type correctionRepository struct {
	db *database.DB
}

const correctionColumns = `
	id, worker_id, attendance_id, to_char(target_day, 'YYYY-MM-DD'), missing_field,
	requested_time, original_time, reason, status, approver_id, approved_at,
	remarks, created_at, updated_at`

func scanCorrection(row pgx.Row) (correction.Request, error) {
	var (
		req          correction.Request
		missingField string
		status       string
	)
	err := row.Scan(
		&req.ID, &req.WorkerID, &req.AttendanceID, &req.TargetDay, &missingField,
		&req.RequestedTime, &req.OriginalTime, &req.Reason, &status, &req.ApproverID, &req.ApprovedAt,
		&req.Remarks, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return correction.Request{}, err
	}
	if req.MissingField, err = correction.ParseMissingField(missingField); err != nil {
		return correction.Request{}, fmt.Errorf("correction %s: %w", req.ID, err)
	}
	if req.Status, err = correction.ParseStatus(status); err != nil {
		return correction.Request{}, fmt.Errorf("correction %s: %w", req.ID, err)
	}
	return req, nil
}

// Create implements correction.CorrectionRepository.
func (c *correctionRepository) Create(ctx context.Context, req correction.Request) (correction.Request, error) {
	q := GetQuerier(ctx, c.db)

	if req.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return correction.Request{}, fmt.Errorf("failed to generate correction id: %w", err)
		}
		req.ID = id.String()
	}
	if req.Status == "" {
		req.Status = correction.StatusPending
	}

	query := `
		INSERT INTO correction_requests (
			id, worker_id, attendance_id, target_day, missing_field,
			requested_time, original_time, reason, status
		) VALUES (
			$1, $2, $3, $4::date, $5, $6, $7, $8, $9
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		req.ID, req.WorkerID, req.AttendanceID, req.TargetDay, string(req.MissingField),
		req.RequestedTime, req.OriginalTime, req.Reason, string(req.Status),
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return correction.Request{}, correction.ErrDuplicateRequest
		}
		return correction.Request{}, fmt.Errorf("failed to create correction request: %w", err)
	}

	return req, nil
}

func (c *correctionRepository) getOne(ctx context.Context, query string, args ...interface{}) (correction.Request, error) {
	q := GetQuerier(ctx, c.db)

	req, err := scanCorrection(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return correction.Request{}, correction.ErrCorrectionNotFound
		}
		return correction.Request{}, fmt.Errorf("failed to get correction request: %w", err)
	}
	return req, nil
}

// GetByID implements correction.CorrectionRepository.
func (c *correctionRepository) GetByID(ctx context.Context, id string) (correction.Request, error) {
	return c.getOne(ctx, `SELECT `+correctionColumns+` FROM correction_requests WHERE id = $1`, id)
}

// GetByIDForUpdate implements correction.CorrectionRepository.
func (c *correctionRepository) GetByIDForUpdate(ctx context.Context, id string) (correction.Request, error) {
	return c.getOne(ctx, `SELECT `+correctionColumns+` FROM correction_requests WHERE id = $1 FOR UPDATE`, id)
}

// GetActiveByWorkerAndDay implements correction.CorrectionRepository.
func (c *correctionRepository) GetActiveByWorkerAndDay(ctx context.Context, workerID, day string) (*correction.Request, error) {
	query := `
		SELECT ` + correctionColumns + `
		FROM correction_requests
		WHERE worker_id = $1
		  AND target_day = $2::date
		  AND status <> $3
		LIMIT 1
	`
	req, err := c.getOne(ctx, query, workerID, day, string(correction.StatusRejected))
	if err != nil {
		if errors.Is(err, correction.ErrCorrectionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// List implements correction.CorrectionRepository.
func (c *correctionRepository) List(ctx context.Context, filter correction.CorrectionFilter) ([]correction.Request, int64, error) {
	q := GetQuerier(ctx, c.db)

	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if filter.WorkerID != nil && *filter.WorkerID != "" {
		baseWhere += fmt.Sprintf(" AND worker_id = $%d", argIdx)
		args = append(args, *filter.WorkerID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM correction_requests WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count correction requests: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM correction_requests
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, correctionColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query correction requests: %w", err)
	}
	defer rows.Close()

	var requests []correction.Request
	for rows.Next() {
		req, err := scanCorrection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan correction request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate correction requests: %w", err)
	}

	return requests, total, nil
}

// Decide implements correction.CorrectionRepository.
func (c *correctionRepository) Decide(ctx context.Context, req correction.Request) error {
	q := GetQuerier(ctx, c.db)

	query := `
		UPDATE correction_requests
		SET status = $1,
			attendance_id = COALESCE($2, attendance_id),
			approver_id = $3,
			approved_at = $4,
			remarks = $5,
			updated_at = NOW()
		WHERE id = $6
		  AND status = $7
	`

	tag, err := q.Exec(ctx, query,
		string(req.Status), req.AttendanceID, req.ApproverID, req.ApprovedAt, req.Remarks,
		req.ID, string(correction.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to decide correction request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return correction.ErrCorrectionNotFound
	}

	return nil
}

func NewCorrectionRepository(db *database.DB) correction.CorrectionRepository {
	return &correctionRepository{db: db}
}
