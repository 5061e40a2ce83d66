package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
)

type correctionRepository struct {
	store *Store
}

func cloneCorrection(r correction.Request) correction.Request {
	clonePtr := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	r.AttendanceID = clonePtr(r.AttendanceID)
	r.OriginalTime = clonePtr(r.OriginalTime)
	r.ApproverID = clonePtr(r.ApproverID)
	r.Remarks = clonePtr(r.Remarks)
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		r.ApprovedAt = &at
	}
	return r
}

func (r *correctionRepository) Create(ctx context.Context, req correction.Request) (correction.Request, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.corrections {
		if existing.WorkerID == req.WorkerID &&
			existing.TargetDay == req.TargetDay &&
			existing.Status != correction.StatusRejected {
			return correction.Request{}, correction.ErrDuplicateRequest
		}
	}

	if req.ID == "" {
		id, err := newID()
		if err != nil {
			return correction.Request{}, err
		}
		req.ID = id
	}
	if req.Status == "" {
		req.Status = correction.StatusPending
	}
	now := s.clock.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	s.putCorrection(ctx, cloneCorrection(req))
	return cloneCorrection(req), nil
}

func (r *correctionRepository) GetByID(_ context.Context, id string) (correction.Request, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.corrections[id]
	if !ok {
		return correction.Request{}, correction.ErrCorrectionNotFound
	}
	return cloneCorrection(req), nil
}

// GetByIDForUpdate relies on WithinTx serializing transactions.
func (r *correctionRepository) GetByIDForUpdate(ctx context.Context, id string) (correction.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *correctionRepository) GetActiveByWorkerAndDay(_ context.Context, workerID, day string) (*correction.Request, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.corrections {
		if existing.WorkerID == workerID &&
			existing.TargetDay == day &&
			existing.Status != correction.StatusRejected {
			found := cloneCorrection(existing)
			return &found, nil
		}
	}
	return nil, nil
}

func (r *correctionRepository) List(_ context.Context, filter correction.CorrectionFilter) ([]correction.Request, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []correction.Request
	for _, req := range s.corrections {
		if filter.WorkerID != nil && *filter.WorkerID != "" && req.WorkerID != *filter.WorkerID {
			continue
		}
		if filter.Status != nil && *filter.Status != "" && string(req.Status) != *filter.Status {
			continue
		}
		matched = append(matched, cloneCorrection(req))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], total, nil
}

func (r *correctionRepository) Decide(ctx context.Context, req correction.Request) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.corrections[req.ID]
	if !ok || current.Status != correction.StatusPending {
		return correction.ErrCorrectionNotFound
	}

	current.Status = req.Status
	if req.AttendanceID != nil {
		current.AttendanceID = req.AttendanceID
	}
	current.ApproverID = req.ApproverID
	current.ApprovedAt = req.ApprovedAt
	current.Remarks = req.Remarks
	current.UpdatedAt = s.clock.Now()
	s.putCorrection(ctx, cloneCorrection(current))
	return nil
}
