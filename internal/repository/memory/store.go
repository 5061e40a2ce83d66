// Package memory is a process-local store with the same uniqueness and
// conditional-update guarantees as the PostgreSQL repositories. It backs
// STORE_TYPE=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type txKey struct{}

// txState collects undo steps for writes made inside WithinTx.
type txState struct {
	undo []func()
}

type Store struct {
	clock clock.Clock

	// txMu serializes transactions, standing in for row locks.
	txMu sync.Mutex

	mu          sync.Mutex
	attendances map[string]attendance.Attendance
	corrections map[string]correction.Request
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.System()
	}
	return &Store{
		clock:       clk,
		attendances: make(map[string]attendance.Attendance),
		corrections: make(map[string]correction.Request),
	}
}

var _ database.TxManager = (*Store)(nil)

// WithinTx implements database.TxManager. Writes made through ctx are undone
// when fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	state := &txState{}
	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		s.mu.Lock()
		for i := len(state.undo) - 1; i >= 0; i-- {
			state.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// AttendanceRepository returns the attendance view of the store.
func (s *Store) AttendanceRepository() attendance.AttendanceRepository {
	return &attendanceRepository{store: s}
}

// CorrectionRepository returns the correction view of the store.
func (s *Store) CorrectionRepository() correction.CorrectionRepository {
	return &correctionRepository{store: s}
}

// recordUndo must be called with s.mu held.
func (s *Store) recordUndo(ctx context.Context, undo func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.undo = append(state.undo, undo)
	}
}

func (s *Store) putAttendance(ctx context.Context, att attendance.Attendance) {
	prev, existed := s.attendances[att.ID]
	s.attendances[att.ID] = att
	s.recordUndo(ctx, func() {
		if existed {
			s.attendances[att.ID] = prev
		} else {
			delete(s.attendances, att.ID)
		}
	})
}

func (s *Store) putCorrection(ctx context.Context, req correction.Request) {
	prev, existed := s.corrections[req.ID]
	s.corrections[req.ID] = req
	s.recordUndo(ctx, func() {
		if existed {
			s.corrections[req.ID] = prev
		} else {
			delete(s.corrections, req.ID)
		}
	})
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
