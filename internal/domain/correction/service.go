package correction

import (
	"context"
)

// CorrectionService is the submit/approve/reject state machine.
// Callers are expected to have authorized approvers already.
type CorrectionService interface {
	Submit(ctx context.Context, req SubmitRequest) (CorrectionResponse, error)
	Approve(ctx context.Context, req ApproveRequest) (ApprovalResponse, error)
	Reject(ctx context.Context, req RejectRequest) (CorrectionResponse, error)
	Get(ctx context.Context, id string) (CorrectionResponse, error)
	ListMine(ctx context.Context, workerID string, filter CorrectionFilter) (ListCorrectionResponse, error)
	List(ctx context.Context, filter CorrectionFilter) (ListCorrectionResponse, error)
}
