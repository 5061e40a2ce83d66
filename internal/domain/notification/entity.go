package notification

import (
	"time"
)

// EventType names an attendance lifecycle event.
type EventType string

const (
	TypeCheckIn             EventType = "attendance_check_in"
	TypeCheckOut            EventType = "attendance_check_out"
	TypeMissingCheckout     EventType = "attendance_missing_checkout"
	TypeCorrectionSubmitted EventType = "correction_submitted"
	TypeCorrectionApproved  EventType = "correction_approved"
	TypeCorrectionRejected  EventType = "correction_rejected"
)

// AllEventTypes returns all available event types
func AllEventTypes() []EventType {
	return []EventType{
		TypeCheckIn,
		TypeCheckOut,
		TypeMissingCheckout,
		TypeCorrectionSubmitted,
		TypeCorrectionApproved,
		TypeCorrectionRejected,
	}
}

// TopicApprovers receives events every approver should see.
const TopicApprovers = "approvers"

// Event is one message on the in-process event stream.
type Event struct {
	ID       string
	Type     EventType
	WorkerID string
	// Topics are the subscriber keys the event fans out to, e.g. a worker ID
	// or TopicApprovers.
	Topics    []string
	Message   string
	Data      map[string]interface{}
	CreatedAt time.Time
}
