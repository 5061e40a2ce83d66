package notification

import (
	"time"
)

// EventResponse is the JSON payload of a streamed event.
type EventResponse struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	WorkerID  string                 `json:"worker_id"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func NewEventResponse(e Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Type:      e.Type,
		WorkerID:  e.WorkerID,
		Message:   e.Message,
		Data:      e.Data,
		CreatedAt: e.CreatedAt,
	}
}

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string        `json:"event"`
	Data  EventResponse `json:"data"`
}

// SSETokenResponse carries a short-lived token for the event stream.
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
