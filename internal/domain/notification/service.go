package notification

import (
	"context"
)

// Publisher announces attendance events. Callers log and drop its errors;
// a failed publish never fails the operation that triggered it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Service is the event stream used by the HTTP layer.
type Service interface {
	Publisher

	// Subscribe streams events for the given topics until cancel is called.
	Subscribe(ctx context.Context, topics ...string) (<-chan SSEEvent, func())

	// Stop closes every subscription.
	Stop()
}
