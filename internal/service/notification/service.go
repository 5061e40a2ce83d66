package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/google/uuid"
)

type service struct {
	hub     *sse.Hub
	clock   clock.Clock
	stopped atomic.Bool
}

// NewNotificationService streams attendance events over hub.
func NewNotificationService(hub *sse.Hub, clk clock.Clock) notification.Service {
	if clk == nil {
		clk = clock.System()
	}
	return &service{hub: hub, clock: clk}
}

func isKnownType(t notification.EventType) bool {
	for _, known := range notification.AllEventTypes() {
		if known == t {
			return true
		}
	}
	return false
}

// Publish implements notification.Publisher.
func (s *service) Publish(ctx context.Context, event notification.Event) error {
	if s.stopped.Load() {
		return notification.ErrStopped
	}
	if !isKnownType(event.Type) {
		return fmt.Errorf("%w: %q", notification.ErrInvalidEventType, event.Type)
	}
	if len(event.Topics) == 0 {
		return notification.ErrNoTopics
	}

	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate event id: %w", err)
		}
		event.ID = id.String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now()
	}

	delivered := s.hub.Publish(sse.Event{
		Event: string(event.Type),
		Data:  notification.NewEventResponse(event),
	}, event.Topics...)

	slog.DebugContext(ctx, "event published",
		"type", event.Type,
		"worker_id", event.WorkerID,
		"subscribers", delivered,
	)
	return nil
}

// Subscribe creates an SSE subscription for the given topics
func (s *service) Subscribe(ctx context.Context, topics ...string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(topics...)

	out := make(chan notification.SSEEvent, 16)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				resp, ok := event.Data.(notification.EventResponse)
				if !ok {
					continue
				}
				select {
				case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop closes every subscription and rejects later publishes.
func (s *service) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	s.hub.Close()
	slog.Info("notification service stopped")
}
