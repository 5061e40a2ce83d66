package notification

import "errors"

var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrNoTopics         = errors.New("event has no topics")
	ErrStopped          = errors.New("event publisher is stopped")
)
