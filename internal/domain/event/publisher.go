package event

import "context"

// Publisher delivers drained events to other services. Implementations live in
// infrastructure; consumers must treat events as idempotent by user id and timestamp.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher discards events. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
