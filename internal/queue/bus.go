package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("queue: bus closed")

// Publisher sends a notification to every current subscriber.
type Publisher interface {
	Publish(ctx context.Context, msg TableUpdated) error
}

// Subscription is one exclusive delivery stream.  Messages is closed when
// the subscription ends, either through Close or because the underlying
// connection went away.
type Subscription interface {
	Messages() <-chan TableUpdated
	Close() error
}

// Bus is a fanout publish/subscribe channel.  Every Publish reaches every
// Subscription open at that moment; there is no routing or partitioning.
type Bus interface {
	Publisher
	Subscribe(ctx context.Context) (Subscription, error)
	Close() error
}
