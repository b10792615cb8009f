package queue

import (
	"context"
	"fmt"
)

// Publisher publishes change events to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg ChangeEvent) error
	Close() error
}

// MessageHandler handles a consumed change event.
type MessageHandler func(ctx context.Context, msg ChangeEvent) error

// Consumer consumes change events from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

var monitoredCollections = []Collection{
	CollectionOrders,
	CollectionDeliveries,
}

// QueueName returns the change queue for a collection, e.g. changes.orders.
func QueueName(collection Collection) string {
	return fmt.Sprintf("changes.%s", collection)
}

// DLQName returns the dead-letter queue for a collection, e.g. dlq.changes.orders.
func DLQName(collection Collection) string {
	return fmt.Sprintf("dlq.%s", QueueName(collection))
}

// WorkQueueNames returns the change queues for all monitored collections.
func WorkQueueNames() []string {
	queues := make([]string, 0, len(monitoredCollections))
	for _, collection := range monitoredCollections {
		queues = append(queues, QueueName(collection))
	}
	return queues
}

// DLQNames returns all dead-letter queues.
func DLQNames() []string {
	queues := make([]string, 0, len(monitoredCollections))
	for _, collection := range monitoredCollections {
		queues = append(queues, DLQName(collection))
	}
	return queues
}
