package ports

import "context"

// EventPublisher is the outbound domain-event publish port. The partition
// key keeps events for one matter ordered on partitioned brokers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}
