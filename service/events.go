// file: service/events.go

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"jobagent-api/logger"
	"jobagent-api/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// IStreamClient defines the slice of the redis client the publisher needs.
// This abstraction decouples the service from a concrete Redis connection,
// enabling easier testing.
type IStreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// IEventPublisher defines the contract for emitting audit events.
type IEventPublisher interface {
	Publish(ctx context.Context, event *model.AuditEvent) error
}

// RedisEventPublisher appends audit events to a Redis stream, from which the
// audit worker consumes them with a consumer group.
type RedisEventPublisher struct {
	client IStreamClient
	stream string
}

// NewRedisEventPublisher creates a publisher writing to the given stream.
func NewRedisEventPublisher(client IStreamClient, stream string) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, stream: stream}
}

// Publish appends one event to the stream.
func (p *RedisEventPublisher) Publish(ctx context.Context, event *model.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append audit event to stream: %w", err)
	}
	return nil
}

// emitEvent publishes asynchronously. The OAuth operations never wait on the
// broker: a publish failure is logged and otherwise ignored.
func emitEvent(publisher IEventPublisher, event *model.AuditEvent) {
	if publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := publisher.Publish(ctx, event); err != nil {
			logger.Log.WithError(err).WithField("event_type", event.Type).Warn("Failed to publish audit event")
		}
	}()
}
