// file: consumer/audit_consumer.go

package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"jobagent-api/logger"
	"jobagent-api/model"
	"jobagent-api/repository"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IStreamConsumer defines the slice of the redis client the consumer needs.
type IStreamConsumer interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// AuditConsumer drains authorization lifecycle events from the audit stream
// and persists them append-only. Delivery is at-least-once: an event is acked
// only after a successful write. Malformed entries and entries the store
// rejects are acked too, so poison messages are dropped instead of retried
// forever. The consumer is a best-effort observability sink; it never feeds
// back into the OAuth flow.
type AuditConsumer struct {
	client IStreamConsumer
	repo   repository.IAuditRepository
	stream string
	group  string
	name   string
}

// NewAuditConsumer creates a new AuditConsumer.
func NewAuditConsumer(client IStreamConsumer, repo repository.IAuditRepository, stream, group, name string) *AuditConsumer {
	return &AuditConsumer{
		client: client,
		repo:   repo,
		stream: stream,
		group:  group,
		name:   name,
	}
}

// Run consumes until the context is cancelled. The consumer group is created
// on entry if it does not exist yet.
func (c *AuditConsumer) Run(ctx context.Context) error {
	log := logger.Log.WithFields(logrus.Fields{
		"stream": c.stream,
		"group":  c.group,
	})

	if err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err(); err != nil && !isBusyGroup(err) {
		log.WithError(err).Error("Failed to create audit consumer group")
		return err
	}

	log.Info("Audit consumer started")
	for {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				log.Info("Audit consumer draining and shutting down")
				return nil
			}
			if errors.Is(err, redis.Nil) {
				continue // Block timeout, nothing pending.
			}
			log.WithError(err).Error("Failed to read from audit stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.handleMessage(ctx, message)
			}
		}
	}
}

// handleMessage persists one stream entry and acknowledges it. Entries that
// cannot be decoded or written are acknowledged anyway and dropped.
func (c *AuditConsumer) handleMessage(ctx context.Context, message redis.XMessage) {
	log := logger.Log.WithField("message_id", message.ID)

	event, err := decodeEvent(message)
	if err != nil {
		log.WithError(err).Warn("Dropping malformed audit event")
		c.ack(ctx, message.ID)
		return
	}

	if err := c.repo.Insert(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type).Warn("Dropping audit event after failed write")
		c.ack(ctx, message.ID)
		return
	}

	c.ack(ctx, message.ID)
}

func (c *AuditConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		logger.Log.WithError(err).WithField("message_id", id).Error("Failed to ack audit event")
	}
}

func decodeEvent(message redis.XMessage) (*model.AuditEvent, error) {
	raw, ok := message.Values["payload"]
	if !ok {
		return nil, errors.New("missing payload field")
	}
	payload, ok := raw.(string)
	if !ok {
		return nil, errors.New("payload is not a string")
	}

	var event model.AuditEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" || event.UserID == "" {
		return nil, errors.New("event is missing type or user id")
	}
	return &event, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}
