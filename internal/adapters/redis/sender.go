// Package redis delivers batches to a Redis list and announces them on a
// pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// DefaultPrefix namespaces list and channel names.
const DefaultPrefix = "logjam"

// Client is the subset of redis.Cmdable the sender uses.
// *redis.Client, *redis.ClusterClient and *redis.Ring satisfy it.
type Client interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Notification is published after a batch has been pushed.
type Notification struct {
	Key    string `json:"key"`
	List   string `json:"list"`
	Count  int    `json:"count"`
	Length int64  `json:"length"`
}

// Sender implements ports.Sender on top of a Redis list.
type Sender struct {
	client Client
	prefix string
	logger ports.Logger
}

// NewSender creates a Redis sender. An empty prefix uses DefaultPrefix.
func NewSender(client Client, prefix string, logger ports.Logger) *Sender {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = ports.NewNoopLogger()
	}
	return &Sender{client: client, prefix: prefix, logger: logger}
}

// ListName returns the list a key's batches are pushed to.
func (s *Sender) ListName(k domain.Key) string {
	return s.prefix + ":" + string(k)
}

// Channel returns the notification channel.
func (s *Sender) Channel() string {
	return s.prefix + ":events"
}

// Send pushes the batch onto the key's list, one element per event when the
// payload is an event slice and a single element otherwise, then publishes a
// Notification. A failed publish does not fail the send.
func (s *Sender) Send(ctx context.Context, batch ports.Batch) (ports.Response, error) {
	values, err := encode(batch)
	if err != nil {
		return ports.Response{}, err
	}
	if len(values) == 0 {
		return ports.Response{Success: true, Body: int64(0)}, nil
	}

	list := s.ListName(batch.Key)
	length, err := s.client.RPush(ctx, list, values...).Result()
	if err != nil {
		return ports.Response{}, fmt.Errorf("rpush %s: %w", list, err)
	}

	note, _ := json.Marshal(Notification{
		Key:    string(batch.Key),
		List:   list,
		Count:  len(values),
		Length: length,
	})
	if err := s.client.Publish(ctx, s.Channel(), note).Err(); err != nil {
		s.logger.Warn("publish notification failed",
			ports.String("channel", s.Channel()),
			ports.Err(err),
		)
	}
	return ports.Response{Success: true, Body: length}, nil
}

func encode(batch ports.Batch) ([]interface{}, error) {
	payload := batch.Payload
	if payload == nil {
		payload = batch.Events
	}

	if events, ok := payload.([]domain.Event); ok {
		values := make([]interface{}, 0, len(events))
		for _, e := range events {
			b, err := json.Marshal(e)
			if err != nil {
				return nil, fmt.Errorf("marshal event %s: %w", e.ID, err)
			}
			values = append(values, b)
		}
		return values, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return []interface{}{b}, nil
}
