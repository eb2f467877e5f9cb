package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ANAVHEOBA/dumzfun/ports"
)

const (
	// TopicLogout carries single-session invalidations.
	TopicLogout = "dumzfun.auth.logout"

	// TopicSessionsInvalidated carries address-wide invalidations.
	TopicSessionsInvalidated = "dumzfun.auth.sessions_invalidated"
)

// LogoutEvent notifies other instances that one session is gone.
type LogoutEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
}

// SessionsInvalidatedEvent notifies other instances that every session of an
// address is gone.
type SessionsInvalidatedEvent struct {
	Address string `json:"address"`
}

// WatermillPublisher implements the EventPublisher port on a Watermill
// publisher (redisstream in production).
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps a Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// NewRedisStreamPublisher builds the production publisher on Redis
// streams, reusing the same client the cache runs on.
func NewRedisStreamPublisher(client redis.UniversalClient, logger watermill.LoggerAdapter) (ports.EventPublisher, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}
	return NewWatermillPublisher(pub), nil
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address, sessionID string) error {
	return p.publish(TopicLogout, LogoutEvent{Address: address, SessionID: sessionID})
}

// PublishSessionsInvalidated publishes an address-wide invalidation event.
func (p *WatermillPublisher) PublishSessionsInvalidated(ctx context.Context, address string) error {
	return p.publish(TopicSessionsInvalidated, SessionsInvalidatedEvent{Address: address})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishLogout(ctx context.Context, address, sessionID string) error {
	return nil
}

func (NopPublisher) PublishSessionsInvalidated(ctx context.Context, address string) error {
	return nil
}
