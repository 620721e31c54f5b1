package services

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectMessageCreated = "warbler.message.created"
	SubjectMessageDeleted = "warbler.message.deleted"
	SubjectUserFollowed   = "warbler.user.followed"
	SubjectMessageLiked   = "warbler.message.liked"
)

type MessageEvent struct {
	MessageID uint      `json:"message_id"`
	UserID    uint      `json:"user_id"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type FollowEvent struct {
	FollowerID uint      `json:"follower_id"`
	FollowedID uint      `json:"followed_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type LikeEvent struct {
	UserID    uint      `json:"user_id"`
	MessageID uint      `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher fans domain events out to other systems. Publishing is
// best effort: failures are logged, never returned to the request.
type EventPublisher interface {
	Publish(subject string, event interface{})
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(string, interface{}) {}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSPublisher(conn *nats.Conn, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger}
}

func (p *NATSPublisher) Publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to encode event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "subject", subject, "error", err)
		return
	}
	p.logger.Debug("Published event", "subject", subject)
}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return NoopPublisher{}
	}
	return p
}
