// AngelaMos | 2026
// presence.go

package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event names shared with realtime clients.
const (
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventContentUpdate = "content-update"
	EventUserPresence  = "user-presence"
)

type Event struct {
	Name    string    `json:"event"`
	Room    string    `json:"room,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// RedisPublisher fans events out over a redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal presence event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish presence event: %w", err)
	}

	return nil
}

// ContentRoom is the room every content-update event is addressed to.
func ContentRoom(contentID string) string {
	return "content:" + contentID
}
