package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danmuck/scoreboard/internal/score"
	"github.com/redis/go-redis/v9"
)

const (
	SinkRedis           = "redis"
	DefaultRedisChannel = "scoreboard_updates"
	relaySource         = "device"
)

// RedisPublisher is the part of *redis.Client the relay sink uses.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RelayMessage is what dashboards subscribed to the channel receive.
type RelayMessage struct {
	DeviceID string `json:"device_id"`
	A        int    `json:"score_A"`
	B        int    `json:"score_B"`
	Source   string `json:"source"`
}

// RedisSink relays device-originated scores over Redis pub/sub.
type RedisSink struct {
	client   RedisPublisher
	channel  string
	deviceID string
}

func NewRedisSink(client RedisPublisher, channel, deviceID string) (*RedisSink, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceID
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{client: client, channel: channel, deviceID: deviceID}, nil
}

func (s *RedisSink) Name() string {
	return SinkRedis
}

func (s *RedisSink) Channel() string {
	return s.channel
}

func (s *RedisSink) Message(snap score.Snapshot) RelayMessage {
	return RelayMessage{DeviceID: s.deviceID, A: snap.A, B: snap.B, Source: relaySource}
}

func (s *RedisSink) Publish(ctx context.Context, snap score.Snapshot) error {
	data, err := json.Marshal(s.Message(snap))
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish: redis channel=%s: %w", s.channel, err)
	}
	return nil
}
