package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ifcoins/quizroom/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const topicPrefix = "quizroom:room:"

// Topic is the Redis channel carrying snapshots of one room.
func Topic(roomID string) string {
	return topicPrefix + roomID
}

// RoomIDFromTopic is the inverse of Topic.
func RoomIDFromTopic(channel string) (string, bool) {
	if !strings.HasPrefix(channel, topicPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, topicPrefix), true
}

// RedisBus fans room snapshots out to every service instance through Redis pub/sub.
type RedisBus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisBus(rdb *redis.Client, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{rdb: rdb, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, roomID string, snapshot models.RoomSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return b.rdb.Publish(ctx, Topic(roomID), data).Err()
}

// Subscription delivers decoded snapshots on C until Close is called or the
// subscribing context ends.
type Subscription struct {
	C      <-chan models.RoomSnapshot
	pubsub *redis.PubSub
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

// Subscribe listens to a single room. It returns once Redis has confirmed the
// subscription, so nothing published afterwards is missed.
func (b *RedisBus) Subscribe(ctx context.Context, roomID string) (*Subscription, error) {
	return b.listen(ctx, b.rdb.Subscribe(ctx, Topic(roomID)))
}

// SubscribeAll listens to every room topic.
func (b *RedisBus) SubscribeAll(ctx context.Context) (*Subscription, error) {
	return b.listen(ctx, b.rdb.PSubscribe(ctx, topicPrefix+"*"))
}

func (b *RedisBus) listen(ctx context.Context, pubsub *redis.PubSub) (*Subscription, error) {
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan models.RoomSnapshot, 64)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snapshot models.RoomSnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
					b.logger.Warn("dropping undecodable snapshot", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- snapshot:
				case <-ctx.Done():
					pubsub.Close()
					return
				}
			}
		}
	}()
	return &Subscription{C: out, pubsub: pubsub}, nil
}
