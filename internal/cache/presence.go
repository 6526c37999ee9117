package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store mirrors presence into Redis and carries the pub/sub channel used for
// cross-instance room fan-out.
// Keys used:
// - <prefix>:presence:<userID> -> json {is_online,last_seen}
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

func (s *Store) broadcastChannel() string {
	return s.prefix + ":rooms"
}

func (s *Store) SetPresence(ctx context.Context, userID string, online bool, ttl time.Duration) error {
	b, _ := json.Marshal(map[string]any{"is_online": online, "last_seen": time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), b, ttl).Err()
}

// IsOnline reports liveness from the mirror. A missing key reads as offline.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var v struct {
		IsOnline bool `json:"is_online"`
	}
	_ = json.Unmarshal(b, &v)
	return v.IsOnline, nil
}

func (s *Store) PublishBroadcast(ctx context.Context, payload []byte) error {
	return s.client.Publish(ctx, s.broadcastChannel(), payload).Err()
}

func (s *Store) SubscribeBroadcast(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, s.broadcastChannel())
}
