package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "presence:"
	DefaultTTL = 30 * 24 * time.Hour
)

// PresenceStore mirrors presence edges into Redis so last-seen survives the
// in-memory record and is visible to other gateway nodes.
type PresenceStore struct {
	client redis.UniversalClient
	nodeId string
	ttl    time.Duration
}

func NewPresenceStore(client redis.UniversalClient, nodeId string, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &PresenceStore{
		client: client,
		nodeId: nodeId,
		ttl:    ttl,
	}
}

func Connect(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return client, nil
}

func presenceKey(userId string) string {
	return keyPrefix + userId
}

func (s *PresenceStore) ObservePresence(ctx context.Context, transition broadcaster.Transition) error {
	key := presenceKey(transition.UserId)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"status", string(transition.Status),
		"last_seen", transition.Timestamp.UTC().Format(time.RFC3339Nano),
		"node", s.nodeId,
	)
	pipe.Expire(ctx, key, s.ttl)

	_, err := pipe.Exec(ctx)

	return err
}

func (s *PresenceStore) LastSeen(ctx context.Context, userId string) (time.Time, bool, error) {
	value, err := s.client.HGet(ctx, presenceKey(userId), "last_seen").Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	lastSeen, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, err
	}

	return lastSeen, true, nil
}
