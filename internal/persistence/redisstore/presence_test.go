package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestPresenceKey(t *testing.T) {
	assert.Equal(t, "presence:user-1", presenceKey("user-1"))
}

func TestNewPresenceStore_DefaultTTL(t *testing.T) {
	store := NewPresenceStore(nil, "node-1", 0)

	assert.Equal(t, DefaultTTL, store.ttl)
	assert.Equal(t, "node-1", store.nodeId)
}

func TestPresenceStore_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewPresenceStore(client, "node-1", time.Minute)
	ctx := context.Background()

	err := store.ObservePresence(ctx, broadcaster.Transition{
		UserId:    "user-1",
		Status:    broadcaster.StatusOnline,
		Timestamp: time.Now(),
	})
	assert.Error(t, err)

	_, ok, err := store.LastSeen(ctx, "user-1")
	assert.Error(t, err)
	assert.False(t, ok)
}
