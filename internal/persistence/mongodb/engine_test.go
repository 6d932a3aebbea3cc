package mongodb

import (
	"testing"
	"time"

	"github.com/goevery/realtime/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func indexOptions(t *testing.T, model mongo.IndexModel) *options.IndexOptions {
	t.Helper()

	opts := &options.IndexOptions{}
	if model.Options == nil {
		return opts
	}

	for _, setter := range model.Options.List() {
		require.NoError(t, setter(opts))
	}

	return opts
}

func TestIndexModels_KeepsNotificationsByDefault(t *testing.T) {
	models := indexModels(0)

	require.Len(t, models, 2)

	for _, model := range models {
		assert.Nil(t, indexOptions(t, model).ExpireAfterSeconds)
	}

	assert.Equal(t, bson.D{{Key: "id", Value: 1}}, models[0].Keys)
	assert.True(t, *indexOptions(t, models[0]).Unique)

	assert.Equal(t, bson.D{
		{Key: "recipient_id", Value: 1},
		{Key: "read", Value: 1},
		{Key: "created_at", Value: -1},
	}, models[1].Keys)
}

func TestIndexModels_RetentionAddsTTLIndex(t *testing.T) {
	models := indexModels(30 * 24 * time.Hour)

	require.Len(t, models, 3)

	ttl := models[2]
	assert.Equal(t, bson.D{{Key: "created_at", Value: 1}}, ttl.Keys)

	expireAfterSeconds := indexOptions(t, ttl).ExpireAfterSeconds
	require.NotNil(t, expireAfterSeconds)
	assert.Equal(t, int32(30*24*60*60), *expireAfterSeconds)
}

func TestWithSender(t *testing.T) {
	image := "https://cdn.example.com/alice.png"
	senders := map[string]User{
		"alice": {Id: "alice", Username: "alice", FullName: "Alice Liddell", ProfileImageUrl: &image},
	}

	t.Run("known sender", func(t *testing.T) {
		record := withSender(persistence.Notification{Id: "n1", SenderId: "alice"}, senders)

		assert.Equal(t, "alice", record.SenderUsername)
		assert.Equal(t, "Alice Liddell", record.SenderFullName)
		require.NotNil(t, record.SenderProfileImage)
		assert.Equal(t, image, *record.SenderProfileImage)
	})

	t.Run("missing sender", func(t *testing.T) {
		record := withSender(persistence.Notification{Id: "n2", SenderId: "ghost"}, senders)

		assert.Equal(t, persistence.UnknownSender, record.SenderUsername)
		assert.Equal(t, persistence.UnknownSender, record.SenderFullName)
		assert.Nil(t, record.SenderProfileImage)
	})

	t.Run("system notification", func(t *testing.T) {
		record := withSender(persistence.Notification{Id: "n3"}, senders)

		assert.Empty(t, record.SenderUsername)
		assert.Empty(t, record.SenderFullName)
	})
}
