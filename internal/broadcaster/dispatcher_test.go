package broadcaster

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readEnvelope(t *testing.T, connection *Connection) map[string]any {
	t.Helper()

	select {
	case payload := <-connection.Outbound():
		var envelope map[string]any
		require.NoError(t, json.Unmarshal(payload, &envelope))

		return envelope
	default:
		t.Fatal("expected a queued message")

		return nil
	}
}

func TestDispatcher_Send(t *testing.T) {
	t.Run("no connections is a no-op", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)

		assert.NotPanics(t, func() {
			assert.Equal(t, 0, dispatcher.Send("nobody", NewPongMessage()))
		})
		assert.False(t, registry.IsOnline("nobody"))
	})

	t.Run("delivers to every connection of the identity", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		first := NewConnection("user-1", 4)
		second := NewConnection("user-1", 4)
		other := NewConnection("user-2", 4)
		registry.Register(first)
		registry.Register(second)
		registry.Register(other)

		delivered := dispatcher.Send("user-1", NewPongMessage())

		assert.Equal(t, 2, delivered)
		assert.Equal(t, "pong", readEnvelope(t, first)["type"])
		assert.Equal(t, "pong", readEnvelope(t, second)["type"])
		assert.Len(t, other.Outbound(), 0)
	})

	t.Run("dead connection is pruned", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		live := NewConnection("user-1", 4)
		dead := NewConnection("user-1", 4)
		registry.Register(live)
		registry.Register(dead)
		dead.Close()

		delivered := dispatcher.Send("user-1", NewPongMessage())

		assert.Equal(t, 1, delivered)
		assert.Equal(t, "pong", readEnvelope(t, live)["type"])

		remaining := registry.ConnectionsOf("user-1")
		require.Len(t, remaining, 1)
		assert.Equal(t, live.Id, remaining[0].Id)

		assert.Equal(t, 1, dispatcher.Send("user-1", NewPongMessage()))
	})

	t.Run("slow connection is pruned instead of blocking", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		slow := NewConnection("user-1", 1)
		registry.Register(slow)

		assert.Equal(t, 1, dispatcher.Send("user-1", NewPongMessage()))
		assert.Equal(t, 0, dispatcher.Send("user-1", NewPongMessage()))

		assert.False(t, registry.IsOnline("user-1"))
		assert.True(t, isClosed(slow))
	})

	t.Run("pruning the last connection emits offline", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		dead := NewConnection("user-1", 1)
		registry.Register(dead)
		dead.Close()

		dispatcher.Send("user-1", NewPongMessage())

		transitions := drainTransitions(registry)
		require.Len(t, transitions, 2)
		assert.Equal(t, StatusOffline, transitions[1].Status)
	})
}

func TestDeliveryError(t *testing.T) {
	err := DeliveryError{ConnectionId: "c1", UserId: "u1", Cause: ErrConnectionClosed}

	assert.True(t, errors.Is(err, ErrConnectionClosed))
	assert.Contains(t, err.Error(), "c1")
}
