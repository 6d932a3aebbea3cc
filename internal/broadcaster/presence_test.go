package broadcaster

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type socialGraphFunc func(ctx context.Context, userId string) ([]string, error)

func (f socialGraphFunc) GetSocialGraph(ctx context.Context, userId string) ([]string, error) {
	return f(ctx, userId)
}

type recordingObserver struct {
	transitions []Transition
}

func (o *recordingObserver) ObservePresence(_ context.Context, transition Transition) error {
	o.transitions = append(o.transitions, transition)

	return nil
}

func userStatusOf(t *testing.T, connection *Connection) map[string]any {
	t.Helper()

	envelope := readEnvelope(t, connection)
	require.Equal(t, "user_status", envelope["type"])

	return envelope["data"].(map[string]any)
}

func TestPresenceBroadcaster_Announce(t *testing.T) {
	t.Run("all online selector skips the subject", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		broadcaster := NewPresenceBroadcaster(zap.NewNop(), registry, dispatcher, NewAllOnlineSelector(registry))

		alice := NewConnection("alice", 4)
		bob := NewConnection("bob", 4)
		registry.Register(bob)
		registry.Register(alice)

		broadcaster.Announce(context.Background(), Transition{UserId: "alice", Status: StatusOnline, Timestamp: time.Now()})

		data := userStatusOf(t, bob)
		assert.Equal(t, "alice", data["user_id"])
		assert.Equal(t, "online", data["status"])
		assert.Len(t, alice.Outbound(), 0)
	})

	t.Run("social graph selector only reaches related online users", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		graph := socialGraphFunc(func(_ context.Context, userId string) ([]string, error) {
			assert.Equal(t, "alice", userId)

			return []string{"bob", "carol"}, nil
		})
		broadcaster := NewPresenceBroadcaster(zap.NewNop(), registry, dispatcher, NewSocialGraphSelector(registry, graph))

		bob := NewConnection("bob", 4)
		dave := NewConnection("dave", 4)
		registry.Register(bob)
		registry.Register(dave)

		broadcaster.Announce(context.Background(), Transition{UserId: "alice", Status: StatusOffline, Timestamp: time.Now()})

		data := userStatusOf(t, bob)
		assert.Equal(t, "offline", data["status"])
		assert.Len(t, dave.Outbound(), 0)
	})

	t.Run("selector failure drops the event", func(t *testing.T) {
		registry := NewInMemoryRegistry(zap.NewNop())
		dispatcher := NewDispatcher(zap.NewNop(), registry)
		graph := socialGraphFunc(func(_ context.Context, _ string) ([]string, error) {
			return nil, errors.New("store unavailable")
		})
		observer := &recordingObserver{}
		broadcaster := NewPresenceBroadcaster(zap.NewNop(), registry, dispatcher, NewSocialGraphSelector(registry, graph), observer)

		bob := NewConnection("bob", 4)
		registry.Register(bob)

		assert.NotPanics(t, func() {
			broadcaster.Announce(context.Background(), Transition{UserId: "alice", Status: StatusOnline, Timestamp: time.Now()})
		})
		assert.Len(t, bob.Outbound(), 0)
		assert.Len(t, observer.transitions, 1)
	})
}

func TestPresenceBroadcaster_Run(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	dispatcher := NewDispatcher(zap.NewNop(), registry)
	observer := &recordingObserver{}
	broadcaster := NewPresenceBroadcaster(zap.NewNop(), registry, dispatcher, NewAllOnlineSelector(registry), observer)

	bob := NewConnection("bob", 8)
	registry.Register(bob)
	drainTransitions(registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = broadcaster.Run(ctx)
	}()

	first := NewConnection("alice", 8)
	second := NewConnection("alice", 8)
	registry.Register(first)
	registry.Register(second)
	registry.Unregister(second)
	registry.Unregister(first)

	var statuses []string
	deadline := time.After(2 * time.Second)
	for len(statuses) < 2 {
		select {
		case payload := <-bob.Outbound():
			var envelope struct {
				Type string     `json:"type"`
				Data UserStatus `json:"data"`
			}
			require.NoError(t, json.Unmarshal(payload, &envelope))
			assert.Equal(t, "alice", envelope.Data.UserId)
			statuses = append(statuses, string(envelope.Data.Status))
		case <-deadline:
			t.Fatal("timed out waiting for presence events")
		}
	}

	assert.Equal(t, []string{"online", "offline"}, statuses)

	cancel()
	<-done

	assert.Len(t, bob.Outbound(), 0)
	assert.Len(t, observer.transitions, 2)
}
