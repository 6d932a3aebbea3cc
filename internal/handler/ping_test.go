package handler

import (
	"context"
	"testing"

	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingHandler(t *testing.T) {
	sender := &recordingSender{delivered: 1}
	h := NewPingHandler(sender)

	t.Run("answers the calling identity", func(t *testing.T) {
		connection := broadcaster.NewConnection("alice", 1)
		ctx := broadcaster.WithConnection(context.Background(), connection)

		err := h.Handle(ctx)
		require.NoError(t, err)

		sent := sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "alice", sent[0].userId)
		assert.Equal(t, broadcaster.KindPong, sent[0].message.Kind)
	})

	t.Run("requires a connection", func(t *testing.T) {
		err := h.Handle(context.Background())
		assert.Error(t, err)
	})
}
