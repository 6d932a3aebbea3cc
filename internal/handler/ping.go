package handler

import (
	"context"
	"errors"

	"github.com/goevery/realtime/internal/broadcaster"
)

type PingHandlerInterface interface {
	Handle(ctx context.Context) error
}

// PingHandler answers a client ping with a pong to the sender's identity.
type PingHandler struct {
	sender broadcaster.Sender
}

func NewPingHandler(sender broadcaster.Sender) *PingHandler {
	return &PingHandler{
		sender,
	}
}

func (h *PingHandler) Handle(ctx context.Context) error {
	connection, ok := broadcaster.ConnectionFromContext(ctx)
	if !ok {
		return errors.New("connection not found in context")
	}

	h.sender.Send(connection.UserId, broadcaster.NewPongMessage())

	return nil
}
