package broadcaster

import (
	"fmt"

	"go.uber.org/zap"
)

// DeliveryError reports that a message could not be queued on one connection.
// The connection is considered dead once this happens.
type DeliveryError struct {
	ConnectionId string
	UserId       string
	Cause        error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("delivery to connection %s of user %s failed: %v", e.ConnectionId, e.UserId, e.Cause)
}

func (e DeliveryError) Unwrap() error {
	return e.Cause
}

type Sender interface {
	Send(userId string, message Message) int
}

type Dispatcher struct {
	logger   *zap.Logger
	registry Registry
}

func NewDispatcher(
	logger *zap.Logger,
	registry Registry,
) *Dispatcher {
	return &Dispatcher{
		logger,
		registry,
	}
}

// Send queues message on every live connection of userId and returns how many
// accepted it. Connections that fail are pruned; failures never reach the caller.
func (d *Dispatcher) Send(userId string, message Message) int {
	connections := d.registry.ConnectionsOf(userId)
	if len(connections) == 0 {
		return 0
	}

	payload, err := message.Encode()
	if err != nil {
		d.logger.Error("failed to encode outbound message",
			zap.String("userId", userId),
			zap.String("type", string(message.Kind)),
			zap.Error(err))

		return 0
	}

	delivered := 0

	for _, connection := range connections {
		err := connection.Deliver(payload)
		if err != nil {
			d.prune(DeliveryError{
				ConnectionId: connection.Id,
				UserId:       connection.UserId,
				Cause:        err,
			}, connection)

			continue
		}

		delivered++
	}

	return delivered
}

func (d *Dispatcher) prune(deliveryErr DeliveryError, connection *Connection) {
	d.logger.Warn("pruning dead connection",
		zap.String("connectionId", deliveryErr.ConnectionId),
		zap.String("userId", deliveryErr.UserId),
		zap.Error(deliveryErr))

	d.registry.Unregister(connection)
	connection.Close()
}
