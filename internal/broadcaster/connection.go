package broadcaster

import (
	"context"
	"errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("connection send buffer full")
)

const DefaultSendBufferSize = 64

// Connection is the registry-side handle of one live transport. The session that
// accepted the transport owns it and drains Outbound; everybody else only Delivers.
type Connection struct {
	Id         string
	UserId     string
	CreateTime time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(userId string, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBufferSize
	}

	return &Connection{
		Id:         gonanoid.Must(),
		UserId:     userId,
		CreateTime: time.Now(),
		send:       make(chan []byte, bufferSize),
		done:       make(chan struct{}),
	}
}

// Deliver queues payload without blocking.
func (c *Connection) Deliver(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Connection) Outbound() <-chan []byte {
	return c.send
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

type contextKey string

const connectionKey contextKey = "connection"

func WithConnection(ctx context.Context, conn *Connection) context.Context {
	return context.WithValue(ctx, connectionKey, conn)
}

func ConnectionFromContext(ctx context.Context) (*Connection, bool) {
	conn, ok := ctx.Value(connectionKey).(*Connection)

	return conn, ok
}
