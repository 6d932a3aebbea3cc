package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goevery/realtime/internal/handler"
	"github.com/goevery/realtime/internal/ierr"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultSubject       = "greasemonkey.events.>"
	DefaultHandleTimeout = 10 * time.Second

	pendingMessageLimit = 1_000_000
	pendingBytesLimit   = 64 * 1024 * 1024
)

type EventHandler interface {
	HandleEvent(ctx context.Context, event handler.DomainEvent) ([]handler.NotifyResponse, error)
}

// Connect dials NATS with unlimited reconnects so a broker restart does not
// stop event ingress.
func Connect(url string, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
}

// Subscriber feeds domain events published by the CRUD backend into the
// notification producer.
type Subscriber struct {
	logger        *zap.Logger
	conn          *nats.Conn
	subject       string
	queue         string
	handler       EventHandler
	handleTimeout time.Duration
}

func NewSubscriber(
	logger *zap.Logger,
	conn *nats.Conn,
	subject string,
	queue string,
	handler EventHandler,
) *Subscriber {
	if subject == "" {
		subject = DefaultSubject
	}

	return &Subscriber{
		logger:        logger.With(zap.String("subject", subject)),
		conn:          conn,
		subject:       subject,
		queue:         queue,
		handler:       handler,
		handleTimeout: DefaultHandleTimeout,
	}
}

// Run subscribes and blocks until ctx is cancelled, then drains the subscription.
func (s *Subscriber) Run(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)

	if s.queue == "" {
		sub, err = s.conn.Subscribe(s.subject, s.handleMessage)
	} else {
		sub, err = s.conn.QueueSubscribe(s.subject, s.queue, s.handleMessage)
	}
	if err != nil {
		return err
	}

	s.setPendingLimits(sub)

	s.logger.Info("subscribed to domain events", zap.String("queue", s.queue))

	<-ctx.Done()

	s.logger.Info("draining domain event subscription")

	return sub.Drain()
}

type pendingLimiter interface {
	SetPendingLimits(msgLimit int, bytesLimit int) error
}

// setPendingLimits raises the slow consumer threshold. The subscription keeps
// the client defaults when that fails.
func (s *Subscriber) setPendingLimits(sub pendingLimiter) {
	err := sub.SetPendingLimits(pendingMessageLimit, pendingBytesLimit)
	if err != nil {
		s.logger.Warn("failed to set pending limits, keeping client defaults",
			zap.Int("msgLimit", pendingMessageLimit),
			zap.Int("bytesLimit", pendingBytesLimit),
			zap.Error(err))
	}
}

func (s *Subscriber) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.handleTimeout)
	defer cancel()

	var event handler.DomainEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.Warn("discarding malformed domain event",
			zap.String("msgSubject", msg.Subject),
			zap.Error(err))

		return
	}

	// Publishers may encode the event type in the last subject token only.
	if event.Type == "" {
		event.Type = handler.EventType(subjectSuffix(msg.Subject))
	}

	responses, err := s.handler.HandleEvent(ctx, event)
	if err != nil {
		s.logger.Warn("failed to handle domain event",
			zap.String("msgSubject", msg.Subject),
			zap.String("eventType", string(event.Type)),
			zap.String("code", string(ierr.CodeOf(err))),
			zap.Error(err))

		return
	}

	delivered := 0
	for _, response := range responses {
		delivered += response.Delivered
	}

	s.logger.Debug("domain event handled",
		zap.String("eventType", string(event.Type)),
		zap.Int("notifications", len(responses)),
		zap.Int("delivered", delivered))
}

func subjectSuffix(subject string) string {
	index := strings.LastIndex(subject, ".")
	if index < 0 {
		return subject
	}

	return subject[index+1:]
}
