package broadcaster

import (
	"encoding/json"
	"time"

	"github.com/goevery/realtime/internal/ierr"
)

type Kind string

const (
	KindConnectionEstablished Kind = "connection_established"
	KindUserStatus            Kind = "user_status"
	KindNotification          Kind = "notification"
	KindPong                  Kind = "pong"
	KindError                 Kind = "error"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Message is the outbound envelope. It is serialised as {"type": Kind, "data": Data}.
type Message struct {
	Kind       Kind      `json:"type"`
	Data       any       `json:"data"`
	CreateTime time.Time `json:"-"`
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

type ConnectionEstablished struct {
	UserId       string    `json:"user_id"`
	ConnectionId string    `json:"connection_id"`
	Timestamp    time.Time `json:"timestamp"`
}

type UserStatus struct {
	UserId    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type Notification struct {
	NotificationType string         `json:"notification_type"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	Data             map[string]any `json:"data"`
	Timestamp        time.Time      `json:"timestamp"`
}

type Pong struct {
	Timestamp time.Time `json:"timestamp"`
}

func NewConnectionEstablishedMessage(conn *Connection) Message {
	now := time.Now()

	return Message{
		Kind: KindConnectionEstablished,
		Data: ConnectionEstablished{
			UserId:       conn.UserId,
			ConnectionId: conn.Id,
			Timestamp:    now,
		},
		CreateTime: now,
	}
}

func NewUserStatusMessage(userId string, status Status, timestamp time.Time) Message {
	return Message{
		Kind: KindUserStatus,
		Data: UserStatus{
			UserId:    userId,
			Status:    status,
			Timestamp: timestamp,
		},
		CreateTime: time.Now(),
	}
}

func NewNotificationMessage(notification Notification) Message {
	if notification.Data == nil {
		notification.Data = map[string]any{}
	}

	return Message{
		Kind:       KindNotification,
		Data:       notification,
		CreateTime: notification.Timestamp,
	}
}

func NewPongMessage() Message {
	now := time.Now()

	return Message{
		Kind:       KindPong,
		Data:       Pong{Timestamp: now},
		CreateTime: now,
	}
}

func NewErrorMessage(err ierr.Error) Message {
	return Message{
		Kind:       KindError,
		Data:       err,
		CreateTime: time.Now(),
	}
}
