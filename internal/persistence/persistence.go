package persistence

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotificationNotOwned = errors.New("notification belongs to another user")
)

// UnknownSender names senders whose user document is gone.
const UnknownSender = "Unknown"

const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

type Engine interface {
	Setup(ctx context.Context) error
	FindUserIdByEmail(ctx context.Context, email string) (string, error)
	GetSocialGraph(ctx context.Context, userId string) ([]string, error)
	SaveNotification(ctx context.Context, request SaveNotificationRequest) (Notification, error)
	ListNotifications(ctx context.Context, request ListNotificationsRequest) ([]Notification, error)
	CountUnread(ctx context.Context, recipientId string) (int64, error)
	MarkRead(ctx context.Context, notificationId string, recipientId string) error
	MarkAllRead(ctx context.Context, recipientId string) (int64, error)
}

type Notification struct {
	Id          string         `json:"id"`
	RecipientId string         `json:"recipient_id"`
	SenderId    string         `json:"sender_id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data"`
	CreateTime  time.Time      `json:"created_at"`
	Read        bool           `json:"read"`
	ReadTime    *time.Time     `json:"read_at,omitempty"`

	// Filled on listing from the sender's user document.
	SenderUsername     string  `json:"sender_username,omitempty"`
	SenderFullName     string  `json:"sender_full_name,omitempty"`
	SenderProfileImage *string `json:"sender_profile_image,omitempty"`
}

type SaveNotificationRequest struct {
	RecipientId string
	SenderId    string
	Type        string
	Title       string
	Message     string
	Data        map[string]any
}

type ListNotificationsRequest struct {
	RecipientId string
	Limit       int
	Offset      int
	UnreadOnly  bool
}

// Normalize clamps the paging window to the accepted range.
func (r ListNotificationsRequest) Normalize() ListNotificationsRequest {
	if r.Limit <= 0 {
		r.Limit = DefaultListLimit
	}

	if r.Limit > MaxListLimit {
		r.Limit = MaxListLimit
	}

	if r.Offset < 0 {
		r.Offset = 0
	}

	return r
}
