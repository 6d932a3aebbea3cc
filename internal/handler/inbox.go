package handler

import (
	"context"
	"errors"

	"github.com/goevery/realtime/internal/ierr"
	"github.com/goevery/realtime/internal/persistence"
)

type ListNotificationsResponse struct {
	Notifications []persistence.Notification `json:"notifications"`
	Limit         int                        `json:"limit"`
	Offset        int                        `json:"offset"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type MarkReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

type InboxHandlerInterface interface {
	List(ctx context.Context, req persistence.ListNotificationsRequest) (ListNotificationsResponse, error)
	UnreadCount(ctx context.Context, recipientId string) (UnreadCountResponse, error)
	MarkRead(ctx context.Context, notificationId string, recipientId string) (MarkReadResponse, error)
	MarkAllRead(ctx context.Context, recipientId string) (MarkReadResponse, error)
}

// InboxHandler serves the persisted notifications a reconnecting client may
// have missed on the real-time channel.
type InboxHandler struct {
	userIdValidator *UserIdValidator
	engine          persistence.Engine
}

func NewInboxHandler(userIdValidator *UserIdValidator, engine persistence.Engine) *InboxHandler {
	return &InboxHandler{
		userIdValidator,
		engine,
	}
}

func (h *InboxHandler) List(ctx context.Context, req persistence.ListNotificationsRequest) (ListNotificationsResponse, error) {
	err := h.userIdValidator.Validate(req.RecipientId)
	if err != nil {
		return ListNotificationsResponse{}, err
	}

	req = req.Normalize()

	notifications, err := h.engine.ListNotifications(ctx, req)
	if err != nil {
		return ListNotificationsResponse{}, err
	}

	if notifications == nil {
		notifications = []persistence.Notification{}
	}

	return ListNotificationsResponse{
		Notifications: notifications,
		Limit:         req.Limit,
		Offset:        req.Offset,
	}, nil
}

func (h *InboxHandler) UnreadCount(ctx context.Context, recipientId string) (UnreadCountResponse, error) {
	err := h.userIdValidator.Validate(recipientId)
	if err != nil {
		return UnreadCountResponse{}, err
	}

	count, err := h.engine.CountUnread(ctx, recipientId)
	if err != nil {
		return UnreadCountResponse{}, err
	}

	return UnreadCountResponse{UnreadCount: count}, nil
}

func (h *InboxHandler) MarkRead(ctx context.Context, notificationId string, recipientId string) (MarkReadResponse, error) {
	err := h.userIdValidator.Validate(recipientId)
	if err != nil {
		return MarkReadResponse{}, err
	}

	if notificationId == "" {
		return MarkReadResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("notification id is required"))
	}

	err = h.engine.MarkRead(ctx, notificationId, recipientId)
	switch {
	case errors.Is(err, persistence.ErrNotificationNotFound):
		return MarkReadResponse{}, ierr.New(ierr.ErrorCodeNotFound, err)
	case errors.Is(err, persistence.ErrNotificationNotOwned):
		return MarkReadResponse{}, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("not authorized to modify this notification"))
	case err != nil:
		return MarkReadResponse{}, err
	}

	return MarkReadResponse{Message: "Notification marked as read", Updated: 1}, nil
}

func (h *InboxHandler) MarkAllRead(ctx context.Context, recipientId string) (MarkReadResponse, error) {
	err := h.userIdValidator.Validate(recipientId)
	if err != nil {
		return MarkReadResponse{}, err
	}

	updated, err := h.engine.MarkAllRead(ctx, recipientId)
	if err != nil {
		return MarkReadResponse{}, err
	}

	return MarkReadResponse{Message: "All notifications marked as read", Updated: updated}, nil
}
