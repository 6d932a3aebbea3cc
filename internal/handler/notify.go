package handler

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/goevery/realtime/internal/ierr"
	"github.com/goevery/realtime/internal/persistence"
	"go.uber.org/zap"
)

type NotifyRequest struct {
	RecipientId      string         `json:"recipient_id"`
	SenderId         string         `json:"sender_id"`
	NotificationType string         `json:"notification_type"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	Data             map[string]any `json:"data,omitempty"`
}

type NotifyResponse struct {
	Notification *persistence.Notification `json:"notification,omitempty"`
	Persisted    bool                      `json:"persisted"`
	Delivered    int                       `json:"delivered"`
	Skipped      bool                      `json:"skipped,omitempty"`
}

type NotifyHandlerInterface interface {
	Handle(ctx context.Context, req NotifyRequest) (NotifyResponse, error)
	HandleEvent(ctx context.Context, event DomainEvent) ([]NotifyResponse, error)
}

// NotifyHandler turns domain events into a stored notification plus a
// best-effort real-time copy for whichever connections the recipient has open.
type NotifyHandler struct {
	logger          *zap.Logger
	userIdValidator *UserIdValidator
	engine          persistence.Engine
	sender          broadcaster.Sender
}

func NewNotifyHandler(
	logger *zap.Logger,
	userIdValidator *UserIdValidator,
	engine persistence.Engine,
	sender broadcaster.Sender,
) *NotifyHandler {
	return &NotifyHandler{
		logger,
		userIdValidator,
		engine,
		sender,
	}
}

func (h *NotifyHandler) validate(req NotifyRequest) error {
	err := h.userIdValidator.Validate(req.RecipientId)
	if err != nil {
		return err
	}

	if req.SenderId != "" {
		if err := h.userIdValidator.Validate(req.SenderId); err != nil {
			return err
		}
	}

	if req.NotificationType == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("notification_type is required"))
	}

	if req.Title == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("title is required"))
	}

	return nil
}

func (h *NotifyHandler) Handle(ctx context.Context, req NotifyRequest) (NotifyResponse, error) {
	err := h.validate(req)
	if err != nil {
		return NotifyResponse{}, err
	}

	return h.notify(ctx, req), nil
}

// notify persists and dispatches an already validated request.
func (h *NotifyHandler) notify(ctx context.Context, req NotifyRequest) NotifyResponse {
	if req.SenderId == req.RecipientId {
		return NotifyResponse{Skipped: true}
	}

	response := NotifyResponse{}
	timestamp := time.Now().UTC()

	notification, err := h.engine.SaveNotification(ctx, persistence.SaveNotificationRequest{
		RecipientId: req.RecipientId,
		SenderId:    req.SenderId,
		Type:        req.NotificationType,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
	})
	if err != nil {
		h.logger.Error("failed to persist notification, delivering real-time copy only",
			zap.String("recipientId", req.RecipientId),
			zap.String("notificationType", req.NotificationType),
			zap.Error(err))
	} else {
		response.Notification = &notification
		response.Persisted = true
		timestamp = notification.CreateTime
	}

	response.Delivered = h.sender.Send(req.RecipientId, broadcaster.NewNotificationMessage(broadcaster.Notification{
		NotificationType: req.NotificationType,
		Title:            req.Title,
		Message:          req.Message,
		Data:             req.Data,
		Timestamp:        timestamp,
	}))

	return response
}

// HandleEvent renders one request per recipient and checks all of them before
// anything is persisted, so a rejected event leaves no partial notifications.
func (h *NotifyHandler) HandleEvent(ctx context.Context, event DomainEvent) ([]NotifyResponse, error) {
	requests, err := event.NotifyRequests()
	if err != nil {
		return nil, err
	}

	for _, req := range requests {
		if err := h.validate(req); err != nil {
			return nil, err
		}
	}

	responses := make([]NotifyResponse, 0, len(requests))
	for _, req := range requests {
		responses = append(responses, h.notify(ctx, req))
	}

	return responses, nil
}
