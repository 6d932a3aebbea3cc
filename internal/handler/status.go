package handler

import (
	"context"
	"slices"
	"time"

	"github.com/goevery/realtime/internal/broadcaster"
	"go.uber.org/zap"
)

// LastSeenStore knows when identities were last seen after they went offline.
type LastSeenStore interface {
	LastSeen(ctx context.Context, userId string) (time.Time, bool, error)
}

type OnlineUsersResponse struct {
	OnlineUsers []string `json:"online_users"`
	Count       int      `json:"count"`
}

type UserStatusResponse struct {
	UserId   string     `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

type StatusHandlerInterface interface {
	ListOnline() OnlineUsersResponse
	UserStatus(ctx context.Context, userId string) (UserStatusResponse, error)
}

type StatusHandler struct {
	logger          *zap.Logger
	userIdValidator *UserIdValidator
	registry        broadcaster.Registry
	lastSeenStore   LastSeenStore
}

// NewStatusHandler builds the admin read handler. lastSeenStore may be nil.
func NewStatusHandler(
	logger *zap.Logger,
	userIdValidator *UserIdValidator,
	registry broadcaster.Registry,
	lastSeenStore LastSeenStore,
) *StatusHandler {
	return &StatusHandler{
		logger,
		userIdValidator,
		registry,
		lastSeenStore,
	}
}

func (h *StatusHandler) ListOnline() OnlineUsersResponse {
	userIds := h.registry.OnlineUserIds()
	slices.Sort(userIds)

	return OnlineUsersResponse{
		OnlineUsers: userIds,
		Count:       len(userIds),
	}
}

func (h *StatusHandler) UserStatus(ctx context.Context, userId string) (UserStatusResponse, error) {
	err := h.userIdValidator.Validate(userId)
	if err != nil {
		return UserStatusResponse{}, err
	}

	response := UserStatusResponse{
		UserId: userId,
	}

	if lastSeen, ok := h.registry.LastSeen(userId); ok {
		response.IsOnline = true
		response.LastSeen = &lastSeen

		return response, nil
	}

	if h.lastSeenStore == nil {
		return response, nil
	}

	lastSeen, ok, err := h.lastSeenStore.LastSeen(ctx, userId)
	if err != nil {
		h.logger.Warn("failed to read last seen from presence store",
			zap.String("userId", userId),
			zap.Error(err))

		return response, nil
	}

	if ok {
		response.LastSeen = &lastSeen
	}

	return response, nil
}
