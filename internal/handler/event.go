package handler

import (
	"errors"
	"fmt"

	"github.com/goevery/realtime/internal/ierr"
)

type EventType string

const (
	EventTypeLike          EventType = "like"
	EventTypeComment       EventType = "comment"
	EventTypeFollow        EventType = "follow"
	EventTypeMention       EventType = "mention"
	EventTypeGarageInvite  EventType = "garage_invite"
	EventTypeSave          EventType = "save"
	EventTypeNewPost       EventType = "new_post"
	EventTypeFriendRequest EventType = "friend_request"
)

const commentPreviewLength = 50

// DomainEvent is what the CRUD backend emits after a social action succeeds.
type DomainEvent struct {
	Type          EventType `json:"type"`
	ActorId       string    `json:"actor_id"`
	ActorUsername string    `json:"actor_username"`
	RecipientIds  []string  `json:"recipient_ids"`
	PostId        string    `json:"post_id,omitempty"`
	Content       string    `json:"content,omitempty"`
	Context       string    `json:"context,omitempty"`
	GarageId      string    `json:"garage_id,omitempty"`
	GarageName    string    `json:"garage_name,omitempty"`
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= commentPreviewLength {
		return content
	}

	return string(runes[:commentPreviewLength]) + "..."
}

// NotifyRequests renders one notification per recipient.
func (e DomainEvent) NotifyRequests() ([]NotifyRequest, error) {
	if e.ActorId == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("actor_id is required"))
	}

	if len(e.RecipientIds) == 0 {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("recipient_ids cannot be empty"))
	}

	actor := e.ActorUsername
	if actor == "" {
		actor = "Someone"
	}

	var (
		title   string
		message string
		data    map[string]any
	)

	switch e.Type {
	case EventTypeLike:
		title = "New Like"
		message = fmt.Sprintf("%s liked your post", actor)
		data = map[string]any{"post_id": e.PostId}
	case EventTypeComment:
		title = "New Comment"
		message = fmt.Sprintf("%s commented: %s", actor, previewOf(e.Content))
		data = map[string]any{"post_id": e.PostId}
	case EventTypeFollow:
		title = "New Follower"
		message = fmt.Sprintf("%s started following you", actor)
		data = map[string]any{"user_id": e.ActorId}
	case EventTypeMention:
		context := e.Context
		if context == "" {
			context = "post"
		}
		title = "You were mentioned"
		message = fmt.Sprintf("%s mentioned you in a %s", actor, context)
		data = map[string]any{"post_id": e.PostId, "context": context}
	case EventTypeGarageInvite:
		title = "Garage Invitation"
		message = fmt.Sprintf("%s invited you to join %s", actor, e.GarageName)
		data = map[string]any{"garage_id": e.GarageId}
	case EventTypeSave:
		title = "Post Saved"
		message = fmt.Sprintf("%s saved your post", actor)
		data = map[string]any{"post_id": e.PostId}
	case EventTypeNewPost:
		title = "New Post"
		message = fmt.Sprintf("%s shared a new post", actor)
		data = map[string]any{"post_id": e.PostId}
	case EventTypeFriendRequest:
		title = "Friend Request"
		message = fmt.Sprintf("%s sent you a friend request", actor)
		data = map[string]any{"user_id": e.ActorId}
	default:
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, fmt.Errorf("unknown event type: %q", e.Type))
	}

	requests := make([]NotifyRequest, 0, len(e.RecipientIds))
	for _, recipientId := range e.RecipientIds {
		requests = append(requests, NotifyRequest{
			RecipientId:      recipientId,
			SenderId:         e.ActorId,
			NotificationType: string(e.Type),
			Title:            title,
			Message:          message,
			Data:             data,
		})
	}

	return requests, nil
}
