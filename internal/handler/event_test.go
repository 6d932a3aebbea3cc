package handler

import (
	"strings"
	"testing"

	"github.com/goevery/realtime/internal/ierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainEvent_NotifyRequests(t *testing.T) {
	tests := []struct {
		name    string
		event   DomainEvent
		title   string
		message string
		data    map[string]any
	}{
		{
			name:    "like",
			event:   DomainEvent{Type: EventTypeLike, PostId: "p1"},
			title:   "New Like",
			message: "alice liked your post",
			data:    map[string]any{"post_id": "p1"},
		},
		{
			name:    "comment",
			event:   DomainEvent{Type: EventTypeComment, PostId: "p1", Content: "nice build"},
			title:   "New Comment",
			message: "alice commented: nice build",
			data:    map[string]any{"post_id": "p1"},
		},
		{
			name:    "follow",
			event:   DomainEvent{Type: EventTypeFollow},
			title:   "New Follower",
			message: "alice started following you",
			data:    map[string]any{"user_id": "u-alice"},
		},
		{
			name:    "mention defaults to post",
			event:   DomainEvent{Type: EventTypeMention, PostId: "p1"},
			title:   "You were mentioned",
			message: "alice mentioned you in a post",
			data:    map[string]any{"post_id": "p1", "context": "post"},
		},
		{
			name:    "mention in comment",
			event:   DomainEvent{Type: EventTypeMention, PostId: "p1", Context: "comment"},
			title:   "You were mentioned",
			message: "alice mentioned you in a comment",
			data:    map[string]any{"post_id": "p1", "context": "comment"},
		},
		{
			name:    "garage invite",
			event:   DomainEvent{Type: EventTypeGarageInvite, GarageId: "g1", GarageName: "Night Shift"},
			title:   "Garage Invitation",
			message: "alice invited you to join Night Shift",
			data:    map[string]any{"garage_id": "g1"},
		},
		{
			name:    "save",
			event:   DomainEvent{Type: EventTypeSave, PostId: "p1"},
			title:   "Post Saved",
			message: "alice saved your post",
			data:    map[string]any{"post_id": "p1"},
		},
		{
			name:    "new post",
			event:   DomainEvent{Type: EventTypeNewPost, PostId: "p1"},
			title:   "New Post",
			message: "alice shared a new post",
			data:    map[string]any{"post_id": "p1"},
		},
		{
			name:    "friend request",
			event:   DomainEvent{Type: EventTypeFriendRequest},
			title:   "Friend Request",
			message: "alice sent you a friend request",
			data:    map[string]any{"user_id": "u-alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := tt.event
			event.ActorId = "u-alice"
			event.ActorUsername = "alice"
			event.RecipientIds = []string{"u-bob", "u-carol"}

			requests, err := event.NotifyRequests()
			require.NoError(t, err)
			require.Len(t, requests, 2)

			for i, recipientId := range event.RecipientIds {
				assert.Equal(t, recipientId, requests[i].RecipientId)
				assert.Equal(t, "u-alice", requests[i].SenderId)
				assert.Equal(t, string(event.Type), requests[i].NotificationType)
				assert.Equal(t, tt.title, requests[i].Title)
				assert.Equal(t, tt.message, requests[i].Message)
				assert.Equal(t, tt.data, requests[i].Data)
			}
		})
	}
}

func TestDomainEvent_CommentPreviewIsTruncated(t *testing.T) {
	event := DomainEvent{
		Type:          EventTypeComment,
		ActorId:       "u-alice",
		ActorUsername: "alice",
		RecipientIds:  []string{"u-bob"},
		Content:       strings.Repeat("ü", 60),
	}

	requests, err := event.NotifyRequests()
	require.NoError(t, err)

	assert.Equal(t, "alice commented: "+strings.Repeat("ü", 50)+"...", requests[0].Message)
}

func TestDomainEvent_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		event DomainEvent
	}{
		{"no actor", DomainEvent{Type: EventTypeLike, RecipientIds: []string{"u-bob"}}},
		{"no recipients", DomainEvent{Type: EventTypeLike, ActorId: "u-alice"}},
		{"unknown type", DomainEvent{Type: "poke", ActorId: "u-alice", RecipientIds: []string{"u-bob"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.event.NotifyRequests()
			assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
		})
	}
}
