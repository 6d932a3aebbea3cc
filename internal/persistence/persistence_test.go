package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListNotificationsRequest_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		request  ListNotificationsRequest
		expected ListNotificationsRequest
	}{
		{"defaults", ListNotificationsRequest{}, ListNotificationsRequest{Limit: DefaultListLimit}},
		{"caps limit", ListNotificationsRequest{Limit: 500}, ListNotificationsRequest{Limit: MaxListLimit}},
		{"negative offset", ListNotificationsRequest{Limit: 5, Offset: -3}, ListNotificationsRequest{Limit: 5}},
		{"keeps valid window", ListNotificationsRequest{Limit: 10, Offset: 30, UnreadOnly: true}, ListNotificationsRequest{Limit: 10, Offset: 30, UnreadOnly: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.request.Normalize())
		})
	}
}
