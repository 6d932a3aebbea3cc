package handler

import (
	"sync"

	"github.com/goevery/realtime/internal/broadcaster"
)

type sentMessage struct {
	userId  string
	message broadcaster.Message
}

type recordingSender struct {
	mu        sync.Mutex
	sent      []sentMessage
	delivered int
}

func (s *recordingSender) Send(userId string, message broadcaster.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, sentMessage{userId, message})

	return s.delivered
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]sentMessage(nil), s.sent...)
}
