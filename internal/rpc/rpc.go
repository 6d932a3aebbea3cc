package rpc

import (
	"encoding/json"
	"errors"

	"github.com/goevery/realtime/internal/ierr"
)

const TypePing = "ping"

// Frame is one inbound client frame: {"type": ..., "data": {...}}.
type Frame struct {
	Type string           `json:"type"`
	Data *json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (Frame, error) {
	var frame Frame

	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid JSON format"))
	}

	if frame.Type == "" {
		return Frame{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing message type"))
	}

	return frame, nil
}
