package server

import (
	"context"
	"errors"

	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/goevery/realtime/internal/handler"
	"github.com/goevery/realtime/internal/ierr"
	"github.com/goevery/realtime/internal/rpc"
	"go.uber.org/zap"
)

type Router struct {
	logger *zap.Logger

	pingHandler handler.PingHandlerInterface
}

func NewRouter(
	logger *zap.Logger,
	pingHandler handler.PingHandlerInterface,
) *Router {
	return &Router{
		logger,
		pingHandler,
	}
}

// RouteFrame handles one raw inbound frame. A non-nil result is an error
// envelope meant for the connection the frame came from.
func (r *Router) RouteFrame(ctx context.Context, raw []byte) *broadcaster.Message {
	frame, err := rpc.ParseFrame(raw)
	if err == nil {
		err = r.Handle(ctx, frame)
	}

	if err != nil {
		message := broadcaster.NewErrorMessage(r.mapError(err))

		return &message
	}

	return nil
}

func (r *Router) Handle(ctx context.Context, frame rpc.Frame) error {
	switch frame.Type {
	case rpc.TypePing:
		return r.pingHandler.Handle(ctx)
	default:
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("unknown message type: "+frame.Type))
	}
}

func (r *Router) mapError(err error) ierr.Error {
	var handlerErr ierr.Error
	if errors.As(err, &handlerErr) {
		return handlerErr
	}

	r.logger.Error("error in frame handler", zap.Error(err))

	return ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
}
