package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/goevery/realtime/internal/ierr"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CloseCodeAuthenticationFailed is sent when the handshake credential is rejected.
const CloseCodeAuthenticationFailed = 4001

const (
	DefaultWriteTimeout   = 10 * time.Second
	DefaultPongTimeout    = 60 * time.Second
	DefaultReadLimit      = 4096
	handshakeTimeout      = 5 * time.Second
	closeFrameWriteBudget = time.Second
)

type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, credential string) (string, error)
}

type SessionConfig struct {
	SendBufferSize int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	ReadLimit      int64
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SendBufferSize: broadcaster.DefaultSendBufferSize,
		WriteTimeout:   DefaultWriteTimeout,
		PongTimeout:    DefaultPongTimeout,
		ReadLimit:      DefaultReadLimit,
	}
}

// withDefaults fills unset fields from DefaultSessionConfig.
func (c SessionConfig) withDefaults() SessionConfig {
	defaults := DefaultSessionConfig()

	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaults.SendBufferSize
	}

	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}

	if c.PongTimeout <= 0 {
		c.PongTimeout = defaults.PongTimeout
	}

	if c.ReadLimit <= 0 {
		c.ReadLimit = defaults.ReadLimit
	}

	return c
}

func (c SessionConfig) pingInterval() time.Duration {
	return c.PongTimeout * 9 / 10
}

type WebSocketServer struct {
	logger   *zap.Logger
	upgrader *websocket.Upgrader
	verifier IdentityVerifier
	registry broadcaster.Registry
	router   *Router
	config   SessionConfig
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	verifier IdentityVerifier,
	registry broadcaster.Registry,
	router *Router,
	config SessionConfig,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		verifier,
		registry,
		router,
		config.withDefaults(),
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/ws/connect", s.handleConnect).Methods(http.MethodGet)
}

// Shutdown closes every registered connection so that their sessions unwind.
// Hijacked sockets are not covered by http.Server.Shutdown.
func (s *WebSocketServer) Shutdown() {
	for _, userId := range s.registry.OnlineUserIds() {
		for _, connection := range s.registry.ConnectionsOf(userId) {
			connection.Close()
		}
	}
}

func (s *WebSocketServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	credential := r.URL.Query().Get("token")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("websocket upgrade failed", zap.Error(err))
		return
	}

	session := &session{
		server: s,
		logger: s.logger.With(zap.String("remoteAddr", r.RemoteAddr)),
		ws:     ws,
	}

	session.run(r.Context(), credential)
}

type sessionState string

const (
	stateConnecting    sessionState = "CONNECTING"
	stateAuthenticated sessionState = "AUTHENTICATED"
	stateActive        sessionState = "ACTIVE"
	stateClosed        sessionState = "CLOSED"
)

type session struct {
	server *WebSocketServer
	logger *zap.Logger
	ws     *websocket.Conn
	state  sessionState

	connection *broadcaster.Connection
	writerDone chan struct{}
}

func (s *session) setState(state sessionState) {
	s.state = state
	s.logger.Info("websocket session state changed", zap.String("state", string(state)))
}

func (s *session) run(ctx context.Context, credential string) {
	s.setState(stateConnecting)
	defer s.cleanup()

	handshakeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	userId, err := s.server.verifier.VerifyIdentity(handshakeCtx, credential)
	cancel()

	if err != nil {
		s.logger.Info("websocket handshake rejected",
			zap.String("code", string(ierr.CodeOf(err))),
			zap.Error(err))
		s.writeClose(CloseCodeAuthenticationFailed, "authentication failed")

		return
	}

	s.logger = s.logger.With(zap.String("userId", userId))
	s.setState(stateAuthenticated)

	s.connection = broadcaster.NewConnection(userId, s.server.config.SendBufferSize)
	s.logger = s.logger.With(zap.String("connectionId", s.connection.Id))

	if err := s.deliver(broadcaster.NewConnectionEstablishedMessage(s.connection)); err != nil {
		s.logger.Error("failed to queue connection established message", zap.Error(err))
		return
	}

	s.server.registry.Register(s.connection)
	s.setState(stateActive)

	s.writerDone = make(chan struct{})
	go s.writeLoop()

	s.readLoop(broadcaster.WithConnection(ctx, s.connection))
}

// readLoop processes inbound frames in arrival order until the transport fails.
func (s *session) readLoop(ctx context.Context) {
	config := s.server.config

	s.ws.SetReadLimit(config.ReadLimit)
	_ = s.ws.SetReadDeadline(time.Now().Add(config.PongTimeout))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(config.PongTimeout))
	})

	for {
		messageType, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			} else {
				s.logger.Debug("websocket read ended", zap.Error(err))
			}

			return
		}

		_ = s.ws.SetReadDeadline(time.Now().Add(config.PongTimeout))

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		reply := s.server.router.RouteFrame(ctx, data)
		if reply == nil {
			continue
		}

		if err := s.deliver(*reply); err != nil {
			s.logger.Warn("failed to queue reply, closing session", zap.Error(err))
			return
		}
	}
}

// writeLoop is the only writer of data frames on the socket.
func (s *session) writeLoop() {
	defer close(s.writerDone)
	defer s.ws.Close()

	config := s.server.config

	ticker := time.NewTicker(config.pingInterval())
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.connection.Outbound():
			_ = s.ws.SetWriteDeadline(time.Now().Add(config.WriteTimeout))

			if err := s.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				s.connection.Close()

				return
			}
		case <-ticker.C:
			err := s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WriteTimeout))
			if err != nil {
				s.logger.Debug("websocket ping failed", zap.Error(err))
				s.connection.Close()

				return
			}
		case <-s.connection.Done():
			s.writeClose(websocket.CloseNormalClosure, "")

			return
		}
	}
}

func (s *session) deliver(message broadcaster.Message) error {
	payload, err := message.Encode()
	if err != nil {
		return err
	}

	return s.connection.Deliver(payload)
}

func (s *session) writeClose(code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)

	err := s.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeFrameWriteBudget))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("failed to write close frame", zap.Error(err))
	}
}

func (s *session) cleanup() {
	if s.connection != nil {
		s.server.registry.Unregister(s.connection)
		s.connection.Close()

		if s.writerDone != nil {
			<-s.writerDone
		}
	}

	_ = s.ws.Close()

	s.setState(stateClosed)
}
