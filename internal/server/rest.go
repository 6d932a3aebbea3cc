package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goevery/realtime/internal/auth"
	"github.com/goevery/realtime/internal/handler"
	"github.com/goevery/realtime/internal/ierr"
	"github.com/goevery/realtime/internal/persistence"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxRequestBodyBytes = 64 << 10

type RESTServer struct {
	logger *zap.Logger

	authenticator *auth.Authenticator
	originChecker *OriginChecker
	statusHandler handler.StatusHandlerInterface
	notifyHandler handler.NotifyHandlerInterface
	inboxHandler  handler.InboxHandlerInterface
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	originChecker *OriginChecker,
	statusHandler handler.StatusHandlerInterface,
	notifyHandler handler.NotifyHandlerInterface,
	inboxHandler handler.InboxHandlerInterface,
) *RESTServer {
	return &RESTServer{
		logger,
		authenticator,
		originChecker,
		statusHandler,
		notifyHandler,
		inboxHandler,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/ws/online-users", s.withAuth(s.handleOnlineUsers)).
		Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/ws/user-status/{userId}", s.withAuth(s.handleUserStatus)).
		Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/notifications", s.withAuth(s.handleListNotifications)).
		Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/notifications/unread-count", s.withAuth(s.handleUnreadCount)).
		Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/notifications/mark-all-read", s.withAuth(s.handleMarkAllRead)).
		Methods(http.MethodPut, http.MethodOptions)
	router.HandleFunc("/notifications/{notificationId}/read", s.withAuth(s.handleMarkRead)).
		Methods(http.MethodPut, http.MethodOptions)
	router.HandleFunc("/notifications", s.withAuth(s.requireAPIKey(s.handleNotify))).
		Methods(http.MethodPost)
	router.HandleFunc("/events", s.withAuth(s.requireAPIKey(s.handleEvent))).
		Methods(http.MethodPost, http.MethodOptions)
}

func (s *RESTServer) handleOnlineUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.statusHandler.ListOnline())
}

func (s *RESTServer) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	userId := mux.Vars(r)["userId"]

	response, err := s.statusHandler.UserStatus(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	request := persistence.ListNotificationsRequest{
		RecipientId: recipientId(r),
	}

	var err error

	request.Limit, err = intQueryParam(query.Get("limit"), "limit")
	if err != nil {
		s.writeError(w, err)
		return
	}

	request.Offset, err = intQueryParam(query.Get("offset"), "offset")
	if err != nil {
		s.writeError(w, err)
		return
	}

	if unreadOnly := query.Get("unread_only"); unreadOnly != "" {
		request.UnreadOnly, err = strconv.ParseBool(unreadOnly)
		if err != nil {
			s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unread_only must be a boolean")))
			return
		}
	}

	response, err := s.inboxHandler.List(r.Context(), request)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	response, err := s.inboxHandler.UnreadCount(r.Context(), recipientId(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationId := mux.Vars(r)["notificationId"]

	response, err := s.inboxHandler.MarkRead(r.Context(), notificationId, recipientId(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	response, err := s.inboxHandler.MarkAllRead(r.Context(), recipientId(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// recipientId is the caller's own user id, or the recipient_id query
// parameter when the caller holds an API key.
func recipientId(r *http.Request) string {
	authentication, _ := auth.AuthenticationFromContext(r.Context())
	if authentication.IsUser() {
		return authentication.UserId
	}

	return r.URL.Query().Get("recipient_id")
}

func (s *RESTServer) handleNotify(w http.ResponseWriter, r *http.Request) {
	var notifyRequest handler.NotifyRequest
	if err := decodeBody(w, r, &notifyRequest); err != nil {
		s.writeError(w, err)
		return
	}

	response, err := s.notifyHandler.Handle(r.Context(), notifyRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	var event handler.DomainEvent
	if err := decodeBody(w, r, &event); err != nil {
		s.writeError(w, err)
		return
	}

	responses, err := s.notifyHandler.HandleEvent(r.Context(), event)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"results": responses,
	})
}

// withAuth accepts either an API key or a user access token as bearer credential.
func (s *RESTServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeCORSHeaders(w, r)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		credential, ok := bearerToken(r)
		if !ok {
			s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing bearer credential")))
			return
		}

		authentication, err := s.authenticator.AuthenticateAPIKey(credential)
		if err != nil {
			authentication, err = s.authenticator.AuthenticateJWT(r.Context(), credential)
		}

		if err != nil {
			s.writeError(w, err)
			return
		}

		next(w, r.WithContext(auth.WithAuthentication(r.Context(), authentication)))
	}
}

func (s *RESTServer) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authentication, ok := auth.AuthenticationFromContext(r.Context())
		if !ok || !authentication.IsAdmin {
			s.writeError(w, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("api key required")))
			return
		}

		next(w, r)
	}
}

func (s *RESTServer) writeCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !s.originChecker.IsAllowed(origin) {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Add("Vary", "Origin")
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var handlerErr ierr.Error
	if !errors.As(err, &handlerErr) {
		s.logger.Error("error in rest handler", zap.Error(err))
		handlerErr = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, handlerErr.Code.HTTPStatus(), handlerErr)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))

	if err := decoder.Decode(v); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body"))
	}

	return nil
}

func intQueryParam(value string, name string) (int, error) {
	if value == "" {
		return 0, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New(name+" must be an integer"))
	}

	return parsed, nil
}
