package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/realtime/internal/auth"
	"github.com/goevery/realtime/internal/broadcaster"
	"github.com/goevery/realtime/internal/events"
	"github.com/goevery/realtime/internal/handler"
	"github.com/goevery/realtime/internal/persistence/mongodb"
	"github.com/goevery/realtime/internal/persistence/redisstore"
	"github.com/goevery/realtime/internal/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	presenceScopeSocial = "social"
	presenceScopeAll    = "all"
	shutdownTimeout     = 30 * time.Second
)

type App struct {
	logger   *zap.Logger
	settings Settings

	mongoClient *mongo.Client
	redisClient *redis.Client
	natsConn    *nats.Conn

	presenceBroadcaster *broadcaster.PresenceBroadcaster
	websocketServer     *server.WebSocketServer
	restServer          *server.RESTServer
	subscriber          *events.Subscriber
}

func NewApp(ctx context.Context, logger *zap.Logger, settings Settings) (*App, error) {
	app := &App{
		logger:   logger,
		settings: settings,
	}

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	app.mongoClient = mongoClient

	engine := mongodb.NewPersistenceEngine(mongoClient, settings.MongoDatabase, settings.NotificationRetention())
	if err := engine.Setup(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("setup mongodb: %w", err)
	}

	registry := broadcaster.NewInMemoryRegistry(logger)
	dispatcher := broadcaster.NewDispatcher(logger, registry)

	var (
		observers     []broadcaster.PresenceObserver
		lastSeenStore handler.LastSeenStore
	)

	if settings.RedisAddr != "" {
		redisClient, err := redisstore.Connect(ctx, settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.redisClient = redisClient

		presenceStore := redisstore.NewPresenceStore(redisClient, nodeId(), redisstore.DefaultTTL)
		observers = append(observers, presenceStore)
		lastSeenStore = presenceStore
	}

	var selector broadcaster.RecipientSelector
	switch settings.PresenceScope {
	case presenceScopeSocial:
		selector = broadcaster.NewSocialGraphSelector(registry, engine)
	case presenceScopeAll:
		selector = broadcaster.NewAllOnlineSelector(registry)
	default:
		app.Close()
		return nil, fmt.Errorf("unknown presence scope %q", settings.PresenceScope)
	}

	app.presenceBroadcaster = broadcaster.NewPresenceBroadcaster(
		logger,
		registry,
		dispatcher,
		selector,
		observers...,
	)

	originChecker := server.NewOriginChecker(settings.AllowedOriginList())
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.APIKeyList(), engine)
	userIdValidator := handler.NewUserIdValidator()

	pingHandler := handler.NewPingHandler(dispatcher)
	notifyHandler := handler.NewNotifyHandler(logger, userIdValidator, engine, dispatcher)
	statusHandler := handler.NewStatusHandler(logger, userIdValidator, registry, lastSeenStore)
	inboxHandler := handler.NewInboxHandler(userIdValidator, engine)

	router := server.NewRouter(logger, pingHandler)

	app.websocketServer = server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		registry,
		router,
		server.SessionConfig{
			SendBufferSize: settings.SendBufferSize,
			WriteTimeout:   settings.WriteTimeout(),
			PongTimeout:    settings.PongTimeout(),
		},
	)
	app.restServer = server.NewRESTServer(
		logger,
		authenticator,
		originChecker,
		statusHandler,
		notifyHandler,
		inboxHandler,
	)

	if settings.NATSURL != "" {
		natsConn, err := events.Connect(settings.NATSURL, "realtime-"+nodeId())
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		app.natsConn = natsConn

		app.subscriber = events.NewSubscriber(
			logger,
			natsConn,
			settings.NATSSubject,
			settings.NATSQueue,
			notifyHandler,
		)
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	group, groupCtx := errgroup.WithContext(notifyCtx)

	group.Go(func() error {
		return a.presenceBroadcaster.Run(groupCtx)
	})

	if a.subscriber != nil {
		group.Go(func() error {
			return a.subscriber.Run(groupCtx)
		})
	}

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		a.logger.Info("starting http server",
			zap.String("address", address))

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		a.logger.Info("stopping http server")

		shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCtxCancel()

		a.websocketServer.Shutdown()

		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}

		a.logger.Info("http server stopped")

		return nil
	})

	return group.Wait()
}

func (a *App) Close() {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("failed to drain nats connection", zap.Error(err))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}

	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Warn("failed to disconnect mongodb", zap.Error(err))
		}
	}
}

// nodeId names this process in the presence mirror.
func nodeId() string {
	hostname, err := os.Hostname()
	if err == nil && hostname != "" {
		return hostname
	}

	return gonanoid.Must(8)
}

func main() {
	ctx := context.Background()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		bootLogger, _ := zap.NewDevelopment()
		bootLogger.Fatal("failed to parse settings from environment", zap.Error(err))
	}

	logger, err := buildZapLogger(settings.LogEncoding, settings.LogLevel)
	if err != nil {
		bootLogger, _ := zap.NewDevelopment()
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	app, err := NewApp(ctx, logger, settings)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
	defer app.Close()

	err = app.Run(ctx)
	if err != nil {
		logger.Error("app stopped with error", zap.Error(err))
	}
}
