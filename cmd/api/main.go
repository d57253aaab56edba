package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"bunkmate/internal/adapter/api"
	"bunkmate/internal/adapter/api/handler"
	apimiddleware "bunkmate/internal/adapter/api/middleware"
	"bunkmate/internal/adapter/api/router"
	"bunkmate/internal/adapter/repository"
	"bunkmate/internal/adapter/repository/memory"
	"bunkmate/internal/domain/entity"
	domainrepo "bunkmate/internal/domain/repository"
	"bunkmate/internal/infrastructure/cache"
	"bunkmate/internal/infrastructure/firebase"
	"bunkmate/internal/infrastructure/metrics"
	"bunkmate/internal/infrastructure/notification"
	"bunkmate/internal/infrastructure/ratelimit"
	"bunkmate/internal/infrastructure/storage"
	"bunkmate/internal/infrastructure/websocket"
	"bunkmate/internal/usecase"
	"bunkmate/pkg/config"
	"bunkmate/pkg/logger"
)

// backend is everything that differs between the Firestore and memory stores.
type backend struct {
	users    domainrepo.UserRepository
	chats    domainrepo.DirectChatRepository
	groups   domainrepo.GroupRepository
	messages domainrepo.MessageRepository
	tokens   domainrepo.DeliveryTokenRepository

	identity usecase.IdentityProvider
	icons    usecase.IconStorage
	fcm      notification.Transport

	checks  map[string]handler.HealthCheck
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func fatal(format string, v ...interface{}) {
	logger.Error(format, v...)
	logger.Sync()
	os.Exit(1)
}

func credentials(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	}
	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); err != nil {
			fatal("Service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
	}
	logger.Info("Using application default credentials")
	return nil
}

func newFirestoreBackend(ctx context.Context, cfg *config.Config) *backend {
	opts := credentials(cfg)

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:     cfg.FirebaseProject,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		fatal("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		fatal("Failed to initialize Firebase Auth: %v", err)
	}
	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		fatal("Failed to initialize Firebase Messaging: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		fatal("Failed to create Firestore client: %v", err)
	}

	b := &backend{
		users:    repository.NewFirestoreUserRepository(firestoreClient),
		chats:    repository.NewFirestoreDirectChatRepository(firestoreClient),
		groups:   repository.NewFirestoreGroupRepository(firestoreClient),
		messages: repository.NewFirestoreMessageRepository(firestoreClient),
		tokens:   repository.NewFirestoreDeliveryTokenRepository(firestoreClient),
		identity: firebase.NewFirebaseAuthClient(authClient),
		fcm:      firebase.NewFCMTransport(messagingClient),
		checks: map[string]handler.HealthCheck{
			"firestore": func(ctx context.Context) error { return repository.Ping(ctx, firestoreClient) },
		},
		closers: []func(){func() { firestoreClient.Close() }},
	}

	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
		if err != nil {
			fatal("Failed to initialize Cloud Storage: %v", err)
		}
		b.icons = storageClient
		b.closers = append(b.closers, func() { storageClient.Close() })
	} else {
		logger.Warn("STORAGE_BUCKET not set, group icon uploads are disabled")
	}
	return b
}

func newMemoryBackend() *backend {
	logger.Warn("Running on the in-memory store with development tokens; data is lost on restart")
	store := memory.NewStore()
	return &backend{
		users:    memory.NewUserRepository(store),
		chats:    memory.NewDirectChatRepository(store),
		groups:   memory.NewGroupRepository(store),
		messages: memory.NewMessageRepository(store),
		tokens:   memory.NewDeliveryTokenRepository(store),
		identity: firebase.DevIdentityProvider{},
		checks:   map[string]handler.HealthCheck{},
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var b *backend
	if cfg.Store == "memory" {
		b = newMemoryBackend()
	} else {
		b = newFirestoreBackend(ctx, cfg)
	}
	defer b.close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			fatal("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		b.checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	tokenCache := cache.NewTokenCache(redisClient, b.tokens, time.Duration(cfg.TokenCacheTTL)*time.Second)

	m := metrics.New()
	limiter := ratelimit.NewRateLimiter(cfg.SendRatePerMinute, cfg.SendBurst)
	limiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager(nil, m)
	dispatcher := notification.NewDispatcher(wsManager, tokenCache, m)
	if b.fcm != nil {
		dispatcher.Register(entity.TokenFCM, b.fcm)
	}
	if cfg.WebPushEnabled() {
		dispatcher.Register(entity.TokenWebPush, notification.NewWebPushTransport(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey))
	}

	viewers := usecase.NewViewerRegistry(usecase.ViewerDeps{
		ChatRepo:    b.chats,
		GroupRepo:   b.groups,
		MessageRepo: b.messages,
		UserRepo:    b.users,
		Notifier:    dispatcher,
		Feed:        wsManager,
		Metrics:     m,
	})
	wsManager.SetRoomWatcher(viewers)

	userUseCase := usecase.NewUserUseCase(b.users)
	chatUseCase := usecase.NewDirectChatUseCase(b.chats, b.messages, b.users, limiter)
	groupUseCase := usecase.NewGroupChatUseCase(b.groups, b.messages, b.users, b.icons, limiter, cfg.InviteOrigin).
		WithSystemGroups(cfg.SystemGroupIDs...)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.InviteOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("6M"))
	e.Use(m.Middleware())
	e.Validator = api.NewValidator()

	router.Setup(e, handler.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		Group:     handler.NewGroupHandler(groupUseCase),
		User:      handler.NewUserHandler(userUseCase, chatUseCase),
		Device:    handler.NewDeviceHandler(tokenCache),
		WebSocket: handler.NewWebSocketHandler(ctx, wsManager, cfg.InviteOrigin),
		Health:    handler.NewHealthHandler(b.checks),
	}, router.Options{
		Auth:      apimiddleware.NewAuthMiddleware(b.identity, userUseCase),
		Limiter:   limiter,
		Metrics:   m,
		DevTokens: cfg.Store == "memory",
	})

	go func() {
		logger.Info("Starting server on port %s (store=%s)", cfg.ServerPort, cfg.Store)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	wsManager.CloseAll()
	viewers.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
