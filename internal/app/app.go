// Package app builds the chat object graph from configuration. It is shared
// by the API server and the chatctl CLI.
package app

import (
	"context"
	"fmt"

	fbapp "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"fazaachat/internal/adapter/api/middleware"
	"fazaachat/internal/adapter/repository"
	domainrepo "fazaachat/internal/domain/repository"
	"fazaachat/internal/domain/service"
	"fazaachat/internal/infrastructure/firebase"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/internal/infrastructure/notification"
	"fazaachat/internal/infrastructure/ratelimit"
	"fazaachat/internal/usecase"
	"fazaachat/pkg/config"
	"fazaachat/pkg/logger"
)

type App struct {
	Config      *config.Config
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	RateLimiter *ratelimit.RateLimiter
	Typing      *service.TypingTracker
	Dispatcher  *service.NotificationDispatcher
	Directory   *service.DirectoryLookup
	ChatUseCase *usecase.ChatUseCase
	Verifier    middleware.TokenVerifier

	// Memory is set when the memory backend is selected.
	Memory *repository.MemoryStore

	closers []func() error
}

type backends struct {
	messages      domainrepo.MessageRepository
	conversations domainrepo.ConversationRepository
	typing        domainrepo.TypingRepository
	directory     domainrepo.DirectoryRepository
}

// New wires every component selected by cfg. On error, whatever was opened
// so far is closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
	}
	if err := a.build(ctx); err != nil {
		a.closeClients()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	a.Metrics = metrics.New(a.Registry)

	var fb *fbapp.App
	if cfg.UsesFirebase() {
		var err error
		if fb, err = newFirebaseApp(ctx, cfg); err != nil {
			return err
		}
	}

	b, err := a.buildBackends(ctx, fb)
	if err != nil {
		return err
	}

	notifier, err := a.buildNotifier(ctx, fb)
	if err != nil {
		return err
	}

	if err := a.buildVerifier(ctx, fb); err != nil {
		return err
	}

	a.RateLimiter = ratelimit.NewRateLimiter(cfg.SendRatePerSec, cfg.SendRateBurst)
	a.Typing = service.NewTypingTracker(b.typing, cfg.TypingExpiry, a.Metrics)
	a.Directory = service.NewDirectoryLookup(b.directory)
	a.Dispatcher = service.NewNotificationDispatcher(notifier, a.Directory, cfg.NotificationTimeout, a.Metrics)

	a.ChatUseCase = usecase.NewChatUseCase(usecase.SessionDeps{
		Messages:      service.NewMessageStore(b.messages, a.Metrics),
		Conversations: b.conversations,
		Typing:        a.Typing,
		Dispatcher:    a.Dispatcher,
		Metrics:       a.Metrics,
	}, a.RateLimiter)

	logger.Info("Chat core ready: backend=%s typing=%s notifier=%s", cfg.ChatBackend, typingBackendName(cfg), cfg.Notifier)
	return nil
}

func typingBackendName(cfg *config.Config) string {
	if cfg.TypingBackend == "" {
		return cfg.ChatBackend
	}
	return cfg.TypingBackend
}

func newFirebaseApp(ctx context.Context, cfg *config.Config) (*fbapp.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.ServiceAccountJSON != "":
		logger.Info("Using Firebase service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.ServiceAccountPath != "":
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountPath))
	default:
		logger.Info("Using application default credentials for Firebase")
	}

	fb, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:   cfg.FirebaseProject,
		DatabaseURL: cfg.FirebaseDatabaseURL,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}
	return fb, nil
}

func (a *App) buildBackends(ctx context.Context, fb *fbapp.App) (*backends, error) {
	cfg := a.Config
	b := &backends{}

	switch cfg.ChatBackend {
	case config.BackendMemory:
		a.Memory = repository.NewMemoryStore()
		b.messages = a.Memory.Messages()
		b.conversations = a.Memory.Conversations()
		b.typing = a.Memory.Typing()
		b.directory = a.Memory.Directory()

	case config.BackendFirestore:
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		b.messages = repository.NewFirestoreMessageRepository(client)
		b.conversations = repository.NewFirestoreConversationRepository(client)
		b.typing = repository.NewFirestoreTypingRepository(client)
		b.directory = repository.NewFirestoreUserRepository(client)

	case config.BackendRTDB:
		client, err := fb.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Realtime Database client: %w", err)
		}
		b.messages = repository.NewRTDBMessageRepository(client, cfg.RTDBPollInterval)
		b.conversations = repository.NewRTDBConversationRepository(client)
		b.typing = repository.NewRTDBTypingRepository(client, cfg.RTDBPollInterval)
		b.directory = repository.NewRTDBUserRepository(client)

	default:
		return nil, fmt.Errorf("unknown chat backend %q", cfg.ChatBackend)
	}

	if cfg.TypingBackend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		b.typing = repository.NewRedisTypingRepository(client, 2*cfg.TypingExpiry)
	}
	return b, nil
}

func (a *App) buildNotifier(ctx context.Context, fb *fbapp.App) (service.Notifier, error) {
	cfg := a.Config
	switch cfg.Notifier {
	case config.NotifierGateway:
		return notification.NewGatewayNotifier(cfg.FCMGatewayURL, cfg.FCMServerKey, cfg.NotificationClick, cfg.NotificationTimeout), nil
	case config.NotifierFCM:
		client, err := fb.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase Messaging: %w", err)
		}
		return notification.NewFCMNotifier(client, cfg.NotificationClick), nil
	default:
		return notification.LogNotifier{}, nil
	}
}

func (a *App) buildVerifier(ctx context.Context, fb *fbapp.App) error {
	if fb == nil {
		logger.Warn("Firebase is not configured; accepting development tokens (%s<uid>)", firebase.DevTokenPrefix)
		a.Verifier = firebase.DevTokenVerifier{}
		return nil
	}
	authClient, err := fb.Auth(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Firebase Auth: %w", err)
	}
	a.Verifier = firebase.NewFirebaseAuthClient(authClient)
	return nil
}

// Close clears pending typing flags, waits for in-flight notifications and
// closes backend clients.
func (a *App) Close(ctx context.Context) {
	if a.Typing != nil {
		a.Typing.Close(ctx)
	}
	if a.Dispatcher != nil {
		done := make(chan struct{})
		go func() {
			a.Dispatcher.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("Shutdown: gave up waiting for in-flight notifications")
		}
	}
	a.closeClients()
}

func (a *App) closeClients() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Shutdown: failed to close client: %v", err)
		}
	}
	a.closers = nil
}
