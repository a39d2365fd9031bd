package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fazaachat/internal/adapter/api"
	"fazaachat/internal/adapter/api/handler"
	apimiddleware "fazaachat/internal/adapter/api/middleware"
	"fazaachat/internal/adapter/api/router"
	"fazaachat/internal/app"
	"fazaachat/internal/infrastructure/websocket"
	"fazaachat/pkg/config"
	"fazaachat/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize chat core: %v", err)
		os.Exit(1)
	}

	chat.RateLimiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager(chat.RateLimiter, chat.Metrics)
	wsManager.Start(ctx)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(chat.Verifier)

	router.Setup(e, router.Handlers{
		Chat:      handler.NewChatHandler(chat.ChatUseCase),
		WebSocket: handler.NewWebSocketHandler(wsManager, chat.ChatUseCase),
		Health:    handler.NewHealthHandler(cfg.ChatBackend),
		Metrics:   echo.WrapHandler(promhttp.HandlerFor(chat.Registry, promhttp.HandlerOpts{})),
		Limiter:   chat.RateLimiter,
	}, authMiddleware)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown: %v", err)
	}
	select {
	case <-wsManager.Stopped():
	case <-shutdownCtx.Done():
	}
	chat.Close(shutdownCtx)
	logger.Info("Shutdown complete")
}
