package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/handlers"
	"github.com/eventhub/backend/internal/logger"
	"github.com/eventhub/backend/internal/realtime"
	"github.com/eventhub/backend/internal/services"
	"github.com/eventhub/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	store, err := storage.Open(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			zl.Warn("closing store", zap.Error(err))
		}
	}()

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpiration, cfg.JWTRefreshExpiration)
	auth := services.NewAuthService(store, tokens, services.NewMailer(cfg.Mail, zl), zl, services.AuthOptions{
		BcryptCost:       cfg.BcryptCost,
		ExposeResetToken: cfg.IsDevelopment(),
	})

	notifications := services.NewNotificationService(store, zl)
	effects := services.NewEffects(store, notifications, nil, zl)
	chat := services.NewChatService(store, effects, zl)

	backend, err := services.NewImageBackend(ctx, cfg.Upload)
	if err != nil {
		return err
	}
	var moderator services.ImageModerator
	if cfg.Upload.ImageModeration {
		m, err := services.NewSafeSearchModerator(ctx, zl)
		if err != nil {
			zl.Warn("image moderation disabled", zap.Error(err))
		} else {
			moderator = m
		}
	}

	uploadDir := ""
	if local, ok := backend.(*services.LocalBackend); ok {
		uploadDir = local.Dir()
	}

	registry := realtime.NewRegistry()
	relay := realtime.NewRelay(registry, auth, chat, notifications, allowedOrigins(cfg), zl.Named("realtime"))
	effects.SetPusher(relay)

	router := handlers.NewRouter(handlers.RouterConfig{
		Version:        cfg.Version,
		Env:            cfg.Env,
		AllowedOrigins: allowedOrigins(cfg),
		RateLimit:      cfg.RateLimit,
		MaxUploadSize:  cfg.Upload.MaxFileSize,
		UploadDir:      uploadDir,
		AccessLog:      cfg.IsDevelopment(),
	}, handlers.Services{
		Auth:          auth,
		Captcha:       services.NewRecaptchaVerifier(cfg.RecaptchaSecret, zl),
		Events:        services.NewEventService(store, effects, zl),
		Reports:       services.NewReportService(store, effects, cfg.ReportThreshold, zl),
		Chat:          chat,
		Notifications: notifications,
		Admin:         services.NewAdminService(store, effects, zl),
		Images:        services.NewImageService(backend, moderator, cfg.Upload.MaxFileSize, cfg.Upload.AllowedTypes, zl),
		Relay:         relay,
	}, zl)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("EventHub API server starting",
			zap.String("addr", cfg.ServerAddress),
			zap.String("env", cfg.Env),
			zap.String("version", cfg.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	registry.Clear()
	return srv.Shutdown(shutdownCtx)
}

// allowedOrigins is the CORS and websocket origin allow-list. Development
// accepts any origin.
func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	var out []string
	for _, o := range []string{cfg.FrontendURL, cfg.AdminURL} {
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
