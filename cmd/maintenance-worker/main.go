// Command maintenance-worker runs the periodic cleanup jobs: pruning read
// notifications past their retention and expired password reset tokens.
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

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/logger"
	"github.com/eventhub/backend/internal/services"
	"github.com/eventhub/backend/internal/storage"
)

const jobTimeout = 5 * time.Minute

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
	zl = zl.Named("maintenance")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("open store", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}()

	notifications := services.NewNotificationService(store, zl)
	job := &cleanupJob{
		notifications: notifications,
		tokens:        store,
		retention:     cfg.NotificationRetention,
		log:           zl,
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.CleanupSchedule, job.Run); err != nil {
		zl.Fatal("invalid CLEANUP_SCHEDULE", zap.String("schedule", cfg.CleanupSchedule), zap.Error(err))
	}
	c.Start()
	zl.Info("maintenance worker started",
		zap.String("schedule", cfg.CleanupSchedule),
		zap.Duration("notificationRetention", cfg.NotificationRetention),
	)

	// Liveness probe for the container platform.
	addr := ":" + getEnv("PORT", "8081")
	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("health listener", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("stopping maintenance worker")
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type tokenSweeper interface {
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type cleanupJob struct {
	notifications *services.NotificationService
	tokens        tokenSweeper
	retention     time.Duration
	log           *zap.Logger
}

func (j *cleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	removed, err := j.notifications.CleanupRead(ctx, j.retention)
	if err != nil {
		j.log.Error("notification cleanup failed", zap.Error(err))
	} else {
		j.log.Info("old read notifications removed", zap.Int64("count", removed))
	}

	cleared, err := j.tokens.ClearExpiredTokens(ctx, time.Now())
	if err != nil {
		j.log.Error("reset token cleanup failed", zap.Error(err))
	} else if cleared > 0 {
		j.log.Info("expired reset tokens cleared", zap.Int64("count", cleared))
	}

	j.log.Debug("cleanup finished", zap.Duration("took", time.Since(start)))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
