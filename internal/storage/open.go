package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/config"
)

// Open picks the backend from configuration: MongoDB when MONGODB_URI is
// set, otherwise the memory store, snapshotted to DATA_DIR when one is given.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		s, err := NewMongoStore(ctx, MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			ForceTLS12: cfg.MongoTLS,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		log.Info("using mongodb store", zap.String("database", cfg.MongoDatabase))
		return s, nil
	}

	if cfg.DataDir != "" {
		s, err := NewPersistentMemoryStore(cfg.DataDir, log)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		return s, nil
	}

	log.Warn("no MONGODB_URI or DATA_DIR set; data lives in memory only")
	return NewMemoryStore(), nil
}
