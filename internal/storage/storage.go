package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/types"
)

// ErrDuplicateHash is returned by Save when the content hash is already stored.
var ErrDuplicateHash = errors.New("content hash already stored")

// Store is the interface for all post storage backends.
type Store interface {
	// Exists reports whether a post with the given content hash is stored.
	Exists(ctx context.Context, contentHash string) (bool, error)

	// Save persists a new post and returns its ID. Saving a post whose hash
	// is already stored is an error.
	Save(ctx context.Context, post *types.Post) (string, error)

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (types.StoreStats, error)

	// Unsent returns up to limit posts not yet marked sent, oldest first.
	// A limit <= 0 returns all of them.
	Unsent(ctx context.Context, limit int) ([]*types.Post, error)

	// MarkSent flags posts as delivered.
	MarkSent(ctx context.Context, ids ...string) error

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open creates the backend selected by cfg.Type.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "mongodb":
		return NewMongoStorage(ctx, cfg.URI, cfg.Database, cfg.Collection, logger)
	case "sqlite":
		return NewSQLiteStorage(ctx, cfg.Path, logger)
	case "jsonl":
		return NewJSONLStorage(cfg.Path, logger)
	case "memory":
		return NewMemoryStorage(logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
