package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/portalwatch/internal/types"
)

// MemoryStorage keeps posts in process memory. Used for dry runs and replay.
type MemoryStorage struct {
	mu     sync.RWMutex
	posts  []*types.Post
	byHash map[string]*types.Post
	closed bool
	logger *slog.Logger
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	return &MemoryStorage{
		byHash: make(map[string]*types.Post),
		logger: logger.With("component", "memory_storage"),
	}
}

func (s *MemoryStorage) Name() string { return "memory" }

func (s *MemoryStorage) Exists(_ context.Context, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, types.ErrClosed
	}
	_, ok := s.byHash[contentHash]
	return ok, nil
}

func (s *MemoryStorage) Save(_ context.Context, post *types.Post) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", types.ErrClosed
	}
	if _, ok := s.byHash[post.ContentHash]; ok {
		return "", ErrDuplicateHash
	}

	stored := post.Clone()
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.posts = append(s.posts, stored)
	s.byHash[stored.ContentHash] = stored

	s.logger.Debug("post stored", "id", stored.ID, "total", len(s.posts))
	return stored.ID, nil
}

func (s *MemoryStorage) Stats(context.Context) (types.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.StoreStats{TotalPosts: int64(len(s.posts))}
	for _, p := range s.posts {
		if !p.Sent {
			st.PendingToSend++
		}
	}
	return st, nil
}

func (s *MemoryStorage) Unsent(_ context.Context, limit int) ([]*types.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Post
	for _, p := range s.posts {
		if p.Sent {
			continue
		}
		out = append(out, p.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStorage) MarkSent(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, p := range s.posts {
		if _, ok := want[p.ID]; ok {
			p.Sent = true
		}
	}
	return nil
}

// Posts returns copies of all stored posts in insertion order.
func (s *MemoryStorage) Posts() []*types.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Post, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Clone()
	}
	return out
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
