package mock

import (
	"context"

	"github.com/IshaanNene/portalwatch/internal/storage"
	"github.com/IshaanNene/portalwatch/internal/types"
)

var _ storage.Store = (*Store)(nil)

// Store is a mock implementation of storage.Store. Nil function fields
// behave like an empty store that accepts every save.
type Store struct {
	ExistsFn   func(ctx context.Context, contentHash string) (bool, error)
	SaveFn     func(ctx context.Context, post *types.Post) (string, error)
	StatsFn    func(ctx context.Context) (types.StoreStats, error)
	UnsentFn   func(ctx context.Context, limit int) ([]*types.Post, error)
	MarkSentFn func(ctx context.Context, ids ...string) error
	CloseFn    func() error

	Saved  []*types.Post
	Closed int
}

func (s *Store) Name() string { return "mock" }

func (s *Store) Exists(ctx context.Context, contentHash string) (bool, error) {
	if s.ExistsFn == nil {
		return false, nil
	}
	return s.ExistsFn(ctx, contentHash)
}

func (s *Store) Save(ctx context.Context, post *types.Post) (string, error) {
	if s.SaveFn != nil {
		id, err := s.SaveFn(ctx, post)
		if err == nil {
			s.Saved = append(s.Saved, post)
		}
		return id, err
	}
	s.Saved = append(s.Saved, post)
	return post.ContentHash, nil
}

func (s *Store) Stats(ctx context.Context) (types.StoreStats, error) {
	if s.StatsFn == nil {
		return types.StoreStats{TotalPosts: int64(len(s.Saved)), PendingToSend: int64(len(s.Saved))}, nil
	}
	return s.StatsFn(ctx)
}

func (s *Store) Unsent(ctx context.Context, limit int) ([]*types.Post, error) {
	if s.UnsentFn == nil {
		return nil, nil
	}
	return s.UnsentFn(ctx, limit)
}

func (s *Store) MarkSent(ctx context.Context, ids ...string) error {
	if s.MarkSentFn == nil {
		return nil
	}
	return s.MarkSentFn(ctx, ids...)
}

func (s *Store) Close() error {
	s.Closed++
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
