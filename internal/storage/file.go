package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/portalwatch/internal/types"
)

// JSONLStorage stores posts as newline-delimited JSON, one post per line.
// The file is read once on open to rebuild the hash index; new posts are
// appended.
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	posts  []*types.Post
	byHash map[string]int
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONLStorage opens (or creates) a JSONL post file.
func NewJSONLStorage(path string, logger *slog.Logger) (*JSONLStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s := &JSONLStorage{
		path:   path,
		byHash: make(map[string]int),
		logger: logger.With("component", "jsonl_storage"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	s.file = f
	s.enc = json.NewEncoder(f)

	s.logger.Debug("jsonl store opened", "path", path, "posts", len(s.posts))
	return s, nil
}

func (s *JSONLStorage) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var p types.Post
		if err := json.Unmarshal(sc.Bytes(), &p); err != nil {
			return fmt.Errorf("%s:%d: decode post: %w", s.path, line, err)
		}
		s.byHash[p.ContentHash] = len(s.posts)
		s.posts = append(s.posts, &p)
	}
	return sc.Err()
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Exists(_ context.Context, contentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byHash[contentHash]
	return ok, nil
}

func (s *JSONLStorage) Save(_ context.Context, post *types.Post) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
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
	if err := s.enc.Encode(stored); err != nil {
		return "", &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.byHash[stored.ContentHash] = len(s.posts)
	s.posts = append(s.posts, stored)
	return stored.ID, nil
}

func (s *JSONLStorage) Stats(context.Context) (types.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := types.StoreStats{TotalPosts: int64(len(s.posts))}
	for _, p := range s.posts {
		if !p.Sent {
			st.PendingToSend++
		}
	}
	return st, nil
}

func (s *JSONLStorage) Unsent(_ context.Context, limit int) ([]*types.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

// MarkSent flags posts as sent and rewrites the file.
func (s *JSONLStorage) MarkSent(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return types.ErrClosed
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	changed := false
	for _, p := range s.posts {
		if _, ok := want[p.ID]; ok && !p.Sent {
			p.Sent = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.rewrite()
}

// rewrite replaces the file with the in-memory posts. Must be called with mu held.
func (s *JSONLStorage) rewrite() error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, p := range s.posts {
		if err := enc.Encode(p); err != nil {
			f.Close()
			return &types.StorageError{Backend: s.Name(), Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	if err := f.Close(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	if err := s.file.Close(); err != nil {
		s.logger.Warn("close before rewrite failed", "error", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	nf, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.file = nil
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.file = nf
	s.enc = json.NewEncoder(nf)
	return nil
}

func (s *JSONLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.logger.Info("jsonl storage closing", "total_posts", len(s.posts))
	err := s.file.Close()
	s.file = nil
	return err
}
