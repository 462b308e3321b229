package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/portalwatch/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	raw_content  TEXT NOT NULL,
	author       TEXT NOT NULL DEFAULT '',
	posted_time  TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL UNIQUE,
	created_at   TEXT NOT NULL,
	sent         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS posts_sent_created ON posts (sent, created_at);
`

// sqliteTime is fixed-width so created_at sorts lexically.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage stores posts in a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStorage opens the database at path, creating the schema if
// needed. Use ":memory:" for an in-memory database.
func NewSQLiteStorage(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Exists(ctx context.Context, contentHash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts WHERE content_hash = ?`, contentHash).Scan(&n)
	if err != nil {
		return false, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, post *types.Post) (string, error) {
	id := uuid.NewString()
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, content, raw_content, author, posted_time, content_hash, created_at, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, id, post.Title, post.Content, post.RawContent, post.Author, post.PostedTime, post.ContentHash,
		createdAt.UTC().Format(sqliteTime))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", ErrDuplicateHash
		}
		return "", &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.logger.Debug("post stored", "id", id)
	return id, nil
}

func (s *SQLiteStorage) Stats(ctx context.Context) (types.StoreStats, error) {
	var st types.StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1), COALESCE(SUM(CASE WHEN sent = 0 THEN 1 ELSE 0 END), 0) FROM posts
	`).Scan(&st.TotalPosts, &st.PendingToSend)
	if err != nil {
		return st, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return st, nil
}

func (s *SQLiteStorage) Unsent(ctx context.Context, limit int) ([]*types.Post, error) {
	query := `
		SELECT id, title, content, raw_content, author, posted_time, content_hash, created_at, sent
		FROM posts WHERE sent = 0 ORDER BY created_at, rowid`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer rows.Close()

	var out []*types.Post
	for rows.Next() {
		var (
			p         types.Post
			createdAt string
			sent      int
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.RawContent, &p.Author, &p.PostedTime,
			&p.ContentHash, &createdAt, &sent); err != nil {
			return nil, &types.StorageError{Backend: s.Name(), Err: err}
		}
		p.CreatedAt, _ = time.Parse(sqliteTime, createdAt)
		p.Sent = sent != 0
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) MarkSent(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET sent = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("sqlite storage closing", "path", s.path)
	return s.db.Close()
}
