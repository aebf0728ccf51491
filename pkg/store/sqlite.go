package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/niktheblak/waterlevel-uploader/pkg/document"
	"github.com/niktheblak/waterlevel-uploader/pkg/timestamp"
)

type SQLiteConfig struct {
	// Path is a file path or a complete DSN such as ":memory:" or "file:x.db?mode=ro".
	Path   string
	Table  string
	Logger *slog.Logger
}

type sqliteStore struct {
	db     *sql.DB
	insert string
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLite opens a local document buffer, creating the table if needed.
func NewSQLite(ctx context.Context, cfg SQLiteConfig) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Table == "" {
		cfg.Table = "documents"
	}
	qb, err := NewQueryBuilder(cfg.Table)
	if err != nil {
		return nil, err
	}
	create, err := qb.SQLiteCreateTable()
	if err != nil {
		return nil, err
	}
	insert, err := qb.SQLiteInsert()
	if err != nil {
		return nil, err
	}
	dsn, err := sqliteDSN(cfg.Path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if dsn == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "Ensuring table", slog.String("query", CleanForLogging(create)))
	if _, err := db.ExecContext(ctx, create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", cfg.Table, err)
	}
	return &sqliteStore{
		db:     db,
		insert: insert,
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

func (s *sqliteStore) Create(ctx context.Context, parent Parent, path string, mask Mask, doc *document.Document) ([]byte, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	created := s.now().UTC()
	s.logger.LogAttrs(ctx, slog.LevelDebug, "Inserting document", slog.String("query", CleanForLogging(s.insert)), slog.String("path", path))
	_, err = s.db.ExecContext(ctx, s.insert, parent.ProjectID, parent.Database(), path, string(data), timestamp.UTC().FormatTime(created))
	var sqliteErr sqlite3.Error
	switch {
	case errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	case err != nil:
		return nil, err
	}
	return render(parent, path, mask.Apply(doc), created)
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func sqliteDSN(path string) (string, error) {
	if path == "" || path == ":memory:" {
		return ":memory:", nil
	}
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL", nil
}
