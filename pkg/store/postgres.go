package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/niktheblak/waterlevel-uploader/pkg/document"
)

const pgUniqueViolation = "23505"

type PostgresConfig struct {
	ConnString string
	Table      string
	Logger     *slog.Logger
}

type postgresStore struct {
	pool   *pgxpool.Pool
	insert string
	logger *slog.Logger
	now    func() time.Time
}

func NewPostgres(ctx context.Context, cfg PostgresConfig) (Store, error) {
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
	create, err := qb.PostgresCreateTable()
	if err != nil {
		return nil, err
	}
	insert, err := qb.PostgresInsert()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, err
	}
	cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "Ensuring table", slog.String("query", CleanForLogging(create)))
	if _, err := pool.Exec(ctx, create); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table %s: %w", cfg.Table, err)
	}
	return &postgresStore{
		pool:   pool,
		insert: insert,
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

func (s *postgresStore) Create(ctx context.Context, parent Parent, path string, mask Mask, doc *document.Document) ([]byte, error) {
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
	_, err = s.pool.Exec(ctx, s.insert, parent.ProjectID, parent.Database(), path, string(data), created)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	case err != nil:
		return nil, err
	}
	return render(parent, path, mask.Apply(doc), created)
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
