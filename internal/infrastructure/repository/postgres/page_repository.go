package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pages (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	page_type TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	indexed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_page_type ON pages(page_type);
CREATE INDEX IF NOT EXISTS idx_pages_indexed_at ON pages(indexed_at DESC);

CREATE TABLE IF NOT EXISTS reindex_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	force_full BOOLEAN NOT NULL DEFAULT FALSE,
	pages INTEGER NOT NULL DEFAULT 0,
	chunks INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reindex_jobs_created_at ON reindex_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PageRepository) UpsertPage(ctx context.Context, page *domain.Page) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pages (url, title, page_type, content_hash, chunk_count, indexed_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (url) DO UPDATE
SET title = EXCLUDED.title,
	page_type = EXCLUDED.page_type,
	content_hash = EXCLUDED.content_hash,
	chunk_count = EXCLUDED.chunk_count,
	indexed_at = EXCLUDED.indexed_at
`, page.URL, page.Title, page.PageType, page.ContentHash, page.ChunkCount, page.IndexedAt)
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

func (r *PageRepository) GetByURL(ctx context.Context, url string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT url, title, page_type, content_hash, chunk_count, indexed_at
FROM pages
WHERE url = $1
`, url)

	var page domain.Page
	err := row.Scan(&page.URL, &page.Title, &page.PageType, &page.ContentHash, &page.ChunkCount, &page.IndexedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get page", fmt.Errorf("url=%s", url))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	return &page, nil
}
