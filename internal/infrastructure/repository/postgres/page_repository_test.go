package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

func newPageRepoWithMock(t *testing.T) (*PageRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &PageRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestUpsertPageInsertsRecord(t *testing.T) {
	repo, mock, done := newPageRepoWithMock(t)
	defer done()

	indexedAt := time.Now().UTC()
	mock.ExpectExec("INSERT INTO pages").
		WithArgs("https://docs.example.ru/guide", "Гид", "guide", "abc123", 4, indexedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertPage(context.Background(), &domain.Page{
		URL:         "https://docs.example.ru/guide",
		Title:       "Гид",
		PageType:    "guide",
		ContentHash: "abc123",
		ChunkCount:  4,
		IndexedAt:   indexedAt,
	})
	if err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByURLReturnsPage(t *testing.T) {
	repo, mock, done := newPageRepoWithMock(t)
	defer done()

	indexedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"url", "title", "page_type", "content_hash", "chunk_count", "indexed_at"}).
		AddRow("https://docs.example.ru/faq", "FAQ", "faq", "hash1", 2, indexedAt)
	mock.ExpectQuery("SELECT url, title, page_type, content_hash").
		WithArgs("https://docs.example.ru/faq").
		WillReturnRows(rows)

	page, err := repo.GetByURL(context.Background(), "https://docs.example.ru/faq")
	if err != nil {
		t.Fatalf("GetByURL: %v", err)
	}
	if page.PageType != "faq" || page.ContentHash != "hash1" || page.ChunkCount != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByURLReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newPageRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT url, title, page_type, content_hash").
		WithArgs("https://docs.example.ru/missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByURL(context.Background(), "https://docs.example.ru/missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
