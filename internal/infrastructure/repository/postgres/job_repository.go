package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.ReindexJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO reindex_jobs (id, status, force_full, pages, chunks, skipped, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, job.ID, string(job.Status), job.ForceFull, job.Pages, job.Chunks, job.Skipped, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create reindex job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetJobByID(ctx context.Context, id string) (*domain.ReindexJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, force_full, pages, chunks, skipped, error_message, created_at, updated_at
FROM reindex_jobs
WHERE id = $1
`, id)

	var job domain.ReindexJob
	var status string
	err := row.Scan(&job.ID, &status, &job.ForceFull, &job.Pages, &job.Chunks, &job.Skipped, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get reindex job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan reindex job: %w", err)
	}
	job.Status = domain.ReindexJobStatus(status)
	return &job, nil
}

func (r *JobRepository) UpdateJob(ctx context.Context, job *domain.ReindexJob) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE reindex_jobs
SET status = $2, pages = $3, chunks = $4, skipped = $5, error_message = $6, updated_at = $7
WHERE id = $1
`, job.ID, string(job.Status), job.Pages, job.Chunks, job.Skipped, job.Error, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reindex job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reindex job rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update reindex job", fmt.Errorf("id=%s", job.ID))
	}
	return nil
}
