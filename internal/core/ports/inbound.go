package ports

import (
	"context"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

// QueryAnswerer is the inbound contract for the retrieval-and-answer
// pipeline. It always returns an envelope; fatal failures are reported
// inside it, never as a Go error.
type QueryAnswerer interface {
	HandleQuery(ctx context.Context, req domain.QueryRequest) *domain.AnswerResult
}

// ReindexScheduler enqueues a crawl-and-index job.
type ReindexScheduler interface {
	Schedule(ctx context.Context, forceFull bool) (*domain.ReindexJob, error)
}

// ReindexRunner executes a previously scheduled job (worker side).
type ReindexRunner interface {
	RunByID(ctx context.Context, jobID string) error
}

// JobReader is the inbound read model for job state.
type JobReader interface {
	GetJobByID(ctx context.Context, id string) (*domain.ReindexJob, error)
}
