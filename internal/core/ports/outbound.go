package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

// DenseEmbedder produces L2-normalized dense vectors for query and chunk
// text. Failures on the query path are fatal to the pipeline.
type DenseEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SparseEmbedder produces lexical sparse vectors. Implementations degrade
// to an empty vector instead of failing; sparse retrieval is optional and
// must never block the pipeline.
type SparseEmbedder interface {
	EmbedQuery(ctx context.Context, text string) (domain.SparseVector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]domain.SparseVector, error)
}

// VectorSearcher runs the two retrieval channels against the vector store.
type VectorSearcher interface {
	SearchDense(ctx context.Context, vector []float32, limit int) ([]domain.Candidate, error)
	SearchSparse(ctx context.Context, vector domain.SparseVector, limit int) ([]domain.Candidate, error)
}

// VectorIndexer writes chunk points with content-derived ids, so
// re-ingesting identical text overwrites instead of duplicating.
type VectorIndexer interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk, dense [][]float32, sparse []domain.SparseVector) error
}

// Reranker scores query/passage pairs with a cross-encoder relevance
// model in one batched call.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// AnswerGenerator produces the final grounded answer text. Provider
// outages are absorbed inside the implementation (fallback chain plus a
// fixed apology); an error return means the stage itself is broken.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, passages []domain.Candidate) (string, error)
}

// PageRepository persists per-page indexing state.
type PageRepository interface {
	UpsertPage(ctx context.Context, page *domain.Page) error
	GetByURL(ctx context.Context, url string) (*domain.Page, error)
}

// JobRepository persists reindex job state.
type JobRepository interface {
	CreateJob(ctx context.Context, job *domain.ReindexJob) error
	GetJobByID(ctx context.Context, id string) (*domain.ReindexJob, error)
	UpdateJob(ctx context.Context, job *domain.ReindexJob) error
}

// MessageQueue publishes/consumes reindex requests.
type MessageQueue interface {
	PublishReindexRequested(ctx context.Context, jobID string) error
	SubscribeReindexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// SnapshotStorage stores raw crawled payloads for later inspection.
type SnapshotStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Crawler walks the documentation site and returns extracted pages.
type Crawler interface {
	Crawl(ctx context.Context) ([]domain.CrawledPage, error)
}

// Chunker splits extracted page text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// LinkGraph records page outlinks and answers related-page lookups.
type LinkGraph interface {
	SaveOutlinks(ctx context.Context, pageURL, title string, outlinks []string) error
	RelatedPages(ctx context.Context, pageURL string, limit int) ([]domain.RelatedPage, error)
}
