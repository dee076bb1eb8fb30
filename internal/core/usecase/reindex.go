package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
)

// ReindexObserver receives ingestion progress counters.
type ReindexObserver interface {
	PageIndexed(chunks int)
	PageSkipped()
	JobCompleted(status string, duration time.Duration)
}

type noopReindexObserver struct{}

func (noopReindexObserver) PageIndexed(int)                   {}
func (noopReindexObserver) PageSkipped()                      {}
func (noopReindexObserver) JobCompleted(string, time.Duration) {}

// ReindexUseCase schedules and runs crawl-and-index jobs. Scheduling
// persists a queued job and publishes its id; the worker picks the id up
// and drives the crawl, chunking, embedding and upsert steps.
type ReindexUseCase struct {
	crawler   ports.Crawler
	chunker   ports.Chunker
	dense     ports.DenseEmbedder
	sparse    ports.SparseEmbedder
	indexer   ports.VectorIndexer
	pages     ports.PageRepository
	jobs      ports.JobRepository
	queue     ports.MessageQueue
	linkGraph ports.LinkGraph
	observer  ReindexObserver
	logger    *slog.Logger
}

func NewReindexUseCase(
	crawler ports.Crawler,
	chunker ports.Chunker,
	dense ports.DenseEmbedder,
	sparse ports.SparseEmbedder,
	indexer ports.VectorIndexer,
	pages ports.PageRepository,
	jobs ports.JobRepository,
	queue ports.MessageQueue,
	linkGraph ports.LinkGraph,
	observer ReindexObserver,
	logger *slog.Logger,
) *ReindexUseCase {
	if observer == nil {
		observer = noopReindexObserver{}
	}
	return &ReindexUseCase{
		crawler:   crawler,
		chunker:   chunker,
		dense:     dense,
		sparse:    sparse,
		indexer:   indexer,
		pages:     pages,
		jobs:      jobs,
		queue:     queue,
		linkGraph: linkGraph,
		observer:  observer,
		logger:    logger,
	}
}

// Schedule persists a queued job and publishes a reindex request.
func (uc *ReindexUseCase) Schedule(ctx context.Context, forceFull bool) (*domain.ReindexJob, error) {
	now := time.Now().UTC()
	job := &domain.ReindexJob{
		ID:        uuid.NewString(),
		Status:    domain.JobQueued,
		ForceFull: forceFull,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.CreateJob(ctx, job); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "create reindex job", err)
	}
	if err := uc.queue.PublishReindexRequested(ctx, job.ID); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "publish reindex request", err)
	}
	uc.logger.Info("reindex scheduled", "job_id", job.ID, "force_full", forceFull)
	return job, nil
}

// GetJobByID exposes job state for the HTTP read endpoint.
func (uc *ReindexUseCase) GetJobByID(ctx context.Context, id string) (*domain.ReindexJob, error) {
	return uc.jobs.GetJobByID(ctx, id)
}

// RunByID executes a scheduled job end to end. A page that fails to embed
// is skipped with a warning; the job itself fails only when the crawl or
// job bookkeeping fails.
func (uc *ReindexUseCase) RunByID(ctx context.Context, jobID string) error {
	start := time.Now()
	job, err := uc.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return domain.WrapError(domain.ErrNotFound, "load reindex job", err)
	}

	job.Status = domain.JobRunning
	job.UpdatedAt = time.Now().UTC()
	if err := uc.jobs.UpdateJob(ctx, job); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark job running", err)
	}

	crawled, err := uc.crawler.Crawl(ctx)
	if err != nil {
		uc.failJob(ctx, job, err)
		uc.observer.JobCompleted(string(domain.JobFailed), time.Since(start))
		return domain.WrapError(domain.ErrTemporary, "crawl", err)
	}

	for _, page := range crawled {
		indexed, chunkCount, err := uc.indexPage(ctx, page, job.ForceFull)
		if err != nil {
			uc.logger.Warn("page skipped", "url", page.URL, "error", err)
			job.Skipped++
			uc.observer.PageSkipped()
			continue
		}
		if !indexed {
			job.Skipped++
			uc.observer.PageSkipped()
			continue
		}
		job.Pages++
		job.Chunks += chunkCount
		uc.observer.PageIndexed(chunkCount)
	}

	job.Status = domain.JobDone
	job.UpdatedAt = time.Now().UTC()
	if err := uc.jobs.UpdateJob(ctx, job); err != nil {
		return domain.WrapError(domain.ErrTemporary, "mark job done", err)
	}
	uc.observer.JobCompleted(string(domain.JobDone), time.Since(start))
	uc.logger.Info("reindex finished",
		"job_id", job.ID,
		"pages", job.Pages,
		"chunks", job.Chunks,
		"skipped", job.Skipped,
		"duration", time.Since(start))
	return nil
}

// indexPage chunks, embeds and upserts one crawled page. Returns false
// without error when the page content is unchanged and the run is
// incremental.
func (uc *ReindexUseCase) indexPage(ctx context.Context, page domain.CrawledPage, forceFull bool) (bool, int, error) {
	contentHash := textHash(page.Text)
	if !forceFull {
		existing, err := uc.pages.GetByURL(ctx, page.URL)
		if err == nil && existing != nil && existing.ContentHash == contentHash {
			return false, 0, nil
		}
	}

	pageType := classifyPage(page.URL)
	texts := uc.chunker.Split(page.Text)
	if len(texts) == 0 {
		return false, 0, nil
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for _, text := range texts {
		chunks = append(chunks, domain.Chunk{
			Text: text,
			Payload: domain.PassagePayload{
				URL:      page.URL,
				Title:    page.Title,
				Text:     text,
				PageType: pageType,
				Source:   "docs-site",
				Language: "ru",
			},
		})
	}

	dense, err := uc.dense.EmbedBatch(ctx, texts)
	if err != nil {
		return false, 0, domain.WrapError(domain.ErrTemporary, "embed page chunks", err)
	}

	sparse, err := uc.sparse.EmbedBatch(ctx, texts)
	if err != nil {
		// Sparse vectors are optional at index time too.
		uc.logger.Warn("sparse embedding unavailable for page", "url", page.URL, "error", err)
		sparse = make([]domain.SparseVector, len(texts))
	}

	if err := uc.indexer.UpsertChunks(ctx, chunks, dense, sparse); err != nil {
		return false, 0, domain.WrapError(domain.ErrTemporary, "upsert chunks", err)
	}

	if err := uc.pages.UpsertPage(ctx, &domain.Page{
		URL:         page.URL,
		Title:       page.Title,
		PageType:    pageType,
		ContentHash: contentHash,
		ChunkCount:  len(chunks),
		IndexedAt:   time.Now().UTC(),
	}); err != nil {
		return false, 0, domain.WrapError(domain.ErrTemporary, "save page record", err)
	}

	if uc.linkGraph != nil {
		if err := uc.linkGraph.SaveOutlinks(ctx, page.URL, page.Title, page.Outlinks); err != nil {
			uc.logger.Warn("link graph update failed", "url", page.URL, "error", err)
		}
	}
	return true, len(chunks), nil
}

func (uc *ReindexUseCase) failJob(ctx context.Context, job *domain.ReindexJob, cause error) {
	job.Status = domain.JobFailed
	job.Error = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	if err := uc.jobs.UpdateJob(ctx, job); err != nil {
		uc.logger.Error("failed to persist job failure", "job_id", job.ID, "error", err)
	}
}

// classifyPage derives a coarse page type from the URL path.
func classifyPage(url string) string {
	low := strings.ToLower(url)
	switch {
	case strings.Contains(low, "faq"):
		return "faq"
	case strings.Contains(low, "api"):
		return "api"
	case strings.Contains(low, "release"), strings.Contains(low, "changelog"):
		return "release_notes"
	default:
		return "guide"
	}
}

// textHash is the content fingerprint used both for incremental skip
// checks and for deterministic point ids.
func textHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
