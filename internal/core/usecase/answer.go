package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
)

// Pipeline stage names used in logs and metrics.
const (
	StageNormalize      = "normalize"
	StageEmbedDense     = "embed_dense"
	StageEmbedSparse    = "embed_sparse"
	StageHybridSearch   = "hybrid_search"
	StageRerank         = "rerank"
	StageGenerate       = "generate"
	StageExtractSources = "extract_sources"
)

// PipelineObserver receives stage timings and outcomes. Implementations
// must be non-blocking and must never fail the pipeline.
type PipelineObserver interface {
	StageCompleted(stage string, duration time.Duration)
	StageDegraded(stage string)
	QueryCompleted(errorKind string, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) StageCompleted(string, time.Duration) {}
func (noopObserver) StageDegraded(string)                 {}
func (noopObserver) QueryCompleted(string, time.Duration) {}

// PipelineConfig holds the retrieval tuning knobs of one orchestrator.
type PipelineConfig struct {
	CandidateLimit int
	RerankTopN     int
	RRFK           int
	DenseWeight    float64
	SparseWeight   float64
}

// AnswerQueryUseCase sequences the retrieval-and-answer pipeline:
// Normalize, EmbedDense, EmbedSparse, HybridSearch, Rerank, Generate,
// ExtractSources. Each stage either advances, substitutes a degraded
// value and advances, or terminates the run with an error envelope.
type AnswerQueryUseCase struct {
	dense     ports.DenseEmbedder
	sparse    ports.SparseEmbedder
	searcher  ports.VectorSearcher
	reranker  ports.Reranker
	generator ports.AnswerGenerator
	cfg       PipelineConfig
	observer  PipelineObserver
	logger    *slog.Logger
}

func NewAnswerQueryUseCase(
	dense ports.DenseEmbedder,
	sparse ports.SparseEmbedder,
	searcher ports.VectorSearcher,
	reranker ports.Reranker,
	generator ports.AnswerGenerator,
	cfg PipelineConfig,
	observer PipelineObserver,
	logger *slog.Logger,
) *AnswerQueryUseCase {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 20
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = 10
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60
	}
	if cfg.DenseWeight <= 0 {
		cfg.DenseWeight = 1.0
	}
	if cfg.SparseWeight <= 0 {
		cfg.SparseWeight = 1.0
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &AnswerQueryUseCase{
		dense:     dense,
		sparse:    sparse,
		searcher:  searcher,
		reranker:  reranker,
		generator: generator,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

// HandleQuery runs one pipeline instance to completion. It always returns
// an envelope; unexpected faults are caught at this boundary and mapped
// to internal_error without leaking details to the caller.
func (uc *AnswerQueryUseCase) HandleQuery(ctx context.Context, req domain.QueryRequest) (result *domain.AnswerResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("unexpected pipeline fault", "panic", r, "channel", req.Channel)
			result = domain.FailedAnswer(domain.ErrorInternal, req)
		}
		kind := ""
		if result != nil {
			kind = string(result.Error)
		}
		uc.observer.QueryCompleted(kind, time.Since(start))
	}()

	// Normalize.
	stageStart := time.Now()
	query, err := normalizeQuery(req.Message)
	if err != nil {
		uc.logger.Error("query normalization failed", "error", err)
		return domain.FailedAnswer(domain.ErrorQueryProcessing, req)
	}
	uc.observer.StageCompleted(StageNormalize, time.Since(stageStart))

	// EmbedDense. Fatal on failure.
	stageStart = time.Now()
	denseVec, err := uc.dense.EmbedQuery(ctx, query.Normalized)
	if err != nil {
		uc.logger.Error("dense embedding failed", "error", err)
		return domain.FailedAnswer(domain.ErrorEmbedding, req)
	}
	uc.observer.StageCompleted(StageEmbedDense, time.Since(stageStart))

	// EmbedSparse. Degrades to an empty vector.
	stageStart = time.Now()
	sparseVec, err := uc.sparse.EmbedQuery(ctx, query.Normalized)
	if err != nil {
		uc.logger.Warn("sparse embedding failed, continuing dense-only", "error", err)
		uc.observer.StageDegraded(StageEmbedSparse)
		sparseVec = domain.SparseVector{}
	} else {
		uc.observer.StageCompleted(StageEmbedSparse, time.Since(stageStart))
	}

	// HybridSearch. Fatal on error, terminal on empty result.
	stageStart = time.Now()
	candidates, err := uc.hybridSearch(ctx, denseVec, sparseVec, query.Boosts)
	if err != nil {
		uc.logger.Error("hybrid search failed", "error", err)
		return domain.FailedAnswer(domain.ErrorSearch, req)
	}
	if len(candidates) == 0 {
		uc.logger.Warn("no candidates found", "query", query.Normalized)
		return domain.FailedAnswer(domain.ErrorNoResults, req)
	}
	uc.observer.StageCompleted(StageHybridSearch, time.Since(stageStart))

	// Rerank. Degrades to the head of the boosted order.
	stageStart = time.Now()
	top, err := uc.rerank(ctx, query.Normalized, candidates)
	if err != nil {
		uc.logger.Warn("reranking failed, using fused order", "error", err)
		uc.observer.StageDegraded(StageRerank)
		top = trimCandidates(candidates, uc.cfg.RerankTopN)
	} else {
		uc.observer.StageCompleted(StageRerank, time.Since(stageStart))
	}

	// Generate. Fatal on failure; provider outages are absorbed below
	// this call and do not surface as an error here.
	stageStart = time.Now()
	answer, err := uc.generator.GenerateAnswer(ctx, query.Normalized, top)
	if err != nil {
		uc.logger.Error("answer generation failed", "error", err)
		return domain.FailedAnswer(domain.ErrorLLM, req)
	}
	uc.observer.StageCompleted(StageGenerate, time.Since(stageStart))

	// ExtractSources. Best effort.
	stageStart = time.Now()
	sources := extractSources(top)
	uc.observer.StageCompleted(StageExtractSources, time.Since(stageStart))

	total := time.Since(start)
	uc.logger.Info("query processed",
		"channel", req.Channel,
		"candidates", len(candidates),
		"sources", len(sources),
		"duration", total)

	return &domain.AnswerResult{
		Answer:         answer,
		Sources:        sources,
		Channel:        req.Channel,
		ChatID:         req.ChatID,
		ProcessingTime: total.Seconds(),
	}
}

// hybridSearch runs both retrieval channels and fuses the results. The
// sparse channel is skipped entirely when the sparse vector is empty.
func (uc *AnswerQueryUseCase) hybridSearch(ctx context.Context, dense []float32, sparse domain.SparseVector, boosts map[string]float64) ([]domain.Candidate, error) {
	denseHits, err := uc.searcher.SearchDense(ctx, dense, uc.cfg.CandidateLimit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "dense search", err)
	}

	var sparseHits []domain.Candidate
	if !sparse.IsEmpty() {
		sparseHits, err = uc.searcher.SearchSparse(ctx, sparse, uc.cfg.CandidateLimit)
		if err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "sparse search", err)
		}
	}

	fused := fuseCandidatesRRF(denseHits, sparseHits, uc.cfg.RRFK, uc.cfg.DenseWeight, uc.cfg.SparseWeight)
	fused = applyMetadataBoosts(fused, boosts)
	return trimCandidates(fused, uc.cfg.CandidateLimit), nil
}

func (uc *AnswerQueryUseCase) rerank(ctx context.Context, query string, candidates []domain.Candidate) ([]domain.Candidate, error) {
	passages := buildRerankPairs(candidates)
	scores, err := uc.reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	return applyRerankScores(candidates, scores, uc.cfg.RerankTopN)
}

// extractSources collects title/url references in rerank order,
// deduplicated by URL. Passages without a URL are omitted.
func extractSources(top []domain.Candidate) []domain.Source {
	sources := make([]domain.Source, 0, len(top))
	seen := make(map[string]struct{}, len(top))
	for _, c := range top {
		url := c.Payload.URL
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		title := c.Payload.Title
		if title == "" {
			title = "Документация"
		}
		sources = append(sources, domain.Source{Title: title, URL: url})
	}
	return sources
}
