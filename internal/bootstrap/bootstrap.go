// Package bootstrap wires configuration, infrastructure and use cases
// into runnable api/worker/mcp processes.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/docs-assistant/internal/config"
	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
	"github.com/kirillkom/docs-assistant/internal/core/usecase"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/crawler"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/embedding/cache"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/embedding/onnx"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/embedding/sparse"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/extractor/pdfdoc"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docs-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/docs-assistant/internal/observability/logging"
	"github.com/kirillkom/docs-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Jobs      ports.JobRepository
	LinkGraph ports.LinkGraph

	AnswerUC  *usecase.AnswerQueryUseCase
	ReindexUC *usecase.ReindexUseCase

	QueryMetrics   *metrics.QueryMetrics
	ReindexMetrics *metrics.ReindexMetrics

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pages := postgres.NewPageRepository(db)
	if err := pages.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobs := postgres.NewJobRepository(db)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	snapshots, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init snapshot storage: %w", err)
	}

	queryMetrics := metrics.NewQueryMetrics(service)
	reindexMetrics := metrics.NewReindexMetrics(service)

	denseModel := onnx.NewDenseEmbedder(cfg.EmbeddingModel, cfg.ModelCacheDir)
	var dense ports.DenseEmbedder = denseModel
	var sparseEmbedder ports.SparseEmbedder = sparse.NewClient(cfg.SparseServiceURL, cfg.SparseEnabled, logger)
	if cfg.CacheEnabled {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		dense = cache.NewDenseCache(dense, ttl)
		sparseEmbedder = cache.NewSparseCache(sparseEmbedder, ttl)
	}

	reranker := onnx.NewCrossEncoder(cfg.RerankerModel, cfg.ModelCacheDir, cfg.RerankerParallelism)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantAPIKey, cfg.QdrantHNSWEf)

	providers := llm.OrderProviders(cfg.DefaultLLM,
		llm.NewYandexProvider(llm.YandexConfig{
			APIURL:    cfg.YandexAPIURL,
			APIKey:    cfg.YandexAPIKey,
			CatalogID: cfg.YandexCatalogID,
			Model:     cfg.YandexModel,
			MaxTokens: cfg.YandexMaxTokens,
		}),
		llm.NewChatProvider(llm.ChatConfig{
			Name:    "GPT5",
			APIKey:  cfg.GPT5APIKey,
			BaseURL: cfg.GPT5BaseURL,
			Model:   cfg.GPT5Model,
		}),
		llm.NewChatProvider(llm.ChatConfig{
			Name:    "DEEPSEEK",
			APIKey:  cfg.DeepSeekAPIKey,
			BaseURL: cfg.DeepSeekBaseURL,
			Model:   cfg.DeepSeekModel,
		}),
	)
	generator := llm.NewGenerator(providers, cfg.AnswerMaxTokens, logger)

	var linkGraph ports.LinkGraph
	var closeLinkGraph func()
	if cfg.Neo4jURI != "" {
		graph, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return nil, fmt.Errorf("init link graph: %w", err)
		}
		linkGraph = graph
		closeLinkGraph = func() {
			_ = graph.Close(context.Background())
		}
	} else {
		linkGraph = noopLinkGraph{}
	}

	siteCrawler := crawler.New(crawler.Config{
		BaseURL:     cfg.CrawlBaseURL,
		MaxPages:    cfg.CrawlMaxPages,
		Concurrency: cfg.CrawlConcurrency,
		RPS:         cfg.CrawlRPS,
	}, snapshots, map[string]crawler.AttachmentExtractor{
		".pdf":  pdfdoc.New(),
		".xlsx": spreadsheet.New(),
		".txt":  plaintext.New(),
	}, logger)

	chunker := chunking.NewSplitter(0, 0)

	answerUC := usecase.NewAnswerQueryUseCase(
		dense,
		sparseEmbedder,
		vectorDB,
		reranker,
		generator,
		usecase.PipelineConfig{
			CandidateLimit: cfg.CandidateLimit,
			RerankTopN:     cfg.RerankTopN,
			RRFK:           cfg.RRFK,
			DenseWeight:    cfg.DenseWeight,
			SparseWeight:   cfg.SparseWeight,
		},
		queryMetrics,
		logger,
	)

	reindexUC := usecase.NewReindexUseCase(
		siteCrawler,
		chunker,
		dense,
		sparseEmbedder,
		vectorDB,
		pages,
		jobs,
		queue,
		linkGraph,
		reindexMetrics,
		logger,
	)

	return &App{
		Config:         cfg,
		Logger:         logger,
		Queue:          queue,
		Jobs:           jobs,
		LinkGraph:      linkGraph,
		AnswerUC:       answerUC,
		ReindexUC:      reindexUC,
		QueryMetrics:   queryMetrics,
		ReindexMetrics: reindexMetrics,

		closeFn: func() {
			queue.Close()
			_ = reranker.Close()
			_ = denseModel.Close()
			if closeLinkGraph != nil {
				closeLinkGraph()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// noopLinkGraph stands in when no graph database is configured.
type noopLinkGraph struct{}

func (noopLinkGraph) SaveOutlinks(context.Context, string, string, []string) error {
	return nil
}

func (noopLinkGraph) RelatedPages(context.Context, string, int) ([]domain.RelatedPage, error) {
	return nil, nil
}
