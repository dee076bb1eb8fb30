package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

type fakeDenseEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeDenseEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeDenseEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, f.err
}

type fakeSparseEmbedder struct {
	vector domain.SparseVector
	err    error
}

func (f *fakeSparseEmbedder) EmbedQuery(ctx context.Context, text string) (domain.SparseVector, error) {
	return f.vector, f.err
}

func (f *fakeSparseEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]domain.SparseVector, error) {
	out := make([]domain.SparseVector, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, f.err
}

type fakeSearcher struct {
	denseHits    []domain.Candidate
	sparseHits   []domain.Candidate
	denseErr     error
	sparseErr    error
	sparseCalled bool
}

func (f *fakeSearcher) SearchDense(ctx context.Context, vector []float32, limit int) ([]domain.Candidate, error) {
	return f.denseHits, f.denseErr
}

func (f *fakeSearcher) SearchSparse(ctx context.Context, vector domain.SparseVector, limit int) ([]domain.Candidate, error) {
	f.sparseCalled = true
	return f.sparseHits, f.sparseErr
}

type fakeReranker struct {
	scores []float64
	err    error
	panics bool
}

func (f *fakeReranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if f.panics {
		panic("reranker blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	out := make([]float64, len(passages))
	for i := range out {
		out[i] = float64(len(passages) - i)
	}
	return out, nil
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, question string, passages []domain.Candidate) (string, error) {
	return f.answer, f.err
}

type recordingObserver struct {
	completed []string
	degraded  []string
	queryKind string
}

func (r *recordingObserver) StageCompleted(stage string, _ time.Duration) {
	r.completed = append(r.completed, stage)
}

func (r *recordingObserver) StageDegraded(stage string) {
	r.degraded = append(r.degraded, stage)
}

func (r *recordingObserver) QueryCompleted(kind string, _ time.Duration) {
	r.queryKind = kind
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUseCase(dense *fakeDenseEmbedder, sparse *fakeSparseEmbedder, searcher *fakeSearcher, reranker *fakeReranker, generator *fakeGenerator, observer PipelineObserver) *AnswerQueryUseCase {
	return NewAnswerQueryUseCase(dense, sparse, searcher, reranker, generator, PipelineConfig{}, observer, testLogger())
}

func validRequest() domain.QueryRequest {
	return domain.QueryRequest{Channel: "telegram", ChatID: "42", Message: "Как настроить маршрутизацию?"}
}

func someHits() []domain.Candidate {
	return []domain.Candidate{
		{ID: "a", Payload: domain.PassagePayload{URL: "https://docs.example.ru/guide", Title: "Маршрутизация", Text: "текст"}},
		{ID: "b", Payload: domain.PassagePayload{URL: "https://docs.example.ru/faq", Title: "FAQ", Text: "текст"}},
	}
}

func TestHandleQuerySuccess(t *testing.T) {
	observer := &recordingObserver{}
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{vector: domain.SparseVector{Indices: []uint32{1}, Values: []float32{0.5}}},
		&fakeSearcher{denseHits: someHits()},
		&fakeReranker{},
		&fakeGenerator{answer: "Настройте маршрутизацию так."},
		observer,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != "" {
		t.Fatalf("unexpected error envelope: %+v", result)
	}
	if result.Answer == "" {
		t.Error("expected an answer")
	}
	if len(result.Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(result.Sources))
	}
	if result.ProcessingTime <= 0 {
		t.Error("expected processing time to be recorded")
	}
	if result.Channel != "telegram" || result.ChatID != "42" {
		t.Errorf("envelope lost request identity: %+v", result)
	}
	if observer.queryKind != "" {
		t.Errorf("expected success outcome recorded, got %q", observer.queryKind)
	}
	if len(observer.degraded) != 0 {
		t.Errorf("expected no degraded stages, got %v", observer.degraded)
	}
}

func TestHandleQueryEmptyMessage(t *testing.T) {
	uc := newTestUseCase(&fakeDenseEmbedder{}, &fakeSparseEmbedder{}, &fakeSearcher{}, &fakeReranker{}, &fakeGenerator{}, nil)

	result := uc.HandleQuery(context.Background(), domain.QueryRequest{Channel: "web", Message: "   "})
	if result.Error != domain.ErrorQueryProcessing {
		t.Fatalf("expected query_processing_failed, got %q", result.Error)
	}
	if result.Message == "" {
		t.Error("expected a user-facing message")
	}
	if len(result.Sources) != 0 {
		t.Error("expected empty sources on failure")
	}
}

func TestHandleQueryDenseEmbeddingFatal(t *testing.T) {
	uc := newTestUseCase(
		&fakeDenseEmbedder{err: errors.New("model load failed")},
		&fakeSparseEmbedder{},
		&fakeSearcher{},
		&fakeReranker{},
		&fakeGenerator{},
		nil,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != domain.ErrorEmbedding {
		t.Fatalf("expected embedding_failed, got %q", result.Error)
	}
}

func TestHandleQuerySparseEmbeddingDegrades(t *testing.T) {
	observer := &recordingObserver{}
	searcher := &fakeSearcher{denseHits: someHits()}
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{err: errors.New("sparse service down")},
		searcher,
		&fakeReranker{},
		&fakeGenerator{answer: "ответ"},
		observer,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != "" {
		t.Fatalf("expected success despite sparse failure, got %q", result.Error)
	}
	if searcher.sparseCalled {
		t.Error("expected sparse search skipped for empty sparse vector")
	}
	if len(observer.degraded) != 1 || observer.degraded[0] != StageEmbedSparse {
		t.Errorf("expected embed_sparse degradation recorded, got %v", observer.degraded)
	}
}

func TestHandleQueryEmptySparseVectorSkipsSparseSearch(t *testing.T) {
	searcher := &fakeSearcher{denseHits: someHits(), sparseErr: errors.New("should not be called")}
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{},
		searcher,
		&fakeReranker{},
		&fakeGenerator{answer: "ответ"},
		nil,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != "" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if searcher.sparseCalled {
		t.Error("sparse search must be skipped when the sparse vector is empty")
	}
}

func TestHandleQuerySearchFatal(t *testing.T) {
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{},
		&fakeSearcher{denseErr: errors.New("qdrant unavailable")},
		&fakeReranker{},
		&fakeGenerator{},
		nil,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != domain.ErrorSearch {
		t.Fatalf("expected search_failed, got %q", result.Error)
	}
}

func TestHandleQueryNoResultsIsNotSearchFailed(t *testing.T) {
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{},
		&fakeSearcher{},
		&fakeReranker{},
		&fakeGenerator{},
		nil,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != domain.ErrorNoResults {
		t.Fatalf("expected no_results for empty hit set, got %q", result.Error)
	}
}

func TestHandleQueryRerankDegradesToBoostedOrder(t *testing.T) {
	observer := &recordingObserver{}
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{},
		&fakeSearcher{denseHits: someHits()},
		&fakeReranker{err: errors.New("model not loaded")},
		&fakeGenerator{answer: "ответ"},
		observer,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != "" {
		t.Fatalf("expected success despite rerank failure, got %q", result.Error)
	}
	if len(observer.degraded) != 1 || observer.degraded[0] != StageRerank {
		t.Errorf("expected rerank degradation recorded, got %v", observer.degraded)
	}
	if result.Sources[0].URL != "https://docs.example.ru/guide" {
		t.Errorf("expected fused order preserved, got %q", result.Sources[0].URL)
	}
}

func TestHandleQueryGenerateFatal(t *testing.T) {
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{},
		&fakeSearcher{denseHits: someHits()},
		&fakeReranker{},
		&fakeGenerator{err: errors.New("generation pipeline broken")},
		nil,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != domain.ErrorLLM {
		t.Fatalf("expected llm_failed, got %q", result.Error)
	}
}

func TestHandleQueryPanicMapsToInternalError(t *testing.T) {
	observer := &recordingObserver{}
	uc := newTestUseCase(
		&fakeDenseEmbedder{vector: []float32{0.1}},
		&fakeSparseEmbedder{},
		&fakeSearcher{denseHits: someHits()},
		&fakeReranker{panics: true},
		&fakeGenerator{},
		observer,
	)

	result := uc.HandleQuery(context.Background(), validRequest())
	if result.Error != domain.ErrorInternal {
		t.Fatalf("expected internal_error, got %q", result.Error)
	}
	if result.Message == "" {
		t.Error("expected a user-facing message")
	}
	if observer.queryKind != string(domain.ErrorInternal) {
		t.Errorf("expected internal_error outcome recorded, got %q", observer.queryKind)
	}
}

func TestExtractSourcesDeduplicatesByURL(t *testing.T) {
	top := []domain.Candidate{
		{Payload: domain.PassagePayload{URL: "https://docs.example.ru/a", Title: "A"}},
		{Payload: domain.PassagePayload{URL: "https://docs.example.ru/a", Title: "A again"}},
		{Payload: domain.PassagePayload{Title: "no url"}},
		{Payload: domain.PassagePayload{URL: "https://docs.example.ru/b"}},
	}

	sources := extractSources(top)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Title != "A" {
		t.Errorf("expected first title kept, got %q", sources[0].Title)
	}
	if sources[1].Title != "Документация" {
		t.Errorf("expected default title for untitled source, got %q", sources[1].Title)
	}
}
