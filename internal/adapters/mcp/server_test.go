package mcpadapter

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

type fakeAnswerer struct {
	result *domain.AnswerResult
}

func (f *fakeAnswerer) HandleQuery(_ context.Context, _ domain.QueryRequest) *domain.AnswerResult {
	return f.result
}

type fakeLinkGraph struct {
	pages []domain.RelatedPage
}

func (f *fakeLinkGraph) SaveOutlinks(_ context.Context, _, _ string, _ []string) error {
	return nil
}

func (f *fakeLinkGraph) RelatedPages(_ context.Context, _ string, _ int) ([]domain.RelatedPage, error) {
	return f.pages, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestAskDocsReturnsAnswerWithSources(t *testing.T) {
	answerer := &fakeAnswerer{result: &domain.AnswerResult{
		Answer:  "Настройте маршрут в панели администрирования.",
		Sources: []domain.Source{{Title: "Гид", URL: "https://docs.example.ru/guide"}},
	}}
	srv := NewServer(answerer, &fakeLinkGraph{}, "test")

	result, err := srv.handleAskDocs(context.Background(), callRequest(map[string]any{
		"question": "Как настроить маршрутизацию?",
	}))
	if err != nil {
		t.Fatalf("handleAskDocs: %v", err)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "Настройте маршрут") {
		t.Errorf("answer missing: %q", text)
	}
	if !strings.Contains(text, "https://docs.example.ru/guide") {
		t.Errorf("source missing: %q", text)
	}
}

func TestAskDocsPipelineFailureReturnsToolError(t *testing.T) {
	answerer := &fakeAnswerer{result: domain.FailedAnswer(domain.ErrorNoResults, domain.QueryRequest{})}
	srv := NewServer(answerer, &fakeLinkGraph{}, "test")

	result, err := srv.handleAskDocs(context.Background(), callRequest(map[string]any{
		"question": "абракадабра",
	}))
	if err != nil {
		t.Fatalf("handleAskDocs: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestAskDocsEmptyQuestionReturnsToolError(t *testing.T) {
	srv := NewServer(&fakeAnswerer{}, &fakeLinkGraph{}, "test")

	result, err := srv.handleAskDocs(context.Background(), callRequest(map[string]any{
		"question": "   ",
	}))
	if err != nil {
		t.Fatalf("handleAskDocs: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error result")
	}
}

func TestRelatedPagesListsNeighbours(t *testing.T) {
	graph := &fakeLinkGraph{pages: []domain.RelatedPage{
		{URL: "https://docs.example.ru/faq", Title: "FAQ"},
	}}
	srv := NewServer(&fakeAnswerer{}, graph, "test")

	result, err := srv.handleRelatedPages(context.Background(), callRequest(map[string]any{
		"url": "https://docs.example.ru/guide",
	}))
	if err != nil {
		t.Fatalf("handleRelatedPages: %v", err)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "https://docs.example.ru/faq") {
		t.Errorf("neighbour missing: %q", text)
	}
}
