// Package mcpadapter exposes the assistant as MCP tools over stdio, so
// agent hosts can ask documentation questions directly.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
)

type Server struct {
	answerer  ports.QueryAnswerer
	linkGraph ports.LinkGraph
	mcpServer *server.MCPServer
}

func NewServer(answerer ports.QueryAnswerer, linkGraph ports.LinkGraph, version string) *Server {
	s := &Server{
		answerer:  answerer,
		linkGraph: linkGraph,
	}

	mcpServer := server.NewMCPServer("docs-assistant", version)

	askDocs := mcp.NewTool("ask_docs",
		mcp.WithDescription("Ответить на вопрос по документации продукта. Возвращает ответ и список страниц-источников."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Вопрос пользователя на русском языке."),
		),
	)
	mcpServer.AddTool(askDocs, s.handleAskDocs)

	relatedPages := mcp.NewTool("related_pages",
		mcp.WithDescription("Найти страницы документации, связанные ссылками с указанной страницей."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Полный URL страницы документации."),
		),
	)
	mcpServer.AddTool(relatedPages, s.handleRelatedPages)

	s.mcpServer = mcpServer
	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleAskDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question must not be empty"), nil
	}

	result := s.answerer.HandleQuery(ctx, domain.QueryRequest{
		Channel: "mcp",
		Message: question,
	})
	if result.Error != "" {
		return mcp.NewToolResultError(result.Message), nil
	}

	var b strings.Builder
	b.WriteString(result.Answer)
	if len(result.Sources) > 0 {
		b.WriteString("\n\nИсточники:\n")
		for _, source := range result.Sources {
			fmt.Fprintf(&b, "- %s: %s\n", source.Title, source.URL)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleRelatedPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageURL, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pages, err := s.linkGraph.RelatedPages(ctx, pageURL, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("related pages lookup failed: %v", err)), nil
	}
	if len(pages) == 0 {
		return mcp.NewToolResultText("Связанных страниц не найдено."), nil
	}

	payload, err := json.Marshal(pages)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode related pages: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
