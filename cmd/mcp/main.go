package main

import (
	"context"
	"log"

	mcpadapter "github.com/kirillkom/docs-assistant/internal/adapters/mcp"
	"github.com/kirillkom/docs-assistant/internal/bootstrap"
	"github.com/kirillkom/docs-assistant/internal/config"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app, err := bootstrap.New(context.Background(), "mcp", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.AnswerUC, app.LinkGraph, version)
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
