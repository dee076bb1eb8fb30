package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/docs-assistant/internal/adapters/http"
	"github.com/kirillkom/docs-assistant/internal/bootstrap"
	"github.com/kirillkom/docs-assistant/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "api", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	validator, err := httpadapter.NewOpenAPIValidator()
	if err != nil {
		log.Fatalf("openapi validator error: %v", err)
	}

	router := httpadapter.NewRouter(
		app.AnswerUC,
		app.ReindexUC,
		app.ReindexUC,
		app.LinkGraph,
		validator,
		app.QueryMetrics,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.QueryMetrics.Handler())
	mux.Handle("/", app.QueryMetrics.Middleware(router.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api shutdown error", "error", err)
	}
}
