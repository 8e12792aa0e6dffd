package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk/internal/catalog"
	"orderdesk/internal/chat"
	"orderdesk/internal/draft"
	"orderdesk/internal/extract"
	"orderdesk/internal/gateway/config"
	"orderdesk/internal/gateway/handler"
	"orderdesk/internal/gateway/repository/document"
	"orderdesk/internal/gateway/server"
	llmclient "orderdesk/internal/llmClient"
	"orderdesk/internal/orders"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	llm, err := llmclient.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("reasoning engine: %v", err)
	}
	defer llm.Close()

	catalogStore := catalog.NewFromEnv()
	ordersStore := orders.NewFromEnv()

	var docs document.Store = document.NewMemoryStore()
	if cfg.Document.Enabled {
		s3, err := document.NewS3Store(document.S3Config{
			Endpoint:  cfg.Document.Endpoint,
			Region:    cfg.Document.Region,
			AccessKey: cfg.Document.AccessKey,
			SecretKey: cfg.Document.SecretKey,
			Bucket:    cfg.Document.Bucket,
			UseSSL:    cfg.Document.UseSSL,
		})
		if err != nil {
			log.Printf("document s3 store unavailable, using memory: %v", err)
		} else {
			docs = s3
		}
	}

	generator := &draft.Generator{LLM: llm}
	svc := handler.NewService(
		generator,
		&extract.Extractor{LLM: llm},
		catalogStore,
		ordersStore,
		chat.NewManager(generator, catalogStore, ordersStore),
		docs,
		slog.Default(),
	)

	srv := server.New(cfg.Port, server.NewMux(svc))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server: %v", err)
		}
	case sig := <-stop:
		log.Printf("shutting down on %s", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
