package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/antoniostano/minaai/internal/background"
	"github.com/antoniostano/minaai/internal/chatflow"
	"github.com/antoniostano/minaai/internal/clock"
	"github.com/antoniostano/minaai/internal/config"
	"github.com/antoniostano/minaai/internal/embeddings"
	"github.com/antoniostano/minaai/internal/httpapi"
	"github.com/antoniostano/minaai/internal/intent"
	"github.com/antoniostano/minaai/internal/knowledge"
	"github.com/antoniostano/minaai/internal/llm"
	"github.com/antoniostano/minaai/internal/memory"
	"github.com/antoniostano/minaai/internal/observability"
	"github.com/antoniostano/minaai/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	clk := clock.NewBusiness(cfg.BusinessUTCOffset)

	ctx := context.Background()
	store, err := memory.NewStore(ctx, cfg.DatabaseURL, clk)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("memory store: in-memory (DATABASE_URL not set)")
	} else {
		log.Printf("memory store: postgres")
	}

	openaiClient := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))

	pool := background.NewPool(cfg.BackgroundWorkers, cfg.BackgroundQueue)
	pool.SetDepthGauge(metrics.SetBackgroundQueueDepth)

	mem := memory.NewManager(
		store,
		summarizer.NewOpenAI(openaiClient, cfg.SummaryModel),
		clk,
		pool,
		cfg.SessionTimeout,
		metrics,
	)

	kb, err := knowledge.New(ctx, cfg.CRMDatabaseURL, embeddings.New(openaiClient, cfg.EmbeddingModel), cfg.CompanyID)
	if err != nil {
		log.Fatalf("knowledge service init failed: %v", err)
	}
	defer kb.Close()

	flow := chatflow.New(
		mem,
		intent.NewAnalyzer(openaiClient, cfg.UnderstandingModel),
		kb,
		llm.NewResponder(openaiClient, cfg.ChatModel),
		metrics,
	)

	api := httpapi.New(cfg, flow, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	// Let in-flight turn appends and compactions land before exit.
	if err := pool.Close(cfg.ShutdownTimeout); err != nil {
		log.Printf("background drain: %v", err)
	}

	log.Printf("shutdown complete")
}
