// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/cache"
	"github.com/relaydesk-ai/support-orchestrator/internal/config"
	"github.com/relaydesk-ai/support-orchestrator/internal/contextbuild"
	"github.com/relaydesk-ai/support-orchestrator/internal/escalation"
	"github.com/relaydesk-ai/support-orchestrator/internal/handler"
	"github.com/relaydesk-ai/support-orchestrator/internal/middleware"
	"github.com/relaydesk-ai/support-orchestrator/internal/notify"
	"github.com/relaydesk-ai/support-orchestrator/internal/orchestrator"
	"github.com/relaydesk-ai/support-orchestrator/internal/relevance"
	"github.com/relaydesk-ai/support-orchestrator/internal/retrieval"
	"github.com/relaydesk-ai/support-orchestrator/internal/service"
	"github.com/relaydesk-ai/support-orchestrator/internal/store"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()

	// Connect to the datastore
	db, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to connect to postgres", zap.Error(err))
		os.Exit(1)
	}

	conversations := store.NewConversationStore(db)
	messages := store.NewMessageStore(db)
	turnMetrics := store.NewMetricsStore(db)
	files := store.NewFileStore(db)

	// Connect to NATS for handoff notifications. Degraded mode without it:
	// escalations still work, the support channel just isn't pinged.
	var notifier notify.Notifier
	natsClient, err := notify.Connect(ctx, notify.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
		Subject:  cfg.NotificationSubject,
	}, log)
	if err != nil {
		log.Warn("failed to connect to NATS, handoff notifications disabled", zap.Error(err))
		natsClient = nil
	} else {
		defer natsClient.Close()
		notifier = natsClient
	}

	// Generative subsystem: Anthropic preferred when configured, OpenAI
	// otherwise.
	var (
		generator orchestrator.Generator
		reviewer  orchestrator.Reviewer
	)
	switch {
	case cfg.AnthropicAPIKey != "":
		client, err := orchestrator.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.GenerationModel, cfg.ReviewModel)
		if err != nil {
			log.Error("failed to create Anthropic client", zap.Error(err))
			os.Exit(1)
		}
		generator, reviewer = client, client
	case cfg.OpenAIAPIKey != "":
		client, err := orchestrator.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.GenerationModel, cfg.ReviewModel)
		if err != nil {
			log.Error("failed to create OpenAI client", zap.Error(err))
			os.Exit(1)
		}
		generator, reviewer = client, client
	default:
		log.Error("no generative provider configured, set ANTHROPIC_API_KEY or OPENAI_API_KEY")
		os.Exit(1)
	}

	agent := orchestrator.New(generator, reviewer, orchestrator.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		HandoffKeywords:     cfg.HandoffKeywords,
		ComplexKeywords:     cfg.ComplexKeywords,
		Attempts:            cfg.GenerationAttempts,
		CallTimeout:         cfg.GenerationTimeout,
	}, log)

	// Retrieval: milvus behind the TTL result cache. Degraded mode without
	// it: every query answers from conversation context alone.
	var searcher retrieval.Searcher
	if cfg.OpenAIAPIKey != "" {
		embedder := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		milvus, err := retrieval.NewMilvusSearcher(ctx, cfg.MilvusEndpoint, cfg.MilvusAPIKey, cfg.MilvusCollection, embedder, log)
		if err != nil {
			log.Warn("failed to connect to milvus, retrieval disabled", zap.Error(err))
		} else {
			defer milvus.Close()
			searcher = milvus
		}
	}
	cached := retrieval.NewCachedSearcher(searcher, cache.New(cfg.CacheTTL), cfg.RetrievalTimeout)

	classifier := relevance.NewClassifier(cfg.GreetingPhrases, cfg.AssistantQuestions, cfg.BusinessKeywords)
	assembler := contextbuild.NewAssembler(files, cfg.ViewerBaseURL)
	workflow := escalation.NewWorkflow(conversations, messages, notifier, log)

	querySvc := service.NewQueryService(conversations, messages, turnMetrics, classifier, cached, assembler, agent, workflow, service.QueryOptions{
		RetrievalLimit:  cfg.RetrievalLimit,
		SimilarityFloor: cfg.SimilarityFloor,
		MaxContextBytes: cfg.MaxContextBytes,
		MaxSources:      cfg.MaxSources,
		Org: relevance.OrgContext{
			Name:        cfg.OrgName,
			Description: cfg.OrgDescription,
		},
		DefaultKBID: cfg.DefaultKBID,
	}, log)
	chatSvc := service.NewChatService(querySvc)
	conversationSvc := service.NewConversationService(conversations, messages, turnMetrics, workflow, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, natsClient)
	queryHandler := handler.NewQueryHandler(querySvc, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.APIKeys))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/query", queryHandler.Query)
		r.Post("/chat", chatHandler.Chat)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Post("/resolve", conversationHandler.Resolve)
				r.Post("/contact", conversationHandler.Contact)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
