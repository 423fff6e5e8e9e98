package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/adapters/cache"
	"github.com/sooahkim/childcenter-chat/internal/adapters/database"
	"github.com/sooahkim/childcenter-chat/internal/adapters/retriever"
	"github.com/sooahkim/childcenter-chat/internal/adapters/search"
	"github.com/sooahkim/childcenter-chat/internal/adapters/session"
	"github.com/sooahkim/childcenter-chat/internal/api/handlers"
	"github.com/sooahkim/childcenter-chat/internal/api/middleware"
	"github.com/sooahkim/childcenter-chat/internal/api/routes"
	"github.com/sooahkim/childcenter-chat/internal/application/services"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/postgres"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/redis"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/runpod"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/typesense"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/observability"
	"github.com/sooahkim/childcenter-chat/pkg/config"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry is optional; the service runs without it
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// PostgreSQL is the only hard dependency
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	// Redis is optional: without it sessions are memoryless and the
	// intent cache is disabled
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without sessions and caching")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Msg("Redis client initialized")
	}

	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, name lookup falls back to SQL")
		typesenseClient = nil
	} else {
		log.Info().Msg("Typesense client initialized")
	}

	// The generative backend is optional: without it the chat degrades
	// to deterministic answers and reports are disabled
	var llm providers.LLMProvider
	var embedder providers.Embedder
	if cfg.LLM.BaseURL != "" {
		runpodClient, err := runpod.NewClient(&cfg.LLM)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize generative backend client")
		} else {
			llm = runpodClient
			if cfg.LLM.EmbedURL != "" {
				embedder = runpodClient
			}
			log.Info().Msg("generative backend client initialized")
		}
	} else {
		log.Warn().Msg("RUNPOD_API_URL is not set; running with deterministic answers only")
	}

	// Adapters
	centerAdapter := database.NewCenterAdapter(pgClient)
	forecastAdapter := database.NewForecastAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	var sessionStore providers.SessionStore
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		sessionStore = session.NewRedisStore(redisClient)
	}

	var nameSearcher services.NameSearcher
	if typesenseClient != nil {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := typesenseClient.InitSchema(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to init Typesense schema")
		}
		nameSearcher = adapter
	}

	var policyRetriever, factsRetriever providers.PassageRetriever
	if embedder != nil {
		policyRetriever = retriever.NewPgvectorRetriever(pgClient, embedder, "policy_docs")
		factsRetriever = retriever.NewPgvectorRetriever(pgClient, embedder, "db_facts")
	}

	// Services
	classifier := services.NewIntentClassifier(llm, cacheProvider, metrics)
	geoSearch := services.NewGeoSearchService(centerAdapter, metrics)
	memory := services.NewSessionMemory(sessionStore)
	composer := services.NewResponseComposer(llm, cfg.LLM.ChatTimeout)
	chatService := services.NewChatService(centerAdapter, classifier, geoSearch, memory, composer, nameSearcher)

	var reportService *services.ReportService
	if llm != nil {
		reportService = services.NewReportService(
			forecastAdapter,
			centerAdapter,
			policyRetriever,
			factsRetriever,
			llm,
			cfg.LLM.ReportTimeout,
		)
	}

	// Handlers
	chatHandler := handlers.NewChatHandler(chatService)
	centerHandler := handlers.NewCenterHandler(centerAdapter)

	var reportHandler *handlers.ReportHandler
	if reportService != nil {
		reportHandler = handlers.NewReportHandler(reportService)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
	}

	router := routes.NewRouter(chatHandler, centerHandler, reportHandler, cacheMiddleware, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.ReportTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
