package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/api/handlers"
	mw "github.com/concordbio/concord/internal/api/middleware"
	"github.com/concordbio/concord/internal/buildconfig"
	"github.com/concordbio/concord/internal/config"
	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/embedding"
	"github.com/concordbio/concord/internal/llm"
	"github.com/concordbio/concord/internal/service"
	"github.com/concordbio/concord/internal/store"
)

// App holds the router and request metrics for lifecycle management.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	ontologyStore := store.NewOntologyStore(db)
	mappingStore := store.NewMappingStore(db)

	// External clients via provider factory
	var embeddingClient domain.EmbeddingClient
	var llmClient domain.LLMClient

	llmProvider := config.LLMProvider()
	embeddingProvider := config.EmbeddingProvider()

	var err error
	llmClient, err = llm.NewClient(llmProvider, config.LLMAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", llmProvider), zap.Error(err))
	} else {
		logger.Info("LLM client initialized", zap.String("provider", llmProvider))
	}

	embeddingClient, err = embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("Embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else {
		logger.Info("Embedding client initialized", zap.String("provider", embeddingProvider))
	}

	// Decision log sink
	sink := decision.NewDirSink(config.DecisionLogDir())

	// Services
	normalizer := service.NewNormalizer(ontologyStore, embeddingClient, llmClient, logger)
	extractor := service.NewPassageExtractor(embeddingClient, llmClient, logger)
	aligner := service.NewAligner(llmClient, normalizer, extractor, logger)
	identifier := service.NewSchemaIdentifier(llmClient, logger)
	pipelineSvc := service.NewPipelineService(aligner, identifier, mappingStore, sink, logger)

	// Handlers
	alignHandler := handlers.NewAlignHandler(pipelineSvc, identifier)
	schemaHandler := handlers.NewSchemaHandler()
	mappingHandler := handlers.NewMappingHandler(mappingStore, logger)
	runHandler := handlers.NewRunHandler(sink, logger)

	r := chi.NewRouter()

	// Initialize app with metrics tracking
	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(metricsCollector.Middleware)                                  // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/align", alignHandler.Align)

		r.Route("/schemas", func(r chi.Router) {
			r.Get("/", schemaHandler.List)
			r.Post("/identify", alignHandler.Identify)
			r.Get("/{name}", schemaHandler.GetByName)
		})

		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", mappingHandler.List)
			r.Put("/{id}", mappingHandler.Update)
		})

		r.Route("/runs/{id}", func(r chi.Router) {
			r.Get("/nodes", runHandler.ListNodes)
			r.Get("/nodes/{nodeID}", runHandler.GetNode)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that don't need the App.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.OntologyStore   = (*store.OntologyStore)(nil)
	_ domain.MappingStore    = (*store.MappingStore)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.LLMClient       = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient       = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
)
