package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/config"
	"github.com/atticus-search/atticus/internal/db"
	dbRedis "github.com/atticus-search/atticus/internal/db/redis"
	"github.com/atticus-search/atticus/internal/domain"
	logpkg "github.com/atticus-search/atticus/internal/logger"
	"github.com/atticus-search/atticus/internal/metrics"
	"github.com/atticus-search/atticus/internal/repository/embcache"
	indexrepo "github.com/atticus-search/atticus/internal/repository/index"
	chiTransport "github.com/atticus-search/atticus/internal/transport/chi"
	openaiEmb "github.com/atticus-search/atticus/internal/transport/openai"
	cataloguc "github.com/atticus-search/atticus/internal/usecase/catalog"
	collectionuc "github.com/atticus-search/atticus/internal/usecase/collection"
	funneluc "github.com/atticus-search/atticus/internal/usecase/funnel"
	healthuc "github.com/atticus-search/atticus/internal/usecase/health"
	representuc "github.com/atticus-search/atticus/internal/usecase/represent"
	searchuc "github.com/atticus-search/atticus/internal/usecase/search"
	"github.com/atticus-search/atticus/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting atticus API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Valkey and Redis 8+ speak the same protocol, rueidis covers both.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Build embedders per vectorizer role. The API server embeds queries,
	// so the query instruction is applied.
	coarseCfg, ok := cfg.Embedding.Vectorizers[config.VectorizerCoarse]
	if !ok {
		logger.Fatal("Missing coarse vectorizer config")
	}
	coarseEmb := buildEmbedder(cfg, coarseCfg, config.VectorizerCoarse, coarseCfg.QueryInstruction, store, logger)

	var fineEmb representuc.Embedder
	fineDim := 0
	if fineCfg, ok := cfg.Embedding.Vectorizers[config.VectorizerFine]; ok {
		fineEmb = buildEmbedder(cfg, fineCfg, config.VectorizerFine, fineCfg.QueryInstruction, store, logger)
		fineDim = fineCfg.Dimensions
	}

	var chunkEmb representuc.BatchEmbedder
	chunkDim := 0
	if chunkCfg, ok := cfg.Embedding.Vectorizers[config.VectorizerChunk]; ok {
		chunkEmb = buildEmbedder(cfg, chunkCfg, config.VectorizerChunk, chunkCfg.QueryInstruction, store, logger)
		chunkDim = chunkCfg.Dimensions
	}

	logger.Info("Embedders created",
		zap.String("coarse_model", coarseCfg.Model),
		zap.Int("coarse_dim", coarseCfg.Dimensions),
		zap.Int("fine_dim", fineDim),
		zap.Int("chunk_dim", chunkDim),
	)

	// Index repository
	repo := indexrepo.New(store, indexrepo.Schema{
		DenseDim:        coarseCfg.Dimensions,
		FineDim:         fineDim,
		ChunkDim:        chunkDim,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	}, logger)

	// Use case services
	representSvc := representuc.New(coarseEmb, fineEmb, chunkEmb, representuc.Limits{
		MaxChars:   cfg.Representation.MaxChars,
		ChunkChars: cfg.Representation.ChunkChars,
		MaxChunks:  cfg.Representation.MaxChunks,
	}, logger)

	funnelSvc := funneluc.New(repo, funneluc.Limits{
		PrefetchLimit:  cfg.Search.PrefetchLimit,
		RerankLimit:    cfg.Search.RerankLimit,
		ScoreThreshold: cfg.Search.ScoreThreshold,
	}, logger)

	catalogSvc := cataloguc.New(repo, cfg.Search.CatalogScanLimit, logger)
	collectionSvc := collectionuc.New(repo, logger)

	searchSvc := searchuc.New(representSvc, funnelSvc, repo, catalogSvc, searchuc.Timeouts{
		Embed: time.Duration(cfg.Search.EmbedTimeoutSec) * time.Second,
		Query: time.Duration(cfg.Search.QueryTimeoutSec) * time.Second,
	}, logger)

	healthSvc := healthuc.New(collectionSvc, newEmbeddingHealthChecker(coarseEmb))

	// Create the index schema up front so the first search does not race it.
	if err := collectionSvc.Ensure(ctx); err != nil {
		logger.Fatal("Failed to ensure index schema", zap.Error(err))
	}
	logger.Info("Contract index ready")

	// Create chi server
	server := chiTransport.NewServer(searchSvc, collectionSvc, healthSvc, cfg.Debug, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embedder is the full vectorization surface produced by the decorator chain.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(e domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: e}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(
	cfg config.Config,
	vecCfg config.VectorizerConfig,
	scope string,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) embedder {
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})

	// Cached, keyed per vectorizer role so models never share entries
	var e embedder = base
	if store != nil {
		e = embcache.New(base, store, scope, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost, the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(e, instruction)
	}

	return e
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
