package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/config"
	dbRedis "github.com/kailas-cloud/posedex/internal/db/redis"
	"github.com/kailas-cloud/posedex/internal/domain"
	logpkg "github.com/kailas-cloud/posedex/internal/logger"
	"github.com/kailas-cloud/posedex/internal/metrics"
	corpusrepo "github.com/kailas-cloud/posedex/internal/repository/corpus"
	"github.com/kailas-cloud/posedex/internal/repository/embcache"
	"github.com/kailas-cloud/posedex/internal/repository/imagestore"
	chiTransport "github.com/kailas-cloud/posedex/internal/transport/chi"
	"github.com/kailas-cloud/posedex/internal/transport/inference"
	openaiEmb "github.com/kailas-cloud/posedex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/posedex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/posedex/internal/usecase/health"
	poseuc "github.com/kailas-cloud/posedex/internal/usecase/pose"
	searchuc "github.com/kailas-cloud/posedex/internal/usecase/search"
	"github.com/kailas-cloud/posedex/internal/version"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("POSEDEX_DOTENV")); err != nil {
		panic(err.Error())
	}

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

	logger.Info("Starting posedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus", cfg.Corpus.Path),
		zap.String("images_driver", cfg.Images.Driver),
		zap.String("text_provider", cfg.Semantic.TextProvider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterInferenceMetrics()
	metrics.RegisterSearchMetrics()

	// A missing or malformed corpus is served as a 503 until a reload succeeds.
	holder := corpusrepo.NewHolder(cfg.Corpus.Path, logger)

	images, err := openImages(cfg.Images, logger)
	if err != nil {
		logger.Fatal("Failed to open image store", zap.Error(err))
	}
	defer func() { _ = images.Close() }()

	poseClient := inference.NewPoseClient(&inference.Config{
		BaseURL:    cfg.Pose.BaseURL,
		Timeout:    time.Duration(cfg.Pose.TimeoutSec) * time.Second,
		Dimensions: cfg.Pose.Dimensions,
		Logger:     logger,
	})
	clipClient := inference.NewCLIPClient(&inference.Config{
		BaseURL:    cfg.Semantic.BaseURL,
		Timeout:    time.Duration(cfg.Semantic.TimeoutSec) * time.Second,
		Dimensions: cfg.Semantic.Dimensions,
		Logger:     logger,
	})

	ctx := context.Background()
	var cache *dbRedis.Store
	if cfg.Cache.Enabled {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Build the semantic chain: provider -> cache -> instrumented.
	textBase, textChecker, provName := buildTextProvider(cfg.Semantic, clipClient, logger)
	var text domain.TextEmbedder = textBase
	if cache != nil {
		text = embcache.New(text, cache, provName, time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger)
	}
	semantic := embeddinguc.NewInstrumentedEmbedder(
		domain.SemanticPair{Text: text, Image: clipClient}, provName, logger,
	)

	// Prompt prefix applies to search queries only.
	var queryText domain.TextEmbedder = semantic
	if cfg.Semantic.TextPrompt != "" {
		queryText = domain.NewPromptEmbedder(semantic, cfg.Semantic.TextPrompt)
	}

	ranker, err := searchuc.NewRanker(searchuc.WithParallel(cfg.Search.Workers, cfg.Search.ParallelThreshold))
	if err != nil {
		logger.Fatal("Failed to create ranker", zap.Error(err))
	}
	defer ranker.Release()

	searchSvc := searchuc.New(
		holder,
		poseClient,
		queryText,
		ranker,
		searchuc.NewHydrator(images, logger),
		searchuc.Config{ConcurrentTextEmbedding: cfg.Search.ConcurrentTextEmbedding},
		logger,
	)
	poseSvc := poseuc.New(poseClient)
	embeddingSvc := embeddinguc.New(semantic)

	deps := []healthuc.Dependency{
		{Name: "pose", Checker: poseClient},
		{Name: "semantic", Checker: clipClient},
	}
	if textChecker != nil {
		deps = append(deps, healthuc.Dependency{Name: "text_provider", Checker: textChecker})
	}
	if cache != nil {
		deps = append(deps, healthuc.Dependency{Name: "cache", Checker: healthuc.PingerFunc(cache.Ping)})
	}
	healthSvc := healthuc.New(holder, deps...)

	server := chiTransport.NewServer(searchSvc, poseSvc, embeddingSvc, holder, healthSvc, logger).
		WithDetectorDefault(*cfg.Pose.UseBBoxDetector)

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEvent(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// SIGHUP reloads the corpus in place.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := holder.Reload(); err != nil {
				logger.Error("Corpus reload failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	signal.Stop(hup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openImages(cfg config.ImagesConfig, logger *zap.Logger) (imagestore.Store, error) {
	switch cfg.Driver {
	case config.ImageDriverBadger:
		return imagestore.OpenBadger(cfg.BadgerDir, true, logger)
	default:
		return imagestore.OpenFS(cfg.Root)
	}
}

// buildTextProvider returns the text embedder, an extra health checker when it is
// not the CLIP service, and the cache namespace naming the vector space.
func buildTextProvider(
	cfg config.SemanticConfig,
	clip *inference.CLIPClient,
	logger *zap.Logger,
) (domain.TextEmbedder, domain.HealthChecker, string) {
	if cfg.TextProvider != config.TextProviderOpenAI {
		return clip, nil, config.TextProviderCLIP
	}
	emb := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.Dimensions,
		Logger:     logger,
	})
	// Config validation guarantees an explicit model; it must match the corpus CLIP space.
	logger.Info("Using OpenAI-compatible text embeddings",
		zap.String("model", emb.Model()), zap.String("base_url", cfg.OpenAI.BaseURL))
	return emb, emb, config.TextProviderOpenAI + ":" + emb.Model()
}
