package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	_ "github.com/deckforge/api/docs" // Swagger docs
	"github.com/deckforge/api/internal/brand"
	"github.com/deckforge/api/internal/cache"
	"github.com/deckforge/api/internal/config"
	"github.com/deckforge/api/internal/credentials"
	"github.com/deckforge/api/internal/database"
	"github.com/deckforge/api/internal/economics"
	"github.com/deckforge/api/internal/eventbus"
	"github.com/deckforge/api/internal/graphics"
	"github.com/deckforge/api/internal/handlers"
	"github.com/deckforge/api/internal/middleware"
	"github.com/deckforge/api/internal/orchestration"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/prompts"
	"github.com/deckforge/api/internal/references"
	"github.com/deckforge/api/internal/store"
	"github.com/deckforge/api/internal/telemetry"
	"github.com/deckforge/api/internal/textgen"
	"github.com/deckforge/api/internal/webpage"
)

const (
	serviceName    = "deckforge-api"
	serviceVersion = "0.1.0"
	breakerTimeout = 30 * time.Second
)

// @title DeckForge API
// @version 0.1.0
// @description Generates presentation decks from content, references and brand assets.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	ctx := context.Background()

	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("DeckForge API starting...",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Environment),
		zap.String("text_provider", cfg.TextGen.Provider),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		// Log but don't fail, as collector might be down
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        cfg.DatabaseMaxConns,
		MinConns:        cfg.DatabaseMinConns,
		MaxConnIdleTime: cfg.DatabaseMaxConnIdle,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	st := store.New(db)

	// Brand cache: shared through Redis when available, in-process otherwise
	var brandCache cache.Cache
	rdb, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis, using in-process brand cache", zap.Error(err))
		brandCache = cache.NewMemoryCache(cfg.References.BrandCacheTTL)
	} else {
		defer rdb.Close()
		brandCache = cache.NewRedisCache(rdb.Client(), "deckforge:brand:")
	}

	var publisher eventbus.Publisher
	bus, err := eventbus.Connect(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS, deck events disabled", zap.Error(err))
	} else {
		defer bus.Close()
		publisher = bus
		logger.Info("connected to NATS")
	}
	events := eventbus.NewNotifier(publisher, logger)

	// Text generation: both providers behind one breaker, selected per user
	breaker := textgen.NewBreaker("text-generation", logger)
	var anthropicURL, openaiURL string
	if cfg.TextGen.Provider == "openai" {
		openaiURL = cfg.TextGen.BaseURL
	} else {
		anthropicURL = cfg.TextGen.BaseURL
	}
	text := textgen.NewRouter(cfg.TextGen.Provider,
		textgen.WithBreaker(textgen.NewAnthropicClient(anthropicURL, cfg.TextGen.AnthropicModel, cfg.TextGen.Timeout), breaker),
		textgen.WithBreaker(textgen.NewOpenAIClient(openaiURL, cfg.TextGen.OpenAIModel, cfg.TextGen.Timeout), breaker),
	)

	fetcher := webpage.NewFetcher(cfg.References.FetchTimeout)
	refs := references.NewAggregator(fetcher, cfg.References.MaxChars, logger)
	brandExtractor := brand.NewExtractor(fetcher, brandCache, cfg.References.BrandCacheTTL, logger)

	gopts := graphics.DefaultOptions()
	gopts.Width = cfg.ImageGen.Width
	gopts.Height = cfg.ImageGen.Height
	gopts.PollInterval = cfg.ImageGen.PollInterval
	gopts.MaxPolls = cfg.ImageGen.MaxPolls
	gopts.RequestDelay = cfg.ImageGen.RequestDelay
	gopts.IconConcurrency = cfg.IconGen.Concurrency
	var icons graphics.IconService
	if cfg.IconGen.BaseURL != "" {
		icons = graphics.NewIconClient(cfg.IconGen.BaseURL, 30*time.Second)
	}
	images := graphics.NewImageClient(cfg.ImageGen.BaseURL, cfg.ImageGen.ModelID, 30*time.Second)
	generator := graphics.NewGenerator(images, icons, gopts, logger)

	library, err := prompts.Load()
	if err != nil {
		logger.Fatal("failed to load prompt templates", zap.Error(err))
	}

	svc := pipeline.NewService(text, refs, brandExtractor, generator, library,
		pipeline.Options{Model: cfg.TextGen.Model, MaxTokens: cfg.TextGen.MaxTokens}, logger)

	resolver := credentials.NewResolver(st, credentials.ServerKeys{
		DefaultProvider: cfg.TextGen.Provider,
		TextKeys: map[string]string{
			"anthropic": cfg.ServerTextGenKey("anthropic"),
			"openai":    cfg.ServerTextGenKey("openai"),
		},
		ImageAPIKey: cfg.ImageGen.APIKey,
		IconAPIKey:  cfg.IconGen.APIKey,
	})
	economicService := economics.NewService(db, cfg.MonthlyBudgetUSD, logger)
	recorder := orchestration.NewRecorder(st, st, economicService, events, logger)

	// Async jobs run on Temporal when reachable, otherwise in this process
	var runner orchestration.Runner
	var localRunner *orchestration.LocalRunner
	temporalClient, err := orchestration.Dial(cfg.TemporalHostPort, cfg.TemporalNamespace)
	if err != nil {
		logger.Error("failed to connect to temporal, running jobs in-process", zap.Error(err))
		localRunner = orchestration.NewLocalRunner(svc, resolver, st, recorder, logger)
		runner = localRunner
	} else {
		defer temporalClient.Close()
		w := orchestration.NewWorker(temporalClient, cfg.TemporalTaskQueue, &orchestration.Activities{
			Pipeline: svc,
			Creds:    resolver,
			Jobs:     st,
			Recorder: recorder,
			Logger:   logger,
		})
		if err := w.Start(); err != nil {
			logger.Fatal("failed to start temporal worker", zap.Error(err))
		}
		defer w.Stop()
		runner = orchestration.NewTemporalRunner(temporalClient, cfg.TemporalTaskQueue)
		logger.Info("connected to temporal", zap.String("task_queue", cfg.TemporalTaskQueue))
	}

	checks := map[string]handlers.Check{
		"database": db.Ping,
		"redis":    nil,
		"nats":     nil,
		"temporal": nil,
	}
	if rdb != nil {
		checks["redis"] = rdb.Ping
	}
	if bus != nil {
		checks["nats"] = func(context.Context) error { return bus.Ping() }
	}
	if temporalClient != nil {
		checks["temporal"] = func(ctx context.Context) error {
			_, err := temporalClient.CheckHealth(ctx, &client.CheckHealthRequest{})
			return err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins...))

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(serviceName, serviceVersion, checks)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	authHandler := handlers.NewAuthHandler(st, cfg.JWTSecret, logger)
	settingsHandler := handlers.NewSettingsHandler(st, logger)
	deckHandler := handlers.NewDeckHandler(st, logger)
	brandHandler := handlers.NewBrandHandler(brandExtractor)
	economicsHandler := handlers.NewEconomicsHandler(economicService, logger)
	generationHandler := handlers.NewGenerationHandler(svc, resolver, economicService, st, recorder, runner, logger)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes with default rate limiting
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		protected.Use(middleware.RateLimitMiddleware(middleware.DefaultRateLimiter()))
		{
			protected.GET("/user/me", authHandler.GetCurrentUser)
			protected.GET("/usage", economicsHandler.GetUsage)
			protected.GET("/settings", settingsHandler.GetSettings)
			protected.PUT("/settings", settingsHandler.UpdateSettings)

			protected.GET("/decks", deckHandler.ListDecks)
			protected.GET("/decks/:id", deckHandler.GetDeck)
			protected.PUT("/decks/:id", deckHandler.UpdateDeck)
			protected.DELETE("/decks/:id", deckHandler.DeleteDeck)

			protected.POST("/brand/extract", brandHandler.ExtractBrand)

			protected.GET("/generations/:id", generationHandler.GetGeneration)
			protected.POST("/generations/:id/cancel", generationHandler.CancelGeneration)

			// Generation routes - stricter rate limit + circuit breaker
			generation := protected.Group("")
			generation.Use(middleware.RateLimitMiddleware(middleware.GenerationRateLimiter()))
			generation.Use(middleware.CircuitBreakerMiddleware(breaker, breakerTimeout))
			{
				generation.POST("/decks/generate", generationHandler.GenerateDeck)
				generation.POST("/generations", generationHandler.StartGeneration)
			}
		}
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Synchronous generation runs several model calls and image polls in one request.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.String("runner", runner.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if localRunner != nil {
		localRunner.Shutdown()
	}

	logger.Info("server exited gracefully")
}
