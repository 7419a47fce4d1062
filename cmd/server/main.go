package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/memorymate/backend/internal/auth"
	"github.com/memorymate/backend/internal/config"
	"github.com/memorymate/backend/internal/database"
	"github.com/memorymate/backend/internal/games"
	"github.com/memorymate/backend/internal/generator"
	"github.com/memorymate/backend/internal/intake"
	"github.com/memorymate/backend/internal/logging"
	"github.com/memorymate/backend/internal/metrics"
	"github.com/memorymate/backend/internal/middleware"
	"github.com/memorymate/backend/internal/narration"
	"github.com/memorymate/backend/internal/play"
	"github.com/memorymate/backend/internal/scoring"
	"github.com/memorymate/backend/internal/store"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	backend, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open game store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()
	gameStore := store.NewGameStore(backend, logger)
	logger.Info("Game store ready", zap.String("backend", cfg.StoreBackend))

	// Initialize generator
	llm, err := generator.NewClient(ctx, generator.ClientConfig{
		Provider:        cfg.GeneratorProvider,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize generator client", zap.Error(err))
	}

	prompts, err := generator.NewPromptCatalog()
	if err != nil {
		logger.Fatal("Failed to load prompt templates", zap.Error(err))
	}

	remote := generator.NewRemoteSynthesizer(llm, prompts, generator.RemoteOptions{
		Temperature: &cfg.GenerationTemperature,
		MaxTokens:   cfg.GenerationMaxTokens,
		Concurrency: cfg.GenerationConcurrency,
		ItemTimeout: cfg.GenerationTimeout,
	}, logger)
	fallback := generator.NewFallbackSynthesizer(cfg.FallbackDelay)
	orchestrator := generator.NewOrchestrator(remote, fallback, logger)

	// Initialize play sessions
	var narrator narration.Narrator = narration.Nop{}
	if cfg.NarrationEnabled {
		narrator = narration.NewLogger(logger.Named("narration"))
	}
	sessions := play.NewManager(gameStore, play.Options{
		Scorer:   scoring.NewScorer(),
		Recorder: gameStore,
		Narrator: narrator,
		Logger:   logger,
	})
	defer sessions.CloseAll()

	// Initialize handlers
	service := games.NewService(orchestrator, gameStore, sessions,
		intake.NewEncoder(cfg.MaxImageBytes, cfg.MaxImages),
		games.Limits{MaxImages: cfg.MaxImages, MaxQuestions: cfg.MaxQuestions},
		logger)
	gamesHandler := games.NewHandler(service, cfg.MaxImageBytes, logger)

	// Setup router
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	api := r.PathPrefix("/api/v1").Subrouter()

	var verifier middleware.TokenVerifier
	if cfg.AuthEnabled() {
		tokens := auth.NewTokenIssuer(cfg.AuthSecret, cfg.TokenTTL)
		authHandler := auth.NewHandler(cfg.OwnerPasswordHash, tokens, logger)
		api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
		verifier = tokens
		logger.Info("Owner authentication enabled")
	} else {
		logger.Warn("Owner authentication disabled, API routes are open")
	}

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(verifier))
	gamesHandler.RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	addr := ":" + strconv.Itoa(cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      c.Handler(r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + cfg.FallbackDelay + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", addr), zap.String("generator", cfg.GeneratorProvider))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openBackend connects the configured persistence backend. The returned
// func releases its connections.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.StoreBackend {
	case "postgres", "sqlite":
		driver, dsn := database.DriverPostgres, cfg.DatabaseURL
		if cfg.StoreBackend == "sqlite" {
			driver, dsn = database.DriverSQLite, cfg.SQLitePath
		}
		db, err := database.Connect(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db, driver); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store.NewSQLBackend(db), func() { db.Close() }, nil
	case "redis":
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisBackend(client, cfg.RedisKey), func() { client.Close() }, nil
	default:
		return store.NewMemoryBackend(), func() {}, nil
	}
}
