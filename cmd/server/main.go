package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/studylens/studylens/internal/adapter/ai"
	"github.com/studylens/studylens/internal/adapter/store"
	"github.com/studylens/studylens/internal/chunker"
	"github.com/studylens/studylens/internal/embedding"
	"github.com/studylens/studylens/internal/handler"
	"github.com/studylens/studylens/internal/port"
	"github.com/studylens/studylens/internal/queue"
	"github.com/studylens/studylens/internal/search"
	"github.com/studylens/studylens/internal/service"
	"github.com/studylens/studylens/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting StudyLens AI",
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"ollama_embed", cfg.OllamaEmbedURL,
		"ollama_generate", cfg.OllamaGenerateURL,
	)

	// ── Record store ─────────────────────────────────────────────────────
	var recordStore port.RecordStore
	switch cfg.StoreBackend {
	case "postgres":
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		recordStore = pgStore
	default:
		fileStore, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			slog.Error("failed to open data dir", "error", err)
			os.Exit(1)
		}
		recordStore = fileStore
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	ollamaAI := ai.NewOllamaProvider(
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		},
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaGenerateURL,
			Model:   cfg.OllamaGenerateModel,
			Token:   cfg.OllamaGenerateToken,
		},
	)

	// ── Core components ──────────────────────────────────────────────────
	// Exactly one inference queue exists for the process's lifetime; every
	// generation-bound call funnels through it.
	inferenceQueue := queue.New(cfg.QueueCapacity, time.Duration(cfg.QueueDelayMillis)*time.Millisecond)
	defer inferenceQueue.Close()

	textChunker := chunker.New(cfg.MaxChunkSize, cfg.OverlapWords)
	embedder := embedding.New(ollamaAI, cfg.FallbackDimension)
	engine := search.NewEngine(recordStore)

	// ── Services ─────────────────────────────────────────────────────────
	indexingService := service.NewIndexingService(textChunker, embedder, recordStore)
	ragService := service.NewRAGService(embedder, engine, inferenceQueue, ollamaAI, service.RAGOptions{
		TopK:          cfg.TopK,
		MinSimilarity: cfg.MinSimilarity,
		KeywordTopK:   cfg.KeywordTopK,
		Generate: port.GenerateOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	})

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"model":   ollamaAI.ModelName(),
			"version": "1.0.0",
		})
	})

	api := app.Group("/api/v1")

	subjectHandler := handler.NewSubjectHandler(indexingService)
	subjectHandler.Register(api)

	ragHandler := handler.NewRAGHandler(ragService)
	ragHandler.Register(api)

	queueHandler := handler.NewQueueHandler(inferenceQueue)
	queueHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
