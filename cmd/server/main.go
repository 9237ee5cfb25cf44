package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/leadscout/api/internal/config"
	"github.com/leadscout/api/internal/handler"
	"github.com/leadscout/api/internal/logger"
	"github.com/leadscout/api/internal/middleware"
	"github.com/leadscout/api/internal/pipeline"
	"github.com/leadscout/api/internal/repository"
	"github.com/leadscout/api/internal/service"
	"github.com/leadscout/api/internal/similarity"
	"github.com/leadscout/api/internal/store"
	"github.com/leadscout/api/internal/worker"
	ws "github.com/leadscout/api/internal/websocket"
	"github.com/leadscout/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "leadscout",
	})

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLog.WithError(err).Warn("Redis not available")
	}

	// Initialize the durable store
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(appLog)
	go hub.Run()

	// Repositories
	runRepo := repository.NewRunRepository(db)
	presetRepo := repository.NewPresetRepository(db)
	historyRepo := repository.NewFilterHistoryRepository(db)

	// Cost config
	costs := pipeline.LoadCostConfig(cfg.Costs.Path, appLog)

	// Run store over the two tiers
	runStore := store.NewRunStore(store.NewRedisFast(redisClient), runRepo, appLog)

	// Services
	discoveryService := service.NewDiscoveryService(runStore, costs, asynqClient, appLog)
	similarityQuery := similarity.NewQuery(runRepo, appLog)

	// Handlers
	runHandler := handler.NewRunHandler(discoveryService, validate)
	similarHandler := handler.NewSimilarHandler(similarityQuery, historyRepo, validate)
	presetHandler := handler.NewPresetHandler(presetRepo, validate)
	statsHandler := handler.NewStatsHandler(discoveryService)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(appLog))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")

	// Run routes
	runs := api.Group("/runs")
	runs.Post("/", runHandler.Start)
	runs.Get("/", runHandler.List)
	runs.Get("/:runId", runHandler.Get)
	runs.Delete("/:runId", runHandler.Delete)
	runs.Post("/:runId/cancel", runHandler.Cancel)

	// Similarity routes
	api.Post("/similar", similarHandler.Find)
	api.Post("/filter-staleness", similarHandler.Staleness)

	// Preset routes
	api.Get("/presets", presetHandler.List)
	api.Post("/presets", presetHandler.Create)
	api.Delete("/presets/:presetId", presetHandler.Delete)

	// Dashboard stats
	api.Get("/stats", statsHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/runs/:runId", websocket.New(func(c *websocket.Conn) {
		runID := c.Params("runId")
		hub.HandleConnection(c, runID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, appLog, runStore, runRepo, historyRepo, costs, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		appLog.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLog.WithError(err).Error("Server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	appLog.WithField("addr", addr).Info("Server starting")
	if err := app.Listen(addr); err != nil {
		appLog.WithError(err).Fatal("Server error")
	}
}

func startWorkerServer(cfg *config.Config, appLog *logger.Logger, runStore *store.RunStore, runRepo *repository.RunRepository, historyRepo *repository.FilterHistoryRepository, costs *pipeline.CostConfig, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"pipeline": 10,
			},
		},
	)

	pipelineWorker := worker.NewPipelineWorker(runStore, runRepo, historyRepo, costs, hub, appLog)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePipelineRun, pipelineWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		appLog.WithError(err).Error("Asynq worker error")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
