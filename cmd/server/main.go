package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stemsplit/api/internal/config"
	"github.com/stemsplit/api/internal/engine"
	"github.com/stemsplit/api/internal/handler"
	"github.com/stemsplit/api/internal/middleware"
	"github.com/stemsplit/api/internal/model"
	"github.com/stemsplit/api/internal/pipeline"
	"github.com/stemsplit/api/internal/service"
	"github.com/stemsplit/api/internal/storage"
	"github.com/stemsplit/api/internal/store"
	"github.com/stemsplit/api/internal/worker"
	ws "github.com/stemsplit/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize storage layout and job store
	localStorage, err := storage.New(cfg.Storage.Root)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	jobStore, err := store.Open(filepath.Join(localStorage.Root(), "jobs.db"))
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	defer jobStore.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize pipeline router
	separator := engine.NewHTTPSeparator(&cfg.Engine)
	encoder := engine.NewWAVEncoder()

	router := pipeline.NewRouter()
	router.Register(model.JobTypeStemSeparation, pipeline.NewStemProcessor(localStorage, separator, encoder, cfg.Storage.StemFormat))
	router.Register(model.JobTypeMelodyExtraction, pipeline.NewMelodyProcessor())
	router.Register(model.JobTypeChordAnalysis, pipeline.NewChordProcessor())

	// Initialize services
	audioService := service.NewAudioService(jobStore, localStorage)
	jobService := service.NewJobService(jobStore, audioService, asynqClient, &cfg.Worker)

	// Initialize handlers
	audioHandler := handler.NewAudioHandler(audioService, validate, cfg.Storage.MaxUploadMB)
	jobHandler := handler.NewJobHandler(jobService, validate)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Storage.MaxUploadMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")

	// Audio routes
	audio := api.Group("/audio", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour))
	audio.Post("/", audioHandler.Upload)
	audio.Get("/:audioId", audioHandler.Get)

	// Job routes
	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.JobsLimit(cfg.RateLimit.JobsPerHour), jobHandler.Create)
	jobs.Get("/:jobId", jobHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start job execution
	audioWorker := worker.NewAudioJobWorker(jobStore, localStorage, router, hub,
		time.Duration(cfg.Worker.SoftTimeLimit)*time.Second)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	switch cfg.Worker.Mode {
	case "poll":
		pollWorker := worker.NewPollWorker(audioWorker, jobStore,
			time.Duration(cfg.Worker.PollInterval)*time.Second)
		go pollWorker.Run(workerCtx)
	case "push":
		go startWorkerServer(cfg, audioWorker)
	default:
		log.Printf("Unknown worker mode %q, jobs will stay queued", cfg.Worker.Mode)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopWorkers()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, audioWorker *worker.AudioJobWorker) {
	base := time.Duration(cfg.Worker.RetryBaseDelay) * time.Second
	max := time.Duration(cfg.Worker.RetryMaxDelay) * time.Second

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Each worker goroutine claims one job and processes it to
			// completion before taking the next.
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"audio": 10,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return worker.RetryDelay(n, base, max)
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeAudioJob, audioWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
