package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/datasynth/api/internal/app"
	"github.com/datasynth/api/internal/auth"
	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/handler"
	"github.com/datasynth/api/internal/logger"
	"github.com/datasynth/api/internal/middleware"
	"github.com/datasynth/api/internal/service"
	ws "github.com/datasynth/api/internal/websocket"
	"github.com/datasynth/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.Init(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis not available", zap.Error(err))
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(redisOpt(cfg))
	defer asynqClient.Close()

	validate := validator.New()

	hub := ws.NewHub(log)
	go hub.Run()

	// Storage backends are optional; missing ones surface as per-sink failures
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}
	backends := app.OpenBackends(ctx, cfg, log)
	defer backends.Close(context.Background())

	// Initialize services
	generationService := service.NewGenerationService(
		service.NewRedisJobStore(redisClient), asynqClient,
		cfg.Generation.ChunkSize, cfg.Generation.MaxRecords,
	)
	schemaService := service.NewSchemaService(cfg.Storage.SchemaDir, log)
	go func() {
		if err := schemaService.Watch(ctx); err != nil {
			log.Warn("schema watcher stopped", zap.Error(err))
		}
	}()
	artifactService := service.NewArtifactService(cfg.Storage.OutputDir, schemaService)

	// keep a nil *database.Store out of the TableBrowser interface
	var tableService *service.TableService
	if backends.Store != nil {
		tableService = service.NewTableService(backends.Store)
	} else {
		tableService = service.NewTableService(nil)
	}

	janitor := service.NewJanitor(cfg.Storage.OutputDir, cfg.Storage.Retention, log)
	if err := janitor.Start(cfg.Storage.Cleanup); err != nil {
		log.Warn("artifact cleanup disabled", zap.Error(err))
	}
	defer janitor.Stop()

	// Initialize handlers
	generateHandler := handler.NewGenerateHandler(generationService, validate)
	schemaHandler := handler.NewSchemaHandler(schemaService, validate)
	artifactHandler := handler.NewArtifactHandler(artifactService)
	tableHandler := handler.NewTableHandler(tableService)

	// Token verification: HMAC secret and/or OIDC issuer
	var verifiers auth.Chain
	if cfg.JWT.Secret != "" {
		verifiers = append(verifiers, auth.NewHMACVerifier(cfg.JWT.Secret))
	}
	if cfg.OIDC.Issuer != "" {
		oidc, err := auth.NewOIDCVerifier(ctx, cfg.OIDC)
		if err != nil {
			log.Warn("oidc verifier not initialized", zap.Error(err))
		} else {
			verifiers = append(verifiers, oidc)
		}
	}
	authHandler := handler.NewAuthHandler(verifiers)

	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind a gateway: auth is done upstream, read X-User-* headers
		log.Info("gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuth()
	} else {
		apiAuthMiddleware = middleware.Authenticate(verifiers)
	}
	rateLimiter := middleware.NewRateLimiter(redisClient, log)

	// Initialize Fiber app
	server := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	server.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
	}
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	server.Get("/health", func(c *fiber.Ctx) error {
		status := backends.Status()
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":        redisClient.Ping(c.UserContext()).Err() == nil,
				"relational":   status["relational"],
				"object_store": status["object_store"],
				"document":     status["document"],
				"auth":         len(verifiers) > 0 || cfg.Gateway.Enabled,
			},
		})
	})

	// ForwardAuth verification endpoint (called by the gateway)
	server.Get("/auth/verify", authHandler.Verify)

	api := server.Group("/api", apiAuthMiddleware)

	generate := api.Group("/generate")
	generate.Post("/", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.Submit)
	generate.Get("/status/:jobId", generateHandler.Status)

	schemas := api.Group("/schemas")
	schemas.Post("/", schemaHandler.Save)
	schemas.Get("/latest", schemaHandler.Latest)

	artifacts := api.Group("/artifacts")
	artifacts.Get("/latest", artifactHandler.Latest)
	artifacts.Get("/download/:filename", artifactHandler.Download)

	tables := api.Group("/tables")
	tables.Get("/", tableHandler.List)
	tables.Get("/:table/rows", tableHandler.Rows)
	tables.Get("/:table/columns", tableHandler.Columns)

	server.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	server.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Start Asynq worker server
	runner := app.Runner(cfg, backends.Coordinator(cfg), log)
	generationWorker := worker.NewGenerationWorker(generationService, runner, hub, log)
	go startWorkerServer(cfg, log, generationWorker)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
	if err := server.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func startWorkerServer(cfg *config.Config, log *zap.Logger, generationWorker *worker.GenerationWorker) {
	asynqLogLevel := asynq.InfoLevel
	switch logger.ParseLevel(cfg.Log.Level) {
	case zapcore.DebugLevel:
		asynqLogLevel = asynq.DebugLevel
	case zapcore.WarnLevel:
		asynqLogLevel = asynq.WarnLevel
	case zapcore.ErrorLevel:
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Generation.Concurrency,
			Queues: map[string]int{
				service.QueueGeneration: 1,
			},
			Logger:   logger.NewAsynqLogger(log),
			LogLevel: asynqLogLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGenerate, generationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Error("asynq worker error", zap.Error(err))
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
