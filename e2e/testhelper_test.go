package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/datasynth/api/internal/app"
	"github.com/datasynth/api/internal/auth"
	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/database"
	"github.com/datasynth/api/internal/handler"
	"github.com/datasynth/api/internal/middleware"
	"github.com/datasynth/api/internal/service"
	ws "github.com/datasynth/api/internal/websocket"
	"github.com/datasynth/api/internal/worker"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app        *fiber.App
	cfg        *config.Config
	store      *database.Store
	generation *service.GenerationService
	worker     *worker.GenerationWorker
}

// setupApp creates a Fiber app wired like main.go, with the file and SQLite
// sinks rooted in a temp dir. Redis must be running on localhost.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis on localhost, DB 15 to avoid collisions
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { redisClient.Close() })

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		t.Skipf("redis not available on localhost:6379: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	dir := t.TempDir()
	cfg := &config.Config{
		Generation: config.GenerationConfig{
			ChunkSize:         500,
			Workers:           4,
			MaxRecords:        100_000,
			ChunkAttempts:     2,
			ChunkBackoff:      time.Millisecond,
			SinkAttempts:      2,
			SinkBackoff:       time.Millisecond,
			SinkBackoffMax:    time.Millisecond,
			BackoffMultiplier: 2,
		},
		Storage: config.StorageConfig{
			OutputDir: filepath.Join(dir, "generated_data"),
			SchemaDir: filepath.Join(dir, "schema"),
		},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			DSN:          filepath.Join(dir, "synthetic.db"),
			MaxOpenConns: 1,
		},
	}

	backends := app.OpenBackends(context.Background(), cfg, nil)
	t.Cleanup(func() { backends.Close(context.Background()) })
	if backends.Store == nil {
		t.Fatal("sqlite store failed to open")
	}

	validate := validator.New()
	hub := ws.NewHub(nil)
	go hub.Run()

	// Services
	generationService := service.NewGenerationService(
		service.NewRedisJobStore(redisClient), asynqClient,
		cfg.Generation.ChunkSize, cfg.Generation.MaxRecords,
	)
	schemaService := service.NewSchemaService(cfg.Storage.SchemaDir, nil)
	artifactService := service.NewArtifactService(cfg.Storage.OutputDir, schemaService)
	tableService := service.NewTableService(backends.Store)

	runner := app.Runner(cfg, backends.Coordinator(cfg), nil)
	generationWorker := worker.NewGenerationWorker(generationService, runner, hub, nil)

	// Handlers
	generateHandler := handler.NewGenerateHandler(generationService, validate)
	schemaHandler := handler.NewSchemaHandler(schemaService, validate)
	artifactHandler := handler.NewArtifactHandler(artifactService)
	tableHandler := handler.NewTableHandler(tableService)

	verifier := auth.Chain{auth.NewHMACVerifier(testJWTSecret)}
	authHandler := handler.NewAuthHandler(verifier)
	rateLimiter := middleware.NewRateLimiter(redisClient, nil)

	// Fiber app
	server := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	// Base routes
	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	server.Get("/health", func(c *fiber.Ctx) error {
		status := backends.Status()
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":        true,
				"relational":   status["relational"],
				"object_store": status["object_store"],
				"document":     status["document"],
				"auth":         true,
			},
		})
	})
	server.Get("/auth/verify", authHandler.Verify)

	// API routes (authenticated)
	api := server.Group("/api", middleware.Authenticate(verifier))

	// Use a very high rate limit so tests don't get blocked
	generate := api.Group("/generate")
	generate.Post("/", rateLimiter.GenerateLimit(10000), generateHandler.Submit)
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

	return &testApp{
		app:        server,
		cfg:        cfg,
		store:      backends.Store,
		generation: generationService,
		worker:     generationWorker,
	}
}

// runJob executes a queued job in-process, the way the asynq server would.
func (ta *testApp) runJob(t *testing.T, jobID string) {
	t.Helper()
	ctx := context.Background()

	job, err := ta.generation.Job(ctx, jobID)
	if err != nil {
		t.Fatalf("failed to load job %s: %v", jobID, err)
	}
	task, err := service.NewGenerationTask(jobID, job.Payload)
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	// failures are recorded on the job; callers assert on its status
	_ = ta.worker.ProcessTask(ctx, task)
}

// generateToken creates an HMAC JWT for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.NewHMACVerifier(testJWTSecret).Sign("test-user-123", "test@example.com", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
