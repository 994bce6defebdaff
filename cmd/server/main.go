package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/parkournet/recordsdb/internal/config"
	"github.com/parkournet/recordsdb/internal/database"
	"github.com/parkournet/recordsdb/internal/handlers"
	"github.com/parkournet/recordsdb/internal/middleware"
	"github.com/parkournet/recordsdb/internal/types"

	_ "github.com/parkournet/recordsdb/docs/api" // Swagger docs
)

// @title RecordsDB API
// @version 1.0.0
// @description Speedrun records service with map difficulty tiers, verified leaderboards and playtest voting
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/parkournet/recordsdb

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-KEY

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database (app pool)
	appDB, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to app database: %v", err)
	}
	defer database.Close(appDB)

	// Run auto-migrations on the admin pool
	adminDB, err := database.ConnectAdmin(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to admin database: %v", err)
	}
	if err := database.AutoMigrate(adminDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close(adminDB)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("recordsdb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health
	healthHandler := &handlers.HealthHandler{Config: cfg, DB: appDB}
	app.Get("/health", healthHandler.Health)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	mapHandler := &handlers.MapHandler{DB: appDB}
	completionHandler := &handlers.CompletionHandler{DB: appDB}
	playtestHandler := &handlers.PlaytestHandler{DB: appDB}
	telemetryHandler := &handlers.TelemetryHandler{DB: appDB}

	auth := middleware.APIKeyAuth(cfg.APIKey)

	// Click telemetry is the only unauthenticated write, kept behind a
	// per-client rate limit.
	clickLimiter := limiter.New(limiter.Config{
		Max:        cfg.ClickLimitPerMinute,
		Expiration: time.Minute,
	})

	// Map routes
	api.Get("/maps/:code", mapHandler.GetMap)
	api.Get("/maps/:code/leaderboard", mapHandler.Leaderboard)
	api.Get("/maps/:code/clicks", telemetryHandler.ClickCount)
	api.Post("/maps/:code/clicks", clickLimiter, telemetryHandler.RecordClick)
	api.Post("/maps", auth, mapHandler.CreateMap)
	api.Patch("/maps/:code/difficulty", auth, mapHandler.SetDifficulty)
	api.Put("/maps/:code/link", auth, mapHandler.SetLink)
	api.Patch("/maps/:code/visibility", auth, mapHandler.SetVisibility)
	api.Post("/maps/:code/legacy", auth, mapHandler.ConvertToLegacy)
	api.Put("/maps/:code/ratings", auth, mapHandler.RateMap)
	api.Delete("/maps/:code", auth, mapHandler.DeleteMap)

	// Completion routes
	api.Post("/completions", auth, completionHandler.RecordCompletion)
	api.Patch("/completions/:id/verify", auth, completionHandler.VerifyCompletion)
	api.Get("/completions/pending", auth, completionHandler.PendingVerifications)

	// Playtest routes
	api.Post("/playtests", auth, playtestHandler.CreatePlaytest)
	api.Get("/playtests/:thread_id/votes", playtestHandler.Votes)
	api.Put("/playtests/:thread_id/votes/:user_id", auth, playtestHandler.CastVote)
	api.Delete("/playtests/:thread_id/votes/:user_id", auth, playtestHandler.RemoveVote)
	api.Delete("/playtests/:thread_id/votes", auth, playtestHandler.ResetVotes)
	api.Post("/playtests/:thread_id/approve", auth, playtestHandler.Approve)
	api.Post("/playtests/:thread_id/reject", auth, playtestHandler.Reject)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
