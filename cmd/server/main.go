package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grammarbuddy/internal/config"
	"grammarbuddy/internal/handlers"
	"grammarbuddy/internal/kvstore"
	"grammarbuddy/internal/logging"
	"grammarbuddy/internal/middleware"
	"grammarbuddy/internal/prompts"
	"grammarbuddy/internal/services"
	"grammarbuddy/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Dutch Grammar Buddy server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, accounts: %d)", cfg.Port, len(cfg.Users))

	// Pick the history store backend: hosted KV REST API first, then
	// Redis, then a local SQLite file for development.
	store, err := selectStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize history store: %v", err)
	}
	defer store.Close()
	log.Printf("✅ History store ready (backend: %s)", store.Name())

	// Prompt set, optionally overridden and hot-reloaded from a YAML file
	promptProvider, err := prompts.NewProvider(cfg.PromptsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load prompts file: %v", err)
	}
	defer promptProvider.Close()
	if cfg.PromptsFile != "" {
		if err := promptProvider.Watch(); err != nil {
			log.Printf("⚠️ Prompts hot reload disabled: %v", err)
		} else {
			log.Printf("👀 Watching prompts file: %s", cfg.PromptsFile)
		}
	}

	// Prometheus metrics
	services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Services
	historyService := services.NewHistoryService(store, cfg.LegacyAccount)
	tutorService := services.NewTutorService(cfg.AnthropicAPIKey, cfg.AnthropicModel, promptProvider)
	speechService := services.NewSpeechService(cfg.GoogleAPIKey)
	credentials := auth.NewCredentials(cfg.Users)

	if cfg.AnthropicAPIKey == "" {
		log.Println("⚠️ ANTHROPIC_API_KEY not set - translation/chat/breakdown will fail upstream")
	}
	if cfg.GoogleAPIKey == "" {
		log.Println("⚠️ GOOGLE_API_KEY not set - pronunciation audio will fail upstream")
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dutch Grammar Buddy v1.0",
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    10 * 1024 * 1024, // screenshots arrive base64-encoded in JSON
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New())

	prometheus := fiberprometheus.New("grammarbuddy")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Generous global ceiling per IP; the login endpoint gets its own
	// tighter limiter below.
	app.Use("/api", limiter.New(limiter.Config{
		Max:        200,
		Expiration: 1 * time.Minute,
	}))

	// Every request resolves its identity from the cookie, fresh
	app.Use(middleware.ResolveIdentity())

	// Handlers
	healthHandler := handlers.NewHealthHandler(store)
	sessionHandler := handlers.NewSessionHandler(credentials)
	historyHandler := handlers.NewHistoryHandler(historyService)
	migrateHandler := handlers.NewMigrateHandler(historyService)
	tutorHandler := handlers.NewTutorHandler(tutorService)
	speechHandler := handlers.NewSpeechHandler(speechService)

	loginLimiter := middleware.NewLoginLimiter(cfg.LoginRatePerMinute)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/login", loginLimiter.Handler(), sessionHandler.Login)

	api.Get("/history", historyHandler.Get)
	api.Post("/history", historyHandler.Replace)
	api.Delete("/history", historyHandler.Clear)
	api.Post("/history/bookmark", historyHandler.Bookmark)

	api.Post("/migrate", migrateHandler.Run)

	api.Post("/translate", tutorHandler.Translate)
	api.Post("/breakdown", tutorHandler.Breakdown)
	api.Post("/chat", tutorHandler.Chat)
	api.Post("/parse-screenshot", tutorHandler.ParseScreenshot)
	api.Post("/speak", speechHandler.Speak)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// selectStore picks the history backend from config, in priority order.
func selectStore(cfg *config.Config) (kvstore.Store, error) {
	switch {
	case cfg.KVRestURL != "":
		store := kvstore.NewRestStore(cfg.KVRestURL, cfg.KVRestToken)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			// The hosted store being down at boot shouldn't prevent the
			// server from starting: reads degrade to empty lists anyway.
			log.Printf("⚠️ KV REST store unreachable at startup: %v", err)
		}
		return store, nil
	case cfg.RedisURL != "":
		return kvstore.NewRedisStore(cfg.RedisURL)
	case cfg.SQLitePath != "":
		return kvstore.NewSQLiteStore(cfg.SQLitePath)
	default:
		log.Println("⚠️ No store configured (KV_REST_API_URL/REDIS_URL/SQLITE_PATH) - using in-memory sqlite")
		return kvstore.NewSQLiteStore(":memory:")
	}
}
