package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"standup/internal/config"
	"standup/internal/database"
	"standup/internal/handlers"
	"standup/internal/logging"
	"standup/internal/middleware"
	"standup/internal/models"
	"standup/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Standup Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// Pick the meeting store: SQLite when DATABASE_PATH is set, the
	// directory-per-meeting file store otherwise.
	var store database.MeetingStore
	if cfg.DatabasePath != "" {
		sqliteStore, err := database.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("❌ Failed to open SQLite store: %v", err)
		}
		store = sqliteStore
		log.Printf("📦 [STORE] Using SQLite store at %s", cfg.DatabasePath)
	} else {
		fileStore, err := database.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("❌ Failed to open file store: %v", err)
		}
		store = fileStore
		log.Printf("📦 [STORE] Using file store at %s", cfg.DataDir)
	}
	defer store.Close()

	// Metrics
	metrics := services.InitMetrics()

	// Core services
	meetingService := services.NewMeetingService(store, metrics)
	reportService := services.NewReportService(cfg.ReportTemplatePath, metrics)
	archiveService := services.NewArchiveService(cfg.MongoURI, metrics)
	defer archiveService.Close(context.Background())

	// Publish a JSON snapshot and the rendered report when a meeting closes.
	// Publish never fails the close; a broken archive only costs the copy.
	meetingService.SetClosedHandler(func(meeting *models.Meeting) {
		snapshot, err := json.MarshalIndent(meeting, "", "  ")
		if err != nil {
			log.Printf("❌ [ARCHIVE] Failed to encode snapshot for %s: %v", meeting.ID, err)
			return
		}

		var report []byte
		html, err := reportService.RenderHTML(meeting)
		if err != nil {
			log.Printf("⚠️ [ARCHIVE] Report render failed for %s, archiving snapshot only: %v", meeting.ID, err)
		} else {
			report = []byte(html)
		}

		archiveService.Publish(meeting.ID, snapshot, report)
	})

	// Janitor: archive retries and stale meeting audit
	janitorService, err := services.NewJanitorService(
		meetingService,
		archiveService,
		cfg.JanitorCron,
		time.Duration(cfg.StaleMeetingHours)*time.Hour,
	)
	if err != nil {
		log.Fatalf("❌ Failed to create janitor: %v", err)
	}
	if err := janitorService.Start(); err != nil {
		log.Fatalf("❌ Failed to start janitor: %v", err)
	}

	// Telegram front end (optional)
	var telegramService *services.TelegramService
	var telegramHandler *handlers.TelegramHandler
	if cfg.TelegramBotToken != "" {
		telegramService, err = services.NewTelegramService(cfg.TelegramBotToken, cfg.BaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to create Telegram service: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		username, botName, err := telegramService.GetBotInfo(ctx)
		cancel()
		if err != nil {
			log.Printf("⚠️ [TELEGRAM] Bot token verification failed: %v (Telegram disabled)", err)
			telegramService = nil
		} else {
			log.Printf("🤖 [TELEGRAM] Connected as @%s (%s)", username, botName)
			telegramHandler = handlers.NewTelegramHandler(telegramService, meetingService)
			telegramService.SetMessageHandler(telegramHandler.HandleMessage)
			telegramService.Start()
		}
	} else {
		log.Println("⚠️ TELEGRAM_BOT_TOKEN not set - Telegram front end disabled")
	}

	// HTTP handlers
	meetingHandler := handlers.NewMeetingHandler(meetingService, reportService)
	healthHandler := handlers.NewHealthHandler(archiveService)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Standup v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // updates are short text, 1MB is plenty
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("standup")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Rate limiting
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Webhook=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.WebhookMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: allowedOrigins != "*",
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/meetings", meetingHandler.Create)
	api.Get("/meetings", meetingHandler.List)
	api.Get("/meetings/:id", meetingHandler.Get)
	api.Post("/meetings/:id/updates", meetingHandler.SubmitUpdate)
	api.Post("/meetings/:id/close", meetingHandler.Close)
	api.Get("/meetings/:id/report", meetingHandler.Report)

	if telegramHandler != nil {
		api.Post("/telegram/webhook/:secret",
			middleware.WebhookRateLimiter(rateLimitConfig),
			telegramHandler.Webhook,
		)
	}

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if telegramService != nil {
			telegramService.Stop()
		}

		if err := janitorService.Stop(); err != nil {
			log.Printf("⚠️ Error stopping janitor: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
