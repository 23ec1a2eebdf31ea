package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sk8-backend/config"
	"sk8-backend/handlers"
	"sk8-backend/middleware"
	"sk8-backend/models"
	"sk8-backend/services"
	"sk8-backend/utils"
	"sk8-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024 * 1024, // clips upload straight to S3; only metadata comes here
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	if err := utils.InitS3(cfg); err != nil {
		log.Fatal("failed to initialize S3 client:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.Clip{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	matchService := services.NewMatchService(db, cfg)
	clipService := services.NewClipService(db, matchService, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Timeout sweep: the lazy check-on-read still applies, the sweep just
	// resolves matches nobody is reading.
	matchService.StartTimeoutScheduler()

	// Expire challenges nobody accepted within 24h.
	reaper := workers.NewChallengeReaper(db, 24*time.Hour)
	go workers.PollStaleChallenges(ctx, reaper, 10*time.Minute)

	handlers.SetupMatchRoutes(app, matchService)
	handlers.SetupClipRoutes(app, clipService)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"app":     "SK8",
			"version": "1.0.0",
			"status":  "running",
			"message": "One take. No edits. No excuses.",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
		}
		checks := fiber.Map{}

		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			checks["database"] = "error"
			health["status"] = "unhealthy"
		} else {
			checks["database"] = "ok"
		}

		if cfg.S3Bucket != "" && cfg.AWSAccessKeyID != "" {
			checks["s3_configured"] = "ok"
		} else {
			checks["s3_configured"] = "missing"
		}

		health["checks"] = checks
		return c.JSON(health)
	})

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.ListenAddr)
	log.Println("✅ Timeout sweep running (every 1m)")
	log.Println("✅ Challenge reaper running (every 10m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
