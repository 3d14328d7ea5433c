package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cafe-backend/config"
	"cafe-backend/controllers"
	"cafe-backend/database"
	"cafe-backend/events"
	"cafe-backend/logger"
	"cafe-backend/middlewares"
	"cafe-backend/notify"
	"cafe-backend/routes"
	"cafe-backend/seeders"
	"cafe-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const floorExchange = "floor_events"

func main() {
	cfg := config.Load()
	log := logger.New("cafe-backend", cfg.LogLevel)

	// ---- Database
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := seeders.Seed(db, cfg.SeedPassword, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ---- Floor events and booking notices
	var publisher events.Publisher = events.Noop{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.RabbitMQURL, floorExchange)
		if err != nil {
			log.Error("rabbitmq connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		publisher = amqpPublisher
		log.Info("floor events enabled", slog.String("exchange", floorExchange))
	}
	var notifier notify.BookingNotifier = notify.Noop{}
	if cfg.Twilio.Enabled() {
		notifier = notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, cfg.Twilio.WhatsAppFrom)
		log.Info("booking notifications enabled")
	}

	engine := services.NewEngine(db, services.Options{
		Publisher:         publisher,
		Notifier:          notifier,
		Logger:            log,
		DefaultEmployeeID: cfg.DefaultEmployeeID,
		ReleaseDelay:      cfg.ReleaseDelay,
	})
	if err := engine.Releases().Start(cfg.ReleaseSweep); err != nil {
		log.Error("release scheduler failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler(log),
		BodyLimit:    cfg.BodyLimitBytes,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
	}))

	// ---- Routes
	routes.Register(app, controllers.New(engine, db, cfg.JWTSecret, cfg.JWTTTL), log)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error("http shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// ---- Start
	log.Info("API server starting", slog.String("port", cfg.Port), slog.String("db_driver", cfg.DBDriver))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("http server stopped", slog.String("error", err.Error()))
	}

	engine.Releases().Stop()
	if err := publisher.Close(); err != nil {
		log.Warn("closing publisher", slog.String("error", err.Error()))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
