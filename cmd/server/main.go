package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/regconline/afrilearn/internal/config"
	"github.com/regconline/afrilearn/internal/database"
	"github.com/regconline/afrilearn/internal/escrow"
	"github.com/regconline/afrilearn/internal/repository"
	"github.com/regconline/afrilearn/internal/routes"
	"github.com/regconline/afrilearn/internal/services"
	notifyws "github.com/regconline/afrilearn/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 3. Notification hub and escrow sweeper
	hub := notifyws.NewHub()
	go hub.Run()

	escrowService := services.NewEscrowService(
		db,
		repository.NewPaymentRepository(db),
		repository.NewPayoutRepository(db),
		repository.NewSessionRepository(db),
		cfg.ProcessingFeeRate,
		cfg.EscrowHold,
		cfg.PaymentPendingTimeout,
		hub,
	)
	sweeper := escrow.NewSweeper(db, escrowService, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// 4. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, db, hub, escrowService); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 5. Start Server
	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
