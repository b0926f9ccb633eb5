package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regconline/afrilearn/internal/config"
	"github.com/regconline/afrilearn/internal/handlers"
	"github.com/regconline/afrilearn/internal/middleware"
	"github.com/regconline/afrilearn/internal/repository"
	"github.com/regconline/afrilearn/internal/services"
	notifyws "github.com/regconline/afrilearn/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, hub *notifyws.Hub, escrowService *services.EscrowService) error {
	userRepo := repository.NewUserRepository(db)
	studentProfileRepo := repository.NewStudentProfileRepository(db)
	tutorProfileRepo := repository.NewTutorProfileRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	schedulerService := services.NewSchedulerService(db, sessionRepo, userRepo, tutorProfileRepo, attendanceRepo, hub)
	attendanceService := services.NewAttendanceService(sessionRepo, attendanceRepo, schedulerService)
	ratingService := services.NewRatingService(db, reviewRepo, sessionRepo, tutorProfileRepo)

	authHandler := handlers.NewAuthHandler(
		db,
		userRepo,
		studentProfileRepo,
		tutorProfileRepo,
		cfg.JWTSecret,
	)
	profileHandler := handlers.NewProfileHandler(tutorProfileRepo, studentProfileRepo)
	sessionHandler := handlers.NewSessionHandler(schedulerService, attendanceService)
	paymentHandler := handlers.NewPaymentHandler(escrowService)
	webhookHandler := handlers.NewWebhookHandler(escrowService, cfg.WebhookSecret)
	reviewHandler := handlers.NewReviewHandler(ratingService)
	notificationHandler := handlers.NewNotificationHandler(hub, cfg.JWTSecret)

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	api := app.Group("/api")

	auth := api.Group("/auth", middleware.RateLimit(authLimiter))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)
	auth.Put("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.UpdateMe)

	// Gateway callbacks authenticate with an HMAC signature, not a token.
	webhooks := api.Group("/webhooks")
	webhooks.Post("/payments", webhookHandler.PaymentStatus)

	v1 := api.Group("/v1")
	requireAuth := middleware.AuthRequired(cfg.JWTSecret)

	// Tutor discovery and reviews are public; everything else under /v1
	// needs a token.
	tutors := v1.Group("/tutors")
	tutors.Get("", profileHandler.ListTutors)
	tutors.Get("/:id", profileHandler.GetTutorProfile)
	tutors.Get("/:id/reviews", reviewHandler.GetTutorReviews)

	profile := v1.Group("/profile", requireAuth)
	profile.Get("", profileHandler.GetMyProfile)
	profile.Put("", profileHandler.UpdateMyProfile)

	students := v1.Group("/students", requireAuth)
	students.Get("", profileHandler.ListMyStudents)

	sessions := v1.Group("/sessions", requireAuth)
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("/upcoming", sessionHandler.ListUpcoming)
	sessions.Get("/past", sessionHandler.ListPast)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Patch("/:id", sessionHandler.UpdateSession)
	sessions.Post("/:id/attendance", sessionHandler.RecordAttendance)
	sessions.Get("/:id/attendance", sessionHandler.ListAttendance)

	payments := v1.Group("/payments", requireAuth)
	payments.Post("", paymentHandler.CreatePayment)
	payments.Get("", paymentHandler.ListPayments)

	payouts := v1.Group("/payouts", requireAuth)
	payouts.Get("", paymentHandler.ListPayouts)

	reviews := v1.Group("/reviews", requireAuth)
	reviews.Post("", reviewHandler.SubmitReview)

	api.Use("/v1/ws", notificationHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(notificationHandler.HandleWebSocket))

	return registerDocsRoutes(app, cfg)
}
