package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestBookingRejectsOverlappingSessions(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	scheduler := newIntegrationScheduler(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent)
	otherStudentID := createTestAccount(t, ctx, pool, models.RoleStudent)
	tutorID := createTestAccount(t, ctx, pool, models.RoleTutor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, otherStudentID, tutorID) })

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	if _, err := scheduler.BookSession(ctx, studentID, models.RoleStudent, BookSessionInput{
		TutorID:   tutorID,
		Title:     "Algebra catch-up",
		Subject:   "Mathematics",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Price:     1500,
		Currency:  "NGN",
	}); err != nil {
		t.Fatalf("first BookSession: %v", err)
	}

	_, err := scheduler.BookSession(ctx, otherStudentID, models.RoleStudent, BookSessionInput{
		TutorID:   tutorID,
		Title:     "Geometry basics",
		Subject:   "Mathematics",
		StartTime: start.Add(30 * time.Minute),
		EndTime:   start.Add(90 * time.Minute),
		Price:     1200,
		Currency:  "NGN",
	})
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEscrowLifecycleReleasesToTutor(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	scheduler := newIntegrationScheduler(pool)
	escrowSvc := newIntegrationEscrow(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	payoutRepo := repository.NewPayoutRepository(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent)
	tutorID := createTestAccount(t, ctx, pool, models.RoleTutor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	session, err := scheduler.BookSession(ctx, studentID, models.RoleStudent, BookSessionInput{
		TutorID:   tutorID,
		Title:     "Swahili conversation",
		Subject:   "Swahili",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Price:     1000,
		Currency:  "KES",
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	payment, err := escrowSvc.CreatePayment(ctx, studentID, CreatePaymentInput{
		Amount:    1000,
		Currency:  "KES",
		Gateway:   "mpesa",
		SessionID: &session.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if payment.Status != models.PaymentPending {
		t.Fatalf("expected pending payment, got %q", payment.Status)
	}
	if payment.ProcessingFee != 50 {
		t.Fatalf("expected fee 50, got %.2f", payment.ProcessingFee)
	}

	confirmed, err := escrowSvc.ConfirmWebhook(ctx, payment.GatewayReference, "success", "txn-1")
	if err != nil {
		t.Fatalf("ConfirmWebhook: %v", err)
	}
	if confirmed.Status != models.PaymentHeldInEscrow {
		t.Fatalf("expected held_in_escrow, got %q", confirmed.Status)
	}

	// A replayed callback must not change anything.
	replayed, err := escrowSvc.ConfirmWebhook(ctx, payment.GatewayReference, "success", "txn-1")
	if err != nil {
		t.Fatalf("ConfirmWebhook replay: %v", err)
	}
	if replayed.Status != models.PaymentHeldInEscrow {
		t.Fatalf("expected replay to be a no-op, got %q", replayed.Status)
	}

	if _, err := sessionRepo.UpdateStatusIfCurrent(ctx, session.ID, models.SessionScheduled, models.SessionInProgress); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := sessionRepo.UpdateStatusIfCurrent(ctx, session.ID, models.SessionInProgress, models.SessionCompleted); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	afterHold := time.Now().UTC().Add(25 * time.Hour)
	resolved, err := escrowSvc.ReleaseDue(ctx, afterHold)
	if err != nil {
		t.Fatalf("ReleaseDue: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("expected 1 resolved payment, got %d", resolved)
	}

	payouts, err := payoutRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		t.Fatalf("ListByTutor: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(payouts))
	}
	if payouts[0].Amount != 950 {
		t.Fatalf("expected payout 950 after fee, got %.2f", payouts[0].Amount)
	}

	// A second sweep pass must find nothing left to do.
	resolved, err = escrowSvc.ReleaseDue(ctx, afterHold)
	if err != nil {
		t.Fatalf("second ReleaseDue: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("expected idempotent sweep, resolved %d", resolved)
	}
}

func TestEscrowRefundsCancelledSession(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	scheduler := newIntegrationScheduler(pool)
	escrowSvc := newIntegrationEscrow(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent)
	tutorID := createTestAccount(t, ctx, pool, models.RoleTutor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Minute)
	session, err := scheduler.BookSession(ctx, studentID, models.RoleStudent, BookSessionInput{
		TutorID:   tutorID,
		Title:     "Physics revision",
		Subject:   "Physics",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Price:     2000,
		Currency:  "ZAR",
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	payment, err := escrowSvc.CreatePayment(ctx, studentID, CreatePaymentInput{
		Amount:    2000,
		Currency:  "ZAR",
		Gateway:   "paystack",
		SessionID: &session.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, err := escrowSvc.ConfirmWebhook(ctx, payment.GatewayReference, "success", "txn-2"); err != nil {
		t.Fatalf("ConfirmWebhook: %v", err)
	}
	if _, err := sessionRepo.UpdateStatusIfCurrent(ctx, session.ID, models.SessionScheduled, models.SessionCancelled); err != nil {
		t.Fatalf("cancel session: %v", err)
	}

	if _, err := escrowSvc.ReleaseDue(ctx, time.Now().UTC().Add(25*time.Hour)); err != nil {
		t.Fatalf("ReleaseDue: %v", err)
	}

	refunded, err := paymentRepo.GetByGatewayReference(ctx, payment.GatewayReference)
	if err != nil {
		t.Fatalf("GetByGatewayReference: %v", err)
	}
	if refunded.Status != models.PaymentRefunded {
		t.Fatalf("expected refunded, got %q", refunded.Status)
	}
}

func TestSubmitReviewUpdatesTutorAggregate(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	scheduler := newIntegrationScheduler(pool)
	ratingSvc := NewRatingService(
		pool,
		repository.NewReviewRepository(pool),
		repository.NewSessionRepository(pool),
		repository.NewTutorProfileRepository(pool),
	)
	sessionRepo := repository.NewSessionRepository(pool)
	tutorRepo := repository.NewTutorProfileRepository(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent)
	tutorID := createTestAccount(t, ctx, pool, models.RoleTutor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)
	session, err := scheduler.BookSession(ctx, studentID, models.RoleStudent, BookSessionInput{
		TutorID:   tutorID,
		Title:     "French grammar",
		Subject:   "French",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Price:     800,
		Currency:  "XOF",
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}
	if _, err := sessionRepo.UpdateStatusIfCurrent(ctx, session.ID, models.SessionScheduled, models.SessionInProgress); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := sessionRepo.UpdateStatusIfCurrent(ctx, session.ID, models.SessionInProgress, models.SessionCompleted); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	if _, err := ratingSvc.SubmitReview(ctx, studentID, SubmitReviewInput{
		TutorID:   tutorID,
		SessionID: session.ID,
		Rating:    5,
	}); err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}

	profile, err := tutorRepo.GetByUserID(ctx, tutorID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if profile.RatingsCount != 1 {
		t.Fatalf("expected 1 rating, got %d", profile.RatingsCount)
	}
	if profile.RatingAverage != 5 {
		t.Fatalf("expected average 5, got %.2f", profile.RatingAverage)
	}

	_, err = ratingSvc.SubmitReview(ctx, studentID, SubmitReviewInput{
		TutorID:   tutorID,
		SessionID: session.ID,
		Rating:    4,
	})
	if err != ErrDuplicateReview {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationScheduler(pool *pgxpool.Pool) *SchedulerService {
	return NewSchedulerService(
		pool,
		repository.NewSessionRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewTutorProfileRepository(pool),
		repository.NewAttendanceRepository(pool),
		nil,
	)
}

func newIntegrationEscrow(pool *pgxpool.Pool) *EscrowService {
	return NewEscrowService(
		pool,
		repository.NewPaymentRepository(pool),
		repository.NewPayoutRepository(pool),
		repository.NewSessionRepository(pool),
		0.05,
		24*time.Hour,
		30*time.Minute,
		nil,
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("escrow-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		FirstName:    "Test",
		LastName:     "Account",
		Role:         role,
		Language:     "en",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	switch role {
	case models.RoleStudent:
		if err := repository.NewStudentProfileRepository(pool).CreateEmpty(ctx, user.ID); err != nil {
			t.Fatalf("CreateEmpty student profile: %v", err)
		}
	case models.RoleTutor:
		if err := repository.NewTutorProfileRepository(pool).CreateEmpty(ctx, user.ID); err != nil {
			t.Fatalf("CreateEmpty tutor profile: %v", err)
		}
	}
	return user.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}
	// Profiles, sessions, attendance, payments, payouts and reviews all
	// cascade from users.
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
