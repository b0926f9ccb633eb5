package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/services"
)

type stubEscrowService struct {
	createResult *models.Payment
	createErr    error
	payments     []models.Payment
	payouts      []models.Payout
	listErr      error
	lastActorID  int64
	lastInput    services.CreatePaymentInput
}

func (s *stubEscrowService) CreatePayment(_ context.Context, actorID int64, input services.CreatePaymentInput) (*models.Payment, error) {
	s.lastActorID = actorID
	s.lastInput = input
	return s.createResult, s.createErr
}

func (s *stubEscrowService) ListPayments(_ context.Context, userID int64) ([]models.Payment, error) {
	s.lastActorID = userID
	return s.payments, s.listErr
}

func (s *stubEscrowService) ListPayouts(_ context.Context, tutorID int64) ([]models.Payout, error) {
	s.lastActorID = tutorID
	return s.payouts, s.listErr
}

func newPaymentTestApp(handler *PaymentHandler, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", int64(42))
		c.Locals("role", role)
		return c.Next()
	})
	app.Post("/api/v1/payments", handler.CreatePayment)
	app.Get("/api/v1/payments", handler.ListPayments)
	app.Get("/api/v1/payouts", handler.ListPayouts)
	return app
}

func TestCreatePaymentReturnsPendingPayment(t *testing.T) {
	escrow := &stubEscrowService{
		createResult: &models.Payment{ID: 8, UserID: 42, Status: models.PaymentPending},
	}
	handler := &PaymentHandler{escrow: escrow}
	app := newPaymentTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{
		"amount": 1000,
		"currency": "KES",
		"gateway": "mpesa",
		"session_id": 5
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if escrow.lastActorID != 42 {
		t.Fatalf("expected actor 42, got %d", escrow.lastActorID)
	}
	if escrow.lastInput.Gateway != "mpesa" || escrow.lastInput.Amount != 1000 {
		t.Fatalf("unexpected input: %+v", escrow.lastInput)
	}
	if escrow.lastInput.SessionID == nil || *escrow.lastInput.SessionID != 5 {
		t.Fatalf("expected session id 5, got %+v", escrow.lastInput.SessionID)
	}
}

func TestCreatePaymentRejectsMissingAmount(t *testing.T) {
	handler := &PaymentHandler{escrow: &stubEscrowService{}}
	app := newPaymentTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{
		"currency": "KES",
		"gateway": "mpesa"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreatePaymentMapsForbidden(t *testing.T) {
	handler := &PaymentHandler{escrow: &stubEscrowService{createErr: services.ErrForbidden}}
	app := newPaymentTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{
		"amount": 1000,
		"currency": "KES",
		"gateway": "mpesa",
		"session_id": 5
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListPayoutsRejectsStudents(t *testing.T) {
	escrow := &stubEscrowService{}
	handler := &PaymentHandler{escrow: escrow}
	app := newPaymentTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestListPayoutsReturnsTutorHistory(t *testing.T) {
	escrow := &stubEscrowService{
		payouts: []models.Payout{{ID: 2, TutorID: 42, Amount: 950}},
	}
	handler := &PaymentHandler{escrow: escrow}
	app := newPaymentTestApp(handler, "tutor")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if escrow.lastActorID != 42 {
		t.Fatalf("expected tutor 42, got %d", escrow.lastActorID)
	}
}
