package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/services"
)

type escrowApplicationService interface {
	CreatePayment(ctx context.Context, actorID int64, input services.CreatePaymentInput) (*models.Payment, error)
	ListPayments(ctx context.Context, userID int64) ([]models.Payment, error)
	ListPayouts(ctx context.Context, tutorID int64) ([]models.Payout, error)
}

type PaymentHandler struct {
	escrow escrowApplicationService
}

func NewPaymentHandler(escrow *services.EscrowService) *PaymentHandler {
	return &PaymentHandler{escrow: escrow}
}

type createPaymentRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"required"`
	Gateway   string  `json:"gateway" validate:"required"`
	SessionID *int64  `json:"session_id"`
}

func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := h.escrow.CreatePayment(c.Context(), userID, services.CreatePaymentInput{
		Amount:    req.Amount,
		Currency:  req.Currency,
		Gateway:   req.Gateway,
		SessionID: req.SessionID,
	})
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payment": payment})
}

func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	payments, err := h.escrow.ListPayments(c.Context(), userID)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}

func (h *PaymentHandler) ListPayouts(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role := authRole(c); role != models.RoleTutor && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	payouts, err := h.escrow.ListPayouts(c.Context(), userID)
	if err != nil {
		return mapPaymentError(c, err)
	}
	return c.JSON(fiber.Map{"payouts": payouts})
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment details"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payment request"})
	}
}
