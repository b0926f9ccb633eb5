package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/services"
)

type webhookConfirmer interface {
	ConfirmWebhook(ctx context.Context, reference string, gatewayStatus string, transactionID string) (*models.Payment, error)
}

// WebhookHandler receives asynchronous payment confirmations from the
// gateways. Requests are authenticated by an HMAC-SHA256 signature of the raw
// body, not by a user token.
type WebhookHandler struct {
	escrow webhookConfirmer
	secret string
}

func NewWebhookHandler(escrow *services.EscrowService, secret string) *WebhookHandler {
	return &WebhookHandler{escrow: escrow, secret: secret}
}

type paymentWebhookPayload struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

func (h *WebhookHandler) PaymentStatus(c *fiber.Ctx) error {
	body := c.Body()
	if !h.verifySignature(body, c.Get("X-Webhook-Signature")) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	var payload paymentWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}
	if payload.Reference == "" || payload.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reference and status are required"})
	}

	payment, err := h.escrow.ConfirmWebhook(c.Context(), payload.Reference, payload.Status, payload.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unrecognized gateway status"})
		case errors.Is(err, pgx.ErrNoRows):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown payment reference"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
		}
	}
	return c.JSON(fiber.Map{"payment": payment})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
