package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/services"
)

type ratingApplicationService interface {
	SubmitReview(ctx context.Context, studentID int64, input services.SubmitReviewInput) (*models.Review, error)
	ListTutorReviews(ctx context.Context, tutorID int64) ([]models.Review, error)
}

type ReviewHandler struct {
	ratings ratingApplicationService
}

func NewReviewHandler(ratings *services.RatingService) *ReviewHandler {
	return &ReviewHandler{ratings: ratings}
}

type submitReviewRequest struct {
	TutorID   int64   `json:"tutor_id" validate:"required"`
	SessionID int64   `json:"session_id" validate:"required"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Comment   *string `json:"comment"`
}

func (h *ReviewHandler) SubmitReview(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if authRole(c) != models.RoleStudent {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only students can submit reviews"})
	}

	var req submitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	review, err := h.ratings.SubmitReview(c.Context(), userID, services.SubmitReviewInput{
		TutorID:   req.TutorID,
		SessionID: req.SessionID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		case errors.Is(err, services.ErrDuplicateReview):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already reviewed"})
		case errors.Is(err, services.ErrInvalidStateTransition):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Session is not completed"})
		case errors.Is(err, pgx.ErrNoRows):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit review"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}

func (h *ReviewHandler) GetTutorReviews(c *fiber.Ctx) error {
	tutorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || tutorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}
	reviews, err := h.ratings.ListTutorReviews(c.Context(), tutorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch reviews"})
	}
	return c.JSON(fiber.Map{"reviews": reviews})
}
