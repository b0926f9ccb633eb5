package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
	"github.com/regconline/afrilearn/internal/services"
)

type schedulerApplicationService interface {
	BookSession(ctx context.Context, actorID int64, role string, input services.BookSessionInput) (*models.Session, error)
	ListUpcoming(ctx context.Context, userID int64) ([]models.Session, error)
	ListPast(ctx context.Context, userID int64) ([]models.Session, error)
	GetSession(ctx context.Context, actorID int64, role string, sessionID int64) (*models.Session, error)
	UpdateSession(ctx context.Context, actorID int64, role string, sessionID int64, input services.UpdateSessionInput) (*models.Session, error)
}

type attendanceApplicationService interface {
	RecordJoin(ctx context.Context, sessionID int64, userID int64) (*models.Attendance, error)
	RecordLeave(ctx context.Context, sessionID int64, userID int64) (*models.Attendance, error)
	ListBySession(ctx context.Context, actorID int64, role string, sessionID int64) ([]models.Attendance, error)
}

type SessionHandler struct {
	scheduler  schedulerApplicationService
	attendance attendanceApplicationService
}

func NewSessionHandler(
	scheduler *services.SchedulerService,
	attendance *services.AttendanceService,
) *SessionHandler {
	return &SessionHandler{scheduler: scheduler, attendance: attendance}
}

type bookSessionRequest struct {
	StudentID        int64   `json:"student_id"`
	TutorID          int64   `json:"tutor_id"`
	Title            string  `json:"title" validate:"required"`
	Description      *string `json:"description"`
	Subject          string  `json:"subject" validate:"required"`
	StartTime        string  `json:"start_time" validate:"required"`
	EndTime          string  `json:"end_time" validate:"required"`
	Price            float64 `json:"price" validate:"required,gt=0"`
	Currency         string  `json:"currency" validate:"required"`
	IsRecurring      bool    `json:"is_recurring"`
	RecurringPattern *string `json:"recurring_pattern"`
}

type updateSessionRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Notes            *string  `json:"notes"`
	MeetingLink      *string  `json:"meeting_link"`
	Price            *float64 `json:"price"`
	Currency         *string  `json:"currency"`
	IsRecurring      *bool    `json:"is_recurring"`
	RecurringPattern *string  `json:"recurring_pattern"`
	Status           *string  `json:"status"`
}

type attendanceRequest struct {
	Action string `json:"action" validate:"required,oneof=join leave"`
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bookSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
	}
	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be a valid RFC3339 timestamp"})
	}

	session, err := h.scheduler.BookSession(c.Context(), userID, authRole(c), services.BookSessionInput{
		StudentID:        req.StudentID,
		TutorID:          req.TutorID,
		Title:            req.Title,
		Description:      req.Description,
		Subject:          req.Subject,
		StartTime:        startTime,
		EndTime:          endTime,
		Price:            req.Price,
		Currency:         req.Currency,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
	})
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListUpcoming(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessions, err := h.scheduler.ListUpcoming(c.Context(), userID)
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) ListPast(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessions, err := h.scheduler.ListPast(c.Context(), userID)
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.scheduler.GetSession(c.Context(), userID, authRole(c), sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.scheduler.UpdateSession(c.Context(), userID, authRole(c), sessionID, services.UpdateSessionInput{
		Patch: repository.SessionPatch{
			Title:            req.Title,
			Description:      req.Description,
			Notes:            req.Notes,
			MeetingLink:      req.MeetingLink,
			Price:            req.Price,
			Currency:         req.Currency,
			IsRecurring:      req.IsRecurring,
			RecurringPattern: req.RecurringPattern,
		},
		Status: req.Status,
	})
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) RecordAttendance(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	req := attendanceRequest{Action: "join"}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action must be join or leave"})
	}

	var attendance *models.Attendance
	if req.Action == "leave" {
		attendance, err = h.attendance.RecordLeave(c.Context(), sessionID, userID)
	} else {
		attendance, err = h.attendance.RecordJoin(c.Context(), sessionID, userID)
	}
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"attendance": attendance})
}

func (h *SessionHandler) ListAttendance(c *fiber.Ctx) error {
	userID, err := authUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	records, err := h.attendance.ListBySession(c.Context(), userID, authRole(c), sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"attendance": records})
}

func parseSessionID(c *fiber.Ctx) (int64, error) {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return sessionID, nil
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Requested time conflicts with another session"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTutorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor not found"})
	case errors.Is(err, services.ErrStudentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
