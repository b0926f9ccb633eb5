package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/services"
)

type stubSchedulerService struct {
	bookResult    *models.Session
	bookErr       error
	listResult    []models.Session
	listErr       error
	getResult     *models.Session
	getErr        error
	updateResult  *models.Session
	updateErr     error
	lastBookInput services.BookSessionInput
	lastUpdate    services.UpdateSessionInput
	lastActorID   int64
	lastRole      string
	lastSessionID int64
}

func (s *stubSchedulerService) BookSession(_ context.Context, actorID int64, role string, input services.BookSessionInput) (*models.Session, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubSchedulerService) ListUpcoming(_ context.Context, userID int64) ([]models.Session, error) {
	s.lastActorID = userID
	return s.listResult, s.listErr
}

func (s *stubSchedulerService) ListPast(_ context.Context, userID int64) ([]models.Session, error) {
	s.lastActorID = userID
	return s.listResult, s.listErr
}

func (s *stubSchedulerService) GetSession(_ context.Context, actorID int64, role string, sessionID int64) (*models.Session, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func (s *stubSchedulerService) UpdateSession(_ context.Context, actorID int64, role string, sessionID int64, input services.UpdateSessionInput) (*models.Session, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	s.lastUpdate = input
	return s.updateResult, s.updateErr
}

type stubAttendanceService struct {
	joinResult  *models.Attendance
	joinErr     error
	leaveResult *models.Attendance
	leaveErr    error
	listResult  []models.Attendance
	listErr     error
	lastAction  string
	lastUserID  int64
}

func (s *stubAttendanceService) RecordJoin(_ context.Context, sessionID int64, userID int64) (*models.Attendance, error) {
	s.lastAction = "join"
	s.lastUserID = userID
	return s.joinResult, s.joinErr
}

func (s *stubAttendanceService) RecordLeave(_ context.Context, sessionID int64, userID int64) (*models.Attendance, error) {
	s.lastAction = "leave"
	s.lastUserID = userID
	return s.leaveResult, s.leaveErr
}

func (s *stubAttendanceService) ListBySession(_ context.Context, actorID int64, role string, sessionID int64) ([]models.Attendance, error) {
	return s.listResult, s.listErr
}

func newSessionTestApp(handler *SessionHandler, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", int64(42))
		c.Locals("role", role)
		return c.Next()
	})
	app.Post("/api/v1/sessions/book", handler.BookSession)
	app.Get("/api/v1/sessions/upcoming", handler.ListUpcoming)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	app.Patch("/api/v1/sessions/:id", handler.UpdateSession)
	app.Post("/api/v1/sessions/:id/attendance", handler.RecordAttendance)
	return app
}

func TestBookSessionReturnsCreatedSession(t *testing.T) {
	scheduler := &stubSchedulerService{
		bookResult: &models.Session{
			ID:        91,
			StudentID: 42,
			TutorID:   7,
			Status:    "scheduled",
		},
	}
	handler := &SessionHandler{scheduler: scheduler, attendance: &stubAttendanceService{}}
	app := newSessionTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"tutor_id": 7,
		"title": "Algebra catch-up",
		"subject": "Mathematics",
		"start_time": "2026-10-01T09:00:00Z",
		"end_time": "2026-10-01T10:00:00Z",
		"price": 1500,
		"currency": "NGN"
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
	if scheduler.lastActorID != 42 {
		t.Fatalf("expected actor id 42, got %d", scheduler.lastActorID)
	}
	if scheduler.lastRole != "student" {
		t.Fatalf("expected student role, got %q", scheduler.lastRole)
	}
	if scheduler.lastBookInput.TutorID != 7 {
		t.Fatalf("expected tutor id 7, got %d", scheduler.lastBookInput.TutorID)
	}
	if !scheduler.lastBookInput.StartTime.Before(scheduler.lastBookInput.EndTime) {
		t.Fatalf("expected parsed start before end, got %+v", scheduler.lastBookInput)
	}
}

func TestBookSessionRejectsBadTimestamp(t *testing.T) {
	handler := &SessionHandler{scheduler: &stubSchedulerService{}, attendance: &stubAttendanceService{}}
	app := newSessionTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"tutor_id": 7,
		"title": "Algebra catch-up",
		"subject": "Mathematics",
		"start_time": "next tuesday",
		"end_time": "2026-10-01T10:00:00Z",
		"price": 1500,
		"currency": "NGN"
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

func TestBookSessionReturnsConflictForOverlap(t *testing.T) {
	scheduler := &stubSchedulerService{bookErr: services.ErrConflict}
	handler := &SessionHandler{scheduler: scheduler, attendance: &stubAttendanceService{}}
	app := newSessionTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"tutor_id": 7,
		"title": "Algebra catch-up",
		"subject": "Mathematics",
		"start_time": "2026-10-01T09:00:00Z",
		"end_time": "2026-10-01T10:00:00Z",
		"price": 1500,
		"currency": "NGN"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestGetSessionReturnsNotFound(t *testing.T) {
	scheduler := &stubSchedulerService{getErr: pgx.ErrNoRows}
	handler := &SessionHandler{scheduler: scheduler, attendance: &stubAttendanceService{}}
	app := newSessionTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateSessionMapsInvalidTransition(t *testing.T) {
	scheduler := &stubSchedulerService{updateErr: services.ErrInvalidStateTransition}
	handler := &SessionHandler{scheduler: scheduler, attendance: &stubAttendanceService{}}
	app := newSessionTestApp(handler, "tutor")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/sessions/5", strings.NewReader(`{"status": "cancelled"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if scheduler.lastUpdate.Status == nil || *scheduler.lastUpdate.Status != "cancelled" {
		t.Fatalf("expected requested status cancelled, got %+v", scheduler.lastUpdate.Status)
	}
}

func TestRecordAttendanceDefaultsToJoin(t *testing.T) {
	attendance := &stubAttendanceService{
		joinResult: &models.Attendance{ID: 3, SessionID: 5, UserID: 42},
	}
	handler := &SessionHandler{scheduler: &stubSchedulerService{}, attendance: attendance}
	app := newSessionTestApp(handler, "student")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/5/attendance", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if attendance.lastAction != "join" {
		t.Fatalf("expected join, got %q", attendance.lastAction)
	}
	if attendance.lastUserID != 42 {
		t.Fatalf("expected user 42, got %d", attendance.lastUserID)
	}
}

func TestRecordAttendanceLeaveOnTerminalSession(t *testing.T) {
	attendance := &stubAttendanceService{leaveErr: services.ErrInvalidStateTransition}
	handler := &SessionHandler{scheduler: &stubSchedulerService{}, attendance: attendance}
	app := newSessionTestApp(handler, "tutor")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/5/attendance", strings.NewReader(`{"action": "leave"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if attendance.lastAction != "leave" {
		t.Fatalf("expected leave, got %q", attendance.lastAction)
	}
}
