package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTutorNotFound          = errors.New("tutor not found")
	ErrStudentNotFound        = errors.New("student not found")
	ErrDuplicateReview        = errors.New("session already reviewed")
)

const meetingLinkBase = "https://meet.afrilearn.com/"

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type SchedulerService struct {
	db          *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	userRepo    userReader
	tutorRepo   *repository.TutorProfileRepository
	attendance  *repository.AttendanceRepository
	notifier    Notifier
}

func NewSchedulerService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	userRepo userReader,
	tutorRepo *repository.TutorProfileRepository,
	attendanceRepo *repository.AttendanceRepository,
	notifier Notifier,
) *SchedulerService {
	if notifier == nil {
		notifier = NopNotifier
	}
	return &SchedulerService{
		db:          db,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		tutorRepo:   tutorRepo,
		attendance:  attendanceRepo,
		notifier:    notifier,
	}
}

type BookSessionInput struct {
	StudentID        int64
	TutorID          int64
	Title            string
	Description      *string
	Subject          string
	StartTime        time.Time
	EndTime          time.Time
	Price            float64
	Currency         string
	IsRecurring      bool
	RecurringPattern *string
}

// BookSession creates a scheduled session. The requester must be one of the
// two parties (students book themselves, tutors book their own slots) or an
// admin; any other combination is rejected.
func (s *SchedulerService) BookSession(
	ctx context.Context,
	actorID int64,
	role string,
	input BookSessionInput,
) (*models.Session, error) {
	switch role {
	case models.RoleStudent:
		input.StudentID = actorID
	case models.RoleTutor:
		input.TutorID = actorID
	case models.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	if input.StudentID <= 0 || input.TutorID <= 0 || input.StudentID == input.TutorID {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Subject) == "" || strings.TrimSpace(input.Title) == "" {
		return nil, ErrInvalidInput
	}
	if input.Price <= 0 || !models.ValidCurrency(input.Currency) {
		return nil, ErrInvalidInput
	}
	if !input.StartTime.Before(input.EndTime) {
		return nil, ErrInvalidInput
	}
	if input.StartTime.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}

	tutor, err := s.userRepo.GetByID(ctx, input.TutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	if tutor.Role != models.RoleTutor {
		return nil, ErrInvalidInput
	}

	student, err := s.userRepo.GetByID(ctx, input.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.Role != models.RoleStudent {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)

	// Serializes conflict checks per tutor so two overlapping booking
	// attempts cannot both pass validation before either commits.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.TutorID); err != nil {
		return nil, err
	}

	hasConflict, err := txSessionRepo.HasConflict(
		ctx,
		input.TutorID,
		input.StartTime.UTC(),
		input.EndTime.UTC(),
	)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, ErrConflict
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		StudentID:        input.StudentID,
		TutorID:          input.TutorID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Subject:          strings.TrimSpace(input.Subject),
		StartTime:        input.StartTime.UTC(),
		EndTime:          input.EndTime.UTC(),
		Price:            input.Price,
		Currency:         input.Currency,
		MeetingLink:      meetingLinkBase + uuid.NewString(),
		IsRecurring:      input.IsRecurring,
		RecurringPattern: input.RecurringPattern,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyParticipants(session, NotificationEvent{
		Type:      EventSessionBooked,
		SessionID: session.ID,
		Message:   fmt.Sprintf("Session %q booked", session.Title),
		Timestamp: time.Now().UTC(),
	})
	return session, nil
}

func (s *SchedulerService) ListUpcoming(ctx context.Context, userID int64) ([]models.Session, error) {
	return s.sessionRepo.ListUpcoming(ctx, userID)
}

func (s *SchedulerService) ListPast(ctx context.Context, userID int64) ([]models.Session, error) {
	return s.sessionRepo.ListPast(ctx, userID)
}

func (s *SchedulerService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !session.IsParticipant(actorID) {
		return nil, ErrForbidden
	}
	return session, nil
}

type UpdateSessionInput struct {
	Patch  repository.SessionPatch
	Status *string
}

// UpdateSession applies a patch under role rules: non-admin callers may not
// touch price or currency (those fields are silently dropped) and may only
// move status to cancelled. Status writes are guarded against the current
// state so terminal sessions stay terminal.
func (s *SchedulerService) UpdateSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	input UpdateSessionInput,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !session.IsParticipant(actorID) {
		return nil, ErrForbidden
	}

	patch := input.Patch
	nextStatus := ""
	if input.Status != nil {
		nextStatus, err = normalizeSessionStatus(*input.Status)
		if err != nil {
			return nil, err
		}
	}

	if role != models.RoleAdmin {
		patch.Price = nil
		patch.Currency = nil
		patch.MeetingLink = nil
		if nextStatus != "" && nextStatus != models.SessionCancelled {
			// Matches the patch-filtering contract: disallowed status
			// values from participants are dropped, not rejected.
			nextStatus = ""
		}
	}

	if patch.Currency != nil && !models.ValidCurrency(*patch.Currency) {
		return nil, ErrInvalidInput
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return nil, ErrInvalidInput
	}

	if nextStatus != "" {
		if !allowedTransition(session.Status, nextStatus) {
			return nil, ErrInvalidStateTransition
		}

		var updated *models.Session
		if nextStatus == models.SessionCompleted {
			// Completion always goes through the counting path so the
			// tutor's completed-session tally stays accurate.
			updated, err = s.completeSession(ctx, session)
		} else {
			updated, err = s.sessionRepo.UpdateStatusIfCurrent(ctx, sessionID, session.Status, nextStatus)
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidStateTransition
			}
			return nil, err
		}
		session = updated

		switch nextStatus {
		case models.SessionCancelled:
			s.notifyParticipants(session, NotificationEvent{
				Type:      EventSessionCancelled,
				SessionID: session.ID,
				Message:   fmt.Sprintf("Session %q cancelled", session.Title),
				Timestamp: time.Now().UTC(),
			})
		case models.SessionCompleted:
			s.notifyParticipants(session, NotificationEvent{
				Type:      EventSessionCompleted,
				SessionID: session.ID,
				Message:   fmt.Sprintf("Session %q completed", session.Title),
				Timestamp: time.Now().UTC(),
			})
		}
	}

	if patch.Empty() {
		return session, nil
	}
	return s.sessionRepo.UpdateFields(ctx, sessionID, patch)
}

// MaybeStart moves a scheduled session to in_progress once its start time has
// arrived. Called from the attendance path; a lost race is fine.
func (s *SchedulerService) MaybeStart(ctx context.Context, session *models.Session, now time.Time) (*models.Session, error) {
	if session.Status != models.SessionScheduled || now.Before(session.StartTime) {
		return session, nil
	}
	updated, err := s.sessionRepo.UpdateStatusIfCurrent(
		ctx,
		session.ID,
		models.SessionScheduled,
		models.SessionInProgress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.sessionRepo.GetByID(ctx, session.ID)
		}
		return nil, err
	}
	return updated, nil
}

// MaybeComplete transitions an in_progress session to completed once both
// participants have joined and the scheduled end has passed, bumping the
// tutor's completed-session counter in the same transaction.
func (s *SchedulerService) MaybeComplete(ctx context.Context, sessionID int64, now time.Time) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionInProgress || now.Before(session.EndTime) {
		return session, nil
	}

	bothJoined, err := s.attendance.BothParticipantsJoined(ctx, session.ID, session.StudentID, session.TutorID)
	if err != nil {
		return nil, err
	}
	if !bothJoined {
		return session, nil
	}

	updated, err := s.completeSession(ctx, session)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.sessionRepo.GetByID(ctx, session.ID)
		}
		return nil, err
	}

	s.notifyParticipants(updated, NotificationEvent{
		Type:      EventSessionCompleted,
		SessionID: updated.ID,
		Message:   fmt.Sprintf("Session %q completed", updated.Title),
		Timestamp: now.UTC(),
	})
	return updated, nil
}

// completeSession flips the session to completed and bumps the tutor's
// completed-session counter in one transaction. Both the attendance path and
// admin status updates land here.
func (s *SchedulerService) completeSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	updated, err := repository.NewSessionRepository(tx).UpdateStatusIfCurrent(
		ctx,
		session.ID,
		session.Status,
		models.SessionCompleted,
	)
	if err != nil {
		return nil, err
	}
	if err := repository.NewTutorProfileRepository(tx).IncrementCompletedSessions(ctx, session.TutorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SchedulerService) notifyParticipants(session *models.Session, event NotificationEvent) {
	s.notifier.Notify(session.StudentID, event)
	s.notifier.Notify(session.TutorID, event)
}

func normalizeSessionStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "scheduled":
		return models.SessionScheduled, nil
	case "in_progress", "in-progress":
		return models.SessionInProgress, nil
	case "complete", "completed":
		return models.SessionCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.SessionCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// allowedTransition encodes the forward-only session state machine:
// scheduled -> in_progress -> completed, with cancellation from any
// non-terminal state. Terminal states have no outgoing edges.
func allowedTransition(current, next string) bool {
	switch current {
	case models.SessionScheduled:
		return next == models.SessionInProgress || next == models.SessionCancelled
	case models.SessionInProgress:
		return next == models.SessionCompleted || next == models.SessionCancelled
	default:
		return false
	}
}
