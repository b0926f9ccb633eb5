package services

import (
	"context"
	"time"

	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

type sessionProgressor interface {
	MaybeStart(ctx context.Context, session *models.Session, now time.Time) (*models.Session, error)
	MaybeComplete(ctx context.Context, sessionID int64, now time.Time) (*models.Session, error)
}

// AttendanceService keeps one attendance row per (session, user): repeated
// join/leave cycles accumulate into that row's duration.
type AttendanceService struct {
	sessionRepo    *repository.SessionRepository
	attendanceRepo *repository.AttendanceRepository
	scheduler      sessionProgressor
}

func NewAttendanceService(
	sessionRepo *repository.SessionRepository,
	attendanceRepo *repository.AttendanceRepository,
	scheduler sessionProgressor,
) *AttendanceService {
	return &AttendanceService{
		sessionRepo:    sessionRepo,
		attendanceRepo: attendanceRepo,
		scheduler:      scheduler,
	}
}

// RecordJoin stamps the participant's join time and, once the scheduled start
// has arrived, moves the session into progress.
func (s *AttendanceService) RecordJoin(
	ctx context.Context,
	sessionID int64,
	userID int64,
) (*models.Attendance, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(userID) {
		return nil, ErrForbidden
	}
	if models.TerminalSessionStatus(session.Status) {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	attendance, err := s.attendanceRepo.RecordJoin(ctx, sessionID, userID, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.scheduler.MaybeStart(ctx, session, now); err != nil {
		return nil, err
	}
	return attendance, nil
}

// RecordLeave stamps the leave time, folds the cycle into the accumulated
// duration, and gives the scheduler a chance to complete the session.
func (s *AttendanceService) RecordLeave(
	ctx context.Context,
	sessionID int64,
	userID int64,
) (*models.Attendance, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(userID) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	attendance, err := s.attendanceRepo.RecordLeave(ctx, sessionID, userID, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.scheduler.MaybeComplete(ctx, sessionID, now); err != nil {
		return nil, err
	}
	return attendance, nil
}

func (s *AttendanceService) ListBySession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
) ([]models.Attendance, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !session.IsParticipant(actorID) {
		return nil, ErrForbidden
	}
	return s.attendanceRepo.ListBySession(ctx, sessionID)
}
