package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const sessionColumns = `id, student_id, tutor_id, title, description, subject,
	start_time, end_time, status, meeting_link, notes, price, currency,
	is_recurring, recurring_pattern, created_at, updated_at`

type CreateSessionInput struct {
	StudentID        int64
	TutorID          int64
	Title            string
	Description      *string
	Subject          string
	StartTime        time.Time
	EndTime          time.Time
	Price            float64
	Currency         string
	MeetingLink      string
	IsRecurring      bool
	RecurringPattern *string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row, session *models.Session) error {
	return row.Scan(
		&session.ID,
		&session.StudentID,
		&session.TutorID,
		&session.Title,
		&session.Description,
		&session.Subject,
		&session.StartTime,
		&session.EndTime,
		&session.Status,
		&session.MeetingLink,
		&session.Notes,
		&session.Price,
		&session.Currency,
		&session.IsRecurring,
		&session.RecurringPattern,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO sessions (student_id, tutor_id, title, description, subject,
			start_time, end_time, status, meeting_link, price, currency,
			is_recurring, recurring_pattern)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, $10, $11, $12)
		RETURNING %s
	`, sessionColumns)

	var session models.Session
	err := scanSession(r.db.QueryRow(
		ctx,
		query,
		input.StudentID,
		input.TutorID,
		input.Title,
		input.Description,
		input.Subject,
		input.StartTime,
		input.EndTime,
		input.MeetingLink,
		input.Price,
		input.Currency,
		input.IsRecurring,
		input.RecurringPattern,
	), &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1 FOR UPDATE`, sessionColumns)
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListUpcoming returns the user's sessions (either side) that are still active
// and have not started yet, soonest first.
func (r *SessionRepository) ListUpcoming(ctx context.Context, userID int64) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE (student_id = $1 OR tutor_id = $1)
		  AND status NOT IN ('cancelled', 'completed')
		  AND start_time >= NOW()
		ORDER BY start_time ASC, id ASC
	`, sessionColumns)
	return r.list(ctx, query, userID)
}

// ListPast returns the user's sessions whose scheduled end has passed, most
// recent first.
func (r *SessionRepository) ListPast(ctx context.Context, userID int64) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE (student_id = $1 OR tutor_id = $1)
		  AND end_time <= NOW()
		ORDER BY end_time DESC, id DESC
	`, sessionColumns)
	return r.list(ctx, query, userID)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

type SessionPatch struct {
	Title            *string
	Description      *string
	Notes            *string
	MeetingLink      *string
	Price            *float64
	Currency         *string
	IsRecurring      *bool
	RecurringPattern *string
}

func (p SessionPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Notes == nil &&
		p.MeetingLink == nil && p.Price == nil && p.Currency == nil &&
		p.IsRecurring == nil && p.RecurringPattern == nil
}

// UpdateFields applies non-status patch fields. Status transitions go through
// UpdateStatusIfCurrent so state-machine checks cannot be bypassed.
func (r *SessionRepository) UpdateFields(ctx context.Context, sessionID int64, patch SessionPatch) (*models.Session, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{sessionID}

	addSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		addSet("title", *patch.Title)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.Notes != nil {
		addSet("notes", *patch.Notes)
	}
	if patch.MeetingLink != nil {
		addSet("meeting_link", *patch.MeetingLink)
	}
	if patch.Price != nil {
		addSet("price", *patch.Price)
	}
	if patch.Currency != nil {
		addSet("currency", *patch.Currency)
	}
	if patch.IsRecurring != nil {
		addSet("is_recurring", *patch.IsRecurring)
	}
	if patch.RecurringPattern != nil {
		addSet("recurring_pattern", *patch.RecurringPattern)
	}

	query := fmt.Sprintf(`
		UPDATE sessions
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), sessionColumns)

	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, args...), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus string,
	nextStatus string,
) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, sessionColumns)

	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID, currentStatus, nextStatus), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// HasConflict reports whether any non-cancelled session for the tutor overlaps
// the half-open interval [start, end).
func (r *SessionRepository) HasConflict(
	ctx context.Context,
	tutorID int64,
	start time.Time,
	end time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM sessions
			WHERE tutor_id = $1
			  AND status <> 'cancelled'
			  AND start_time < $3
			  AND end_time > $2
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, tutorID, start, end).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}
