package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const attendanceColumns = `id, session_id, user_id, join_time, leave_time, duration, created_at`

type AttendanceRepository struct {
	db DBTX
}

func NewAttendanceRepository(db DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func scanAttendance(row pgx.Row, attendance *models.Attendance) error {
	return row.Scan(
		&attendance.ID,
		&attendance.SessionID,
		&attendance.UserID,
		&attendance.JoinTime,
		&attendance.LeaveTime,
		&attendance.DurationMinutes,
		&attendance.CreatedAt,
	)
}

// RecordJoin upserts the single (session, user) row. A re-join after a leave
// stamps the new join time and clears leave_time; accumulated duration is kept.
func (r *AttendanceRepository) RecordJoin(
	ctx context.Context,
	sessionID int64,
	userID int64,
	joinTime time.Time,
) (*models.Attendance, error) {
	query := fmt.Sprintf(`
		INSERT INTO session_attendance (session_id, user_id, join_time, duration)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (session_id, user_id)
		DO UPDATE SET join_time = EXCLUDED.join_time, leave_time = NULL
		RETURNING %s
	`, attendanceColumns)

	var attendance models.Attendance
	if err := scanAttendance(r.db.QueryRow(ctx, query, sessionID, userID, joinTime), &attendance); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// RecordLeave stamps leave_time and folds the elapsed minutes of the current
// cycle into the running duration. pgx.ErrNoRows means there is no open join.
func (r *AttendanceRepository) RecordLeave(
	ctx context.Context,
	sessionID int64,
	userID int64,
	leaveTime time.Time,
) (*models.Attendance, error) {
	query := fmt.Sprintf(`
		UPDATE session_attendance
		SET leave_time = $3,
		    duration = duration + GREATEST(0, CEIL(EXTRACT(EPOCH FROM ($3 - join_time)) / 60))::int
		WHERE session_id = $1 AND user_id = $2
		  AND join_time IS NOT NULL AND leave_time IS NULL
		RETURNING %s
	`, attendanceColumns)

	var attendance models.Attendance
	if err := scanAttendance(r.db.QueryRow(ctx, query, sessionID, userID, leaveTime), &attendance); err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.Attendance, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM session_attendance
		WHERE session_id = $1
		ORDER BY id ASC
	`, attendanceColumns)

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.Attendance, 0)
	for rows.Next() {
		var attendance models.Attendance
		if err := scanAttendance(rows, &attendance); err != nil {
			return nil, err
		}
		records = append(records, attendance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// BothParticipantsJoined reports whether the student and the tutor each have a
// recorded join for the session.
func (r *AttendanceRepository) BothParticipantsJoined(
	ctx context.Context,
	sessionID int64,
	studentID int64,
	tutorID int64,
) (bool, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM session_attendance
		WHERE session_id = $1
		  AND user_id IN ($2, $3)
		  AND join_time IS NOT NULL
	`
	var joined int
	if err := r.db.QueryRow(ctx, query, sessionID, studentID, tutorID).Scan(&joined); err != nil {
		return false, err
	}
	return joined == 2, nil
}
