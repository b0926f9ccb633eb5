package models

import "time"

const (
	SessionScheduled  = "scheduled"
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionCancelled  = "cancelled"
)

type Session struct {
	ID               int64     `json:"id"`
	StudentID        int64     `json:"student_id"`
	TutorID          int64     `json:"tutor_id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description,omitempty"`
	Subject          string    `json:"subject"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Status           string    `json:"status"`
	MeetingLink      *string   `json:"meeting_link,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	Price            float64   `json:"price"`
	Currency         string    `json:"currency"`
	IsRecurring      bool      `json:"is_recurring"`
	RecurringPattern *string   `json:"recurring_pattern,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Attendance keeps one row per (session, user). Duration accumulates across
// join/leave cycles and is stored in minutes.
type Attendance struct {
	ID              int64      `json:"id"`
	SessionID       int64      `json:"session_id"`
	UserID          int64      `json:"user_id"`
	JoinTime        *time.Time `json:"join_time,omitempty"`
	LeaveTime       *time.Time `json:"leave_time,omitempty"`
	DurationMinutes int        `json:"duration"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsParticipant reports whether userID is the session's student or tutor.
func (s *Session) IsParticipant(userID int64) bool {
	return s.StudentID == userID || s.TutorID == userID
}

func TerminalSessionStatus(status string) bool {
	return status == SessionCompleted || status == SessionCancelled
}
