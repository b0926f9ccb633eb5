package models

import "time"

// TutorProfile aggregate fields (RatingAverage, RatingsCount,
// CompletedSessions) are maintained by the rating and scheduler services and
// are never accepted from client input.
type TutorProfile struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Education         *string   `json:"education,omitempty"`
	Certifications    []string  `json:"certifications,omitempty"`
	ExperienceYears   int       `json:"experience_years"`
	Subjects          []string  `json:"subjects,omitempty"`
	HourlyRate        *float64  `json:"hourly_rate,omitempty"`
	Currency          *string   `json:"currency,omitempty"`
	RatingAverage     float64   `json:"rating_average"`
	RatingsCount      int       `json:"ratings_count"`
	CompletedSessions int       `json:"completed_sessions"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type StudentProfile struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Grade         *string   `json:"grade,omitempty"`
	School        *string   `json:"school,omitempty"`
	Subjects      []string  `json:"subjects,omitempty"`
	LearningStyle *string   `json:"learning_style,omitempty"`
	ParentID      *int64    `json:"parent_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
