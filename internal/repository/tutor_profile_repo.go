package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const tutorProfileColumns = `id, user_id, education, certifications, experience,
	subjects, hourly_rate, currency, rating_average, ratings_count,
	completed_sessions, created_at, updated_at`

type TutorProfileRepository struct {
	db DBTX
}

func NewTutorProfileRepository(db DBTX) *TutorProfileRepository {
	return &TutorProfileRepository{db: db}
}

func scanTutorProfile(row pgx.Row, profile *models.TutorProfile) error {
	return row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Education,
		&profile.Certifications,
		&profile.ExperienceYears,
		&profile.Subjects,
		&profile.HourlyRate,
		&profile.Currency,
		&profile.RatingAverage,
		&profile.RatingsCount,
		&profile.CompletedSessions,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
}

func (r *TutorProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tutor_profiles (user_id) VALUES ($1)`, userID)
	return err
}

func (r *TutorProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM tutor_profiles WHERE user_id = $1`, tutorProfileColumns)
	var profile models.TutorProfile
	if err := scanTutorProfile(r.db.QueryRow(ctx, query, userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateTutorProfileInput struct {
	Education       *string
	Certifications  []string
	ExperienceYears *int
	Subjects        []string
	HourlyRate      *float64
	Currency        *string
}

func (r *TutorProfileRepository) Update(
	ctx context.Context,
	userID int64,
	input UpdateTutorProfileInput,
) (*models.TutorProfile, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{userID}

	addSet := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.Education != nil {
		addSet("education", *input.Education)
	}
	if input.Certifications != nil {
		addSet("certifications", input.Certifications)
	}
	if input.ExperienceYears != nil {
		addSet("experience", *input.ExperienceYears)
	}
	if input.Subjects != nil {
		addSet("subjects", input.Subjects)
	}
	if input.HourlyRate != nil {
		addSet("hourly_rate", *input.HourlyRate)
	}
	if input.Currency != nil {
		addSet("currency", *input.Currency)
	}

	query := fmt.Sprintf(`
		UPDATE tutor_profiles
		SET %s
		WHERE user_id = $1
		RETURNING %s
	`, strings.Join(setParts, ", "), tutorProfileColumns)

	var profile models.TutorProfile
	if err := scanTutorProfile(r.db.QueryRow(ctx, query, args...), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

type TutorListFilter struct {
	Subject   string
	MinRating float64
	Page      int
	Limit     int
}

func (r *TutorProfileRepository) List(ctx context.Context, filter TutorListFilter) ([]models.TutorProfile, int, error) {
	whereParts := []string{"TRUE"}
	args := []any{}

	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		args = append(args, subject)
		whereParts = append(whereParts, fmt.Sprintf("subjects @> ARRAY[$%d]::text[]", len(args)))
	}
	if filter.MinRating > 0 {
		args = append(args, filter.MinRating)
		whereParts = append(whereParts, fmt.Sprintf("rating_average >= $%d", len(args)))
	}
	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tutor_profiles WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM tutor_profiles
		WHERE %s
		ORDER BY rating_average DESC, ratings_count DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, tutorProfileColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]models.TutorProfile, 0)
	for rows.Next() {
		var profile models.TutorProfile
		if err := scanTutorProfile(rows, &profile); err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ApplyRating folds one rating into the running aggregate with a
// compare-and-swap on ratings_count. pgx.ErrNoRows signals a concurrent update
// and the caller retries the whole submission.
func (r *TutorProfileRepository) ApplyRating(
	ctx context.Context,
	tutorID int64,
	expectedCount int,
	newAverage float64,
) (*models.TutorProfile, error) {
	query := fmt.Sprintf(`
		UPDATE tutor_profiles
		SET rating_average = $3, ratings_count = ratings_count + 1, updated_at = NOW()
		WHERE user_id = $1 AND ratings_count = $2
		RETURNING %s
	`, tutorProfileColumns)

	var profile models.TutorProfile
	if err := scanTutorProfile(r.db.QueryRow(ctx, query, tutorID, expectedCount, newAverage), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *TutorProfileRepository) IncrementCompletedSessions(ctx context.Context, tutorID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tutor_profiles
		SET completed_sessions = completed_sessions + 1, updated_at = NOW()
		WHERE user_id = $1
	`, tutorID)
	return err
}
