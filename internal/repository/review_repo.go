package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const reviewColumns = `id, student_id, tutor_id, session_id, rating, comment, created_at`

type CreateReviewInput struct {
	StudentID int64
	TutorID   int64
	SessionID int64
	Rating    int
	Comment   *string
}

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func scanReview(row pgx.Row, review *models.Review) error {
	return row.Scan(
		&review.ID,
		&review.StudentID,
		&review.TutorID,
		&review.SessionID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
}

func (r *ReviewRepository) Create(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	query := fmt.Sprintf(`
		INSERT INTO reviews (student_id, tutor_id, session_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, reviewColumns)

	var review models.Review
	err := scanReview(r.db.QueryRow(
		ctx,
		query,
		input.StudentID,
		input.TutorID,
		input.SessionID,
		input.Rating,
		input.Comment,
	), &review)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ExistsForSession(ctx context.Context, sessionID int64, studentID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews WHERE session_id = $1 AND student_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, sessionID, studentID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ReviewRepository) ListByTutor(ctx context.Context, tutorID int64) ([]models.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE tutor_id = $1
		ORDER BY created_at DESC, id DESC
	`, reviewColumns)

	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		if err := scanReview(rows, &review); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}
