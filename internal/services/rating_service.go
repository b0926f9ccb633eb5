package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

const ratingRetries = 3

type RatingService struct {
	db          *pgxpool.Pool
	reviewRepo  *repository.ReviewRepository
	sessionRepo *repository.SessionRepository
	tutorRepo   *repository.TutorProfileRepository
}

func NewRatingService(
	db *pgxpool.Pool,
	reviewRepo *repository.ReviewRepository,
	sessionRepo *repository.SessionRepository,
	tutorRepo *repository.TutorProfileRepository,
) *RatingService {
	return &RatingService{
		db:          db,
		reviewRepo:  reviewRepo,
		sessionRepo: sessionRepo,
		tutorRepo:   tutorRepo,
	}
}

type SubmitReviewInput struct {
	TutorID   int64
	SessionID int64
	Rating    int
	Comment   *string
}

// SubmitReview records a review and folds its rating into the tutor's running
// average. The aggregate update is a compare-and-swap on ratings_count inside
// the same transaction as the review insert; a CAS miss retries the whole
// submission so concurrent reviews for one tutor never lose updates.
func (s *RatingService) SubmitReview(
	ctx context.Context,
	studentID int64,
	input SubmitReviewInput,
) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrForbidden
	}
	if session.TutorID != input.TutorID {
		return nil, ErrInvalidInput
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrForbidden
	}

	exists, err := s.reviewRepo.ExistsForSession(ctx, input.SessionID, studentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateReview
	}

	for attempt := 0; attempt < ratingRetries; attempt++ {
		review, err := s.submitOnce(ctx, studentID, session.TutorID, input)
		if err == nil {
			return review, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			// Aggregate moved underneath us; retry with fresh counts.
			continue
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (s *RatingService) submitOnce(
	ctx context.Context,
	studentID int64,
	tutorID int64,
	input SubmitReviewInput,
) (*models.Review, error) {
	profile, err := s.tutorRepo.GetByUserID(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	review, err := repository.NewReviewRepository(tx).Create(ctx, repository.CreateReviewInput{
		StudentID: studentID,
		TutorID:   tutorID,
		SessionID: input.SessionID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	})
	if err != nil {
		return nil, err
	}

	newAverage := IncrementalAverage(profile.RatingAverage, profile.RatingsCount, input.Rating)
	if _, err := repository.NewTutorProfileRepository(tx).ApplyRating(
		ctx,
		tutorID,
		profile.RatingsCount,
		newAverage,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *RatingService) ListTutorReviews(ctx context.Context, tutorID int64) ([]models.Review, error) {
	return s.reviewRepo.ListByTutor(ctx, tutorID)
}

// IncrementalAverage returns (oldAvg*oldCount + rating) / (oldCount + 1).
func IncrementalAverage(oldAverage float64, oldCount int, rating int) float64 {
	return (oldAverage*float64(oldCount) + float64(rating)) / float64(oldCount+1)
}
