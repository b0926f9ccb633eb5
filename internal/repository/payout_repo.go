package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const payoutColumns = `id, tutor_id, payment_id, amount, currency, status,
	payment_method, reference, created_at, processed_at`

type CreatePayoutInput struct {
	TutorID       int64
	PaymentID     int64
	Amount        float64
	Currency      string
	PaymentMethod string
	Reference     string
}

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func scanPayout(row pgx.Row, payout *models.Payout) error {
	return row.Scan(
		&payout.ID,
		&payout.TutorID,
		&payout.PaymentID,
		&payout.Amount,
		&payout.Currency,
		&payout.Status,
		&payout.PaymentMethod,
		&payout.Reference,
		&payout.CreatedAt,
		&payout.ProcessedAt,
	)
}

// CreateForPayment accrues one payout per released payment. The unique
// constraint on payment_id makes re-accrual from an overlapping sweep a no-op.
func (r *PayoutRepository) CreateForPayment(ctx context.Context, input CreatePayoutInput) (bool, error) {
	query := `
		INSERT INTO payouts (tutor_id, payment_id, amount, currency, status, payment_method, reference)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		ON CONFLICT (payment_id) DO NOTHING
	`
	tag, err := r.db.Exec(
		ctx,
		query,
		input.TutorID,
		input.PaymentID,
		input.Amount,
		input.Currency,
		input.PaymentMethod,
		input.Reference,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PayoutRepository) ListByTutor(ctx context.Context, tutorID int64) ([]models.Payout, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payouts
		WHERE tutor_id = $1
		ORDER BY created_at DESC, id DESC
	`, payoutColumns)

	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]models.Payout, 0)
	for rows.Next() {
		var payout models.Payout
		if err := scanPayout(rows, &payout); err != nil {
			return nil, err
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payouts, nil
}
