package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/regconline/afrilearn/internal/models"
)

const paymentColumns = `id, session_id, user_id, amount, currency, gateway,
	status, transaction_id, gateway_reference, processing_fee, release_date,
	created_at, updated_at`

type CreatePaymentInput struct {
	SessionID        *int64
	UserID           int64
	Amount           float64
	Currency         string
	Gateway          string
	GatewayReference string
	ProcessingFee    float64
	ReleaseDate      time.Time
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row pgx.Row, payment *models.Payment) error {
	return row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Gateway,
		&payment.Status,
		&payment.TransactionID,
		&payment.GatewayReference,
		&payment.ProcessingFee,
		&payment.ReleaseDate,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := fmt.Sprintf(`
		INSERT INTO payments (session_id, user_id, amount, currency, gateway,
			status, gateway_reference, processing_fee, release_date)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8)
		RETURNING %s
	`, paymentColumns)

	var payment models.Payment
	err := scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.UserID,
		input.Amount,
		input.Currency,
		input.Gateway,
		input.GatewayReference,
		input.ProcessingFee,
		input.ReleaseDate,
	), &payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, paymentID int64) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, paymentID), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByGatewayReference(ctx context.Context, reference string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE gateway_reference = $1`, paymentColumns)
	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, reference), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, paymentColumns)
	return r.list(ctx, query, userID)
}

// ListDueEscrow returns escrowed payments whose hold period has elapsed. The
// query is served by a partial index on (status, release_date) so the sweep
// never scans resolved payments.
func (r *PaymentRepository) ListDueEscrow(ctx context.Context, now time.Time) ([]models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE status = 'held_in_escrow'
		  AND release_date <= $1
		ORDER BY release_date ASC, id ASC
	`, paymentColumns)
	return r.list(ctx, query, now)
}

// ListStalePending returns payments still awaiting gateway confirmation past
// the cutoff; the sweep fails them so nothing stays pending indefinitely.
func (r *PaymentRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE status = 'pending'
		  AND created_at <= $1
		ORDER BY created_at ASC, id ASC
	`, paymentColumns)
	return r.list(ctx, query, cutoff)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var payment models.Payment
		if err := scanPayment(rows, &payment); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// UpdateStatusIfCurrent performs a guarded transition; pgx.ErrNoRows means the
// payment was not in currentStatus, which callers treat as already-resolved.
func (r *PaymentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	paymentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Payment, error) {
	query := fmt.Sprintf(`
		UPDATE payments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, paymentColumns)

	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, paymentID, currentStatus, nextStatus), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConfirmIfPending records the gateway transaction id together with the
// pending -> next transition so webhook replays cannot overwrite it.
func (r *PaymentRepository) ConfirmIfPending(
	ctx context.Context,
	paymentID int64,
	nextStatus string,
	transactionID string,
) (*models.Payment, error) {
	query := fmt.Sprintf(`
		UPDATE payments
		SET status = $2, transaction_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, paymentColumns)

	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, paymentID, nextStatus, transactionID), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}
