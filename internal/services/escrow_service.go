package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

type sweepAction int

const (
	sweepSkip sweepAction = iota
	sweepRelease
	sweepRefund
)

type EscrowService struct {
	db             *pgxpool.Pool
	paymentRepo    *repository.PaymentRepository
	payoutRepo     *repository.PayoutRepository
	sessionRepo    *repository.SessionRepository
	feeRate        float64
	escrowHold     time.Duration
	pendingTimeout time.Duration
	notifier       Notifier
}

func NewEscrowService(
	db *pgxpool.Pool,
	paymentRepo *repository.PaymentRepository,
	payoutRepo *repository.PayoutRepository,
	sessionRepo *repository.SessionRepository,
	feeRate float64,
	escrowHold time.Duration,
	pendingTimeout time.Duration,
	notifier Notifier,
) *EscrowService {
	if notifier == nil {
		notifier = NopNotifier
	}
	return &EscrowService{
		db:             db,
		paymentRepo:    paymentRepo,
		payoutRepo:     payoutRepo,
		sessionRepo:    sessionRepo,
		feeRate:        feeRate,
		escrowHold:     escrowHold,
		pendingTimeout: pendingTimeout,
		notifier:       notifier,
	}
}

type CreatePaymentInput struct {
	Amount    float64
	Currency  string
	Gateway   string
	SessionID *int64
}

// CreatePayment records a pending payment with its processing fee and escrow
// release date fixed at creation. The gateway confirms capture asynchronously
// via webhook.
func (s *EscrowService) CreatePayment(
	ctx context.Context,
	actorID int64,
	input CreatePaymentInput,
) (*models.Payment, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidInput
	}
	if !models.ValidCurrency(input.Currency) || !models.ValidGateway(input.Gateway) {
		return nil, ErrInvalidInput
	}

	if input.SessionID != nil {
		session, err := s.sessionRepo.GetByID(ctx, *input.SessionID)
		if err != nil {
			return nil, err
		}
		if session.StudentID != actorID {
			return nil, ErrForbidden
		}
	}

	now := time.Now().UTC()
	return s.paymentRepo.Create(ctx, repository.CreatePaymentInput{
		SessionID:        input.SessionID,
		UserID:           actorID,
		Amount:           input.Amount,
		Currency:         input.Currency,
		Gateway:          input.Gateway,
		GatewayReference: uuid.NewString(),
		ProcessingFee:    ProcessingFee(input.Amount, s.feeRate),
		ReleaseDate:      now.Add(s.escrowHold),
	})
}

func (s *EscrowService) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID)
}

func (s *EscrowService) ListPayouts(ctx context.Context, tutorID int64) ([]models.Payout, error) {
	return s.payoutRepo.ListByTutor(ctx, tutorID)
}

// ConfirmWebhook resolves a pending payment from a gateway callback. Replays
// for an already-resolved payment return the payment unchanged.
func (s *EscrowService) ConfirmWebhook(
	ctx context.Context,
	reference string,
	gatewayStatus string,
	transactionID string,
) (*models.Payment, error) {
	nextStatus, err := webhookOutcome(gatewayStatus)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByGatewayReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPending {
		return payment, nil
	}

	confirmed, err := s.paymentRepo.ConfirmIfPending(ctx, payment.ID, nextStatus, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race to a concurrent webhook delivery.
			return s.paymentRepo.GetByID(ctx, payment.ID)
		}
		return nil, err
	}

	event := NotificationEvent{
		PaymentID: confirmed.ID,
		Timestamp: time.Now().UTC(),
	}
	if nextStatus == models.PaymentHeldInEscrow {
		event.Type = EventPaymentEscrowed
		event.Message = fmt.Sprintf("Payment of %.2f %s held in escrow", confirmed.Amount, confirmed.Currency)
	} else {
		event.Type = EventPaymentFailed
		event.Message = fmt.Sprintf("Payment of %.2f %s failed", confirmed.Amount, confirmed.Currency)
	}
	s.notifier.Notify(confirmed.UserID, event)
	return confirmed, nil
}

// ReleaseDue resolves every escrowed payment whose hold has elapsed: released
// to the tutor when the session completed, refunded when it was cancelled,
// left alone otherwise. Returns the number of payments resolved.
func (s *EscrowService) ReleaseDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.paymentRepo.ListDueEscrow(ctx, now)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range due {
		ok, err := s.resolveEscrowedPayment(ctx, &due[i])
		if err != nil {
			log.Printf("escrow: payment %d: %v", due[i].ID, err)
			continue
		}
		if ok {
			resolved++
		}
	}
	return resolved, nil
}

func (s *EscrowService) resolveEscrowedPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	var session *models.Session
	if payment.SessionID != nil {
		loaded, err := s.sessionRepo.GetByID(ctx, *payment.SessionID)
		if err != nil {
			return false, err
		}
		session = loaded
	}

	switch resolveAction(payment, session) {
	case sweepRelease:
		return true, s.releasePayment(ctx, payment, session)
	case sweepRefund:
		return true, s.refundPayment(ctx, payment)
	default:
		return false, nil
	}
}

func (s *EscrowService) releasePayment(ctx context.Context, payment *models.Payment, session *models.Session) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	released, err := repository.NewPaymentRepository(tx).UpdateStatusIfCurrent(
		ctx,
		payment.ID,
		models.PaymentHeldInEscrow,
		models.PaymentCompleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another sweep instance already resolved it.
			return nil
		}
		return err
	}

	if session != nil {
		_, err = repository.NewPayoutRepository(tx).CreateForPayment(ctx, repository.CreatePayoutInput{
			TutorID:       session.TutorID,
			PaymentID:     released.ID,
			Amount:        math.Round((released.Amount-released.ProcessingFee)*100) / 100,
			Currency:      released.Currency,
			PaymentMethod: "platform_balance",
			Reference:     uuid.NewString(),
		})
		if err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	event := NotificationEvent{
		Type:      EventPaymentReleased,
		PaymentID: released.ID,
		Message:   fmt.Sprintf("Escrow released for payment of %.2f %s", released.Amount, released.Currency),
		Timestamp: time.Now().UTC(),
	}
	s.notifier.Notify(released.UserID, event)
	if session != nil {
		s.notifier.Notify(session.TutorID, event)
	}
	return nil
}

func (s *EscrowService) refundPayment(ctx context.Context, payment *models.Payment) error {
	refunded, err := s.paymentRepo.UpdateStatusIfCurrent(
		ctx,
		payment.ID,
		models.PaymentHeldInEscrow,
		models.PaymentRefunded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	s.notifier.Notify(refunded.UserID, NotificationEvent{
		Type:      EventPaymentRefunded,
		PaymentID: refunded.ID,
		Message:   fmt.Sprintf("Payment of %.2f %s refunded", refunded.Amount, refunded.Currency),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// FailStalePending fails payments the gateway never confirmed within the
// pending timeout so nothing waits in pending forever.
func (s *EscrowService) FailStalePending(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.paymentRepo.ListStalePending(ctx, now.Add(-s.pendingTimeout))
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range stale {
		if _, err := s.paymentRepo.UpdateStatusIfCurrent(
			ctx,
			stale[i].ID,
			models.PaymentPending,
			models.PaymentFailed,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			log.Printf("escrow: expire pending payment %d: %v", stale[i].ID, err)
			continue
		}
		failed++
	}
	return failed, nil
}

// ProcessingFee computes the platform fee rounded to two decimal places.
func ProcessingFee(amount, rate float64) float64 {
	return math.Round(amount*rate*100) / 100
}

// resolveAction decides what the sweep does with a due escrowed payment.
// Payments without a session release once the hold elapses; session-backed
// payments release only after completion and refund only after cancellation.
// Anything else (still scheduled or in progress, e.g. contested) waits for the
// next pass.
func resolveAction(payment *models.Payment, session *models.Session) sweepAction {
	if payment.Status != models.PaymentHeldInEscrow {
		return sweepSkip
	}
	if session == nil {
		return sweepRelease
	}
	switch session.Status {
	case models.SessionCompleted:
		return sweepRelease
	case models.SessionCancelled:
		return sweepRefund
	default:
		return sweepSkip
	}
}

func webhookOutcome(gatewayStatus string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case "success", "successful", "completed":
		return models.PaymentHeldInEscrow, nil
	case "failed", "failure", "declined":
		return models.PaymentFailed, nil
	default:
		return "", ErrInvalidInput
	}
}
