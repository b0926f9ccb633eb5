package services

import (
	"testing"

	"github.com/regconline/afrilearn/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingFeeRoundsToCents(t *testing.T) {
	assert.Equal(t, 50.0, ProcessingFee(1000, 0.05))
	assert.Equal(t, 0.05, ProcessingFee(1, 0.05))
	assert.Equal(t, 0.33, ProcessingFee(6.55, 0.05))
	assert.Equal(t, 0.0, ProcessingFee(1000, 0))
}

func TestWebhookOutcome(t *testing.T) {
	tests := []struct {
		gatewayStatus string
		want          string
		wantErr       bool
	}{
		{"success", models.PaymentHeldInEscrow, false},
		{"Successful", models.PaymentHeldInEscrow, false},
		{" completed ", models.PaymentHeldInEscrow, false},
		{"failed", models.PaymentFailed, false},
		{"FAILURE", models.PaymentFailed, false},
		{"declined", models.PaymentFailed, false},
		{"pending", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := webhookOutcome(tt.gatewayStatus)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrInvalidInput, "status %q", tt.gatewayStatus)
			continue
		}
		require.NoError(t, err, "status %q", tt.gatewayStatus)
		assert.Equal(t, tt.want, got, "status %q", tt.gatewayStatus)
	}
}

func TestResolveActionReleasesDetachedPayments(t *testing.T) {
	payment := &models.Payment{Status: models.PaymentHeldInEscrow}
	assert.Equal(t, sweepRelease, resolveAction(payment, nil))
}

func TestResolveActionFollowsSessionOutcome(t *testing.T) {
	payment := &models.Payment{Status: models.PaymentHeldInEscrow}

	assert.Equal(t, sweepRelease, resolveAction(payment, &models.Session{Status: models.SessionCompleted}))
	assert.Equal(t, sweepRefund, resolveAction(payment, &models.Session{Status: models.SessionCancelled}))

	// A session still in flight keeps the money in escrow for the next pass.
	assert.Equal(t, sweepSkip, resolveAction(payment, &models.Session{Status: models.SessionScheduled}))
	assert.Equal(t, sweepSkip, resolveAction(payment, &models.Session{Status: models.SessionInProgress}))
}

func TestResolveActionSkipsResolvedPayments(t *testing.T) {
	session := &models.Session{Status: models.SessionCompleted}

	for _, status := range []string{
		models.PaymentPending,
		models.PaymentCompleted,
		models.PaymentFailed,
		models.PaymentRefunded,
	} {
		payment := &models.Payment{Status: status}
		assert.Equal(t, sweepSkip, resolveAction(payment, session), "status %q", status)
	}
}
