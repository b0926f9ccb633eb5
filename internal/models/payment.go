package models

import "time"

const (
	PaymentPending      = "pending"
	PaymentHeldInEscrow = "held_in_escrow"
	PaymentCompleted    = "completed"
	PaymentFailed       = "failed"
	PaymentRefunded     = "refunded"
)

const (
	GatewayFlutterwave = "flutterwave"
	GatewayMpesa       = "mpesa"
	GatewayPaystack    = "paystack"
)

var SupportedCurrencies = []string{"NGN", "KES", "ZAR", "XOF", "USD", "EUR"}

type Payment struct {
	ID               int64      `json:"id"`
	SessionID        *int64     `json:"session_id,omitempty"`
	UserID           int64      `json:"user_id"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Gateway          string     `json:"gateway"`
	Status           string     `json:"status"`
	TransactionID    *string    `json:"transaction_id,omitempty"`
	GatewayReference string     `json:"gateway_reference"`
	ProcessingFee    float64    `json:"processing_fee"`
	ReleaseDate      time.Time  `json:"release_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Payout struct {
	ID            int64      `json:"id"`
	TutorID       int64      `json:"tutor_id"`
	PaymentID     int64      `json:"payment_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	Reference     string     `json:"reference"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func ValidGateway(gateway string) bool {
	switch gateway {
	case GatewayFlutterwave, GatewayMpesa, GatewayPaystack:
		return true
	default:
		return false
	}
}

func ValidCurrency(currency string) bool {
	for _, c := range SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

func TerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}
