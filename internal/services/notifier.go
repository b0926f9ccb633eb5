package services

import "time"

const (
	EventSessionBooked    = "session_booked"
	EventSessionCancelled = "session_cancelled"
	EventSessionCompleted = "session_completed"
	EventPaymentEscrowed  = "payment_escrowed"
	EventPaymentReleased  = "payment_released"
	EventPaymentRefunded  = "payment_refunded"
	EventPaymentFailed    = "payment_failed"
)

type NotificationEvent struct {
	Type      string    `json:"type"`
	SessionID int64     `json:"session_id,omitempty"`
	PaymentID int64     `json:"payment_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers fire-and-forget events to connected clients. Delivery is
// best effort; business outcomes never depend on it.
type Notifier interface {
	Notify(userID int64, event NotificationEvent)
}

type noopNotifier struct{}

func (noopNotifier) Notify(int64, NotificationEvent) {}

// NopNotifier is used where no realtime hub is wired (tests, cmd/migrate).
var NopNotifier Notifier = noopNotifier{}
