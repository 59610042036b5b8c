package engine

import (
	"context"

	"github.com/onnride/vehicle-rental/internal/model"
)

// PaymentOrder is the gateway's answer to createOrder: the external
// order id becomes the booking's payment reference, the session token
// is handed to the client to open the checkout.
type PaymentOrder struct {
	OrderID      string `json:"order_id"`
	SessionToken string `json:"session_token"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// PaymentGateway abstracts the external payment provider. The engine
// never talks HTTP to the provider directly; the production client
// lives in the gateway package and tests plug in a stub.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, metadata map[string]string) (*PaymentOrder, error)
	FetchOrderStatus(ctx context.Context, orderID string) (string, error)
	// VerifyWebhookSignature checks the HMAC signature over the raw
	// webhook body using a constant-time compare.
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Notifier delivers customer notifications. Calls are best-effort:
// failures are logged by the caller and never roll back a booking.
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, b *model.Booking) error
	NotifyBookingCancelled(ctx context.Context, b *model.Booking) error
}
