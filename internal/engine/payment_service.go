package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/onnride/vehicle-rental/internal/model"
)

// Gateway statuses the reconciliation mapping understands. "captured"
// arrives on payment webhooks, "paid" from order status polls; both
// mean the money is in.
const (
	gatewayCaptured = "captured"
	gatewayPaid     = "paid"
	gatewayFailed   = "failed"
)

// PaymentService reconciles external payment signals with bookings.
// The webhook push and the manual/poll pull paths both funnel into
// Reconcile, which is idempotent per payment reference: replays and
// races converge on one consistent booking without re-applying
// effects.
type PaymentService struct {
	store    Store
	gateway  PaymentGateway
	notifier Notifier
}

func NewPaymentService(store Store, gateway PaymentGateway, notifier Notifier) *PaymentService {
	return &PaymentService{store: store, gateway: gateway, notifier: notifier}
}

// CreatePaymentOrder opens a gateway order for a pending booking and
// records the order id as the booking's payment reference. The caller
// hands the session token to the client to complete checkout.
func (s *PaymentService) CreatePaymentOrder(ctx context.Context, bookingID, actorID, role string) (*PaymentOrder, error) {
	b, err := s.store.BookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && role != RoleAdmin {
		return nil, ErrForbidden
	}
	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		return nil, validationf("booking is not awaiting payment")
	}

	order, err := s.gateway.CreateOrder(ctx, b.TotalPrice, map[string]string{"booking_id": b.ID})
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx Tx) error {
		return tx.MergePaymentDetails(ctx, b.ID, order.OrderID, map[string]any{
			"razorpay_order_id": order.OrderID,
			"order_created_at":  time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"order_id":   order.OrderID,
		"amount":     order.Amount,
	}).Info("payment order created")
	return order, nil
}

// webhookEnvelope is the slice of the gateway webhook body the engine
// cares about; everything else rides along inside rawDetails.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
				Method  string `json:"method"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies the signature over the raw body and feeds the
// event into Reconcile. An invalid signature rejects the request
// without touching the body; the gateway may redeliver the same event
// arbitrarily, which Reconcile absorbs.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*model.Booking, error) {
	if signature == "" || !s.gateway.VerifyWebhookSignature(body, signature) {
		return nil, ErrInvalidSignature
	}
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, validationf("malformed webhook body")
	}
	entity := env.Payload.Payment.Entity
	if entity.OrderID == "" {
		return nil, validationf("webhook payload has no order id")
	}
	raw := map[string]any{
		"razorpay_payment_id": entity.ID,
		"payment_status":      entity.Status,
		"payment_method":      entity.Method,
		"webhook_event":       env.Event,
		"received_at":         time.Now().UTC().Format(time.RFC3339),
	}
	return s.Reconcile(ctx, "", entity.OrderID, entity.Status, raw)
}

// CheckPaymentStatus is the pull path: it asks the gateway for the
// order's current status and applies the same mapping the webhook
// would. Safe to call any number of times.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, bookingID, actorID, role string) (*model.Booking, error) {
	b, err := s.store.BookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && role != RoleAdmin {
		return nil, ErrForbidden
	}
	if b.PaymentReference == nil {
		return nil, validationf("booking has no payment order")
	}
	status, err := s.gateway.FetchOrderStatus(ctx, *b.PaymentReference)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{
		"payment_status": status,
		"source":         "status_poll",
		"received_at":    time.Now().UTC().Format(time.RFC3339),
	}
	return s.Reconcile(ctx, bookingID, *b.PaymentReference, status, raw)
}

// VerifyManually is the privileged recovery path for payments whose
// webhook never arrived. It still consults the gateway rather than
// trusting the operator's word for the money.
func (s *PaymentService) VerifyManually(ctx context.Context, bookingID, orderID, verifiedBy string) (*model.Booking, error) {
	if bookingID == "" || orderID == "" {
		return nil, validationf("booking id and order id are required")
	}
	status, err := s.gateway.FetchOrderStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{
		"razorpay_order_id": orderID,
		"payment_status":    status,
		"manually_verified": true,
		"verified_by":       verifiedBy,
		"verified_at":       time.Now().UTC().Format(time.RFC3339),
	}
	return s.Reconcile(ctx, bookingID, orderID, status, raw)
}

// Reconcile applies one external payment signal to a booking. Keyed by
// paymentRef, it is idempotent and safe under concurrent delivery:
//
//  1. A booking already bound to a different reference, or already in
//     a terminal state, is returned unchanged (expected under replays
//     and webhook/manual races; logged at info).
//  2. Raw gateway fields are merged into the payment details, never
//     overwritten, preserving the audit trail of every callback.
//  3. The transition implied by gatewayStatus goes through the state
//     machine; a forbidden transition is a logged no-op.
//  4. The notifier fires only on the actual transition into confirmed,
//     so duplicates cannot re-notify.
//
// bookingID may be empty, in which case the booking is located by its
// payment reference (the webhook path).
func (s *PaymentService) Reconcile(ctx context.Context, bookingID, paymentRef, gatewayStatus string, rawDetails map[string]any) (*model.Booking, error) {
	if paymentRef == "" {
		return nil, validationf("payment reference is required")
	}

	var (
		result        *model.Booking
		notifyConfirm bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var (
			b   *model.Booking
			err error
		)
		if bookingID != "" {
			b, err = tx.BookingForUpdate(ctx, bookingID)
		} else {
			b, err = tx.BookingByReferenceForUpdate(ctx, paymentRef)
		}
		if err != nil {
			return err
		}
		log := logrus.WithFields(logrus.Fields{
			"booking_id":  b.ID,
			"payment_ref": paymentRef,
			"status":      gatewayStatus,
		})

		if b.PaymentReference != nil && *b.PaymentReference != paymentRef {
			log.WithField("bound_ref", *b.PaymentReference).Info("reconcile skipped: booking bound to another payment reference")
			result = b
			return nil
		}
		if b.Status.Terminal() {
			log.WithField("booking_status", b.Status).Info("reconcile skipped: booking already terminal")
			result = b
			return nil
		}

		if err := tx.MergePaymentDetails(ctx, b.ID, paymentRef, rawDetails); err != nil {
			return err
		}
		if b.PaymentReference == nil {
			b.PaymentReference = &paymentRef
		}

		target, payment, decisive := mapGatewayStatus(gatewayStatus)
		if !decisive {
			log.Info("reconcile recorded non-final gateway status")
			result = b
			return nil
		}
		if !model.CanTransition(b.Status, target) {
			log.WithField("booking_status", b.Status).Info("reconcile skipped: transition not permitted")
			result = b
			return nil
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, target, payment); err != nil {
			return err
		}
		b.Status = target
		b.PaymentStatus = payment
		notifyConfirm = target == model.BookingConfirmed
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyConfirm {
		logrus.WithFields(logrus.Fields{
			"booking_id":  result.ID,
			"payment_ref": paymentRef,
		}).Info("booking confirmed")
		if err := s.notifier.NotifyBookingConfirmed(ctx, result); err != nil {
			logrus.WithError(err).WithField("booking_id", result.ID).Warn("confirmation notification failed")
		}
	}
	return result, nil
}

// mapGatewayStatus translates a gateway payment/order status into the
// booking transition it implies. decisive is false for in-flight
// statuses (created, attempted, authorized, ...), which merge details
// but change nothing.
func mapGatewayStatus(s string) (model.BookingStatus, model.PaymentStatus, bool) {
	switch s {
	case gatewayCaptured, gatewayPaid:
		return model.BookingConfirmed, model.PaymentCompleted, true
	case gatewayFailed:
		return model.BookingCancelled, model.PaymentFailed, true
	default:
		return "", "", false
	}
}
