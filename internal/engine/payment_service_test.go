package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnride/vehicle-rental/internal/model"
)

func strptr(s string) *string { return &s }

func seedPendingBooking(s *memStore, id, ref string) *model.Booking {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	b := model.Booking{
		ID: id, UserID: "u1", VehicleID: "v1", Location: "downtown",
		StartTime: start, EndTime: start.Add(4 * time.Hour),
		Status: model.BookingPending, PaymentStatus: model.PaymentPending,
		TotalPrice: 400,
	}
	if ref != "" {
		b.PaymentReference = strptr(ref)
	}
	return seedBooking(s, b)
}

func webhookBody(orderID, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.%s",
		"payload": {"payment": {"entity": {
			"id": "pay_001", "order_id": %q, "status": %q, "method": "upi"
		}}}
	}`, status, orderID, status))
}

func TestCreatePaymentOrder(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "")
	gw := newFakeGateway()
	svc := NewPaymentService(store, gw, &fakeNotifier{})

	order, err := svc.CreatePaymentOrder(context.Background(), "b1", "u1", "user")
	require.NoError(t, err)
	assert.Equal(t, int64(400), order.Amount)
	assert.NotEmpty(t, order.OrderID)
	assert.NotEmpty(t, order.SessionToken)

	b, err := store.BookingByID(context.Background(), "b1")
	require.NoError(t, err)
	require.NotNil(t, b.PaymentReference)
	assert.Equal(t, order.OrderID, *b.PaymentReference)
	assert.Equal(t, order.OrderID, b.PaymentDetails["razorpay_order_id"])
	assert.Equal(t, model.BookingPending, b.Status)
}

func TestCreatePaymentOrderOwnership(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "")
	svc := NewPaymentService(store, newFakeGateway(), &fakeNotifier{})

	_, err := svc.CreatePaymentOrder(context.Background(), "b1", "intruder", "user")
	assert.ErrorIs(t, err, ErrForbidden)

	// Admins may open an order on any booking.
	_, err = svc.CreatePaymentOrder(context.Background(), "b1", "admin-1", RoleAdmin)
	assert.NoError(t, err)
}

func TestCreatePaymentOrderRequiresPending(t *testing.T) {
	store := newMemStore()
	b := seedPendingBooking(store, "b1", "order_bound")
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentCompleted
	svc := NewPaymentService(store, newFakeGateway(), &fakeNotifier{})

	_, err := svc.CreatePaymentOrder(context.Background(), "b1", "u1", "user")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "order_1")
	svc := NewPaymentService(store, newFakeGateway(), &fakeNotifier{})

	body := webhookBody("order_1", "captured")
	_, err := svc.HandleWebhook(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.HandleWebhook(context.Background(), body, "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	b, _ := store.BookingByID(context.Background(), "b1")
	assert.Equal(t, model.BookingPending, b.Status)
}

func TestHandleWebhookCaptureConfirms(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "order_1")
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, newFakeGateway(), notifier)

	b, err := svc.HandleWebhook(context.Background(), webhookBody("order_1", "captured"), "valid")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentCompleted, b.PaymentStatus)
	assert.Equal(t, []string{"b1"}, notifier.confirmed)

	stored, _ := store.BookingByID(context.Background(), "b1")
	assert.Equal(t, model.BookingConfirmed, stored.Status)
	assert.Equal(t, "pay_001", stored.PaymentDetails["razorpay_payment_id"])
	assert.Equal(t, "upi", stored.PaymentDetails["payment_method"])
}

func TestHandleWebhookReplayNotifiesOnce(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "order_1")
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, newFakeGateway(), notifier)

	body := webhookBody("order_1", "captured")
	_, err := svc.HandleWebhook(context.Background(), body, "valid")
	require.NoError(t, err)

	b, err := svc.HandleWebhook(context.Background(), body, "valid")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 1, notifier.confirmedCount())
}

func TestHandleWebhookFailureCancels(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "order_1")
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, newFakeGateway(), notifier)

	b, err := svc.HandleWebhook(context.Background(), webhookBody("order_1", "failed"), "valid")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.Equal(t, model.PaymentFailed, b.PaymentStatus)
	assert.False(t, b.Blocking())
	assert.Equal(t, 0, notifier.confirmedCount())
}

func TestHandleWebhookNonFinalStatusMergesOnly(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "order_1")
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, newFakeGateway(), notifier)

	b, err := svc.HandleWebhook(context.Background(), webhookBody("order_1", "authorized"), "valid")
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Equal(t, 0, notifier.confirmedCount())

	stored, _ := store.BookingByID(context.Background(), "b1")
	assert.Equal(t, "authorized", stored.PaymentDetails["payment_status"])
}

func TestReconcileTerminalBookingUnchanged(t *testing.T) {
	store := newMemStore()
	b := seedPendingBooking(store, "b1", "order_1")
	b.Status = model.BookingCancelled
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, newFakeGateway(), notifier)

	// Late capture after the customer cancelled: recorded nowhere,
	// refund handling is an operator concern.
	got, err := svc.Reconcile(context.Background(), "b1", "order_1", "captured", map[string]any{"payment_status": "captured"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, 0, notifier.confirmedCount())

	stored, _ := store.BookingByID(context.Background(), "b1")
	assert.Equal(t, model.BookingCancelled, stored.Status)
	assert.NotContains(t, stored.PaymentDetails, "payment_status")
}

func TestReconcileForeignReferenceUnchanged(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "order_bound")
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, newFakeGateway(), notifier)

	got, err := svc.Reconcile(context.Background(), "b1", "order_other", "captured", map[string]any{"payment_status": "captured"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)
	assert.Equal(t, 0, notifier.confirmedCount())

	stored, _ := store.BookingByID(context.Background(), "b1")
	assert.Equal(t, "order_bound", *stored.PaymentReference)
	assert.NotContains(t, stored.PaymentDetails, "payment_status")
}

func TestReconcileUnknownReference(t *testing.T) {
	store := newMemStore()
	svc := NewPaymentService(store, newFakeGateway(), &fakeNotifier{})

	_, err := svc.Reconcile(context.Background(), "", "order_ghost", "captured", nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = svc.Reconcile(context.Background(), "b1", "", "captured", nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCheckPaymentStatus(t *testing.T) {
	store := newMemStore()
	gw := newFakeGateway()
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, gw, notifier)

	seedPendingBooking(store, "b1", "")
	order, err := svc.CreatePaymentOrder(context.Background(), "b1", "u1", "user")
	require.NoError(t, err)

	// Order still open at the gateway.
	b, err := svc.CheckPaymentStatus(context.Background(), "b1", "u1", "user")
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)

	gw.orders[order.OrderID] = "paid"
	b, err = svc.CheckPaymentStatus(context.Background(), "b1", "u1", "user")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentCompleted, b.PaymentStatus)
	assert.Equal(t, 1, notifier.confirmedCount())

	_, err = svc.CheckPaymentStatus(context.Background(), "b1", "intruder", "user")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCheckPaymentStatusWithoutOrder(t *testing.T) {
	store := newMemStore()
	seedPendingBooking(store, "b1", "")
	svc := NewPaymentService(store, newFakeGateway(), &fakeNotifier{})

	_, err := svc.CheckPaymentStatus(context.Background(), "b1", "u1", "user")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestVerifyManually(t *testing.T) {
	store := newMemStore()
	gw := newFakeGateway()
	gw.orders["order_1"] = "paid"
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, gw, notifier)

	seedPendingBooking(store, "b1", "order_1")
	b, err := svc.VerifyManually(context.Background(), "b1", "order_1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 1, notifier.confirmedCount())

	stored, _ := store.BookingByID(context.Background(), "b1")
	assert.Equal(t, true, stored.PaymentDetails["manually_verified"])
	assert.Equal(t, "admin-1", stored.PaymentDetails["verified_by"])
}

func TestVerifyManuallyGatewayNotPaid(t *testing.T) {
	store := newMemStore()
	gw := newFakeGateway()
	gw.orders["order_1"] = "attempted"
	svc := NewPaymentService(store, gw, &fakeNotifier{})

	seedPendingBooking(store, "b1", "order_1")
	b, err := svc.VerifyManually(context.Background(), "b1", "order_1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
}
