package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onnride/vehicle-rental/internal/model"
)

// memStore is an in-memory Store for tests. One mutex guards every
// atomic unit, which gives the same serialization guarantee the SQL
// implementation gets from its advisory lock.
type memStore struct {
	mu       sync.Mutex
	vehicles map[string]*model.Vehicle
	bookings map[string]*model.Booking
	coupons  map[string]*model.Coupon
}

func newMemStore() *memStore {
	return &memStore{
		vehicles: make(map[string]*model.Vehicle),
		bookings: make(map[string]*model.Booking),
		coupons:  make(map[string]*model.Coupon),
	}
}

func (s *memStore) WithVehicleLock(ctx context.Context, vehicleID, location string, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{s: s})
}

func (s *memStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{s: s})
}

func (s *memStore) VehicleByID(ctx context.Context, id string) (*model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s: s}).VehicleByID(ctx, id)
}

func (s *memStore) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) CouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s: s}).CouponForUpdate(ctx, code)
}

func (s *memStore) CountBlockingOverlaps(ctx context.Context, vehicleID, location string, start, end time.Time, excludeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s: s}).CountBlockingOverlaps(ctx, vehicleID, location, start, end, excludeID)
}

type memTx struct {
	s *memStore
}

func (t *memTx) VehicleByID(ctx context.Context, id string) (*model.Vehicle, error) {
	v, ok := t.s.vehicles[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	cp := *v
	return &cp, nil
}

func (t *memTx) CountBlockingOverlaps(ctx context.Context, vehicleID, location string, start, end time.Time, excludeID string) (int, error) {
	n := 0
	for _, b := range t.s.bookings {
		if b.VehicleID != vehicleID || b.ID == excludeID {
			continue
		}
		if location != "" && b.Location != location {
			continue
		}
		if !b.Blocking() {
			continue
		}
		if model.Overlaps(b.StartTime, b.EndTime, start, end) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	cp := *b
	t.s.bookings[b.ID] = &cp
	return nil
}

func (t *memTx) BookingForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) BookingByReferenceForUpdate(ctx context.Context, ref string) (*model.Booking, error) {
	for _, b := range t.s.bookings {
		if b.PaymentReference != nil && *b.PaymentReference == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (t *memTx) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, payment model.PaymentStatus) error {
	b, ok := t.s.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = status
	b.PaymentStatus = payment
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) MergePaymentDetails(ctx context.Context, id, ref string, details map[string]any) error {
	b, ok := t.s.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.PaymentDetails == nil {
		b.PaymentDetails = make(map[string]any)
	}
	for k, v := range details {
		b.PaymentDetails[k] = v
	}
	if b.PaymentReference == nil {
		r := ref
		b.PaymentReference = &r
	}
	return nil
}

func (t *memTx) CouponForUpdate(ctx context.Context, code string) (*model.Coupon, error) {
	c, ok := t.s.coupons[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) IncrementCouponUsage(ctx context.Context, code string) error {
	c, ok := t.s.coupons[code]
	if !ok {
		return ErrCouponNotFound
	}
	c.TimesUsed++
	return nil
}

// fakeNotifier records notifications instead of publishing them.
type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (n *fakeNotifier) NotifyBookingConfirmed(ctx context.Context, b *model.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, b.ID)
	return nil
}

func (n *fakeNotifier) NotifyBookingCancelled(ctx context.Context, b *model.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b.ID)
	return nil
}

func (n *fakeNotifier) confirmedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed)
}

// fakeGateway implements PaymentGateway against a scripted order
// table. A webhook signature is valid iff it equals "valid".
type fakeGateway struct {
	orders  map[string]string // order id -> status
	counter int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]string)}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, metadata map[string]string) (*PaymentOrder, error) {
	g.counter++
	id := fmt.Sprintf("order_%03d", g.counter)
	g.orders[id] = "created"
	return &PaymentOrder{OrderID: id, SessionToken: id, Amount: amount, Currency: "INR"}, nil
}

func (g *fakeGateway) FetchOrderStatus(ctx context.Context, orderID string) (string, error) {
	status, ok := g.orders[orderID]
	if !ok {
		return "", fmt.Errorf("unknown order %s", orderID)
	}
	return status, nil
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return signature == "valid"
}
