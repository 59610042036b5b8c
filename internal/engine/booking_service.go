package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/onnride/vehicle-rental/internal/model"
)

// pastGrace is how far in the past a booking may start before it is
// rejected as stale; it absorbs clock skew and slow checkouts.
const pastGrace = 5 * time.Minute

// RoleAdmin is the role claim value that unlocks privileged booking
// operations (force cancel, complete, manual verify).
const RoleAdmin = "admin"

// BookingService is the reservation coordinator. It owns booking
// creation, cancellation, completion and the availability query, and
// is the only writer of booking rows outside payment reconciliation.
// All collaborators are injected; the service keeps no global state.
type BookingService struct {
	store    Store
	notifier Notifier
	minHours int64
}

// NewBookingService wires a coordinator. minHours is the minimum
// rental duration in hours; values below 1 are raised to 1.
func NewBookingService(store Store, notifier Notifier, minHours int) *BookingService {
	if minHours < 1 {
		minHours = 1
	}
	return &BookingService{store: store, notifier: notifier, minHours: int64(minHours)}
}

// CreateBookingInput carries everything needed to reserve a unit. The
// UserID comes from the auth layer and is trusted as-is.
type CreateBookingInput struct {
	VehicleID  string
	Location   string
	Start      time.Time
	End        time.Time
	UserID     string
	CouponCode string
}

// validateInterval applies the interval rules shared by creation and
// availability queries: half-open, start before end, minimum duration.
func (s *BookingService) validateInterval(start, end time.Time, enforcePast bool) error {
	if start.IsZero() || end.IsZero() {
		return validationf("start and end times are required")
	}
	if !start.Before(end) {
		return validationf("start time must be before end time")
	}
	if BillableHours(start, end) < s.minHours {
		return validationf("minimum rental duration is %d hour(s)", s.minHours)
	}
	if enforcePast && start.Before(time.Now().UTC().Add(-pastGrace)) {
		return validationf("start time is in the past")
	}
	return nil
}

// CreateBooking reserves one unit of a vehicle at a location for
// [Start, End). The availability check, the price computation, the
// coupon redemption and the insert run as one atomic unit under the
// per-vehicle-per-location lock, so two concurrent callers can never
// both claim the last unit.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if in.VehicleID == "" || in.Location == "" || in.UserID == "" {
		return nil, validationf("vehicle, location and user are required")
	}
	if err := s.validateInterval(in.Start, in.End, true); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.store.WithVehicleLock(ctx, in.VehicleID, in.Location, func(tx Tx) error {
		v, err := tx.VehicleByID(ctx, in.VehicleID)
		if err != nil {
			return err
		}
		if v.Status != model.VehicleActive {
			return validationf("vehicle is not available for booking")
		}
		capacity := v.CapacityAt(in.Location)
		if capacity <= 0 {
			return ErrCapacityExceeded
		}
		// Only restrict the count to the location when a per-location
		// capacity is defined for it; global capacity counts everything.
		countLocation := ""
		if _, ok := v.CapacityByLocation[in.Location]; ok {
			countLocation = in.Location
		}
		overlapping, err := tx.CountBlockingOverlaps(ctx, in.VehicleID, countLocation, in.Start, in.End, "")
		if err != nil {
			return err
		}
		if overlapping >= capacity {
			return ErrCapacityExceeded
		}

		base := RentalPrice(v, in.Start, in.End)
		total := base
		var couponCode *string
		if code := strings.ToUpper(strings.TrimSpace(in.CouponCode)); code != "" {
			coupon, err := tx.CouponForUpdate(ctx, code)
			if err != nil {
				return err
			}
			if err := checkCoupon(coupon, base, time.Now().UTC()); err != nil {
				return err
			}
			total = base - coupon.ComputeDiscount(base)
			if err := tx.IncrementCouponUsage(ctx, code); err != nil {
				return err
			}
			couponCode = &code
		}

		booking = &model.Booking{
			ID:            uuid.NewString(),
			UserID:        in.UserID,
			VehicleID:     in.VehicleID,
			Location:      in.Location,
			StartTime:     in.Start.UTC(),
			EndTime:       in.End.UTC(),
			Status:        model.BookingPending,
			PaymentStatus: model.PaymentPending,
			TotalPrice:    total,
			CouponCode:    couponCode,
		}
		return tx.InsertBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"vehicle_id": booking.VehicleID,
		"location":   booking.Location,
		"start":      booking.StartTime,
		"end":        booking.EndTime,
		"total":      booking.TotalPrice,
	}).Info("booking created")
	return booking, nil
}

// GetAvailability answers whether at least one unit of the vehicle is
// free at the location for [start, end). Read-only; the answer can be
// stale by the time a booking attempt runs, which is why CreateBooking
// re-checks under the lock.
func (s *BookingService) GetAvailability(ctx context.Context, vehicleID, location string, start, end time.Time) (bool, error) {
	if vehicleID == "" || location == "" {
		return false, validationf("vehicle and location are required")
	}
	if err := s.validateInterval(start, end, false); err != nil {
		return false, err
	}
	v, err := s.store.VehicleByID(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	if v.Status != model.VehicleActive {
		return false, nil
	}
	capacity := v.CapacityAt(location)
	if capacity <= 0 {
		return false, nil
	}
	countLocation := ""
	if _, ok := v.CapacityByLocation[location]; ok {
		countLocation = location
	}
	overlapping, err := s.store.CountBlockingOverlaps(ctx, vehicleID, countLocation, start, end, "")
	if err != nil {
		return false, err
	}
	return overlapping < capacity, nil
}

// CancelBooking transitions a booking to cancelled on behalf of actor.
// Customers may cancel only their own pending bookings; the admin role
// may also cancel confirmed ones (the privileged override). The status
// check and the update share one transaction so a racing confirmation
// cannot slip between them.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID, role string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, validationf("booking id is required")
	}
	var cancelled *model.Booking
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != actorID && role != RoleAdmin {
			return ErrForbidden
		}
		if !model.CanTransition(b.Status, model.BookingCancelled) {
			return &InvalidTransitionError{From: b.Status, To: model.BookingCancelled}
		}
		if b.Status != model.BookingPending && role != RoleAdmin {
			return ErrForbidden
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingCancelled, b.PaymentStatus); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": cancelled.ID,
		"actor_id":   actorID,
	}).Info("booking cancelled")
	if err := s.notifier.NotifyBookingCancelled(ctx, cancelled); err != nil {
		logrus.WithError(err).WithField("booking_id", cancelled.ID).Warn("cancel notification failed")
	}
	return cancelled, nil
}

// CompleteBooking marks a confirmed booking completed after the rental
// period has elapsed and the vehicle is returned. Admin only (enforced
// by the caller's routing).
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, validationf("booking id is required")
	}
	var completed *model.Booking
	err := s.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !model.CanTransition(b.Status, model.BookingCompleted) {
			return &InvalidTransitionError{From: b.Status, To: model.BookingCompleted}
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingCompleted, b.PaymentStatus); err != nil {
			return err
		}
		b.Status = model.BookingCompleted
		completed = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("booking_id", completed.ID).Info("booking completed")
	return completed, nil
}

// DiscountPreview is the read-only answer to validateCoupon: what the
// coupon would take off the given amount, without redeeming anything.
type DiscountPreview struct {
	Code           string             `json:"code"`
	DiscountType   model.DiscountType `json:"discount_type"`
	DiscountValue  float64            `json:"discount_value"`
	DiscountAmount int64              `json:"discount_amount"`
	FinalAmount    int64              `json:"final_amount"`
}

// ValidateCoupon checks a coupon against a candidate amount and
// returns the discount it would grant. It never increments times_used.
func (s *BookingService) ValidateCoupon(ctx context.Context, code string, amount int64) (*DiscountPreview, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, validationf("coupon code is required")
	}
	if amount <= 0 {
		return nil, validationf("amount must be positive")
	}
	coupon, err := s.store.CouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := checkCoupon(coupon, amount, time.Now().UTC()); err != nil {
		return nil, err
	}
	discount := coupon.ComputeDiscount(amount)
	return &DiscountPreview{
		Code:           coupon.Code,
		DiscountType:   coupon.DiscountType,
		DiscountValue:  coupon.DiscountValue,
		DiscountAmount: discount,
		FinalAmount:    amount - discount,
	}, nil
}

// checkCoupon applies the redemption rules shared by the preview and
// the redeeming path, with reasons the caller can tell apart.
func checkCoupon(c *model.Coupon, baseAmount int64, now time.Time) error {
	if !c.IsActive {
		return ErrCouponNotFound
	}
	if !c.WithinWindow(now) {
		return ErrCouponExpired
	}
	if c.Exhausted() {
		return ErrCouponExhausted
	}
	if c.MinBookingAmount != nil && baseAmount < *c.MinBookingAmount {
		return ErrCouponMinimumNotMet
	}
	return nil
}
