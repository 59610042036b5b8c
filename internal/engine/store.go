package engine

import (
	"context"
	"time"

	"github.com/onnride/vehicle-rental/internal/model"
)

// Tx is the set of storage operations available inside one atomic
// unit. Implementations bind every call to the same database
// transaction; errors abort the unit and roll everything back.
type Tx interface {
	VehicleByID(ctx context.Context, id string) (*model.Vehicle, error)

	// CountBlockingOverlaps counts bookings for the vehicle whose
	// interval overlaps [start, end) and that still hold a capacity
	// claim (not cancelled, payment not failed). A non-empty location
	// restricts the count to that pickup location; excludeID, when
	// non-empty, skips one booking (re-validation against itself).
	CountBlockingOverlaps(ctx context.Context, vehicleID, location string, start, end time.Time, excludeID string) (int, error)

	InsertBooking(ctx context.Context, b *model.Booking) error

	// BookingForUpdate loads a booking with a row lock held until the
	// transaction ends, guarding read-modify-write on its status.
	BookingForUpdate(ctx context.Context, id string) (*model.Booking, error)

	// BookingByReferenceForUpdate is BookingForUpdate keyed by the
	// external payment reference instead of the booking id.
	BookingByReferenceForUpdate(ctx context.Context, ref string) (*model.Booking, error)

	UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, payment model.PaymentStatus) error

	// MergePaymentDetails deep-merges raw gateway fields into the
	// booking's payment details (never replacing the document) and sets
	// the payment reference if it is not set yet.
	MergePaymentDetails(ctx context.Context, id, ref string, details map[string]any) error

	// CouponForUpdate loads a coupon by code (case-insensitive) with a
	// row lock, so concurrent redemptions serialize on the row.
	CouponForUpdate(ctx context.Context, code string) (*model.Coupon, error)

	IncrementCouponUsage(ctx context.Context, code string) error
}

// Store provides the atomic execution boundaries the engine runs on,
// plus the plain reads that need no transaction. The SQL implementation
// lives in the repository package; tests substitute an in-memory fake.
type Store interface {
	// WithVehicleLock runs fn inside a transaction while holding an
	// exclusive advisory lock for the (vehicleID, location) pair. All
	// reservation attempts against the same pair serialize here, which
	// is what closes the check-then-insert race.
	WithVehicleLock(ctx context.Context, vehicleID, location string, fn func(Tx) error) error

	// WithTx runs fn inside a plain transaction.
	WithTx(ctx context.Context, fn func(Tx) error) error

	VehicleByID(ctx context.Context, id string) (*model.Vehicle, error)
	BookingByID(ctx context.Context, id string) (*model.Booking, error)
	CouponByCode(ctx context.Context, code string) (*model.Coupon, error)
	CountBlockingOverlaps(ctx context.Context, vehicleID, location string, start, end time.Time, excludeID string) (int, error)
}
