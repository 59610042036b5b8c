package repository

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/model"
)

// lockWaitSeconds bounds how long a booking attempt queues behind the
// advisory lock before giving up.
const lockWaitSeconds = 5

// storageTimeout bounds every storage unit, retries included. A hung
// round trip surfaces as a TransientStorageError instead of blocking
// the request forever.
const storageTimeout = 10 * time.Second

// storageRetries bounds how often a unit is re-run after a
// serialization conflict or a transient connection failure.
const storageRetries = 2

// SQLStore implements engine.Store on MySQL. Atomic units run inside
// database transactions; the reservation path additionally holds a
// named advisory lock so that all attempts against one
// (vehicle, location) pair serialize.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// lockName derives the advisory lock key for a vehicle/location pair.
// MySQL caps lock names at 64 characters, so the pair is hashed.
func lockName(vehicleID, location string) string {
	sum := sha1.Sum([]byte(vehicleID + "|" + location))
	return fmt.Sprintf("booking:%x", sum)
}

// WithVehicleLock pins a dedicated connection, takes GET_LOCK on it,
// and runs fn inside a transaction on that same connection. Advisory
// locks are connection-scoped in MySQL, so the lock and the
// transaction must share the connection or the release could happen
// on the wrong session.
func (s *SQLStore) WithVehicleLock(ctx context.Context, vehicleID, location string, fn func(engine.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return wrapTransient(err)
	}
	defer conn.Close()

	name := lockName(vehicleID, location)
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, lockWaitSeconds).Scan(&got); err != nil {
		return wrapTransient(err)
	}
	if !got.Valid || got.Int64 != 1 {
		return fmt.Errorf("timed out waiting for booking lock on vehicle %s", vehicleID)
	}
	defer conn.ExecContext(context.Background(), `DO RELEASE_LOCK(?)`, name)

	return runInTx(ctx, func(ctx context.Context) (*sql.Tx, error) {
		return conn.BeginTx(ctx, nil)
	}, fn)
}

// WithTx runs fn inside a plain transaction on the pool.
func (s *SQLStore) WithTx(ctx context.Context, fn func(engine.Tx) error) error {
	return runInTx(ctx, func(ctx context.Context) (*sql.Tx, error) {
		return s.db.BeginTx(ctx, nil)
	}, fn)
}

// runInTx owns the begin/commit/rollback cycle. fn must be safe to
// re-run, which holds for the engine's units: they re-read state under
// lock before writing.
func runInTx(ctx context.Context, begin func(context.Context) (*sql.Tx, error), fn func(engine.Tx) error) error {
	return withRetries(ctx, retriable, func(ctx context.Context) error {
		return attemptTx(ctx, begin, fn)
	})
}

// withRetries runs op under the storage timeout, re-running it with
// exponential backoff while shouldRetry accepts the error and attempts
// remain. Whatever transient failure survives is wrapped as the
// engine's TransientStorageError.
func withRetries(ctx context.Context, shouldRetry func(error) bool, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	var err error
loop:
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil || attempt >= storageRetries || !shouldRetry(err) {
			break
		}
		select {
		case <-time.After(backoffDelay(attempt)):
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		}
	}
	return wrapTransient(err)
}

func backoffDelay(attempt int) time.Duration {
	return 50 * time.Millisecond << attempt
}

func attemptTx(ctx context.Context, begin func(context.Context) (*sql.Tx, error), fn func(engine.Tx) error) error {
	tx, err := begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func retriable(err error) bool {
	return serializationConflict(err) || transient(err)
}

// serializationConflict matches MySQL deadlock (1213) and lock wait
// timeout (1205). The re-run is transparent to the caller.
func serializationConflict(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == 1213 || me.Number == 1205
}

// transient matches connection-level failures where a retry on a fresh
// connection may succeed: a dropped or invalid connection, a network
// timeout, or the storage deadline expiring mid-call.
func transient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// wrapTransient converts connection-class failures into the engine's
// transient error; everything else passes through unchanged.
func wrapTransient(err error) error {
	if err != nil && transient(err) {
		return &engine.TransientStorageError{Err: err}
	}
	return err
}

// VehicleByID loads a vehicle outside any transaction.
func (s *SQLStore) VehicleByID(ctx context.Context, id string) (*model.Vehicle, error) {
	var v *model.Vehicle
	err := withRetries(ctx, transient, func(ctx context.Context) error {
		var err error
		v, err = vehicleByID(ctx, s.db, id)
		return err
	})
	return v, err
}

// BookingByID loads a booking outside any transaction.
func (s *SQLStore) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	var b *model.Booking
	err := withRetries(ctx, transient, func(ctx context.Context) error {
		var err error
		b, err = bookingByID(ctx, s.db, id, "")
		return err
	})
	return b, err
}

// CouponByCode loads a coupon by its code outside any transaction.
func (s *SQLStore) CouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var c *model.Coupon
	err := withRetries(ctx, transient, func(ctx context.Context) error {
		var err error
		c, err = couponByCode(ctx, s.db, code, "")
		return err
	})
	return c, err
}

// CountBlockingOverlaps counts capacity-holding bookings outside any
// transaction, for availability previews.
func (s *SQLStore) CountBlockingOverlaps(ctx context.Context, vehicleID, location string, start, end time.Time, excludeID string) (int, error) {
	var n int
	err := withRetries(ctx, transient, func(ctx context.Context) error {
		var err error
		n, err = countBlockingOverlaps(ctx, s.db, vehicleID, location, start, end, excludeID)
		return err
	})
	return n, err
}

// sqlTx adapts one *sql.Tx to the engine.Tx surface.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) VehicleByID(ctx context.Context, id string) (*model.Vehicle, error) {
	return vehicleByID(ctx, t.tx, id)
}

func (t *sqlTx) CountBlockingOverlaps(ctx context.Context, vehicleID, location string, start, end time.Time, excludeID string) (int, error) {
	return countBlockingOverlaps(ctx, t.tx, vehicleID, location, start, end, excludeID)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return insertBooking(ctx, t.tx, b)
}

func (t *sqlTx) BookingForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return bookingByID(ctx, t.tx, id, " FOR UPDATE")
}

func (t *sqlTx) BookingByReferenceForUpdate(ctx context.Context, ref string) (*model.Booking, error) {
	return bookingByReference(ctx, t.tx, ref)
}

func (t *sqlTx) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, payment model.PaymentStatus) error {
	return updateBookingStatus(ctx, t.tx, id, status, payment)
}

func (t *sqlTx) MergePaymentDetails(ctx context.Context, id, ref string, details map[string]any) error {
	return mergePaymentDetails(ctx, t.tx, id, ref, details)
}

func (t *sqlTx) CouponForUpdate(ctx context.Context, code string) (*model.Coupon, error) {
	return couponByCode(ctx, t.tx, code, " FOR UPDATE")
}

func (t *sqlTx) IncrementCouponUsage(ctx context.Context, code string) error {
	return incrementCouponUsage(ctx, t.tx, code)
}
