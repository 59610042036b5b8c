package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the row helpers
// below can serve the pool and transaction paths alike.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const bookingColumns = `id, user_id, vehicle_id, location, start_time, end_time,
       status, payment_status, total_price, coupon_code, payment_reference,
       payment_details, created_at, updated_at`

func scanBooking(row *sql.Row) (*model.Booking, error) {
	var (
		b          model.Booking
		couponCode sql.NullString
		paymentRef sql.NullString
		details    []byte
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleID, &b.Location, &b.StartTime, &b.EndTime,
		&b.Status, &b.PaymentStatus, &b.TotalPrice, &couponCode, &paymentRef,
		&details, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if couponCode.Valid {
		c := couponCode.String
		b.CouponCode = &c
	}
	if paymentRef.Valid {
		r := paymentRef.String
		b.PaymentReference = &r
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &b.PaymentDetails); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

// lockSuffix is "" or " FOR UPDATE"; the latter is only legal inside a
// transaction.
func bookingByID(ctx context.Context, q querier, id, lockSuffix string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?` + lockSuffix
	return scanBooking(q.QueryRowContext(ctx, query, id))
}

func bookingByReference(ctx context.Context, q querier, ref string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_reference = ? FOR UPDATE`
	return scanBooking(q.QueryRowContext(ctx, query, ref))
}

// countBlockingOverlaps counts bookings that still hold a unit of the
// vehicle's capacity over a half-open interval. Two intervals overlap
// when each starts before the other ends; equal endpoints touch without
// overlapping, so back-to-back bookings never collide here.
func countBlockingOverlaps(ctx context.Context, q querier, vehicleID, location string, start, end time.Time, excludeID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
	          WHERE vehicle_id = ?
	            AND start_time < ? AND end_time > ?
	            AND status <> 'cancelled'
	            AND payment_status <> 'failed'`
	args := []any{vehicleID, end, start}
	if location != "" {
		query += ` AND location = ?`
		args = append(args, location)
	}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func insertBooking(ctx context.Context, q querier, b *model.Booking) error {
	var details any
	if b.PaymentDetails != nil {
		buf, err := json.Marshal(b.PaymentDetails)
		if err != nil {
			return err
		}
		details = buf
	}
	const query = `INSERT INTO bookings
	    (id, user_id, vehicle_id, location, start_time, end_time,
	     status, payment_status, total_price, coupon_code, payment_reference, payment_details)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		b.ID, b.UserID, b.VehicleID, b.Location, b.StartTime.UTC(), b.EndTime.UTC(),
		b.Status, b.PaymentStatus, b.TotalPrice, b.CouponCode, b.PaymentReference, details,
	)
	return err
}

func updateBookingStatus(ctx context.Context, q querier, id string, status model.BookingStatus, payment model.PaymentStatus) error {
	res, err := q.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_status = ? WHERE id = ?`,
		status, payment, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrBookingNotFound
	}
	return nil
}

// mergePaymentDetails folds raw gateway fields into the JSON details
// column without discarding earlier entries, and binds the payment
// reference on first write only.
func mergePaymentDetails(ctx context.Context, q querier, id, ref string, details map[string]any) error {
	buf, err := json.Marshal(details)
	if err != nil {
		return err
	}
	const query = `UPDATE bookings
	    SET payment_details = JSON_MERGE_PATCH(COALESCE(payment_details, '{}'), CAST(? AS JSON)),
	        payment_reference = COALESCE(payment_reference, ?)
	    WHERE id = ?`
	res, err := q.ExecContext(ctx, query, buf, ref, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrBookingNotFound
	}
	return nil
}

// BookingRepo serves the read side the handlers render: booking lists
// and detail views joined with vehicle info. Writes all flow through
// the engine via SQLStore.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDetail is a booking joined with the display fields of its
// vehicle, shaped for JSON responses.
type BookingDetail struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	VehicleID        string         `json:"vehicle_id"`
	VehicleName      string         `json:"vehicle_name"`
	VehicleType      string         `json:"vehicle_type"`
	Location         string         `json:"location"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"payment_status"`
	TotalPrice       int64          `json:"total_price"`
	CouponCode       *string        `json:"coupon_code,omitempty"`
	PaymentReference *string        `json:"payment_reference,omitempty"`
	PaymentDetails   map[string]any `json:"payment_details,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

const detailColumns = `b.id, b.user_id, b.vehicle_id, v.name, v.type, b.location,
       b.start_time, b.end_time, b.status, b.payment_status, b.total_price,
       b.coupon_code, b.payment_reference, b.payment_details, b.created_at`

func scanDetail(scan func(dest ...any) error) (*BookingDetail, error) {
	var (
		d          BookingDetail
		couponCode sql.NullString
		paymentRef sql.NullString
		details    []byte
	)
	err := scan(
		&d.ID, &d.UserID, &d.VehicleID, &d.VehicleName, &d.VehicleType, &d.Location,
		&d.StartTime, &d.EndTime, &d.Status, &d.PaymentStatus, &d.TotalPrice,
		&couponCode, &paymentRef, &details, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if couponCode.Valid {
		c := couponCode.String
		d.CouponCode = &c
	}
	if paymentRef.Valid {
		r := paymentRef.String
		d.PaymentReference = &r
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &d.PaymentDetails); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

// ListByUser returns the user's bookings newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
	           FROM bookings b
	           JOIN vehicles v ON v.id = b.vehicle_id
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC`
	return r.list(ctx, q, userID)
}

// ListAll returns bookings across all users for the admin surface.
// status filters when non-empty; limit/offset page the result.
func (r *BookingRepo) ListAll(ctx context.Context, status string, limit, offset int) ([]BookingDetail, error) {
	q := `SELECT ` + detailColumns + `
	      FROM bookings b
	      JOIN vehicles v ON v.id = b.vehicle_id`
	args := []any{}
	if status != "" {
		q += ` WHERE b.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY b.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.list(ctx, q, args...)
}

// GetDetail returns one booking with vehicle info. Ownership checks
// belong to the caller.
func (r *BookingRepo) GetDetail(ctx context.Context, bookingID string) (*BookingDetail, error) {
	const q = `SELECT ` + detailColumns + `
	           FROM bookings b
	           JOIN vehicles v ON v.id = b.vehicle_id
	           WHERE b.id = ?`
	d, err := scanDetail(r.db.QueryRowContext(ctx, q, bookingID).Scan)
	if err == sql.ErrNoRows {
		return nil, engine.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...any) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
