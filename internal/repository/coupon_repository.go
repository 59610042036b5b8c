package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/model"
)

const couponColumns = `id, code, discount_type, discount_value, max_discount_amount,
       min_booking_amount, valid_from, valid_until, usage_limit, times_used,
       is_active, created_at, updated_at`

func scanCoupon(scan func(dest ...any) error) (*model.Coupon, error) {
	var (
		c          model.Coupon
		maxAmt     sql.NullInt64
		minAmt     sql.NullInt64
		validFrom  sql.NullTime
		validUntil sql.NullTime
		limit      sql.NullInt64
	)
	err := scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &maxAmt,
		&minAmt, &validFrom, &validUntil, &limit, &c.TimesUsed,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if maxAmt.Valid {
		v := maxAmt.Int64
		c.MaxDiscountAmount = &v
	}
	if minAmt.Valid {
		v := minAmt.Int64
		c.MinBookingAmount = &v
	}
	if validFrom.Valid {
		t := validFrom.Time
		c.ValidFrom = &t
	}
	if validUntil.Valid {
		t := validUntil.Time
		c.ValidUntil = &t
	}
	if limit.Valid {
		n := int(limit.Int64)
		c.UsageLimit = &n
	}
	return &c, nil
}

func couponByCode(ctx context.Context, q querier, code, lockSuffix string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = ?` + lockSuffix
	c, err := scanCoupon(q.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(code))).Scan)
	if err == sql.ErrNoRows {
		return nil, engine.ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func incrementCouponUsage(ctx context.Context, q querier, code string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE coupons SET times_used = times_used + 1 WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrCouponNotFound
	}
	return nil
}

// CouponRepo provides the admin CRUD for coupons. Redemption, which
// has to serialize against the usage limit, happens inside the engine's
// booking transaction instead.
type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return couponByCode(ctx, r.db, code, "")
}

// List returns all coupons newest first; inactive ones included so the
// admin surface can re-enable them.
func (r *CouponRepo) List(ctx context.Context) ([]model.Coupon, error) {
	const q = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	const q = `INSERT INTO coupons
	    (id, code, discount_type, discount_value, max_discount_amount,
	     min_booking_amount, valid_from, valid_until, usage_limit, is_active)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, strings.ToUpper(strings.TrimSpace(c.Code)), c.DiscountType, c.DiscountValue,
		c.MaxDiscountAmount, c.MinBookingAmount, c.ValidFrom, c.ValidUntil, c.UsageLimit, c.IsActive,
	)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

func (r *CouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	const q = `UPDATE coupons
	    SET discount_type = ?, discount_value = ?, max_discount_amount = ?,
	        min_booking_amount = ?, valid_from = ?, valid_until = ?, usage_limit = ?, is_active = ?
	    WHERE code = ?`
	res, err := r.db.ExecContext(ctx, q,
		c.DiscountType, c.DiscountValue, c.MaxDiscountAmount,
		c.MinBookingAmount, c.ValidFrom, c.ValidUntil, c.UsageLimit, c.IsActive,
		strings.ToUpper(strings.TrimSpace(c.Code)),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrCouponNotFound
	}
	return nil
}

// Deactivate soft-disables a coupon. Rows are never deleted so past
// bookings keep a resolvable coupon code.
func (r *CouponRepo) Deactivate(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET is_active = FALSE WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrCouponNotFound
	}
	return nil
}
