package model

import (
	"math"
	"time"
)

// DiscountType selects how a coupon's value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a discount code with an optional validity window, usage
// limit and minimum booking amount. Codes are unique case-insensitively
// and stored upper-cased. TimesUsed is the only field that mutates and
// it is incremented solely on successful redemption, inside the same
// transaction that commits the booking.
//
// Fields:
//  ID                – primary key (uuid).
//  Code              – unique code, upper-cased.
//  DiscountType      – percentage or fixed.
//  DiscountValue     – percent (0-100) or a fixed amount.
//  MaxDiscountAmount – optional cap, percentage coupons only.
//  MinBookingAmount  – optional floor on the base amount.
//  ValidFrom         – optional activation time.
//  ValidUntil        – optional expiry time.
//  UsageLimit        – optional redemption cap.
//  TimesUsed         – redemptions so far.
type Coupon struct {
	ID                string       `json:"id"`
	Code              string       `json:"code"`
	DiscountType      DiscountType `json:"discount_type"`
	DiscountValue     float64      `json:"discount_value"`
	MaxDiscountAmount *int64       `json:"max_discount_amount,omitempty"`
	MinBookingAmount  *int64       `json:"min_booking_amount,omitempty"`
	ValidFrom         *time.Time   `json:"valid_from,omitempty"`
	ValidUntil        *time.Time   `json:"valid_until,omitempty"`
	UsageLimit        *int         `json:"usage_limit,omitempty"`
	TimesUsed         int          `json:"times_used"`
	IsActive          bool         `json:"is_active"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// ComputeDiscount returns the discount the coupon grants on baseAmount,
// in whole currency units. Percentage discounts round half-up and then
// honor MaxDiscountAmount; fixed discounts never exceed baseAmount, so
// the resulting total cannot go negative. Validity, window and usage
// checks are the caller's job; this is pure arithmetic on a snapshot.
func (c *Coupon) ComputeDiscount(baseAmount int64) int64 {
	if baseAmount <= 0 {
		return 0
	}
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = int64(math.Floor(float64(baseAmount)*c.DiscountValue/100 + 0.5))
		if c.MaxDiscountAmount != nil && discount > *c.MaxDiscountAmount {
			discount = *c.MaxDiscountAmount
		}
	case DiscountFixed:
		// Same half-up rounding as the percentage path; plain int64
		// conversion would truncate fractional values.
		discount = int64(math.Floor(c.DiscountValue + 0.5))
	}
	if discount < 0 {
		discount = 0
	}
	if discount > baseAmount {
		discount = baseAmount
	}
	return discount
}

// Exhausted reports whether the coupon's usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit
}

// WithinWindow reports whether now falls inside the coupon's validity
// window. Unset bounds are open.
func (c *Coupon) WithinWindow(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}
