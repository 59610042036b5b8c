package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64 { return &v }

func TestComputeDiscountPercentage(t *testing.T) {
	c := Coupon{DiscountType: DiscountPercentage, DiscountValue: 50}
	assert.Equal(t, int64(500), c.ComputeDiscount(1000))

	// half-up rounding: 10% of 1255 = 125.5 -> 126
	c = Coupon{DiscountType: DiscountPercentage, DiscountValue: 10}
	assert.Equal(t, int64(126), c.ComputeDiscount(1255))

	// cap applies after the percentage
	c = Coupon{DiscountType: DiscountPercentage, DiscountValue: 50, MaxDiscountAmount: i64(200)}
	assert.Equal(t, int64(200), c.ComputeDiscount(1000))
	assert.Equal(t, int64(100), c.ComputeDiscount(200))
}

func TestComputeDiscountFixed(t *testing.T) {
	c := Coupon{DiscountType: DiscountFixed, DiscountValue: 300}
	assert.Equal(t, int64(300), c.ComputeDiscount(1000))

	// fixed discounts never push the total below zero
	assert.Equal(t, int64(250), c.ComputeDiscount(250))
	assert.Equal(t, int64(0), c.ComputeDiscount(0))

	// fractional values round half-up, same as the percentage path
	c = Coupon{DiscountType: DiscountFixed, DiscountValue: 99.9}
	assert.Equal(t, int64(100), c.ComputeDiscount(1000))
	c = Coupon{DiscountType: DiscountFixed, DiscountValue: 99.4}
	assert.Equal(t, int64(99), c.ComputeDiscount(1000))
}

func TestCouponExhausted(t *testing.T) {
	limit := 3
	c := Coupon{UsageLimit: &limit, TimesUsed: 2}
	assert.False(t, c.Exhausted())
	c.TimesUsed = 3
	assert.True(t, c.Exhausted())

	c = Coupon{TimesUsed: 1_000_000}
	assert.False(t, c.Exhausted(), "no limit means never exhausted")
}

func TestCouponWithinWindow(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	c := Coupon{ValidFrom: &from, ValidUntil: &until}
	assert.True(t, c.WithinWindow(now))
	assert.False(t, c.WithinWindow(now.Add(-2*time.Hour)))
	assert.False(t, c.WithinWindow(now.Add(2*time.Hour)))

	open := Coupon{}
	assert.True(t, open.WithinWindow(now), "open window")
}
