package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/onnride/vehicle-rental/internal/model"
)

var pricingBase = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func TestBillableHours(t *testing.T) {
	assert.Equal(t, int64(1), BillableHours(pricingBase, pricingBase.Add(time.Hour)))
	assert.Equal(t, int64(2), BillableHours(pricingBase, pricingBase.Add(90*time.Minute)))
	assert.Equal(t, int64(1), BillableHours(pricingBase, pricingBase.Add(time.Minute)))
	assert.Equal(t, int64(24), BillableHours(pricingBase, pricingBase.Add(24*time.Hour)))
	assert.Equal(t, int64(0), BillableHours(pricingBase, pricingBase))
	assert.Equal(t, int64(0), BillableHours(pricingBase, pricingBase.Add(-time.Hour)))
}

func TestRentalPriceHourlyOnly(t *testing.T) {
	v := &model.Vehicle{PricePerHour: 100}
	assert.Equal(t, int64(300), RentalPrice(v, pricingBase, pricingBase.Add(3*time.Hour)))
	// partial hours bill as whole hours
	assert.Equal(t, int64(400), RentalPrice(v, pricingBase, pricingBase.Add(3*time.Hour+time.Minute)))
	// no block rates configured: a long rental stays hourly
	assert.Equal(t, int64(100*7*24), RentalPrice(v, pricingBase, pricingBase.Add(7*24*time.Hour)))
}

func TestRentalPriceBlockRates(t *testing.T) {
	v := &model.Vehicle{
		PricePerHour: 100,
		Price7Days:   10_000,
		Price15Days:  18_000,
		Price30Days:  30_000,
	}

	// exactly one 7-day block
	assert.Equal(t, int64(10_000), RentalPrice(v, pricingBase, pricingBase.Add(7*24*time.Hour)))

	// 7 days + 5 hours: block plus hourly remainder
	assert.Equal(t, int64(10_500), RentalPrice(v, pricingBase, pricingBase.Add(7*24*time.Hour+5*time.Hour)))

	// 37 days: one 30-day block, one 7-day block
	assert.Equal(t, int64(40_000), RentalPrice(v, pricingBase, pricingBase.Add(37*24*time.Hour)))

	// 45 days: 30-day block + 15-day block
	assert.Equal(t, int64(48_000), RentalPrice(v, pricingBase, pricingBase.Add(45*24*time.Hour)))
}

func TestRentalPriceSkipsUnsetTiers(t *testing.T) {
	v := &model.Vehicle{PricePerHour: 100, Price7Days: 10_000}
	// 30 days with only a 7-day rate: four blocks plus 2 hourly days
	assert.Equal(t, int64(4*10_000+2*24*100), RentalPrice(v, pricingBase, pricingBase.Add(30*24*time.Hour)))
}
