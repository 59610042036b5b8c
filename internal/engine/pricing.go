package engine

import (
	"time"

	"github.com/onnride/vehicle-rental/internal/model"
)

// Block lengths for the tiered rates, in hours.
const (
	hours7Days  = 7 * 24
	hours15Days = 15 * 24
	hours30Days = 30 * 24
)

// BillableHours converts an interval to whole billable hours, rounding
// partial hours up: a rental of 90 minutes bills 2 hours.
func BillableHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	h := int64(d / time.Hour)
	if d%time.Hour != 0 {
		h++
	}
	return h
}

// RentalPrice computes the base price for renting one unit of v over
// [start, end). Long durations consume the cheapest configured block
// rates greedily (30-day, then 15-day, then 7-day); whatever remains
// bills at the hourly rate. A tier with no configured price (zero) is
// skipped. The result is in whole currency units.
func RentalPrice(v *model.Vehicle, start, end time.Time) int64 {
	remaining := BillableHours(start, end)
	var total int64

	if v.Price30Days > 0 {
		total += (remaining / hours30Days) * v.Price30Days
		remaining %= hours30Days
	}
	if v.Price15Days > 0 {
		total += (remaining / hours15Days) * v.Price15Days
		remaining %= hours15Days
	}
	if v.Price7Days > 0 {
		total += (remaining / hours7Days) * v.Price7Days
		remaining %= hours7Days
	}
	return total + remaining*v.PricePerHour
}
