// Package queue defines message payloads exchanged over the message broker.
package queue

// Booking event kinds carried in BookingEvent.Kind.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published when a booking is confirmed or cancelled.
// It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type BookingEvent struct {
	Kind       string `json:"kind"`
	BookingID  string `json:"booking_id"`
	UserID     string `json:"user_id"`
	VehicleID  string `json:"vehicle_id"`
	Location   string `json:"location"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	TotalPrice int64  `json:"total_price"`
	OccurredAt string `json:"occurred_at"`
}
