package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

// PaymentStatus tracks the payment side of a booking independently of
// its lifecycle status.
type PaymentStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"

	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// transitions is the full table of legal status transitions. Anything
// not listed here is rejected; both terminal states map to nothing.
var transitions = map[BookingStatus]map[BookingStatus]bool{
	BookingPending:   {BookingConfirmed: true, BookingCancelled: true},
	BookingConfirmed: {BookingCancelled: true, BookingCompleted: true},
	BookingCancelled: {},
	BookingCompleted: {},
}

// CanTransition reports whether moving from one booking status to
// another is permitted by the lifecycle table.
func CanTransition(from, to BookingStatus) bool {
	return transitions[from][to]
}

// Terminal reports whether no further transition is permitted from s.
func (s BookingStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Booking records a customer's reservation of one vehicle unit at a
// pickup location for a half-open time interval [StartTime, EndTime).
// Bookings are created once and then mutated only through lifecycle
// transitions; cancellation is a status change, never a row removal.
//
// Fields:
//  ID               – primary key (uuid).
//  UserID           – customer who made the booking.
//  VehicleID        – vehicle being reserved.
//  Location         – pickup location; key into the vehicle's
//                     per-location capacity when present.
//  StartTime        – interval start (inclusive), UTC.
//  EndTime          – interval end (exclusive), UTC.
//  Status           – lifecycle state (pending, confirmed, cancelled,
//                     completed).
//  PaymentStatus    – payment state (pending, completed, failed,
//                     refunded).
//  TotalPrice       – derived total in whole currency units; immutable
//                     once confirmed.
//  CouponCode       – snapshot of the redeemed coupon code, if any.
//  PaymentReference – external gateway order id, unique per completed
//                     payment attempt.
//  PaymentDetails   – merge-only map of raw gateway fields.
type Booking struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	VehicleID        string         `json:"vehicle_id"`
	Location         string         `json:"location"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	Status           BookingStatus  `json:"status"`
	PaymentStatus    PaymentStatus  `json:"payment_status"`
	TotalPrice       int64          `json:"total_price"`
	CouponCode       *string        `json:"coupon_code,omitempty"`
	PaymentReference *string        `json:"payment_reference,omitempty"`
	PaymentDetails   map[string]any `json:"payment_details,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Blocking reports whether this booking still holds a capacity claim
// on its vehicle/location. A booking stops blocking only once it is
// cancelled or its payment has terminally failed.
func (b *Booking) Blocking() bool {
	return b.Status != BookingCancelled && b.PaymentStatus != PaymentFailed
}
