// Package repository implements storage on MySQL: the engine's
// transactional store plus the plain CRUD repositories the handlers
// read from. Domain-level failures surface as the engine's sentinel
// errors; the sentinels below cover the purely storage-side cases.
package repository

import "errors"

// ErrConflict is returned when a write cannot proceed because of
// existing dependent records, such as deleting a vehicle that already
// has bookings or inserting a duplicate coupon code. Handlers
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
