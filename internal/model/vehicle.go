package model

import "time"

// VehicleStatus enumerates the admin-managed lifecycle of a vehicle
// type. Only active vehicles are bookable.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRetired     VehicleStatus = "retired"
)

// Vehicle describes a bookable vehicle type together with its physical
// inventory and pricing tiers. A vehicle row represents N interchangeable
// units, not a single machine. CapacityByLocation, when present,
// overrides the global unit count for the named pickup locations.
// Vehicles are created and edited by the admin surface and are
// read-only to the reservation engine.
//
// Fields:
//  ID                 – primary key (uuid).
//  Name               – display name.
//  Type               – category (bike, scooter, car, ...).
//  CapacityGlobal     – units available when no per-location breakdown exists.
//  CapacityByLocation – location name → units; overrides CapacityGlobal
//                       for that location when the key is present.
//  PricePerHour       – base hourly rate in whole currency units.
//  Price7Days         – optional rate for a full 7-day block (0 = unset).
//  Price15Days        – optional rate for a full 15-day block.
//  Price30Days        – optional rate for a full 30-day block.
//  Status             – active, maintenance or retired.
type Vehicle struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Type               string         `json:"type"`
	CapacityGlobal     int            `json:"capacity_global"`
	CapacityByLocation map[string]int `json:"capacity_by_location,omitempty"`
	PricePerHour       int64          `json:"price_per_hour"`
	Price7Days         int64          `json:"price_7_days,omitempty"`
	Price15Days        int64          `json:"price_15_days,omitempty"`
	Price30Days        int64          `json:"price_30_days,omitempty"`
	Status             VehicleStatus  `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// CapacityAt returns the number of units available at the given pickup
// location, falling back to the global capacity when no per-location
// entry exists.
func (v *Vehicle) CapacityAt(location string) int {
	if v.CapacityByLocation != nil {
		if n, ok := v.CapacityByLocation[location]; ok {
			return n
		}
	}
	return v.CapacityGlobal
}
