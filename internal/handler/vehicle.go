package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/model"
	"github.com/onnride/vehicle-rental/internal/repository"
)

// VehicleHandler serves the public catalogue plus the admin CRUD for
// vehicles.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
	Bookings *engine.BookingService
}

func NewVehicleHandler(v *repository.VehicleRepo, b *engine.BookingService) *VehicleHandler {
	return &VehicleHandler{Vehicles: v, Bookings: b}
}

// parseRange reads RFC3339 start/end values. Times are normalized to
// UTC; deeper validation (ordering, minimum duration) belongs to the
// engine.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start.UTC(), end.UTC(), nil
}

// List returns active vehicles, optionally filtered by ?type=.
func (h *VehicleHandler) List(c echo.Context) error {
	vehicles, err := h.Vehicles.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("type")), true)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": vehicles})
}

// Get returns one vehicle by id.
func (h *VehicleHandler) Get(c echo.Context) error {
	v, err := h.Vehicles.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Availability answers whether at least one unit of the vehicle is
// free at the location over [start, end).
func (h *VehicleHandler) Availability(c echo.Context) error {
	start, end, err := parseRange(c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
	}
	location := strings.TrimSpace(c.QueryParam("location"))
	if location == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "location is required"})
	}
	available, err := h.Bookings.GetAvailability(c.Request().Context(), c.Param("id"), location, start, end)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vehicle_id": c.Param("id"),
		"location":   location,
		"start":      start,
		"end":        end,
		"available":  available,
	})
}

// Quote prices a prospective rental without reserving anything.
func (h *VehicleHandler) Quote(c echo.Context) error {
	start, end, err := parseRange(c.QueryParam("start"), c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC3339 timestamps"})
	}
	if !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be before end"})
	}
	v, err := h.Vehicles.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vehicle_id":     v.ID,
		"billable_hours": engine.BillableHours(start, end),
		"total_price":    engine.RentalPrice(v, start, end),
	})
}

// ----- admin CRUD -----

type vehicleReq struct {
	Name               string         `json:"name"`
	Type               string         `json:"type"`
	CapacityGlobal     int            `json:"capacity_global"`
	CapacityByLocation map[string]int `json:"capacity_by_location"`
	PricePerHour       int64          `json:"price_per_hour"`
	Price7Days         int64          `json:"price_7_days"`
	Price15Days        int64          `json:"price_15_days"`
	Price30Days        int64          `json:"price_30_days"`
	Status             string         `json:"status"`
}

func (r *vehicleReq) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(r.Type) == "" {
		return "type is required"
	}
	if r.CapacityGlobal < 0 {
		return "capacity_global must not be negative"
	}
	for loc, n := range r.CapacityByLocation {
		if strings.TrimSpace(loc) == "" {
			return "capacity_by_location keys must be non-empty"
		}
		if n < 0 {
			return "capacity_by_location values must not be negative"
		}
	}
	if r.PricePerHour <= 0 {
		return "price_per_hour must be positive"
	}
	switch model.VehicleStatus(r.Status) {
	case model.VehicleActive, model.VehicleMaintenance, model.VehicleRetired:
	default:
		return "status must be active, maintenance or retired"
	}
	return ""
}

func (r *vehicleReq) apply(v *model.Vehicle) {
	v.Name = strings.TrimSpace(r.Name)
	v.Type = strings.TrimSpace(r.Type)
	v.CapacityGlobal = r.CapacityGlobal
	v.CapacityByLocation = r.CapacityByLocation
	v.PricePerHour = r.PricePerHour
	v.Price7Days = r.Price7Days
	v.Price15Days = r.Price15Days
	v.Price30Days = r.Price30Days
	v.Status = model.VehicleStatus(r.Status)
}

// ListAll returns every vehicle regardless of status, for the admin
// surface.
func (h *VehicleHandler) ListAll(c echo.Context) error {
	vehicles, err := h.Vehicles.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("type")), false)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": vehicles})
}

func (h *VehicleHandler) Create(c echo.Context) error {
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status == "" {
		req.Status = string(model.VehicleActive)
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	v := &model.Vehicle{ID: uuid.NewString()}
	req.apply(v)
	if err := h.Vehicles.Create(c.Request().Context(), v); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *VehicleHandler) Update(c echo.Context) error {
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	v := &model.Vehicle{ID: c.Param("id")}
	req.apply(v)
	if err := h.Vehicles.Update(c.Request().Context(), v); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Delete removes a vehicle with no booking history; one with bookings
// should be retired through Update instead and comes back as 409.
func (h *VehicleHandler) Delete(c echo.Context) error {
	if err := h.Vehicles.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
