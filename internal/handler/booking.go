package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/repository"
)

// BookingHandler serves the customer booking lifecycle plus the admin
// booking views.
type BookingHandler struct {
	Service *engine.BookingService
	Repo    *repository.BookingRepo
}

func NewBookingHandler(s *engine.BookingService, r *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Service: s, Repo: r}
}

type createBookingReq struct {
	VehicleID  string `json:"vehicle_id"`
	Location   string `json:"location"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CouponCode string `json:"coupon_code"`
}

// Create reserves a vehicle unit for the authenticated user. The
// booking comes back pending; payment confirms it.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, end, err := parseRange(req.StartTime, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time must be RFC3339 timestamps"})
	}
	uid, _ := identity(c)

	b, err := h.Service.CreateBooking(c.Request().Context(), engine.CreateBookingInput{
		VehicleID:  strings.TrimSpace(req.VehicleID),
		Location:   strings.TrimSpace(req.Location),
		Start:      start,
		End:        end,
		UserID:     uid,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// ListMine returns the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, _ := identity(c)
	bookings, err := h.Repo.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// Get returns one booking. Customers only see their own; admins see
// any.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, role := identity(c)
	d, err := h.Repo.GetDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if d.UserID != uid && role != engine.RoleAdmin {
		return fail(c, engine.ErrForbidden)
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel releases the booking's capacity claim. Customers may cancel
// their own pending bookings; admins may also cancel confirmed ones.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, role := identity(c)
	b, err := h.Service.CancelBooking(c.Request().Context(), c.Param("id"), uid, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ----- admin -----

// ListAll pages through every booking, optionally filtered by
// ?status=.
func (h *BookingHandler) ListAll(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if s := c.QueryParam("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	bookings, err := h.Repo.ListAll(c.Request().Context(), strings.TrimSpace(c.QueryParam("status")), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "limit": limit, "offset": offset})
}

// Complete marks a confirmed booking as completed once the vehicle is
// returned.
func (h *BookingHandler) Complete(c echo.Context) error {
	b, err := h.Service.CompleteBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
